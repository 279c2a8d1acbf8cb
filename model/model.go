package model

// Operation is one parsed directive. The concrete types below form a closed
// set; the executor dispatches over them with a type switch.
type Operation interface {
	op()
}

// Create writes Content to Path, overwriting any existing file.
type Create struct {
	Path    string
	Content string
}

// Delete removes Path: a file or symlink directly, a directory recursively.
type Delete struct {
	Path string
}

// Rename moves From to To.
type Rename struct {
	From string
	To   string
}

// Binary writes a decoded payload to Path. Only base64 is understood.
type Binary struct {
	Path     string
	Encoding string
	Content  string
}

// PatchBlob is the raw body of one <patch> directive. It may describe
// several files and is resolved into FilePatch and Delete operations by the
// udiff package.
type PatchBlob struct {
	Content string
}

// FilePatch is one file's worth of unified diff. IsNew marks a file created
// purely by the diff, i.e. the source header was a null-device sentinel.
type FilePatch struct {
	Path  string
	IsNew bool
	Diff  string
}

func (Create) op()    {}
func (Delete) op()    {}
func (Rename) op()    {}
func (Binary) op()    {}
func (PatchBlob) op() {}
func (FilePatch) op() {}

// Counts tallies executed operations per category.
type Counts struct {
	Renamed int
	Deleted int
	Created int
	Binary  int
	Patched int
	Errors  int
}

// Applied is the number of operations that succeeded.
func (c Counts) Applied() int {
	return c.Renamed + c.Deleted + c.Created + c.Binary + c.Patched
}

// Summary holds the results of a run for display.
type Summary struct {
	Counts   Counts
	Created  []string
	Patched  []string
	Deleted  []string
	Renamed  []string
	Binaries []string
	Restored []string
	Failed   []string
	Skipped  []string
	Warnings []string
	Message  string
}

// Errored reports whether any operation failed during execution.
func (s Summary) Errored() bool {
	return s.Counts.Errors > 0
}
