package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var drivePrefix = regexp.MustCompile(`^[A-Za-z]:`)

// IsSafePath reports whether p stays inside the project root once resolved:
// it must be relative, carry no drive prefix and contain no ".." segment.
func IsSafePath(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}
	norm := path.Clean(strings.ReplaceAll(p, `\`, "/"))
	if strings.HasPrefix(norm, "/") || drivePrefix.MatchString(norm) {
		return false
	}
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// WriteFile writes data to p, creating parent directories as needed.
// Existing files are overwritten.
func WriteFile(p string, data []byte) error {
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(p, data, 0o644)
}

// CopyFile copies src to dst byte for byte, creating dst's parent
// directories as needed.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Move renames from to to, creating to's parent directories first.
func Move(from, to string) error {
	if dir := filepath.Dir(to); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.Rename(from, to)
}

// RemoveAny deletes p and reports whether it existed. Files and symlinks
// are removed directly, directories recursively. A missing path is a no-op.
func RemoveAny(p string) (bool, error) {
	info, err := os.Lstat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return true, os.RemoveAll(p)
	}
	return true, os.Remove(p)
}

// FileSHA256 returns the hex SHA-256 of the file at p.
func FileSHA256(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
