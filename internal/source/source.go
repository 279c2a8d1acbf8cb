// Package source reads the directive text the run will apply, either from
// a pipe on stdin or from the system clipboard.
package source

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrNoInput means the chosen source held nothing usable.
var ErrNoInput = errors.New("no input content found")

// Provider yields the raw directive text for one run.
type Provider interface {
	Read() (string, error)
	Name() string
}

// IsPiped reports whether stdin carries piped data rather than a terminal.
func IsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// Detect picks stdin when piped, clipboard otherwise.
func Detect() Provider {
	if IsPiped() {
		return Stdin{}
	}
	return Clipboard{}
}

// Stdin reads the whole of standard input.
type Stdin struct{}

func (Stdin) Name() string { return "stdin" }

func (Stdin) Read() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", ErrNoInput
	}
	return string(data), nil
}

// Clipboard reads the system clipboard.
type Clipboard struct{}

func (Clipboard) Name() string { return "clipboard" }

func (Clipboard) Read() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoInput
	}
	return text, nil
}
