package shortcut

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when no system clipboard tool is
// installed.
var ErrClipboardUnavailable = errors.New("system clipboard unavailable")

// Clipboard is a text clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard is the operating system clipboard.
type SystemClipboard struct{}

// ReadAll returns the clipboard text.
func (SystemClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", ErrClipboardUnavailable
	}
	return clipboard.ReadAll()
}

// WriteAll replaces the clipboard text.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}
