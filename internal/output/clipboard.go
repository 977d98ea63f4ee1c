package output

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// clipboardAccess is the subset of the system clipboard the committer needs.
type clipboardAccess interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Clipboard implements ports.Clipboard on the system clipboard.
type Clipboard struct {
	access clipboardAccess
}

func NewClipboard() *Clipboard {
	return &Clipboard{access: systemClipboard{}}
}

func (c *Clipboard) SetText(_ context.Context, text string) error {
	if err := c.access.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
