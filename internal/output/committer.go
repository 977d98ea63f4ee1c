package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/micmonay/keybd_event"
)

// Config selects how accepted text reaches the focused application.
type Config struct {
	// UseClipboard pastes the whole text with Ctrl+V instead of typing it.
	UseClipboard     bool
	RestoreClipboard bool
	TypingDelay      time.Duration
	PasteSettle      time.Duration
}

// Committer implements ports.Committer with clipboard paste and simulated
// keystrokes. A failed paste falls back to typing.
type Committer struct {
	cfg    Config
	clip   clipboardAccess
	keys   keySender
	logger *slog.Logger
}

// NewCommitter opens the virtual keyboard. Without one every Commit fails and
// the caller's clipboard fallback takes over.
func NewCommitter(cfg Config, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "committer")

	var keys keySender
	kb, err := newVirtualKeyboard()
	if err != nil {
		logger.Warn("keyboard simulation unavailable", "error", err)
	} else {
		keys = kb
	}
	return newCommitter(cfg, systemClipboard{}, keys, logger)
}

func newCommitter(cfg Config, clip clipboardAccess, keys keySender, logger *slog.Logger) *Committer {
	if cfg.PasteSettle <= 0 {
		cfg.PasteSettle = 80 * time.Millisecond
	}
	return &Committer{cfg: cfg, clip: clip, keys: keys, logger: logger}
}

func (c *Committer) Commit(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if c.keys == nil {
		return errNoKeyboard
	}

	if c.cfg.UseClipboard {
		err := c.paste(ctx, text)
		if err == nil {
			return nil
		}
		c.logger.Warn("paste failed, typing instead", "error", err)
	}
	return c.typeText(ctx, text)
}

// paste puts text on the clipboard, sends Ctrl+V, and restores what was there.
func (c *Committer) paste(ctx context.Context, text string) error {
	saved, readErr := "", error(nil)
	if c.cfg.RestoreClipboard {
		saved, readErr = c.clip.ReadAll()
	}
	if err := c.clip.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := sleep(ctx, c.cfg.PasteSettle); err != nil {
		return err
	}
	if err := c.keys.Press(false, true, keybd_event.VK_V); err != nil {
		return fmt.Errorf("send paste shortcut: %w", err)
	}

	if c.cfg.RestoreClipboard && readErr == nil {
		if err := sleep(ctx, c.cfg.PasteSettle); err != nil {
			return nil
		}
		if err := c.clip.WriteAll(saved); err != nil {
			c.logger.Debug("clipboard restore failed", "error", err)
		}
	}
	return nil
}

// typeText sends one keystroke per character. Runs of characters with no
// layout-independent key are pasted.
func (c *Committer) typeText(ctx context.Context, text string) error {
	for _, r := range splitRuns(text) {
		if !r.typeable {
			if err := c.paste(ctx, r.text); err != nil {
				return err
			}
			continue
		}
		for _, ch := range r.text {
			key, shift, _ := keyFor(ch)
			if err := c.keys.Press(shift, false, key); err != nil {
				return fmt.Errorf("type %q: %w", ch, err)
			}
			if err := sleep(ctx, c.cfg.TypingDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
