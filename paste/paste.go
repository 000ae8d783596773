// Package paste synthesizes the clipboard-and-keystroke dance that lands a
// transcript in whatever application currently has focus.
package paste

import (
	"log/slog"
	"time"

	"github.com/go-vgo/robotgo"
)

// interStepDelay separates the clipboard write from keystroke synthesis,
// and the paste modifier's key-down from the V tap, so the focused app has
// time to actually read what was written.
const interStepDelay = 50 * time.Millisecond

// settleDelay is the pause after the paste keystroke before clipboard
// restoration, giving the focused app time to read the clipboard.
const settleDelay = 100 * time.Millisecond

// clipboard is the capability TextPaster needs from the OS clipboard,
// narrowed from robotgo's package-level functions so it can be faked in
// tests.
type clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// robotgoClipboard delegates to robotgo's package-level clipboard
// functions.
type robotgoClipboard struct{}

func (robotgoClipboard) ReadAll() (string, error)     { return robotgo.ReadAll() }
func (robotgoClipboard) WriteAll(text string) error   { return robotgo.WriteAll(text) }

// keystroker synthesizes the paste keystroke; narrowed for testability.
type keystroker interface {
	SynthesizePaste() error
}

// robotgoKeystroker presses the platform paste modifier plus the V key by
// virtual keycode.
type robotgoKeystroker struct{ modifier string }

func (k robotgoKeystroker) SynthesizePaste() error {
	robotgo.KeyDown(k.modifier)
	defer robotgo.KeyUp(k.modifier)
	time.Sleep(interStepDelay)
	return robotgo.KeyTap("v", k.modifier)
}

// TextPaster writes text to the clipboard and synthesizes a paste
// keystroke, restoring whatever was on the clipboard before — unless a
// foreign writer changed it in the meantime, in which case that write
// wins.
type TextPaster struct {
	clip clipboard
	keys keystroker
}

// New returns a TextPaster backed by the real OS clipboard and robotgo
// keystroke synthesis.
func New() *TextPaster {
	return &TextPaster{
		clip: robotgoClipboard{},
		keys: robotgoKeystroker{modifier: platformPasteModifier()},
	}
}

// Paste runs the five-step sequence. A failed clipboard write is logged and
// ends the sequence; a failure in any later step is logged and the sequence
// continues, since a half-finished paste is still more useful than none.
func (p *TextPaster) Paste(text string) {
	if text == "" {
		slog.Warn("paste: empty text, skipping")
		return
	}

	previous, hadPrevious := p.snapshot()

	if err := p.clip.WriteAll(text); err != nil {
		slog.Error("paste: failed to write clipboard", "error", err)
		return
	}

	time.Sleep(interStepDelay)
	if err := p.keys.SynthesizePaste(); err != nil {
		slog.Error("paste: failed to synthesize paste keystroke", "error", err)
	}
	time.Sleep(settleDelay)

	if hadPrevious {
		p.restoreIfUnchanged(text, previous)
	}
}

func (p *TextPaster) snapshot() (text string, ok bool) {
	current, err := p.clip.ReadAll()
	if err != nil {
		slog.Warn("paste: failed to read current clipboard, nothing to restore", "error", err)
		return "", false
	}
	if current == "" {
		return "", false
	}
	return current, true
}

// restoreIfUnchanged restores previous only if the clipboard still holds
// exactly what we wrote — a foreign writer between write and restore wins.
func (p *TextPaster) restoreIfUnchanged(written, previous string) {
	current, err := p.clip.ReadAll()
	if err != nil {
		slog.Warn("paste: failed to read clipboard before restore", "error", err)
		return
	}
	if current != written {
		slog.Info("paste: clipboard changed by another writer, skipping restore")
		return
	}
	if err := p.clip.WriteAll(previous); err != nil {
		slog.Warn("paste: failed to restore previous clipboard", "error", err)
	}
}
