package paste

import "testing"

type fakeClipboard struct {
	value string
	// foreignWriteAfter, if non-empty, simulates another process
	// overwriting the clipboard the moment WriteAll is called with it.
	foreignWriteAfter string
	foreignValue      string
}

func (f *fakeClipboard) ReadAll() (string, error) { return f.value, nil }

func (f *fakeClipboard) WriteAll(text string) error {
	f.value = text
	if text == f.foreignWriteAfter {
		f.value = f.foreignValue
	}
	return nil
}

type fakeKeystroker struct{ called int }

func (f *fakeKeystroker) SynthesizePaste() error {
	f.called++
	return nil
}

func TestPasteRoundTripRestoresPrevious(t *testing.T) {
	clip := &fakeClipboard{value: "Y"}
	keys := &fakeKeystroker{}
	p := &TextPaster{clip: clip, keys: keys}

	p.Paste("X")

	if keys.called != 1 {
		t.Fatalf("expected exactly one keystroke synthesis, got %d", keys.called)
	}
	if clip.value != "Y" {
		t.Fatalf("expected clipboard restored to %q, got %q", "Y", clip.value)
	}
}

func TestPasteForeignWriterWins(t *testing.T) {
	clip := &fakeClipboard{value: "Y", foreignWriteAfter: "X", foreignValue: "Z"}
	p := &TextPaster{clip: clip, keys: &fakeKeystroker{}}

	p.Paste("X")

	if clip.value != "Z" {
		t.Fatalf("expected foreign writer's value to win, got %q", clip.value)
	}
}

func TestPasteNoPreviousClipboardSkipsRestore(t *testing.T) {
	clip := &fakeClipboard{value: ""}
	p := &TextPaster{clip: clip, keys: &fakeKeystroker{}}

	p.Paste("X")

	if clip.value != "X" {
		t.Fatalf("with no meaningful previous clipboard, expected %q to remain, got %q", "X", clip.value)
	}
}

func TestPasteEmptyTextSkipped(t *testing.T) {
	clip := &fakeClipboard{value: "Y"}
	keys := &fakeKeystroker{}
	p := &TextPaster{clip: clip, keys: keys}

	p.Paste("")

	if keys.called != 0 {
		t.Fatal("expected no keystroke synthesis for empty text")
	}
	if clip.value != "Y" {
		t.Fatal("expected clipboard untouched for empty text")
	}
}
