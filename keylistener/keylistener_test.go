package keylistener

import (
	"testing"

	"dictationd/recording"
	"dictationd/shortcut"
	"dictationd/uievents"
)

func testConfig() shortcut.Config {
	return shortcut.Config{
		PushToRecord: shortcut.Shortcut{Keys: []shortcut.ShortcutKey{shortcut.NewShortcutKey(shortcut.KeyFunction)}},
		HandsFree: shortcut.Shortcut{Keys: []shortcut.ShortcutKey{
			shortcut.NewShortcutKey(shortcut.KeyFunction), shortcut.NewShortcutKey(spaceKeycode),
		}},
	}
}

func drainCmd(t *testing.T, k *KeyListener) recording.Command {
	t.Helper()
	select {
	case c := <-k.Commands():
		return c
	default:
		t.Fatal("expected a command, got none")
		return -1
	}
}

func TestPushToTalkPressAndRelease(t *testing.T) {
	k := New(testConfig(), nil)

	if suppress := k.HandleEvent(shortcut.KeyFunction, true, false); !suppress {
		t.Fatal("expected push-to-record press to be suppressed")
	}
	if c := drainCmd(t, k); c != recording.CmdPushToTalkPress {
		t.Fatalf("expected CmdPushToTalkPress, got %v", c)
	}

	if suppress := k.HandleEvent(shortcut.KeyFunction, false, false); !suppress {
		t.Fatal("expected push-to-record release to be suppressed")
	}
	if c := drainCmd(t, k); c != recording.CmdPushToTalkRelease {
		t.Fatalf("expected CmdPushToTalkRelease, got %v", c)
	}
}

func TestHandsFreeSpaceSuppressed(t *testing.T) {
	k := New(testConfig(), nil)
	k.HandleEvent(shortcut.KeyFunction, true, false)
	drainCmd(t, k) // push-to-record rising edge also fires; consume it

	if suppress := k.HandleEvent(spaceKeycode, true, false); !suppress {
		t.Fatal("expected the Space key completing hands-free to be suppressed")
	}
	if c := drainCmd(t, k); c != recording.CmdHandsFreePress {
		t.Fatalf("expected CmdHandsFreePress, got %v", c)
	}
}

func TestModeChangeAtomicityClearsPressedSet(t *testing.T) {
	k := New(testConfig(), nil)
	k.HandleEvent(shortcut.KeyFunction, true, false)
	drainCmd(t, k)

	k.SetMode(ModeCapture)
	// First event after the mode change must see Capture mode with an
	// empty pressed set, not the stale Fn-held-down state.
	k.HandleEvent(shortcut.KeySpace, true, false)

	k.mu.Lock()
	_, fnStillPressed := k.pressed[shortcut.KeyFunction]
	mode := k.mode
	k.mu.Unlock()

	if mode != ModeCapture {
		t.Fatalf("expected mode to be Capture, got %v", mode)
	}
	if fnStillPressed {
		t.Fatal("pressed-key set must be empty at the mode-change boundary")
	}
}

type recordingSink struct {
	events []uievents.KeyCaptureEvent
}

func (r *recordingSink) Emit(e uievents.Event) {
	if kc, ok := e.Payload.(uievents.KeyCaptureEvent); ok {
		r.events = append(r.events, kc)
	}
}

func TestCaptureModeSuppressesAndEmits(t *testing.T) {
	sink := &recordingSink{}
	k := New(testConfig(), sink)
	k.SetMode(ModeCapture)

	if suppress := k.HandleEvent(shortcut.KeyA, true, false); !suppress {
		t.Fatal("capture mode must suppress every key")
	}
	if len(sink.events) != 1 || sink.events[0].Keycode != shortcut.KeyA {
		t.Fatalf("expected one emitted event for KeyA, got %v", sink.events)
	}

	select {
	case c := <-k.Commands():
		t.Fatalf("capture mode must not emit recording commands, got %v", c)
	default:
	}
}
