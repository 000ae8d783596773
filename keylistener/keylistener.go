// Package keylistener turns the raw key-transition stream from keytap into
// either shortcut-driven recording commands (Normal mode) or a forwarded
// event stream for shortcut configuration (Capture mode).
package keylistener

import (
	"sync"

	"dictationd/recording"
	"dictationd/shortcut"
	"dictationd/uievents"
)

// Mode selects how KeyListener interprets the key stream.
type Mode int

const (
	ModeNormal Mode = iota
	ModeCapture
)

// spaceKeycode is the Carbon keycode for the Space key.
const spaceKeycode = 0x31

// modeUpdate is sent over the control channel to change mode without
// racing the event-processing goroutine.
type modeUpdate struct {
	mode Mode
}

// KeyListener owns the pressed-key set and both shortcut matchers, and
// drains pending mode changes atomically before every event. The
// recording.Machine's own table resolves what a rising/falling edge means
// in the current state (start, lock, or stop) — KeyListener only reports
// the edges themselves.
type KeyListener struct {
	sink    uievents.Sink
	cmdChan chan recording.Command

	modeChan chan modeUpdate

	mu      sync.Mutex
	mode    Mode
	pressed map[uint32]bool
	ptt     *shortcut.Matcher
	hf      *shortcut.Matcher
}

// New builds a KeyListener. Commands() receives recording.Command values
// produced in Normal mode; sink receives KeyCaptureEvent values produced
// in Capture mode.
func New(cfg shortcut.Config, sink uievents.Sink) *KeyListener {
	if sink == nil {
		sink = uievents.NullSink{}
	}
	return &KeyListener{
		sink:     sink,
		cmdChan:  make(chan recording.Command, 16),
		modeChan: make(chan modeUpdate, 8),
		mode:     ModeNormal,
		pressed:  make(map[uint32]bool),
		ptt:      shortcut.NewMatcher(cfg.PushToRecord),
		hf:       shortcut.NewMatcher(cfg.HandsFree),
	}
}

// Commands returns the channel Normal-mode commands are published on.
func (k *KeyListener) Commands() <-chan recording.Command { return k.cmdChan }

// SetMode queues a mode change. The next event processed is guaranteed to
// see the new mode with an empty pressed-key set.
func (k *KeyListener) SetMode(m Mode) {
	k.modeChan <- modeUpdate{mode: m}
}

// UpdateShortcuts rebinds both matchers to a new configuration; takes
// effect on the next event processed (drainModeUpdates does not clear the
// pressed set for a shortcut update, only for a mode change, so callers
// that need a clean slate should pair this with SetMode).
func (k *KeyListener) UpdateShortcuts(cfg shortcut.Config) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ptt.SetShortcut(cfg.PushToRecord)
	k.hf.SetShortcut(cfg.HandsFree)
}

// drainModeUpdates applies every pending mode change and clears
// pressed-key state; caller must hold mu.
func (k *KeyListener) drainModeUpdates() {
	for {
		select {
		case u := <-k.modeChan:
			k.mode = u.mode
			k.pressed = make(map[uint32]bool)
		default:
			return
		}
	}
}

// HandleEvent processes one raw key transition and reports whether it
// should be suppressed from reaching other applications. This is the
// function keytap.SetHandler is wired to.
func (k *KeyListener) HandleEvent(keycode uint32, down bool, isRepeat bool) (suppress bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.drainModeUpdates()

	if isRepeat {
		return k.mode == ModeNormal && k.ptt.Shortcut().ContainsKey(keycode) && k.ptt.Shortcut().Matches(k.pressed)
	}

	if k.mode == ModeCapture {
		return k.handleCapture(keycode, down)
	}
	return k.handleNormal(keycode, down)
}

func (k *KeyListener) handleCapture(keycode uint32, down bool) bool {
	kind := uievents.KeyUp
	if down {
		k.pressed[keycode] = true
		kind = uievents.KeyDown
	} else {
		delete(k.pressed, keycode)
	}
	k.sink.Emit(uievents.Event{
		Name: uievents.NameKeyCapture,
		Payload: uievents.KeyCaptureEvent{
			Kind:    kind,
			Keycode: keycode,
			Label:   shortcut.Label(keycode),
		},
	})
	return true
}

func (k *KeyListener) handleNormal(keycode uint32, down bool) bool {
	pttInvolved := k.ptt.Shortcut().ContainsKey(keycode)
	hfInvolved := k.hf.Shortcut().ContainsKey(keycode)

	// Both shortcuts are judged against the same before/after sets: the
	// pressed map is shared, so it is mutated once between the two checks.
	pttWas := k.ptt.Shortcut().Matches(k.pressed)
	hfWas := k.hf.Shortcut().Matches(k.pressed)
	if down {
		k.pressed[keycode] = true
	} else {
		delete(k.pressed, keycode)
	}
	pttIs := k.ptt.Shortcut().Matches(k.pressed)
	hfIs := k.hf.Shortcut().Matches(k.pressed)

	pttRising := down && !pttWas && pttIs
	pttFalling := !down && pttWas && !pttIs
	hfRising := down && !hfWas && hfIs // hands-free only acts on its rising edge

	switch {
	case pttRising:
		k.publish(recording.CmdPushToTalkPress)
	case pttFalling:
		k.publish(recording.CmdPushToTalkRelease)
	}
	if hfRising {
		k.publish(recording.CmdHandsFreePress)
	}

	// Suppress every key involved in a fully-matched push-to-record combo
	// while it's held, so the keystrokes never leak to the focused app.
	pttHeld := pttInvolved && k.ptt.Shortcut().Matches(k.pressed)
	pttHeldBeforeRelease := pttInvolved && !down && pttFalling
	// A hands-free combo that uses Space must not let that Space reach the
	// focused app when it's the key completing the combo.
	hfSpaceSuppress := hfInvolved && keycode == spaceKeycode && hfRising

	return pttHeld || pttHeldBeforeRelease || hfSpaceSuppress
}

// publish blocks until cmd is accepted. The command channel has bounded
// capacity and back-pressure is tolerated here: every producer is a
// physical key event, which arrives far slower than the Controller can
// drain commands, and a dropped command would leave the state machine out
// of sync with the user's held keys.
func (k *KeyListener) publish(cmd recording.Command) {
	k.cmdChan <- cmd
}
