package recording

import "testing"

func TestTransitionTableTotality(t *testing.T) {
	states := []State{Ready, Recording, RecordingLocked, Transcribing}
	commands := []Command{
		CmdPushToTalkPress, CmdPushToTalkRelease, CmdHandsFreePress,
		CmdCancel, CmdRetry, CmdTranscriptionComplete, CmdTranscriptionFailed,
	}

	for _, s := range states {
		for _, c := range commands {
			m := &Machine{state: s}
			res := m.Transition(c)
			if !res.Changed {
				continue
			}
			switch res.State {
			case Ready, Recording, RecordingLocked, Transcribing:
			default:
				t.Fatalf("transition(%v,%v) -> unknown state %v", s, c, res.State)
			}
		}
	}
}

func TestTranscribingOnlyAcceptsCompletionEvents(t *testing.T) {
	for _, c := range []Command{CmdPushToTalkPress, CmdPushToTalkRelease, CmdHandsFreePress, CmdCancel, CmdRetry} {
		m := &Machine{state: Transcribing}
		res := m.Transition(c)
		if res.Changed {
			t.Fatalf("Transcribing must reject %v, got transition to %v", c, res.State)
		}
	}
	for _, c := range []Command{CmdTranscriptionComplete, CmdTranscriptionFailed} {
		m := &Machine{state: Transcribing}
		res := m.Transition(c)
		if !res.Changed || res.State != Ready {
			t.Fatalf("Transcribing must move to Ready on %v", c)
		}
	}
}

func TestHandsFreeAtomicPair(t *testing.T) {
	m := NewMachine()
	res := m.Transition(CmdHandsFreePress)
	if !res.Changed || res.State != RecordingLocked || res.Action != ActionStartRecording {
		t.Fatalf("unexpected hands-free start result: %+v", res)
	}
	// Intermediate Recording state must never be separately observed: the
	// very next transition already sees RecordingLocked.
	if m.State() != RecordingLocked {
		t.Fatalf("expected RecordingLocked immediately after hands-free press, got %v", m.State())
	}
}

func TestPushToTalkEndsHandsFree(t *testing.T) {
	m := NewMachine()
	m.Transition(CmdHandsFreePress)
	res := m.Transition(CmdPushToTalkPress)
	if !res.Changed || res.State != Transcribing || res.Action != ActionStopAndTranscribe {
		t.Fatalf("push-to-talk press must end a locked hands-free session, got %+v", res)
	}
}

func TestResetForcesReady(t *testing.T) {
	m := NewMachine()
	m.Transition(CmdHandsFreePress)
	m.Reset()
	if m.State() != Ready {
		t.Fatalf("Reset() left state at %v", m.State())
	}
}

func TestIsBusy(t *testing.T) {
	m := NewMachine()
	if m.IsBusy() {
		t.Fatal("fresh machine must not be busy")
	}
	m.Transition(CmdPushToTalkPress)
	if !m.IsBusy() {
		t.Fatal("Recording must be busy")
	}
}
