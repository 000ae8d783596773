// Package recording holds the sole authority on recording-state
// transitions: a pure (state, command) -> (state, action) table guarded by
// a mutex so concurrent readers see a consistent snapshot.
package recording

import (
	"log/slog"
	"sync"
)

// State is one of the four recording states. Exactly one instance exists
// per Controller, mutated only through Machine.Transition and Machine.Reset.
type State int

const (
	Ready State = iota
	Recording
	RecordingLocked
	Transcribing
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Recording:
		return "Recording"
	case RecordingLocked:
		return "RecordingLocked"
	case Transcribing:
		return "Transcribing"
	default:
		return "Unknown"
	}
}

// Command is a user- or pipeline-originated event fed into the state
// machine.
type Command int

const (
	// CmdPushToTalkPress is the push-to-record shortcut's rising edge.
	CmdPushToTalkPress Command = iota
	// CmdPushToTalkRelease is the push-to-record shortcut's falling edge.
	CmdPushToTalkRelease
	// CmdHandsFreePress is the hands-free shortcut's rising edge; it both
	// starts and stops depending on the state it lands in.
	CmdHandsFreePress
	CmdCancel
	CmdRetry
	CmdTranscriptionComplete
	CmdTranscriptionFailed
)

// Action is the side-effect instruction returned to the Controller when a
// transition changes state.
type Action int

const (
	ActionStartRecording Action = iota
	ActionStopAndTranscribe
	ActionCancelRecording
	ActionRetryTranscription
)

func (a Action) String() string {
	switch a {
	case ActionStartRecording:
		return "StartRecording"
	case ActionStopAndTranscribe:
		return "StopAndTranscribe"
	case ActionCancelRecording:
		return "CancelRecording"
	case ActionRetryTranscription:
		return "RetryTranscription"
	default:
		return "Unknown"
	}
}

// transition is the complete table entry: the resulting state and, if any,
// the action the Controller must run.
type transition struct {
	next   State
	action Action
	hasAct bool
}

// table[state][command] mirrors the transition table; a missing entry means
// the command is rejected in that state.
var table = map[State]map[Command]transition{
	Ready: {
		CmdPushToTalkPress: {next: Recording, action: ActionStartRecording, hasAct: true},
		// Hands-free start and lock land in RecordingLocked in one hop: an
		// atomic pair, never observable in the intermediate Recording state.
		CmdHandsFreePress: {next: RecordingLocked, action: ActionStartRecording, hasAct: true},
		CmdRetry:          {next: Transcribing, action: ActionRetryTranscription, hasAct: true},
	},
	Recording: {
		CmdPushToTalkRelease: {next: Transcribing, action: ActionStopAndTranscribe, hasAct: true},
		CmdHandsFreePress:    {next: Transcribing, action: ActionStopAndTranscribe, hasAct: true},
		CmdCancel:            {next: Ready, action: ActionCancelRecording, hasAct: true},
	},
	RecordingLocked: {
		// Pressing push-to-record again ends a hands-free session.
		CmdPushToTalkPress: {next: Transcribing, action: ActionStopAndTranscribe, hasAct: true},
		CmdHandsFreePress:  {next: Transcribing, action: ActionStopAndTranscribe, hasAct: true},
		CmdCancel:          {next: Ready, action: ActionCancelRecording, hasAct: true},
	},
	Transcribing: {
		CmdTranscriptionComplete: {next: Ready},
		CmdTranscriptionFailed:   {next: Ready},
	},
}

// Result describes the outcome of a Transition call.
type Result struct {
	Changed  bool
	State    State
	Action   Action
	HasAction bool
}

// Machine is the mutex-guarded state holder. The zero value is not usable;
// construct with NewMachine.
type Machine struct {
	mu    sync.RWMutex
	state State
}

// NewMachine returns a Machine starting in Ready.
func NewMachine() *Machine {
	return &Machine{state: Ready}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsBusy reports whether the machine is in any state other than Ready.
func (m *Machine) IsBusy() bool {
	return m.State() != Ready
}

// Transition applies cmd to the current state. If the command is rejected
// in the current state, Transition logs it at warning level and returns a
// Result with Changed false; the rejection is non-fatal.
func (m *Machine) Transition(cmd Command) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := table[m.state][cmd]
	if !ok {
		slog.Warn("recording: transition rejected", "state", m.state, "command", cmd)
		return Result{Changed: false, State: m.state}
	}

	prev := m.state
	m.state = entry.next
	slog.Debug("recording: transition", "from", prev, "command", cmd, "to", m.state)
	return Result{Changed: true, State: m.state, Action: entry.action, HasAction: entry.hasAct}
}

// Reset force-sets the state to Ready. Used on any unrecoverable error
// path; never rejected.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Ready {
		slog.Debug("recording: reset", "from", m.state)
	}
	m.state = Ready
}
