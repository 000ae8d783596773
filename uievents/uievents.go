// Package uievents defines the tagged event payloads the Controller emits
// towards whatever UI layer is attached, and the Sink it emits them
// through. A headless build can run with a no-op Sink; uibridge supplies
// the Wails-backed one.
package uievents

// Sink receives UI-facing events. Implementations must not block: the
// Controller emits from its own goroutine and a slow sink would stall
// recording.
type Sink interface {
	Emit(event Event)
}

// Event is a single tagged payload. Name identifies the event class;
// Payload is one of the concrete types below.
type Event struct {
	Name    string
	Payload any
}

const (
	NameRecordingStateChanged = "recording-state-changed"
	NameKeyCapture            = "key-capture"
)

// RecordingState tags the variant of a RecordingStateChanged payload.
type RecordingState string

const (
	RecordingStarted     RecordingState = "started"
	RecordingTranscribing RecordingState = "transcribing"
	RecordingStopped     RecordingState = "stopped"
	RecordingCancelled   RecordingState = "cancelled"
	RecordingError       RecordingState = "error"
)

// RecordingStateChanged is emitted on every Controller state transition.
type RecordingStateChanged struct {
	State RecordingState

	// Stopped
	Text string

	// Error
	ErrorType     string
	ErrorMessage  string
	UserMessage   string
	AudioFilePath string
}

// KeyEventKind tags a capture-mode key transition.
type KeyEventKind string

const (
	KeyDown KeyEventKind = "down"
	KeyUp   KeyEventKind = "up"
)

// KeyCaptureEvent is emitted for every key transition while KeyListener is
// in Capture mode.
type KeyCaptureEvent struct {
	Kind    KeyEventKind
	Keycode uint32
	Label   string
}

// NullSink discards every event; used where no UI is attached.
type NullSink struct{}

func (NullSink) Emit(Event) {}
