package controller

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dictationd/audio"
	"dictationd/recording"
	"dictationd/transcription"
	"dictationd/uievents"
)

// fakeRecorder stands in for audio.Capture: StartRecording creates an empty
// file at path (so cleanup/stat calls behave like the real thing) and
// StopRecording returns whatever speechSamples the test configured.
type fakeRecorder struct {
	mu            sync.Mutex
	speechSamples int
	startErr      error
	lastPath      string
}

func (f *fakeRecorder) StartRecording(path, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.lastPath = path
	return os.WriteFile(path, []byte("wav"), 0600)
}

func (f *fakeRecorder) StopRecording() audio.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return audio.Result{FilePath: f.lastPath, SpeechSamples: f.speechSamples}
}

// fakeTranscriber returns a fixed text or error, recording every call.
type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, _ int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakePaster records every pasted string instead of touching the clipboard.
type fakePaster struct {
	pasted []string
}

func (f *fakePaster) Paste(text string) { f.pasted = append(f.pasted, text) }

// recordingSink collects every emitted event for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []uievents.Event
}

func (s *recordingSink) Emit(e uievents.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) states() []uievents.RecordingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uievents.RecordingState
	for _, e := range s.events {
		if p, ok := e.Payload.(uievents.RecordingStateChanged); ok {
			out = append(out, p.State)
		}
	}
	return out
}

func (s *recordingSink) last() uievents.RecordingStateChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if p, ok := s.events[i].Payload.(uievents.RecordingStateChanged); ok {
			return p
		}
	}
	return uievents.RecordingStateChanged{}
}

const testSpeechSamples = recordingSampleRate // one second of "speech"

func newTestController(t *testing.T, rec *fakeRecorder, factory BackendFactory, pst *fakePaster, sink *recordingSink) (*Controller, chan recording.Command) {
	t.Helper()
	cmds := make(chan recording.Command, 8)
	c, err := New(rec, factory, pst, sink, t.TempDir(), 200, cmds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, cmds
}

func runUntilIdle(t *testing.T, c *Controller, cmds chan recording.Command, send ...recording.Command) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	for _, cmd := range send {
		cmds <- cmd
	}
	// give the single Controller goroutine a moment to drain synchronously
	// issued in-process fakes before we tear it down.
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
}

// S1: push-to-talk press, release, successful transcription and paste.
func TestPushToTalkHappyPath(t *testing.T) {
	rec := &fakeRecorder{speechSamples: testSpeechSamples}
	tr := &fakeTranscriber{text: "hello world"}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return tr, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdPushToTalkPress, recording.CmdPushToTalkRelease)

	if tr.calls != 1 {
		t.Fatalf("expected 1 transcribe call, got %d", tr.calls)
	}
	if len(pst.pasted) != 1 || pst.pasted[0] != "hello world" {
		t.Fatalf("expected paste of %q, got %v", "hello world", pst.pasted)
	}
	states := sink.states()
	want := []uievents.RecordingState{uievents.RecordingStarted, uievents.RecordingTranscribing, uievents.RecordingStopped}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, states)
		}
	}
	if c.machine.State() != recording.Ready {
		t.Fatalf("expected machine back in Ready after success, got %v", c.machine.State())
	}
}

// S2: hands-free press locks recording in one hop, a second press stops it.
func TestHandsFreeLockAndRelease(t *testing.T) {
	rec := &fakeRecorder{speechSamples: testSpeechSamples}
	tr := &fakeTranscriber{text: "locked transcript"}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return tr, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdHandsFreePress, recording.CmdHandsFreePress)

	if tr.calls != 1 {
		t.Fatalf("expected 1 transcribe call, got %d", tr.calls)
	}
	if len(pst.pasted) != 1 || pst.pasted[0] != "locked transcript" {
		t.Fatalf("unexpected paste: %v", pst.pasted)
	}
}

// S3: speech shorter than the configured floor is discarded with a
// no-speech error and never reaches the transcriber.
func TestShortRecordingIsNoSpeechError(t *testing.T) {
	rec := &fakeRecorder{speechSamples: 1} // far below the 200ms floor
	tr := &fakeTranscriber{text: "unused"}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return tr, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdPushToTalkPress, recording.CmdPushToTalkRelease)

	if tr.calls != 0 {
		t.Fatalf("expected no transcribe call, got %d", tr.calls)
	}
	last := sink.last()
	if last.State != uievents.RecordingError || last.ErrorType != string(KindNoSpeech) {
		t.Fatalf("expected a no-speech error, got %+v", last)
	}
	if c.machine.State() != recording.Ready {
		t.Fatalf("expected machine reset to Ready, got %v", c.machine.State())
	}
}

// S4: cancelling mid-recording discards the file and emits Cancelled,
// never touching the transcriber or paster.
func TestCancelDiscardsRecording(t *testing.T) {
	rec := &fakeRecorder{speechSamples: testSpeechSamples}
	tr := &fakeTranscriber{text: "unused"}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return tr, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdPushToTalkPress, recording.CmdCancel)

	if tr.calls != 0 || len(pst.pasted) != 0 {
		t.Fatalf("cancel must not transcribe or paste: calls=%d pasted=%v", tr.calls, pst.pasted)
	}
	states := sink.states()
	if len(states) == 0 || states[len(states)-1] != uievents.RecordingCancelled {
		t.Fatalf("expected trailing Cancelled state, got %v", states)
	}
	if _, err := os.Stat(rec.lastPath); !os.IsNotExist(err) {
		t.Fatalf("expected recording file to be removed, stat err=%v", err)
	}
}

// S5: a transcription failure runs the uniform error pipeline, resets the
// machine to Ready, and remembers the audio file for a later retry.
func TestTranscriptionFailureEnablesRetry(t *testing.T) {
	rec := &fakeRecorder{speechSamples: testSpeechSamples}
	failing := &fakeTranscriber{err: &transcription.Error{Kind: transcription.ErrAPI, HTTPStatus: 429}}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return failing, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdPushToTalkPress, recording.CmdPushToTalkRelease)

	last := sink.last()
	if last.State != uievents.RecordingError || last.ErrorType != string(KindAPI) {
		t.Fatalf("expected a transcription_api error, got %+v", last)
	}
	if last.AudioFilePath == "" {
		t.Fatal("expected the audio file path to survive for retry")
	}
	if c.machine.State() != recording.Ready {
		t.Fatalf("expected machine reset to Ready, got %v", c.machine.State())
	}
	if len(pst.pasted) != 0 {
		t.Fatalf("a failed transcription must never paste, got %v", pst.pasted)
	}

	// S6: retrying re-runs transcription against the remembered file.
	succeeding := &fakeTranscriber{text: "retried text"}
	c.newService = func() (Transcriber, error) { return succeeding, nil }
	runUntilIdle(t, c, cmds, recording.CmdRetry)

	if succeeding.calls != 1 {
		t.Fatalf("expected retry to call transcribe once, got %d", succeeding.calls)
	}
	if len(pst.pasted) != 1 || pst.pasted[0] != "retried text" {
		t.Fatalf("expected retried text pasted, got %v", pst.pasted)
	}
}

// Retry with no remembered audio file is a no-op that leaves the machine in
// Ready rather than panicking or hanging.
func TestRetryWithNoPriorFailureIsNoop(t *testing.T) {
	rec := &fakeRecorder{speechSamples: testSpeechSamples}
	tr := &fakeTranscriber{text: "unused"}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return tr, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdRetry)

	if tr.calls != 0 {
		t.Fatalf("expected no transcribe call, got %d", tr.calls)
	}
	if c.machine.State() != recording.Ready {
		t.Fatalf("expected machine to remain Ready, got %v", c.machine.State())
	}
}

// Invariant (iv): a no-speech error never happens after Transcribing was
// emitted — it's reported before the transcriber is ever invoked.
func TestNoSpeechNeverEmitsTranscribing(t *testing.T) {
	rec := &fakeRecorder{speechSamples: 1}
	tr := &fakeTranscriber{text: "unused"}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return tr, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdPushToTalkPress, recording.CmdPushToTalkRelease)

	for _, s := range sink.states() {
		if s == uievents.RecordingTranscribing {
			t.Fatal("Transcribing must never be emitted for a no-speech recording")
		}
	}
}

// A device error on StartRecording runs the error pipeline immediately and
// leaves the machine ready for the next attempt.
func TestStartRecordingDeviceError(t *testing.T) {
	rec := &fakeRecorder{startErr: os.ErrPermission}
	tr := &fakeTranscriber{text: "unused"}
	pst := &fakePaster{}
	sink := &recordingSink{}
	c, cmds := newTestController(t, rec, func() (Transcriber, error) { return tr, nil }, pst, sink)

	runUntilIdle(t, c, cmds, recording.CmdPushToTalkPress)

	last := sink.last()
	if last.State != uievents.RecordingError || last.ErrorType != string(KindDevice) {
		t.Fatalf("expected a device error, got %+v", last)
	}
	if c.machine.State() != recording.Ready {
		t.Fatalf("expected machine reset to Ready, got %v", c.machine.State())
	}
}

// Stale recording_*.wav files from a previous run are cleaned up at
// startup.
func TestNewCleansStaleRecordings(t *testing.T) {
	dir := t.TempDir()
	recordingsDir := filepath.Join(dir, "recordings")
	if err := os.MkdirAll(recordingsDir, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(recordingsDir, "recording_123.wav")
	if err := os.WriteFile(stale, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	rec := &fakeRecorder{}
	tr := &fakeTranscriber{}
	pst := &fakePaster{}
	sink := &recordingSink{}
	cmds := make(chan recording.Command)
	if _, err := New(rec, func() (Transcriber, error) { return tr, nil }, pst, sink, dir, 200, cmds); err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale recording to be removed, stat err=%v", err)
	}
}
