// Package controller is the conductor: it owns the audio stream and the
// recording state machine, consumes commands from a channel on one
// dedicated goroutine, and drives AudioCapture, the transcription backend,
// and TextPaster in response.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dictationd/audio"
	"dictationd/recording"
	"dictationd/transcription"
	"dictationd/uievents"
)

// recordingSampleRate matches audio.TargetSampleRate: the fixed rate every
// WAV file on the capture path is written at.
const recordingSampleRate = audio.TargetSampleRate

// Recorder is the capability Controller needs from audio.Capture,
// narrowed so it can be faked in tests that don't touch real hardware.
type Recorder interface {
	StartRecording(path, debugPath string) error
	StopRecording() audio.Result
}

// Transcriber is the capability Controller needs from
// *transcription.Service.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string, speechMs int) (string, error)
}

// Paster is the capability Controller needs from *paste.TextPaster.
type Paster interface {
	Paste(text string)
}

// BackendFactory builds the Transcriber to use for the next transcribe
// call, resolved fresh each time so a provider switch takes effect on the
// next recording rather than requiring a restart.
type BackendFactory func() (Transcriber, error)

// lastRecording is the retry-state the Controller remembers across
// commands: only ever touched from the Controller goroutine.
type lastRecording struct {
	text          string
	audioFilePath string
}

// Controller is the single owner of recording state and the audio stream.
// Run must be called on its own goroutine. Commands reach the Controller
// only through the channel passed to New: Run is its only exported method,
// so there are no separate stop, cancel, retry or dismiss entry points.
type Controller struct {
	machine    *recording.Machine
	capture    Recorder
	newService BackendFactory
	paster     Paster
	sink       uievents.Sink

	cacheDir    string
	minSpeechMs int
	commands    <-chan recording.Command
	last        lastRecording
}

// New builds a Controller. cacheDir is where WAV files are written
// (recordings/ is created under it); commands is typically
// keylistener.Commands().
func New(capture Recorder, newService BackendFactory, paster Paster, sink uievents.Sink, cacheDir string, minSpeechMs int, commands <-chan recording.Command) (*Controller, error) {
	if sink == nil {
		sink = uievents.NullSink{}
	}
	recordingsDir := filepath.Join(cacheDir, "recordings")
	if err := os.MkdirAll(recordingsDir, 0755); err != nil {
		return nil, fmt.Errorf("controller: create recordings dir: %w", err)
	}
	cleanStaleRecordings(recordingsDir)

	return &Controller{
		machine:     recording.NewMachine(),
		capture:     capture,
		newService:  newService,
		paster:      paster,
		sink:        sink,
		cacheDir:    recordingsDir,
		minSpeechMs: minSpeechMs,
		commands:    commands,
	}, nil
}

// cleanStaleRecordings deletes every recording_<secs>.wav left over from a
// previous run that never cleaned up after itself.
func cleanStaleRecordings(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "recording_") && strings.HasSuffix(name, ".wav") {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				slog.Warn("controller: failed to remove stale recording", "file", name, "error", err)
			}
		}
	}
}

// Run processes commands to completion, one at a time, until ctx is
// cancelled. This is the Controller's dedicated thread: every suspension
// point (channel receive, audio stop, network I/O, local-model inference,
// clipboard ops, keystroke synthesis) happens here because the audio
// stream handle is not transferable across goroutines.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-c.commands:
			if !ok {
				return
			}
			c.handle(ctx, cmd)
		}
	}
}

func (c *Controller) handle(ctx context.Context, cmd recording.Command) {
	result := c.machine.Transition(cmd)
	if !result.Changed {
		return // rejected: already logged by the state machine
	}
	if !result.HasAction {
		return // TranscriptionComplete/TranscriptionFailed only return to Ready
	}

	switch result.Action {
	case recording.ActionStartRecording:
		c.doStart()
	case recording.ActionStopAndTranscribe:
		c.doStopAndTranscribe(ctx)
	case recording.ActionCancelRecording:
		c.doCancel()
	case recording.ActionRetryTranscription:
		c.doRetry(ctx)
	}
}

func (c *Controller) recordingPath() string {
	return filepath.Join(c.cacheDir, fmt.Sprintf("recording_%d.wav", time.Now().Unix()))
}

// doStart implements the StartRecording action. Invariant (i): Started is
// emitted before the OS audio stream is polled — the popup-open step is
// omitted here (headless core), so Started is simply emitted first.
func (c *Controller) doStart() {
	c.emitState(uievents.RecordingStateChanged{State: uievents.RecordingStarted})

	path := c.recordingPath()
	if err := c.capture.StartRecording(path, ""); err != nil {
		c.runErrorPipeline(newActionError(KindDevice, err))
		return
	}
}

// doStopAndTranscribe implements StopAndTranscribe.
func (c *Controller) doStopAndTranscribe(ctx context.Context) {
	res := c.capture.StopRecording()
	speechMs := int(float64(res.SpeechSamples) / float64(recordingSampleRate) * 1000)

	if speechMs < c.minSpeechMs {
		c.cleanupFile(res.FilePath)
		c.runErrorPipeline(newActionError(KindNoSpeech, nil))
		return
	}

	// Invariant (ii): Transcribing is emitted before any network or model
	// call begins.
	c.emitState(uievents.RecordingStateChanged{State: uievents.RecordingTranscribing})
	c.transcribeAndFinish(ctx, res.FilePath, speechMs)
}

// transcribeAndFinish runs the shared success/failure tail for both
// StopAndTranscribe and RetryTranscription.
func (c *Controller) transcribeAndFinish(ctx context.Context, path string, speechMs int) {
	service, err := c.newService()
	if err != nil {
		c.runErrorPipeline(newActionError(KindCredentials, err).withAudioFile(path))
		return
	}

	text, err := service.Transcribe(ctx, path, speechMs)
	if err != nil {
		c.runErrorPipeline(fromTranscriptionError(err).withAudioFile(path))
		return
	}
	if text == "" {
		// The service returns "" for audio too short to transcribe.
		c.cleanupFile(path)
		c.runErrorPipeline(newActionError(KindNoSpeech, nil))
		return
	}

	// Invariant (iii): Stopped{text} implies the paste has completed and
	// the file is deleted.
	c.paster.Paste(text)
	c.cleanupFile(path)
	c.last = lastRecording{text: text, audioFilePath: ""}
	c.machine.Transition(recording.CmdTranscriptionComplete)
	c.emitState(uievents.RecordingStateChanged{State: uievents.RecordingStopped, Text: text})
}

// doCancel implements CancelRecording.
func (c *Controller) doCancel() {
	res := c.capture.StopRecording()
	c.cleanupFile(res.FilePath)
	c.emitState(uievents.RecordingStateChanged{State: uievents.RecordingCancelled})
}

// doRetry implements RetryTranscription: re-enters the transcribe branch
// using the remembered file, estimating duration from its size since the
// original speech-sample count is gone.
func (c *Controller) doRetry(ctx context.Context) {
	path := c.last.audioFilePath
	if path == "" {
		c.machine.Reset()
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		c.runErrorPipeline(newActionError(KindIO, err))
		return
	}

	c.emitState(uievents.RecordingStateChanged{State: uievents.RecordingTranscribing})
	c.transcribeAndFinish(ctx, path, transcription.EstimateSpeechMs(info.Size()))
}

// runErrorPipeline is the Controller's single, uniform failure path:
// reset the state machine, clear retry text, keep (or clear) the retry
// file path, and emit a typed Error event. Invariant (iv): this never
// fires for a transcription failure before Transcribing was already
// emitted for that attempt, because doStopAndTranscribe/doRetry emit it
// first.
func (c *Controller) runErrorPipeline(err *ActionError) {
	c.machine.Reset()
	c.last = lastRecording{audioFilePath: err.AudioFilePath}

	slog.Error("controller: action failed", "kind", err.Kind, "error", err.Error())
	c.emitState(uievents.RecordingStateChanged{
		State:         uievents.RecordingError,
		ErrorType:     string(err.Kind),
		ErrorMessage:  err.Error(),
		UserMessage:   err.UserMessage,
		AudioFilePath: err.AudioFilePath,
	})
}

func (c *Controller) cleanupFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("controller: failed to remove recording file", "path", path, "error", err)
	}
}

func (c *Controller) emitState(payload uievents.RecordingStateChanged) {
	c.sink.Emit(uievents.Event{Name: uievents.NameRecordingStateChanged, Payload: payload})
}
