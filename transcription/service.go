// Package transcription implements the polymorphic transcription backend:
// two remote HTTP dialects and a local in-process neural model, behind a
// single Transcribe contract, plus an optional best-effort post-processor.
package transcription

import (
	"context"
	"fmt"
	"os"
	"time"
)

// MaxFileBytes is the pre-call file-size ceiling (25 MiB).
const MaxFileBytes = 25 * 1024 * 1024

// DefaultRequestTimeout bounds every HTTP transcription call.
const DefaultRequestTimeout = 10 * time.Second

// ErrorKind tags a TranscriptionError for UI-facing dispatch.
type ErrorKind int

const (
	ErrFileTooLarge ErrorKind = iota
	ErrFileNotFound
	ErrAPI
	ErrIO
	ErrAPIKeyMissing
	ErrTimeout
	ErrNoModelSelected
	ErrModelNotFound
	ErrModelNotDownloaded
	ErrModelLoadFailed
	ErrLocalTranscriptionFailed
)

// Error is the tagged transcription error described by the error taxonomy.
// Every variant carries enough detail to build a user-facing message.
type Error struct {
	Kind       ErrorKind
	Bytes      int64  // FileTooLarge
	Message    string // ApiError, ModelLoadFailed, LocalTranscriptionFailed
	Name       string // ModelNotFound, ModelNotDownloaded
	Seconds    int    // TranscriptionTimeout
	HTTPStatus int    // ApiError: distinguishes 401 for credential-test flows
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrFileTooLarge:
		return fmt.Sprintf("audio file too large: %d bytes", e.Bytes)
	case ErrFileNotFound:
		return "audio file not found"
	case ErrAPI:
		return fmt.Sprintf("transcription API error (status %d): %s", e.HTTPStatus, e.Message)
	case ErrIO:
		return fmt.Sprintf("io error: %s", e.Message)
	case ErrAPIKeyMissing:
		return "no API key configured"
	case ErrTimeout:
		return fmt.Sprintf("transcription timed out after %ds", e.Seconds)
	case ErrNoModelSelected:
		return "no local model selected"
	case ErrModelNotFound:
		return fmt.Sprintf("model %q not found in catalog", e.Name)
	case ErrModelNotDownloaded:
		return fmt.Sprintf("model %q is not downloaded", e.Name)
	case ErrModelLoadFailed:
		return fmt.Sprintf("failed to load model: %s", e.Message)
	case ErrLocalTranscriptionFailed:
		return fmt.Sprintf("local transcription failed: %s", e.Message)
	default:
		return "transcription error"
	}
}

// IsUnauthorized reports whether the error is an HTTP 401 from a remote
// backend, used to drive the credential-test flow in the UI.
func (e *Error) IsUnauthorized() bool { return e.Kind == ErrAPI && e.HTTPStatus == 401 }

// Backend is the capability every transcription variant implements.
type Backend interface {
	Transcribe(ctx context.Context, wavPath string) (text string, err error)
}

// MinSpeechDuration is the configured floor below which audio is treated as
// "no speech" rather than sent to a backend; clamped to [100ms, 10s].
type MinSpeechDuration struct {
	Ms int
}

// Clamp returns d clamped to the allowed range, defaulting to 500ms if d<=0.
func (d MinSpeechDuration) Clamp() int {
	switch {
	case d.Ms <= 0:
		return 500
	case d.Ms < 100:
		return 100
	case d.Ms > 10000:
		return 10000
	default:
		return d.Ms
	}
}

// Service wraps a Backend with the common pre-call validation every variant
// shares: file existence, size ceiling, and the voiced-duration floor.
type Service struct {
	backend    Backend
	minSpeech  MinSpeechDuration
	postProc   *PostProcessor // optional, may be nil
}

// NewService builds a Service around backend. postProc may be nil.
func NewService(backend Backend, minSpeech MinSpeechDuration, postProc *PostProcessor) *Service {
	return &Service{backend: backend, minSpeech: minSpeech, postProc: postProc}
}

// Transcribe validates wavPath and speechMs, then dispatches to the
// backend. Too-short audio returns ("", nil): the Controller surfaces that
// as a "no speech" outcome rather than a hard error.
func (s *Service) Transcribe(ctx context.Context, wavPath string, speechMs int) (string, error) {
	info, err := os.Stat(wavPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &Error{Kind: ErrFileNotFound}
		}
		return "", &Error{Kind: ErrIO, Message: err.Error()}
	}
	if info.Size() > MaxFileBytes {
		return "", &Error{Kind: ErrFileTooLarge, Bytes: info.Size()}
	}
	if speechMs < s.minSpeech.Clamp() {
		return "", nil
	}

	text, err := s.backend.Transcribe(ctx, wavPath)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", nil
	}

	text = FilterTranscriptionOutput(text, DefaultFilterConfig())
	if s.postProc != nil {
		text = s.postProc.Process(ctx, text)
	}
	return text, nil
}

// EstimateSpeechMs estimates voiced duration from a WAV file's byte size,
// used by RetryTranscription when the original speech-sample count is no
// longer available: 16kHz * 1 channel * 16-bit = 32000 bytes/sec.
func EstimateSpeechMs(fileBytes int64) int {
	const bytesPerSecond = 32000
	return int(fileBytes * 1000 / bytesPerSecond)
}
