package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dictationd/audio"
	"dictationd/modelloader"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// LocalBackend runs transcription in-process against the catalog model it
// is bound to, through the given Loader, reading the WAV file back into
// float32 samples via audio.ReadWAV.
type LocalBackend struct {
	loader   *modelloader.Loader
	model    string
	language string
}

// NewLocalBackend builds a backend bound to a specific catalog model name.
// language accepts either a whisper language code or a display name (as the
// UI's language picker would show); it's normalized through
// GetLanguageCode so either form works. EnsureLoaded is called lazily on
// first Transcribe, not here, so construction never blocks on disk or
// model initialization.
func NewLocalBackend(loader *modelloader.Loader, model, language string) *LocalBackend {
	return &LocalBackend{loader: loader, model: model, language: GetLanguageCode(language)}
}

// Transcribe implements Backend. It requires wavPath to be 16kHz mono
// 16-bit PCM, the only format the capture pipeline ever produces.
func (b *LocalBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if b.model == "" {
		return "", &Error{Kind: ErrNoModelSelected}
	}
	if !b.loader.IsDownloaded(b.model) {
		return "", &Error{Kind: ErrModelNotDownloaded, Name: b.model}
	}

	samples, err := audio.ReadWAV(wavPath)
	if err != nil {
		return "", &Error{Kind: ErrIO, Message: err.Error()}
	}

	var segments []whisper.Segment
	onSegment := func(s whisper.Segment) { segments = append(segments, s) }

	// TranscribeWithModel re-verifies under lock that b.model is still the
	// loaded model immediately before inferring, so a concurrent load of a
	// different model between EnsureLoaded and this point is caught rather
	// than silently transcribing against the wrong model.
	err = b.loader.TranscribeWithModel(b.model, func(whisperCtx whisper.Context) error {
		if err := whisperCtx.SetLanguage(b.language); err != nil {
			return err
		}
		if err := whisperCtx.Process(samples, nil, onSegment, nil); err != nil {
			return fmt.Errorf("process audio: %w", err)
		}
		return nil
	})
	if errors.Is(err, modelloader.ErrModelChanged) {
		return "", &Error{Kind: ErrModelLoadFailed, Message: err.Error()}
	}
	if err != nil {
		return "", &Error{Kind: ErrLocalTranscriptionFailed, Message: err.Error()}
	}

	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.Text)
		sb.WriteString(" ")
	}
	_ = ctx // local inference is not itself cancellable mid-call
	return strings.TrimSpace(sb.String()), nil
}
