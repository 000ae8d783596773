package controller

import (
	"errors"
	"fmt"
	"strings"

	"dictationd/transcription"
)

// ErrorKind is the taxonomy the Controller surfaces to the UI; it's a
// superset of transcription.ErrorKind, covering permission, device,
// no-speech, and clipboard failures that never reach the transcription
// package.
type ErrorKind string

const (
	KindPermission    ErrorKind = "permission"
	KindDevice        ErrorKind = "device"
	KindIO            ErrorKind = "io"
	KindAudioFormat   ErrorKind = "audio_format"
	KindAPI           ErrorKind = "transcription_api"
	KindCredentials   ErrorKind = "credentials_missing"
	KindModel         ErrorKind = "model"
	KindNoSpeech      ErrorKind = "no_speech"
	KindClipboard     ErrorKind = "clipboard"
)

// ActionError is what every Controller action path converts its failures
// to before the error pipeline runs. AudioFilePath, if set, survives the
// reset so a later RetryTranscription command can find the file.
type ActionError struct {
	Kind          ErrorKind
	UserMessage   string
	AudioFilePath string
	cause         error
}

func (e *ActionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *ActionError) Unwrap() error { return e.cause }

// newActionError wraps cause with kind and a pre-derived user message.
func newActionError(kind ErrorKind, cause error) *ActionError {
	return &ActionError{Kind: kind, UserMessage: userMessage(kind, cause), cause: cause}
}

// withAudioFile attaches a retry path to an ActionError.
func (e *ActionError) withAudioFile(path string) *ActionError {
	e.AudioFilePath = path
	return e
}

// fromTranscriptionError maps a transcription.Error to the Controller's
// wider taxonomy, extracting the 401/429 special cases for wording.
func fromTranscriptionError(err error) *ActionError {
	var te *transcription.Error
	if !errors.As(err, &te) {
		return newActionError(KindAPI, err)
	}

	switch te.Kind {
	case transcription.ErrAPIKeyMissing:
		return newActionError(KindCredentials, err)
	case transcription.ErrNoModelSelected, transcription.ErrModelNotFound,
		transcription.ErrModelNotDownloaded, transcription.ErrModelLoadFailed:
		return newActionError(KindModel, err)
	case transcription.ErrFileNotFound, transcription.ErrFileTooLarge, transcription.ErrIO:
		return newActionError(KindIO, err)
	case transcription.ErrLocalTranscriptionFailed:
		return newActionError(KindModel, err)
	default:
		return newActionError(KindAPI, err)
	}
}

// userMessage derives the mapping-table wording the spec calls for,
// special-casing 401/429 substrings from the underlying API error text.
func userMessage(kind ErrorKind, cause error) string {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	switch kind {
	case KindPermission:
		return "dictationd needs Accessibility and Microphone permission to work. Check System Settings."
	case KindDevice:
		return "No microphone could be opened. Check your audio input device."
	case KindIO:
		return "A file operation failed. Check available disk space and permissions."
	case KindAudioFormat:
		return "The recorded audio was in an unexpected format."
	case KindAPI:
		if strings.Contains(msg, "401") {
			return "Your API key was rejected. Check your credentials."
		}
		if strings.Contains(msg, "429") {
			return "Rate limited by the transcription provider. Try again shortly."
		}
		return "Transcription failed. Check your network connection and try again."
	case KindCredentials:
		return "No API key is configured for the selected provider."
	case KindModel:
		return "The local transcription model could not be loaded."
	case KindNoSpeech:
		return "No speech was detected."
	case KindClipboard:
		return "Could not paste the transcript. It's still on your clipboard."
	default:
		return "Something went wrong."
	}
}
