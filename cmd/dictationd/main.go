// Command dictationd is the headless push-to-talk dictation daemon: it
// taps the keyboard, drives the recording state machine, transcribes
// through whichever backend is configured, and pastes the result at the
// focused cursor. It has no window of its own; uibridge attaches a GUI's
// event stream as an optional extra sink.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"dictationd/config"
	"dictationd/controller"
	"dictationd/keylistener"
	"dictationd/keytap"
	"dictationd/modelloader"
	"dictationd/paste"
	"dictationd/permissions"
	"dictationd/secretstore"
	"dictationd/transcription"
	"dictationd/uievents"
	"dictationd/vad"

	"dictationd/audio"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("dictationd: fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	store, err := config.NewStore()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	perms := permissions.New()
	if !perms.AllGranted() {
		slog.Warn("dictationd: permissions not fully granted",
			"accessibility", perms.CheckAccessibility(), "microphone", perms.CheckMicrophone())
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return fmt.Errorf("resolve cache dir: %w", err)
	}
	cacheDir = filepath.Join(cacheDir, "dictationd")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	sink := uievents.Sink(uievents.NullSink{})

	capture, err := buildCapture(cacheDir)
	if err != nil {
		return fmt.Errorf("build audio capture: %w", err)
	}
	if err := capture.Start(); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	defer capture.Stop()

	secrets := secretstore.New()
	catalog, err := modelloader.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load model catalog: %w", err)
	}
	loader := modelloader.NewLoader(catalog, filepath.Join(cacheDir, "models"), func(e modelloader.Event) {
		slog.Info("dictationd: model load event", "kind", e.Kind, "model", e.Model, "error", e.Err)
	})
	loader.SetUnloadTimeout(0)

	backendFactory := func() (controller.Transcriber, error) {
		return newBackend(store, secrets, loader)
	}

	paster := paste.New()

	listener := keylistener.New(store.Shortcuts(), sink)

	ctrl, err := controller.New(capture, backendFactory, paster, sink, cacheDir, store.App().MinSpeechDurationMs, listener.Commands())
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}

	keytap.SetHandler(func(e keytap.Event) bool {
		return listener.HandleEvent(e.Keycode, e.Down, e.IsRepeat)
	})
	if err := keytap.Start(); err != nil {
		return fmt.Errorf("start key tap (%w) — grant Accessibility permission and retry", err)
	}
	defer keytap.Stop()

	poller := permissions.NewPoller(perms, keytap.Stop)
	poller.Start()
	defer poller.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("dictationd: ready", "trigger", store.App().RecordingTrigger, "provider", store.App().ActiveProvider)
	ctrl.Run(ctx)
	return nil
}

// buildCapture wires AudioCapture to the VAD pipeline: a Silero-family ONNX
// detector smoothed by onset/hangover/prefill hysteresis, behind
// audio.FrameClassifier.
func buildCapture(cacheDir string) (*audio.Capture, error) {
	if err := vad.InitRuntime(""); err != nil {
		return nil, err
	}
	modelPath := filepath.Join(cacheDir, "models", "silero_vad.onnx")
	detector, err := vad.NewDetector(modelPath, vad.DefaultThreshold)
	if err != nil {
		return nil, fmt.Errorf("load vad model at %s: %w", modelPath, err)
	}
	classifier := vad.NewSmoothed(detector, vad.DefaultConfig())
	return audio.NewCapture(classifier), nil
}

// newBackend resolves the Transcriber for the currently configured
// provider, read fresh on every call so a provider switch in the running
// app takes effect on the next recording.
func newBackend(store *config.Store, secrets *secretstore.Store, loader *modelloader.Loader) (controller.Transcriber, error) {
	app := store.App()
	minSpeech := transcription.MinSpeechDuration{Ms: app.MinSpeechDurationMs}

	var postProc *transcription.PostProcessor
	if app.PostProcessEnabled {
		cred, err := secrets.GetOpenAI()
		if err == nil && cred.APIKey != "" {
			postProc = transcription.NewPostProcessor(cred.APIKey, "https://api.openai.com/v1/responses", app.PostProcessModel, app.PostProcessPrompt)
		}
	}

	var backend transcription.Backend
	switch app.ActiveProvider {
	case config.ProviderOpenAI:
		cred, err := secrets.GetOpenAI()
		if err != nil || cred.APIKey == "" {
			return nil, &transcription.Error{Kind: transcription.ErrAPIKeyMissing}
		}
		backend = transcription.NewOpenAIBackend(cred.APIKey)
	case config.ProviderAzure:
		cred, err := secrets.GetAzure()
		if err != nil || cred.APIKey == "" {
			return nil, &transcription.Error{Kind: transcription.ErrAPIKeyMissing}
		}
		backend = transcription.NewAzureBackend(cred.APIKey, cred.Endpoint)
	case config.ProviderLocal:
		local := store.LocalModel()
		if local.SelectedModel == nil || *local.SelectedModel == "" {
			return nil, &transcription.Error{Kind: transcription.ErrNoModelSelected}
		}
		backend = transcription.NewLocalBackend(loader, *local.SelectedModel, "auto")
	default:
		return nil, &transcription.Error{Kind: transcription.ErrAPIKeyMissing}
	}

	return transcription.NewService(backend, minSpeech, postProc), nil
}
