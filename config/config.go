// Package config persists the five JSON-on-disk configuration shapes
// under the user's config directory, one file per concern, following the
// same read-modify-write-under-mutex pattern used throughout this
// codebase's other persisted state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// dirName is the subdirectory of the OS user-config directory these files
// live under.
const dirName = "dictationd"

// Dir returns (and creates) the per-user config directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	dir := filepath.Join(base, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("config: create config dir %s: %w", dir, err)
	}
	return dir, nil
}

// fileStore loads and saves one JSON file under Dir(), guarded by a mutex.
// Unknown keys are ignored and missing keys default to the zero value by
// encoding/json's normal unmarshal behavior; callers apply their own
// defaulting on top where zero isn't a sensible default.
type fileStore[T any] struct {
	mu       sync.RWMutex
	path     string
	value    T
}

func newFileStore[T any](filename string, zero T) (*fileStore[T], error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	s := &fileStore[T]{path: filepath.Join(dir, filename), value: zero}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load %s: %w", filename, err)
	}
	return s, nil
}

func (s *fileStore[T]) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Unmarshal(data, &s.value)
}

func (s *fileStore[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *fileStore[T]) Set(v T) error {
	s.mu.Lock()
	s.value = v
	data, err := json.MarshalIndent(v, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", s.path, err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// Provider names the active transcription backend in AppConfig.
type Provider string

const (
	ProviderOpenAI Provider = "openAi"
	ProviderAzure  Provider = "azureOpenAi"
	ProviderLocal  Provider = "local"
)

// RecordingTrigger names the physical key appConfig.recordingTrigger binds
// to by default (the shortcut itself lives in ShortcutsConfig).
type RecordingTrigger string

const (
	TriggerFn      RecordingTrigger = "fn"
	TriggerControl RecordingTrigger = "control"
	TriggerOption  RecordingTrigger = "option"
	TriggerCommand RecordingTrigger = "command"
)

// AppConfig is the top-level application configuration.
type AppConfig struct {
	ActiveProvider            Provider         `json:"activeProvider"`
	RecordingTrigger          RecordingTrigger `json:"recordingTrigger"`
	AutostartInitialSetupDone bool             `json:"autostartInitialSetupDone"`
	PostProcessEnabled        bool             `json:"postProcessEnabled"`
	PostProcessModel          string           `json:"postProcessModel"`
	PostProcessPrompt         string           `json:"postProcessPrompt"`
	MinSpeechDurationMs       int              `json:"minSpeechDurationMs"`
}

// WithDefaults fills zero-valued fields with their documented defaults.
func (c AppConfig) WithDefaults() AppConfig {
	if c.RecordingTrigger == "" {
		c.RecordingTrigger = TriggerFn
	}
	switch {
	case c.MinSpeechDurationMs <= 0:
		c.MinSpeechDurationMs = 500
	case c.MinSpeechDurationMs < 100:
		c.MinSpeechDurationMs = 100
	case c.MinSpeechDurationMs > 10000:
		c.MinSpeechDurationMs = 10000
	}
	return c
}

// OnboardingStep enumerates first-run wizard steps.
type OnboardingStep string

const (
	StepWelcome        OnboardingStep = "welcome"
	StepPermissions    OnboardingStep = "permissions"
	StepProvider       OnboardingStep = "provider"
	StepShortcuts      OnboardingStep = "shortcuts"
	StepDone           OnboardingStep = "done"
)

// OnboardingConfig tracks first-run wizard progress.
type OnboardingConfig struct {
	Finished       bool           `json:"finished"`
	CurrentStep    OnboardingStep `json:"currentStep"`
	PendingRestart bool           `json:"pendingRestart"`
}

// LocalModelConfig records which local model is selected.
type LocalModelConfig struct {
	SelectedModel *string `json:"selectedModel"`
}

// TelemetryConfig tracks the anonymous per-install identifier and opt-in.
type TelemetryConfig struct {
	DeviceID          string `json:"deviceId"`
	TelemetryEnabled  bool   `json:"telemetryEnabled"`
	LastSessionStart  *int64 `json:"lastSessionStart"`
}

// Store bundles all five persisted config stores behind one handle.
type Store struct {
	app       *fileStore[AppConfig]
	onboard   *fileStore[OnboardingConfig]
	shortcuts *fileStore[shortcutsConfigFile]
	localModel *fileStore[LocalModelConfig]
	telemetry *fileStore[TelemetryConfig]
}

// shortcutsConfigFile avoids importing the shortcut package's Config type
// name collision and keeps this package import-light; the concrete type is
// defined alongside it in shortcuts.go.

// NewStore loads (or initializes) all five config files.
func NewStore() (*Store, error) {
	app, err := newFileStore("app.json", AppConfig{})
	if err != nil {
		return nil, err
	}
	onboard, err := newFileStore("onboarding.json", OnboardingConfig{CurrentStep: StepWelcome})
	if err != nil {
		return nil, err
	}
	shortcuts, err := newFileStore("shortcuts.json", defaultShortcutsConfigFile())
	if err != nil {
		return nil, err
	}
	localModel, err := newFileStore("local_model.json", LocalModelConfig{})
	if err != nil {
		return nil, err
	}
	telemetry, err := newFileStore("telemetry.json", TelemetryConfig{DeviceID: uuid.NewString(), TelemetryEnabled: true})
	if err != nil {
		return nil, err
	}
	// A freshly-initialized telemetry file with no prior deviceId still
	// needs one generated and persisted once.
	if telemetry.Get().DeviceID == "" {
		v := telemetry.Get()
		v.DeviceID = uuid.NewString()
		if err := telemetry.Set(v); err != nil {
			return nil, err
		}
	}

	return &Store{app: app, onboard: onboard, shortcuts: shortcuts, localModel: localModel, telemetry: telemetry}, nil
}

func (s *Store) App() AppConfig                  { return s.app.Get().WithDefaults() }
func (s *Store) SetApp(c AppConfig) error         { return s.app.Set(c) }
func (s *Store) Onboarding() OnboardingConfig     { return s.onboard.Get() }
func (s *Store) SetOnboarding(c OnboardingConfig) error { return s.onboard.Set(c) }
func (s *Store) LocalModel() LocalModelConfig     { return s.localModel.Get() }
func (s *Store) SetLocalModel(c LocalModelConfig) error { return s.localModel.Set(c) }
func (s *Store) Telemetry() TelemetryConfig       { return s.telemetry.Get() }
func (s *Store) SetTelemetry(c TelemetryConfig) error { return s.telemetry.Set(c) }
