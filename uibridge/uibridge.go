// Package uibridge is the only place a Wails application handle is ever
// touched: a thin uievents.Sink that forwards Controller events to the
// optional GUI frontend.
package uibridge

import (
	"dictationd/uievents"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// WailsSink emits every event through a Wails application's event bus, the
// same application.App.Event.Emit pattern the rest of this codebase's GUI
// layer uses.
type WailsSink struct {
	app *application.App
}

// New binds a WailsSink to app. app must not be nil.
func New(app *application.App) *WailsSink {
	return &WailsSink{app: app}
}

// Emit implements uievents.Sink.
func (s *WailsSink) Emit(e uievents.Event) {
	s.app.Event.Emit(e.Name, e.Payload)
}
