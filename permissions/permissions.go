// Package permissions checks and requests macOS Accessibility and
// Microphone authorization, and runs the poller that watches Accessibility
// for revocation while a KeyTap is active.
package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AVFoundation -framework ApplicationServices

#import <Cocoa/Cocoa.h>
#import <AVFoundation/AVFoundation.h>
#import <ApplicationServices/ApplicationServices.h>

// Check if the application has accessibility permissions
int checkAccessibilityPermission() {
    // AXIsProcessTrusted returns true if the app has accessibility permissions
    return AXIsProcessTrusted() ? 1 : 0;
}

// Open System Preferences to Accessibility pane
void openAccessibilitySettings() {
    NSURL *url = [NSURL URLWithString:@"x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility"];
    [[NSWorkspace sharedWorkspace] openURL:url];
}

// Check microphone permission status
// Returns: 0 = not determined, 1 = denied, 2 = authorized, 3 = restricted
int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    switch (status) {
        case AVAuthorizationStatusNotDetermined:
            return 0;
        case AVAuthorizationStatusDenied:
            return 1;
        case AVAuthorizationStatusAuthorized:
            return 2;
        case AVAuthorizationStatusRestricted:
            return 3;
        default:
            return 0;
    }
}

// Request microphone permission - this will trigger the system dialog
void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {
        // Callback is handled asynchronously, we don't need to do anything here
        // The frontend will poll for status changes
    }];
}

// Open System Preferences to Microphone pane
void openMicrophoneSettings() {
    NSURL *url = [NSURL URLWithString:@"x-apple.systempreferences:com.apple.preference.security?Privacy_Microphone"];
    [[NSWorkspace sharedWorkspace] openURL:url];
}
*/
import "C"

import (
	"log/slog"
	"sync"
	"time"
)

// PermissionStatus represents the state of a permission.
type PermissionStatus string

const (
	StatusUnknown    PermissionStatus = "unknown"
	StatusGranted    PermissionStatus = "granted"
	StatusDenied     PermissionStatus = "denied"
	StatusNotAsked   PermissionStatus = "not_asked"
	StatusRestricted PermissionStatus = "restricted"
)

// State holds the current state of both permissions this app needs.
type State struct {
	Accessibility PermissionStatus `json:"accessibility"`
	Microphone    PermissionStatus `json:"microphone"`
}

// Service checks and requests macOS permissions through the Cocoa/
// AVFoundation bridge above.
type Service struct{}

// New returns a Service. It holds no state: every call re-checks the OS.
func New() *Service { return &Service{} }

// CheckAccessibility checks if accessibility permission is granted.
func (s *Service) CheckAccessibility() PermissionStatus {
	if C.checkAccessibilityPermission() == 1 {
		return StatusGranted
	}
	return StatusDenied
}

// CheckMicrophone checks the microphone permission status.
func (s *Service) CheckMicrophone() PermissionStatus {
	switch C.checkMicrophonePermission() {
	case 0:
		return StatusNotAsked
	case 1:
		return StatusDenied
	case 2:
		return StatusGranted
	case 3:
		return StatusRestricted
	default:
		return StatusUnknown
	}
}

// State returns the current state of both permissions.
func (s *Service) State() State {
	return State{
		Accessibility: s.CheckAccessibility(),
		Microphone:    s.CheckMicrophone(),
	}
}

// AllGranted reports whether both permissions are granted.
func (s *Service) AllGranted() bool {
	st := s.State()
	return st.Accessibility == StatusGranted && st.Microphone == StatusGranted
}

// OpenAccessibilitySettings opens System Settings to the Accessibility pane.
func (s *Service) OpenAccessibilitySettings() { C.openAccessibilitySettings() }

// RequestMicrophonePermission triggers the system microphone permission
// dialog.
func (s *Service) RequestMicrophonePermission() { C.requestMicrophonePermission() }

// OpenMicrophoneSettings opens System Settings to the Microphone pane.
func (s *Service) OpenMicrophoneSettings() { C.openMicrophoneSettings() }

// pollInterval is how often the Poller re-checks Accessibility while armed.
const pollInterval = 200 * time.Millisecond

// Poller watches Accessibility authorization at a fixed interval while a
// KeyTap is running, and calls onRevoked exactly once if it disappears. It
// does nothing on its own to stop the tap: the caller supplies that as
// onRevoked so this package stays independent of keytap.
type Poller struct {
	svc       *Service
	onRevoked func()

	mu   sync.Mutex
	stop chan struct{}
}

// NewPoller binds a Poller to svc. onRevoked is invoked from the poller's
// own goroutine, at most once per Start/Stop cycle.
func NewPoller(svc *Service, onRevoked func()) *Poller {
	return &Poller{svc: svc, onRevoked: onRevoked}
}

// Start arms the poller if it isn't already running. Safe to call from any
// goroutine.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	stop := make(chan struct{})
	p.stop = stop
	go p.run(stop)
}

// Stop disarms the poller. Safe to call even if it was never started, or
// to call twice.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return
	}
	close(p.stop)
	p.stop = nil
}

func (p *Poller) run(stop chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if p.svc.CheckAccessibility() != StatusGranted {
				slog.Warn("permissions: accessibility revoked, stopping key tap")
				p.onRevoked()
				return
			}
		}
	}
}
