// Package keytap taps the macOS HID event stream below the window server
// and reports every raw key transition to Go, suppressing events the
// caller claims as part of a shortcut. Unlike a fixed two-hotkey design,
// it has no notion of "the" shortcut: keylistener decides what to do with
// the stream of (keycode, down/up) pairs this package hands it.
package keytap

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>

extern int goOnKeyEvent(int keycode, int down, int isRepeat);
extern int goCheckAccessibilityForTap();

static CFMachPortRef eventTap = NULL;
static CFRunLoopSourceRef runLoopSource = NULL;

// runLoop is the run loop the tap's source was added to: this process has
// no Cocoa NSApplication pumping CFRunLoopGetMain for us, so Start runs its
// own on a dedicated, OS-thread-locked goroutine and stopTapC tears it down
// from any other thread via CFRunLoopStop.
static CFRunLoopRef runLoop = NULL;

// Modifier keycodes report through flagsChanged, not keyDown/keyUp; derive
// up/down by comparing against the flag state of the previous event.
static uint64_t lastFlags = 0;

static int modifierKeycode(CGEventFlags flags, CGEventFlags changed) {
    if (changed & kCGEventFlagMaskShift) return 0x38;
    if (changed & kCGEventFlagMaskControl) return 0x3B;
    if (changed & kCGEventFlagMaskAlternate) return 0x3A;
    if (changed & kCGEventFlagMaskCommand) return 0x37;
    if (changed & kCGEventFlagMaskSecondaryFn) return 0x3F;
    return -1;
}

static CGEventRef eventCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
    if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
        // Only re-enable if Accessibility is still granted; otherwise stop
        // the run loop instead of re-enabling into a tap that will just be
        // immediately disabled again (or busy-looping on every subsequent
        // timeout).
        if (goCheckAccessibilityForTap()) {
            CGEventTapEnable(eventTap, true);
        } else if (runLoop) {
            CFRunLoopStop(runLoop);
        }
        return event;
    }

    if (type == kCGEventFlagsChanged) {
        CGEventFlags flags = CGEventGetFlags(event);
        CGEventFlags changed = flags ^ lastFlags;
        lastFlags = flags;
        int code = modifierKeycode(flags, changed);
        if (code < 0) {
            return event;
        }
        int down = (flags & changed) == changed && (flags != 0);
        // down/up for a modifier toggle: the bit just went from 0->1 (down) or 1->0 (up).
        CGEventFlags maskForCode = 0;
        switch (code) {
            case 0x38: maskForCode = kCGEventFlagMaskShift; break;
            case 0x3B: maskForCode = kCGEventFlagMaskControl; break;
            case 0x3A: maskForCode = kCGEventFlagMaskAlternate; break;
            case 0x37: maskForCode = kCGEventFlagMaskCommand; break;
            case 0x3F: maskForCode = kCGEventFlagMaskSecondaryFn; break;
        }
        down = (flags & maskForCode) != 0;

        int suppress = goOnKeyEvent(code, down, 0);
        return suppress ? NULL : event;
    }

    if (type != kCGEventKeyDown && type != kCGEventKeyUp) {
        return event;
    }

    CGKeyCode keyCode = (CGKeyCode)CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
    int64_t isRepeat = CGEventGetIntegerValueField(event, kCGKeyboardEventAutorepeat);
    int down = (type == kCGEventKeyDown) ? 1 : 0;

    int suppress = goOnKeyEvent((int)keyCode, down, (int)isRepeat);
    return suppress ? NULL : event;
}

static void stopTapC() {
    if (eventTap) {
        CGEventTapEnable(eventTap, false);
    }
    if (runLoop) {
        CFRunLoopStop(runLoop);
    }
}

static int startTapC() {
    if (eventTap != NULL) return 0;

    CGEventMask eventMask = CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp) | CGEventMaskBit(kCGEventFlagsChanged);
    eventTap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap, 0, eventMask, eventCallback, NULL);
    if (!eventTap) {
        return -1;
    }
    runLoopSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, eventTap, 0);
    runLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(runLoop, runLoopSource, kCFRunLoopCommonModes);
    CGEventTapEnable(eventTap, true);
    return 0;
}

// runLoopC blocks, pumping the run loop the tap's source lives on, until
// stopTapC calls CFRunLoopStop. Must run on the same OS thread startTapC
// ran on.
static void runLoopC() {
    CFRunLoopRun();
    if (runLoopSource) {
        CFRunLoopRemoveSource(runLoop, runLoopSource, kCFRunLoopCommonModes);
        CFRelease(runLoopSource);
        runLoopSource = NULL;
    }
    if (eventTap) {
        CFRelease(eventTap);
        eventTap = NULL;
    }
    runLoop = NULL;
    lastFlags = 0;
}
*/
import "C"

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"dictationd/permissions"
)

// Event is one physical key transition observed on the tap.
type Event struct {
	Keycode  uint32
	Down     bool
	IsRepeat bool
}

// Handler decides whether an event should be suppressed (removed from the
// stream before other applications see it). Called synchronously from the
// C callback, so it must not block.
type Handler func(Event) (suppress bool)

// perms backs goCheckAccessibilityForTap's re-enable check; stateless, so
// one package-level instance is as good as constructing one per call.
var perms = permissions.New()

var (
	mu      sync.Mutex
	handler Handler
)

// SetHandler installs the callback invoked for every tap event. Must be
// called before Start.
func SetHandler(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handler = h
}

//export goCheckAccessibilityForTap
func goCheckAccessibilityForTap() C.int {
	if perms.CheckAccessibility() == permissions.StatusGranted {
		return 1
	}
	return 0
}

//export goOnKeyEvent
func goOnKeyEvent(keycode C.int, down C.int, isRepeat C.int) C.int {
	mu.Lock()
	h := handler
	mu.Unlock()
	if h == nil {
		return 0
	}
	suppress := h(Event{Keycode: uint32(keycode), Down: down != 0, IsRepeat: isRepeat != 0})
	if suppress {
		return 1
	}
	return 0
}

// Start installs the event tap and runs its run loop on a dedicated,
// OS-thread-locked goroutine until Stop is called. Requires Accessibility
// permission; returns an error if CGEventTapCreate fails, which almost
// always means permission was denied.
func Start() error {
	ready := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if C.startTapC() != 0 {
			ready <- fmt.Errorf("keytap: failed to create event tap (accessibility permission required)")
			return
		}
		ready <- nil
		C.runLoopC() // blocks until Stop calls CFRunLoopStop
		slog.Info("keytap: event tap stopped")
	}()
	if err := <-ready; err != nil {
		return err
	}
	slog.Info("keytap: event tap started")
	return nil
}

// Stop tears down the event tap and unblocks the run loop goroutine
// Start spawned. Safe to call from any goroutine.
func Stop() {
	C.stopTapC()
}
