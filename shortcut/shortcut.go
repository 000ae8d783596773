package shortcut

import "fmt"

// ShortcutKey is the persisted form of a single key in a Shortcut.
type ShortcutKey struct {
	Keycode uint32 `json:"keycode"`
	Label   string `json:"label"`
}

// NewShortcutKey builds a ShortcutKey from a keycode, filling in the label
// from the shared keycode table.
func NewShortcutKey(keycode uint32) ShortcutKey {
	return ShortcutKey{Keycode: keycode, Label: Label(keycode)}
}

// Shortcut is an ordered sequence of 1-3 unique keys. Order only matters for
// display; matching is set-based.
type Shortcut struct {
	Keys []ShortcutKey `json:"keys"`
}

// Validate enforces the length and uniqueness invariants: 1 <= len <= 3, no
// duplicate keycodes.
func (s Shortcut) Validate() error {
	if len(s.Keys) < 1 || len(s.Keys) > 3 {
		return fmt.Errorf("shortcut must have 1-3 keys, got %d", len(s.Keys))
	}
	seen := make(map[uint32]bool, len(s.Keys))
	for _, k := range s.Keys {
		if seen[k.Keycode] {
			return fmt.Errorf("shortcut has duplicate keycode %d", k.Keycode)
		}
		seen[k.Keycode] = true
	}
	return nil
}

// Matches reports whether the exact set of keys in s is contained in and
// equal in size to pressed. A strict superset of pressed keys does not
// match: |pressed| must equal |s.Keys|.
func (s Shortcut) Matches(pressed map[uint32]bool) bool {
	if len(pressed) != len(s.Keys) {
		return false
	}
	for _, k := range s.Keys {
		if !pressed[k.Keycode] {
			return false
		}
	}
	return true
}

// ContainsKey reports whether keycode is one of the shortcut's keys.
func (s Shortcut) ContainsKey(keycode uint32) bool {
	for _, k := range s.Keys {
		if k.Keycode == keycode {
			return true
		}
	}
	return false
}

// Keycodes returns the shortcut's keycodes as a plain slice, in configured
// order.
func (s Shortcut) Keycodes() []uint32 {
	out := make([]uint32, len(s.Keys))
	for i, k := range s.Keys {
		out[i] = k.Keycode
	}
	return out
}

// Config is the persisted shortcuts configuration: push-to-record and
// hands-free combinations.
type Config struct {
	PushToRecord Shortcut `json:"pushToRecord"`
	HandsFree    Shortcut `json:"handsFree"`
}

// DefaultConfig returns the out-of-the-box shortcut bindings: Fn for
// push-to-talk, Fn+Space for hands-free.
func DefaultConfig() Config {
	return Config{
		PushToRecord: Shortcut{Keys: []ShortcutKey{NewShortcutKey(KeyFunction)}},
		HandsFree:    Shortcut{Keys: []ShortcutKey{NewShortcutKey(KeyFunction), NewShortcutKey(KeySpace)}},
	}
}
