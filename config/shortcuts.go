package config

import "dictationd/shortcut"

// shortcutsConfigFile is the on-disk shape of shortcuts.json; it's exactly
// shortcut.Config, named locally so config.go doesn't need a forward
// reference to an external type in its Store field declarations.
type shortcutsConfigFile = shortcut.Config

func defaultShortcutsConfigFile() shortcutsConfigFile {
	return shortcut.DefaultConfig()
}

// Shortcuts returns the persisted shortcut bindings.
func (s *Store) Shortcuts() shortcut.Config { return s.shortcuts.Get() }

// SetShortcuts validates and persists new shortcut bindings.
func (s *Store) SetShortcuts(c shortcut.Config) error {
	if err := c.PushToRecord.Validate(); err != nil {
		return err
	}
	if err := c.HandsFree.Validate(); err != nil {
		return err
	}
	return s.shortcuts.Set(c)
}
