package shortcut

// Matcher detects rising/falling edges of a single Shortcut as keys are
// inserted into or removed from a pressed-key set owned by the caller.
type Matcher struct {
	shortcut Shortcut
}

// NewMatcher returns a Matcher bound to shortcut. The shortcut is assumed
// already validated.
func NewMatcher(s Shortcut) *Matcher {
	return &Matcher{shortcut: s}
}

// Shortcut returns the bound shortcut.
func (m *Matcher) Shortcut() Shortcut { return m.shortcut }

// SetShortcut rebinds the matcher to a new shortcut. Callers must also reset
// any pressed-key set that fed edge detection, since a changed shortcut
// invalidates prior was/is comparisons.
func (m *Matcher) SetShortcut(s Shortcut) { m.shortcut = s }

// OnKeyDown inserts keycode into pressed and reports whether this caused a
// rising edge: the shortcut did not match before the insert but does after.
func (m *Matcher) OnKeyDown(pressed map[uint32]bool, keycode uint32) (risingEdge bool) {
	was := m.shortcut.Matches(pressed)
	pressed[keycode] = true
	is := m.shortcut.Matches(pressed)
	return !was && is
}

// OnKeyUp removes keycode from pressed and reports whether this caused a
// falling edge: the shortcut matched before the removal but does not after.
func (m *Matcher) OnKeyUp(pressed map[uint32]bool, keycode uint32) (fallingEdge bool) {
	was := m.shortcut.Matches(pressed)
	delete(pressed, keycode)
	is := m.shortcut.Matches(pressed)
	return was && !is
}
