//go:build !darwin

package paste

// platformPasteModifier returns the paste modifier key for non-macOS
// platforms.
func platformPasteModifier() string {
	return "ctrl"
}
