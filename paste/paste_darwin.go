package paste

// platformPasteModifier returns the paste modifier key for macOS.
func platformPasteModifier() string {
	return "cmd"
}
