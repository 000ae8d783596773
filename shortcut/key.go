// Package shortcut defines the key/shortcut data model and the matcher that
// decides whether a configured combination is currently held.
package shortcut

// Keycode constants from the Carbon virtual-keycode table, shared by the
// shortcut matcher and the macOS key tap.
const (
	KeyA = 0x00
	KeyS = 0x01
	KeyD = 0x02
	KeyF = 0x03
	KeyH = 0x04
	KeyG = 0x05
	KeyZ = 0x06
	KeyX = 0x07
	KeyC = 0x08
	KeyV = 0x09
	KeyB = 0x0B
	KeyQ = 0x0C
	KeyW = 0x0D
	KeyE = 0x0E
	KeyR = 0x0F
	KeyY = 0x10
	KeyT = 0x11
	Key1 = 0x12
	Key2 = 0x13
	Key3 = 0x14
	Key4 = 0x15
	Key6 = 0x16
	Key5 = 0x17
	KeyEquals = 0x18
	Key9 = 0x19
	Key7 = 0x1A
	KeyMinus = 0x1B
	Key8 = 0x1C
	Key0 = 0x1D
	KeyRightBracket = 0x1E
	KeyO = 0x1F
	KeyU = 0x20
	KeyLeftBracket = 0x21
	KeyI = 0x22
	KeyP = 0x23
	KeyL = 0x25
	KeyJ = 0x26
	KeyQuote = 0x27
	KeyK = 0x28
	KeySemicolon = 0x29
	KeyBackslash = 0x2A
	KeyComma = 0x2B
	KeySlash = 0x2C
	KeyN = 0x2D
	KeyM = 0x2E
	KeyPeriod = 0x2F
	KeyGrave = 0x32

	KeyReturn       = 0x24
	KeyTab          = 0x30
	KeySpace        = 0x31
	KeyDelete       = 0x33
	KeyEscape       = 0x35
	KeyRightCommand = 0x36
	KeyCommand      = 0x37
	KeyShift        = 0x38
	KeyCapsLock     = 0x39
	KeyOption       = 0x3A
	KeyControl      = 0x3B
	KeyRightShift   = 0x3C
	KeyRightOption  = 0x3D
	KeyRightControl = 0x3E
	KeyFunction     = 0x3F

	KeyF1  = 0x7A
	KeyF2  = 0x78
	KeyF3  = 0x63
	KeyF4  = 0x76
	KeyF5  = 0x60
	KeyF6  = 0x61
	KeyF7  = 0x62
	KeyF8  = 0x64
	KeyF9  = 0x65
	KeyF10 = 0x6D
	KeyF11 = 0x67
	KeyF12 = 0x6F

	KeyHome         = 0x73
	KeyEnd          = 0x77
	KeyPageUp       = 0x74
	KeyPageDown     = 0x79
	KeyForwardDelete = 0x75
	KeyLeftArrow    = 0x7B
	KeyRightArrow   = 0x7C
	KeyDownArrow    = 0x7D
	KeyUpArrow      = 0x7E
)

// modifierKeycodes is the set of keycodes that arrive as flags-changed
// events rather than key-down/key-up on the reference platform.
var modifierKeycodes = map[uint32]bool{
	KeyShift: true, KeyRightShift: true,
	KeyControl: true, KeyRightControl: true,
	KeyOption: true, KeyRightOption: true,
	KeyCommand: true, KeyRightCommand: true,
	KeyFunction: true,
	KeyCapsLock: true,
}

// IsModifier reports whether keycode is delivered via flags-changed events.
func IsModifier(keycode uint32) bool {
	return modifierKeycodes[keycode]
}

// keyLabels maps keycodes to the human-readable label persisted alongside
// them in a ShortcutKey.
var keyLabels = map[uint32]string{
	KeyA: "A", KeyB: "B", KeyC: "C", KeyD: "D", KeyE: "E", KeyF: "F", KeyG: "G",
	KeyH: "H", KeyI: "I", KeyJ: "J", KeyK: "K", KeyL: "L", KeyM: "M", KeyN: "N",
	KeyO: "O", KeyP: "P", KeyQ: "Q", KeyR: "R", KeyS: "S", KeyT: "T", KeyU: "U",
	KeyV: "V", KeyW: "W", KeyX: "X", KeyY: "Y", KeyZ: "Z",
	Key0: "0", Key1: "1", Key2: "2", Key3: "3", Key4: "4", Key5: "5", Key6: "6",
	Key7: "7", Key8: "8", Key9: "9",
	KeySpace: "Space", KeyReturn: "Enter", KeyTab: "Tab", KeyEscape: "Escape",
	KeyDelete: "Delete", KeyForwardDelete: "ForwardDelete",
	KeyHome: "Home", KeyEnd: "End", KeyPageUp: "PageUp", KeyPageDown: "PageDown",
	KeyLeftArrow: "Left", KeyRightArrow: "Right", KeyUpArrow: "Up", KeyDownArrow: "Down",
	KeyShift: "Shift", KeyRightShift: "RightShift",
	KeyControl: "Control", KeyRightControl: "RightControl",
	KeyOption: "Option", KeyRightOption: "RightOption",
	KeyCommand: "Command", KeyRightCommand: "RightCommand",
	KeyFunction: "Fn", KeyCapsLock: "CapsLock",
	KeyF1: "F1", KeyF2: "F2", KeyF3: "F3", KeyF4: "F4", KeyF5: "F5", KeyF6: "F6",
	KeyF7: "F7", KeyF8: "F8", KeyF9: "F9", KeyF10: "F10", KeyF11: "F11", KeyF12: "F12",
}

// Label returns the human-readable name for keycode, or a numeric fallback
// if it isn't a recognized key.
func Label(keycode uint32) string {
	if l, ok := keyLabels[keycode]; ok {
		return l
	}
	return "Key0x" + itoaHex(keycode)
}

func itoaHex(v uint32) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v%16]
		v /= 16
	}
	return string(buf[i:])
}
