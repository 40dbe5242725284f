package hid

// ScanCode is a raw Linux evdev key code.
type ScanCode uint16

// Usage is a HID keyboard usage code (usage page 0x07).
type Usage uint8

// Modifier usage range. Keys in this range live in the report's modifier
// byte, not the keycode slots.
const (
	usageLeftCtrl   Usage = 0xE0
	usageLeftShift  Usage = 0xE1
	usageLeftAlt    Usage = 0xE2
	usageLeftMeta   Usage = 0xE3
	usageRightCtrl  Usage = 0xE4
	usageRightShift Usage = 0xE5
	usageRightAlt   Usage = 0xE6
	usageRightMeta  Usage = 0xE7
)

// Modifier byte bits, LCtrl in bit 0 through RMeta in bit 7.
const (
	ModLeftCtrl   = 1 << 0
	ModLeftShift  = 1 << 1
	ModLeftAlt    = 1 << 2
	ModLeftMeta   = 1 << 3
	ModRightCtrl  = 1 << 4
	ModRightShift = 1 << 5
	ModRightAlt   = 1 << 6
	ModRightMeta  = 1 << 7
)

// Pointer button bits in the pointer report's button byte.
const (
	ButtonLeft   = 1 << 0
	ButtonRight  = 1 << 1
	ButtonMiddle = 1 << 2
)

// evdev button codes for the three canonical pointer buttons.
const (
	BtnLeft   ScanCode = 272
	BtnRight  ScanCode = 273
	BtnMiddle ScanCode = 274
)

// ButtonBit returns the report bit for a pointer button scan code, or 0
// if the code is not one of the three supported buttons.
func ButtonBit(code ScanCode) uint8 {
	switch code {
	case BtnLeft:
		return ButtonLeft
	case BtnRight:
		return ButtonRight
	case BtnMiddle:
		return ButtonMiddle
	}
	return 0
}

// modifierBit returns the modifier-byte bit for a scan code, or 0 if the
// key is not a modifier.
func modifierBit(code ScanCode) uint8 {
	switch code {
	case 29: // KEY_LEFTCTRL
		return ModLeftCtrl
	case 42: // KEY_LEFTSHIFT
		return ModLeftShift
	case 56: // KEY_LEFTALT
		return ModLeftAlt
	case 125: // KEY_LEFTMETA
		return ModLeftMeta
	case 97: // KEY_RIGHTCTRL
		return ModRightCtrl
	case 54: // KEY_RIGHTSHIFT
		return ModRightShift
	case 100: // KEY_RIGHTALT
		return ModRightAlt
	case 126: // KEY_RIGHTMETA
		return ModRightMeta
	}
	return 0
}

// keymap maps Linux evdev scan codes to HID usage codes. Built once;
// never mutated. Scan codes absent from the table are skipped by the
// encoder.
var keymap = map[ScanCode]Usage{
	1:  41, // KEY_ESC
	2:  30, // KEY_1
	3:  31, // KEY_2
	4:  32, // KEY_3
	5:  33, // KEY_4
	6:  34, // KEY_5
	7:  35, // KEY_6
	8:  36, // KEY_7
	9:  37, // KEY_8
	10: 38, // KEY_9
	11: 39, // KEY_0
	12: 45, // KEY_MINUS
	13: 46, // KEY_EQUAL
	14: 42, // KEY_BACKSPACE
	15: 43, // KEY_TAB
	16: 20, // KEY_Q
	17: 26, // KEY_W
	18: 8,  // KEY_E
	19: 21, // KEY_R
	20: 23, // KEY_T
	21: 28, // KEY_Y
	22: 24, // KEY_U
	23: 12, // KEY_I
	24: 18, // KEY_O
	25: 19, // KEY_P
	26: 47, // KEY_LEFTBRACE
	27: 48, // KEY_RIGHTBRACE
	28: 40, // KEY_ENTER
	30: 4,  // KEY_A
	31: 22, // KEY_S
	32: 7,  // KEY_D
	33: 9,  // KEY_F
	34: 10, // KEY_G
	35: 11, // KEY_H
	36: 13, // KEY_J
	37: 14, // KEY_K
	38: 15, // KEY_L
	39: 51, // KEY_SEMICOLON
	40: 52, // KEY_APOSTROPHE
	41: 53, // KEY_GRAVE
	43: 49, // KEY_BACKSLASH
	44: 29, // KEY_Z
	45: 27, // KEY_X
	46: 6,  // KEY_C
	47: 25, // KEY_V
	48: 5,  // KEY_B
	49: 17, // KEY_N
	50: 16, // KEY_M
	51: 54, // KEY_COMMA
	52: 55, // KEY_DOT
	53: 56, // KEY_SLASH
	55: 85, // KEY_KPASTERISK
	57: 44, // KEY_SPACE
	58: 57, // KEY_CAPSLOCK
	59: 58, // KEY_F1
	60: 59, // KEY_F2
	61: 60, // KEY_F3
	62: 61, // KEY_F4
	63: 62, // KEY_F5
	64: 63, // KEY_F6
	65: 64, // KEY_F7
	66: 65, // KEY_F8
	67: 66, // KEY_F9
	68: 67, // KEY_F10
	69: 83, // KEY_NUMLOCK
	70: 71, // KEY_SCROLLLOCK
	71: 95, // KEY_KP7
	72: 96, // KEY_KP8
	73: 97, // KEY_KP9
	74: 86, // KEY_KPMINUS
	75: 92, // KEY_KP4
	76: 93, // KEY_KP5
	77: 94, // KEY_KP6
	78: 87, // KEY_KPPLUS
	79: 89, // KEY_KP1
	80: 90, // KEY_KP2
	81: 91, // KEY_KP3
	82: 98, // KEY_KP0
	83: 99, // KEY_KPDOT

	86:  100, // KEY_102ND
	87:  68,  // KEY_F11
	88:  69,  // KEY_F12
	96:  88,  // KEY_KPENTER
	98:  84,  // KEY_KPSLASH
	99:  70,  // KEY_SYSRQ
	102: 74,  // KEY_HOME
	103: 82,  // KEY_UP
	104: 75,  // KEY_PAGEUP
	105: 80,  // KEY_LEFT
	106: 79,  // KEY_RIGHT
	107: 77,  // KEY_END
	108: 81,  // KEY_DOWN
	109: 78,  // KEY_PAGEDOWN
	110: 73,  // KEY_INSERT
	111: 76,  // KEY_DELETE
	119: 72,  // KEY_PAUSE
	127: 101, // KEY_COMPOSE

	// Modifiers also carry usages, used when a host asks for boot-protocol
	// style reporting; the encoder folds them into the modifier byte instead.
	29:  usageLeftCtrl,
	42:  usageLeftShift,
	54:  usageRightShift,
	56:  usageLeftAlt,
	97:  usageRightCtrl,
	100: usageRightAlt,
	125: usageLeftMeta,
	126: usageRightMeta,
}

// UsageFor looks up the HID usage for a scan code.
func UsageFor(code ScanCode) (Usage, bool) {
	u, ok := keymap[code]
	return u, ok
}
