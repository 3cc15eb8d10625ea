package browser

import "strings"

// Key is a keyboard key. Special keys use the WebDriver code points; printable
// keys are the character itself.
type Key string

const (
	KeyControl Key = "\ue009"
	KeyShift   Key = "\ue008"
	KeyAlt     Key = "\ue00a"
	KeyMeta    Key = "\ue03d"
	KeyInsert  Key = "\ue016"
	KeyDelete  Key = "\ue017"
	KeyTab     Key = "\ue004"
	KeyEnter   Key = "\ue007"
)

type keyInfo struct {
	name string
	code string
	vk   int64
}

var specialKeys = map[Key]keyInfo{
	KeyControl: {"Control", "ControlLeft", 17},
	KeyShift:   {"Shift", "ShiftLeft", 16},
	KeyAlt:     {"Alt", "AltLeft", 18},
	KeyMeta:    {"Meta", "MetaLeft", 91},
	KeyInsert:  {"Insert", "Insert", 45},
	KeyDelete:  {"Delete", "Delete", 46},
	KeyTab:     {"Tab", "Tab", 9},
	KeyEnter:   {"Enter", "Enter", 13},
}

// Name is the DOM KeyboardEvent.key value, e.g. "Control" or "c".
func (k Key) Name() string {
	if info, ok := specialKeys[k]; ok {
		return info.name
	}
	return string(k)
}

// Code is the DOM KeyboardEvent.code value, e.g. "ControlLeft" or "KeyC".
func (k Key) Code() string {
	if info, ok := specialKeys[k]; ok {
		return info.code
	}
	if len(k) == 1 {
		c := k[0]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			return "Key" + strings.ToUpper(string(k))
		case c >= '0' && c <= '9':
			return "Digit" + string(k)
		}
	}
	return ""
}

// VirtualKeyCode is the Windows virtual key code for the key, or 0 if unknown.
func (k Key) VirtualKeyCode() int64 {
	if info, ok := specialKeys[k]; ok {
		return info.vk
	}
	if len(k) == 1 {
		c := strings.ToUpper(string(k))[0]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return int64(c)
		}
	}
	return 0
}

// IsModifier reports whether the key is a modifier.
func (k Key) IsModifier() bool {
	switch k {
	case KeyControl, KeyShift, KeyAlt, KeyMeta:
		return true
	}
	return false
}

// String returns the key name so chords log readably.
func (k Key) String() string { return k.Name() }
