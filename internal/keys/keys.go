// Package keys implements the key encoding contract from spec §6 and the
// golden vectors in spec §8 property 7: translating a named key press (as
// a thin client would capture it) into the exact byte sequence a PTY child
// expects on its stdin.
//
// Ported from the original Rust client's src/keys.rs.
package keys

import "strings"

// Mod is a bitmask of key modifiers.
type Mod uint8

const (
	// ModNone is the absence of any modifier.
	ModNone Mod = 0
	// ModCtrl is the control modifier.
	ModCtrl Mod = 1 << iota
	// ModAlt is the alt/meta modifier.
	ModAlt
)

// Code names a non-character key. Character keys are represented directly
// as a rune via Key.Char instead.
type Code int

const (
	CodeNone Code = iota
	CodeEnter
	CodeBackspace
	CodeTab
	CodeEsc
	CodeUp
	CodeDown
	CodeRight
	CodeLeft
	CodeHome
	CodeEnd
	CodePageUp
	CodePageDown
	CodeDelete
	CodeInsert
	CodeFunction // N holds the function key number
	CodeBackTab
	CodeNull
)

// Key is a single key-press event as captured by a thin client before being
// serialized into a Key{bytes} request.
type Key struct {
	Code Code
	Char rune // valid when Code == CodeNone
	N    int  // valid when Code == CodeFunction
	Mods Mod
}

// ToBytes converts a Key into the byte sequence written to a PTY's stdin,
// per the fixed mapping in spec §6 / §8 property 7.
func ToBytes(k Key) []byte {
	if k.Code == CodeNone {
		return charToBytes(k.Char, k.Mods)
	}

	switch k.Code {
	case CodeEnter:
		return []byte{'\r'}
	case CodeBackspace:
		return []byte{0x7f}
	case CodeTab:
		return []byte{'\t'}
	case CodeEsc:
		return []byte{0x1b}
	case CodeUp:
		return []byte("\x1b[A")
	case CodeDown:
		return []byte("\x1b[B")
	case CodeRight:
		return []byte("\x1b[C")
	case CodeLeft:
		return []byte("\x1b[D")
	case CodeHome:
		return []byte("\x1b[H")
	case CodeEnd:
		return []byte("\x1b[F")
	case CodePageUp:
		return []byte("\x1b[5~")
	case CodePageDown:
		return []byte("\x1b[6~")
	case CodeDelete:
		return []byte("\x1b[3~")
	case CodeInsert:
		return []byte("\x1b[2~")
	case CodeFunction:
		return functionKeyBytes(k.N)
	default:
		// BackTab, Null, and anything else unmapped.
		return []byte{}
	}
}

func functionKeyBytes(n int) []byte {
	switch n {
	case 1:
		return []byte("\x1bOP")
	case 2:
		return []byte("\x1bOQ")
	case 3:
		return []byte("\x1bOR")
	case 4:
		return []byte("\x1bOS")
	case 5:
		return []byte("\x1b[15~")
	case 6:
		return []byte("\x1b[17~")
	case 7:
		return []byte("\x1b[18~")
	case 8:
		return []byte("\x1b[19~")
	case 9:
		return []byte("\x1b[20~")
	case 10:
		return []byte("\x1b[21~")
	case 11:
		return []byte("\x1b[23~")
	case 12:
		return []byte("\x1b[24~")
	default:
		return []byte{}
	}
}

func charToBytes(c rune, mods Mod) []byte {
	if mods&ModCtrl != 0 {
		lower := c
		if lower >= 'A' && lower <= 'Z' {
			lower = lower - 'A' + 'a'
		}
		if lower >= 'a' && lower <= 'z' {
			return []byte{byte(lower-'a') + 1}
		}
	}
	if mods&ModAlt != 0 {
		out := []byte{0x1b}
		return append(out, []byte(string(c))...)
	}
	return []byte(string(c))
}

// EncodeSendKeysText converts a tmux `send-keys` literal argument into PTY
// bytes. Unlike ToBytes (one key press at a time), this scans free text and
// recognizes the escape sequences `\n`/`\t`/`\e` (as two literal source
// characters, e.g. backslash followed by 'n') as well as real embedded
// control characters, translating them through the same key-encoding table
// so `send-keys "hello\n"` produces `hello` followed by Enter's `\r` rather
// than a literal line feed.
func EncodeSendKeysText(text string) []byte {
	var out []byte
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch == '\\' && i+1 < len(runes) {
			switch runes[i+1] {
			case 'n':
				out = append(out, ToBytes(Key{Code: CodeEnter})...)
				i++
				continue
			case 't':
				out = append(out, ToBytes(Key{Code: CodeTab})...)
				i++
				continue
			case 'e':
				out = append(out, ToBytes(Key{Code: CodeEsc})...)
				i++
				continue
			case '\\':
				out = append(out, '\\')
				i++
				continue
			}
		}
		if ch == '\n' {
			out = append(out, ToBytes(Key{Code: CodeEnter})...)
			continue
		}
		out = append(out, []byte(string(ch))...)
	}
	return out
}

// NamedKey resolves a tmux-style key name (as used in `send-keys Enter` or
// `bind-key C-a`) into a Key. Returns false for names it doesn't recognize.
func NamedKey(name string) (Key, bool) {
	mods := ModNone
	for {
		switch {
		case strings.HasPrefix(name, "C-"):
			mods |= ModCtrl
			name = name[2:]
		case strings.HasPrefix(name, "M-"):
			mods |= ModAlt
			name = name[2:]
		default:
			goto resolved
		}
	}
resolved:
	switch name {
	case "Enter":
		return Key{Code: CodeEnter, Mods: mods}, true
	case "Escape", "Esc":
		return Key{Code: CodeEsc, Mods: mods}, true
	case "Tab":
		return Key{Code: CodeTab, Mods: mods}, true
	case "BSpace", "Backspace":
		return Key{Code: CodeBackspace, Mods: mods}, true
	case "Up":
		return Key{Code: CodeUp, Mods: mods}, true
	case "Down":
		return Key{Code: CodeDown, Mods: mods}, true
	case "Left":
		return Key{Code: CodeLeft, Mods: mods}, true
	case "Right":
		return Key{Code: CodeRight, Mods: mods}, true
	case "Home":
		return Key{Code: CodeHome, Mods: mods}, true
	case "End":
		return Key{Code: CodeEnd, Mods: mods}, true
	case "PageUp", "PPage":
		return Key{Code: CodePageUp, Mods: mods}, true
	case "PageDown", "NPage":
		return Key{Code: CodePageDown, Mods: mods}, true
	case "Delete", "DC":
		return Key{Code: CodeDelete, Mods: mods}, true
	case "Insert", "IC":
		return Key{Code: CodeInsert, Mods: mods}, true
	}
	if len(name) == 1 {
		return Key{Char: rune(name[0]), Mods: mods}, true
	}
	return Key{}, false
}
