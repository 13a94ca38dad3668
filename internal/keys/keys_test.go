package keys

import (
	"bytes"
	"testing"
)

func TestCtrlLetterRange(t *testing.T) {
	for c := byte('a'); c <= 'z'; c++ {
		got := ToBytes(Key{Char: rune(c), Mods: ModCtrl})
		want := []byte{c - 'a' + 1}
		if !bytes.Equal(got, want) {
			t.Fatalf("Ctrl+%c: got %v, want %v", c, got, want)
		}
	}
}

func TestCtrlUppercaseNormalizes(t *testing.T) {
	got := ToBytes(Key{Char: 'A', Mods: ModCtrl})
	if !bytes.Equal(got, []byte{0x01}) {
		t.Fatalf("got %v", got)
	}
}

func TestAltCharPrependsEsc(t *testing.T) {
	got := ToBytes(Key{Char: 'c', Mods: ModAlt})
	if !bytes.Equal(got, []byte{0x1b, 'c'}) {
		t.Fatalf("got %v", got)
	}
}

func TestPlainChar(t *testing.T) {
	got := ToBytes(Key{Char: 'x'})
	if !bytes.Equal(got, []byte("x")) {
		t.Fatalf("got %v", got)
	}
}

func TestNamedKeys(t *testing.T) {
	cases := []struct {
		code Code
		want []byte
	}{
		{CodeEnter, []byte{'\r'}},
		{CodeBackspace, []byte{0x7f}},
		{CodeTab, []byte{'\t'}},
		{CodeEsc, []byte{0x1b}},
		{CodeUp, []byte("\x1b[A")},
		{CodeDown, []byte("\x1b[B")},
		{CodeRight, []byte("\x1b[C")},
		{CodeLeft, []byte("\x1b[D")},
		{CodeHome, []byte("\x1b[H")},
		{CodeEnd, []byte("\x1b[F")},
		{CodePageUp, []byte("\x1b[5~")},
		{CodePageDown, []byte("\x1b[6~")},
		{CodeDelete, []byte("\x1b[3~")},
		{CodeInsert, []byte("\x1b[2~")},
	}
	for _, c := range cases {
		got := ToBytes(Key{Code: c.code})
		if !bytes.Equal(got, c.want) {
			t.Fatalf("code %d: got %q, want %q", c.code, got, c.want)
		}
	}
}

func TestFunctionKeysF1ThroughF4UseSS3(t *testing.T) {
	want := map[int][]byte{1: []byte("\x1bOP"), 2: []byte("\x1bOQ"), 3: []byte("\x1bOR"), 4: []byte("\x1bOS")}
	for n, w := range want {
		got := ToBytes(Key{Code: CodeFunction, N: n})
		if !bytes.Equal(got, w) {
			t.Fatalf("F%d: got %q, want %q", n, got, w)
		}
	}
}

func TestFunctionKeysF5ThroughF12UseCSITilde(t *testing.T) {
	want := map[int][]byte{
		5: []byte("\x1b[15~"), 6: []byte("\x1b[17~"), 7: []byte("\x1b[18~"), 8: []byte("\x1b[19~"),
		9: []byte("\x1b[20~"), 10: []byte("\x1b[21~"), 11: []byte("\x1b[23~"), 12: []byte("\x1b[24~"),
	}
	for n, w := range want {
		got := ToBytes(Key{Code: CodeFunction, N: n})
		if !bytes.Equal(got, w) {
			t.Fatalf("F%d: got %q, want %q", n, got, w)
		}
	}
}

func TestUnmappedKeyIsEmpty(t *testing.T) {
	got := ToBytes(Key{Code: CodeBackTab})
	if len(got) != 0 {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestEncodeSendKeysTextEnterEscape(t *testing.T) {
	got := EncodeSendKeysText(`hello\n`)
	if !bytes.Equal(got, []byte("hello\r")) {
		t.Fatalf("got %q", got)
	}
}

func TestEncodeSendKeysTextRealNewline(t *testing.T) {
	got := EncodeSendKeysText("hello\n")
	if !bytes.Equal(got, []byte("hello\r")) {
		t.Fatalf("got %q", got)
	}
}

func TestEncodeSendKeysTextPlain(t *testing.T) {
	got := EncodeSendKeysText("ls -la")
	if !bytes.Equal(got, []byte("ls -la")) {
		t.Fatalf("got %q", got)
	}
}

func TestEncodeSendKeysTextEscapedBackslash(t *testing.T) {
	got := EncodeSendKeysText(`a\\b`)
	if !bytes.Equal(got, []byte(`a\b`)) {
		t.Fatalf("got %q", got)
	}
}

func TestNamedKeyModifierPrefixes(t *testing.T) {
	k, ok := NamedKey("C-a")
	if !ok || k.Char != 'a' || k.Mods != ModCtrl {
		t.Fatalf("got %+v, %v", k, ok)
	}
	k2, ok2 := NamedKey("M-Enter")
	if !ok2 || k2.Code != CodeEnter || k2.Mods != ModAlt {
		t.Fatalf("got %+v, %v", k2, ok2)
	}
}

func TestNamedKeyUnknown(t *testing.T) {
	if _, ok := NamedKey("NotAKey"); ok {
		t.Fatal("expected false")
	}
}
