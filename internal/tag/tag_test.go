package tag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEncodeLength(t *testing.T) {
	cfg := DefaultConfig()
	for _, p := range []uint64{0, 1, 0xFFFFFFFFFFFFFFFF, 0x0102030405060708} {
		s := Encode(p, cfg)
		if n := utf8.RuneCountInString(s); n != 66 {
			t.Errorf("Encode(%#x) has %d code points, want 66", p, n)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	payloads := []uint64{
		0,
		1,
		1 << 63,
		0xFFFFFFFFFFFFFFFF,
		0xDEADBEEFCAFEF00D,
		0x0123456789ABCDEF,
	}

	for _, p := range payloads {
		got := DecodeAll(Encode(p, cfg), cfg)
		if len(got) != 1 || got[0] != p {
			t.Errorf("round-trip of %#016x: got %v", p, got)
		}
	}
}

func TestDecodeAllPlainText(t *testing.T) {
	cfg := DefaultConfig()
	texts := []string{
		"",
		"plain text with no markers",
		"unicode: héllo wörld — naïve café",
		strings.Repeat("a", 1000),
	}
	for _, text := range texts {
		if got := DecodeAll(text, cfg); len(got) != 0 {
			t.Errorf("DecodeAll(%.30q) = %v, want empty", text, got)
		}
	}
}

func TestDecodeAllMultipleTagsInOrder(t *testing.T) {
	cfg := DefaultConfig()
	text := "alpha " + Encode(111, cfg) + " beta " + Encode(222, cfg) + " gamma " + Encode(333, cfg)

	got := DecodeAll(text, cfg)
	want := []uint64{111, 222, 333}
	if len(got) != len(want) {
		t.Fatalf("got %d payloads, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("payload %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodeAllSkipsMalformedRuns(t *testing.T) {
	cfg := DefaultConfig()
	valid := Encode(42, cfg)

	cases := []struct {
		name string
		text string
		want int
	}{
		{"truncated body", string(cfg.StartChar) + strings.Repeat(string(cfg.ZeroChar), 30) + string(cfg.EndChar), 0},
		{"foreign rune in body", string(cfg.StartChar) + strings.Repeat(string(cfg.ZeroChar), 32) + "x" + strings.Repeat(string(cfg.ZeroChar), 31) + string(cfg.EndChar), 0},
		{"unterminated start", string(cfg.StartChar) + strings.Repeat(string(cfg.OneChar), 64), 0},
		{"malformed then valid", string(cfg.StartChar) + strings.Repeat(string(cfg.ZeroChar), 10) + " " + valid, 1},
		{"valid then truncated", valid + " " + string(cfg.StartChar) + strings.Repeat(string(cfg.OneChar), 5), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeAll(tc.text, cfg); len(got) != tc.want {
				t.Errorf("got %d payloads, want %d", len(got), tc.want)
			}
		})
	}
}

func TestStripRemovesAllTags(t *testing.T) {
	cfg := DefaultConfig()
	visible := "The quick brown fox. Jumps over the lazy dog!"
	tagged := "The quick brown fox." + Encode(7, cfg) + " Jumps over the lazy dog!" + Encode(9, cfg)

	if got := Strip(tagged, cfg); got != visible {
		t.Errorf("Strip = %q, want %q", got, visible)
	}
}

func TestStripIsNoOpOnCleanText(t *testing.T) {
	cfg := DefaultConfig()
	text := "nothing hidden here"
	if got := Strip(text, cfg); got != text {
		t.Errorf("Strip changed clean text: %q", got)
	}
}

func TestStripLeavesMalformedRunsAlone(t *testing.T) {
	cfg := DefaultConfig()
	// A truncated run is not a tag; stripping must not touch it.
	text := "abc " + string(cfg.StartChar) + strings.Repeat(string(cfg.ZeroChar), 10) + " def"
	if got := Strip(text, cfg); got != text {
		t.Errorf("Strip altered a malformed run: %q", got)
	}
}

func TestStripRemovesCorruptedTags(t *testing.T) {
	cfg := DefaultConfig()
	// Well-formed shape, payload irrelevant: Strip ignores checksum validity.
	tagged := "x " + Encode(0, cfg) + " y"
	if got := Strip(tagged, cfg); got != "x  y" {
		t.Errorf("Strip = %q, want %q", got, "x  y")
	}
}

func TestValidateRejectsAmbiguousAlphabet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OneChar = cfg.ZeroChar
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted zero_char == one_char")
	}

	cfg = DefaultConfig()
	cfg.StartChar = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted unset start_char")
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Validate rejected default alphabet: %v", err)
	}
}

func TestDecodeCustomAlphabet(t *testing.T) {
	// Visible alphabet for readability; the scanner is alphabet-agnostic.
	cfg := Config{ZeroChar: '0', OneChar: '1', StartChar: '<', EndChar: '>'}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got := DecodeAll("pre "+Encode(0xABCD, cfg)+" post", cfg)
	if len(got) != 1 || got[0] != 0xABCD {
		t.Errorf("custom alphabet decode: got %v", got)
	}
}

func FuzzDecodeAll(f *testing.F) {
	cfg := DefaultConfig()
	f.Add("plain text")
	f.Add(Encode(42, cfg))
	f.Add(string(cfg.StartChar) + strings.Repeat(string(cfg.ZeroChar), 63))
	f.Add(strings.Repeat(string(cfg.StartChar), 70))

	f.Fuzz(func(t *testing.T, text string) {
		payloads := DecodeAll(text, cfg) // must not panic
		stripped := Strip(text, cfg)
		if len(payloads) == 0 && stripped != text {
			t.Errorf("Strip changed text with no tags")
		}
		if len(stripped) > len(text) {
			t.Errorf("Strip grew the text")
		}
		// Each well-formed tag is 66 runes; stripping must account for
		// at least that much per decoded payload.
		if len(payloads) > 0 && utf8.RuneCountInString(text)-utf8.RuneCountInString(stripped) < 66 {
			t.Errorf("Strip removed fewer runes than one tag")
		}
	})
}
