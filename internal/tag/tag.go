// Package tag renders 64-bit payloads as invisible zero-width Unicode tags
// and scans text to recover or remove them.
package tag

import (
	"fmt"
	"strings"
)

// payloadBits is the fixed body length of a tag: one alphabet rune per bit.
const payloadBits = 64

// Config is the invisible-character alphabet and insertion cadence.
type Config struct {
	ZeroChar             rune `yaml:"-"`
	OneChar              rune `yaml:"-"`
	StartChar            rune `yaml:"-"`
	EndChar              rune `yaml:"-"`
	RepeatIntervalTokens int  `yaml:"repeat_interval_tokens"`
}

// DefaultConfig returns the wire-format default alphabet: ZWSP for 0, ZWNJ
// for 1, INVISIBLE SEPARATOR and INVISIBLE PLUS as delimiters, one tag per
// 160 approximate tokens.
func DefaultConfig() Config {
	return Config{
		ZeroChar:             '\u200b', // ZERO WIDTH SPACE
		OneChar:              '\u200c', // ZERO WIDTH NON-JOINER
		StartChar:            '\u2063', // INVISIBLE SEPARATOR
		EndChar:              '\u2064', // INVISIBLE PLUS
		RepeatIntervalTokens: 160,
	}
}

// Validate rejects alphabets whose runes are not pairwise distinct. An
// ambiguous alphabet (e.g. zero == one) makes every scan undecidable, so it
// is an unrecoverable configuration error rather than a data error.
func (c Config) Validate() error {
	runes := []rune{c.ZeroChar, c.OneChar, c.StartChar, c.EndChar}
	names := []string{"zero_char", "one_char", "start_char", "end_char"}
	for i := 0; i < len(runes); i++ {
		if runes[i] == 0 {
			return fmt.Errorf("tag alphabet: %s is unset", names[i])
		}
		for j := i + 1; j < len(runes); j++ {
			if runes[i] == runes[j] {
				return fmt.Errorf("tag alphabet: %s and %s are both %U", names[i], names[j], runes[i])
			}
		}
	}
	return nil
}

// Encode renders payload as a tag string: start rune, 64 bit runes
// most-significant first, end rune. Exactly 66 code points.
func Encode(payload uint64, cfg Config) string {
	var b strings.Builder
	b.Grow(4 * (payloadBits + 2)) // alphabet runes are up to 3-4 bytes each
	b.WriteRune(cfg.StartChar)
	for bit := payloadBits - 1; bit >= 0; bit-- {
		if payload>>uint(bit)&1 == 1 {
			b.WriteRune(cfg.OneChar)
		} else {
			b.WriteRune(cfg.ZeroChar)
		}
	}
	b.WriteRune(cfg.EndChar)
	return b.String()
}

// DecodeAll scans text for every well-formed tag and returns the decoded
// payloads in order of appearance. A malformed run (wrong body length, a
// foreign rune inside the body, a start without its end) is simply skipped;
// it is not an error. Matching is over code points, not bytes.
func DecodeAll(text string, cfg Config) []uint64 {
	var out []uint64
	scan(text, cfg, func(payload uint64, start, end int) {
		out = append(out, payload)
	})
	return out
}

// Strip deletes every well-formed tag from text, valid checksum or not,
// and returns the remaining text verbatim.
func Strip(text string, cfg Config) string {
	type span struct{ start, end int }
	var spans []span
	scan(text, cfg, func(_ uint64, start, end int) {
		spans = append(spans, span{start, end})
	})
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, sp := range spans {
		b.WriteString(text[prev:sp.start])
		prev = sp.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

// scan walks text as runes looking for start, exactly 64 alphabet runes,
// then end. Each match invokes emit with the decoded payload and the byte
// offsets of the full 66-rune tag. Matches are non-overlapping; after a
// failed candidate the scan resumes at the rune following the start rune,
// so a stray start inside garbage cannot mask a later real tag.
func scan(text string, cfg Config, emit func(payload uint64, start, end int)) {
	runes := []rune(text)

	// Byte offset of each rune, plus the terminating offset.
	offsets := make([]int, len(runes)+1)
	idx := 0
	for i := range text {
		offsets[idx] = i
		idx++
	}
	offsets[len(runes)] = len(text)

	for i := 0; i < len(runes); i++ {
		if runes[i] != cfg.StartChar {
			continue
		}
		body := i + 1
		if body+payloadBits+1 > len(runes) {
			// Not enough runes left for a 64-rune body plus the end
			// delimiter; no later start can match either.
			break
		}

		var payload uint64
		ok := true
		for j := 0; j < payloadBits; j++ {
			switch runes[body+j] {
			case cfg.OneChar:
				payload = payload<<1 | 1
			case cfg.ZeroChar:
				payload <<= 1
			default:
				ok = false
			}
			if !ok {
				break
			}
		}
		if !ok || runes[body+payloadBits] != cfg.EndChar {
			continue
		}

		emit(payload, offsets[i], offsets[body+payloadBits+1])
		i = body + payloadBits // resume after the end rune
	}
}
