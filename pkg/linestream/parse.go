package linestream

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// ParseLine decodes a single line into an Event. The returned bool is false
// when the line is empty after trimming, in which case no event exists.
//
// ParseLine never fails: a line without a separator becomes a TypeUnknown
// event and a payload that is not valid JSON is kept as the raw string.
func ParseLine(line string) (Event, bool) {
	if !utf8.ValidString(line) {
		line = repairUTF8(line)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}

	before, after, ok := strings.Cut(line, ":")
	if !ok {
		return Event{Type: TypeUnknown, Raw: line}, true
	}

	candidate := strings.TrimSpace(after)
	return Event{
		Type:    strings.TrimSpace(before),
		Payload: decodePayload(candidate),
	}, true
}

// repairUTF8 replaces every maximal invalid subsequence of s with U+FFFD.
// A truncated multi-byte sequence counts as one subsequence, a stray
// continuation byte as one each.
func repairUTF8(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != utf8.RuneError || size > 1 {
			b.WriteString(s[i : i+size])
			i += size
			continue
		}
		b.WriteRune(utf8.RuneError)
		i += invalidPrefix(s[i:])
	}

	return b.String()
}

// invalidPrefix is the length of the invalid sequence at the start of s: the
// lead byte plus the continuation bytes that could still have completed it.
func invalidPrefix(s string) int {
	lo, hi, need := byte(0x80), byte(0xBF), 0
	switch c := s[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		lo, need = 0xA0, 2
	case c == 0xED:
		hi, need = 0x9F, 2
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		lo, need = 0x90, 3
	case c == 0xF4:
		hi, need = 0x8F, 3
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	}

	n := 1
	for ; n <= need && n < len(s); n++ {
		if s[n] < lo || s[n] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
	}
	return n
}

// decodePayload attempts a JSON decode of s and falls back to s itself.
func decodePayload(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
