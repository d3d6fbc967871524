package meta

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"sdmeta/internal/textenc"
)

// resolveParameters settles the raw "parameters" entry for one extraction:
// take the container's own value if present, otherwise the best candidate
// block; when neither exists or the result looks garbled, fall back to the
// byte-level recovery passes over the whole input.
func resolveParameters(file []byte, m *ImageMeta, candidates []candidate) {
	params, have := m.Raw["parameters"]
	if !have {
		if sel, ok := selectParameters(candidates); ok {
			params = sel
			have = true
			m.Raw["parameters"] = sel
		}
	}
	if have && !textenc.LooksGarbled(params) {
		return
	}
	if recovered, ok := recoverParameters(file); ok {
		m.Raw["parameters"] = recovered
	}
}

// recoverParameters runs the salvage passes in order; the first hit wins.
func recoverParameters(file []byte) (string, bool) {
	if s, ok := recoverUTF16Window(file); ok {
		return s, true
	}
	for _, enc := range []textenc.Encoding{textenc.UTF16LE, textenc.UTF16BE, textenc.ShiftJIS} {
		if s, ok := recoverWholeFile(file, enc); ok {
			return s, true
		}
	}
	return recoverJSON(file)
}

const (
	recoverWindowBefore = 4096
	recoverWindowAfter  = 8192
)

// utf16Pattern encodes an ASCII needle as raw UTF-16 bytes.
func utf16Pattern(needle string, le bool) []byte {
	out := make([]byte, 0, len(needle)*2)
	for i := 0; i < len(needle); i++ {
		if le {
			out = append(out, needle[i], 0x00)
		} else {
			out = append(out, 0x00, needle[i])
		}
	}
	return out
}

// recoverUTF16Window searches the raw bytes for a UTF-16 encoded
// "Negative prompt:" and decodes a window around each hit with the matching
// endianness.
func recoverUTF16Window(file []byte) (string, bool) {
	for _, le := range []bool{true, false} {
		pattern := utf16Pattern(negPromptLabel, le)
		enc := textenc.UTF16BE
		if le {
			enc = textenc.UTF16LE
		}
		from := 0
		for {
			hit := bytes.Index(file[from:], pattern)
			if hit == -1 {
				break
			}
			hit += from
			start := hit - recoverWindowBefore
			if start < 0 {
				start = 0
			}
			end := hit + recoverWindowAfter
			if end > len(file) {
				end = len(file)
			}
			// Keep the window aligned to the hit's byte parity so the
			// decoder does not land mid code unit.
			if (hit-start)%2 != 0 {
				start++
			}
			window, _ := textenc.Decode(file[start:end], enc)
			if block, ok := extractA1111Block(window); ok {
				return block, true
			}
			from = hit + len(pattern)
		}
	}
	return "", false
}

// recoverWholeFile re-decodes the entire buffer with one encoding and runs
// the locator; failing that, it accepts everything up to the first settings
// line.
func recoverWholeFile(file []byte, enc textenc.Encoding) (string, bool) {
	s, _ := textenc.Decode(file, enc)
	if block, ok := extractA1111Block(s); ok {
		return block, true
	}
	loc := stepsLineRe.FindStringIndex(s)
	if loc == nil {
		loc = settingsLineRe.FindStringIndex(s)
	}
	if loc != nil {
		return s[:loc[1]], true
	}
	return "", false
}

var jsonScanNeedles = []string{
	"sd-metadata",
	"sd_metadata",
	`"prompt"`,
	`"Negative prompt"`,
	negPromptLabel,
}

// recoverJSON decodes the file as lossy UTF-8 and hunts for an embedded
// metadata object around each known needle, converting whatever it finds to
// A1111 text.
func recoverJSON(file []byte) (string, bool) {
	s, _ := textenc.Decode(file, textenc.UTF8)
	for _, needle := range jsonScanNeedles {
		from := 0
		for {
			idx := strings.Index(s[from:], needle)
			if idx == -1 {
				break
			}
			idx += from
			if obj, ok := enclosingJSONObject(s, idx); ok {
				if text, ok := paramsFromJSON(obj); ok {
					return text, true
				}
			}
			from = idx + len(needle)
		}
	}
	return "", false
}

// enclosingJSONObject finds the nearest {...} around pos that parses as a
// JSON object. It walks opening braces outward from pos, bounded to keep
// pathological inputs linear-ish.
func enclosingJSONObject(s string, pos int) (map[string]any, bool) {
	const maxAttempts = 64
	attempts := 0
	for open := strings.LastIndexByte(s[:pos+1], '{'); open != -1; open = strings.LastIndexByte(s[:open], '{') {
		attempts++
		if attempts > maxAttempts {
			return nil, false
		}
		closing := matchBrace(s, open)
		if closing <= pos {
			continue
		}
		body := s[open : closing+1]
		if !gjson.Valid(body) {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(body), &obj); err != nil {
			continue
		}
		return obj, true
	}
	return nil, false
}

// matchBrace returns the index of the brace closing s[open], honoring JSON
// string literals and escapes, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// paramsFromJSON converts a scanned object into A1111 text when it exposes
// sd-metadata, a parameters string, or Forge-shaped keys.
func paramsFromJSON(obj map[string]any) (string, bool) {
	for _, key := range []string{"sd-metadata", "sd_metadata"} {
		v, ok := obj[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			return t, true
		case map[string]any:
			if p, ok := t["parameters"].(string); ok {
				return p, true
			}
			if looksForgeShaped(t) {
				return forgeToA1111(t)
			}
		}
	}
	if p, ok := obj["parameters"].(string); ok {
		return p, true
	}
	if looksForgeShaped(obj) {
		return forgeToA1111(obj)
	}
	return "", false
}
