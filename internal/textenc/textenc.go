// Package textenc decodes byte payloads of unknown or half-declared encoding
// into Go strings. Image metadata in the wild arrives as Latin-1, UTF-8,
// UTF-16 (either endianness, with or without BOM) or Shift_JIS, frequently
// mislabeled; the approach here is to decode with every plausible candidate
// and keep the highest-scoring result.
package textenc

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	unicodeenc "golang.org/x/text/encoding/unicode"
)

// Encoding identifies one of the decoders this package can run.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF16LE
	UTF16BE
	ShiftJIS
	Latin1
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case UTF16LE:
		return "utf-16le"
	case UTF16BE:
		return "utf-16be"
	case ShiftJIS:
		return "shift_jis"
	case Latin1:
		return "latin-1"
	}
	return "unknown"
}

// Key: IANA charset name (case sensitive) as reported by chardet.
var encodings = map[Encoding]encoding.Encoding{
	UTF16LE:  unicodeenc.UTF16(unicodeenc.LittleEndian, unicodeenc.IgnoreBOM),
	UTF16BE:  unicodeenc.UTF16(unicodeenc.BigEndian, unicodeenc.IgnoreBOM),
	ShiftJIS: japanese.ShiftJIS,
	Latin1:   charmap.ISO8859_1,
}

var detector = chardet.NewTextDetector()

// Decode decodes b with the given encoding. It never fails outright: invalid
// sequences come back as U+FFFD and ok reports whether the result is clean.
func Decode(b []byte, enc Encoding) (s string, ok bool) {
	switch enc {
	case UTF8:
		if utf8.Valid(b) {
			return string(b), true
		}
		return strings.ToValidUTF8(string(b), "�"), false
	default:
		out, err := encodings[enc].NewDecoder().Bytes(b)
		s = string(out)
		return s, err == nil && !strings.ContainsRune(s, '�')
	}
}

// Score rates a decoded candidate. Replacement characters are heavily
// penalized, CJK and kana mildly rewarded, stray control bytes punished.
func Score(s string) float64 {
	var repl, cjk, kana, printable, ctrl, punct int
	for _, r := range s {
		switch {
		case r == '�':
			repl++
		case unicode.Is(unicode.Han, r):
			cjk++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case r >= 0x20 && r < 0x7F:
			printable++
			if r == ',' || r == ':' || r == ';' {
				punct++
			}
		case r < 0x20 && r != '\t' && r != '\n' && r != '\r':
			ctrl++
		}
	}
	return -100*float64(repl) + 5*float64(cjk) + 4*float64(kana) +
		0.3*float64(printable) - 5*float64(ctrl) + 0.5*float64(punct)
}

var sdLabelBonus = []struct {
	label string
	bonus float64
}{
	{"Negative prompt:", 5},
	{"Steps:", 4},
	{"Sampler:", 2},
	{"CFG scale:", 2},
	{"Seed:", 2},
	{"Size:", 2},
}

// SDScore is Score plus a bias toward text that looks like a
// Stable-Diffusion parameter block. Strings bearing the wrong-endian
// UTF-16 signature (mostly 0xXX00 code units) are penalized hard so a
// mis-decode full of accidental CJK cannot outscore the clean candidate.
func SDScore(s string) float64 {
	score := Score(s)
	units := utf16.Encode([]rune(s))
	zeroLow := 0
	for _, u := range units {
		if u != 0 && u&0xFF == 0 {
			zeroLow++
		}
	}
	if len(units) > 0 && float64(zeroLow)/float64(len(units)) >= 0.3 {
		score -= 6 * float64(zeroLow)
	}
	for _, lb := range sdLabelBonus {
		if strings.Contains(s, lb.label) {
			score += lb.bonus
		}
	}
	if strings.ContainsRune(s, '’') {
		score++
	}
	if strings.ContainsRune(s, '\u0019') {
		score -= 3
	}
	total := 0
	printable := 0
	for _, r := range s {
		total++
		if r >= 0x20 && r < 0x7F {
			printable++
		}
	}
	if total > 0 {
		score += float64(printable) / float64(total)
	}
	return score
}

// NulStats counts NUL bytes in b, split by byte-position parity.
func NulStats(b []byte) (total, even, odd int) {
	for i, c := range b {
		if c == 0 {
			total++
			if i%2 == 0 {
				even++
			} else {
				odd++
			}
		}
	}
	return total, even, odd
}

// UTF16Hint inspects NUL statistics. utf16 reports whether the payload is
// likely UTF-16 at all (> 20% NUL bytes); le picks the endianness by parity:
// ASCII-heavy UTF-16LE has its NULs at odd positions.
func UTF16Hint(b []byte) (isUTF16, le bool) {
	if len(b) == 0 {
		return false, false
	}
	total, even, odd := NulStats(b)
	if float64(total)/float64(len(b)) <= 0.2 {
		return false, false
	}
	return true, odd >= even
}

// shiftJISBias reports whether chardet considers the payload Shift_JIS,
// in which case that decoder is tried first.
func shiftJISBias(b []byte) bool {
	res, err := detector.DetectBest(b)
	if err != nil || res == nil {
		return false
	}
	return res.Charset == "Shift_JIS" || res.Charset == "windows-31j"
}

// asciiRatio is the share of printable-ASCII bytes (tab, CR, LF included).
func asciiRatio(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	n := 0
	for _, c := range b {
		if (c >= 0x20 && c < 0x7F) || c == '\t' || c == '\n' || c == '\r' {
			n++
		}
	}
	return float64(n) / float64(len(b))
}

// DecodeBest decodes b with each candidate encoding in order and returns the
// highest SDScore result. Earlier candidates win ties. UTF-16 candidates are
// not considered for ASCII-dominant payloads, where pairing printable ASCII
// bytes into code units manufactures CJK text that would outscore the real
// decode, nor for NUL-free payloads that already decode as clean Shift_JIS:
// UTF-16 text with any ASCII in it carries NUL bytes, so without them the
// UTF-16 readings of a valid Shift_JIS stream are pairing artifacts too.
func DecodeBest(b []byte, candidates []Encoding) (string, Encoding) {
	skipUTF16 := asciiRatio(b) > 0.8
	if !skipUTF16 {
		if nuls, _, _ := NulStats(b); nuls == 0 {
			if _, ok := Decode(b, ShiftJIS); ok {
				skipUTF16 = true
			}
		}
	}
	bestScore := 0.0
	best := ""
	bestEnc := UTF8
	first := true
	for _, enc := range candidates {
		if skipUTF16 && (enc == UTF16LE || enc == UTF16BE) {
			continue
		}
		s, _ := Decode(b, enc)
		sc := SDScore(s)
		if first || sc > bestScore {
			first = false
			bestScore = sc
			best = s
			bestEnc = enc
		}
	}
	if first && len(candidates) > 0 {
		best, _ = Decode(b, candidates[0])
		bestEnc = candidates[0]
	}
	return best, bestEnc
}

func appendMissing(list []Encoding, encs ...Encoding) []Encoding {
	for _, e := range encs {
		seen := false
		for _, have := range list {
			if have == e {
				seen = true
				break
			}
		}
		if !seen {
			list = append(list, e)
		}
	}
	return list
}

// StripNULs removes NUL code points from s.
func StripNULs(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

var userCommentPrefixes = []struct {
	marker []byte
	encs   []Encoding
}{
	{[]byte("ASCII\x00\x00\x00"), []Encoding{UTF8}},
	{[]byte("UNICODE\x00"), []Encoding{UTF16LE, UTF16BE}},
	{[]byte("JIS\x00\x00\x00\x00\x00"), []Encoding{ShiftJIS}},
}

// DecodeUserComment decodes an EXIF UserComment payload. The first eight
// bytes carry an encoding marker; the marker is dropped only when
// recognized. NULs are stripped from the winning string.
func DecodeUserComment(b []byte) string {
	var preferred []Encoding
	body := b
	marked := false
	if len(b) >= 8 {
		for _, p := range userCommentPrefixes {
			if bytes.Equal(b[:8], p.marker) {
				body = b[8:]
				preferred = append(preferred, p.encs...)
				marked = true
				break
			}
		}
	}
	if len(body) == 0 {
		return ""
	}
	if !marked {
		if isUTF16, le := UTF16Hint(body); isUTF16 {
			if le {
				preferred = append(preferred, UTF16LE, UTF16BE)
			} else {
				preferred = append(preferred, UTF16BE, UTF16LE)
			}
		} else if shiftJISBias(body) {
			preferred = append(preferred, ShiftJIS)
		}
	}
	preferred = appendMissing(preferred, UTF8, UTF16LE, UTF16BE, ShiftJIS, Latin1)
	s, _ := DecodeBest(body, preferred)
	return StripNULs(s)
}

// DecodeText decodes a generic text payload (EXIF ASCII fields and the
// like): UTF-8 when clean, otherwise best-of with a UTF-16 NUL heuristic and
// a Shift_JIS fallback for payloads UTF-8 turns into replacement characters.
func DecodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if s, ok := Decode(b, UTF8); ok && !strings.ContainsRune(s, 0) {
		return s
	}
	var preferred []Encoding
	if isUTF16, le := UTF16Hint(b); isUTF16 {
		if le {
			preferred = append(preferred, UTF16LE, UTF16BE)
		} else {
			preferred = append(preferred, UTF16BE, UTF16LE)
		}
	} else if shiftJISBias(b) {
		preferred = append(preferred, ShiftJIS)
	}
	preferred = appendMissing(preferred, ShiftJIS, UTF8, UTF16LE, UTF16BE, Latin1)
	s, _ := DecodeBest(b, preferred)
	return StripNULs(s)
}

var encodingDeclRe = regexp.MustCompile(`encoding\s*=\s*["']([A-Za-z0-9_.:-]+)["']`)

func encodingByName(name string, payload []byte) (Encoding, bool) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return UTF8, true
	case "utf-16le":
		return UTF16LE, true
	case "utf-16be":
		return UTF16BE, true
	case "utf-16":
		_, le := UTF16Hint(payload)
		if le {
			return UTF16LE, true
		}
		return UTF16BE, true
	case "shift_jis", "shift-jis", "sjis", "windows-31j":
		return ShiftJIS, true
	}
	return UTF8, false
}

// DecodeXMP decodes an XMP packet. BOMs win over every heuristic; without
// one the NUL-parity rule applies, then best-of. When the decoded XML
// declares its own encoding, the payload is re-decoded with it and the
// declared result is adopted unless it scores worse.
func DecodeXMP(b []byte) string {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		s, _ := Decode(b[3:], UTF8)
		return s
	}
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		s, _ := Decode(b[2:], UTF16BE)
		return s
	}
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE {
		s, _ := Decode(b[2:], UTF16LE)
		return s
	}
	if isUTF16, le := UTF16Hint(b); isUTF16 {
		enc := UTF16BE
		if le {
			enc = UTF16LE
		}
		s, _ := Decode(b, enc)
		return s
	}
	s, _ := DecodeBest(b, []Encoding{UTF8, UTF16LE, UTF16BE, ShiftJIS, Latin1})
	if m := encodingDeclRe.FindStringSubmatch(s); m != nil {
		if enc, ok := encodingByName(m[1], b); ok {
			declared, _ := Decode(b, enc)
			if SDScore(declared) >= SDScore(s) {
				return declared
			}
		}
	}
	return s
}

// RepairUTF16 fixes strings that were decoded with the wrong UTF-16
// endianness upstream. When at least 30% of the code units have a zero low
// byte, the units are reassembled as a big-endian byte stream and re-decoded
// as UTF-16LE; the repair is kept only when it scores better.
func RepairUTF16(s string) string {
	if s == "" {
		return s
	}
	units := utf16.Encode([]rune(s))
	zeroLow := 0
	for _, u := range units {
		if u&0xFF == 0 {
			zeroLow++
		}
	}
	if float64(zeroLow)/float64(len(units)) < 0.3 {
		return s
	}
	raw := make([]byte, 0, len(units)*2)
	for _, u := range units {
		raw = append(raw, byte(u>>8), byte(u))
	}
	repaired, _ := Decode(raw, UTF16LE)
	repaired = StripNULs(repaired)
	if SDScore(repaired) > SDScore(s) {
		return repaired
	}
	return s
}

// LooksGarbled reports whether a decoded parameter block is unusable:
// replacement characters, embedded NULs, or mostly non-ASCII with almost no
// ASCII letters.
func LooksGarbled(s string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsRune(s, '�') || strings.ContainsRune(s, 0) {
		return true
	}
	total, high, letters := 0, 0, 0
	for _, r := range s {
		total++
		if r > 0x7F {
			high++
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	if total == 0 {
		return false
	}
	return float64(high)/float64(total) > 0.5 && float64(letters)/float64(total) < 0.1
}
