package meta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"sdmeta/internal/textenc"
)

// 137 80 78 71 13 10 26 10
var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// parsePNG walks the chunk stream and collects tEXt, zTXt and iTXt chunks
// into the raw map, keyed by each chunk's keyword. CRCs are ignored; a chunk
// that fails to decode is skipped.
func parsePNG(data []byte, m *ImageMeta) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:8], pngSignature) {
		return
	}

	offset := 8
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		chunkType := string(data[offset+4 : offset+8])
		dataStart := offset + 8
		dataEnd := dataStart + length
		if length < 0 || dataEnd > len(data) {
			break // truncated chunk; keep what we have
		}
		chunk := data[dataStart:dataEnd]

		switch chunkType {
		case "tEXt":
			if key, value, ok := parseTEXt(chunk); ok {
				m.Raw[key] = value
			}
		case "zTXt":
			if key, value, ok := parseZTXt(chunk); ok {
				m.Raw[key] = value
			}
		case "iTXt":
			if key, value, ok := parseITXt(chunk); ok {
				m.Raw[key] = value
			}
		case "IEND":
			offset = len(data)
			continue
		}

		// header (8) + data + CRC (4)
		offset = dataEnd + 4
	}

	resolveParameters(data, m, nil)
}

// tEXt: keyword, NUL, text. Both halves are Latin-1.
func parseTEXt(chunk []byte) (key, value string, ok bool) {
	nul := bytes.IndexByte(chunk, 0)
	if nul == -1 {
		return "", "", false
	}
	key, _ = textenc.Decode(chunk[:nul], textenc.Latin1)
	value, _ = textenc.Decode(chunk[nul+1:], textenc.Latin1)
	return key, value, key != ""
}

// zTXt: keyword, NUL, compression method (0 = deflate), zlib stream.
func parseZTXt(chunk []byte) (key, value string, ok bool) {
	nul := bytes.IndexByte(chunk, 0)
	if nul == -1 || nul+2 > len(chunk) {
		return "", "", false
	}
	if chunk[nul+1] != 0 {
		return "", "", false
	}
	raw, err := inflate(chunk[nul+2:])
	if err != nil {
		return "", "", false
	}
	key, _ = textenc.Decode(chunk[:nul], textenc.Latin1)
	value, _ = textenc.Decode(raw, textenc.Latin1)
	return key, value, key != ""
}

// iTXt: keyword NUL, compression flag, compression method, language tag NUL,
// translated keyword NUL, UTF-8 text (deflated when the flag is set).
func parseITXt(chunk []byte) (key, value string, ok bool) {
	nul := bytes.IndexByte(chunk, 0)
	if nul == -1 || nul+3 > len(chunk) {
		return "", "", false
	}
	keyBytes := chunk[:nul]
	compFlag := chunk[nul+1]
	compMethod := chunk[nul+2]
	rest := chunk[nul+3:]

	langEnd := bytes.IndexByte(rest, 0)
	if langEnd == -1 {
		return "", "", false
	}
	rest = rest[langEnd+1:]
	transEnd := bytes.IndexByte(rest, 0)
	if transEnd == -1 {
		return "", "", false
	}
	text := rest[transEnd+1:]

	if compFlag == 1 {
		if compMethod != 0 {
			return "", "", false
		}
		raw, err := inflate(text)
		if err != nil {
			return "", "", false
		}
		text = raw
	}

	key, keyOK := textenc.Decode(keyBytes, textenc.UTF8)
	if !keyOK || key == "" {
		return "", "", false
	}
	// Keyword and text are UTF-8 per the PNG standard; some producers write
	// other encodings here, so a failed strict pass falls back to best-of.
	value, valueOK := textenc.Decode(text, textenc.UTF8)
	if !valueOK {
		value = textenc.DecodeText(text)
	}
	return key, value, true
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
