package meta

import (
	"bytes"
	"encoding/binary"
	"strings"

	"sdmeta/internal/textenc"
)

const (
	tagImageDescription = 0x010E
	tagExifIFDPointer   = 0x8769
	tagUserComment      = 0x9286
	tagXPTitle          = 0x9C9B
	tagXPComment        = 0x9C9C
)

// exifField is one decoded EXIF text, in candidate priority order.
type exifField struct {
	name  string
	value string
}

// TIFF value sizes by field type (BYTE, ASCII, SHORT, LONG, RATIONAL,
// SBYTE, UNDEFINED, SSHORT, SLONG, SRATIONAL, FLOAT, DOUBLE).
var tiffTypeSizes = map[uint16]int{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// parseEXIF extracts the text-bearing tags from an EXIF payload. The
// payload must start with "Exif\x00\x00" followed by a TIFF block; all TIFF
// offsets are relative to the byte after that header. Every decoded string
// goes through the UTF-16 mis-decode repair pass. A nil or malformed
// payload yields no fields.
func parseEXIF(payload []byte) []exifField {
	if len(payload) < len(exifHeader)+8 || !bytes.HasPrefix(payload, exifHeader) {
		return nil
	}
	tiff := payload[len(exifHeader):]

	var bo binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil
	}
	if bo.Uint16(tiff[2:4]) != 42 {
		return nil
	}

	var userComment, imageDescription, xpComment, xpTitle string

	ifd0 := bo.Uint32(tiff[4:8])
	forEachEntry(tiff, ifd0, bo, func(tag uint16, value []byte) {
		switch tag {
		case tagImageDescription:
			imageDescription = textenc.DecodeText(trimTrailingNULs(value))
		case tagUserComment:
			userComment = textenc.DecodeUserComment(value)
		case tagXPComment:
			xpComment = decodeXPText(value)
		case tagXPTitle:
			xpTitle = decodeXPText(value)
		case tagExifIFDPointer:
			if len(value) >= 4 {
				// Endian-aware read of the sub-IFD offset.
				sub := bo.Uint32(value[:4])
				forEachEntry(tiff, sub, bo, func(subTag uint16, subValue []byte) {
					if subTag == tagUserComment {
						userComment = textenc.DecodeUserComment(subValue)
					}
				})
			}
		}
	})

	var out []exifField
	for _, f := range []exifField{
		{"UserComment", userComment},
		{"ImageDescription", imageDescription},
		{"XPComment", xpComment},
		{"XPTitle", xpTitle},
	} {
		if f.value != "" {
			f.value = textenc.RepairUTF16(f.value)
			out = append(out, f)
		}
	}
	return out
}

// forEachEntry walks one IFD, resolving each entry's value bytes either
// inline (typeSize×count ≤ 4) or through the offset field. Out-of-range
// entries are skipped silently.
func forEachEntry(tiff []byte, ifdOffset uint32, bo binary.ByteOrder, fn func(tag uint16, value []byte)) {
	off := int(ifdOffset)
	if off < 0 || off+2 > len(tiff) {
		return
	}
	count := int(bo.Uint16(tiff[off : off+2]))
	off += 2
	for i := 0; i < count; i++ {
		if off+12 > len(tiff) {
			return
		}
		entry := tiff[off : off+12]
		off += 12

		tag := bo.Uint16(entry[0:2])
		fieldType := bo.Uint16(entry[2:4])
		valueCount := int(bo.Uint32(entry[4:8]))
		typeSize, ok := tiffTypeSizes[fieldType]
		if !ok || valueCount < 0 {
			continue
		}
		size := typeSize * valueCount
		var value []byte
		if size <= 4 {
			value = entry[8 : 8+size]
		} else {
			valueOff := int(bo.Uint32(entry[8:12]))
			if valueOff < 0 || valueOff+size > len(tiff) {
				continue
			}
			value = tiff[valueOff : valueOff+size]
		}
		fn(tag, value)
	}
}

// decodeXPText decodes the XPComment/XPTitle byte array: UTF-16LE with
// trailing NULs stripped.
func decodeXPText(b []byte) string {
	s, _ := textenc.Decode(b, textenc.UTF16LE)
	return strings.TrimRight(s, "\x00")
}

func trimTrailingNULs(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}
