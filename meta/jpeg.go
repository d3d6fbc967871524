package meta

import (
	"bytes"
	"encoding/binary"
	"sort"

	"sdmeta/internal/textenc"
)

var (
	exifHeader      = []byte("Exif\x00\x00")
	xmpStdSig       = []byte("http://ns.adobe.com/xap/1.0")
	xmpExtendedSig  = []byte("http://ns.adobe.com/xmp/extension/")
	extXMPGuidLen   = 32
	extXMPHeaderLen = extXMPGuidLen + 8 // GUID + total:u32be + offset:u32be
)

// xmpAssembly accumulates Extended XMP segments for one GUID.
type xmpAssembly struct {
	total  uint32
	chunks map[uint32][]byte
}

// parseJPEG walks the marker stream collecting APP1 EXIF, APP1 XMP
// (standard and Adobe Extended) and COM segments, then selects the best
// parameter block among the decoded sources.
func parseJPEG(data []byte, m *ImageMeta) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return
	}

	var exifPayload []byte
	var xmpStd [][]byte
	extended := map[string]*xmpAssembly{}
	comment := ""

	i := 2
walk:
	for i < len(data) {
		if data[i] != 0xFF {
			break
		}
		for i < len(data) && data[i] == 0xFF {
			i++ // fill bytes
		}
		if i >= len(data) {
			break
		}
		marker := data[i]
		i++

		switch {
		case marker == 0xD9 || marker == 0xDA: // EOI / SOS
			break walk
		case marker >= 0xD0 && marker <= 0xD7: // restart, no length
			continue
		case marker == 0x01: // TEM, no length
			continue
		}

		if i+2 > len(data) {
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i : i+2]))
		if segLen < 2 || i+segLen > len(data) {
			break // truncated segment; retain what was collected
		}
		payload := data[i+2 : i+segLen]
		i += segLen

		switch marker {
		case 0xE1:
			switch {
			case bytes.HasPrefix(payload, exifHeader):
				exifPayload = payload // last EXIF wins
			case bytes.HasPrefix(payload, xmpExtendedSig):
				collectExtendedXMP(afterNUL(payload), extended)
			case bytes.HasPrefix(payload, xmpStdSig):
				xmpStd = append(xmpStd, afterNUL(payload))
			}
		case 0xFE:
			comment = textenc.DecodeText(payload)
		}
	}

	xmpText := assembleXMP(xmpStd, extended)

	exifFields := parseEXIF(exifPayload)
	addTextSources(m, exifFields, xmpText, comment)
	candidates := textSourceCandidates(exifFields, xmpText, comment)
	resolveParameters(data, m, candidates)
}

// afterNUL returns the bytes after the first NUL, dropping the signature.
func afterNUL(b []byte) []byte {
	idx := bytes.IndexByte(b, 0)
	if idx == -1 {
		return nil
	}
	return b[idx+1:]
}

// collectExtendedXMP records one Extended XMP segment: 32-byte ASCII GUID,
// declared total length, chunk offset, then payload.
func collectExtendedXMP(body []byte, extended map[string]*xmpAssembly) {
	if len(body) < extXMPHeaderLen {
		return
	}
	guid := string(body[:extXMPGuidLen])
	total := binary.BigEndian.Uint32(body[extXMPGuidLen : extXMPGuidLen+4])
	offset := binary.BigEndian.Uint32(body[extXMPGuidLen+4 : extXMPGuidLen+8])
	a := extended[guid]
	if a == nil {
		a = &xmpAssembly{chunks: map[uint32][]byte{}}
		extended[guid] = a
	}
	a.total = total
	a.chunks[offset] = body[extXMPHeaderLen:]
}

// assembleXMP decodes the standard fragments followed by each GUID's
// reassembled Extended XMP, truncated to its declared total.
func assembleXMP(std [][]byte, extended map[string]*xmpAssembly) string {
	var out string
	if len(std) > 0 {
		out = textenc.DecodeXMP(bytes.Join(std, nil))
	}

	guids := make([]string, 0, len(extended))
	for g := range extended {
		guids = append(guids, g)
	}
	sort.Strings(guids)

	for _, g := range guids {
		a := extended[g]
		offsets := make([]uint32, 0, len(a.chunks))
		for off := range a.chunks {
			offsets = append(offsets, off)
		}
		sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
		var assembled []byte
		for _, off := range offsets {
			assembled = append(assembled, a.chunks[off]...)
		}
		if a.total > 0 && uint32(len(assembled)) > a.total {
			assembled = assembled[:a.total]
		}
		if len(assembled) > 0 {
			out += textenc.DecodeXMP(assembled)
		}
	}
	return out
}

// addTextSources records the container-level raw entries shared by JPEG and
// WebP: the best EXIF-derived text, the combined XMP packet, the comment.
func addTextSources(m *ImageMeta, exifFields []exifField, xmpText, comment string) {
	for _, f := range exifFields {
		if f.value != "" {
			m.Raw["EXIF"] = f.value
			break
		}
	}
	if xmpText != "" {
		m.Raw["XMP"] = xmpText
	}
	if comment != "" {
		m.Raw["Comment"] = comment
	}
}

// textSourceCandidates orders parameter-block sources by priority:
// EXIF fields, XMP attribute values, the XMP text itself, the comment.
func textSourceCandidates(exifFields []exifField, xmpText, comment string) []candidate {
	var out []candidate
	for _, f := range exifFields {
		if f.value != "" {
			out = append(out, candidate{source: "EXIF:" + f.name, text: f.value})
		}
	}
	if xmpText != "" {
		for _, attr := range extractXMPAttributes(xmpText) {
			out = append(out, candidate{source: "XMP:" + attr.name, text: attr.value})
		}
		out = append(out, candidate{source: "XMP", text: xmpText})
	}
	if comment != "" {
		out = append(out, candidate{source: "Comment", text: comment})
	}
	return out
}
