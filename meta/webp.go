package meta

import (
	"bytes"
	"encoding/binary"

	"sdmeta/internal/textenc"
)

// parseWebP walks the RIFF container for EXIF and "XMP " chunks. The EXIF
// chunk payload often starts directly at the TIFF header; the missing
// "Exif\x00\x00" prefix is prepended before handing it to the TIFF parser.
func parseWebP(data []byte, m *ImageMeta) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		return
	}

	var exifPayload []byte
	xmpText := ""

	offset := 12
	for offset+8 <= len(data) {
		tag := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		dataStart := offset + 8
		dataEnd := dataStart + size
		if size < 0 || dataEnd > len(data) {
			break // truncated chunk
		}
		chunk := data[dataStart:dataEnd]

		switch tag {
		case "EXIF":
			if bytes.HasPrefix(chunk, exifHeader) {
				exifPayload = chunk
			} else {
				exifPayload = append(append([]byte{}, exifHeader...), chunk...)
			}
		case "XMP ":
			xmpText = textenc.DecodeXMP(chunk)
		}

		// chunks are padded to even sizes
		offset = dataEnd + size&1
	}

	exifFields := parseEXIF(exifPayload)
	addTextSources(m, exifFields, xmpText, "")
	candidates := textSourceCandidates(exifFields, xmpText, "")
	resolveParameters(data, m, candidates)
}
