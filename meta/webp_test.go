package meta_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"sdmeta/meta"
)

func webpChunk(tag string, data []byte) []byte {
	out := []byte(tag)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(data)))
	out = append(out, size[:]...)
	out = append(out, data...)
	if len(data)%2 == 1 {
		out = append(out, 0) // even padding
	}
	return out
}

func buildWebP(chunks ...[]byte) []byte {
	payload := []byte("WEBP")
	for _, c := range chunks {
		payload = append(payload, c...)
	}
	out := []byte("RIFF")
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(payload)))
	out = append(out, size[:]...)
	return append(out, payload...)
}

func TestParseWebPEXIFWithoutPrefix(t *testing.T) {
	payload := append([]byte("UNICODE\x00"), utf16leBytes(userCommentText)...)
	// The EXIF chunk starts directly at the TIFF header; the reader must
	// supply the missing Exif\0\0 prefix.
	img := buildWebP(
		webpChunk("VP8 ", []byte{1, 2, 3}), // odd size, padded
		webpChunk("EXIF", buildTIFF(binary.LittleEndian, payload)),
	)

	m := meta.Parse(img, "webp")
	require.Equal(t, meta.FormatWebP, m.Format)
	require.Equal(t, userCommentText, m.Raw["EXIF"])
	require.Equal(t, userCommentText, m.Raw["parameters"])
	require.Equal(t, "10", m.Fields["Steps"])
	require.Equal(t, "DDIM", m.Fields["Sampler"])
}

func TestParseWebPEXIFWithPrefix(t *testing.T) {
	payload := append([]byte("UNICODE\x00"), utf16leBytes(userCommentText)...)
	exif := append([]byte("Exif\x00\x00"), buildTIFF(binary.LittleEndian, payload)...)
	img := buildWebP(webpChunk("EXIF", exif))

	m := meta.Parse(img, "webp")
	require.Equal(t, userCommentText, m.Raw["parameters"])
}

func TestParseWebPXMP(t *testing.T) {
	xml := `<x:xmpmeta parameters="a cat&#10;Negative prompt: blurry&#10;Steps: 5"/>`
	img := buildWebP(webpChunk("XMP ", []byte(xml)))

	m := meta.Parse(img, "webp")
	require.Equal(t, xml, m.Raw["XMP"])
	require.Equal(t, "a cat\nNegative prompt: blurry\nSteps: 5", m.Raw["parameters"])
	require.Equal(t, "5", m.Fields["Steps"])
}

func TestParseNotAWebP(t *testing.T) {
	m := meta.Parse([]byte("RIFFxxxxWAVE"), "webp")
	require.Equal(t, meta.FormatWebP, m.Format)
	require.Empty(t, m.Raw)
}
