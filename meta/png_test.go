package meta_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"sdmeta/meta"
)

var pngSig = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func pngChunk(typ string, data []byte) []byte {
	out := make([]byte, 0, len(data)+12)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	out = append(out, length[:]...)
	out = append(out, typ...)
	out = append(out, data...)
	out = append(out, 0, 0, 0, 0) // CRC, not checked
	return out
}

func buildPNG(chunks ...[]byte) []byte {
	out := append([]byte{}, pngSig...)
	out = append(out, pngChunk("IHDR", make([]byte, 13))...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	out = append(out, pngChunk("IEND", nil)...)
	return out
}

func textChunk(key, value string) []byte {
	data := append([]byte(key), 0)
	data = append(data, value...)
	return pngChunk("tEXt", data)
}

const a1111Params = "a cat\nNegative prompt: blurry\nSteps: 20, Sampler: Euler, CFG scale: 7, Seed: 42, Size: 512x512"

func TestParseA1111Parameters(t *testing.T) {
	img := buildPNG(textChunk("parameters", a1111Params))

	m := meta.Parse(img, "png")
	require.Equal(t, meta.FormatPNG, m.Format)
	require.Equal(t, a1111Params, m.Raw["parameters"])
	require.Equal(t, a1111Params, m.Fields["parameters_raw"])
	require.Equal(t, "a cat", m.Fields["prompt"])
	require.Equal(t, "blurry", m.Fields["Negative prompt"])
	require.Equal(t, "20", m.Fields["Steps"])
	require.Equal(t, "Euler", m.Fields["Sampler"])
	require.Equal(t, "7", m.Fields["CFG scale"])
	require.Equal(t, "42", m.Fields["Seed"])
	require.Equal(t, "512x512", m.Fields["Size"])
}

func TestParseComfyWorkflow(t *testing.T) {
	workflow := `{
		"3": {"class_type": "KSampler", "inputs": {
			"seed": 42, "steps": 20, "cfg": 7.5,
			"sampler_name": "euler", "scheduler": "normal", "denoise": 1,
			"positive": ["6", 0], "negative": ["7", 0]
		}},
		"6": {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat"}},
		"7": {"class_type": "CLIPTextEncode", "inputs": {"text": "blurry"}}
	}`
	img := buildPNG(textChunk("prompt", workflow))

	m := meta.Parse(img, "png")
	require.Equal(t, workflow, m.Raw["prompt"])
	require.NotNil(t, m.Fields["prompt_json"])
	require.Equal(t, "ComfyUI", m.Fields["generator"])
	require.Equal(t, "a cat", m.Fields["prompt"])
	require.Equal(t, "blurry", m.Fields["negative_prompt"])
	require.Equal(t, float64(42), m.Fields["seed"])
	require.Equal(t, float64(20), m.Fields["steps"])
	require.Equal(t, 7.5, m.Fields["cfg_scale"])
	require.Equal(t, "euler", m.Fields["sampler"])
	require.Equal(t, "normal", m.Fields["scheduler"])
}

func TestParseZTXtChunk(t *testing.T) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write([]byte(a1111Params))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	data := append([]byte("parameters"), 0, 0) // keyword, NUL, method 0
	data = append(data, compressed.Bytes()...)
	img := buildPNG(pngChunk("zTXt", data))

	m := meta.Parse(img, "png")
	require.Equal(t, a1111Params, m.Raw["parameters"])
	require.Equal(t, "20", m.Fields["Steps"])
}

func TestParseITXtChunk(t *testing.T) {
	value := "a café\nNegative prompt: blurry\nSteps: 8"
	data := append([]byte("parameters"), 0, 0, 0) // keyword NUL, flag 0, method 0
	data = append(data, 0)                        // empty language tag
	data = append(data, 0)                        // empty translated keyword
	data = append(data, value...)
	img := buildPNG(pngChunk("iTXt", data))

	m := meta.Parse(img, "png")
	require.Equal(t, value, m.Raw["parameters"])
	require.Equal(t, "a café", m.Fields["prompt"])
	require.Equal(t, "8", m.Fields["Steps"])
}

func TestParseEmptyBuffer(t *testing.T) {
	m := meta.Parse(nil, "png")
	require.Equal(t, meta.FormatPNG, m.Format)
	require.Empty(t, m.Raw)
	require.Empty(t, m.Fields)

	m = meta.Parse(nil, "bmp")
	require.Equal(t, meta.FormatUnknown, m.Format)
	require.Empty(t, m.Raw)
	require.Empty(t, m.Fields)
}

func TestParseBadSignature(t *testing.T) {
	m := meta.Parse([]byte("not a png at all"), "png")
	require.Equal(t, meta.FormatPNG, m.Format)
	require.Empty(t, m.Raw)
}

func TestParseIENDOnly(t *testing.T) {
	img := append([]byte{}, pngSig...)
	img = append(img, pngChunk("IEND", nil)...)

	m := meta.Parse(img, "png")
	require.Empty(t, m.Raw)
	require.Empty(t, m.Fields)
}

func TestParseTruncatedChunk(t *testing.T) {
	img := append([]byte{}, pngSig...)
	img = append(img, textChunk("parameters", a1111Params)...)
	// Declare a chunk longer than the remaining bytes; the walk stops there.
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], 4096)
	img = append(img, length[:]...)
	img = append(img, "tEXt"...)
	img = append(img, "par"...)

	m := meta.Parse(img, "png")
	require.Equal(t, a1111Params, m.Raw["parameters"])
}

func TestRecoverTrailingText(t *testing.T) {
	// Parameter text dangling after IEND is not a chunk, but the whole-file
	// re-decode pass still finds it.
	img := append([]byte{}, pngSig...)
	img = append(img, pngChunk("IEND", nil)...)
	img = append(img, "Negative prompt: hazy\nSteps: 4"...)

	m := meta.Parse(img, "png")
	require.Contains(t, m.Raw["parameters"], "Negative prompt: hazy")
	require.Contains(t, m.Raw["parameters"], "Steps: 4")
}

func TestPromptKeyCopies(t *testing.T) {
	img := buildPNG(
		textChunk("prompt", "a dog"),
		textChunk("negative_prompt", "cartoon"),
	)

	m := meta.Parse(img, "png")
	require.Equal(t, "a dog", m.Fields["prompt"])
	require.Equal(t, "cartoon", m.Fields["negative_prompt"])
}
