// Package meta extracts Stable-Diffusion generation metadata embedded in
// PNG, JPEG and WebP files and normalizes it into a uniform record. It
// understands A1111-style parameter blocks and ComfyUI workflow graphs, and
// falls back to byte-level recovery when the regular extraction paths come
// up empty.
//
// The package is pure: no I/O, no logging, no shared state. Malformed input
// never produces an error, only less output.
package meta

import "strings"

// Parse extracts metadata from an in-memory image. formatHint names the
// container ("png", "jpg", "jpeg" or "webp", case-insensitive); anything
// else yields a result with Format "unknown" and empty maps. The container
// signature is still validated against the hint, so a mislabeled buffer
// degrades to an empty result rather than an error.
func Parse(data []byte, formatHint string) ImageMeta {
	m := ImageMeta{
		Format: FormatUnknown,
		Fields: map[string]any{},
		Raw:    map[string]string{},
	}
	switch strings.ToLower(formatHint) {
	case "png":
		m.Format = FormatPNG
		parsePNG(data, &m)
	case "jpg", "jpeg":
		m.Format = FormatJPEG
		parseJPEG(data, &m)
	case "webp":
		m.Format = FormatWebP
		parseWebP(data, &m)
	default:
		return m
	}
	normalize(&m)
	return m
}
