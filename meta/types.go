package meta

// Format is the container format a result was extracted from.
type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// ImageMeta is the result of one extraction. Raw maps source keys to the
// exact decoded text of each source; Fields holds the normalized view with
// JSON-shaped values (string, float64, bool, map, slice).
type ImageMeta struct {
	Format Format            `json:"format"`
	Fields map[string]any    `json:"fields"`
	Raw    map[string]string `json:"raw"`
}

// candidate is one parameter-block source flowing through selection.
// Candidates are kept in priority order: EXIF before XMP attributes before
// XMP text before the JPEG comment.
type candidate struct {
	source string
	text   string
}
