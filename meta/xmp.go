package meta

import (
	"html"
	"regexp"
)

// xmpAttribute is one parameter-bearing attribute lifted out of an XMP
// packet.
type xmpAttribute struct {
	name  string
	value string
}

var xmpAttrKeys = []string{"sd-metadata", "sd_metadata", "parameters", "Parameters"}

// One pattern per quote style; Go's regexp has no backreferences.
var xmpAttrPatterns = func() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(xmpAttrKeys))
	for _, key := range xmpAttrKeys {
		quoted := regexp.QuoteMeta(key)
		out[key] = []*regexp.Regexp{
			regexp.MustCompile(`(?s)` + quoted + `\s*=\s*"(.*?)"`),
			regexp.MustCompile(`(?s)` + quoted + `\s*=\s*'(.*?)'`),
		}
	}
	return out
}()

// extractXMPAttributes pulls known generation-parameter attributes out of
// the combined XMP text, HTML-unescaping each captured value.
func extractXMPAttributes(xmpText string) []xmpAttribute {
	var out []xmpAttribute
	for _, key := range xmpAttrKeys {
		bestPos := -1
		value := ""
		for _, re := range xmpAttrPatterns[key] {
			loc := re.FindStringSubmatchIndex(xmpText)
			if loc == nil {
				continue
			}
			if bestPos == -1 || loc[0] < bestPos {
				bestPos = loc[0]
				value = xmpText[loc[2]:loc[3]]
			}
		}
		if bestPos != -1 {
			out = append(out, xmpAttribute{name: key, value: html.UnescapeString(value)})
		}
	}
	return out
}
