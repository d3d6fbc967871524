package meta

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	lineSplitRe = regexp.MustCompile(`\r?\n`)
	kvLineRe    = regexp.MustCompile(`^([^:]+):\s*(.*)$`)
)

// promptRawKeys are raw entries copied into fields with whitespace collapsed
// to underscores.
var promptRawKeys = []string{"prompt", "negative_prompt", "Prompt", "Negative prompt"}

// normalize derives the fields map from the raw map: the A1111 parameters
// breakdown, JSON-shaped raw values under <key>_json, and the ComfyUI graph
// fields when a workflow is present.
func normalize(m *ImageMeta) {
	if params, ok := m.Raw["parameters"]; ok {
		normalizeParameters(m.Fields, params)
	}
	for _, k := range promptRawKeys {
		if v, ok := m.Raw[k]; ok {
			m.Fields[collapseKey(k)] = v
		}
	}

	rawKeys := make([]string, 0, len(m.Raw))
	for k := range m.Raw {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)
	for _, k := range rawKeys {
		if v, ok := parseJSONValue(m.Raw[k]); ok {
			m.Fields[k+"_json"] = v
		}
	}

	for k, v := range extractComfy(m.Fields) {
		m.Fields[k] = v
	}
}

// normalizeParameters breaks an A1111 block into fields. The raw block is
// kept byte-for-byte under parameters_raw; the first line is the prompt;
// later lines become key/value pairs, with the comma-joined settings line
// split into one pair per setting.
func normalizeParameters(fields map[string]any, params string) {
	fields["parameters_raw"] = params
	lines := lineSplitRe.Split(params, -1)
	fields["prompt"] = lines[0]
	for _, line := range lines[1:] {
		for _, pair := range splitSettingsLine(line) {
			if match := kvLineRe.FindStringSubmatch(pair); match != nil {
				fields[strings.TrimSpace(match[1])] = strings.TrimSpace(match[2])
			}
		}
	}
}

// splitSettingsLine splits a line on commas only when every segment is
// key:value shaped, so prompts and values containing commas stay intact.
func splitSettingsLine(line string) []string {
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return []string{line}
	}
	for _, p := range parts {
		if !kvLineRe.MatchString(strings.TrimSpace(p)) {
			return []string{line}
		}
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// parseJSONValue parses v when it is brace- or bracket-delimited JSON.
func parseJSONValue(v string) (any, bool) {
	t := strings.TrimSpace(v)
	if len(t) < 2 {
		return nil, false
	}
	braced := t[0] == '{' && t[len(t)-1] == '}'
	bracketed := t[0] == '[' && t[len(t)-1] == ']'
	if !braced && !bracketed {
		return nil, false
	}
	if !gjson.Valid(t) {
		return nil, false
	}
	var out any
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return nil, false
	}
	return out, true
}

func collapseKey(k string) string {
	return strings.Join(strings.Fields(k), "_")
}
