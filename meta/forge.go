package meta

import (
	"fmt"
	"strconv"
	"strings"
)

// forgeToA1111 renders a Forge-style JSON metadata object as A1111 text:
// prompt line, "Negative prompt:" line (label always emitted), then a
// comma-joined settings line with only the fields that are set.
func forgeToA1111(obj map[string]any) (string, bool) {
	prompt, ok := firstValue(obj, "prompt", "Prompt")
	if !ok {
		return "", false
	}

	negative, _ := firstValue(obj, "negativePrompt", "Negative prompt", "negative_prompt")

	var settings []string
	if v, ok := firstValue(obj, "steps", "Steps"); ok {
		settings = append(settings, "Steps: "+v)
	}
	if v, ok := firstValue(obj, "sampler", "Sampler"); ok {
		settings = append(settings, "Sampler: "+v)
	}
	if v, ok := firstValue(obj, "cfgScale", "cfg", "CFG scale"); ok {
		settings = append(settings, "CFG scale: "+v)
	}
	if v, ok := firstValue(obj, "seed", "Seed"); ok {
		settings = append(settings, "Seed: "+v)
	}
	if w, wok := firstValue(obj, "width", "Width"); wok {
		if h, hok := firstValue(obj, "height", "Height"); hok {
			settings = append(settings, "Size: "+w+"x"+h)
		}
	}
	if v, ok := firstValue(obj, "model", "Model"); ok {
		settings = append(settings, "Model: "+v)
	} else if hashes, ok := obj["hashes"].(map[string]any); ok {
		if v, ok := firstValue(hashes, "model"); ok {
			settings = append(settings, "Model: "+v)
		}
	}

	lines := []string{
		strings.TrimRight(prompt, " \t\r\n"),
		negPromptLabel + " " + negative,
	}
	if len(settings) > 0 {
		lines = append(lines, strings.Join(settings, ", "))
	}
	return strings.Join(lines, "\n"), true
}

// looksForgeShaped guards the recovery JSON scan: a Forge object carries a
// prompt plus at least one generation setting.
func looksForgeShaped(obj map[string]any) bool {
	if _, ok := firstValue(obj, "prompt", "Prompt"); !ok {
		return false
	}
	for _, key := range []string{
		"negativePrompt", "Negative prompt", "negative_prompt",
		"steps", "Steps", "sampler", "Sampler", "cfgScale", "cfg", "CFG scale",
		"seed", "Seed", "width", "Width", "model", "Model", "hashes",
	} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

// firstValue returns the first present key rendered as text. JSON numbers
// print without a trailing ".0".
func firstValue(obj map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t, true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		default:
			return fmt.Sprint(t), true
		}
	}
	return "", false
}
