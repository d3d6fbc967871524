package meta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractA1111Block(t *testing.T) {
	text := "a cat\nNegative prompt: blurry\nSteps: 20, Sampler: Euler\ntrailing junk"
	block, ok := extractA1111Block(text)
	require.True(t, ok)
	require.Equal(t, "a cat\nNegative prompt: blurry\nSteps: 20, Sampler: Euler", block)

	// No settings line: the whole text is the block.
	block, ok = extractA1111Block("a cat\nNegative prompt: blurry")
	require.True(t, ok)
	require.Equal(t, "a cat\nNegative prompt: blurry", block)

	// Settings line without Steps still terminates the block.
	block, ok = extractA1111Block("a cat\nNegative prompt: x\nSeed: 9\nmore")
	require.True(t, ok)
	require.Equal(t, "a cat\nNegative prompt: x\nSeed: 9", block)

	_, ok = extractA1111Block("no parameters here")
	require.False(t, ok)
}

func TestExtractA1111BlockIdempotent(t *testing.T) {
	text := "prefix garbage Negative prompt: blurry\nSteps: 20\ntail"
	block, ok := extractA1111Block(text)
	require.True(t, ok)
	again, ok := extractA1111Block(block)
	require.True(t, ok)
	require.Equal(t, block, again)
}

func TestSelectParametersPriority(t *testing.T) {
	// Identical blocks: the earlier (higher-priority) source wins the tie.
	block := "a cat\nNegative prompt: blurry\nSteps: 20"
	selected, ok := selectParameters([]candidate{
		{source: "EXIF:UserComment", text: block},
		{source: "Comment", text: block},
	})
	require.True(t, ok)
	require.Equal(t, block, selected)

	// A richer block in a lower-priority source still wins on score.
	rich := "a cat\nNegative prompt: blurry\nSteps: 20, Sampler: Euler, CFG scale: 7, Seed: 1, Size: 512x512"
	selected, ok = selectParameters([]candidate{
		{source: "EXIF:UserComment", text: "meh Negative prompt: x"},
		{source: "Comment", text: rich},
	})
	require.True(t, ok)
	require.Equal(t, rich, selected)

	_, ok = selectParameters(nil)
	require.False(t, ok)
}

func TestForgeToA1111(t *testing.T) {
	obj := map[string]any{
		"prompt":         "a fox  ",
		"negativePrompt": "cartoon",
		"steps":          float64(30),
		"sampler":        "Euler",
		"cfgScale":       7.5,
		"seed":           float64(7),
		"width":          float64(512),
		"height":         float64(768),
		"hashes":         map[string]any{"model": "abc123"},
	}
	text, ok := forgeToA1111(obj)
	require.True(t, ok)
	require.Equal(t,
		"a fox\nNegative prompt: cartoon\nSteps: 30, Sampler: Euler, CFG scale: 7.5, Seed: 7, Size: 512x768, Model: abc123",
		text)

	// The converted text round-trips through the locator unchanged.
	block, ok := extractA1111Block(text)
	require.True(t, ok)
	require.Equal(t, text, block)

	// The negative label is emitted even with no negative prompt.
	text, ok = forgeToA1111(map[string]any{"prompt": "x", "steps": float64(1)})
	require.True(t, ok)
	require.Equal(t, "x\nNegative prompt: \nSteps: 1", text)

	_, ok = forgeToA1111(map[string]any{"steps": float64(1)})
	require.False(t, ok)
}

func TestSplitSettingsLine(t *testing.T) {
	pairs := splitSettingsLine("Steps: 20, Sampler: Euler, Seed: 42")
	require.Equal(t, []string{"Steps: 20", "Sampler: Euler", "Seed: 42"}, pairs)

	// A segment without a colon keeps the whole line together.
	pairs = splitSettingsLine("Model: foo, bar")
	require.Equal(t, []string{"Model: foo, bar"}, pairs)
}

func TestExtractComfyTextGL(t *testing.T) {
	graph := map[string]any{
		"10": map[string]any{"class_type": "KSamplerAdvanced", "inputs": map[string]any{
			"steps":    float64(12),
			"positive": []any{"4", float64(0)},
		}},
		"4": map[string]any{"class_type": "CLIPTextEncodeSDXL", "inputs": map[string]any{
			"text_g": "a castle",
			"text_l": "detailed",
		}},
	}
	out := extractComfy(map[string]any{"prompt_json": graph})
	require.NotNil(t, out)
	require.Equal(t, "ComfyUI", out["generator"])
	require.Equal(t, float64(12), out["steps"])
	require.Equal(t, "a castle detailed", out["prompt"])
}

func TestExtractComfyWorkflowNodeList(t *testing.T) {
	workflow := map[string]any{
		"nodes": []any{
			map[string]any{"id": float64(3), "class_type": "KSampler", "inputs": map[string]any{
				"seed":     float64(5),
				"positive": "6",
			}},
			map[string]any{"id": float64(6), "class_type": "CLIPTextEncode", "inputs": map[string]any{
				"text": "a ship",
			}},
		},
	}
	out := extractComfy(map[string]any{"workflow_json": workflow})
	require.NotNil(t, out)
	require.Equal(t, float64(5), out["seed"])
	require.Equal(t, "a ship", out["prompt"])
}

func TestExtractComfyFirstSamplerByNodeOrder(t *testing.T) {
	graph := map[string]any{
		"12": map[string]any{"class_type": "KSampler", "inputs": map[string]any{"seed": float64(2)}},
		"3":  map[string]any{"class_type": "KSampler", "inputs": map[string]any{"seed": float64(1)}},
	}
	out := extractComfy(map[string]any{"prompt_json": graph})
	require.NotNil(t, out)
	require.Equal(t, float64(1), out["seed"])
}

func TestExtractComfyNoSampler(t *testing.T) {
	graph := map[string]any{
		"1": map[string]any{"class_type": "CLIPTextEncode", "inputs": map[string]any{"text": "x"}},
	}
	require.Nil(t, extractComfy(map[string]any{"prompt_json": graph}))
	require.Nil(t, extractComfy(map[string]any{}))
}
