package meta

import (
	"sort"
	"strconv"
	"strings"
)

// comfyNode is one workflow-graph node: a class_type plus a heterogeneous
// inputs map. Connections inside inputs look like [source_node_id, output].
type comfyNode struct {
	classType string
	inputs    map[string]any
}

// samplerInputMap maps KSampler inputs onto normalized field names.
var samplerInputMap = []struct{ input, field string }{
	{"seed", "seed"},
	{"steps", "steps"},
	{"cfg", "cfg_scale"},
	{"sampler_name", "sampler"},
	{"scheduler", "scheduler"},
	{"denoise", "denoise"},
}

// extractComfy recognizes a ComfyUI graph among the parsed *_json fields
// and returns the normalized generation fields from its first sampler node.
// The first candidate graph that yields a sampler wins.
func extractComfy(fields map[string]any) map[string]any {
	for _, graph := range comfyCandidateGraphs(fields) {
		if out, ok := extractFromGraph(graph); ok {
			return out
		}
	}
	return nil
}

// comfyCandidateGraphs collects candidate id→node maps in deterministic
// order: prompt_json, workflow_json (with a nodes-array projected to a
// map), then any other *_json value exposing an object-typed prompt or
// workflow attribute.
func comfyCandidateGraphs(fields map[string]any) []map[string]any {
	var out []map[string]any

	appendValue := func(v any) {
		obj, ok := v.(map[string]any)
		if !ok {
			return
		}
		if nodes, ok := obj["nodes"].([]any); ok {
			if projected := projectNodeList(nodes); projected != nil {
				out = append(out, projected)
				return
			}
		}
		out = append(out, obj)
	}

	if v, ok := fields["prompt_json"]; ok {
		appendValue(v)
	}
	if v, ok := fields["workflow_json"]; ok {
		appendValue(v)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "prompt_json" || k == "workflow_json" || !strings.HasSuffix(k, "_json") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		obj, ok := fields[k].(map[string]any)
		if !ok {
			continue
		}
		for _, attr := range []string{"prompt", "workflow"} {
			if v, ok := obj[attr]; ok {
				appendValue(v)
			}
		}
	}
	return out
}

// projectNodeList turns a workflow-export nodes array into an id→node map.
func projectNodeList(nodes []any) map[string]any {
	out := map[string]any{}
	for _, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			continue
		}
		id, ok := coerceNodeID(node["id"])
		if !ok {
			continue
		}
		out[id] = node
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseGraph validates the graph shape: at least one value must be a node
// object with a string class_type.
func parseGraph(graph map[string]any) (map[string]comfyNode, []string, bool) {
	nodes := make(map[string]comfyNode, len(graph))
	ids := make([]string, 0, len(graph))
	for id, v := range graph {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		classType, ok := obj["class_type"].(string)
		if !ok {
			continue
		}
		inputs, _ := obj["inputs"].(map[string]any)
		nodes[id] = comfyNode{classType: classType, inputs: inputs}
		ids = append(ids, id)
	}
	if len(nodes) == 0 {
		return nil, nil, false
	}
	sortNodeIDs(ids)
	return nodes, ids, true
}

// sortNodeIDs orders ids numerically when possible, lexicographically
// otherwise, so "first node" is deterministic.
func sortNodeIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, aErr := strconv.Atoi(ids[i])
		b, bErr := strconv.Atoi(ids[j])
		if aErr == nil && bErr == nil {
			return a < b
		}
		if aErr == nil != (bErr == nil) {
			return aErr == nil
		}
		return ids[i] < ids[j]
	})
}

func extractFromGraph(graph map[string]any) (map[string]any, bool) {
	nodes, ids, ok := parseGraph(graph)
	if !ok {
		return nil, false
	}

	var sampler comfyNode
	found := false
	for _, id := range ids {
		if strings.HasPrefix(nodes[id].classType, "KSampler") {
			sampler = nodes[id]
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	out := map[string]any{"generator": "ComfyUI"}
	for _, mapping := range samplerInputMap {
		if v, ok := sampler.inputs[mapping.input]; ok && isScalar(v) {
			out[mapping.field] = v
		}
	}
	if text, ok := resolvePromptInput(nodes, sampler.inputs["positive"]); ok {
		out["prompt"] = text
	}
	if text, ok := resolvePromptInput(nodes, sampler.inputs["negative"]); ok {
		out["negative_prompt"] = text
	}
	return out, true
}

// resolvePromptInput follows a sampler connection ([id, output] or a bare
// id) to its text-encoder node and pulls the prompt text: inputs.text when
// it is a string, otherwise text_g and text_l joined with a space.
func resolvePromptInput(nodes map[string]comfyNode, ref any) (string, bool) {
	var id string
	var ok bool
	switch t := ref.(type) {
	case []any:
		if len(t) == 0 {
			return "", false
		}
		id, ok = coerceNodeID(t[0])
	default:
		id, ok = coerceNodeID(ref)
	}
	if !ok {
		return "", false
	}
	node, exists := nodes[id]
	if !exists {
		return "", false
	}
	if text, ok := node.inputs["text"].(string); ok {
		return text, true
	}
	var parts []string
	if g, ok := node.inputs["text_g"].(string); ok {
		parts = append(parts, g)
	}
	if l, ok := node.inputs["text_l"].(string); ok {
		parts = append(parts, l)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

func coerceNodeID(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, float64, bool:
		return true
	}
	return false
}
