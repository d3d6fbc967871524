package meta

import (
	"regexp"
	"strings"
)

// The A1111 convention: prompt line(s), a "Negative prompt:" line, then a
// final comma-separated settings line. The block is returned byte-for-byte
// from the source text; no trimming or normalization.

const negPromptLabel = "Negative prompt:"

var (
	stepsLineRe    = regexp.MustCompile(`(?im)^[\t ]*Steps:[^\n]*`)
	settingsLineRe = regexp.MustCompile(`(?im)^[\t ]*(?:Sampler|CFG scale|Seed|Size|Model|Schedule type|Denoising strength|Hires steps):[^\n]*`)
)

// extractA1111Block locates an A1111 parameter block inside text: everything
// from the start of the source through the end of the first settings line
// after "Negative prompt:". Without a settings line the whole source is the
// block; without the negative-prompt label there is no block.
func extractA1111Block(text string) (string, bool) {
	idx := strings.Index(text, negPromptLabel)
	if idx == -1 {
		return "", false
	}
	nl := strings.IndexByte(text[idx:], '\n')
	if nl == -1 {
		return text, true
	}
	tailStart := idx + nl + 1
	tail := text[tailStart:]

	loc := stepsLineRe.FindStringIndex(tail)
	if loc == nil {
		loc = settingsLineRe.FindStringIndex(tail)
	}
	if loc == nil {
		return text, true
	}
	return text[:tailStart+loc[1]], true
}

// scoreParameterBlock rates an extracted block for candidate selection.
func scoreParameterBlock(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	if strings.Contains(lower, "negative prompt:") {
		score += 5
	}
	if strings.Contains(lower, "steps:") {
		score += 4
	}
	for _, label := range []string{"sampler:", "cfg scale:", "seed:", "size:"} {
		if strings.Contains(lower, label) {
			score += 2
		}
	}
	switch n := countNonEmptyLines(text); {
	case n == 3:
		score += 3
	case n == 2:
		score += 2
	case n >= 4:
		score++
	}
	if len(text) > 50 && len(text) < 4000 {
		score++
	}
	return score
}

func countNonEmptyLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// selectParameters runs the locator over each candidate source and keeps the
// highest-scoring block. Candidates arrive in source-priority order, and
// earlier candidates win ties.
func selectParameters(candidates []candidate) (string, bool) {
	best := ""
	bestScore := 0.0
	found := false
	for _, c := range candidates {
		block, ok := extractA1111Block(c.text)
		if !ok {
			continue
		}
		score := scoreParameterBlock(block)
		if !found || score > bestScore {
			found = true
			best = block
			bestScore = score
		}
	}
	return best, found
}
