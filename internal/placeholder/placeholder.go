// Package placeholder shields tokens that must survive translation verbatim
// (markup tags, special tokens such as <unk>, and the HTML entities left by
// Moses-style escaping) by replacing them with numbered markers [PH0], [PH1]
// before a sentence is sent to an LLM engine.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// markup tags and special tokens: <unk>, </s>, <b>, <br/>
	reTag = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

	// named and numeric entities: &amp; &apos; &#124;
	reEntity = regexp.MustCompile(`&(?:[A-Za-z]+|#[0-9]+);`)

	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces tags, then entities, with markers and returns the
// originals for Restore.
func Protect(text string) (string, []string) {
	var markers []string
	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(markers))
		markers = append(markers, match)
		return id
	}

	text = reTag.ReplaceAllStringFunc(text, replace)
	text = reEntity.ReplaceAllStringFunc(text, replace)
	return text, markers
}

// Restore puts the originals back. Unknown indices are left as-is.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint is appended to prompts of sentences that carry markers.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as it appears; do not translate, move, or remove it."
}

// Missing returns the indices of markers absent from text.
func Missing(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
