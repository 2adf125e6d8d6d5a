// Package postprocess turns raw engine output into a hypothesis line.
//
// LLM-backed engines wrap their answer in reasoning blocks, preambles and
// quotes, and may break a sentence over several lines. A results file holds
// exactly one hypothesis per line, so every engine output passes through
// Hypothesis before it is stored or scored.
package postprocess

import (
	"regexp"
	"strings"
)

// Hypothesis cleans LLM artifacts and folds the result onto a single line.
func Hypothesis(text string) string {
	return SingleLine(Clean(text))
}

// Clean removes, in order: reasoning blocks, an echoed instruction preamble,
// and a pair of quotes wrapping the whole text.
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// SingleLine collapses line breaks and whitespace runs into single spaces.
func SingleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// RE2 has no backreferences, so each tag pair is spelled out.
var (
	thinkingBlockRe = regexp.MustCompile(
		`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
	)
	// An opening tag with no closing tag: the model was cut off mid-thought.
	truncatedThinkingRe = regexp.MustCompile(
		`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
	)
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Each pattern is anchored and needs a trailing colon.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| my)? (?:translated |final )?(?:translation|text|sentence)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:final )?(?:translation|translated (?:text|sentence))\s*(?:\([^)]*\))?\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the| my)? (?:translated |final )?(?:translation|text|sentence)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'\u00AB': '\u00BB', // « »
	'\u201C': '\u201D', // “ ”
	'\u2018': '\u2019', // ‘ ’
	'\u201E': '\u201C', // „ “
}

func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	opening := runes[0]
	closing, ok := quotePairs[opening]
	if !ok || runes[n-1] != closing {
		return text
	}
	inner := runes[1 : n-1]
	// `"a" and "b"` is two quotes, not one wrapped text.
	for _, r := range inner {
		if r == opening || r == closing {
			return text
		}
	}
	return strings.TrimSpace(string(inner))
}
