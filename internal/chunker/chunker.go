// Package chunker groups consecutive sentences into batches for engines that
// translate many segments per request.
package chunker

import "unicode/utf8"

// DefaultMaxChars bounds the code points sent in one batch request.
const DefaultMaxChars = 30000

// Range is the half-open sentence interval [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Batches splits texts into consecutive ranges holding at most maxItems
// sentences and at most maxChars code points. A single sentence longer than
// maxChars gets a range of its own. maxItems or maxChars ≤ 0 means no limit.
func Batches(texts []string, maxItems, maxChars int) []Range {
	var ranges []Range
	start, chars := 0, 0

	for i, text := range texts {
		n := utf8.RuneCountInString(text)
		full := maxItems > 0 && i-start >= maxItems
		over := maxChars > 0 && i > start && chars+n > maxChars
		if full || over {
			ranges = append(ranges, Range{Start: start, End: i})
			start, chars = i, 0
		}
		chars += n
	}

	if start < len(texts) {
		ranges = append(ranges, Range{Start: start, End: len(texts)})
	}
	return ranges
}
