// Package bleu computes corpus-level BLEU over pre-tokenised text.
//
// Lines are split on whitespace only; callers are expected to hand in text
// that is already tokenised the way they want it compared. Zero n-gram
// matches are floored to a small smoothing value and the n-gram order adapts
// to the longest order the hypotheses actually contain, so short corpora
// (single sentences, two-word segments) still produce meaningful scores.
package bleu

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultMaxOrder is the highest n-gram order considered.
	DefaultMaxOrder = 4
	// DefaultSmoothValue replaces a zero match count for an order that has
	// at least one hypothesis n-gram.
	DefaultSmoothValue = 0.1
)

// ErrLengthMismatch is returned when a reference stream does not have one
// line per hypothesis.
var ErrLengthMismatch = errors.New("hypothesis and reference streams have different lengths")

// Score is the result of a corpus BLEU computation. Counts, Totals and
// Precisions are indexed by n-1.
type Score struct {
	Score          float64
	Counts         []int
	Totals         []int
	Precisions     []float64
	BP             float64
	SysLen         int
	RefLen         int
	EffectiveOrder int
}

// Format renders the score the way reports print it, e.g. "35.20 BLEU".
func (s *Score) Format() string {
	return fmt.Sprintf("%.2f BLEU", s.Score)
}

// Ratio is the hypothesis-to-reference length ratio.
func (s *Score) Ratio() float64 {
	if s.RefLen == 0 {
		return 0
	}
	return float64(s.SysLen) / float64(s.RefLen)
}

func (s *Score) String() string {
	precs := make([]string, len(s.Precisions))
	for i, p := range s.Precisions {
		precs[i] = fmt.Sprintf("%.1f", p)
	}
	return fmt.Sprintf("BLEU = %.2f %s (BP = %.3f ratio = %.3f hyp_len = %d ref_len = %d)",
		s.Score, strings.Join(precs, "/"), s.BP, s.Ratio(), s.SysLen, s.RefLen)
}

type options struct {
	maxOrder       int
	smoothValue    float64
	effectiveOrder bool
}

// Option tunes a Corpus computation.
type Option func(*options)

// WithMaxOrder sets the highest n-gram order. Values below 1 are ignored.
func WithMaxOrder(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxOrder = n
		}
	}
}

// WithSmoothValue sets the floor used for orders with zero matches.
func WithSmoothValue(v float64) Option {
	return func(o *options) { o.smoothValue = v }
}

// WithEffectiveOrder toggles averaging only over orders the hypotheses
// contain. When disabled, a corpus too short for the max order scores 0.
func WithEffectiveOrder(enabled bool) Option {
	return func(o *options) { o.effectiveOrder = enabled }
}

// Corpus scores sys against one or more reference streams. Each element of
// refs is a full stream aligned line-by-line with sys.
func Corpus(sys []string, refs [][]string, opts ...Option) (*Score, error) {
	o := options{
		maxOrder:       DefaultMaxOrder,
		smoothValue:    DefaultSmoothValue,
		effectiveOrder: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("at least one reference stream is required")
	}
	for i, ref := range refs {
		if len(ref) != len(sys) {
			return nil, fmt.Errorf("reference stream %d has %d lines, hypotheses have %d: %w",
				i, len(ref), len(sys), ErrLengthMismatch)
		}
	}

	counts := make([]int, o.maxOrder)
	totals := make([]int, o.maxOrder)
	var sysLen, refLen int

	lineRefs := make([][]string, len(refs))
	for i := range sys {
		hyp := strings.Fields(sys[i])
		for r := range refs {
			lineRefs[r] = strings.Fields(refs[r][i])
		}

		sysLen += len(hyp)
		refLen += closestRefLen(len(hyp), lineRefs)

		hypNgrams := extractNgrams(hyp, o.maxOrder)
		refNgrams := maxRefNgrams(lineRefs, o.maxOrder)

		for ngram, count := range hypNgrams {
			n := strings.Count(ngram, " ")
			counts[n] += min(count, refNgrams[ngram])
		}
		for n := 1; n <= o.maxOrder; n++ {
			if len(hyp) >= n {
				totals[n-1] += len(hyp) - n + 1
			}
		}
	}

	return compute(counts, totals, sysLen, refLen, o), nil
}

func compute(counts, totals []int, sysLen, refLen int, o options) *Score {
	s := &Score{
		Counts:     counts,
		Totals:     totals,
		Precisions: make([]float64, o.maxOrder),
		SysLen:     sysLen,
		RefLen:     refLen,
	}

	order := 0
	for n := 0; n < o.maxOrder; n++ {
		if totals[n] == 0 {
			break
		}
		order = n + 1
		if counts[n] == 0 {
			s.Precisions[n] = 100 * o.smoothValue / float64(totals[n])
		} else {
			s.Precisions[n] = 100 * float64(counts[n]) / float64(totals[n])
		}
	}
	if !o.effectiveOrder && order < o.maxOrder {
		order = 0
	}
	s.EffectiveOrder = order

	switch {
	case sysLen == 0:
		s.BP = 0
	case sysLen < refLen:
		s.BP = math.Exp(1 - float64(refLen)/float64(sysLen))
	default:
		s.BP = 1
	}

	if order == 0 || s.BP == 0 {
		return s
	}

	var logSum float64
	for n := 0; n < order; n++ {
		logSum += math.Log(s.Precisions[n])
	}
	s.Score = s.BP * math.Exp(logSum/float64(order))
	return s
}

// closestRefLen picks the reference length nearest to hypLen, preferring the
// shorter reference on ties.
func closestRefLen(hypLen int, refs [][]string) int {
	closest, bestDiff := -1, -1
	for _, ref := range refs {
		diff := hypLen - len(ref)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff || (diff == bestDiff && len(ref) < closest) {
			closest, bestDiff = len(ref), diff
		}
	}
	return closest
}

func extractNgrams(tokens []string, maxOrder int) map[string]int {
	ngrams := make(map[string]int)
	for n := 1; n <= maxOrder; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			ngrams[strings.Join(tokens[i:i+n], " ")]++
		}
	}
	return ngrams
}

// maxRefNgrams merges reference n-gram counts, keeping the per-n-gram maximum.
func maxRefNgrams(refs [][]string, maxOrder int) map[string]int {
	if len(refs) == 1 {
		return extractNgrams(refs[0], maxOrder)
	}
	merged := make(map[string]int)
	for _, ref := range refs {
		for ngram, count := range extractNgrams(ref, maxOrder) {
			if count > merged[ngram] {
				merged[ngram] = count
			}
		}
	}
	return merged
}
