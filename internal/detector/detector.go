// Package detector identifies the language of validation sentences.
package detector

import (
	"sort"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// DefaultSample is the number of lines DetectCorpus inspects when the caller
// passes a non-positive sample size.
const DefaultSample = 50

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over all supported languages. Building is slow;
// reuse the instance.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// DetectCorpus votes over the first sample non-empty lines and returns the
// most frequent ISO code. Ties go to the alphabetically first code so the
// result is stable.
func (d *Detector) DetectCorpus(lines []string, sample int) (string, bool) {
	if sample <= 0 {
		sample = DefaultSample
	}

	votes := make(map[string]int)
	seen := 0
	for _, line := range lines {
		if seen >= sample {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		seen++
		if code, ok := d.DetectISO(line); ok {
			votes[code]++
		}
	}
	if len(votes) == 0 {
		return "", false
	}

	codes := make([]string, 0, len(votes))
	for code := range votes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	best := codes[0]
	for _, code := range codes[1:] {
		if votes[code] > votes[best] {
			best = code
		}
	}
	return best, true
}
