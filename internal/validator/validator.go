// Package validator checks that hypotheses are written in the expected
// target language. Engines occasionally echo the source sentence back
// untranslated, which silently drags corpus BLEU down.
package validator

import (
	"strings"

	"github.com/valpere/nmtg/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Report summarises a corpus check.
type Report struct {
	Checked    int
	Skipped    int
	Mismatched []Mismatch
}

// Mismatch is one hypothesis whose detected language differs from the target.
type Mismatch struct {
	Line     int
	Detected string
}

// Validator is safe to reuse across corpora.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// CheckCorpus inspects every line against targetLang. Lines shorter than
// minValidationLength runes and lines whose language is ambiguous are
// counted as skipped. An empty targetLang skips the whole corpus.
func (v *Validator) CheckCorpus(lines []string, targetLang string) Report {
	var report Report
	if targetLang == "" {
		report.Skipped = len(lines)
		return report
	}
	// Region and script subtags are not detectable.
	base, _, _ := strings.Cut(targetLang, "-")

	for i, line := range lines {
		text := strings.TrimSpace(line)
		if len([]rune(text)) < minValidationLength {
			report.Skipped++
			continue
		}

		detected, ok := v.det.DetectISO(text)
		if !ok {
			report.Skipped++
			continue
		}

		report.Checked++
		if !strings.EqualFold(detected, base) {
			report.Mismatched = append(report.Mismatched, Mismatch{Line: i, Detected: detected})
		}
	}
	return report
}
