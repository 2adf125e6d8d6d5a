package validator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var shared = New()

func TestCheckCorpus_EmptyTargetLang(t *testing.T) {
	report := shared.CheckCorpus([]string{"Some translated text here, long enough."}, "")
	if report.Skipped != 1 || report.Checked != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestCheckCorpus_ShortLinesSkipped(t *testing.T) {
	report := shared.CheckCorpus([]string{"Hi", "", "   "}, "en")
	if report.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", report.Skipped)
	}
	if len(report.Mismatched) != 0 {
		t.Errorf("expected no mismatches, got %v", report.Mismatched)
	}
}

func TestCheckCorpus_DetectsUntranslatedLines(t *testing.T) {
	lines := []string{
		"This is a longer piece of text that should be detected as English.",
		"Bonjour, ceci est un test en français qui est assez long.",
		"The weather today is pleasant and the streets are quiet.",
	}

	report := shared.CheckCorpus(lines, "en")
	if report.Checked != 3 {
		t.Errorf("Checked = %d, want 3", report.Checked)
	}
	want := []Mismatch{{Line: 1, Detected: "fr"}}
	if diff := cmp.Diff(want, report.Mismatched); diff != "" {
		t.Errorf("mismatches (-want +got):\n%s", diff)
	}
}

func TestCheckCorpus_RegionSubtag(t *testing.T) {
	lines := []string{"This is a longer piece of text that should be detected as English."}

	report := shared.CheckCorpus(lines, "en-GB")
	if len(report.Mismatched) != 0 {
		t.Errorf("expected en-GB to accept English text, got %v", report.Mismatched)
	}
}
