package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, score float64, at time.Time) Run {
	return Run{
		ID:             id,
		Task:           "translation",
		Engine:         "google",
		ValidSrc:       "valid.fr",
		ValidTgt:       "valid.en",
		SourceLang:     "fr",
		TargetLang:     "en",
		BPESymbol:      "@@ ",
		Lower:          true,
		Hypotheses:     2,
		References:     2,
		Score:          score,
		HasScore:       true,
		Report:         "35.20 BLEU",
		RefFingerprint: "abc123",
		CreatedAt:      at,
	}
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_New_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.SaveRun(context.Background(), sampleRun("run-1", 10, time.Now().UTC()), nil); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	if _, err := s.GetRun(context.Background(), "run-1"); err != nil {
		t.Errorf("expected run to survive reopen: %v", err)
	}
}

func TestStore_SaveRun_GetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	want := sampleRun("run-1", 35.2, at)
	hyps := []string{"the cat", "a dog"}
	if err := s.SaveRun(ctx, want, hyps); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if diff := cmp.Diff(want, *got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	gotHyps, err := s.Hypotheses(ctx, "run-1")
	if err != nil {
		t.Fatalf("Hypotheses failed: %v", err)
	}
	if diff := cmp.Diff(hyps, gotHyps); diff != "" {
		t.Errorf("hypotheses mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SaveRun_Unscored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-1", Task: "translation", ValidSrc: "valid.fr", Hypotheses: 1}
	if err := s.SaveRun(ctx, run, []string{"le chat"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.HasScore {
		t.Errorf("expected unscored run, got score %v", got.Score)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to default to now")
	}
}

func TestStore_SaveRun_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("run-1", 1, time.Now().UTC()), []string{"a"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.SaveRun(ctx, sampleRun("run-1", 2, time.Now().UTC()), []string{"b"}); err == nil {
		t.Error("expected error for duplicate run ID")
	}

	hyps, err := s.Hypotheses(ctx, "run-1")
	if err != nil {
		t.Fatalf("Hypotheses failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, hyps); diff != "" {
		t.Errorf("failed insert must not touch hypotheses (-want +got):\n%s", diff)
	}
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := sampleRun("run-1", 10, base)
	second := sampleRun("run-2", 20, base.Add(time.Hour))
	other := sampleRun("run-3", 30, base.Add(2*time.Hour))
	other.RefFingerprint = "other"
	other.Task = "other-task"

	for _, r := range []Run{first, second, other} {
		if err := s.SaveRun(ctx, r, nil); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", r.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter RunFilter
		want   []string
	}{
		{name: "all newest first", filter: RunFilter{}, want: []string{"run-3", "run-2", "run-1"}},
		{name: "by task", filter: RunFilter{Task: "translation"}, want: []string{"run-2", "run-1"}},
		{name: "by fingerprint", filter: RunFilter{RefFingerprint: "other"}, want: []string{"run-3"}},
		{name: "limit", filter: RunFilter{Limit: 1}, want: []string{"run-3"}},
		{name: "no match", filter: RunFilter{Task: "nope"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("run IDs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_DeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("run-1", 10, time.Now().UTC()), []string{"a", "b"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	if _, err := s.GetRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected run to be gone, got %v", err)
	}
	hyps, err := s.Hypotheses(ctx, "run-1")
	if err != nil {
		t.Fatalf("Hypotheses failed: %v", err)
	}
	if len(hyps) != 0 {
		t.Errorf("expected hypotheses to be deleted, got %v", hyps)
	}

	if err := s.DeleteRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
	}
}

func TestStore_ClearRuns_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if *stats != (Stats{}) {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	now := time.Now().UTC()
	unscored := Run{ID: "run-3", Task: "translation", ValidSrc: "x", Hypotheses: 5}
	for _, r := range []Run{sampleRun("run-1", 10, now), sampleRun("run-2", 30, now), unscored} {
		if err := s.SaveRun(ctx, r, []string{"h"}); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	stats, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := Stats{TotalRuns: 3, ScoredRuns: 2, BestScore: 30, MeanScore: 20, Hypotheses: 9}
	if *stats != want {
		t.Errorf("Stats() = %+v, want %+v", *stats, want)
	}

	n, err := s.ClearRuns(ctx)
	if err != nil {
		t.Fatalf("ClearRuns failed: %v", err)
	}
	if n != 3 {
		t.Errorf("ClearRuns() = %d, want 3", n)
	}
	runs, err := s.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs after clear, got %d", len(runs))
	}
}
