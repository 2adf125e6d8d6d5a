// Package translation implements the "translation" task: a validation
// source corpus, an optional reference corpus, and BLEU scoring of the
// hypotheses an engine produces for it.
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/valpere/nmtg/internal/bleu"
	"github.com/valpere/nmtg/internal/dataset"
	"github.com/valpere/nmtg/internal/detector"
	"github.com/valpere/nmtg/internal/task"
)

// Name is the registry key of this task.
const Name = "translation"

// DefaultBPESymbol is the subword joiner stripped before scoring.
const DefaultBPESymbol = "@@ "

// AutoLanguage asks setup to detect a language tag from the corpus.
const AutoLanguage = "auto"

var (
	// ErrMissingValidSrc is returned by setup when no source corpus is configured.
	ErrMissingValidSrc = errors.New("valid_src is required")
	// ErrMisaligned is returned when the result count is not a positive
	// multiple of the reference count.
	ErrMisaligned = errors.New("results are not aligned with references")
)

func init() {
	task.Register(task.Registration{
		Name:        Name,
		Description: "Score translations of a line-aligned validation corpus with corpus BLEU",
		AddFlags:    AddFlags,
		Setup: func(ctx context.Context, v *viper.Viper) (task.Task, error) {
			t, err := Setup(ctx, v)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	})
}

// Options is the configuration consumed by Setup.
type Options struct {
	ValidSrc     string `mapstructure:"valid_src"`
	ValidTgt     string `mapstructure:"valid_tgt"`
	BPESymbol    string `mapstructure:"bpe_symbol"`
	Lower        bool   `mapstructure:"lower"`
	ValidSrcLang string `mapstructure:"valid_src_lang"`
	ValidTgtLang string `mapstructure:"valid_tgt_lang"`
}

// DefaultOptions mirrors the flag defaults declared by AddFlags.
func DefaultOptions() Options {
	return Options{BPESymbol: DefaultBPESymbol}
}

// AddFlags declares the task's options on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("valid_src", "", "Path to the validation source file (required)")
	fs.String("valid_tgt", "", "Path to the validation reference file")
	fs.String("bpe_symbol", DefaultBPESymbol, "Strip this symbol from hypotheses and references before scoring")
	fs.Bool("lower", false, "Lowercase hypotheses and references before scoring")
	fs.String("valid_src_lang", "", "Source language tag (\"auto\" to detect). Only required for multilingual models")
	fs.String("valid_tgt_lang", "", "Target language tag (\"auto\" to detect). Only required for multilingual models")
}

// Task holds one validation corpus. All fields are fixed at construction.
type Task struct {
	src       []string
	tgt       []string
	srcLang   string
	tgtLang   string
	bpeSymbol string
	lower     bool
}

// New assigns its arguments as-is; tgt may be nil.
func New(src, tgt []string, srcLang, tgtLang, bpeSymbol string, lower bool) *Task {
	return &Task{
		src:       src,
		tgt:       tgt,
		srcLang:   srcLang,
		tgtLang:   tgtLang,
		bpeSymbol: bpeSymbol,
		lower:     lower,
	}
}

// Setup decodes Options from v and loads the corpora.
func Setup(ctx context.Context, v *viper.Viper) (*Task, error) {
	opts := DefaultOptions()
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("failed to decode translation options: %w", err)
	}
	return SetupFromOptions(ctx, opts)
}

// SetupFromOptions loads the validation source, and the references when
// ValidTgt is set. Loader errors are returned unchanged apart from wrapping.
func SetupFromOptions(ctx context.Context, opts Options) (*Task, error) {
	log := clog.FromContext(ctx)

	if opts.ValidSrc == "" {
		return nil, ErrMissingValidSrc
	}

	log.Info("Loading validation data")

	src, err := dataset.LoadIntoMemory(opts.ValidSrc)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation source: %w", err)
	}

	var tgt []string
	if opts.ValidTgt != "" {
		ds, err := dataset.LoadIntoMemory(opts.ValidTgt)
		if err != nil {
			return nil, fmt.Errorf("failed to load validation target: %w", err)
		}
		tgt = ds.Lines()
		if tgt == nil {
			// An empty reference file is still a loaded target.
			tgt = []string{}
		}
	}

	p := message.NewPrinter(language.English)
	log.Info(p.Sprintf("Number of validation sentences: %d", src.Len()))

	langs := newLanguageResolver(ctx)
	srcLang := langs.resolve(opts.ValidSrcLang, src.Lines())
	tgtLang := langs.resolve(opts.ValidTgtLang, tgt)

	return New(src.Lines(), tgt, srcLang, tgtLang, opts.BPESymbol, opts.Lower), nil
}

func (t *Task) Source() []string       { return t.src }
func (t *Task) Target() []string       { return t.tgt }
func (t *Task) SourceLanguage() string { return t.srcLang }
func (t *Task) TargetLanguage() string { return t.tgtLang }
func (t *Task) BPESymbol() string      { return t.bpeSymbol }
func (t *Task) Lower() bool            { return t.lower }

// HasReferences reports whether a reference corpus was loaded.
func (t *Task) HasReferences() bool {
	return t.tgt != nil
}

// ScoreResults returns a single "X.XX BLEU" line, or an empty report when
// the task has no references.
func (t *Task) ScoreResults(results []string) ([]string, error) {
	score, err := t.Evaluate(results)
	if err != nil {
		return nil, err
	}
	if score == nil {
		return nil, nil
	}
	return []string{score.Format()}, nil
}

// Evaluate scores results against the references and returns the full BLEU
// statistics. It returns nil, nil when the task has no references.
//
// results may hold k hypotheses per reference (an n-best list flattened in
// source order); the first hypothesis of each group is scored.
func (t *Task) Evaluate(results []string) (*bleu.Score, error) {
	if t.tgt == nil {
		return nil, nil
	}

	hyps, err := t.Aligned(results)
	if err != nil {
		return nil, err
	}

	sys := t.prepare(hyps)
	ref := t.prepare(t.tgt)
	return bleu.Corpus(sys, [][]string{ref})
}

// Aligned selects every k-th result, k = len(results)/len(references).
func (t *Task) Aligned(results []string) ([]string, error) {
	n := len(t.tgt)
	if n == 0 || len(results) == 0 || len(results)%n != 0 {
		return nil, fmt.Errorf("%d results for %d references: %w", len(results), n, ErrMisaligned)
	}

	stride := len(results) / n
	if stride == 1 {
		return results, nil
	}
	hyps := make([]string, 0, n)
	for i := 0; i < len(results); i += stride {
		hyps = append(hyps, results[i])
	}
	return hyps, nil
}

func (t *Task) prepare(lines []string) []string {
	var caser cases.Caser
	if t.lower {
		caser = cases.Lower(language.Und)
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if t.bpeSymbol != "" {
			line = strings.ReplaceAll(line, t.bpeSymbol, "")
		}
		if t.lower {
			line = caser.String(line)
		}
		out[i] = line
	}
	return out
}

// SaveResults writes one hypothesis per line, overwriting path.
func (t *Task) SaveResults(results []string, path string) error {
	return dataset.WriteLines(path, results)
}

// LoadResults reads a file written by SaveResults.
func (t *Task) LoadResults(path string) ([]string, error) {
	ds, err := dataset.LoadIntoMemory(path)
	if err != nil {
		return nil, err
	}
	return ds.Lines(), nil
}

// languageResolver normalises language tags. The lingua detector is only
// built when a tag asks for detection.
type languageResolver struct {
	log *clog.Logger
	det *detector.Detector
}

func newLanguageResolver(ctx context.Context) *languageResolver {
	return &languageResolver{log: clog.FromContext(ctx)}
}

// resolve never fails: tags are informational, so an unparseable tag is kept
// verbatim and a failed detection yields "".
func (r *languageResolver) resolve(tag string, lines []string) string {
	switch {
	case tag == "":
		return ""
	case strings.EqualFold(tag, AutoLanguage):
		if len(lines) == 0 {
			return ""
		}
		if r.det == nil {
			r.det = detector.New()
		}
		code, ok := r.det.DetectCorpus(lines, detector.DefaultSample)
		if !ok {
			r.log.Warn("Could not detect corpus language")
			return ""
		}
		r.log.Infof("Detected corpus language: %s", code)
		return code
	}

	parsed, err := language.Parse(tag)
	if err != nil {
		r.log.Warnf("Keeping unrecognised language tag %q: %v", tag, err)
		return tag
	}
	return parsed.String()
}
