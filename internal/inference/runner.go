package inference

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/nmtg/internal/chunker"
	"github.com/valpere/nmtg/internal/postprocess"
)

type RunnerConfig struct {
	// Workers bounds concurrent engine calls.
	Workers int
	// Timeout applies to each engine call, not to the whole run.
	Timeout time.Duration
	// MaxAttempts is the total number of tries per call, including the first.
	MaxAttempts int
	RetryDelay  time.Duration
	// NBest is the number of hypotheses produced per source sentence.
	NBest int
	// BatchSize and MaxBatchChars bound one call of a batch engine.
	BatchSize     int
	MaxBatchChars int
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.NBest <= 0 {
		c.NBest = 1
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.MaxBatchChars <= 0 {
		c.MaxBatchChars = chunker.DefaultMaxChars
	}
	return c
}

// Runner translates a whole corpus through one engine.
type Runner struct {
	engine Engine
	config RunnerConfig
}

func NewRunner(engine Engine, config RunnerConfig) *Runner {
	return &Runner{
		engine: engine,
		config: config.withDefaults(),
	}
}

// Run returns len(sentences)*NBest hypotheses: the NBest hypotheses of
// sentence i occupy positions [i*NBest, (i+1)*NBest). Empty source lines
// yield empty hypotheses without calling the engine. The first failed
// sentence (after retries) cancels the run.
func (r *Runner) Run(ctx context.Context, sentences []string, sourceLang, targetLang string) ([]string, error) {
	log := clog.FromContext(ctx).With("engine", r.engine.Name())
	nbest := r.config.NBest
	out := make([]string, len(sentences)*nbest)

	var done atomic.Int64
	progress := func(n int) {
		total := done.Add(int64(n))
		if total%100 < int64(n) || int(total) == len(sentences) {
			log.Debugf("Translated %d/%d sentences", total, len(sentences))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	if batch, ok := r.engine.(BatchEngine); ok {
		for _, rng := range chunker.Batches(sentences, r.config.BatchSize, r.config.MaxBatchChars) {
			start, end := rng.Start, rng.End
			g.Go(func() error {
				texts, err := r.translateBatch(gctx, batch, sentences[start:end], sourceLang, targetLang)
				if err != nil {
					return fmt.Errorf("sentences %d-%d: %w", start, end-1, err)
				}
				for i, text := range texts {
					for v := 0; v < nbest; v++ {
						out[(start+i)*nbest+v] = text
					}
				}
				progress(rng.Len())
				return nil
			})
		}
	} else {
		for i, sentence := range sentences {
			for v := 0; v < nbest; v++ {
				g.Go(func() error {
					text, err := r.translateOne(gctx, Request{
						Text:       sentence,
						SourceLang: sourceLang,
						TargetLang: targetLang,
						Variant:    v,
					})
					if err != nil {
						return fmt.Errorf("sentence %d: %w", i, err)
					}
					out[i*nbest+v] = text
					if v == 0 {
						progress(1)
					}
					return nil
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runner) translateOne(ctx context.Context, req Request) (string, error) {
	if req.Text == "" {
		return "", nil
	}
	var text string
	err := r.retry(ctx, func(callCtx context.Context) error {
		res, err := r.engine.Translate(callCtx, req)
		if err != nil {
			return err
		}
		text = postprocess.Hypothesis(res.Text)
		return nil
	})
	return text, err
}

func (r *Runner) translateBatch(ctx context.Context, engine BatchEngine, sentences []string, sourceLang, targetLang string) ([]string, error) {
	// Engines reject empty segments; send only the non-empty ones.
	var idx []int
	var texts []string
	for i, s := range sentences {
		if s != "" {
			idx = append(idx, i)
			texts = append(texts, s)
		}
	}

	out := make([]string, len(sentences))
	if len(texts) == 0 {
		return out, nil
	}

	err := r.retry(ctx, func(callCtx context.Context) error {
		got, err := engine.TranslateBatch(callCtx, texts, sourceLang, targetLang)
		if err != nil {
			return err
		}
		if len(got) != len(texts) {
			return fmt.Errorf("engine returned %d translations for %d sentences", len(got), len(texts))
		}
		for j, text := range got {
			out[idx[j]] = postprocess.Hypothesis(text)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// retry runs call up to MaxAttempts times, each under its own timeout, with
// a linearly growing delay between attempts.
func (r *Runner) retry(ctx context.Context, call func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		lastErr = call(callCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		clog.FromContext(ctx).Warnf("Attempt %d/%d failed: %v", attempt, r.config.MaxAttempts, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * r.config.RetryDelay):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}
