package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleEngine calls Cloud Translation. The client is created on first use
// and shared by all workers.
type GoogleEngine struct {
	cfg Config

	once      sync.Once
	client    *translate.Client
	clientErr error
}

func NewGoogleEngine(cfg Config) *GoogleEngine {
	return &GoogleEngine{cfg: cfg}
}

func (e *GoogleEngine) Name() string {
	return "google"
}

func (e *GoogleEngine) getClient(ctx context.Context) (*translate.Client, error) {
	e.once.Do(func() {
		var opts []option.ClientOption
		if e.cfg.Credentials != "" {
			opts = append(opts, option.WithCredentialsFile(e.cfg.Credentials))
		}
		if e.cfg.APIKey != "" {
			opts = append(opts, option.WithAPIKey(e.cfg.APIKey))
		}
		if e.cfg.ProjectID != "" {
			opts = append(opts, option.WithQuotaProject(e.cfg.ProjectID))
		}
		// The client outlives the first request's context.
		e.client, e.clientErr = translate.NewClient(context.WithoutCancel(ctx), opts...)
	})
	if e.clientErr != nil {
		return nil, fmt.Errorf("failed to create client: %w", e.clientErr)
	}
	return e.client, nil
}

func (e *GoogleEngine) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	texts, err := e.TranslateBatch(ctx, []string{req.Text}, req.SourceLang, req.TargetLang)
	if err != nil {
		return nil, err
	}
	return &Result{
		Engine:  e.Name(),
		Text:    texts[0],
		Latency: time.Since(start),
	}, nil
}

func (e *GoogleEngine) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	target, err := language.Parse(targetLang)
	if err != nil {
		return nil, fmt.Errorf("invalid target language: %w", err)
	}

	opts := &translate.Options{Format: translate.Text}
	if sourceLang != "" && sourceLang != "auto" {
		source, err := language.Parse(sourceLang)
		if err != nil {
			return nil, fmt.Errorf("invalid source language: %w", err)
		}
		opts.Source = source
	}

	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}

	translations, err := client.Translate(ctx, texts, target, opts)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) != len(texts) {
		return nil, fmt.Errorf("expected %d translations, got %d", len(texts), len(translations))
	}

	out := make([]string, len(translations))
	for i, t := range translations {
		out[i] = t.Text
	}
	return out, nil
}

// Close releases the underlying client, if one was created.
func (e *GoogleEngine) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
