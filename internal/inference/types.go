// Package inference adapts external translation engines so the toolkit can
// produce a results file for a validation corpus.
package inference

import (
	"context"
	"fmt"
	"time"
)

// Config carries engine settings. The mapstructure keys are the flag names
// of the translate command.
type Config struct {
	Credentials string        `mapstructure:"credentials"`
	ProjectID   string        `mapstructure:"project"`
	APIKey      string        `mapstructure:"api-key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base-url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Request is one sentence to translate. Variant is the position of the
// request within an n-best group; engines that can sample use it to return
// a different hypothesis per variant.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Variant    int    `json:"variant"`
}

type Result struct {
	Engine   string            `json:"engine"`
	Text     string            `json:"text"`
	Latency  time.Duration     `json:"latency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Engine interface {
	Name() string
	Translate(ctx context.Context, req Request) (*Result, error)
}

// BatchEngine translates many sentences in one call. Batch engines are
// deterministic: every variant of a sentence gets the same hypothesis.
type BatchEngine interface {
	Engine
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
}

// Engines lists the names accepted by NewEngine.
var Engines = []string{"google", "ollama", "openrouter"}

// NewEngine constructs the engine registered under name.
func NewEngine(name string, cfg Config) (Engine, error) {
	switch name {
	case "google":
		return NewGoogleEngine(cfg), nil
	case "ollama":
		return NewOllamaEngine(cfg), nil
	case "openrouter":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter engine requires an API key")
		}
		return NewOpenRouterEngine(cfg), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, Engines)
	}
}
