package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/nmtg/internal/placeholder"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

type OllamaEngine struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaEngine(cfg Config) *OllamaEngine {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaEngine{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *OllamaEngine) Name() string {
	return "ollama"
}

func (e *OllamaEngine) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	var markers []string
	req.Text, markers = placeholder.Protect(req.Text)

	ollamaReq := map[string]interface{}{
		"model":   e.model,
		"prompt":  sentencePrompt(req, len(markers) > 0),
		"stream":  false,
		"options": samplingOptions(req.Variant),
	}

	jsonData, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Result{
		Engine:   e.Name(),
		Text:     placeholder.Restore(ollamaResp.Response, markers),
		Latency:  time.Since(start),
		Metadata: map[string]string{"model": e.model},
	}, nil
}

// sentencePrompt asks for a single-line translation of one sentence.
func sentencePrompt(req Request, hasMarkers bool) string {
	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the source language"
	}
	hint := ""
	if hasMarkers {
		hint = "\n" + placeholder.InstructionHint()
	}
	return fmt.Sprintf(`Translate the following sentence from %s to %s.
Respond with the translation only, on a single line, without quotes or explanations.%s

Sentence: %s

Translation:`, sourceLang, req.TargetLang, hint, req.Text)
}

// samplingOptions keeps variant 0 greedy so a 1-best run is reproducible;
// later variants sample with a per-variant seed.
func samplingOptions(variant int) map[string]interface{} {
	if variant == 0 {
		return map[string]interface{}{"temperature": 0}
	}
	return map[string]interface{}{"temperature": 0.7, "seed": variant}
}
