package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/valpere/nmtg/internal/placeholder"
)

const (
	defaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel = "meta-llama/llama-3.1-8b-instruct:free"
)

type OpenRouterEngine struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenRouterEngine(cfg Config) *OpenRouterEngine {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenRouterModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenRouterEngine{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *OpenRouterEngine) Name() string {
	return "openrouter"
}

func (e *OpenRouterEngine) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the detected language"
	}
	systemPrompt := fmt.Sprintf("You are a professional translator. Translate the user's sentence from %s to %s. "+
		"Respond with the translation only, on a single line, without quotes or explanations.", sourceLang, req.TargetLang)

	text, markers := placeholder.Protect(req.Text)
	if len(markers) > 0 {
		systemPrompt += " " + placeholder.InstructionHint()
	}

	body := map[string]interface{}{
		"model": e.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": text},
		},
		"max_tokens": 1024,
	}
	for k, v := range samplingOptions(req.Variant) {
		body[k] = v
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	httpReq.Header.Set("X-Title", "nmtg")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter returned status %d", resp.StatusCode)
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from openrouter")
	}

	return &Result{
		Engine:  e.Name(),
		Text:    placeholder.Restore(chatResp.Choices[0].Message.Content, markers),
		Latency: time.Since(start),
		Metadata: map[string]string{
			"model":             e.model,
			"prompt_tokens":     strconv.Itoa(chatResp.Usage.PromptTokens),
			"completion_tokens": strconv.Itoa(chatResp.Usage.CompletionTokens),
		},
	}, nil
}
