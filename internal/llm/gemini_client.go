package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"evalcoach/internal/httpclient"
	"evalcoach/internal/logging"
	"evalcoach/internal/quality"
)

const (
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com"
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultGeminiMaxTokens = 1200
	geminiMaxResponseBytes = 4 << 20

	// maxContinuations bounds the continuation protocol: at most two
	// follow-up calls extending a truncated first response.
	maxContinuations = 2
)

// geminiFallbackModels are tried, in order, after the configured model.
var geminiFallbackModels = []string{"gemini-2.0-flash", "gemini-2.0-flash-lite", "gemini-1.5-flash"}

// geminiAPIVersions are tried per model, newest surface first.
var geminiAPIVersions = []string{"v1beta", "v1"}

// GeminiConfig configures the Gemini raw-HTTP client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type geminiClient struct {
	apiKey     string
	models     []string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewGemini builds the Gemini generator. A client with an empty API key is
// still valid: Generate then reports "not configured" by returning ("", nil).
func NewGemini(config GeminiConfig, logger logging.Logger) Generator {
	logger = logging.OrNop(logger)

	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	configured := strings.TrimSpace(strings.TrimPrefix(config.Model, "models/"))
	if configured == "" {
		configured = defaultGeminiModel
	}
	models := []string{configured}
	seen := map[string]bool{configured: true}
	for _, model := range geminiFallbackModels {
		if !seen[model] {
			seen[model] = true
			models = append(models, model)
		}
	}

	return &geminiClient{
		apiKey:     strings.TrimSpace(config.APIKey),
		models:     models,
		baseURL:    baseURL,
		httpClient: httpclient.New(timeout, logger),
		logger:     logger,
	}
}

func (c *geminiClient) Name() string { return "gemini" }

type geminiResult struct {
	text         string
	finishReason string
}

// Generate runs the (model × version) fallback loop and, when opts.Continue is
// set, the continuation protocol that stitches truncated output back together.
func (c *geminiClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.apiKey == "" {
		c.logger.Debug("gemini: no API key configured, skipping")
		return "", nil
	}

	first, err := c.generateWithFallback(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	combined := first.text
	finishReason := first.finishReason

	if opts.Continue {
		for i := 0; i < maxContinuations; i++ {
			if finishReason != "MAX_TOKENS" && !quality.IsLikelyIncomplete(combined, opts.MinChars) {
				break
			}
			c.logger.Info("gemini: response truncated (reason=%s), requesting continuation %d/%d",
				finishReason, i+1, maxContinuations)

			next, err := c.generateWithFallback(ctx, continuationPrompt(combined), opts)
			if err != nil {
				return "", err
			}
			addition := strings.TrimSpace(next.text)
			if addition == "" {
				break
			}
			combined = quality.CollapseSpaces(combined + " " + addition)
			finishReason = next.finishReason
		}
	}

	return combined, nil
}

// generateWithFallback iterates (model × API version) pairs until one yields
// non-empty text. A 404 means "pair not available" and the loop moves on,
// keeping the last 404 body for diagnostics; any other non-2xx aborts.
func (c *geminiClient) generateWithFallback(ctx context.Context, prompt string, opts Options) (geminiResult, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultGeminiMaxTokens
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	generationConfig := map[string]any{
		"temperature":     temperature,
		"maxOutputTokens": maxTokens,
	}
	if opts.JSONResponse {
		generationConfig["responseMimeType"] = "application/json"
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]any{{"text": prompt}},
			},
		},
		"generationConfig": generationConfig,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return geminiResult{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	var last404 string
	for _, model := range c.models {
		for _, version := range geminiAPIVersions {
			endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
				c.baseURL, version, model, url.QueryEscape(c.apiKey))

			result, status, errBody, err := c.post(ctx, endpoint, body)
			if err != nil {
				return geminiResult{}, err
			}
			if status == http.StatusNotFound {
				last404 = fmt.Sprintf("%s/%s: %s", version, model, errBody)
				c.logger.Debug("gemini: %s/%s not found, trying next pair", version, model)
				continue
			}
			if status < 200 || status >= 300 {
				return geminiResult{}, &StatusError{
					Provider:   "Gemini",
					Model:      fmt.Sprintf("%s/%s", version, model),
					StatusCode: status,
					Body:       errBody,
				}
			}
			if result.text != "" {
				return result, nil
			}
		}
	}

	return geminiResult{}, &NotFoundError{Provider: "Gemini", Last404: last404}
}

func (c *geminiClient) post(ctx context.Context, endpoint string, body []byte) (geminiResult, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return geminiResult{}, 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geminiResult{}, 0, "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := httpclient.ReadBody(resp.Body, geminiMaxResponseBytes)
	if err != nil {
		return geminiResult{}, 0, "", fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return geminiResult{}, resp.StatusCode, string(respBody), nil
	}

	var parsed struct {
		Candidates []struct {
			FinishReason string `json:"finishReason"`
			Content      struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return geminiResult{}, 0, "", fmt.Errorf("gemini: decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 {
		return geminiResult{}, resp.StatusCode, "", nil
	}
	candidate := parsed.Candidates[0]
	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		builder.WriteString(part.Text)
	}
	return geminiResult{
		text:         strings.TrimSpace(builder.String()),
		finishReason: candidate.FinishReason,
	}, resp.StatusCode, "", nil
}

func continuationPrompt(accumulated string) string {
	return strings.Join([]string{
		"아래 문장에 자연스럽게 이어지는 다음 문장만 작성하세요.",
		"규칙:",
		"1) 기존 문장을 반복하지 말 것",
		"2) 새 문장만 출력할 것",
		"3) 마지막은 완결된 문장으로 끝낼 것",
		"",
		"기존 문장:",
		accumulated,
	}, "\n")
}
