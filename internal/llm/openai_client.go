package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"evalcoach/internal/httpclient"
	"evalcoach/internal/logging"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "gpt-4.1-mini"
	openAIMaxResponseBytes = 4 << 20
)

// OpenAIConfig configures the OpenAI Responses-API client.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type openAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewOpenAI builds the OpenAI generator: a single call against the Responses
// endpoint, no model fallback list. An empty API key makes Generate report
// "not configured" by returning ("", nil).
func NewOpenAI(config OpenAIConfig, logger logging.Logger) Generator {
	logger = logging.OrNop(logger)

	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &openAIClient{
		apiKey:     strings.TrimSpace(config.APIKey),
		model:      model,
		baseURL:    baseURL,
		httpClient: httpclient.New(timeout, logger),
		logger:     logger,
	}
}

func (c *openAIClient) Name() string { return "openai" }

func (c *openAIClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.apiKey == "" {
		c.logger.Debug("openai: no API key configured, skipping")
		return "", nil
	}

	payload := map[string]any{
		"model": c.model,
		"input": prompt,
	}
	if opts.MaxTokens > 0 {
		payload["max_output_tokens"] = opts.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/responses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := httpclient.ReadBody(resp.Body, openAIMaxResponseBytes)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{
			Provider:   "OpenAI",
			Model:      c.model,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var parsed struct {
		OutputText any `json:"output_text"`
		Output     []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}

	if text := flattenOutputText(parsed.OutputText); text != "" {
		return strings.TrimSpace(text), nil
	}

	var builder strings.Builder
	for _, item := range parsed.Output {
		if !strings.EqualFold(strings.TrimSpace(item.Type), "message") {
			continue
		}
		for _, part := range item.Content {
			kind := strings.ToLower(strings.TrimSpace(part.Type))
			if kind == "output_text" || kind == "text" {
				builder.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

func flattenOutputText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []any:
		var builder strings.Builder
		for _, item := range v {
			if s, ok := item.(string); ok {
				builder.WriteString(s)
			}
		}
		return builder.String()
	default:
		return ""
	}
}
