// Package providers holds the concrete translation backends registered with
// the translation manager.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nclamvn/prismy-ultimate/internal/translation"
)

const (
	openAIDefaultModel   = "gpt-4o-mini"
	openAIDefaultTimeout = 120 * time.Second
	openAIDefaultURL     = "https://api.openai.com/v1/chat/completions"
)

// OpenAI translates through an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

var _ translation.Provider = (*OpenAI)(nil)

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = openAIDefaultTimeout
	}
	return &OpenAI{
		apiKey: cfg.APIKey,
		model:  model,
		apiURL: normalizeAPIURL(cfg.BaseURL),
		client: &http.Client{Timeout: timeout},
	}
}

// normalizeAPIURL completes a bare base URL with the chat/completions path so
// both "https://host/v1" and full endpoint URLs are accepted.
func normalizeAPIURL(url string) string {
	if url == "" {
		return openAIDefaultURL
	}
	url = strings.TrimSuffix(url, "/")
	if strings.HasSuffix(url, "/chat/completions") {
		return url
	}
	return url + "/chat/completions"
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Languages() []string { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenAI) Translate(ctx context.Context, req translation.Request) (string, error) {
	if p.apiKey == "" {
		return "", translation.NewProviderError(p.Name(), 0, false, fmt.Errorf("api key is not configured"))
	}

	system := fmt.Sprintf(
		"You are a professional translator. Translate the user's text from %s to %s. Preserve formatting, line breaks and paragraph boundaries. Output only the translation.",
		req.SourceLang, req.TargetLang)
	if req.Context != "" {
		system += "\n" + req.Context
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Text},
		},
	})
	if err != nil {
		return "", translation.NewProviderError(p.Name(), 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", translation.NewProviderError(p.Name(), 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", translation.NewProviderError(p.Name(), 0, true, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, true, err)
	}
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, retryable,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, false, err)
	}
	if completion.Error != nil {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, false, fmt.Errorf("%s", completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, true, fmt.Errorf("response contains no choices"))
	}

	translated := strings.TrimSpace(completion.Choices[0].Message.Content)
	if translated == "" {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, true, fmt.Errorf("response contains empty translation"))
	}
	return translated, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
