package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"yudha/internal/logger"
)

// OpenRouterClient speaks the OpenAI-compatible chat completions endpoint
// (/v1/chat/completions) that OpenRouter exposes.
type OpenRouterClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// Bounded retry for 429/5xx; 0 means the default of 2.
	MaxRetries int
	// OpenRouter asks callers to identify themselves.
	Referer string
	Title   string
}

// CallWithMessages sends a system+user message pair and returns the raw
// completion text. Response JSON mode is requested but never trusted.
func (c *OpenRouterClient) CallWithMessages(ctx context.Context, agentName, systemPrompt, userPrompt string) (string, error) {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	// Normalize the base URL; tolerate configs that already include the
	// completions path.
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://openrouter.ai/api/v1"
	}
	url = strings.TrimSuffix(url, "/chat/completions") + "/chat/completions"

	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})
	body := map[string]any{
		"model":           c.Model,
		"messages":        messages,
		"temperature":     0.7,
		"response_format": map[string]string{"type": "json_object"},
	}
	b, _ := json.Marshal(body)
	logger.LogLLMRequest(agentName, systemPrompt, userPrompt, string(b))

	httpc := &http.Client{Timeout: c.Timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
		}
		if c.Referer != "" {
			req.Header.Set("HTTP-Referer", c.Referer)
		}
		if c.Title != "" {
			req.Header.Set("X-Title", c.Title)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("empty choices")
			}
			out := r.Choices[0].Message.Content
			logger.LogLLMResponse(agentName, out)
			return out, nil
		}
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryableStatus(resp.StatusCode) || attempt >= maxRetries {
			break
		}
		wait := time.Duration(0)
		if retryAfter != "" {
			if secs, perr := strconv.Atoi(retryAfter); perr == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		if wait == 0 {
			wait = (800 * time.Millisecond) << attempt
			if wait > 8*time.Second {
				wait = 8 * time.Second
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
