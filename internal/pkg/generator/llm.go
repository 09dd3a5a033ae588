package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitreadapp/GitRead/internal/pkg/env"
)

const (
	defaultLLMBaseURL = "https://openrouter.ai/api/v1"
	defaultLLMModel   = "google/gemini-2.5-pro-preview-03-25"
)

// LLMClient talks to an OpenAI-compatible chat-completions gateway.
type LLMClient struct {
	APIKey  string
	BaseURL string
	Model   string

	HTTPClient *http.Client
}

// ChatMessage is one turn of a chat-completion conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletion is the gateway's answer plus token accounting.
type ChatCompletion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewLLMClientFromEnv() *LLMClient {
	return &LLMClient{
		APIKey:  strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", "")),
		BaseURL: strings.TrimRight(env.GetEnv("OPENAI_BASE_URL", defaultLLMBaseURL), "/"),
		Model:   strings.TrimSpace(env.GetEnv("OPENAI_MODEL", defaultLLMModel)),
		HTTPClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// CreateChatCompletion sends messages to the gateway and returns the first
// choice with usage numbers.
func (c *LLMClient) CreateChatCompletion(ctx context.Context, messages []ChatMessage) (*ChatCompletion, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is not configured")
	}
	if len(messages) == 0 {
		return nil, errors.New("at least one message is required")
	}

	payload, err := json.Marshal(chatCompletionRequest{Model: c.Model, Messages: messages})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat completion failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("chat completion failed: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return &ChatCompletion{
		Content:          out.Choices[0].Message.Content,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}, nil
}
