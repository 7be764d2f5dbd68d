package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

func init() {
	RegisterProvider(&anthropicProvider{})
	RegisterProvider(&openaiProvider{})
	RegisterProvider(&ollamaProvider{})
}

// chatMessage is the role/content pair shared by all three wire formats.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatMessages(req Request) []chatMessage {
	var msgs []chatMessage
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.Prompt})
}

// anthropicProvider implements the Anthropic messages API.
type anthropicProvider struct{}

const anthropicVersion = "2023-06-01"

func (a *anthropicProvider) Name() string { return "anthropic" }

func (a *anthropicProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return strings.TrimSuffix(baseURL, "/") + "/v1/messages"
}

func (a *anthropicProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	req.Header.Set("anthropic-version", anthropicVersion)
}

func (a *anthropicProvider) BuildRequestBody(model string, req Request) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return json.Marshal(struct {
		Model       string        `json:"model"`
		MaxTokens   int           `json:"max_tokens"`
		Messages    []chatMessage `json:"messages"`
		System      string        `json:"system,omitempty"`
		Temperature *float64      `json:"temperature,omitempty"`
	}{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		System:      req.System,
		Temperature: req.Temperature,
	})
}

func (a *anthropicProvider) ParseResponse(body []byte, _ string) (*Response, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Model      string `json:"model"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse anthropic response: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("anthropic response contains no text content")
	}

	return &Response{
		Content:      content.String(),
		Model:        resp.Model,
		FinishReason: resp.StopReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// openaiProvider implements the OpenAI chat completions API and any
// compatible endpoint.
type openaiProvider struct{}

func (o *openaiProvider) Name() string { return "openai" }

func (o *openaiProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return strings.TrimSuffix(baseURL, "/") + "/v1/chat/completions"
}

func (o *openaiProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

func (o *openaiProvider) BuildRequestBody(model string, req Request) ([]byte, error) {
	body := struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		Temperature *float64      `json:"temperature,omitempty"`
	}{
		Model:       model,
		Messages:    chatMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	return json.Marshal(body)
}

func (o *openaiProvider) ParseResponse(body []byte, _ string) (*Response, error) {
	var resp struct {
		Choices []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Model string `json:"model"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response contains no choices")
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: resp.Choices[0].FinishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ollamaProvider implements the Ollama chat API for local models.
type ollamaProvider struct{}

func (o *ollamaProvider) Name() string { return "ollama" }

func (o *ollamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return strings.TrimSuffix(baseURL, "/") + "/api/chat"
}

func (o *ollamaProvider) SetHeaders(_ *http.Request, _ string) {}

func (o *ollamaProvider) BuildRequestBody(model string, req Request) ([]byte, error) {
	options := map[string]any{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	body := struct {
		Model    string         `json:"model"`
		Messages []chatMessage  `json:"messages"`
		Stream   bool           `json:"stream"`
		Options  map[string]any `json:"options,omitempty"`
	}{
		Model:    model,
		Messages: chatMessages(req),
		Stream:   false,
		Options:  options,
	}
	return json.Marshal(body)
}

func (o *ollamaProvider) ParseResponse(body []byte, model string) (*Response, error) {
	var resp struct {
		Message    chatMessage `json:"message"`
		Model      string      `json:"model"`
		DoneReason string      `json:"done_reason"`
		PromptEval int         `json:"prompt_eval_count"`
		EvalCount  int         `json:"eval_count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse ollama response: %w", err)
	}
	if resp.Model == "" {
		resp.Model = model
	}

	return &Response{
		Content:      resp.Message.Content,
		Model:        resp.Model,
		FinishReason: resp.DoneReason,
		Usage: Usage{
			PromptTokens:     resp.PromptEval,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEval + resp.EvalCount,
		},
	}, nil
}
