package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI is the OpenAI chat-completions backend using strict json_schema
// response formats.
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func openOpenAI(_ context.Context, apiKey string) (Backend, error) {
	if err := requireKey(FamilyOpenAI, apiKey); err != nil {
		return nil, err
	}
	baseURL := os.Getenv("PRREVIEW_OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (o *OpenAI) Family() Family { return FamilyOpenAI }

func (o *OpenAI) Model(name string) Model {
	return &chatModel{
		name:    name,
		apiKey:  o.apiKey,
		baseURL: o.baseURL,
		client:  o.client,
		strict:  true,
	}
}

// chatModel speaks the OpenAI chat-completions protocol. Ollama and LM Studio
// reuse it through their OpenAI-compatible endpoint.
type chatModel struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	strict  bool
}

func (m *chatModel) Name() string { return m.name }

func (m *chatModel) GenerateObject(ctx context.Context, req ObjectRequest) (ObjectResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var messages []openaiMessage
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: req.Prompt})

	body := openaiRequest{
		Model:       m.name,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		ResponseFormat: &openaiResponseFormat{
			Type: "json_schema",
			JSONSchema: openaiJSONSchema{
				Name:   toolNameFor(req.SchemaName),
				Schema: req.Schema,
				Strict: m.strict,
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ObjectResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	var resp ObjectResponse
	err = retryWithBackoff(ctx, 3, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", m.baseURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if m.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
		}

		respBody, err := doJSON(m.client, httpReq)
		if err != nil {
			return err
		}

		var result openaiResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		content := result.Choices[0].Message.Content
		if content == "" {
			return fmt.Errorf("empty text content in API response")
		}
		obj := extractJSON(content)
		if obj == nil {
			return fmt.Errorf("response content is not JSON: %.200s", content)
		}

		resp = ObjectResponse{
			Object: obj,
			Usage: Usage{
				InputTokens:  result.Usage.PromptTokens,
				OutputTokens: result.Usage.CompletionTokens,
				TotalTokens:  result.Usage.TotalTokens,
			},
		}
		return nil
	})

	return resp, err
}

type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema openaiJSONSchema `json:"json_schema"`
}

type openaiJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
