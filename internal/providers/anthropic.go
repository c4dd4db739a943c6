package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	defaultMaxTokens    = 4096
)

// Anthropic is the Claude backend. Structured output is obtained by forcing a
// single tool call whose input schema is the requested schema.
type Anthropic struct {
	apiKey string
	client *http.Client
}

func openAnthropic(_ context.Context, apiKey string) (Backend, error) {
	if err := requireKey(FamilyAnthropic, apiKey); err != nil {
		return nil, err
	}
	return &Anthropic{
		apiKey: apiKey,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *Anthropic) Family() Family { return FamilyAnthropic }

func (a *Anthropic) Model(name string) Model {
	return &anthropicModel{backend: a, name: name}
}

type anthropicModel struct {
	backend *Anthropic
	name    string
}

func (m *anthropicModel) Name() string { return m.name }

func (m *anthropicModel) GenerateObject(ctx context.Context, req ObjectRequest) (ObjectResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	toolName := toolNameFor(req.SchemaName)

	body := anthropicRequest{
		Model:       m.name,
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: req.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
		Tools: []anthropicTool{{
			Name:        toolName,
			Description: "Respond with the requested structured result.",
			InputSchema: req.Schema,
		}},
		ToolChoice: &anthropicToolChoice{Type: "tool", Name: toolName},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ObjectResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	var resp ObjectResponse
	err = retryWithBackoff(ctx, 3, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", anthropicAPIURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", m.backend.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

		respBody, err := doJSON(m.backend.client, httpReq)
		if err != nil {
			return err
		}

		var result anthropicResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}

		obj, err := result.object(toolName)
		if err != nil {
			return err
		}
		resp = ObjectResponse{
			Object: obj,
			Usage: Usage{
				InputTokens:  result.Usage.InputTokens,
				OutputTokens: result.Usage.OutputTokens,
				TotalTokens:  result.Usage.InputTokens + result.Usage.OutputTokens,
			},
		}
		return nil
	})

	return resp, err
}

// object returns the forced tool input. Models that answer in prose instead
// are tolerated when the text is itself JSON.
func (r anthropicResponse) object(tool string) (json.RawMessage, error) {
	var text string
	for _, block := range r.Content {
		switch block.Type {
		case "tool_use":
			if block.Name == tool && len(block.Input) > 0 {
				return block.Input, nil
			}
		case "text":
			text += block.Text
		}
	}
	if raw := extractJSON(text); raw != nil {
		return raw, nil
	}
	return nil, fmt.Errorf("no structured output in response")
}

// doJSON sends req and maps HTTP failures onto the retry error types.
func doJSON(client *http.Client, req *http.Request) ([]byte, error) {
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case httpResp.StatusCode == 429:
		return nil, &rateLimitError{}
	case httpResp.StatusCode == 401 || httpResp.StatusCode == 403:
		return nil, &authError{message: string(respBody)}
	case httpResp.StatusCode >= 500:
		return nil, &serverError{statusCode: httpResp.StatusCode, body: string(respBody)}
	case httpResp.StatusCode != 200:
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func toolNameFor(schemaName string) string {
	if schemaName == "" {
		return "structured_output"
	}
	return schemaName
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Temperature float64              `json:"temperature"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicBlock `json:"content"`
	Usage   anthropicUsage   `json:"usage"`
}

type anthropicBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
