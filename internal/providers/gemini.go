package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Gemini is the Google Gemini backend built on the genai SDK.
type Gemini struct {
	client *genai.Client
}

func openGemini(ctx context.Context, apiKey string) (Backend, error) {
	return newGemini(ctx, apiKey, &http.Client{Timeout: 120 * time.Second}, "")
}

func newGemini(ctx context.Context, apiKey string, httpClient *http.Client, baseURL string) (*Gemini, error) {
	if err := requireKey(FamilyGemini, apiKey); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Family() Family { return FamilyGemini }

func (g *Gemini) Model(name string) Model {
	return &geminiModel{client: g.client, name: name}
}

type geminiModel struct {
	client *genai.Client
	name   string
}

func (m *geminiModel) Name() string { return m.name }

func (m *geminiModel) GenerateObject(ctx context.Context, req ObjectRequest) (ObjectResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens:    int32(maxTokens),
		Temperature:        &temp,
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: req.Schema,
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	var resp ObjectResponse
	err := retryWithBackoff(ctx, 3, func() error {
		result, err := m.client.Models.GenerateContent(ctx, m.name, genai.Text(req.Prompt), cfg)
		if err != nil {
			return classifyGeminiError(err)
		}

		text := geminiText(result)
		if text == "" {
			return fmt.Errorf("no content in response")
		}
		obj := extractJSON(text)
		if obj == nil {
			return fmt.Errorf("response content is not JSON: %.200s", text)
		}

		resp = ObjectResponse{Object: obj}
		if u := result.UsageMetadata; u != nil {
			resp.Usage = Usage{
				InputTokens:  int(u.PromptTokenCount),
				OutputTokens: int(u.CandidatesTokenCount),
				TotalTokens:  int(u.TotalTokenCount),
			}
		}
		return nil
	})

	return resp, err
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// classifyGeminiError maps SDK API errors onto the retry error types.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if p := (*genai.APIError)(nil); errors.As(err, &p) && p != nil {
		apiErr = *p
	} else if !errors.As(err, &apiErr) {
		return fmt.Errorf("sending request: %w", err)
	}
	switch {
	case apiErr.Code == 429:
		return &rateLimitError{}
	case apiErr.Code == 401 || apiErr.Code == 403:
		return &authError{message: apiErr.Message}
	case apiErr.Code >= 500:
		return &serverError{statusCode: apiErr.Code, body: apiErr.Message}
	default:
		return fmt.Errorf("API error (status %d): %s", apiErr.Code, apiErr.Message)
	}
}
