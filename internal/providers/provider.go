package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Family selects a backend implementation.
type Family string

const (
	FamilyAnthropic Family = "anthropic"
	FamilyOpenAI    Family = "openai"
	FamilyGemini    Family = "gemini"
	FamilyOllama    Family = "ollama"
)

// ParseFamily maps a configured provider name, including aliases, to a Family.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anthropic", "claude":
		return FamilyAnthropic, nil
	case "openai":
		return FamilyOpenAI, nil
	case "gemini", "google":
		return FamilyGemini, nil
	case "ollama", "lmstudio":
		return FamilyOllama, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", name)
	}
}

// ObjectRequest asks a model for one JSON value matching Schema.
type ObjectRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// SchemaName identifies the schema to backends that need a name.
	SchemaName string
	// Schema is a JSON Schema document in plain map form.
	Schema map[string]any
}

// Usage is the token accounting reported by a backend.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// ObjectResponse carries the raw JSON produced by the model.
type ObjectResponse struct {
	Object json.RawMessage
	Usage  Usage
}

// Model is a callable handle for one model of a backend.
type Model interface {
	GenerateObject(ctx context.Context, req ObjectRequest) (ObjectResponse, error)
	Name() string
}

// Backend is an opened provider that hands out models by name.
type Backend interface {
	Family() Family
	Model(name string) Model
}

// Factory opens a Backend for an API key.
type Factory interface {
	Open(ctx context.Context, apiKey string) (Backend, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, apiKey string) (Backend, error)

func (f FactoryFunc) Open(ctx context.Context, apiKey string) (Backend, error) {
	return f(ctx, apiKey)
}

// FactoryFor returns the factory registered for a family.
func FactoryFor(f Family) (Factory, error) {
	switch f {
	case FamilyAnthropic:
		return FactoryFunc(openAnthropic), nil
	case FamilyOpenAI:
		return FactoryFunc(openOpenAI), nil
	case FamilyGemini:
		return FactoryFunc(openGemini), nil
	case FamilyOllama:
		return FactoryFunc(openOllama), nil
	default:
		return nil, fmt.Errorf("no factory for provider family %q", f)
	}
}

// APIKeyEnv lists the environment variables holding a family's API key, in
// lookup order. Ollama needs none by default.
func APIKeyEnv(f Family) []string {
	switch f {
	case FamilyAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	case FamilyOpenAI:
		return []string{"OPENAI_API_KEY"}
	case FamilyGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case FamilyOllama:
		return []string{"PRREVIEW_OLLAMA_API_KEY"}
	default:
		return nil
	}
}

// APIKeyFromEnv returns the first non-empty key for the family.
func APIKeyFromEnv(f Family, getenv func(string) string) string {
	for _, k := range APIKeyEnv(f) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func requireKey(f Family, apiKey string) error {
	if apiKey == "" {
		return &authError{message: fmt.Sprintf("%s API key is not set (%s)", f, strings.Join(APIKeyEnv(f), " or "))}
	}
	return nil
}
