package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama is the backend for Ollama and LM Studio through their
// OpenAI-compatible API. No API key is required by default.
type Ollama struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func openOllama(_ context.Context, apiKey string) (Backend, error) {
	return &Ollama{
		apiKey:  apiKey,
		baseURL: ollamaEndpoint(os.Getenv("OLLAMA_HOST")),
		client:  &http.Client{Timeout: 300 * time.Second},
	}, nil
}

// ollamaEndpoint normalizes a host setting to the chat-completions URL.
func ollamaEndpoint(host string) string {
	if host == "" {
		host = defaultOllamaURL
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, "/v1/chat/completions")
	host = strings.TrimSuffix(host, "/v1")
	return host + "/v1/chat/completions"
}

func (o *Ollama) Family() Family { return FamilyOllama }

// Model returns a chat model without strict schema mode, which local servers
// commonly reject.
func (o *Ollama) Model(name string) Model {
	return &chatModel{
		name:    name,
		apiKey:  o.apiKey,
		baseURL: o.baseURL,
		client:  o.client,
	}
}
