package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllama_GenerateObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Expected no Authorization header for keyless Ollama")
		}
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.JSONSchema.Strict {
			t.Errorf("expected non-strict response_format, got %+v", req.ResponseFormat)
		}

		resp := openaiResponse{
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: `{"findings":[]}`}},
			},
			Usage: openaiUsage{TotalTokens: 100},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client()}

	resp, err := o.Model("llama3").GenerateObject(context.Background(), ObjectRequest{
		Prompt: "test",
		Schema: findingsSchema,
	})
	if err != nil {
		t.Fatalf("GenerateObject error: %v", err)
	}
	if string(resp.Object) != `{"findings":[]}` {
		t.Errorf("Object = %s", resp.Object)
	}
	if resp.Usage.TotalTokens != 100 {
		t.Errorf("TotalTokens = %d, want 100", resp.Usage.TotalTokens)
	}
}

func TestOllama_WithAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer lm-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: `{}`}}},
		})
	}))
	defer server.Close()

	o := &Ollama{apiKey: "lm-key", baseURL: server.URL, client: server.Client()}
	if _, err := o.Model("m").GenerateObject(context.Background(), ObjectRequest{Prompt: "p"}); err != nil {
		t.Fatalf("GenerateObject error: %v", err)
	}
}

func TestOllamaEndpoint(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"", "http://localhost:11434/v1/chat/completions"},
		{"http://gpu:11434/", "http://gpu:11434/v1/chat/completions"},
		{"http://localhost:1234/v1", "http://localhost:1234/v1/chat/completions"},
		{"http://localhost:1234/v1/chat/completions", "http://localhost:1234/v1/chat/completions"},
	}
	for _, tt := range tests {
		if got := ollamaEndpoint(tt.host); got != tt.want {
			t.Errorf("ollamaEndpoint(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestOllama_ZeroTemperatureSent(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: `{"findings":[]}`}}},
		})
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client()}
	if _, err := o.Model("llama3.1").GenerateObject(context.Background(), ObjectRequest{Prompt: "p", Schema: findingsSchema}); err != nil {
		t.Fatalf("GenerateObject error: %v", err)
	}
	temp, ok := body["temperature"]
	if !ok || temp != 0.0 {
		t.Errorf("temperature = %v (present %v), want 0", temp, ok)
	}
}
