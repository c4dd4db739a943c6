package inference

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/dshills/prreview/internal/providers"
	"github.com/dshills/prreview/internal/schema"
)

type finding struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

type findings struct {
	Findings []finding `json:"findings"`
}

// fakeModel returns a canned object and records the last request.
type fakeModel struct {
	object string
	usage  providers.Usage
	err    error
	last   providers.ObjectRequest
	calls  int
}

func (f *fakeModel) Name() string { return "fake-model" }

func (f *fakeModel) GenerateObject(_ context.Context, req providers.ObjectRequest) (providers.ObjectResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return providers.ObjectResponse{}, f.err
	}
	return providers.ObjectResponse{Object: []byte(f.object), Usage: f.usage}, nil
}

func findingsRequest() Request[findings] {
	return Request[findings]{
		Prompt: "review this",
		System: "you are a reviewer",
		Schema: schema.MustFor[findings](),
	}
}

func TestRun_PlainValue(t *testing.T) {
	m := &fakeModel{object: `{"findings":[{"file":"a.go","message":"nil deref"}]}`}
	got, err := Run(context.Background(), &Provider{Model: m}, findingsRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got.Findings) != 1 || got.Findings[0].File != "a.go" {
		t.Errorf("got %+v", got)
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want 1", m.calls)
	}
}

func TestRun_SentinelUnwrapped(t *testing.T) {
	m := &fakeModel{object: `{"$PARAMETER_NAME":{"findings":[{"file":"b.go","message":"leak"}]}}`}
	got, err := Run(context.Background(), &Provider{Model: m}, findingsRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got.Findings) != 1 || got.Findings[0].Message != "leak" {
		t.Errorf("got %+v", got)
	}
}

func TestRun_SentinelPayloadInvalidFallsBackToRaw(t *testing.T) {
	s, err := schema.FromJSON("loose", []byte(`{
		"type": "object",
		"properties": {"note": {"type": "string"}},
		"required": ["note"]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	m := &fakeModel{object: `{"$PARAMETER_NAME": 5, "note": "kept"}`}
	got, err := Run(context.Background(), &Provider{Model: m}, Request[map[string]any]{Prompt: "p", Schema: s})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got["note"] != "kept" {
		t.Errorf("got %v, want raw value", got)
	}
	if _, ok := got[SentinelKey]; !ok {
		t.Errorf("raw value should keep the sentinel key: %v", got)
	}
}

func TestRun_InvalidValue(t *testing.T) {
	tests := []struct {
		name   string
		object string
	}{
		{"wrong shape", `{"items":[]}`},
		{"sentinel with bad payload", `{"$PARAMETER_NAME":{"findings":"none"}}`},
		{"not json", `definitely not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{object: tt.object}
			_, err := Run(context.Background(), &Provider{Model: m}, findingsRequest())
			var sve *SchemaValidationError
			if !errors.As(err, &sve) {
				t.Fatalf("err = %v, want *SchemaValidationError", err)
			}
			if sve.Value == nil || sve.Detail == "" {
				t.Errorf("error lacks value or detail: %+v", sve)
			}
		})
	}
}

func TestUnwrap_ReportsPayloadViolation(t *testing.T) {
	raw, err := schema.Decode([]byte(`{"$PARAMETER_NAME":{"findings":"none"}}`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Unwrap(schema.MustFor[findings](), raw)
	var sve *SchemaValidationError
	if !errors.As(err, &sve) {
		t.Fatalf("err = %v, want *SchemaValidationError", err)
	}
	if !strings.Contains(sve.Detail, SentinelKey+" payload") {
		t.Errorf("detail = %q, want the payload's violation", sve.Detail)
	}
	if !strings.Contains(sve.Detail, "/findings") {
		t.Errorf("detail = %q, want the failing location inside the payload", sve.Detail)
	}
}

func TestRun_RequestShape(t *testing.T) {
	m := &fakeModel{object: `{"findings":[]}`}
	req := findingsRequest()
	if _, err := Run(context.Background(), &Provider{Model: m, MaxTokens: 512}, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.last.Temperature != 0 {
		t.Errorf("Temperature = %v, want default 0", m.last.Temperature)
	}
	if m.last.System != "you are a reviewer" || m.last.Prompt != "review this" {
		t.Errorf("prompt not forwarded: %+v", m.last)
	}
	if m.last.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d", m.last.MaxTokens)
	}
	if m.last.SchemaName != "findings" {
		t.Errorf("SchemaName = %q", m.last.SchemaName)
	}
	if _, ok := m.last.Schema["$schema"]; ok {
		t.Error("wire schema must not carry $schema")
	}
	if m.last.Schema["type"] != "object" {
		t.Errorf("wire schema type = %v", m.last.Schema["type"])
	}

	temp := 0.7
	req.Temperature = &temp
	if _, err := Run(context.Background(), &Provider{Model: m}, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.last.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", m.last.Temperature)
	}
}

func TestRun_BackendError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), &Provider{Model: &fakeModel{err: boom}}, findingsRequest())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	var sve *SchemaValidationError
	if errors.As(err, &sve) {
		t.Error("backend failure must not be reported as a validation error")
	}
}

func TestRun_DebugLogsUsage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := &fakeModel{
		object: `{"findings":[]}`,
		usage:  providers.Usage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15},
	}
	p := &Provider{Model: m, Family: providers.FamilyOpenAI, Debug: true, Logger: logger}

	got, err := Run(context.Background(), p, findingsRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Findings == nil || len(got.Findings) != 0 {
		t.Errorf("result altered by debug logging: %+v", got)
	}
	out := buf.String()
	for _, want := range []string{"input=12", "output=3", "total=15", "model=fake-model", "provider=openai"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}

	buf.Reset()
	p.Debug = false
	if _, err := Run(context.Background(), p, findingsRequest()); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("usage logged without debug: %q", buf.String())
	}
}

func TestRun_NoModel(t *testing.T) {
	if _, err := Run(context.Background(), &Provider{}, findingsRequest()); err == nil {
		t.Error("expected error without a model")
	}
}

func TestOpen(t *testing.T) {
	p, err := Open(context.Background(), providers.FamilyOllama, "llama3.1", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.Model.Name() != "llama3.1" || p.Family != providers.FamilyOllama {
		t.Errorf("provider = %+v", p)
	}
	if _, err := Open(context.Background(), providers.FamilyAnthropic, "m", ""); !providers.IsAuthError(err) {
		t.Errorf("expected auth error without key, got %v", err)
	}
}
