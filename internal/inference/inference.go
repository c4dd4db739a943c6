// Package inference runs structured-output requests against a model backend
// and validates what comes back.
//
// Some models wrap their answer in a placeholder object keyed by the literal
// parameter name of the tool they were asked to call:
//
//	{"$PARAMETER_NAME": {"findings": []}}
//
// Run unwraps that envelope when the inner value satisfies the schema, and
// otherwise falls back to validating the value as returned.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dshills/prreview/internal/logging"
	"github.com/dshills/prreview/internal/providers"
	"github.com/dshills/prreview/internal/schema"
)

// SentinelKey is the envelope key some models emit around the real payload.
const SentinelKey = "$PARAMETER_NAME"

// Request describes one structured-output call whose result decodes into T.
type Request[T any] struct {
	Prompt string
	System string
	// Temperature defaults to 0 when nil.
	Temperature *float64
	Schema      *schema.Schema
}

// Provider binds a model to run options.
type Provider struct {
	Model     providers.Model
	Family    providers.Family
	MaxTokens int
	// Debug logs token usage after every call.
	Debug  bool
	Logger *slog.Logger
}

// Open selects the backend factory for family and returns a Provider for the
// named model.
func Open(ctx context.Context, family providers.Family, model, apiKey string) (*Provider, error) {
	factory, err := providers.FactoryFor(family)
	if err != nil {
		return nil, err
	}
	backend, err := factory.Open(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", family, err)
	}
	return &Provider{Model: backend.Model(model), Family: family}, nil
}

// SchemaValidationError reports a model result that does not satisfy the
// requested schema.
type SchemaValidationError struct {
	Value  any
	Detail string
}

func (e *SchemaValidationError) Error() string {
	return "model output does not match schema: " + e.Detail
}

// Run performs a single model call and returns the validated result.
func Run[T any](ctx context.Context, p *Provider, req Request[T]) (T, error) {
	var zero T
	if p == nil || p.Model == nil {
		return zero, fmt.Errorf("inference: no model configured")
	}
	if req.Schema == nil {
		return zero, fmt.Errorf("inference: request has no schema")
	}

	temp := 0.0
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	resp, err := p.Model.GenerateObject(ctx, providers.ObjectRequest{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: temp,
		MaxTokens:   p.MaxTokens,
		SchemaName:  req.Schema.Name(),
		Schema:      req.Schema.Wire(),
	})
	if err != nil {
		return zero, fmt.Errorf("generating %s: %w", req.Schema.Name(), err)
	}
	p.logUsage(resp.Usage)

	raw, err := schema.Decode(resp.Object)
	if err != nil {
		return zero, &SchemaValidationError{Value: string(resp.Object), Detail: "invalid JSON: " + err.Error()}
	}

	value, err := Unwrap(req.Schema, raw)
	if err != nil {
		return zero, err
	}

	var out T
	data, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("re-encoding %s result: %w", req.Schema.Name(), err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, &SchemaValidationError{Value: value, Detail: err.Error()}
	}
	return out, nil
}

// Unwrap returns the schema-valid value carried by raw. A sentinel envelope
// whose payload validates yields the payload; otherwise raw itself must
// validate.
func Unwrap(s *schema.Schema, raw any) (any, error) {
	var payloadErr error
	if obj, ok := raw.(map[string]any); ok {
		if payload, ok := obj[SentinelKey]; ok {
			if payloadErr = s.Validate(payload); payloadErr == nil {
				return payload, nil
			}
		}
	}
	if err := s.Validate(raw); err != nil {
		detail := err.Error()
		if payloadErr != nil {
			detail = fmt.Sprintf("%s payload: %v; raw value: %s", SentinelKey, payloadErr, detail)
		}
		return nil, &SchemaValidationError{Value: raw, Detail: detail}
	}
	return raw, nil
}

func (p *Provider) logUsage(u providers.Usage) {
	if !p.Debug {
		return
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Debug("model usage",
		"provider", p.Family,
		"model", p.Model.Name(),
		"input", u.InputTokens,
		"output", u.OutputTokens,
		"total", u.TotalTokens,
	)
}
