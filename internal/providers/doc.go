// Package providers implements structured-output model backends, one per
// provider family.
//
// Supported families: Anthropic (Claude, via a forced tool call), OpenAI
// (json_schema response format), Google Gemini (genai SDK with a response
// JSON schema), and Ollama / LM Studio (OpenAI-compatible endpoint).
//
// A [Factory] is chosen by [Family] at startup; it opens a [Backend] for an
// API key, and the backend hands out a callable [Model] per model name.
// Every family receives the schema as plain JSON Schema and returns the raw
// JSON object it produced, untouched; validation happens in the caller.
//
// The HTTP families share a retry helper with exponential back-off for rate
// limits and server errors. HTTP clients are injected so tests can redirect
// calls to local httptest servers.
package providers
