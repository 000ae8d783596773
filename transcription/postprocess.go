package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// PostProcessor is a best-effort LLM cleanup pass run on a transcript after
// a successful backend call. Any failure (network, auth, malformed
// response) returns the original text unchanged rather than surfacing an
// error: post-processing is a polish step, not a required one.
type PostProcessor struct {
	APIKey string
	URL    string
	Model  string
	Prompt string
	Client *http.Client
}

// NewPostProcessor builds a processor targeting an OpenAI-compatible
// "responses" endpoint.
func NewPostProcessor(apiKey, url, model, prompt string) *PostProcessor {
	return &PostProcessor{
		APIKey: apiKey,
		URL:    url,
		Model:  model,
		Prompt: prompt,
		Client: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Process returns a cleaned-up version of text, or text unchanged if the
// call fails for any reason. Callers should skip this for empty input.
func (p *PostProcessor) Process(ctx context.Context, text string) string {
	if p == nil || p.APIKey == "" || text == "" {
		return text
	}

	reqBody, err := json.Marshal(map[string]string{
		"model":        p.Model,
		"instructions": p.Prompt,
		"input":        text,
	})
	if err != nil {
		slog.Warn("postprocess: marshal request failed", "error", err)
		return text
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(reqBody))
	if err != nil {
		slog.Warn("postprocess: build request failed", "error", err)
		return text
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		slog.Warn("postprocess: request failed, keeping original transcript", "error", err)
		return text
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("postprocess: read response failed", "error", err)
		return text
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("postprocess: non-2xx response, keeping original transcript", "status", resp.StatusCode)
		return text
	}

	var parsed struct {
		OutputText string `json:"output_text"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.OutputText == "" {
		slog.Warn("postprocess: malformed response, keeping original transcript")
		return text
	}
	return parsed.OutputText
}
