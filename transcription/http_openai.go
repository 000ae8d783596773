package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

const openAITranscriptionURL = "https://api.openai.com/v1/audio/transcriptions"

// OpenAIBackend is the HTTP-OpenAI-compatible dialect: multipart POST,
// bearer auth, fixed model/temperature/response_format fields.
type OpenAIBackend struct {
	APIKey string
	URL    string // overridable for OpenAI-compatible third-party endpoints
	Client *http.Client
}

// NewOpenAIBackend builds a backend with the default OpenAI endpoint and
// request timeout.
func NewOpenAIBackend(apiKey string) *OpenAIBackend {
	return &OpenAIBackend{
		APIKey: apiKey,
		URL:    openAITranscriptionURL,
		Client: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Transcribe implements Backend.
func (b *OpenAIBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if b.APIKey == "" {
		return "", &Error{Kind: ErrAPIKeyMissing}
	}

	body, contentType, err := buildMultipartForm(wavPath, map[string]string{
		"model":           "whisper-1",
		"temperature":     "0.0",
		"response_format": "json",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, body)
	if err != nil {
		return "", &Error{Kind: ErrIO, Message: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	return doTranscriptionRequest(b.Client, req)
}

// buildMultipartForm streams wavPath as the "file" field alongside the
// given extra string fields: temperature and response_format for both HTTP
// dialects, plus model for OpenAI (Azure names the model in its URL).
func buildMultipartForm(wavPath string, fields map[string]string) (*multipartBody, string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", &Error{Kind: ErrFileNotFound}
		}
		return nil, "", &Error{Kind: ErrIO, Message: err.Error()}
	}
	defer f.Close()

	buf := newMultipartBody()
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", &Error{Kind: ErrIO, Message: err.Error()}
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", &Error{Kind: ErrIO, Message: err.Error()}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", &Error{Kind: ErrIO, Message: err.Error()}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", &Error{Kind: ErrIO, Message: err.Error()}
	}

	return buf, w.FormDataContentType(), nil
}

// doTranscriptionRequest executes req and parses a {"text": "..."} JSON
// response, mapping non-2xx statuses to Error with the status preserved so
// 401 can be distinguished upstream.
func doTranscriptionRequest(client *http.Client, req *http.Request) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{Kind: ErrAPI, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: ErrIO, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Kind: ErrAPI, HTTPStatus: resp.StatusCode, Message: string(respBody)}
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &Error{Kind: ErrAPI, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	return parsed.Text, nil
}
