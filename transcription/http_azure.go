package transcription

import (
	"context"
	"net/http"
	"net/url"
)

const azureAPIVersion = "2024-06-01"

// AzureBackend is the HTTP-Azure-OpenAI dialect: multipart POST to a
// user-supplied endpoint, api-key header auth, no model field (the model is
// baked into the endpoint's deployment).
type AzureBackend struct {
	APIKey   string
	Endpoint string // e.g. https://<resource>.openai.azure.com/openai/deployments/<deployment>/audio/transcriptions
	Client   *http.Client
}

// NewAzureBackend builds a backend against the given deployment endpoint.
func NewAzureBackend(apiKey, endpoint string) *AzureBackend {
	return &AzureBackend{
		APIKey:   apiKey,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Transcribe implements Backend.
func (b *AzureBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if b.APIKey == "" {
		return "", &Error{Kind: ErrAPIKeyMissing}
	}

	body, contentType, err := buildMultipartForm(wavPath, map[string]string{
		"temperature":     "0.0",
		"response_format": "json",
	})
	if err != nil {
		return "", err
	}

	reqURL, err := appendAPIVersion(b.Endpoint, azureAPIVersion)
	if err != nil {
		return "", &Error{Kind: ErrIO, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", &Error{Kind: ErrIO, Message: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("api-key", b.APIKey)

	return doTranscriptionRequest(b.Client, req)
}

func appendAPIVersion(endpoint, version string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("api-version", version)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
