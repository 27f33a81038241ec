package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const invokeTimeout = 60 * time.Second

// HTTPInvoker forwards prompts to a hosted model endpoint as JSON POST
// requests. The endpoint is expected to return either a {"response": ...}
// envelope or the raw completion text.
type HTTPInvoker struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPInvoker creates an invoker for the given endpoint. An empty apiKey
// sends no Authorization header.
func NewHTTPInvoker(endpoint, apiKey string) *HTTPInvoker {
	return &HTTPInvoker{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: invokeTimeout},
	}
}

// Invoke sends the prompt and returns the model's text response.
func (h *HTTPInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Response != "" {
		return envelope.Response, nil
	}
	return string(respBody), nil
}
