// API service for making JSON requests against a catalog's public HTTP API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/deemixkit/internal/shared"
)

const errorSnippetLen = 200

// APIService performs GET requests against a provider API and classifies failures into the
// catalog error taxonomy: [shared.ErrNetwork], [shared.ProviderError] and [shared.ErrParse].
type APIService struct {
	provider   string
	httpClient *http.Client
}

// NewAPIService creates a new API service for the named provider.
func NewAPIService(provider string, client *http.Client) *APIService {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		provider:   provider,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the absolute URL and returns the raw response.
func (a *APIService) Get(ctx context.Context, rawURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s request failed: %v", shared.ErrNetwork, a.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %v", shared.ErrNetwork, a.provider, err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// GetJSON performs a GET request and decodes a 2xx JSON body into v.
func (a *APIService) GetJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := a.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return &shared.ProviderError{
			Provider: a.provider,
			Status:   resp.StatusCode,
			Message:  snippet(resp.Body),
		}
	}

	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrParse, a.provider, err)
	}

	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > errorSnippetLen {
		s = s[:errorSnippetLen] + "..."
	}
	return s
}
