// Package transcription submits recorded audio to the backend's batch
// transcription route.
package transcription

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const transcribePath = "/voice/transcribe"

// DefaultPlaceholderSentinels are prefixes the backend uses for dummy
// transcriptions when no real model is loaded.
var DefaultPlaceholderSentinels = []string{
	"streaming transcription result",
	"[placeholder",
}

type Result struct {
	Text       string
	Confidence *float64
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription request failed with status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	token      string
	language   string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *Client) {
		c.language = language
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   "en",
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type requestBody struct {
	AudioData string `json:"audioData"`
	Language  string `json:"language,omitempty"`
}

type responseBody struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Transcribe sends one complete audio payload and returns the recognized
// text. Placeholder detection is left to the caller, see IsPlaceholder.
func (c *Client) Transcribe(ctx context.Context, payload []byte) (Result, error) {
	ctx, span := tracer.Start(ctx, "transcribe audio")
	defer span.End()
	span.SetAttributes(attribute.Int("transcription.payload_bytes", len(payload)))

	result, err := c.transcribe(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	return result, nil
}

func (c *Client) transcribe(ctx context.Context, payload []byte) (Result, error) {
	body, err := json.Marshal(requestBody{
		AudioData: base64.StdEncoding.EncodeToString(payload),
		Language:  c.language,
	})
	if err != nil {
		return Result{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribePath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("error sending request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var parsed responseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("error decoding response: %w", err)
	}

	return Result{Text: strings.TrimSpace(parsed.Text), Confidence: parsed.Confidence}, nil
}

// IsPlaceholder reports whether text starts with one of the sentinels,
// ignoring case and surrounding whitespace.
func IsPlaceholder(text string, sentinels []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, sentinel := range sentinels {
		if sentinel == "" {
			continue
		}
		if strings.HasPrefix(normalized, strings.ToLower(sentinel)) {
			return true
		}
	}
	return false
}
