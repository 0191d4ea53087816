package dialogue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const chatPath = "/chat"

const (
	requestTypeVoice = "voiceInteraction"
	requestTypeText  = "textInteraction"
)

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dialogue request failed with status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
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
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type requestBody struct {
	Message      string `json:"message"`
	SessionID    string `json:"sessionId"`
	VoiceEnabled bool   `json:"voiceEnabled"`
	RequestType  string `json:"requestType"`
}

type responseBody struct {
	Content       string    `json:"content"`
	VoiceResponse *string   `json:"voiceResponse,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (c *Client) Send(ctx context.Context, request Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "send utterance")
	defer span.End()
	span.SetAttributes(
		attribute.String("dialogue.session_id", request.SessionID),
		attribute.String("dialogue.modality", string(request.Modality)),
	)

	response, err := c.send(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}
	span.SetAttributes(attribute.Bool("dialogue.has_audio", len(response.AudioResponsePayload) > 0))

	return response, nil
}

func (c *Client) send(ctx context.Context, request Request) (Response, error) {
	reqBody := requestBody{
		Message:      request.UtteranceText,
		SessionID:    request.SessionID,
		VoiceEnabled: request.Modality == ModalityVoice,
		RequestType:  requestTypeText,
	}
	if request.Modality == ModalityVoice {
		reqBody.RequestType = requestTypeVoice
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("error sending request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Response{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var parsed responseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("error decoding response: %w", err)
	}

	response := Response{ResponseText: parsed.Content, Timestamp: parsed.Timestamp}
	if parsed.VoiceResponse != nil && *parsed.VoiceResponse != "" {
		audio, err := base64.StdEncoding.DecodeString(*parsed.VoiceResponse)
		if err != nil {
			// the text reply is still usable without speech
			logger.Warn("failed to decode voice response", "error", err)
		} else {
			response.AudioResponsePayload = audio
		}
	}
	if response.Timestamp.IsZero() {
		response.Timestamp = time.Now()
	}

	return response, nil
}
