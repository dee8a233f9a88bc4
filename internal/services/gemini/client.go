// Package gemini talks to the Google Generative Language API to turn audio
// voice notes into structured food data.
package gemini

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

	"github.com/google/uuid"

	"mealvault/internal/services"
	"mealvault/internal/transcription"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the runtime settings required to talk to the service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the generateContent endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client using the supplied
// configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if client.cfg.Model == "" {
		client.cfg.Model = "gemini-flash-latest"
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Transcribe sends the audio inline and returns the normalized result.
// Transport failures and server-side errors classify as network errors so
// callers can queue the request; a well-formed HTTP exchange that yields an
// unusable payload classifies as validation.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (*transcription.Result, error) {
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrValidation, "gemini", "transcribe", "audio payload required", nil)
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "audio/webm"
	}

	payload := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: transcriptionPrompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(audio)}},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	raw, err := c.generate(ctx, payload, "transcribe")
	if err != nil {
		return nil, err
	}
	return transcription.Decode(raw)
}

// Clarify re-runs the analysis with the prior partial result plus the user's
// typed answer, producing an improved result.
func (c *Client) Clarify(ctx context.Context, prior *transcription.Result, note string) (*transcription.Result, error) {
	if prior == nil {
		return nil, services.Wrap(services.ErrValidation, "gemini", "clarify", "prior result required", nil)
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, services.Wrap(services.ErrValidation, "gemini", "clarify", "clarification text required", nil)
	}
	priorJSON, err := json.Marshal(prior)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "gemini", "clarify", "encode prior result", err)
	}

	payload := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: fmt.Sprintf(clarificationPrompt, priorJSON, note)}},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	raw, err := c.generate(ctx, payload, "clarify")
	if err != nil {
		return nil, err
	}
	return transcription.Decode(raw)
}

func (c *Client) generate(ctx context.Context, payload generateRequest, op string) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrValidation, "gemini", op, "api key required", nil)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "gemini", op, "encode request", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "gemini", op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "gemini", op, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "gemini", op, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrNetwork, "gemini", op,
			fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(respBody)), nil)
	default:
		return nil, services.Wrap(services.ErrValidation, "gemini", op,
			fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(respBody)), nil)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, services.Wrap(services.ErrValidation, "gemini", op, "parse response", err)
	}
	if parsed.Error != nil {
		return nil, services.Wrap(services.ErrValidation, "gemini", op, parsed.Error.Message, nil)
	}

	text := parsed.text()
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "gemini", op, "response has no text content", nil)
	}
	return []byte(stripFences(text)), nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r generateResponse) text() string {
	var builder strings.Builder
	for _, candidate := range r.Candidates {
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
		if builder.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(builder.String())
}

// stripFences removes a markdown code fence the model sometimes wraps around
// its JSON despite the response mime type.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}
