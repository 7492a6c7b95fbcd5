// Package voice talks to the hosted voice-assistant provider's REST API.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("voice provider API key not configured")

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice provider returned %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

type Analysis struct {
	Summary string `json:"summary"`
}

type Artifact struct {
	Transcript   string `json:"transcript"`
	RecordingURL string `json:"recordingUrl"`
}

// Call is a call record as returned by the provider.
type Call struct {
	ID           string     `json:"id"`
	AssistantID  string     `json:"assistantId"`
	Status       string     `json:"status"`
	EndedReason  string     `json:"endedReason"`
	StartedAt    *time.Time `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt"`
	Cost         float64    `json:"cost"` // dollars
	Customer     Customer   `json:"customer"`
	Analysis     Analysis   `json:"analysis"`
	Artifact     Artifact   `json:"artifact"`
	Transcript   string     `json:"transcript"`
	Summary      string     `json:"summary"`
	RecordingURL string     `json:"recordingUrl"`
}

func (c *Call) DurationSeconds() int {
	if c.StartedAt == nil || c.EndedAt == nil || c.EndedAt.Before(*c.StartedAt) {
		return 0
	}
	return int(c.EndedAt.Sub(*c.StartedAt).Seconds())
}

func (c *Call) CostCents() int {
	return int(math.Round(c.Cost * 100))
}

// TranscriptText prefers the artifact transcript over the legacy field.
func (c *Call) TranscriptText() string {
	return firstNonEmpty(c.Artifact.Transcript, c.Transcript)
}

func (c *Call) SummaryText() string {
	return firstNonEmpty(c.Analysis.Summary, c.Summary)
}

func (c *Call) Recording() string {
	return firstNonEmpty(c.Artifact.RecordingURL, c.RecordingURL)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AssistantConfig is the subset of assistant settings pushed to the provider.
type AssistantConfig struct {
	Name         string      `json:"name"`
	FirstMessage string      `json:"firstMessage,omitempty"`
	Model        ModelConfig `json:"model"`
	Voice        *VoiceRef   `json:"voice,omitempty"`
}

type ModelConfig struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type VoiceRef struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// ListCalls returns calls created after since, newest first.
func (c *Client) ListCalls(ctx context.Context, since time.Time, limit int) ([]Call, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if !since.IsZero() {
		q.Set("createdAtGt", since.UTC().Format(time.RFC3339))
	}

	var calls []Call
	if err := c.do(ctx, http.MethodGet, "/call?"+q.Encode(), nil, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

func (c *Client) CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/assistant", cfg, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) UpdateAssistant(ctx context.Context, providerID string, cfg AssistantConfig) error {
	return c.do(ctx, http.MethodPatch, "/assistant/"+url.PathEscape(providerID), cfg, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("voice provider request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
