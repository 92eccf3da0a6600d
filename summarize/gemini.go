// Package summarize generates short AI summaries of feed items through the
// Gemini generateContent API.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultModel is used when the config does not name one.
const DefaultModel = "gemini-1.5-flash-latest"

const defaultBaseURL = "https://generativelanguage.googleapis.com"

var summarizeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hud_summarize_calls_total",
	Help: "Number of summary generations by outcome",
}, []string{"outcome"})

// ErrMissingKey is returned when neither a user key nor a server key exists.
var ErrMissingKey = errors.New("missing Gemini API key")

// Client talks to the Gemini REST API. The base URL is swappable for tests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

// Model returns the model name used for provenance metadata.
func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize asks the model for a two sentence summary of one item. Errors
// carry upstream detail for logging; callers must not expose them verbatim.
func (c *Client) Summarize(ctx context.Context, apiKey, title, snippet, itemURL string) (string, error) {
	if title == "" {
		title = "Untitled item"
	}

	prompt := fmt.Sprintf(`Summarize the following news item in two concise sentences. Focus on key facts and avoid speculation.

Title: %s
Content:
%s
`, title, snippet)
	if itemURL != "" {
		prompt += fmt.Sprintf("Source: %s", itemURL)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.3,
			MaxOutputTokens: 256,
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		summarizeCalls.WithLabelValues("error").Inc()
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		summarizeCalls.WithLabelValues("error").Inc()
		return "", fmt.Errorf("gemini response decode: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		summarizeCalls.WithLabelValues("error").Inc()
		message := resp.Status
		if payload.Error != nil && payload.Error.Message != "" {
			message = payload.Error.Message
		}
		return "", fmt.Errorf("gemini request failed: %s", message)
	}

	if len(payload.Candidates) == 0 {
		summarizeCalls.WithLabelValues("error").Inc()
		return "", errors.New("gemini response missing candidates")
	}

	parts := payload.Candidates[0].Content.Parts
	if len(parts) == 0 {
		summarizeCalls.WithLabelValues("error").Inc()
		return "", errors.New("gemini response missing content parts")
	}

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	summary := strings.TrimSpace(strings.Join(texts, " "))
	if summary == "" {
		summarizeCalls.WithLabelValues("error").Inc()
		return "", errors.New("gemini returned empty summary")
	}

	summarizeCalls.WithLabelValues("ok").Inc()
	return summary, nil
}
