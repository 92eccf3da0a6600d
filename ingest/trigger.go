package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"hud/models"
)

// Trigger calls the external fetch functions that do the actual twitter (and
// optionally out-of-process RSS) content fetching. Callers treat it as fire
// and forget.
type Trigger struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewTrigger(baseURL, token string, timeout time.Duration) *Trigger {
	return &Trigger{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
	}
}

// Configured reports whether an external fetcher endpoint is set up.
func (t *Trigger) Configured() bool {
	return t != nil && t.baseURL != ""
}

// Fire posts a fetch request for one source to the external function named
// by the source kind.
func (t *Trigger) Fire(ctx context.Context, sourceID, kind string) error {
	slug := "rss-fetch"
	if kind == models.KindTwitter {
		slug = "twitter-fetch"
	}

	body, err := json.Marshal(map[string]string{"sourceId": sourceID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s", t.baseURL, slug), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", slug, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("trigger %s: unexpected status %d", slug, resp.StatusCode)
	}
	return nil
}
