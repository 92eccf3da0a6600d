package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hud/db"
	"hud/feed"
	"hud/models"
	"hud/server"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-test-secret")

const testUser = "11111111-1111-1111-1111-111111111111"

type fakeStore struct {
	sources   []models.Source
	items     []models.SourcedItem
	owners    map[string]string
	bookmarks map[string]map[string]string
	settings  map[string]models.ProfileSettings
	tags      map[string][]string
	profiles  map[string]string

	feedErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		owners:    map[string]string{},
		bookmarks: map[string]map[string]string{},
		settings:  map[string]models.ProfileSettings{},
		tags:      map[string][]string{},
		profiles:  map[string]string{},
	}
}

func (s *fakeStore) addItem(userID string, item models.SourcedItem) {
	s.items = append(s.items, item)
	s.owners[item.ID] = userID
}

func (s *fakeStore) EnsureProfile(ctx context.Context, userID, email string) error {
	s.profiles[userID] = email
	return nil
}

func (s *fakeStore) GetSettings(ctx context.Context, userID string) (models.ProfileSettings, []string, error) {
	return s.settings[userID], s.tags[userID], nil
}

func (s *fakeStore) SaveSettings(ctx context.Context, userID string, settings models.ProfileSettings, focusTags []string) error {
	s.settings[userID] = settings
	s.tags[userID] = focusTags
	return nil
}

func (s *fakeStore) ListSources(ctx context.Context, userID string) ([]models.Source, error) {
	if s.feedErr != nil {
		return nil, s.feedErr
	}
	var out []models.Source
	for _, src := range s.sources {
		if src.UserID == userID {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateSource(ctx context.Context, src models.Source) (models.Source, error) {
	src.ID = uuid.New().String()
	src.Status = models.StatusQueued
	src.CreatedAt = time.Now()
	s.sources = append(s.sources, src)
	return src, nil
}

func (s *fakeStore) DeleteSource(ctx context.Context, userID, id string) error {
	for i, src := range s.sources {
		if src.ID == id && src.UserID == userID {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) EnqueueJob(ctx context.Context, sourceID string) (string, error) {
	return uuid.New().String(), nil
}

func (s *fakeStore) PageItems(ctx context.Context, userID string, before *time.Time, limit int) ([]models.SourcedItem, error) {
	var out []models.SourcedItem
	for _, item := range s.items {
		if s.owners[item.ID] != userID {
			continue
		}
		if before != nil && item.PublishedAt != nil && !item.PublishedAt.Before(*before) {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) BookmarkedItemIDs(ctx context.Context, userID string) (map[string]bool, error) {
	out := map[string]bool{}
	for itemID := range s.bookmarks[userID] {
		out[itemID] = true
	}
	return out, nil
}

func (s *fakeStore) ListBookmarks(ctx context.Context, userID string) ([]models.Bookmark, error) {
	var out []models.Bookmark
	for itemID, id := range s.bookmarks[userID] {
		out = append(out, models.Bookmark{ID: id, ItemID: itemID})
	}
	return out, nil
}

func (s *fakeStore) CreateBookmark(ctx context.Context, userID, itemID string) (string, error) {
	if s.bookmarks[userID] == nil {
		s.bookmarks[userID] = map[string]string{}
	}
	if existing, ok := s.bookmarks[userID][itemID]; ok {
		return existing, nil
	}
	id := uuid.New().String()
	s.bookmarks[userID][itemID] = id
	return id, nil
}

func (s *fakeStore) DeleteBookmark(ctx context.Context, userID, itemID string) error {
	delete(s.bookmarks[userID], itemID)
	return nil
}

func (s *fakeStore) GetItemForUser(ctx context.Context, itemID string) (models.SourcedItem, string, error) {
	owner, ok := s.owners[itemID]
	if !ok {
		return models.SourcedItem{}, "", db.ErrNotFound
	}
	for _, item := range s.items {
		if item.ID == itemID {
			return item, owner, nil
		}
	}
	return models.SourcedItem{}, "", db.ErrNotFound
}

func (s *fakeStore) SetItemMetadata(ctx context.Context, itemID string, metadata models.ItemMetadata) error {
	for i, item := range s.items {
		if item.ID == itemID {
			s.items[i].Metadata = metadata
			return nil
		}
	}
	return db.ErrNotFound
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, apiKey, title, snippet, url string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeSummarizer) Model() string {
	return "gemini-1.5-flash-latest"
}

func newTestApp(store *fakeStore, summarizer server.Summarizer, serverKey string) (*fiber.App, chan models.RefreshJob) {
	jobs := make(chan models.RefreshJob, 8)
	throttler := feed.NewThrottler(5*time.Minute, 15*time.Minute)
	assembler := feed.NewAssembler(store, feed.NewCache(16, 30*time.Second), throttler, jobs)

	app := server.Server(&server.ServerConfig{
		AuthSecret:  testSecret,
		Store:       store,
		Assembler:   assembler,
		Throttler:   throttler,
		Summarizer:  summarizer,
		ServerAIKey: serverKey,
		Jobs:        jobs,
	})
	return app, jobs
}

func authedRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := server.MintToken(testSecret, testUser, "user@example.com", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

func TestFeedRequiresAuth(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/feed", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req := httptest.NewRequest("GET", "/api/feed", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestFeedEmpty(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "GET", "/api/feed", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"nextCursor":null}`, string(body))
}

func TestFeedParameterValidation(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	targets := []string{
		"/api/feed?limit=0",
		"/api/feed?limit=101",
		"/api/feed?limit=abc",
		"/api/feed?before=yesterday",
		"/api/feed?mixRatio=1.5",
		"/api/feed?mixRatio=-0.1",
		"/api/feed?mixRatio=abc",
	}
	for _, target := range targets {
		resp, err := app.Test(authedRequest(t, "GET", target, nil))
		require.NoError(t, err)
		assert.Equalf(t, 400, resp.StatusCode, "target %s", target)
	}
}

func TestFeedMixRatioExtremes(t *testing.T) {
	store := newFakeStore()
	published := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	popularity := 0.9
	store.addItem(testUser, models.SourcedItem{
		Item: models.Item{
			ID:          uuid.New().String(),
			SourceID:    uuid.New().String(),
			Title:       "Focused",
			PublishedAt: &published,
			FocusTopics: []string{"go"},
			Metadata:    models.ItemMetadata{Popularity: &popularity},
		},
		SourceName: "Blog",
	})

	app, _ := newTestApp(store, &fakeSummarizer{}, "")

	var page models.FeedResponse
	resp, err := app.Test(authedRequest(t, "GET", "/api/feed?mixRatio=1.0", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	decodeBody(t, resp, &page)
	require.Len(t, page.Items, 1)
	assert.InDelta(t, 0.7, page.Items[0].FinalScore, 1e-9)

	resp, err = app.Test(authedRequest(t, "GET", "/api/feed?mixRatio=0.0", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	decodeBody(t, resp, &page)
	require.Len(t, page.Items, 1)
	assert.InDelta(t, 0.9, page.Items[0].FinalScore, 1e-9)
}

func TestFeedStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.feedErr = errors.New("database is locked")

	app, _ := newTestApp(store, &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "GET", "/api/feed", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Contains(t, body["error"], "database is locked")
}

func TestCreateRSSSource(t *testing.T) {
	store := newFakeStore()
	app, jobs := newTestApp(store, &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/sources", map[string]string{
		"url": "https://www.example.com/feed.xml",
	}))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var body struct {
		Source    models.Source `json:"source"`
		Ingestion struct {
			Queued bool `json:"queued"`
		} `json:"ingestion"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, models.KindRSS, body.Source.Kind)
	assert.Equal(t, "example.com", body.Source.DisplayName)
	assert.Equal(t, models.StatusQueued, body.Source.Status)
	assert.True(t, body.Ingestion.Queued)

	select {
	case job := <-jobs:
		assert.Equal(t, body.Source.ID, job.SourceID)
		assert.Equal(t, models.KindRSS, job.Kind)
	default:
		t.Fatal("expected a refresh job on the queue")
	}

	assert.Equal(t, "user@example.com", store.profiles[testUser])
}

func TestCreateTwitterSource(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/sources", map[string]string{
		"handle": "@Foo_Bar",
	}))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var body struct {
		Source models.Source `json:"source"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, models.KindTwitter, body.Source.Kind)
	assert.Equal(t, "foo_bar", body.Source.Handle)
	assert.Equal(t, "@foo_bar", body.Source.DisplayName)
}

func TestCreateSourceRejectsBadInput(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	payloads := []map[string]string{
		{"url": "ftp://example.com/feed"},
		{"url": "not a url"},
		{"handle": "way_too_long_handle_name"},
		{"handle": "bad handle"},
		{"type": "carrier-pigeon"},
	}
	for _, payload := range payloads {
		resp, err := app.Test(authedRequest(t, "POST", "/api/sources", payload))
		require.NoError(t, err)
		assert.Equalf(t, 400, resp.StatusCode, "payload %v", payload)
	}
}

func TestDeleteSource(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store, &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/sources", map[string]string{
		"url": "https://example.com/feed.xml",
	}))
	require.NoError(t, err)
	var body struct {
		Source models.Source `json:"source"`
	}
	decodeBody(t, resp, &body)

	resp, err = app.Test(authedRequest(t, "DELETE", "/api/sources/"+body.Source.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Empty(t, store.sources)

	// Deleting again is a no-op
	resp, err = app.Test(authedRequest(t, "DELETE", "/api/sources/"+body.Source.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "DELETE", "/api/sources/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestBookmarkLifecycle(t *testing.T) {
	store := newFakeStore()
	itemID := uuid.New().String()
	store.addItem(testUser, models.SourcedItem{
		Item:       models.Item{ID: itemID, Title: "Keep this"},
		SourceName: "Blog",
	})

	app, _ := newTestApp(store, &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/bookmarks", map[string]string{"itemId": itemID}))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var created map[string]string
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created["id"])

	// Bookmarking twice returns the same id
	resp, err = app.Test(authedRequest(t, "POST", "/api/bookmarks", map[string]string{"itemId": itemID}))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	var again map[string]string
	decodeBody(t, resp, &again)
	assert.Equal(t, created["id"], again["id"])

	resp, err = app.Test(authedRequest(t, "GET", "/api/bookmarks", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var list struct {
		Bookmarks []models.Bookmark `json:"bookmarks"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Bookmarks, 1)
	assert.Equal(t, itemID, list.Bookmarks[0].ItemID)

	// Feed entries carry the bookmark flag
	var page models.FeedResponse
	resp, err = app.Test(authedRequest(t, "GET", "/api/feed", nil))
	require.NoError(t, err)
	decodeBody(t, resp, &page)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].IsBookmarked)

	resp, err = app.Test(authedRequest(t, "DELETE", "/api/bookmarks/"+itemID, nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	// Removing twice stays 204
	resp, err = app.Test(authedRequest(t, "DELETE", "/api/bookmarks/"+itemID, nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "GET", "/api/bookmarks", nil))
	require.NoError(t, err)
	decodeBody(t, resp, &list)
	assert.Empty(t, list.Bookmarks)
}

func TestBookmarkAuthorization(t *testing.T) {
	store := newFakeStore()
	otherItem := uuid.New().String()
	store.addItem("22222222-2222-2222-2222-222222222222", models.SourcedItem{
		Item: models.Item{ID: otherItem, Title: "Not yours"},
	})

	app, _ := newTestApp(store, &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/bookmarks", map[string]string{"itemId": otherItem}))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "POST", "/api/bookmarks", map[string]string{"itemId": uuid.New().String()}))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestPreferencesDefaults(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "GET", "/api/preferences", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Preferences models.Preferences `json:"preferences"`
		FocusTags   []string           `json:"focusTags"`
	}
	decodeBody(t, resp, &body)

	assert.InDelta(t, 0.7, body.Preferences.FocusWeight, 1e-9)
	assert.Equal(t, 7000, body.Preferences.AutoScrollIntervalMs)
	assert.Equal(t, "system", body.Preferences.Theme)
	assert.False(t, body.Preferences.ShowAISummaries)
	assert.Empty(t, body.Preferences.FocusTopics)
	assert.NotNil(t, body.FocusTags)
	assert.Empty(t, body.FocusTags)
}

func TestPreferencesPartialUpdate(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store, &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/preferences", map[string]any{
		"focusWeight": 0.4,
	}))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "POST", "/api/preferences", map[string]any{
		"focusTopics": map[string]float64{"go": 1, "ai": 0.5},
	}))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "GET", "/api/preferences", nil))
	require.NoError(t, err)
	var body struct {
		Preferences models.Preferences `json:"preferences"`
		FocusTags   []string           `json:"focusTags"`
	}
	decodeBody(t, resp, &body)

	// The first update survives the second
	assert.InDelta(t, 0.4, body.Preferences.FocusWeight, 1e-9)
	assert.Equal(t, "system", body.Preferences.Theme)
	assert.Equal(t, []string{"ai", "go"}, body.FocusTags)
}

func TestPreferencesValidation(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	payloads := []map[string]any{
		{"focusWeight": 1.2},
		{"focusWeight": -0.1},
		{"autoScrollIntervalMs": 500},
		{"autoScrollIntervalMs": 90000},
		{"theme": "solarized"},
	}
	for _, payload := range payloads {
		resp, err := app.Test(authedRequest(t, "POST", "/api/preferences", payload))
		require.NoError(t, err)
		assert.Equalf(t, 400, resp.StatusCode, "payload %v", payload)
	}
}

func TestAIKeyLifecycle(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	resp, err := app.Test(authedRequest(t, "GET", "/api/ai/key", nil))
	require.NoError(t, err)
	var status map[string]bool
	decodeBody(t, resp, &status)
	assert.False(t, status["hasGeminiKey"])

	resp, err = app.Test(authedRequest(t, "POST", "/api/ai/key", map[string]string{"apiKey": "short"}))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "POST", "/api/ai/key", map[string]string{"apiKey": "  AIzaSy-example-key  "}))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "GET", "/api/ai/key", nil))
	require.NoError(t, err)
	decodeBody(t, resp, &status)
	assert.True(t, status["hasGeminiKey"])

	resp, err = app.Test(authedRequest(t, "DELETE", "/api/ai/key", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "GET", "/api/ai/key", nil))
	require.NoError(t, err)
	decodeBody(t, resp, &status)
	assert.False(t, status["hasGeminiKey"])

	// Deleting an absent key is still a success
	resp, err = app.Test(authedRequest(t, "DELETE", "/api/ai/key", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSummarize(t *testing.T) {
	store := newFakeStore()
	itemID := uuid.New().String()
	store.addItem(testUser, models.SourcedItem{
		Item: models.Item{ID: itemID, Title: "Big news", Summary: "Something happened"},
	})

	summarizer := &fakeSummarizer{summary: "Two sentences. About the news."}
	app, _ := newTestApp(store, summarizer, "server-fallback-key")

	resp, err := app.Test(authedRequest(t, "POST", "/api/ai/summarize", map[string]any{"itemId": itemID}))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Summary string `json:"summary"`
		Cached  bool   `json:"cached"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Two sentences. About the news.", body.Summary)
	assert.False(t, body.Cached)
	assert.Equal(t, 1, summarizer.calls)

	stored := store.items[0].Metadata
	assert.Equal(t, "Two sentences. About the news.", stored.AISummary)
	assert.Equal(t, "gemini", stored.AISummaryProvider)
	assert.Equal(t, "gemini-1.5-flash-latest", stored.AISummaryModel)
	assert.NotEmpty(t, stored.AISummaryUpdatedAt)

	// Second call is served from the stored summary
	resp, err = app.Test(authedRequest(t, "POST", "/api/ai/summarize", map[string]any{"itemId": itemID}))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.True(t, body.Cached)
	assert.Equal(t, 1, summarizer.calls)

	// Force regenerates
	resp, err = app.Test(authedRequest(t, "POST", "/api/ai/summarize", map[string]any{"itemId": itemID, "force": true}))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.False(t, body.Cached)
	assert.Equal(t, 2, summarizer.calls)
}

func TestSummarizeErrors(t *testing.T) {
	store := newFakeStore()
	itemID := uuid.New().String()
	otherItem := uuid.New().String()
	store.addItem(testUser, models.SourcedItem{
		Item: models.Item{ID: itemID, Title: "Mine"},
	})
	store.addItem("22222222-2222-2222-2222-222222222222", models.SourcedItem{
		Item: models.Item{ID: otherItem, Title: "Not mine"},
	})

	t.Run("missing key", func(t *testing.T) {
		app, _ := newTestApp(store, &fakeSummarizer{}, "")
		resp, err := app.Test(authedRequest(t, "POST", "/api/ai/summarize", map[string]any{"itemId": itemID}))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "Missing Gemini API key", body["error"])
	})

	t.Run("unknown item", func(t *testing.T) {
		app, _ := newTestApp(store, &fakeSummarizer{}, "key")
		resp, err := app.Test(authedRequest(t, "POST", "/api/ai/summarize", map[string]any{"itemId": uuid.New().String()}))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("foreign item", func(t *testing.T) {
		app, _ := newTestApp(store, &fakeSummarizer{}, "key")
		resp, err := app.Test(authedRequest(t, "POST", "/api/ai/summarize", map[string]any{"itemId": otherItem}))
		require.NoError(t, err)
		assert.Equal(t, 403, resp.StatusCode)
	})

	t.Run("upstream failure", func(t *testing.T) {
		summarizer := &fakeSummarizer{err: fmt.Errorf("gemini request failed: quota exceeded")}
		app, _ := newTestApp(store, summarizer, "key")
		resp, err := app.Test(authedRequest(t, "POST", "/api/ai/summarize", map[string]any{"itemId": itemID}))
		require.NoError(t, err)
		assert.Equal(t, 502, resp.StatusCode)

		// The upstream detail must not leak to the client
		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "Failed to generate summary", body["error"])
	})
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(newFakeStore(), &fakeSummarizer{}, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
