package models

import "time"

// Source kinds
const (
	KindRSS     = "rss"
	KindTwitter = "twitter"
)

// Source lifecycle statuses
const (
	StatusIdle     = "idle"
	StatusQueued   = "queued"
	StatusFetching = "fetching"
	StatusError    = "error"
)

// Source is one content origin a user follows, either an RSS feed or a
// twitter handle fetched by an external function.
type Source struct {
	ID           string     `json:"id"`
	UserID       string     `json:"-"`
	Kind         string     `json:"type"`
	URL          string     `json:"url,omitempty"`
	Handle       string     `json:"handle,omitempty"`
	DisplayName  string     `json:"display_name"`
	Status       string     `json:"status"`
	LastPolledAt *time.Time `json:"last_polled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TweetMetadata holds the platform specific fields written by the twitter
// fetcher. Engagement counts of zero are treated as absent.
type TweetMetadata struct {
	AuthorHandle string `json:"author_handle,omitempty"`
	Likes        int64  `json:"likes,omitempty"`
	Retweets     int64  `json:"retweets,omitempty"`
	Replies      int64  `json:"replies,omitempty"`
}

// EngagementMetrics is the subset of tweet metadata exposed on feed entries.
type EngagementMetrics struct {
	Likes    int64 `json:"likes,omitempty"`
	Retweets int64 `json:"retweets,omitempty"`
	Replies  int64 `json:"replies,omitempty"`
}

// Metrics returns the engagement metrics, or nil when every count is zero.
func (t *TweetMetadata) Metrics() *EngagementMetrics {
	if t == nil || (t.Likes == 0 && t.Retweets == 0 && t.Replies == 0) {
		return nil
	}
	return &EngagementMetrics{Likes: t.Likes, Retweets: t.Retweets, Replies: t.Replies}
}

// ItemMetadata is the validated shape of the item metadata document. Each
// producer writes its own tagged section instead of loose keys.
type ItemMetadata struct {
	Popularity         *float64       `json:"popularity,omitempty"`
	AISummary          string         `json:"ai_summary,omitempty"`
	AISummaryProvider  string         `json:"ai_summary_provider,omitempty"`
	AISummaryModel     string         `json:"ai_summary_model,omitempty"`
	AISummaryUpdatedAt string         `json:"ai_summary_updated_at,omitempty"`
	Tweet              *TweetMetadata `json:"tweet,omitempty"`
}

// Item is one piece of content retrieved from a source. Read-only after
// ingestion except for AI summary enrichment.
type Item struct {
	ID          string       `json:"id"`
	SourceID    string       `json:"sourceId"`
	GUID        string       `json:"-"`
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	URL         string       `json:"url"`
	PublishedAt *time.Time   `json:"publishedAt"`
	Metadata    ItemMetadata `json:"-"`
	FocusTopics []string     `json:"focusTopics"`
	CreatedAt   time.Time    `json:"-"`
}

// SourcedItem is an item joined with its source's display name.
type SourcedItem struct {
	Item
	SourceName string `json:"sourceName"`
}

// FeedEntry is an item enriched with computed scores for one response page.
// It is derived, never persisted.
type FeedEntry struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Summary         string             `json:"summary"`
	URL             string             `json:"url"`
	SourceID        string             `json:"sourceId"`
	SourceName      string             `json:"sourceName"`
	PublishedAt     *time.Time         `json:"publishedAt"`
	FocusTopics     []string           `json:"focusTopics"`
	FocusScore      float64            `json:"focusScore"`
	PopularityScore float64            `json:"popularityScore"`
	FinalScore      float64            `json:"finalScore"`
	IsBookmarked    bool               `json:"isBookmarked"`
	AISummary       string             `json:"aiSummary,omitempty"`
	AuthorHandle    string             `json:"authorHandle,omitempty"`
	Metrics         *EngagementMetrics `json:"metrics,omitempty"`
}

// FeedResponse is one assembled feed page. Cursor is nil at end of stream.
type FeedResponse struct {
	Items      []FeedEntry `json:"items"`
	NextCursor *string     `json:"nextCursor"`
}

// Bookmark associates a user with a saved item. At most one per (user, item).
type Bookmark struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	CreatedAt time.Time `json:"bookmarkedAt"`
}

// Preferences is the per-user configuration with defaults filled in.
type Preferences struct {
	FocusWeight          float64            `json:"focusWeight"`
	AutoScrollIntervalMs int                `json:"autoScrollIntervalMs"`
	Theme                string             `json:"theme"`
	ShowAISummaries      bool               `json:"showAiSummaries"`
	FocusTopics          map[string]float64 `json:"focusTopics"`
}

// ProfileSettings is the stored settings document backing Preferences and the
// AI key. Pointer fields distinguish "unset" from zero values so partial
// updates merge instead of clobbering.
type ProfileSettings struct {
	GeminiAPIKey         string             `json:"geminiApiKey,omitempty"`
	FocusWeight          *float64           `json:"focusWeight,omitempty"`
	AutoScrollIntervalMs *int               `json:"autoScrollIntervalMs,omitempty"`
	Theme                string             `json:"theme,omitempty"`
	ShowAISummaries      *bool              `json:"showAiSummaries,omitempty"`
	FocusTopics          map[string]float64 `json:"focusTopics,omitempty"`
}

// Preferences materializes the settings into a full preferences object.
func (s ProfileSettings) Preferences() Preferences {
	prefs := Preferences{
		FocusWeight:          0.7,
		AutoScrollIntervalMs: 7000,
		Theme:                "system",
		ShowAISummaries:      false,
		FocusTopics:          map[string]float64{},
	}
	if s.FocusWeight != nil {
		prefs.FocusWeight = *s.FocusWeight
	}
	if s.AutoScrollIntervalMs != nil {
		prefs.AutoScrollIntervalMs = *s.AutoScrollIntervalMs
	}
	switch s.Theme {
	case "light", "dark", "system":
		prefs.Theme = s.Theme
	}
	if s.ShowAISummaries != nil {
		prefs.ShowAISummaries = *s.ShowAISummaries
	}
	if s.FocusTopics != nil {
		prefs.FocusTopics = s.FocusTopics
	}
	return prefs
}

// RefreshJob asks the ingest worker to refresh one source. JobID is set when
// a persisted job row tracks the outcome.
type RefreshJob struct {
	JobID    string
	SourceID string
	Kind     string
	Reason   string
}

// NewItemEvent is broadcast to SSE clients when ingestion stores a new item.
type NewItemEvent struct {
	SourceID   string     `json:"sourceId"`
	SourceName string     `json:"sourceName"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	PublishedAt *time.Time `json:"publishedAt"`
}
