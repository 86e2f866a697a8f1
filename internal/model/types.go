package model

import "time"

type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputWide  OutputFormat = "wide"
)

type Feed struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	SiteURL       string     `json:"site_url,omitempty"`
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	IconURL       string     `json:"icon_url,omitempty"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	ETag          string     `json:"-"`
	LastModified  string     `json:"-"`
	LastError     string     `json:"last_error,omitempty"`
	ErrorCount    int        `json:"error_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UnreadCount   int        `json:"unread_count"`
	TotalCount    int        `json:"total_count"`
}

// Entry is one stored feed item. ContentMD is derived from ContentHTML and
// RenderErrors counts the elements replaced by error markers while deriving it.
type Entry struct {
	ID           int64      `json:"id"`
	FeedID       int64      `json:"feed_id"`
	FeedTitle    string     `json:"feed_title"`
	GUID         string     `json:"guid"`
	URL          string     `json:"url,omitempty"`
	Title        string     `json:"title,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	ContentHTML  string     `json:"content_html,omitempty"`
	ContentMD    string     `json:"content_md,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	DateModified *time.Time `json:"date_modified,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
	Read         bool       `json:"read"`
	RenderErrors int        `json:"render_errors"`
}

type Stats struct {
	Feeds        int `json:"feeds"`
	Unread       int `json:"unread"`
	Total        int `json:"total"`
	RenderErrors int `json:"render_errors"`
}

type FetchResult struct {
	FeedID      int64  `json:"feed_id"`
	FeedTitle   string `json:"feed_title"`
	FeedURL     string `json:"feed_url"`
	NewEntries  int    `json:"new_entries"`
	Updated     int    `json:"updated_entries"`
	NotModified bool   `json:"not_modified"`
	Error       string `json:"error,omitempty"`
}

type FetchReport struct {
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Results   []FetchResult `json:"results"`
	Warnings  []string      `json:"warnings,omitempty"`
}

type RerenderReport struct {
	Entries      int `json:"entries"`
	Changed      int `json:"changed"`
	RenderErrors int `json:"render_errors"`
}

type EntryListOptions struct {
	Status string
	FeedID int64
	Limit  int
}

type SearchOptions struct {
	Query string
	Feed  int64
	Limit int
}

type UpsertEntryInput struct {
	FeedID       int64
	GUID         string
	URL          string
	Title        string
	Summary      string
	ContentHTML  string
	ContentMD    string
	ImageURL     string
	Author       string
	PublishedAt  *time.Time
	DateModified *time.Time
	RenderErrors int
}

// EntryRender is the derived Markdown for an entry that already exists.
type EntryRender struct {
	ID           int64
	ContentMD    string
	RenderErrors int
}
