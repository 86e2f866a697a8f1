package cli

type AddFeedResponse struct {
	Feed          Feed        `json:"feed"`
	Inserted      bool        `json:"inserted"`
	DiscoveredURL string      `json:"discovered_url"`
	FetchReport   FetchReport `json:"fetch_report"`
}

type RemoveFeedResponse struct {
	RemovedFeedID int64 `json:"removed_feed_id"`
}

type MarkEntriesResponse struct {
	Updated int     `json:"updated"`
	IDs     []int64 `json:"ids"`
	Read    bool    `json:"read"`
}

type ImportResult struct {
	InputURL      string `json:"input_url"`
	NormalizedURL string `json:"normalized_url,omitempty"`
	Title         string `json:"title,omitempty"`
	FeedID        int64  `json:"feed_id,omitempty"`
	Added         bool   `json:"added"`
	Error         string `json:"error,omitempty"`
}

type ImportReport struct {
	Source   string         `json:"source"`
	Total    int            `json:"total"`
	Added    int            `json:"added"`
	Existing int            `json:"existing"`
	Failed   int            `json:"failed"`
	Results  []ImportResult `json:"results"`
}

type ConvertResponse struct {
	Markdown string   `json:"markdown"`
	Failures []string `json:"failures,omitempty"`
}
