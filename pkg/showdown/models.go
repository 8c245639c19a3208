package showdown

// Reference identifies a replay that may be harvested. It is immutable once
// produced by a discovery source.
type Reference struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	// Rating is nil for unrated battles
	Rating *int `json:"rating,omitempty"`
}

// SearchResult is one entry of a search.json page
type SearchResult struct {
	ID         string   `json:"id"`
	Format     string   `json:"format"`
	Rating     *int     `json:"rating"`
	UploadTime int64    `json:"uploadtime"`
	Players    []string `json:"players"`
	Private    int      `json:"private,omitempty"`
}

// Reference converts the search entry to a queue reference
func (r SearchResult) Reference() Reference {
	return Reference{ID: r.ID, Format: r.Format, Rating: r.Rating}
}

// References converts a whole results page, skipping entries without an id
func References(results []SearchResult) []Reference {
	refs := make([]Reference, 0, len(results))
	for _, r := range results {
		if r.ID == "" {
			continue
		}
		refs = append(refs, r.Reference())
	}
	return refs
}

// LadderResponse is the body of a ladder JSON document
type LadderResponse struct {
	FormatID string        `json:"formatid"`
	Format   string        `json:"format"`
	Toplist  []LadderEntry `json:"toplist"`
}

// LadderEntry is one ranked player
type LadderEntry struct {
	UserID   string  `json:"userid"`
	Username string  `json:"username"`
	Elo      float64 `json:"elo"`
}

// Usernames returns up to limit usernames from the top of the ladder.
// A limit of zero or less returns all of them.
func (l LadderResponse) Usernames(limit int) []string {
	n := len(l.Toplist)
	if limit > 0 && limit < n {
		n = limit
	}
	names := make([]string, 0, n)
	for _, e := range l.Toplist[:n] {
		if e.Username != "" {
			names = append(names, e.Username)
		}
	}
	return names
}
