package db

import (
	"fmt"
	"time"
)

// statusURLTemplate builds the canonical link for a bookmarked post. The
// handle segment is fixed so the URL depends on the post ID alone.
const statusURLTemplate = "https://twitter.com/user/status/%s"

type Bookmark struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	URL        string     `json:"url"`
	Author     string     `json:"author"`
	CreatedAt  time.Time  `json:"created_at"`
	Engagement Engagement `json:"engagement"`
}

type Engagement struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
}

// LedgerEntry records one bookmark that was written to the destination.
// Only ID is required; the rest is informational.
type LedgerEntry struct {
	ID            string    `json:"id"`
	URL           string    `json:"url,omitempty"`
	Author        string    `json:"author,omitempty"`
	TransferredAt time.Time `json:"transferred_at,omitempty"`
}

// StatusURL returns the canonical URL for the post with the given ID.
func StatusURL(id string) string {
	return fmt.Sprintf(statusURLTemplate, id)
}

// URLSet is a set of destination URLs.
type URLSet map[string]struct{}

func NewURLSet(urls ...string) URLSet {
	s := make(URLSet, len(urls))
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

func (s URLSet) Add(url string) {
	s[url] = struct{}{}
}

func (s URLSet) Has(url string) bool {
	_, ok := s[url]
	return ok
}
