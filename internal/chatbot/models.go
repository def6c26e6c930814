package chatbot

import "time"

// SearchResult is one organic web-search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Message is a stored question and answer.
type Message struct {
	ID            string         `json:"id"`
	UserID        string         `json:"-"`
	Query         string         `json:"query"`
	Response      string         `json:"response"`
	SearchResults []SearchResult `json:"search_results"`
	SearchURLs    []string       `json:"search_urls"`
	CreatedAt     time.Time      `json:"created_at"`
}

type AskRequest struct {
	Query string `json:"query"`
}
