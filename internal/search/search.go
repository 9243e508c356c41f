// Package search provides site search over the public content collections.
package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultProject ResultType = "project"
	ResultService ResultType = "service"
	ResultBitumen ResultType = "bitumen"
	ResultTeam    ResultType = "team"
)

// Record is the flattened form of a content entity pushed into the index.
// IDs are prefixed with the type ("project-3") so one index can hold all
// collections.
type Record struct {
	ID    string     `json:"id"`
	Type  ResultType `json:"type"`
	Title string     `json:"title"`
	Body  string     `json:"body"`
	Image string     `json:"image,omitempty"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Image   string     `json:"image,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

func ValidType(t ResultType) bool {
	switch t {
	case ResultProject, ResultService, ResultBitumen, ResultTeam:
		return true
	default:
		return false
	}
}
