// Package search defines the web search contract used to ground replies in
// current information.
package search

import (
	"context"
	"strings"
)

const DefaultMaxResults = 5

type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher runs a web query with the caller's key and returns at most
// maxResults results in rank order.
type Searcher interface {
	Search(ctx context.Context, apiKey, query string, maxResults int) ([]Result, error)
}

// Snippets returns the non-empty snippets of results in order.
func Snippets(results []Result) []string {
	snippets := make([]string, 0, len(results))
	for _, result := range results {
		if snippet := strings.TrimSpace(result.Snippet); snippet != "" {
			snippets = append(snippets, snippet)
		}
	}
	return snippets
}
