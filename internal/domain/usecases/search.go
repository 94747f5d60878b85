// Package usecases - search.go implements the cross-page search index.
package usecases

import (
	"strings"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// SearchPages scans page texts for a term and reports, per page, how many
// non-overlapping occurrences it contains. Matching is a case-insensitive
// substring match; results are ordered by ascending page number.
//
// An empty or whitespace-only term yields an empty result set so that
// callers can distinguish "no active search" from "search with no hits".
// The scan is recomputed in full on every term change; page counts are
// bounded, so the linear re-scan is cheap enough not to warrant an index.
func SearchPages(pageTexts []string, term string) []entities.SearchResult {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	needle := strings.ToLower(term)
	var results []entities.SearchResult
	for i, text := range pageTexts {
		count := strings.Count(strings.ToLower(text), needle)
		if count > 0 {
			results = append(results, entities.SearchResult{Page: i + 1, Count: count})
		}
	}
	return results
}

// ResultCursor tracks the selected search result. Navigation state belongs to
// the caller, not the index: the cursor starts with nothing selected and must
// be replaced whenever the result set is replaced.
type ResultCursor struct {
	results []entities.SearchResult
	index   int
}

// NewResultCursor creates a cursor over results with no selection.
func NewResultCursor(results []entities.SearchResult) *ResultCursor {
	return &ResultCursor{results: results, index: -1}
}

// Next advances the selection, wrapping modulo the result count.
func (c *ResultCursor) Next() (entities.SearchResult, bool) {
	if len(c.results) == 0 {
		return entities.SearchResult{}, false
	}
	c.index = (c.index + 1) % len(c.results)
	return c.results[c.index], true
}

// Prev moves the selection backwards, wrapping modulo the result count.
// From no selection it lands on the last result.
func (c *ResultCursor) Prev() (entities.SearchResult, bool) {
	if len(c.results) == 0 {
		return entities.SearchResult{}, false
	}
	if c.index < 0 {
		c.index = len(c.results) - 1
	} else {
		c.index = (c.index - 1 + len(c.results)) % len(c.results)
	}
	return c.results[c.index], true
}

// Current returns the selected result, if any.
func (c *ResultCursor) Current() (entities.SearchResult, bool) {
	if c.index < 0 || c.index >= len(c.results) {
		return entities.SearchResult{}, false
	}
	return c.results[c.index], true
}
