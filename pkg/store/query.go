package store

import (
	"strings"
	"unicode"

	"github.com/notekeeper/notekeeper/pkg/models"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Offset well inside the range every backend accepts.
	MaxPage = 1_000_000
)

// ListQuery selects one page of an owner's notes.
// Page is 1-indexed. Zero or negative values fall back to the defaults and
// larger values are clamped to MaxPage and MaxPageSize.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Normalize applies the defaults and limits and trims the search text.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Offset is the number of matching notes skipped before this page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Unsearchable reports whether the search text holds no words at all.
// Such a search matches no note.
func (q ListQuery) Unsearchable() bool {
	return strings.TrimSpace(q.Search) != "" && len(SearchTerms(q.Search)) == 0
}

// NotePage is one page of notes plus the size of the full matching set.
type NotePage struct {
	Notes []*models.Note
	Total int64
}

// SearchTerms splits search text into lower-cased words.
// Backends without a native text index match a note when any term occurs in
// its title or content.
func SearchTerms(search string) []string {
	fields := strings.FieldsFunc(strings.ToLower(search), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
