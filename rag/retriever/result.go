package retriever

import (
	"strings"
	"unicode/utf8"
)

// Snippet is a budget-clipped excerpt of a retrieved document.
type Snippet struct {
	Collection string
	Title      string
	Content    string
	Score      float64
}

// Source renders "collection" or "collection (title)".
func (s Snippet) Source() string {
	if s.Title == "" {
		return s.Collection
	}
	return s.Collection + " (" + s.Title + ")"
}

// Summary renders "collection (title): content".
func (s Snippet) Summary() string {
	return s.Source() + ": " + s.Content
}

// Result is the outcome of one Search call. Snippets keep collection order,
// then engine rank within a collection.
type Result struct {
	Query      string
	Snippets   []Snippet
	Confidence float64
}

// Empty returns a result with no snippets and zero confidence.
func Empty(query string) Result {
	return Result{Query: query}
}

// IsEmpty reports whether no snippet was collected.
func (r Result) IsEmpty() bool {
	return len(r.Snippets) == 0
}

// First returns the highest-ranked snippet.
func (r Result) First() (Snippet, bool) {
	if r.IsEmpty() {
		return Snippet{}, false
	}
	return r.Snippets[0], true
}

// Top returns at most n snippets.
func (r Result) Top(n int) []Snippet {
	if n < 0 || n >= len(r.Snippets) {
		return r.Snippets
	}
	return r.Snippets[:n]
}

// Summary renders the first snippet, or "" when empty.
func (r Result) Summary() string {
	first, ok := r.First()
	if !ok {
		return ""
	}
	return first.Summary()
}

// TotalChars returns the combined character count of all snippet contents.
func (r Result) TotalChars() int {
	n := 0
	for _, s := range r.Snippets {
		n += utf8.RuneCountInString(s.Content)
	}
	return n
}

// Format renders snippets as "- Source: ..." blocks under the given heading.
func (r Result) Format(heading string, limit int) string {
	var b strings.Builder
	b.WriteString(heading)
	for _, s := range r.Top(limit) {
		b.WriteString("- Source: ")
		b.WriteString(s.Source())
		b.WriteString("\n")
		b.WriteString(s.Content)
		b.WriteString("\n")
	}
	return b.String()
}
