// Package markdown splits knowledge articles at their headings so each
// indexed section answers one question.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sweetpotato0/ai-dispatch/rag/chunking"
	"github.com/sweetpotato0/ai-dispatch/rag/document"
)

// Chunker splits markdown documents by heading hierarchy using a goldmark AST.
type Chunker struct {
	maxHeadingLevel int
	maxCharacters   int
	minCharacters   int
	fallback        chunking.Chunker
	parser          goldmark.Markdown
}

// Option customises the markdown chunker.
type Option func(*Chunker)

// WithMaxHeadingLevel caps which heading level starts a new chunk (default 3).
func WithMaxHeadingLevel(level int) Option {
	return func(c *Chunker) {
		if level > 0 {
			c.maxHeadingLevel = level
		}
	}
}

// WithMaxCharacters bounds a section (in runes) before it is handed to the fallback chunker.
func WithMaxCharacters(chars int) Option {
	return func(c *Chunker) {
		if chars > 0 {
			c.maxCharacters = chars
		}
	}
}

// WithMinCharacters merges adjoining sections until they reach the provided size.
func WithMinCharacters(chars int) Option {
	return func(c *Chunker) {
		if chars >= 0 {
			c.minCharacters = chars
		}
	}
}

// WithFallbackChunker swaps the chunker used for oversized sections.
func WithFallbackChunker(ch chunking.Chunker) Option {
	return func(c *Chunker) {
		if ch != nil {
			c.fallback = ch
		}
	}
}

// New creates a markdown chunker.
func New(opts ...Option) *Chunker {
	ch := &Chunker{
		maxHeadingLevel: 3,
		maxCharacters:   1200,
		minCharacters:   240,
		parser:          goldmark.New(),
		fallback:        chunking.NewSimpleChunker(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Chunk implements chunking.Chunker.
func (c *Chunker) Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error) {
	sections := c.splitSections(doc.Content)
	if len(sections) == 0 {
		return c.fallback.Chunk(ctx, doc)
	}

	chunks := make([]document.Chunk, 0, len(sections))
	add := func(content, heading string) {
		ordinal := len(chunks) + 1
		chunks = append(chunks, document.Chunk{
			ID:         fmt.Sprintf("%s-%d", doc.ID, ordinal),
			DocumentID: doc.ID,
			Content:    content,
			Ordinal:    ordinal,
			Heading:    heading,
		})
	}

	for _, sec := range sections {
		if utf8.RuneCountInString(sec.raw) <= c.maxCharacters {
			add(sec.raw, sec.title)
			continue
		}

		part := doc
		part.Content = sec.raw
		splits, err := c.fallback.Chunk(ctx, part)
		if err != nil {
			return nil, err
		}
		for _, split := range splits {
			add(split.Content, sec.title)
		}
	}
	return chunks, nil
}

type section struct {
	raw   string
	title string
}

type heading struct {
	start int
	title string
}

func (c *Chunker) splitSections(content string) []section {
	source := []byte(content)
	root := c.parser.Parser().Parse(text.NewReader(source))

	var headings []heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > c.maxHeadingLevel {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		// Line segments start after the "#" marker; cut at the line start instead.
		start := lines.At(0).Start
		start = bytes.LastIndexByte(source[:start], '\n') + 1
		headings = append(headings, heading{
			start: start,
			title: strings.TrimSpace(string(h.Text(source))),
		})
		return ast.WalkSkipChildren, nil
	})

	if len(headings) == 0 {
		if raw := strings.TrimSpace(content); raw != "" {
			return []section{{raw: raw}}
		}
		return nil
	}

	var sections []section
	if intro := strings.TrimSpace(string(source[:headings[0].start])); intro != "" {
		sections = append(sections, section{raw: intro})
	}
	for i, h := range headings {
		end := len(source)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		if raw := strings.TrimSpace(string(source[h.start:end])); raw != "" {
			sections = append(sections, section{raw: raw, title: h.title})
		}
	}
	return c.mergeShort(sections)
}

// mergeShort folds a section shorter than minCharacters into the one after it.
func (c *Chunker) mergeShort(sections []section) []section {
	if c.minCharacters <= 0 || len(sections) < 2 {
		return sections
	}
	merged := make([]section, 0, len(sections))
	var pending *section
	for i, sec := range sections {
		current := sec
		if pending != nil {
			current = section{
				raw:   pending.raw + "\n\n" + sec.raw,
				title: firstNonEmpty(pending.title, sec.title),
			}
			pending = nil
		}
		if utf8.RuneCountInString(current.raw) < c.minCharacters && i < len(sections)-1 {
			held := current
			pending = &held
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
