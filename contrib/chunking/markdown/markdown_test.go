package markdown

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/ai-dispatch/rag/chunking"
	"github.com/sweetpotato0/ai-dispatch/rag/document"
)

const article = `Intro line about error codes.

# Error 500

The worker crashed. Restart it from the dashboard.

## Prevention

Keep the queue below its soft limit.
`

func TestMarkdownChunkerSplitsByHeadings(t *testing.T) {
	ch := New(WithMaxHeadingLevel(2), WithMaxCharacters(200), WithMinCharacters(0))
	doc := document.Document{ID: "error-500", Content: article}

	chunks, err := ch.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Heading != "" || chunks[0].Content != "Intro line about error codes." {
		t.Fatalf("unexpected intro chunk: %+v", chunks[0])
	}
	if chunks[1].Heading != "Error 500" || !strings.HasPrefix(chunks[1].Content, "# Error 500") {
		t.Fatalf("unexpected section chunk: %+v", chunks[1])
	}
	if strings.Contains(chunks[1].Content, "##") {
		t.Fatalf("section leaked the next heading marker: %q", chunks[1].Content)
	}
	if chunks[2].Heading != "Prevention" || chunks[2].ID != "error-500-3" || chunks[2].Ordinal != 3 {
		t.Fatalf("unexpected last chunk: %+v", chunks[2])
	}
}

func TestMarkdownChunkerIgnoresDeepHeadings(t *testing.T) {
	ch := New(WithMaxHeadingLevel(1), WithMinCharacters(0))
	chunks, err := ch.Chunk(context.Background(), document.Document{ID: "doc", Content: article})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[1].Content, "## Prevention") {
		t.Fatalf("level 2 heading should stay inside its parent: %q", chunks[1].Content)
	}
}

func TestMarkdownChunkerMergesShortSections(t *testing.T) {
	ch := New(WithMinCharacters(1000))
	chunks, err := ch.Chunk(context.Background(), document.Document{ID: "doc", Content: article})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single merged chunk, got %d", len(chunks))
	}
	if chunks[0].Heading != "Error 500" {
		t.Fatalf("merged chunk should keep the first heading, got %q", chunks[0].Heading)
	}
}

func TestMarkdownChunkerFallsBackForLongSections(t *testing.T) {
	body := "# Limits\n\n" + strings.Repeat("word ", 100)
	ch := New(
		WithMaxCharacters(100),
		WithMinCharacters(0),
		WithFallbackChunker(chunking.NewSimpleChunker(chunking.WithChunkSize(80), chunking.WithOverlap(0))),
	)
	chunks, err := ch.Chunk(context.Background(), document.Document{ID: "limits", Content: body})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the section to be split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if c.Heading != "Limits" || c.Ordinal != i+1 {
			t.Fatalf("chunk %d: %+v", i, c)
		}
	}
}
