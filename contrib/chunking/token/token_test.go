package token

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/ai-dispatch/rag/document"
)

// wordEncoder treats every whitespace-separated word as one token.
type wordEncoder struct {
	vocab []string
	index map[string]int
}

func (w *wordEncoder) Encode(text string) []int {
	if w.index == nil {
		w.index = map[string]int{}
	}
	var ids []int
	for _, word := range strings.Fields(text) {
		id, ok := w.index[word]
		if !ok {
			id = len(w.vocab)
			w.vocab = append(w.vocab, word)
			w.index[word] = id
		}
		ids = append(ids, id)
	}
	return ids
}

func (w *wordEncoder) Decode(ids []int) string {
	words := make([]string, len(ids))
	for i, id := range ids {
		words[i] = w.vocab[id]
	}
	return strings.Join(words, " ")
}

func TestTokenChunkerRespectsOverlap(t *testing.T) {
	ch := New(&wordEncoder{}, WithMaxTokens(4), WithOverlapTokens(1))
	doc := document.Document{ID: "tok", Content: "one two three four five six seven"}

	chunks, err := ch.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	want := []string{"one two three four", "four five six seven"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(chunks), chunks)
	}
	for i, c := range chunks {
		if c.Content != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, c.Content, want[i])
		}
		if c.Ordinal != i+1 || c.DocumentID != "tok" {
			t.Fatalf("chunk %d has wrong identity: %+v", i, c)
		}
	}
}

func TestTokenChunkerKeepsShortDocumentsWhole(t *testing.T) {
	ch := New(&wordEncoder{}, WithMaxTokens(10))
	chunks, err := ch.Chunk(context.Background(), document.Document{ID: "short", Content: " reset the token "})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content != "reset the token" || chunks[0].ID != "short-1" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestTokenChunkerNeedsEncoder(t *testing.T) {
	if _, err := New(nil).Chunk(context.Background(), document.Document{ID: "x", Content: "x"}); err == nil {
		t.Fatal("expected an error without an encoder")
	}
}
