// Package document loads local knowledge files for indexing.
//
// A docs tree holds one directory per collection:
//
//	docs/
//	  docs_errors/error_500.md
//	  docs_billing_faq/refund_window.txt
//
// The collection is the parent directory name, the title is the file name
// without extension with underscores turned into spaces, and the ID is a
// lowercase slug of the file name.
package document

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Document represents a knowledge source that can be chunked and indexed.
type Document struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Title      string `json:"title,omitempty"`
	Content    string `json:"content"`
	Source     string `json:"source,omitempty"`
}

// Chunk represents a slice of a document that is indexed into a vector store.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	Ordinal    int    `json:"ordinal"`
	// Heading is the section title for chunks cut at markdown headings.
	Heading string `json:"heading,omitempty"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a document ID from a file name.
func Slug(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(base), "-"), "-")
}

// Title derives a display title from a file name.
func Title(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.ReplaceAll(base, "_", " ")
}

// LoadDir walks root and returns every regular file below it in path order.
// A missing root yields no documents. Files directly under root are skipped
// because they belong to no collection.
func LoadDir(root string) ([]Document, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat docs root: %w", err)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk docs root: %w", err)
	}
	sort.Strings(paths)

	cleanRoot := filepath.Clean(root)
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		dir := filepath.Dir(path)
		if filepath.Clean(dir) == cleanRoot {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, Document{
			ID:         Slug(path),
			Collection: filepath.Base(dir),
			Title:      Title(path),
			Content:    string(content),
			Source:     path,
		})
	}
	return docs, nil
}

// Collections groups documents by collection, keeping first-seen order.
func Collections(docs []Document) ([]string, map[string][]Document) {
	var order []string
	grouped := make(map[string][]Document)
	for _, doc := range docs {
		if _, ok := grouped[doc.Collection]; !ok {
			order = append(order, doc.Collection)
		}
		grouped[doc.Collection] = append(grouped[doc.Collection], doc)
	}
	return order, grouped
}
