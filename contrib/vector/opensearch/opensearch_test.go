package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/vector"
)

const searchResponse = `{
  "hits": {
    "hits": [
      {"_id": "1", "_score": 3.5, "_source": {"title": "Refunds", "content": "Refunds take 2 days."}},
      {"_id": "2", "_score": 1.25, "_source": {"body": "Body only text."}},
      {"_id": "3", "_source": {"title": "Empty"}}
    ]
  }
}`

func TestKNNRequestAndParsing(t *testing.T) {
	var (
		gotPath string
		gotBody []byte
		gotAuth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, searchResponse)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL + "/", APIKey: "secret"})
	hits, err := client.KNN(context.Background(), vector.KNNRequest{
		Collection: "docs_billing_faq",
		Field:      "embedding",
		Vector:     []float32{0.5, 0.25},
		K:          3,
	})
	require.NoError(t, err)

	assert.Equal(t, "/docs_billing_faq/_search", gotPath)
	assert.Equal(t, "ApiKey secret", gotAuth)

	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, int64(3), body.Get("size").Int())
	assert.Equal(t, int64(3), body.Get("query.knn.embedding.k").Int())
	assert.Equal(t, 0.5, body.Get("query.knn.embedding.vector.0").Float())
	assert.Equal(t, `["title","content","body"]`, body.Get("_source").Raw)

	require.Len(t, hits, 3)
	assert.Equal(t, vector.Hit{ID: "1", Title: "Refunds", Content: "Refunds take 2 days.", Score: 3.5}, hits[0])
	assert.Equal(t, "Body only text.", hits[1].Text())
	assert.Equal(t, 1.25, hits[1].Score)
	assert.Empty(t, hits[2].Text())
	assert.Zero(t, hits[2].Score)
}

func TestKNNAuthSchemes(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantAuth string
		basic    bool
	}{
		{"api key wins over basic", Config{APIKey: "k", Username: "u", Password: "p"}, "ApiKey k", false},
		{"basic auth", Config{Username: "u", Password: "p"}, "", true},
		{"no auth", Config{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				assert.Equal(t, tt.basic, ok)
				if tt.basic {
					assert.Equal(t, "u", user)
					assert.Equal(t, "p", pass)
				} else {
					assert.Equal(t, tt.wantAuth, r.Header.Get("Authorization"))
				}
				io.WriteString(w, `{"hits":{"hits":[]}}`)
			}))
			defer srv.Close()

			cfg := tt.cfg
			cfg.Endpoint = srv.URL
			hits, err := New(cfg).KNN(context.Background(), vector.KNNRequest{
				Collection: "c", Field: "f", Vector: []float32{1}, K: 1,
			})
			require.NoError(t, err)
			assert.Empty(t, hits)
		})
	}
}

func TestKNNErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": "index_not_found_exception"})
	}))
	defer srv.Close()

	_, err := New(Config{Endpoint: srv.URL}).KNN(context.Background(), vector.KNNRequest{
		Collection: "missing", Field: "f", Vector: []float32{1}, K: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorskg.ErrSearchFailed))
}

func TestKNNTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}).KNN(context.Background(),
		vector.KNNRequest{Collection: "c", Field: "f", Vector: []float32{1}, K: 1})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewLeavesSharedClientUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, searchResponse)
	}))
	defer srv.Close()

	shared := &http.Client{Timeout: 90 * time.Second}
	client := New(Config{Endpoint: srv.URL, Timeout: 15 * time.Second, HTTPClient: shared})
	assert.Equal(t, 90*time.Second, shared.Timeout)
	assert.Nil(t, shared.Transport)

	hits, err := client.KNN(context.Background(), vector.KNNRequest{Collection: "c", Field: "f", Vector: []float32{1}, K: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	assert.Equal(t, 90*time.Second, shared.Timeout)
}

func TestKNNValidatesRequest(t *testing.T) {
	_, err := New(Config{Endpoint: "http://localhost:1"}).KNN(context.Background(), vector.KNNRequest{Collection: "c"})
	assert.True(t, errors.Is(err, errorskg.ErrInvalidInput))
}

func TestEnsureCollectionCreatesMissingIndex(t *testing.T) {
	var (
		methods []string
		created []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created, _ = io.ReadAll(r.Body)
			io.WriteString(w, `{"acknowledged":true}`)
		}
	}))
	defer srv.Close()

	err := New(Config{Endpoint: srv.URL}).EnsureCollection(context.Background(), "docs_errors", "embedding", 384)
	require.NoError(t, err)

	assert.Equal(t, []string{"HEAD /docs_errors", "PUT /docs_errors"}, methods)
	body := gjson.ParseBytes(created)
	assert.True(t, body.Get(`settings.index\.knn`).Bool())
	assert.Equal(t, "knn_vector", body.Get("mappings.properties.embedding.type").String())
	assert.Equal(t, int64(384), body.Get("mappings.properties.embedding.dimension").Int())
	assert.Equal(t, "cosinesimil", body.Get("mappings.properties.embedding.method.space_type").String())
	assert.Equal(t, "keyword", body.Get("mappings.properties.source.type").String())
}

func TestEnsureCollectionExistingAndFailures(t *testing.T) {
	status := http.StatusOK
	var puts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts++
		}
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL})
	require.NoError(t, client.EnsureCollection(context.Background(), "docs", "embedding", 8))
	assert.Zero(t, puts)

	status = http.StatusForbidden
	assert.Error(t, client.EnsureCollection(context.Background(), "docs", "embedding", 8))
	assert.Zero(t, puts)

	assert.ErrorIs(t, client.EnsureCollection(context.Background(), "", "embedding", 8), errorskg.ErrInvalidInput)
}

func TestIndexDocument(t *testing.T) {
	var (
		gotPath string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL})
	err := client.Index(context.Background(), "docs", "embedding", &vector.Document{
		ID: "reset-password", Title: "reset password", Content: "Use the portal.", Source: "docs/reset_password.md",
		Vector: []float32{0.5, 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "/docs/_doc/reset-password", gotPath)
	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "reset password", body.Get("title").String())
	assert.Equal(t, "docs/reset_password.md", body.Get("source").String())
	assert.Equal(t, 0.5, body.Get("embedding.0").Float())
	assert.NotEmpty(t, body.Get("indexed_at").String())

	assert.ErrorIs(t, client.Index(context.Background(), "docs", "embedding", &vector.Document{}), errorskg.ErrInvalidInput)
}
