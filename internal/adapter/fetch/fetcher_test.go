package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage(t *testing.T) {
	t.Run("returns body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "docgenie-indexer/1.0", r.Header.Get("User-Agent"))
			w.Write([]byte("<html><body>hi</body></html>"))
		}))
		defer server.Close()

		body, err := NewFetcher().Page(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Contains(t, string(body), "hi")
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewFetcher().Page(context.Background(), server.URL)
		assert.Error(t, err)
	})

	t.Run("unreachable host is an error", func(t *testing.T) {
		_, err := NewFetcher().Page(context.Background(), "http://127.0.0.1:1")
		assert.Error(t, err)
	})
}
