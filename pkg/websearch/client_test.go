package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hair salon tokyo", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"results":[{"title":"Salon - Instagram","link":"https://instagram.com/salon_tokyo","snippet":"official"}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithAPIKey("secret"), WithHTTPClient(srv.Client()))

	results, err := client.Search(context.Background(), "hair salon tokyo")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://instagram.com/salon_tokyo", results[0].Link)
}

func TestClientSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestStaticSearch(t *testing.T) {
	s := &Static{}

	first, err := s.Search(context.Background(), "ヘアサロン ABC instagram")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "https://instagram.com/sample_1", first[0].Link)

	second, err := s.Search(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, "https://instagram.com/sample_2", second[0].Link)
}
