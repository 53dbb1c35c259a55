package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="links">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<div class="result results_links web-result">
			<h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%%3A%%2F%%2Fetio.example%%2Fpage%d&amp;rut=abc">ETIO <b>result</b> %d</a></h2>
			<a class="result__snippet" href="#">Snippet   number %d</a>
		</div>`, i, i, i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestDuckDuckGo_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "etio services", r.PostForm.Get("q"))
		fmt.Fprint(w, resultsPage(7))
	}))
	defer srv.Close()

	results, err := NewDuckDuckGoWithURL(srv.URL).Search(context.Background(), "etio services", 0)
	require.NoError(t, err)
	require.Len(t, results, DefaultMaxResults)
	assert.Equal(t, SearchResult{
		Title: "ETIO result 1",
		Href:  "https://etio.example/page1",
		Body:  "Snippet number 1",
	}, results[0])
	assert.Equal(t, "https://etio.example/page5", results[4].Href)
}

func TestDuckDuckGo_SearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGoWithURL(srv.URL).Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestDuckDuckGo_EmptyQuery(t *testing.T) {
	_, err := NewDuckDuckGo().Search(context.Background(), "  ", 3)
	assert.Error(t, err)
}

func TestResolveHref(t *testing.T) {
	assert.Equal(t, "https://a.example/x", resolveHref("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx"))
	assert.Equal(t, "https://direct.example", resolveHref("https://direct.example"))
}
