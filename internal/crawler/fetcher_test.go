package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/drugindex/internal/httpclient"
	"github.com/nao1215/drugindex/internal/model"
)

func newTestClient(t *testing.T) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New("drugindex-test/1.0 (test@example.com)")
	if err != nil {
		t.Fatalf("httpclient.New() error = %v", err)
	}
	return c
}

type memoryCache struct {
	mu    sync.Mutex
	pages map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: make(map[string][]byte)}
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pages[key]
	return b, ok
}

func (c *memoryCache) Put(key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = body
	return nil
}

func TestNewFetcher(t *testing.T) {
	t.Parallel()

	t.Run("template without placeholder is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewFetcher(newTestClient(t), testBase, WithIndexTemplate("/alpha/index.html"))
		if !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("NewFetcher() error = %v, want ErrInvalidTemplate", err)
		}
	})

	t.Run("base without scheme is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := NewFetcher(newTestClient(t), "www.drugs.com"); !errors.Is(err, ErrInvalidBaseURL) {
			t.Errorf("NewFetcher() error = %v, want ErrInvalidBaseURL", err)
		}
	})
}

func TestFetcherIndexURL(t *testing.T) {
	t.Parallel()

	f, err := NewFetcher(newTestClient(t), testBase)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}

	tests := []struct {
		bucket model.Bucket
		want   string
	}{
		{"a", "https://www.drugs.com/alpha/a.html"},
		{"z", "https://www.drugs.com/alpha/z.html"},
		{model.NumericBucket, "https://www.drugs.com/alpha/0-9.html"},
	}
	for _, tt := range tests {
		if got := f.IndexURL(tt.bucket); got != tt.want {
			t.Errorf("IndexURL(%q) = %q, want %q", tt.bucket, got, tt.want)
		}
	}

	if got := f.IndexPrefix(); got != "/alpha/" {
		t.Errorf("IndexPrefix() = %q, want /alpha/", got)
	}
}

func TestIndexPrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/alpha/{bucket}.html":        "/alpha/",
		"/drugs/index/{bucket}/":      "/drugs/index/",
		"{bucket}.html":               "/",
		"/alpha/list-{bucket}.html":   "/alpha/",
		"https://x.test/a/{bucket}.h": "https://x.test/a/",
	}
	for template, want := range tests {
		if got := IndexPrefix(template); got != want {
			t.Errorf("IndexPrefix(%q) = %q, want %q", template, got, want)
		}
	}
}

func TestFetcherFetchIndexPage(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/alpha/a.html":
			_, _ = io.WriteString(w, "<html>a</html>")
		case "/alpha/b.html":
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	f, err := NewFetcher(newTestClient(t), ts.URL)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}

	t.Run("success returns body", func(t *testing.T) {
		page, err := f.FetchIndexPage(context.Background(), "a")
		if err != nil {
			t.Fatalf("FetchIndexPage() error = %v", err)
		}
		if string(page.Body) != "<html>a</html>" {
			t.Errorf("Body = %q", page.Body)
		}
		if page.StatusCode != http.StatusOK || page.FromCache {
			t.Errorf("page = %+v", page)
		}
	})

	t.Run("not found is an HTTPError", func(t *testing.T) {
		_, err := f.FetchIndexPage(context.Background(), "q")
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("FetchIndexPage() error = %v, want *HTTPError", err)
		}
		if httpErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
		}
		if httpErr.URL != ts.URL+"/alpha/q.html" {
			t.Errorf("URL = %q", httpErr.URL)
		}
	})

	t.Run("server error is not retried", func(t *testing.T) {
		before := hits.Load()
		_, err := f.FetchIndexPage(context.Background(), "b")
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("FetchIndexPage() error = %v, want 503 HTTPError", err)
		}
		if got := hits.Load() - before; got != 1 {
			t.Errorf("server hit %d times, want 1", got)
		}
	})
}

func TestFetcherCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "<html>cached</html>")
	}))
	defer ts.Close()

	cache := newMemoryCache()
	f, err := NewFetcher(newTestClient(t), ts.URL, WithPageCache(cache))
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}

	if _, ok := f.CachedPage("c"); ok {
		t.Fatal("CachedPage() hit before first fetch")
	}
	if _, err := f.FetchIndexPage(context.Background(), "c"); err != nil {
		t.Fatalf("FetchIndexPage() error = %v", err)
	}
	cached, ok := f.CachedPage("c")
	if !ok || !cached.FromCache || cached.StatusCode != 0 {
		t.Fatalf("CachedPage() = %+v, %v after fetch", cached, ok)
	}

	page, err := f.FetchIndexPage(context.Background(), "c")
	if err != nil {
		t.Fatalf("FetchIndexPage() error = %v", err)
	}
	if !page.FromCache {
		t.Error("second fetch should be served from cache")
	}
	if string(page.Body) != "<html>cached</html>" {
		t.Errorf("Body = %q", page.Body)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestHTTPErrorMessage(t *testing.T) {
	t.Parallel()

	err := &HTTPError{StatusCode: 404, URL: "https://www.drugs.com/alpha/q.html"}
	want := "404 Client Error: Not Found for url: https://www.drugs.com/alpha/q.html"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = &HTTPError{StatusCode: 502, URL: "u"}
	if err.Error() != "502 Server Error: Bad Gateway for url: u" {
		t.Errorf("Error() = %q", err.Error())
	}
}
