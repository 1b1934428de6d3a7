package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-crawler/internal/crawler"
)

func TestFetchExtractsTitleAndAbsoluteLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "fetch-test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title> Home </title></head><body>
			<a href="/about">About</a>
			<a href="docs/guide">Guide</a>
			<a href="https://other.org/x">Other</a>
			<a href="#top">Top</a>
		</body></html>`)
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "fetch-test-agent", Timeout: time.Second})
	page, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, "Home", page.Title)
	require.Equal(t, srv.URL+"/", page.URL)
	require.Equal(t, []string{
		srv.URL + "/about",
		srv.URL + "/docs/guide",
		"https://other.org/x",
	}, page.Links)
}

func TestFetchSameURLTwice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<title>again</title>`)
	}))
	defer srv.Close()

	f := New(Config{})
	for i := 0; i < 2; i++ {
		page, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err, "revisits are deduplicated by the engine, not the fetcher")
		require.Equal(t, "again", page.Title)
	}
}

func TestFetchHTTPErrorBecomesFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), srv.URL+"/gone")
	require.Error(t, err)

	var fe *crawler.FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, srv.URL+"/gone", fe.URL)
	require.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 5 * time.Second})
	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	var page crawler.Page
	var fetchErr error

	hooks := &stubHooks{html: map[string]colly.HTMLCallback{}}
	f.configureCollectorHooks(hooks, &page, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)
	require.Contains(t, hooks.html, "title")
	require.Contains(t, hooks.html, "a[href]")

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusAccepted,
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com/final")},
	})
	require.Equal(t, http.StatusAccepted, page.StatusCode)
	require.Equal(t, "https://example.com/final", page.URL)

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
	require.Equal(t, http.StatusBadGateway, page.StatusCode)
}

func TestToFetchErrorDropsSuccessStatus(t *testing.T) {
	t.Parallel()

	err := toFetchError("https://example.com", http.StatusOK, errors.New("parse"))
	var fe *crawler.FetchError
	require.True(t, errors.As(err, &fe))
	require.Zero(t, fe.StatusCode)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	html       map[string]colly.HTMLCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnHTML(selector string, cb colly.HTMLCallback) {
	s.html[selector] = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

func TestBuildCollectorAppliesConfig(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent"})
	collector := f.buildCollector(context.Background())
	require.Equal(t, "coverage-agent", collector.UserAgent)
	require.True(t, collector.IgnoreRobotsTxt)
	require.True(t, collector.AllowURLRevisit)
	require.Equal(t, defaultTimeout, f.cfg.Timeout)
}
