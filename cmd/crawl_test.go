package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrawlCommand_PrintsSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/" {
			fmt.Fprint(w, `<html><body><a href="/next">next</a></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{
		"crawl", srv.URL + "/",
		"--respect-robots=false",
		"--crawl-delay=0s",
		"--max-pages=5",
		"--log-level=error",
	})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "fetched=2")
	require.Contains(t, out.String(), "reason=completed")
}

func TestCrawlCommand_RequiresSeed(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"crawl", "--log-level=error"})

	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "seed URL")
}
