package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kerbaras/novels/pkg/config"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// E2E tests for the full download pipeline

const e2eCatalog = `<html><body>
<div class="info_box"><h1>E2E Novel</h1>
<div class="item"><a href="/author/1">Writer</a></div>
<div class="item"><a href="/category/1">Fantasy</a></div></div>
<div class="brief_box"><div class="txt ellipsis">About</div></div>
<div class="tag_box"><a href="/tag/1">magic</a></div>
<div class="catalog_box"><ul>
<li class="volume"><span>Book One</span><ul class="children">
<li><a href="/novel/chapter?id=1">Chapter 1</a></li>
<li><a href="/novel/chapter?id=2">Chapter 2</a></li>
</ul></li>
<li class="volume"><span>Book Two</span><ul class="children">
<li><a href="/novel/chapter?id=3">Chapter 3</a></li>
</ul></li>
</ul></div>
</body></html>`

func newPortal(t *testing.T, failChapter string) (*httptest.Server, *int32) {
	t.Helper()
	var chapterRequests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Cookie"), "token=e2e") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/novel/intro":
			if r.URL.Query().Get("id") != "500" {
				w.Write([]byte(`<html><body>no such work</body></html>`))
				return
			}
			w.Write([]byte(e2eCatalog))
		case "/novel/chapter":
			atomic.AddInt32(&chapterRequests, 1)
			id := r.URL.Query().Get("id")
			if id == failChapter {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprintf(w, `<div class="article"><div class="line">Text %s line 1</div><div class="line"> </div><div class="line">Text %s line 2</div></div>`, id, id)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &chapterRequests
}

func newE2EController(t *testing.T, baseURL, backend string) *Controller {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.ConfigDir = filepath.Join(dir, "config")
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.LogsDir = filepath.Join(dir, "logs")
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.RetryCount = 1
	cfg.RetryDelay = 0
	cfg.ChapterDelay = 0
	cfg.ProgressBackend = backend

	c, err := NewController(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.Setup()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.AccountsPath(), []byte("1. e2e@example.com pw\n"), 0600))
	require.NoError(t, c.Credentials().Save(&data.Credential{UserID: 1, UserEmail: "e2e@example.com", Cookie: "token=e2e"}))
	return c
}

func TestE2E_FullDownloadPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	for _, backend := range []string{config.BackendJSON, config.BackendDuckDB} {
		t.Run(backend, func(t *testing.T) {
			server, requests := newPortal(t, "2")
			c := newE2EController(t, server.URL, backend)

			work, err := c.Work(context.Background(), "500", 0)
			require.NoError(t, err)
			assert.Equal(t, "E2E Novel", work.Title)
			assert.Equal(t, 3, work.TotalChapters())

			rng, err := NewRange(1, 0, 0)
			require.NoError(t, err)
			res, err := c.Download(context.Background(), DownloadRequest{WorkID: "500", Range: rng})
			require.NoError(t, err)
			assert.Equal(t, StateDone, res.State)
			assert.EqualValues(t, 4, atomic.LoadInt32(requests), "chapter 2 is retried once")

			raw, err := os.ReadFile(res.Path)
			require.NoError(t, err)
			out := string(raw)
			assert.True(t, strings.HasPrefix(out, "E2E Novel\n作者：Writer\n题材：Fantasy\n标签：magic\n\nAbout\n\n\n"))
			assert.Contains(t, out, "\nBook One\n\n\nChapter 1\n\nText 1 line 1\nText 1 line 2\n\n")
			assert.Contains(t, out, "\nChapter 2\n\n[下载失败: ")
			assert.Contains(t, out, "\nBook Two\n\n\nChapter 3\n\nText 3 line 1\nText 3 line 2\n\n")

			p, err := c.Progress().Get("500")
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, 4, p.NextChapter)
			assert.Equal(t, 100.0, p.Percentage)
		})
	}
}

func TestE2E_UnknownWork(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	server, _ := newPortal(t, "")
	c := newE2EController(t, server.URL, config.BackendJSON)

	_, err := c.Download(context.Background(), DownloadRequest{WorkID: "404", Range: Range{Start: 1}})
	assert.True(t, data.IsKind(err, data.KindNotFound))

	list, err := c.Progress().List()
	require.NoError(t, err)
	assert.Empty(t, list)
}
