package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seo-optimizer/auditor/errs"
	"github.com/seo-optimizer/auditor/fetcher"
)

type localResolver struct{}

func (localResolver) LookupHost(context.Context, string) ([]string, error) {
	return []string{"127.0.0.1"}, nil
}

func newSession() *fetcher.Session {
	opts := fetcher.DefaultOptions()
	opts.Delay = 0
	opts.Timeout = 5 * time.Second
	return fetcher.New(opts, fetcher.WithResolver(localResolver{})).NewSession()
}

func testOptions(maxPages int) Options {
	opts := DefaultOptions()
	opts.MaxPages = maxPages
	return opts
}

type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) add(path string) {
	h.mu.Lock()
	h.hits[path]++
	h.mu.Unlock()
}

func (h *hitCounter) snapshot() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.hits))
	for k, v := range h.hits {
		out[k] = v
	}
	return out
}

// siteServer serves a homepage linking to n pages; every page links back home and to a
// query-string variant of itself.
func siteServer(t *testing.T, n int) (*httptest.Server, *hitCounter) {
	t.Helper()
	counter := &hitCounter{hits: make(map[string]int)}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.add(r.URL.Path)

		switch r.URL.Path {
		case "/robots.txt":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\nSitemap: https://example.com/sitemap.xml\n")
			return
		case "/sitemap.xml":
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		var b strings.Builder
		b.WriteString("<html><head><title>" + r.URL.Path + "</title></head><body>")
		if r.URL.Path == "/" {
			for i := range n {
				fmt.Fprintf(&b, `<a href="/page/%d">Page %d</a>`, i, i)
			}
			b.WriteString(`<a href="/logo.png">Logo</a><a href="/admin/panel">Admin</a>`)
			b.WriteString(`<a href="https://external.example.org/">External</a>`)
		} else {
			fmt.Fprintf(&b, `<a href="/">Home</a><a href="%s?again">Self</a>`, r.URL.Path)
		}
		b.WriteString("</body></html>")
		fmt.Fprint(w, b.String())
	}))
	return ts, counter
}

func TestCrawlRespectsPageBudget(t *testing.T) {
	ts, _ := siteServer(t, 50)
	defer ts.Close()

	res, err := New(testOptions(5), nil).Crawl(context.Background(), newSession(), ts.URL)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if total := len(res.Pages) + 1; total > 5 {
		t.Errorf("visited %d pages, want at most 5", total)
	}
	if res.Stats.PagesVisited != 5 {
		t.Errorf("PagesVisited = %d, want 5", res.Stats.PagesVisited)
	}
	if !res.ReachedPageBudget {
		t.Error("expected reachedPageBudget to be set")
	}
}

func TestCrawlVisitsEachURLOnce(t *testing.T) {
	ts, hits := siteServer(t, 8)
	defer ts.Close()

	res, err := New(testOptions(50), nil).Crawl(context.Background(), newSession(), ts.URL)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if res.ReachedPageBudget {
		t.Error("site is smaller than the budget")
	}

	seen := map[string]bool{res.Homepage.URL: true}
	for _, p := range res.Pages {
		if seen[p.URL] {
			t.Errorf("page %s recorded twice", p.URL)
		}
		seen[p.URL] = true
	}
	// Eight pages plus the "?again" variant of each.
	if len(res.Pages) != 16 {
		t.Errorf("pages = %d, want 16", len(res.Pages))
	}

	counts := hits.snapshot()
	for path, n := range counts {
		if strings.HasPrefix(path, "/page/") && n > 2 {
			t.Errorf("%s fetched %d times", path, n)
		}
		if path == "/logo.png" || strings.HasPrefix(path, "/admin") {
			t.Errorf("filtered path %s was fetched", path)
		}
	}
	if counts["/"] != 1 {
		t.Errorf("homepage fetched %d times, want 1", counts["/"])
	}
}

func TestCrawlReportsSiteFiles(t *testing.T) {
	ts, _ := siteServer(t, 1)
	defer ts.Close()

	res, err := New(testOptions(10), nil).Crawl(context.Background(), newSession(), ts.URL)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if res.Site.HasSitemap {
		t.Error("sitemap.xml returns 404")
	}
	if !res.Site.HasRobots || len(res.Site.DeclaredSitemaps) != 1 {
		t.Errorf("site report = %+v", res.Site)
	}
	if !res.Site.AllowsRoot {
		t.Error("robots.txt only disallows /private")
	}
}

func TestCrawlHomepageFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	res, err := New(testOptions(10), nil).Crawl(context.Background(), newSession(), ts.URL)
	if errs.KindOf(err) != errs.HTTPError {
		t.Fatalf("err = %v, want http error", err)
	}
	if res.Homepage != nil || len(res.Pages) != 0 || res.ReachedPageBudget {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestCrawlCountsPageErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/ok">ok</a><a href="/down">down</a><a href="/feed">feed</a>`)
		case "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/feed":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, "<rss/>")
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<p>fine</p>")
		}
	}))
	defer ts.Close()

	res, err := New(testOptions(10), nil).Crawl(context.Background(), newSession(), ts.URL)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if len(res.Pages) != 1 || res.Stats.Errors != 2 {
		t.Errorf("pages = %d, errors = %d, want 1 and 2", len(res.Pages), res.Stats.Errors)
	}
	kinds := map[errs.Kind]bool{}
	for _, pe := range res.PageErrors {
		kinds[pe.Kind] = true
	}
	if !kinds[errs.HTTPError] || !kinds[errs.NonHTMLContent] {
		t.Errorf("page errors = %+v", res.PageErrors)
	}
}

func TestCrawlCancellation(t *testing.T) {
	ts, _ := siteServer(t, 20)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	opts := testOptions(50)
	opts.OnPage = func(visited, _ int, _ string) {
		if visited >= 3 {
			cancel()
		}
	}

	res, err := New(opts, nil).Crawl(ctx, newSession(), ts.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.Homepage == nil {
		t.Fatal("partial result must keep the homepage")
	}
	if len(res.Pages) >= 20 {
		t.Errorf("crawl did not stop early: %d pages", len(res.Pages))
	}
}

func TestAllowedFilters(t *testing.T) {
	c := New(DefaultOptions(), nil)
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://example.com/blog/post", true},
		{"https://example.com/photo.JPG", false},
		{"https://example.com/files/report.pdf", false},
		{"https://example.com/admin", false},
		{"https://example.com/admin/users", false},
		{"https://example.com/administration-guide", true},
		{"https://example.com/cart", false},
		{"https://example.com/wp-login.php", false},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.raw)
		if got := c.allowed(u); got != tt.want {
			t.Errorf("allowed(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
