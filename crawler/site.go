package crawler

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	probeTimeout   = 10 * time.Second
	maxRobotsBytes = 512 << 10
)

// SiteReport describes the site-level files found at the end of a crawl. It is informational;
// robots.txt rules are not enforced.
type SiteReport struct {
	SitemapURL       string   `json:"sitemapUrl"`
	HasSitemap       bool     `json:"hasSitemap"`
	RobotsURL        string   `json:"robotsUrl"`
	HasRobots        bool     `json:"hasRobots"`
	DeclaredSitemaps []string `json:"declaredSitemaps"`

	// AllowsRoot is false when robots.txt disallows "/" for every agent.
	AllowsRoot bool `json:"allowsRoot"`
}

type prober struct {
	client *http.Client
}

func newProber() *prober {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // existence probe only
	return &prober{client: &http.Client{Timeout: probeTimeout, Transport: transport}}
}

// probe checks /sitemap.xml with HEAD and reads /robots.txt. Failures only show up as absent files.
func (p *prober) probe(ctx context.Context, base *url.URL) SiteReport {
	root := &url.URL{Scheme: base.Scheme, Host: base.Host}
	report := SiteReport{
		SitemapURL:       root.JoinPath("sitemap.xml").String(),
		RobotsURL:        root.JoinPath("robots.txt").String(),
		DeclaredSitemaps: []string{},
		AllowsRoot:       true,
	}

	if status, _, err := p.do(ctx, http.MethodHead, report.SitemapURL); err == nil {
		report.HasSitemap = status >= 200 && status < 400
	}

	status, body, err := p.do(ctx, http.MethodGet, report.RobotsURL)
	if err != nil || status != http.StatusOK {
		return report
	}
	report.HasRobots = true
	robots, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return report
	}
	report.DeclaredSitemaps = append(report.DeclaredSitemaps, robots.Sitemaps...)
	report.AllowsRoot = robots.TestAgent("/", "*")
	return report
}

func (p *prober) do(ctx context.Context, method, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var body []byte
	if method == http.MethodGet {
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
		if err != nil {
			return resp.StatusCode, nil, err
		}
	}
	return resp.StatusCode, body, nil
}
