package linkcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
)

// Options bound the verification work done for one page.
type Options struct {
	MaxLinks     int           // internal links sampled per page, from the start of the list
	Timeout      time.Duration // per probe
	Delay        time.Duration // pause after each probe
	MaxRedirects int
	UserAgent    string
}

// DefaultOptions returns the documented verification limits.
func DefaultOptions() Options {
	return Options{
		MaxLinks:     5,
		Timeout:      5 * time.Second,
		Delay:        100 * time.Millisecond,
		MaxRedirects: 3,
		UserAgent:    "SEOAnalyzer/2.0",
	}
}

// BrokenSet is the session-scoped record of links already found broken.
// *fetcher.Session implements it.
type BrokenSet interface {
	IsKnownBroken(link string) bool
	MarkBroken(link string)
}

// Verifier probes a bounded sample of a page's internal links.
type Verifier struct {
	client *http.Client
	opts   Options
	logger *zap.Logger
}

var errTooManyRedirects = errors.New("too many redirects")

// New creates a Verifier. A nil transport gets a clone of the default transport that, like the
// page fetcher, does not verify certificates.
func New(opts Options, transport http.RoundTripper) *Verifier {
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // existence probe only
		transport = t
	}
	maxRedirects := opts.MaxRedirects
	return &Verifier{
		opts:   opts,
		logger: logging.Log,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
				}
				return nil
			},
		},
	}
}

// WithLogger returns a copy of the verifier that logs to l.
func (v *Verifier) WithLogger(l *zap.Logger) *Verifier {
	cp := *v
	cp.logger = l
	return &cp
}

// Verify flags broken entries among the first MaxLinks internal links, in place. Links already
// flagged, or recorded in known, are not probed again; links on another host are skipped.
// It returns the number of probes issued. Cancellation stops the pass between probes.
func (v *Verifier) Verify(ctx context.Context, links []extractor.Link, baseURL string, known BrokenSet) int {
	base, err := url.Parse(baseURL)
	if err != nil {
		return 0
	}

	probes := 0
	sample := min(len(links), v.opts.MaxLinks)
	for i := range sample {
		link := &links[i]
		if link.Broken {
			continue
		}
		if known != nil && known.IsKnownBroken(link.URL) {
			link.Broken = true
			continue
		}
		target, err := url.Parse(link.URL)
		if err != nil || !extractor.SameHost(target, base) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		probes++
		broken, reason := v.probe(ctx, link.URL)
		if broken {
			link.Broken = true
			if known != nil {
				known.MarkBroken(link.URL)
			}
			metrics.BrokenLinks.Inc()
			v.logger.Debug("broken link", zap.String("url", link.URL), zap.String("reason", reason))
		}

		if !sleep(ctx, v.opts.Delay) {
			break
		}
	}
	return probes
}

// probe issues a HEAD request, retrying with GET for servers that refuse HEAD.
func (v *Verifier) probe(ctx context.Context, link string) (bool, string) {
	status, err := v.request(ctx, http.MethodHead, link)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = v.request(ctx, http.MethodGet, link)
	}
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled, not broken.
			return false, ""
		}
		return true, err.Error()
	}
	if status >= 400 {
		return true, fmt.Sprintf("status %d", status)
	}
	return false, ""
}

func (v *Verifier) request(ctx context.Context, method, link string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", v.opts.UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
