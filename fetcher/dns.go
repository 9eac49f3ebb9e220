package fetcher

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/seo-optimizer/auditor/errs"
)

const dnsTimeout = 10 * time.Second

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Availability is the outcome of the DNS check for a URL's host.
type Availability struct {
	Available   bool   `json:"available"`
	Address     string `json:"address,omitempty"`
	ErrorDetail string `json:"errorDetail,omitempty"`
}

var errNoAddresses = errors.New("no addresses returned")

// CheckAvailability resolves the host of rawURL. Successful lookups are cached for the
// session; failures are not, so a transient DNS issue is retried on the next call.
func (s *Session) CheckAvailability(ctx context.Context, rawURL string) (Availability, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return Availability{ErrorDetail: "invalid URL"}, errs.New(errs.InvalidURL, invalidURLMessage, err)
	}
	host := u.Hostname()

	s.mu.Lock()
	addr, ok := s.dnsCache[host]
	s.mu.Unlock()
	if ok {
		return Availability{Available: true, Address: addr}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := s.resolver.LookupHost(lookupCtx, host)
	if err == nil && len(addrs) == 0 {
		err = errNoAddresses
	}
	if err != nil {
		s.logger.Debug("dns lookup failed")
		return Availability{ErrorDetail: err.Error()}, errs.New(errs.DNSUnavailable,
			"The domain "+host+" could not be resolved. Check the address or try again later.", err)
	}

	s.mu.Lock()
	s.dnsCache[host] = addrs[0]
	s.mu.Unlock()
	return Availability{Available: true, Address: addrs[0]}, nil
}
