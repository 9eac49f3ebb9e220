package fetcher

import (
	"fmt"
	"net/http"
	"time"

	"github.com/seo-optimizer/auditor/errs"
)

// Status classifies the outcome of one fetch attempt.
type Status string

const (
	StatusOK           Status = "ok"
	StatusDNSError     Status = "dns_error"
	StatusHTTPError    Status = "http_error"
	StatusNonHTML      Status = "non_html"
	StatusNetworkError Status = "network_error"
)

// PageFetchResult is the immutable outcome of fetching one URL within a session.
// Body is empty unless Status is StatusOK.
type PageFetchResult struct {
	URL         string        `json:"url"`
	FinalURL    string        `json:"finalUrl"`
	Status      Status        `json:"status"`
	StatusCode  int           `json:"statusCode,omitempty"`
	ContentType string        `json:"contentType,omitempty"`
	Body        string        `json:"-"`
	Headers     http.Header   `json:"headers,omitempty"`
	LoadTime    time.Duration `json:"loadTime"`
	ByteSize    int64         `json:"byteSize"`
	Message     string        `json:"error,omitempty"`
}

// OK reports whether the page can be handed to extraction.
func (r *PageFetchResult) OK() bool {
	return r != nil && r.Status == StatusOK
}

// Err returns the stage error for a failed fetch, or nil.
func (r *PageFetchResult) Err() error {
	if r == nil {
		return errs.New(errs.NetworkError, "no fetch result", nil)
	}

	var kind errs.Kind
	switch r.Status {
	case StatusOK:
		return nil
	case StatusDNSError:
		kind = errs.DNSUnavailable
	case StatusHTTPError:
		kind = errs.HTTPError
	case StatusNonHTML:
		kind = errs.NonHTMLContent
	default:
		kind = errs.NetworkError
	}
	return &errs.Error{Kind: kind, StatusCode: r.StatusCode, Message: r.Message}
}

// httpErrorMessage describes a status code that stops the pipeline.
func httpErrorMessage(code int) string {
	switch code {
	case http.StatusInternalServerError:
		return "Server error (500): the website encountered an internal error"
	case http.StatusNotImplemented:
		return "Server error (501): the website does not support this request"
	case http.StatusBadGateway:
		return "Server error (502): the website's gateway received an invalid response"
	case http.StatusServiceUnavailable:
		return "Server error (503): the website is temporarily unavailable"
	case http.StatusGatewayTimeout:
		return "Server error (504): the website's gateway timed out"
	default:
		return fmt.Sprintf("Server error (%d): the website returned an error status", code)
	}
}
