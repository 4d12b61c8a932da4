package stock

import (
	"net/http"
	"time"
)

// FetchRequest captures everything needed to fetch a product page.
type FetchRequest struct {
	ProductID string
	URL       string
	Headers   http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// DefaultHeaders returns the fixed request headers sent with every poll.
func DefaultHeaders(userAgent string) http.Header {
	h := http.Header{}
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	h.Set("Cache-Control", "max-age=0")
	return h
}
