// Package detector decides when a product page has to be re-rendered in a
// headless browser before its stock status can be read.
package detector

import (
	"bytes"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

const (
	defaultBodyLengthThreshold = 2048
	scriptDensityPercent       = 25
)

// Heuristic promotes plain fetches that look like client-rendered shells.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. A zero threshold selects 2048 bytes.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultBodyLengthThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// ShouldPromote reports whether resp needs a headless render. Only 200
// responses that carry no stock marker are candidates.
func (h *Heuristic) ShouldPromote(resp stock.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if stock.ExtractStatus(body) != stock.NotFound {
		return false
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return len(body) < h.BodyLengthThreshold && scriptDensityHigh(body)
}

// scriptDensityHigh reports whether inline script text makes up at least a
// quarter of the document.
func scriptDensityHigh(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	scripts := doc.Find("script")
	if scripts.Length() == 0 {
		return false
	}
	scriptBytes := 0
	scripts.Each(func(_ int, s *goquery.Selection) {
		html, err := goquery.OuterHtml(s)
		if err == nil {
			scriptBytes += len(html)
		}
	})
	return scriptBytes*100/len(body) >= scriptDensityPercent
}
