package stock

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// containerSelector is the block-level ancestor a marker must sit inside.
const containerSelector = "div"

var markers = map[string]Status{
	"Sold Out":    SoldOut,
	"Coming Soon": ComingSoon,
	"Add to Cart": AddToCart,
}

// ExtractStatus scans markup for text nodes equal to one of the stock markers.
// Only markers inside a div count. When several markers appear, the last one
// in document order wins. Empty or unparseable markup yields NotFound.
func ExtractStatus(body []byte) Status {
	if len(bytes.TrimSpace(body)) == 0 {
		return NotFound
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return NotFound
	}

	status := NotFound
	for _, root := range doc.Nodes {
		walkText(root, func(n *html.Node) {
			candidate, ok := markers[strings.TrimSpace(n.Data)]
			if !ok {
				return
			}
			if doc.FindNodes(n).ParentsFiltered(containerSelector).Length() == 0 {
				return
			}
			status = candidate
		})
	}
	return status
}

// walkText visits text nodes in document order.
func walkText(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.TextNode {
		visit(n)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkText(child, visit)
	}
}
