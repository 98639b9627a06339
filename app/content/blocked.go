package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var DefaultBlockedMarkers = []string{
	"Just a moment",
	"cf_chl",
	"Cloudflare",
	"Enable JavaScript",
}

// Interstitial pages are usually recognizable by their title alone.
var challengeTitles = []string{
	"just a moment",
	"attention required",
	"access denied",
	"are you a robot",
	"security check",
}

type BlockDetector struct {
	markers []string
}

func NewBlockDetector(markers []string) *BlockDetector {
	if len(markers) == 0 {
		markers = DefaultBlockedMarkers
	}
	return &BlockDetector{markers: markers}
}

// Detect reports whether a fetched page is a bot challenge or otherwise
// unusable, with a short reason for the caller's warning message.
func (d *BlockDetector) Detect(statusCode int, body []byte) (bool, string) {
	if statusCode < 200 || statusCode > 299 {
		return true, fmt.Sprintf("HTTP status %d", statusCode)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true, "empty body"
	}

	for _, marker := range d.markers {
		if bytes.Contains(body, []byte(marker)) {
			return true, fmt.Sprintf("challenge marker %q", marker)
		}
	}

	if title := PageTitle(body); title != "" {
		lower := strings.ToLower(title)
		for _, t := range challengeTitles {
			if strings.Contains(lower, t) {
				return true, fmt.Sprintf("challenge title %q", title)
			}
		}
	}

	return false, ""
}

func PageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		return strings.TrimSpace(og)
	}
	return ""
}
