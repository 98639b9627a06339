package content

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-shiori/go-readability"
	"golang.org/x/text/unicode/norm"
)

var ErrNoContent = errors.New("no readable content extracted")

type Document struct {
	Title      string
	Markdown   string
	TextLength int
}

type Extractor struct {
	options *md.Options
}

func NewExtractor() *Extractor {
	return &Extractor{
		options: &md.Options{
			HeadingStyle:     "atx",
			HorizontalRule:   "---",
			BulletListMarker: "-",
			CodeBlockStyle:   "fenced",
			Fence:            "```",
			EmDelimiter:      "*",
			StrongDelimiter:  "**",
		},
	}
}

// Run strips boilerplate from the page and converts the readable part to
// Markdown. Relative links are resolved against pageURL.
func (e *Extractor) Run(data []byte, pageURL string) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	parsed, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if strings.TrimSpace(parsed.Content) == "" {
		return nil, ErrNoContent
	}

	converter := md.NewConverter(base.Host, true, e.options)
	converter.Remove("script", "style", "noscript")

	markdown, err := converter.ConvertString(parsed.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert content to markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, ErrNoContent
	}

	doc := &Document{
		Title:      strings.TrimSpace(parsed.Title),
		Markdown:   markdown,
		TextLength: TextLength(parsed.TextContent),
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"title", doc.Title,
		"text_length", doc.TextLength,
		"markdown_length", len(doc.Markdown))

	return doc, nil
}

// TextLength counts characters of the NFC-normalized, trimmed text.
func TextLength(text string) int {
	return utf8.RuneCountInString(norm.NFC.String(strings.TrimSpace(text)))
}
