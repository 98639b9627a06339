package content

import (
	"strings"
	"testing"
)

const articleHTML = `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Choosing a Headless CMS</title>
	</head>
	<body>
		<header>
			<h1>Site Header</h1>
			<nav><a href="/">Home</a> <a href="/about">About</a></nav>
		</header>
		<main>
			<article>
				<h1>Choosing a Headless CMS</h1>
				<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm and converted into Markdown.</p>
				<h2>Why go headless</h2>
				<p>This is another paragraph with <strong>more content</strong>. The readability algorithm should identify this as the main content area and extract it properly, leaving navigation behind.</p>
				<ul>
					<li>Structured content models</li>
					<li>API-first delivery</li>
				</ul>
				<p>Here is some more substantial content to ensure we meet the character threshold. See the <a href="/guides/cms">full guide</a> for details that would be valuable to readers.</p>
				<script>console.log("tracking");</script>
			</article>
		</main>
		<footer>
			<p>Copyright 2024</p>
		</footer>
	</body>
	</html>
	`

func TestExtractor_Run_ValidHTML(t *testing.T) {
	extractor := NewExtractor()

	doc, err := extractor.Run([]byte(articleHTML), "https://blog.example.com/posts/cms")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(doc.Markdown, "main content of the article") {
		t.Errorf("Expected main content in markdown, got: %s", doc.Markdown)
	}
	if strings.Contains(doc.Markdown, "<p>") {
		t.Error("Expected markdown output without HTML paragraph tags")
	}
	if strings.Contains(doc.Markdown, "tracking") {
		t.Error("Expected script content to be removed")
	}
	if doc.TextLength == 0 {
		t.Error("Expected non-zero text length")
	}
}

func TestExtractor_Run_MarkdownStyle(t *testing.T) {
	doc, err := NewExtractor().Run([]byte(articleHTML), "https://blog.example.com/posts/cms")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(doc.Markdown, "## Why go headless") {
		t.Errorf("Expected atx headings, got: %s", doc.Markdown)
	}
	if !strings.Contains(doc.Markdown, "- Structured content models") {
		t.Errorf("Expected dash bullet markers, got: %s", doc.Markdown)
	}
	if !strings.Contains(doc.Markdown, "**more content**") {
		t.Errorf("Expected ** strong delimiter, got: %s", doc.Markdown)
	}
}

func TestExtractor_Run_EmptyData(t *testing.T) {
	extractor := NewExtractor()

	if _, err := extractor.Run([]byte{}, "https://example.com"); err == nil {
		t.Error("Expected error for empty data")
	}
	if _, err := extractor.Run(nil, "https://example.com"); err == nil {
		t.Error("Expected error for nil data")
	}
}

func TestExtractor_Run_InvalidURL(t *testing.T) {
	if _, err := NewExtractor().Run([]byte(articleHTML), "://bad"); err == nil {
		t.Error("Expected error for invalid page URL")
	}
}

func TestTextLength(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"", 0},
		{"  abc  ", 3},
		{"cafe\u0301", 4}, // combining accent composes to one rune
		{"日本語", 3},
	}

	for _, tt := range tests {
		if got := TextLength(tt.input); got != tt.expected {
			t.Errorf("TextLength(%q): expected %d, got %d", tt.input, tt.expected, got)
		}
	}
}
