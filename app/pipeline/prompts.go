package pipeline

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const targetingSystemPrompt = `You are an SEO content strategist. You read an existing article and decide
which single search query it should compete for and who it is written for.
Answer with JSON only, matching the provided schema.`

const optimizerSystemPrompt = `You are a senior editor rewriting articles to rank in search. You keep the
author's voice and facts, close the gaps competitors cover better, and return
only the finished article in Markdown.`

func buildTargetingPrompt(title, body string) string {
	var b strings.Builder

	b.WriteString("Analyze the article below and produce its search targeting.\n\n")
	b.WriteString("Return:\n")
	b.WriteString("1. primary_search_term: the one query a reader would type to find this article.\n")
	b.WriteString("2. content_summary: two or three sentences on what the article covers and the strategy behind it.\n")
	b.WriteString("3. ideal_audience: short descriptions of the readers it serves best.\n")
	b.WriteString("4. pain_points: problems those readers have, each written in the first person (\"I can't...\").\n")
	b.WriteString("5. content_positioning: intent_match, competitive_angle and conversion_potential notes.\n")
	b.WriteString("6. secondary_keywords: 3 to 5 related queries worth covering.\n\n")

	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", title)
	}
	b.WriteString("Article:\n")
	b.WriteString(body)
	b.WriteString("\n")

	return b.String()
}

func buildOptimizerPrompt(keyword, original string, competitors []Competitor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Target search term: %s\n\n", keyword)
	b.WriteString("Rewrite the original article so it is more complete and better structured than every competitor below.\n")
	b.WriteString("Keep the original voice and claims. Use clear headings and answer the search intent early.\n")
	b.WriteString("Respond with the Markdown article only. No preface, no notes, no code fences.\n\n")

	b.WriteString("## Original article\n\n")
	b.WriteString(original)
	b.WriteString("\n\n")

	for i, c := range competitors {
		fmt.Fprintf(&b, "## Competitor %d (%s)\n\n", i+1, c.URL)
		b.WriteString(c.Markdown)
		b.WriteString("\n\n")
	}

	return b.String()
}

func targetingSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	list := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
	}

	keywords := list("3 to 5 related search queries")
	minKeywords, maxKeywords := int64(3), int64(5)
	keywords.MinItems = &minKeywords
	keywords.MaxItems = &maxKeywords

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"primary_search_term": str("the main query the article should rank for"),
			"content_summary":     str("what the article covers and why"),
			"ideal_audience":      list("reader profiles"),
			"pain_points":         list("first-person problem statements"),
			"content_positioning": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intent_match":         str("how the article matches search intent"),
					"competitive_angle":    str("what sets it apart"),
					"conversion_potential": str("how it can lead readers to act"),
				},
				Required: []string{"intent_match", "competitive_angle", "conversion_potential"},
			},
			"secondary_keywords": keywords,
		},
		Required: []string{
			"primary_search_term",
			"content_summary",
			"ideal_audience",
			"pain_points",
			"content_positioning",
			"secondary_keywords",
		},
		PropertyOrdering: []string{
			"primary_search_term",
			"content_summary",
			"ideal_audience",
			"pain_points",
			"content_positioning",
			"secondary_keywords",
		},
	}
}
