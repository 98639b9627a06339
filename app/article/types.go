package article

import (
	"strings"
	"time"
)

type Article struct {
	Slug              string     `json:"slug"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Content           string     `json:"content"`
	CoverImage        string     `json:"cover_image,omitempty"`
	Author            string     `json:"author,omitempty"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	SourceOriginalURL string     `json:"source_original_url,omitempty"`

	Targeting        *Targeting `json:"targeting,omitempty"`
	UpdatedContent   string     `json:"updated_content,omitempty"`
	SourceReferences []string   `json:"source_references,omitempty"`
}

type Targeting struct {
	PrimarySearchTerm  string       `json:"primary_search_term"`
	ContentSummary     string       `json:"content_summary"`
	IdealAudience      []string     `json:"ideal_audience"`
	PainPoints         []string     `json:"pain_points"`
	ContentPositioning *Positioning `json:"content_positioning,omitempty"`
	SecondaryKeywords  []string     `json:"secondary_keywords"`
}

type Positioning struct {
	IntentMatch         string `json:"intent_match"`
	CompetitiveAngle    string `json:"competitive_angle"`
	ConversionPotential string `json:"conversion_potential"`
}

// Patch is the partial field set sent to the store. Only one stage's fields
// are populated at a time.
type Patch struct {
	Targeting        *Targeting `json:"targeting,omitempty"`
	UpdatedContent   string     `json:"updated_content,omitempty"`
	SourceReferences []string   `json:"source_references,omitempty"`
}

// Summary is the list-view projection returned by the store index.
type Summary struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CoverImage  string     `json:"cover_image,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func (t *Targeting) HasPrimarySearchTerm() bool {
	return t != nil && strings.TrimSpace(t.PrimarySearchTerm) != ""
}

// Original returns a copy carrying only the scraped fields.
func (a *Article) Original() Article {
	return Article{
		Slug:              a.Slug,
		Title:             a.Title,
		Description:       a.Description,
		Content:           a.Content,
		CoverImage:        a.CoverImage,
		Author:            a.Author,
		PublishedAt:       a.PublishedAt,
		SourceOriginalURL: a.SourceOriginalURL,
	}
}
