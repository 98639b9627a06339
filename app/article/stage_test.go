package article

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		article  *Article
		expected Stage
	}{
		{"nil article", nil, StageRaw},
		{"no targeting", &Article{Content: "body"}, StageRaw},
		{"blank primary term", &Article{Targeting: &Targeting{PrimarySearchTerm: "  "}}, StageRaw},
		{"targeted", &Article{Targeting: &Targeting{PrimarySearchTerm: "headless cms"}}, StageTargeted},
		{"whitespace updated content", &Article{
			Targeting:      &Targeting{PrimarySearchTerm: "headless cms"},
			UpdatedContent: "\n\t",
		}, StageTargeted},
		{"optimized", &Article{
			Targeting:      &Targeting{PrimarySearchTerm: "headless cms"},
			UpdatedContent: "# Rewrite",
		}, StageOptimized},
		{"optimized without targeting", &Article{UpdatedContent: "# Rewrite"}, StageOptimized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.article); got != tt.expected {
				t.Errorf("Expected stage %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestStageString(t *testing.T) {
	if StageRaw.String() != "raw" || StageTargeted.String() != "targeted" || StageOptimized.String() != "optimized" {
		t.Error("Unexpected stage names")
	}
}

func TestOriginalDropsGeneratedFields(t *testing.T) {
	a := &Article{
		Slug:             "test-post",
		Title:            "Test",
		Content:          "body",
		Targeting:        &Targeting{PrimarySearchTerm: "term"},
		UpdatedContent:   "rewrite",
		SourceReferences: []string{"https://a.example"},
	}

	orig := a.Original()
	if orig.Targeting != nil || orig.UpdatedContent != "" || orig.SourceReferences != nil {
		t.Errorf("Expected generated fields to be dropped, got %+v", orig)
	}
	if orig.Slug != "test-post" || orig.Content != "body" {
		t.Errorf("Expected scraped fields to be kept, got %+v", orig)
	}
}
