package article

import "strings"

type Stage int

const (
	StageRaw Stage = iota
	StageTargeted
	StageOptimized
)

func (s Stage) String() string {
	switch s {
	case StageTargeted:
		return "targeted"
	case StageOptimized:
		return "optimized"
	default:
		return "raw"
	}
}

// Classify derives the pipeline stage from field presence alone. An article
// with updated content is optimized even if its targeting was later removed.
func Classify(a *Article) Stage {
	if a == nil {
		return StageRaw
	}
	if strings.TrimSpace(a.UpdatedContent) != "" {
		return StageOptimized
	}
	if a.Targeting.HasPrimarySearchTerm() {
		return StageTargeted
	}
	return StageRaw
}
