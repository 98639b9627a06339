package pipeline

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/article-optimizer/app/content"
)

const (
	CompetitorQuota = 2
	MaxCandidates   = 6
	MinTextLength   = 500
)

const (
	DefaultQuerySuffix    = "(inurl:blog OR inurl:article OR intitle:guide)"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultFetchTimeout   = 8
)

var DefaultExcludedSites = []string{
	"instagram.com",
	"facebook.com",
	"linkedin.com",
	"quora.com",
	"reddit.com",
}

// Profile tunes competitor research: how the search query is built and how
// candidate pages are fetched.
type Profile struct {
	Search SearchProfile `yaml:"search"`
	Fetch  FetchProfile  `yaml:"fetch"`
}

type SearchProfile struct {
	QuerySuffix  string   `yaml:"query_suffix"`
	ExcludeSites []string `yaml:"exclude_sites"`
	Language     string   `yaml:"language"`
	Country      string   `yaml:"country"`
}

type FetchProfile struct {
	Timeout        int      `yaml:"timeout"` // seconds
	UserAgent      string   `yaml:"user_agent"`
	AcceptLanguage string   `yaml:"accept_language"`
	BlockedMarkers []string `yaml:"blocked_markers"`
}

func DefaultProfile() *Profile {
	p := &Profile{}
	p.applyDefaults()
	return p
}

// LoadProfile reads a research profile from a YAML file. An empty path
// yields the defaults.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	p.applyDefaults()

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &p, nil
}

func (p *Profile) applyDefaults() {
	if p.Search.QuerySuffix == "" {
		p.Search.QuerySuffix = DefaultQuerySuffix
	}
	if p.Search.ExcludeSites == nil {
		p.Search.ExcludeSites = append([]string(nil), DefaultExcludedSites...)
	}
	if p.Search.Language == "" {
		p.Search.Language = "en"
	}
	if p.Search.Country == "" {
		p.Search.Country = "in"
	}
	if p.Fetch.Timeout == 0 {
		p.Fetch.Timeout = DefaultFetchTimeout
	}
	if p.Fetch.UserAgent == "" {
		p.Fetch.UserAgent = DefaultUserAgent
	}
	if p.Fetch.AcceptLanguage == "" {
		p.Fetch.AcceptLanguage = DefaultAcceptLanguage
	}
	if len(p.Fetch.BlockedMarkers) == 0 {
		p.Fetch.BlockedMarkers = append([]string(nil), content.DefaultBlockedMarkers...)
	}
}

func (p *Profile) validate() error {
	if _, err := language.ParseBase(p.Search.Language); err != nil {
		return fmt.Errorf("search language %q: %w", p.Search.Language, err)
	}
	if _, err := language.ParseRegion(p.Search.Country); err != nil {
		return fmt.Errorf("search country %q: %w", p.Search.Country, err)
	}
	if p.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch timeout must be positive, got %d", p.Fetch.Timeout)
	}
	for _, site := range p.Search.ExcludeSites {
		if strings.TrimSpace(site) == "" || strings.ContainsAny(site, " /") {
			return fmt.Errorf("invalid excluded site %q", site)
		}
	}
	return nil
}

func (p *Profile) FetchTimeout() time.Duration {
	return time.Duration(p.Fetch.Timeout) * time.Second
}

// BuildQuery appends the suffix and a -site: filter per excluded domain.
func (p *Profile) BuildQuery(term string) string {
	parts := []string{strings.TrimSpace(term)}
	if p.Search.QuerySuffix != "" {
		parts = append(parts, p.Search.QuerySuffix)
	}
	for _, site := range p.Search.ExcludeSites {
		parts = append(parts, "-site:"+site)
	}
	return strings.Join(parts, " ")
}
