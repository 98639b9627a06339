package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/article-optimizer/app/article"
	"github.com/lysyi3m/article-optimizer/app/content"
	"github.com/lysyi3m/article-optimizer/app/llm"
	"github.com/lysyi3m/article-optimizer/app/progress"
	"github.com/lysyi3m/article-optimizer/app/search"
	"github.com/lysyi3m/article-optimizer/app/store"
)

// callLog records the order of external calls across fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) index(call string) int {
	for i, c := range l.all() {
		if c == call {
			return i
		}
	}
	return -1
}

type fakeStore struct {
	mu          sync.Mutex
	log         *callLog
	articles    map[string]*article.Article
	getErr      error
	failUpdates int
	rejectWith  int
	updates     []article.Patch
}

func newFakeStore(log *callLog, articles ...*article.Article) *fakeStore {
	s := &fakeStore{log: log, articles: make(map[string]*article.Article)}
	for _, a := range articles {
		s.articles[a.Slug] = a
	}
	return s
}

func (s *fakeStore) GetArticle(ctx context.Context, slug string) (*article.Article, error) {
	s.log.add("store.get")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.getErr != nil {
		return nil, s.getErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *fakeStore) UpdateArticle(ctx context.Context, slug string, patch article.Patch) (*article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Targeting != nil {
		s.log.add("store.update.targeting")
	} else {
		s.log.add("store.update.content")
	}

	if s.rejectWith != 0 {
		return nil, &store.StatusError{Slug: slug, StatusCode: s.rejectWith, Detail: "validation failed"}
	}
	if s.failUpdates > 0 {
		s.failUpdates--
		return nil, errors.New("store unavailable")
	}

	a, ok := s.articles[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.updates = append(s.updates, patch)

	if patch.Targeting != nil {
		a.Targeting = patch.Targeting
	}
	if patch.UpdatedContent != "" {
		a.UpdatedContent = patch.UpdatedContent
		a.SourceReferences = patch.SourceReferences
	}
	copied := *a
	return &copied, nil
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type fakeLLM struct {
	mu        sync.Mutex
	log       *callLog
	targeting string
	optimized string
	err       error
	panicMsg  string
	requests  []llm.Request
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if req.Schema != nil {
		f.log.add("llm.targeting")
	} else {
		f.log.add("llm.optimize")
	}

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return "", f.err
	}
	if req.Schema != nil {
		return f.targeting, nil
	}
	return f.optimized, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeSearch struct {
	log     *callLog
	results []search.Result
	err     error
	queries []string
	options []search.Options
}

func (f *fakeSearch) Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	f.log.add("search")
	f.queries = append(f.queries, query)
	f.options = append(f.options, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeSearch) GetName() string {
	return "fake"
}

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*Page
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)

	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("failed to fetch URL: dial tcp: no such host")
	}
	return page, nil
}

type memLocker struct {
	mu     sync.Mutex
	leases map[string]string
	seq    int
}

func newMemLocker() *memLocker {
	return &memLocker{leases: make(map[string]string)}
}

func (m *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.leases[key]; held {
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.leases[key] = token
	return token, true, nil
}

func (m *memLocker) Release(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leases[key] == token {
		delete(m.leases, key)
	}
	return nil
}

func (m *memLocker) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leases)
}

type stashed struct {
	payload  []byte
	attempts int
}

type memStash struct {
	mu    sync.Mutex
	items map[string]stashed
}

func newMemStash() *memStash {
	return &memStash{items: make(map[string]stashed)}
}

func (m *memStash) SavePending(ctx context.Context, slug, stage string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := slug + "/" + stage
	m.items[key] = stashed{payload: payload, attempts: m.items[key].attempts + 1}
	return nil
}

func (m *memStash) GetPending(ctx context.Context, slug, stage string) ([]byte, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[slug+"/"+stage]
	return item.payload, item.attempts, ok, nil
}

func (m *memStash) DeletePending(ctx context.Context, slug, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, slug+"/"+stage)
	return nil
}

func (m *memStash) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

const targetingJSON = `{
  "primary_search_term": "headless cms",
  "content_summary": "A practical comparison of headless CMS options for small teams.",
  "ideal_audience": ["Frontend developers", "Startup CTOs"],
  "pain_points": ["I can't preview content before publishing", "I don't know which CMS scales"],
  "content_positioning": {
    "intent_match": "Informational comparison",
    "competitive_angle": "Hands-on migration notes",
    "conversion_potential": "Leads readers to a trial"
  },
  "secondary_keywords": ["headless cms comparison", "api first cms", "jamstack cms"]
}`

var paragraphs = []string{
	"A headless content management system separates the place where editors write from the place where readers see the result. Content is stored once and delivered through an API to websites, mobile apps and anything else that can make an HTTP request.",
	"Teams usually move to a headless setup when their marketing site, documentation and product screens all need the same copy. Keeping those in sync by hand gets slow, and a shared content API removes most of the duplicated effort.",
	"The trade-off is that previews, routing and page layout become the frontend team's job. Editors lose the what-you-see-is-what-you-get view unless someone builds a preview environment that renders drafts with the real templates.",
	"When comparing vendors, look at how content models are versioned, how webhooks notify your build pipeline and how localization is handled. Pricing often scales with API calls and seats, so estimate both before committing.",
	"Migration is the part most guides skip. Export the existing pages, map each field to the new content model and run both systems side by side for a release or two so broken links and missing images surface early.",
	"Finally, measure the outcome. Publishing time, page speed and the number of places content is edited are simple numbers that show whether the switch paid off for the team and for readers.",
}

func articleHTML(title string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>", title)
	b.WriteString("<nav><a href=\"/\">Home</a> <a href=\"/blog\">Blog</a></nav>")
	fmt.Fprintf(&b, "<article><h1>%s</h1>", title)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString("</article><footer>Copyright</footer></body></html>")
	return []byte(b.String())
}

func challengeHTML() []byte {
	return []byte(`<html><head><title>Just a moment...</title></head><body><div id="cf_chl_opt">Checking your browser before accessing the site.</div></body></html>`)
}

func shortHTML() []byte {
	return []byte(`<html><head><title>Short</title></head><body><article><p>Too short to be useful.</p></article></body></html>`)
}

type fixture struct {
	log     *callLog
	store   *fakeStore
	llm     *fakeLLM
	search  *fakeSearch
	fetcher *fakeFetcher
	locker  *memLocker
	stash   *memStash
	orch    *Orchestrator
}

func newFixture(articles ...*article.Article) *fixture {
	log := &callLog{}
	f := &fixture{
		log:     log,
		store:   newFakeStore(log, articles...),
		llm:     &fakeLLM{log: log, targeting: targetingJSON, optimized: "# Headless CMS guide\n\nRewritten body."},
		search:  &fakeSearch{log: log},
		fetcher: &fakeFetcher{pages: make(map[string]*Page)},
		locker:  newMemLocker(),
		stash:   newMemStash(),
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	researcher := NewResearcher(f.search, f.fetcher, content.NewExtractor(), DefaultProfile())
	f.orch = NewOrchestrator(f.store, f.llm, researcher, f.locker, f.stash, Options{SaveRetryDelay: time.Millisecond})
}

// candidates registers search results in rank order. Each entry is "ok",
// "blocked", "short" or "down".
func (f *fixture) candidates(kinds ...string) []string {
	urls := make([]string, len(kinds))
	f.search.results = nil
	for i, kind := range kinds {
		url := fmt.Sprintf("https://example%d.com/blog/post", i+1)
		urls[i] = url
		f.search.results = append(f.search.results, search.Result{URL: url, Title: fmt.Sprintf("Result %d", i+1), Rank: i + 1})

		switch kind {
		case "ok":
			f.fetcher.pages[url] = &Page{URL: url, StatusCode: 200, Body: articleHTML(fmt.Sprintf("Competitor %d", i+1))}
		case "blocked":
			f.fetcher.pages[url] = &Page{URL: url, StatusCode: 200, Body: challengeHTML()}
		case "forbidden":
			f.fetcher.pages[url] = &Page{URL: url, StatusCode: 403, Body: articleHTML("Forbidden")}
		case "short":
			f.fetcher.pages[url] = &Page{URL: url, StatusCode: 200, Body: shortHTML()}
		}
	}
	return urls
}

func (f *fixture) run(ctx context.Context, slug string, mode Mode) []progress.Event {
	collector := &progress.Collector{}
	stream := f.orch.Start(ctx, Request{Slug: slug, Mode: mode})
	_, _ = progress.Relay(stream, collector)
	return collector.Events()
}

func rawArticle(slug string) *article.Article {
	return &article.Article{
		Slug:        slug,
		Title:       "Choosing a headless CMS",
		Description: "What we learned",
		CoverImage:  "https://cdn.example.com/cover.png",
		Content:     strings.Join(paragraphs, "\n\n"),
	}
}

func targetedArticle(slug, term string) *article.Article {
	a := rawArticle(slug)
	a.Targeting = &article.Targeting{PrimarySearchTerm: term}
	return a
}

func optimizedArticle(slug string) *article.Article {
	a := targetedArticle(slug, "headless cms")
	a.UpdatedContent = "# Already optimized"
	a.SourceReferences = []string{"https://a.example.com", "https://b.example.com"}
	return a
}
