package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"valuescout/matcher"
	"valuescout/models"
	"valuescout/sources"
)

const (
	// LocalSourceName labels results that come from the local catalog
	LocalSourceName = "Local DB"
	// TopResults is how many cheapest matches a comparison leads with
	TopResults = 4
)

const localSearchLimit = 50

// Catalog is the local product store the orchestrator reads from and feeds
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
	UpsertMany(ctx context.Context, listings []models.CandidateListing) (int, error)
}

// ComparisonResult is the merged, price-sorted outcome of one comparison
type ComparisonResult struct {
	Query     string                              `json:"query"`
	Offset    int                                 `json:"offset"`
	Top       []models.ScoredCandidate            `json:"top"`
	All       []models.ScoredCandidate            `json:"all"`
	Sources   map[string][]models.ScoredCandidate `json:"sources"`
	Timestamp time.Time                           `json:"timestamp"`
}

// ExternalSearchResult lists everything the marketplaces returned for a query
type ExternalSearchResult struct {
	Query   string                               `json:"query"`
	Count   int                                  `json:"count"`
	Sources map[string][]models.CandidateListing `json:"sources"`
	All     []models.CandidateListing            `json:"all"`
}

// ComparisonOrchestrator fans one query out to every marketplace and the local catalog
type ComparisonOrchestrator struct {
	sources []sources.Source
	catalog Catalog
	rules   matcher.Rules
	timeout time.Duration

	// background catalog writes
	wg sync.WaitGroup
}

func NewComparisonOrchestrator(srcs []sources.Source, catalog Catalog, rules matcher.Rules, timeout time.Duration) *ComparisonOrchestrator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ComparisonOrchestrator{
		sources: srcs,
		catalog: catalog,
		rules:   rules,
		timeout: timeout,
	}
}

// Compare returns the cheapest good matches for query. Local catalog matches are
// ranked as a batch and paged by offset, counted in pairs; each marketplace
// contributes at most its single best match. Failing sources contribute nothing.
func (o *ComparisonOrchestrator) Compare(ctx context.Context, query string, offset int) ComparisonResult {
	result := ComparisonResult{
		Query:     query,
		Offset:    offset,
		Sources:   make(map[string][]models.ScoredCandidate),
		Timestamp: time.Now().UTC(),
	}

	var (
		wg      sync.WaitGroup
		local   []models.ScoredCandidate
		best    = make([]*models.ScoredCandidate, len(o.sources))
		fetched = make([][]models.CandidateListing, len(o.sources))
	)

	if o.catalog != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local = o.searchLocal(ctx, query, offset)
		}()
	}

	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			srcCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			listings := src.Search(srcCtx, query)
			fetched[i] = listings
			best[i] = matcher.Best(query, listings, o.rules, matcher.ModeBest)
		}(i, src)
	}

	wg.Wait()

	// marketplace entries go first so a catalog copy of the same listing is dropped
	all := make([]models.ScoredCandidate, 0, len(local)+len(best))
	seen := make(map[string]bool)
	for i, b := range best {
		name := o.sources[i].Name()
		if b == nil {
			result.Sources[name] = []models.ScoredCandidate{}
			continue
		}
		result.Sources[name] = []models.ScoredCandidate{*b}
		if key := listingKey(b.CandidateListing); key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		all = append(all, *b)
	}

	var kept []models.ScoredCandidate
	for _, c := range local {
		key := listingKey(c.CandidateListing)
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		kept = append(kept, c)
	}
	if len(kept) > 0 {
		result.Sources[LocalSourceName] = kept
		all = append(all, kept...)
	}

	SortByPrice(all)
	result.All = all
	result.Top = all[:min(TopResults, len(all))]

	var toStore []models.CandidateListing
	for _, listings := range fetched {
		toStore = append(toStore, listings...)
	}
	o.storeInBackground(ctx, toStore)

	return result
}

func (o *ComparisonOrchestrator) searchLocal(ctx context.Context, query string, offset int) []models.ScoredCandidate {
	localCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	products, err := o.catalog.Search(localCtx, query, localSearchLimit)
	if err != nil {
		log.Printf("❌ Local catalog search error: %v", err)
		return nil
	}

	candidates := make([]models.CandidateListing, len(products))
	for i, p := range products {
		candidates[i] = p.CandidateListing
		candidates[i].Source = LocalSourceName
	}

	accepted := matcher.Accepted(matcher.Rank(query, candidates, o.rules, matcher.ModeBatch))

	skip := (max(offset, 0) / 2) * 2
	if skip >= len(accepted) {
		return nil
	}
	return accepted[skip:]
}

// ExternalSearch returns every marketplace result for query and stores them in the catalog
func (o *ComparisonOrchestrator) ExternalSearch(ctx context.Context, query string) ExternalSearchResult {
	var wg sync.WaitGroup
	fetched := make([][]models.CandidateListing, len(o.sources))
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			srcCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()
			fetched[i] = src.Search(srcCtx, query)
		}(i, src)
	}
	wg.Wait()

	result := ExternalSearchResult{
		Query:   query,
		Sources: make(map[string][]models.CandidateListing),
		All:     []models.CandidateListing{},
	}
	for i, listings := range fetched {
		if listings == nil {
			listings = []models.CandidateListing{}
		}
		result.Sources[o.sources[i].Name()] = listings
		result.All = append(result.All, listings...)
	}
	result.Count = len(result.All)

	if o.catalog != nil && len(result.All) > 0 {
		if n, err := o.catalog.UpsertMany(ctx, result.All); err != nil {
			log.Printf("❌ Failed to store search results: %v", err)
		} else {
			log.Printf("✅ Stored %d products from search %q", n, query)
		}
	}

	return result
}

func (o *ComparisonOrchestrator) storeInBackground(ctx context.Context, listings []models.CandidateListing) {
	if o.catalog == nil || len(listings) == 0 {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()
		if _, err := o.catalog.UpsertMany(storeCtx, listings); err != nil {
			log.Printf("❌ Failed to store comparison results: %v", err)
		}
	}()
}

// Wait blocks until background catalog writes have finished
func (o *ComparisonOrchestrator) Wait() {
	o.wg.Wait()
}

// listingKey identifies a listing across sources: its marketplace id when known,
// otherwise the normalised link. Listings with neither have no key.
func listingKey(c models.CandidateListing) string {
	id := c.MarketplaceID
	if id == "" {
		id = sources.ExtractASIN(c.Link)
	}
	if id != "" {
		return "id:" + strings.ToUpper(id)
	}

	link := strings.ToLower(strings.TrimSpace(c.Link))
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	link = strings.TrimPrefix(link, "https://")
	link = strings.TrimPrefix(link, "http://")
	link = strings.TrimRight(strings.TrimPrefix(link, "www."), "/")
	if link == "" {
		return ""
	}
	return "link:" + link
}

// SortByPrice orders candidates by ascending price, unpriced last. Equal prices keep their order.
func SortByPrice(candidates []models.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].Price, candidates[j].Price
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})
}
