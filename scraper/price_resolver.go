package scraper

import (
	"context"
	"log"
	"strings"
	"time"

	"valuescout/models"

	"github.com/PuerkitoBio/goquery"
)

// priceSelectors are tried in order; the first positive value wins
var priceSelectors = []string{
	".a-price-whole",
	".a-price.a-text-price.a-size-medium.a-color-price",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	".a-price .a-offscreen",
	"[itemprop=price]",
	"meta[property='product:price:amount']",
}

// PriceLookup resolves a price from a marketplace identifier through the search API
type PriceLookup interface {
	PriceByID(ctx context.Context, id string) (*float64, error)
}

// PriceResolver finds the current price of a tracked item: API lookup by
// identifier first, then a single page fetch.
type PriceResolver struct {
	lookup   PriceLookup
	fetcher  PageFetcher
	detector *BotDetector
	domain   string
	timeout  time.Duration
}

// NewPriceResolver creates a resolver. lookup may be nil when the API is not configured.
func NewPriceResolver(lookup PriceLookup, fetcher PageFetcher, domain string, timeout time.Duration) *PriceResolver {
	if domain == "" {
		domain = "amazon.in"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PriceResolver{
		lookup:   lookup,
		fetcher:  fetcher,
		detector: NewBotDetector(),
		domain:   domain,
		timeout:  timeout,
	}
}

// Resolve never returns an error: every failure ends as a result without a price
func (r *PriceResolver) Resolve(ctx context.Context, item models.TrackedItem) models.PriceCheckResult {
	if price := r.fromAPI(ctx, item); price != nil {
		return models.PriceCheckResult{Price: price, Method: models.PriceMethodAPI}
	}

	if price := r.fromPage(ctx, item); price != nil {
		return models.PriceCheckResult{Price: price, Method: models.PriceMethodScrape}
	}

	return models.PriceCheckResult{Method: models.PriceMethodNone}
}

func (r *PriceResolver) fromAPI(ctx context.Context, item models.TrackedItem) *float64 {
	if r.lookup == nil || item.MarketplaceID == "" {
		return nil
	}

	apiCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	price, err := r.lookup.PriceByID(apiCtx, item.MarketplaceID)
	if err != nil {
		log.Printf("API price lookup failed for %s: %v", item.MarketplaceID, err)
		return nil
	}
	if price == nil || *price <= 0 {
		return nil
	}
	return price
}

func (r *PriceResolver) fromPage(ctx context.Context, item models.TrackedItem) *float64 {
	if r.fetcher == nil {
		return nil
	}

	url := r.pageURL(item)
	if url == "" {
		return nil
	}

	pageCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	html, err := r.fetcher.Fetch(pageCtx, url)
	if err != nil {
		log.Printf("Page fetch failed for %s: %v", url, err)
		return nil
	}

	price, err := r.ExtractPrice(html)
	if err != nil {
		log.Printf("No price on %s: %v", url, err)
		return nil
	}
	return price
}

func (r *PriceResolver) pageURL(item models.TrackedItem) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if item.MarketplaceID != "" {
		return "https://www." + r.domain + "/dp/" + item.MarketplaceID
	}
	return ""
}

// ExtractPrice reads the first positive price from a product page
func (r *PriceResolver) ExtractPrice(html string) (*float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	for _, selector := range priceSelectors {
		var found *float64
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text, ok := s.Attr("content")
			if !ok {
				text = s.Text()
			}
			if price := NormalizePrice(text); price != nil && *price > 0 {
				found = price
				return false
			}
			return true
		})
		if found != nil {
			return found, nil
		}
	}

	// only a page without a price is checked for a bot wall; scripts are not page text
	title := strings.TrimSpace(doc.Find("title").First().Text())
	body := doc.Find("body")
	body.Find("script, style, noscript").Remove()
	if blocked, reason := r.detector.IsBotWall(body.Text(), title); blocked {
		return nil, &BotWallError{Reason: reason}
	}

	return nil, ErrNoPrice
}
