package sources

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"

	"valuescout/models"
)

type shoppingResponse struct {
	ShoppingResults []shoppingResult `json:"shopping_results"`
}

type shoppingResult struct {
	Title          string      `json:"title"`
	Price          priceField  `json:"price"`
	ExtractedPrice *float64    `json:"extracted_price"`
	Thumbnail      string      `json:"thumbnail"`
	ProductLink    string      `json:"product_link"`
	Link           string      `json:"link"`
	Rating         ratingField `json:"rating"`
	Reviews        countField  `json:"reviews"`
	Source         string      `json:"source"`
	ProductID      string      `json:"product_id"`
}

// ShoppingSource searches Google Shopping through SerpAPI. A non-empty
// suffix narrows the query to one retailer.
type ShoppingSource struct {
	client *SerpClient
	name   string
	suffix string
}

func NewShoppingSource(client *SerpClient) *ShoppingSource {
	return &ShoppingSource{client: client, name: "Google Shopping"}
}

// NewFlipkartSource finds Flipkart listings via Google Shopping
func NewFlipkartSource(client *SerpClient) *ShoppingSource {
	return &ShoppingSource{client: client, name: "Flipkart", suffix: "flipkart"}
}

func (s *ShoppingSource) Name() string { return s.name }

func (s *ShoppingSource) Search(ctx context.Context, query string) []models.CandidateListing {
	cfg := s.client.Config()
	q := query
	if s.suffix != "" {
		q = query + " " + s.suffix
	}

	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("google_domain", cfg.GoogleDomain)
	params.Set("hl", cfg.Language)
	params.Set("gl", cfg.Country)
	params.Set("q", q)

	var resp shoppingResponse
	if err := s.client.Get(ctx, params, &resp); err != nil {
		if !errors.Is(err, ErrAPIDisabled) {
			log.Printf("%s search failed for %q: %v", s.name, query, err)
		}
		return nil
	}

	listings := make([]models.CandidateListing, 0, len(resp.ShoppingResults))
	for _, r := range resp.ShoppingResults {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		link := r.ProductLink
		if link == "" {
			link = r.Link
		}
		price := r.Price.Amount()
		if price == nil && r.ExtractedPrice != nil && *r.ExtractedPrice > 0 {
			v := *r.ExtractedPrice
			price = &v
		}
		listings = append(listings, models.CandidateListing{
			Source:        s.name,
			Title:         strings.TrimSpace(r.Title),
			Price:         price,
			PriceText:     r.Price.Text,
			Image:         r.Thumbnail,
			Link:          link,
			MarketplaceID: r.ProductID,
			Rating:        r.Rating.Value,
			Reviews:       r.Reviews.Value,
		})
	}
	return limit(listings, cfg.MaxResults)
}
