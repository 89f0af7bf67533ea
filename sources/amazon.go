package sources

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"

	"valuescout/models"
)

type amazonResponse struct {
	Product *struct {
		Title string     `json:"title"`
		Price priceField `json:"price"`
	} `json:"product"`
	OrganicResults []amazonResult `json:"organic_results"`
}

type amazonResult struct {
	Title       string      `json:"title"`
	ASIN        string      `json:"asin"`
	Link        string      `json:"link"`
	LinkClean   string      `json:"link_clean"`
	Thumbnail   string      `json:"thumbnail"`
	Image       string      `json:"image"`
	Price       priceField  `json:"price"`
	Rating      ratingField `json:"rating"`
	Reviews     countField  `json:"reviews"`
	ReviewCount countField  `json:"review_count"`
}

// AmazonSource searches Amazon listings through SerpAPI's amazon engine
type AmazonSource struct {
	client *SerpClient
}

func NewAmazonSource(client *SerpClient) *AmazonSource {
	return &AmazonSource{client: client}
}

func (s *AmazonSource) Name() string { return "Amazon" }

func (s *AmazonSource) Search(ctx context.Context, query string) []models.CandidateListing {
	cfg := s.client.Config()
	params := url.Values{}
	params.Set("engine", "amazon")
	params.Set("amazon_domain", cfg.AmazonDomain)
	params.Set("k", query)

	var resp amazonResponse
	if err := s.client.Get(ctx, params, &resp); err != nil {
		if !errors.Is(err, ErrAPIDisabled) {
			log.Printf("Amazon search failed for %q: %v", query, err)
		}
		return nil
	}

	listings := make([]models.CandidateListing, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		listings = append(listings, s.toListing(r))
	}
	return limit(listings, cfg.MaxResults)
}

func (s *AmazonSource) toListing(r amazonResult) models.CandidateListing {
	link := r.Link
	if link == "" {
		link = r.LinkClean
	}
	asin := r.ASIN
	if asin == "" {
		asin = ExtractASIN(link)
	}
	if link == "" && asin != "" {
		link = "https://www." + s.client.Config().AmazonDomain + "/dp/" + asin
	}
	image := r.Thumbnail
	if image == "" {
		image = r.Image
	}
	reviews := r.Reviews.Value
	if reviews == nil {
		reviews = r.ReviewCount.Value
	}

	return models.CandidateListing{
		Source:        s.Name(),
		Title:         strings.TrimSpace(r.Title),
		Price:         r.Price.Amount(),
		PriceText:     r.Price.Text,
		Image:         image,
		Link:          link,
		MarketplaceID: asin,
		Rating:        r.Rating.Value,
		Reviews:       reviews,
	}
}

// PriceByID looks a product up by ASIN. The product block's price is used
// when present, otherwise the organic result that links to the same ASIN.
func (s *AmazonSource) PriceByID(ctx context.Context, asin string) (*float64, error) {
	params := url.Values{}
	params.Set("engine", "amazon")
	params.Set("amazon_domain", s.client.Config().AmazonDomain)
	params.Set("asin", asin)

	var resp amazonResponse
	if err := s.client.Get(ctx, params, &resp); err != nil {
		return nil, err
	}

	if resp.Product != nil {
		if price := resp.Product.Price.Amount(); price != nil {
			return price, nil
		}
	}

	for _, r := range resp.OrganicResults {
		if r.ASIN == asin || strings.Contains(r.Link, "/dp/"+asin) {
			if price := r.Price.Amount(); price != nil {
				return price, nil
			}
		}
	}

	return nil, nil
}
