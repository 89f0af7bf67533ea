package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TrackedItem represents a wishlist entry with a target price, checked on every sweep
type TrackedItem struct {
	ID            int64     `json:"id" db:"id"`
	OwnerID       string    `json:"user_id" db:"owner_id"`
	Title         string    `json:"title" db:"title"`
	Link          string    `json:"link" db:"link"`
	MarketplaceID string    `json:"asin,omitempty" db:"marketplace_id"`
	Source        string    `json:"source" db:"source"`
	Image         string    `json:"image,omitempty" db:"image"`
	Price         *float64  `json:"price,omitempty" db:"price"`
	TargetPrice   *float64  `json:"target_price,omitempty" db:"target_price"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// IsTracked returns true if the item has a target price and takes part in sweeps
func (t *TrackedItem) IsTracked() bool {
	return t.TargetPrice != nil && *t.TargetPrice > 0
}

// GetTargetPrice returns the target price as float64, or 0 if unset
func (t *TrackedItem) GetTargetPrice() float64 {
	if t.TargetPrice != nil {
		return *t.TargetPrice
	}
	return 0.0
}

// Validate checks the fields required to store a wishlist entry
func (t *TrackedItem) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(t.Link) == "" {
		return fmt.Errorf("link is required")
	}
	if t.TargetPrice != nil && *t.TargetPrice <= 0 {
		return fmt.Errorf("target price must be positive")
	}
	return nil
}

// CandidateListing is one marketplace search result before scoring
type CandidateListing struct {
	Source        string   `json:"source"`
	Title         string   `json:"title"`
	Price         *float64 `json:"price"`
	PriceText     string   `json:"price_text,omitempty"`
	Image         string   `json:"image,omitempty"`
	Link          string   `json:"link"`
	MarketplaceID string   `json:"asin,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	Reviews       *int     `json:"reviews,omitempty"`
}

// HasPrice returns true if the listing carries a parsed price
func (c *CandidateListing) HasPrice() bool {
	return c.Price != nil
}

// ScoredCandidate is a listing annotated with its relevance decision
type ScoredCandidate struct {
	CandidateListing
	Score    int  `json:"score"`
	Accepted bool `json:"accepted"`
	Excluded bool `json:"excluded,omitempty"`
}

// Product is a listing promoted into the local catalog
type Product struct {
	ID int64 `json:"id" db:"id"`
	CandidateListing
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// User is the subset of the account record the tracker needs
type User struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
}

// Notification records a detected price drop for one owner and item
type Notification struct {
	ID            int64      `json:"id" db:"id"`
	OwnerID       string     `json:"user_id" db:"owner_id"`
	TrackedItemID int64      `json:"item_id" db:"tracked_item_id"`
	MarketplaceID string     `json:"asin,omitempty" db:"marketplace_id"`
	Title         string     `json:"title" db:"title"`
	Price         float64    `json:"current_price" db:"price"`
	TargetPrice   float64    `json:"target_price" db:"target_price"`
	IsRead        bool       `json:"is_read" db:"is_read"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// PriceMethod names the step that produced a price
type PriceMethod string

const (
	PriceMethodAPI    PriceMethod = "api"
	PriceMethodScrape PriceMethod = "scrape"
	PriceMethodNone   PriceMethod = "none"
)

// PriceCheckResult is the outcome of resolving one tracked item's price
type PriceCheckResult struct {
	Price  *float64    `json:"price"`
	Method PriceMethod `json:"method"`
}

// Found returns true if a price was resolved
func (r PriceCheckResult) Found() bool {
	return r.Price != nil
}

// MarshalJSON renders the price as null when nothing was found
func (r PriceCheckResult) MarshalJSON() ([]byte, error) {
	type Alias PriceCheckResult
	if r.Method == "" {
		r.Method = PriceMethodNone
	}
	return json.Marshal(Alias(r))
}

// Float returns a pointer to v, for the nullable price fields
func Float(v float64) *float64 {
	return &v
}

// AddWishlistRequest represents the request to add an item to a wishlist
type AddWishlistRequest struct {
	UserID      string   `json:"userId"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Image       string   `json:"image"`
	Source      string   `json:"source"`
	Link        string   `json:"link"`
	ASIN        string   `json:"asin"`
	TargetPrice *float64 `json:"targetPrice"`
}

// RemoveWishlistRequest removes an entry by id or by link
type RemoveWishlistRequest struct {
	UserID string `json:"userId"`
	ItemID int64  `json:"itemId"`
	Link   string `json:"link"`
}

// SetTargetRequest represents the request to set a price alert on a wishlist entry
type SetTargetRequest struct {
	UserID      string  `json:"userId"`
	ItemID      int64   `json:"itemId"`
	TargetPrice float64 `json:"targetPrice"`
}
