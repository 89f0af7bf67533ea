package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"valuescout/database"
	"valuescout/models"
)

const wishlistColumns = `id, owner_id, title, link, marketplace_id, source, image, price, target_price, created_at`

type WishlistRepository struct {
	db *database.DB
}

func NewWishlistRepository(db *database.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrackedItem(row rowScanner) (*models.TrackedItem, error) {
	var item models.TrackedItem
	var price, target sql.NullFloat64
	err := row.Scan(
		&item.ID, &item.OwnerID, &item.Title, &item.Link,
		&item.MarketplaceID, &item.Source, &item.Image,
		&price, &target, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		item.Price = models.Float(price.Float64)
	}
	if target.Valid {
		item.TargetPrice = models.Float(target.Float64)
	}
	return &item, nil
}

// Add stores a new wishlist entry. The same link can only be saved once per owner.
func (r *WishlistRepository) Add(ctx context.Context, item *models.TrackedItem) (*models.TrackedItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if _, err := r.FindByLink(ctx, item.OwnerID, item.Link); err == nil {
		return nil, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := r.db.Rebind(`
		INSERT INTO wishlist_items (owner_id, title, link, marketplace_id, source, image, price, target_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + wishlistColumns)

	saved, err := scanTrackedItem(r.db.QueryRowContext(ctx, query,
		item.OwnerID, strings.TrimSpace(item.Title), item.Link, item.MarketplaceID,
		item.Source, item.Image, item.Price, item.TargetPrice, time.Now().UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}

	return saved, nil
}

// Remove deletes an owner's entry by id, or by link when id is zero
func (r *WishlistRepository) Remove(ctx context.Context, ownerID string, id int64, link string) error {
	var (
		res sql.Result
		err error
	)
	switch {
	case id > 0:
		res, err = r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM wishlist_items WHERE owner_id = ? AND id = ?`), ownerID, id)
	case link != "":
		res, err = r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM wishlist_items WHERE owner_id = ? AND link = ?`), ownerID, link)
	default:
		return fmt.Errorf("item id or link is required")
	}
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForOwner returns the owner's wishlist, newest first
func (r *WishlistRepository) ListForOwner(ctx context.Context, ownerID string) ([]models.TrackedItem, error) {
	query := r.db.Rebind(`
		SELECT ` + wishlistColumns + `
		FROM wishlist_items
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`)
	return r.list(ctx, query, ownerID)
}

// ListTracked returns every entry that carries a target price
func (r *WishlistRepository) ListTracked(ctx context.Context) ([]models.TrackedItem, error) {
	query := `
		SELECT ` + wishlistColumns + `
		FROM wishlist_items
		WHERE target_price IS NOT NULL AND target_price > 0
		ORDER BY id ASC
	`
	return r.list(ctx, query)
}

func (r *WishlistRepository) list(ctx context.Context, query string, args ...any) ([]models.TrackedItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist items: %w", err)
	}
	defer rows.Close()

	items := []models.TrackedItem{}
	for rows.Next() {
		item, err := scanTrackedItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// FindByLink returns the owner's entry for a link
func (r *WishlistRepository) FindByLink(ctx context.Context, ownerID, link string) (*models.TrackedItem, error) {
	query := r.db.Rebind(`SELECT ` + wishlistColumns + ` FROM wishlist_items WHERE owner_id = ? AND link = ?`)
	item, err := scanTrackedItem(r.db.QueryRowContext(ctx, query, ownerID, link))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wishlist item: %w", err)
	}
	return item, nil
}

// SetTarget sets the price alert on one of the owner's entries
func (r *WishlistRepository) SetTarget(ctx context.Context, ownerID string, id int64, target float64) (*models.TrackedItem, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target price must be positive")
	}

	query := r.db.Rebind(`
		UPDATE wishlist_items SET target_price = ?
		WHERE owner_id = ? AND id = ?
		RETURNING ` + wishlistColumns)

	item, err := scanTrackedItem(r.db.QueryRowContext(ctx, query, target, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to set target price: %w", err)
	}
	return item, nil
}
