package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"valuescout/database"
	"valuescout/models"
)

const productColumns = `id, title, price, price_text, source, image, link, marketplace_id, rating, reviews, created_at, updated_at`

// ProductRepository is the local catalog of listings seen in searches
type ProductRepository struct {
	db *database.DB
}

func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var price, rating sql.NullFloat64
	var reviews sql.NullInt64
	err := row.Scan(
		&p.ID, &p.Title, &price, &p.PriceText, &p.Source, &p.Image, &p.Link,
		&p.MarketplaceID, &rating, &reviews, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		p.Price = models.Float(price.Float64)
	}
	if rating.Valid {
		p.Rating = models.Float(rating.Float64)
	}
	if reviews.Valid {
		n := int(reviews.Int64)
		p.Reviews = &n
	}
	return &p, nil
}

// Upsert inserts a listing or refreshes the row with the same link
func (r *ProductRepository) Upsert(ctx context.Context, listing models.CandidateListing) (*models.Product, error) {
	if listing.Link == "" || listing.Title == "" {
		return nil, fmt.Errorf("listing title and link are required")
	}

	var reviews any
	if listing.Reviews != nil {
		reviews = int64(*listing.Reviews)
	}

	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO products (title, price, price_text, source, image, link, marketplace_id, rating, reviews, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (link) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			price_text = excluded.price_text,
			source = excluded.source,
			image = excluded.image,
			marketplace_id = excluded.marketplace_id,
			rating = excluded.rating,
			reviews = excluded.reviews,
			updated_at = excluded.updated_at
		RETURNING ` + productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query,
		listing.Title, listing.Price, listing.PriceText, listing.Source, listing.Image,
		listing.Link, listing.MarketplaceID, listing.Rating, reviews, now, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert product: %w", err)
	}
	return product, nil
}

// UpsertMany stores every listing and returns how many were written
func (r *ProductRepository) UpsertMany(ctx context.Context, listings []models.CandidateListing) (int, error) {
	saved := 0
	for _, l := range listings {
		if l.Link == "" || l.Title == "" {
			continue
		}
		if _, err := r.Upsert(ctx, l); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// Search returns catalog rows whose title contains any query word, most recently updated first
func (r *ProductRepository) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 20
	}

	var clauses []string
	var args []any
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) <= 2 {
			continue
		}
		clauses = append(clauses, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(word)+"%")
	}
	if len(clauses) == 0 {
		q := strings.TrimSpace(strings.ToLower(query))
		if q == "" {
			return []models.Product{}, nil
		}
		clauses = append(clauses, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}
	args = append(args, limit)

	sqlQuery := r.db.Rebind(`
		SELECT ` + productColumns + `
		FROM products
		WHERE ` + strings.Join(clauses, " OR ") + `
		ORDER BY updated_at DESC, id DESC
		LIMIT ?`)

	return r.list(ctx, sqlQuery, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GetByIDs returns the catalog rows with the given ids, in id order
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := r.db.Rebind(`
		SELECT ` + productColumns + `
		FROM products
		WHERE id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY id ASC`)

	return r.list(ctx, query, args...)
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}
