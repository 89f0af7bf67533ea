package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"valuescout/database"
	"valuescout/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns the user record used to address alert emails
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT id, email, name FROM users WHERE id = ?`), id).
		Scan(&user.ID, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Create inserts a user. Accounts are owned by the auth service; this exists for local setups.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	if user.ID == "" || user.Email == "" {
		return fmt.Errorf("user id and email are required")
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)
	`), user.ID, user.Email, user.Name, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
