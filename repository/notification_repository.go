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

const notificationColumns = `id, owner_id, tracked_item_id, marketplace_id, title, price, target_price, is_read, created_at, resolved_at`

// DropInput describes a price at or below target seen for one tracked item
type DropInput struct {
	OwnerID       string
	ItemID        int64
	MarketplaceID string
	Title         string
	Price         float64
	TargetPrice   float64
}

type NotificationRepository struct {
	db    *database.DB
	locks *keyedMutex
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db, locks: newKeyedMutex()}
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var resolved sql.NullTime
	err := row.Scan(
		&n.ID, &n.OwnerID, &n.TrackedItemID, &n.MarketplaceID, &n.Title,
		&n.Price, &n.TargetPrice, &n.IsRead, &n.CreatedAt, &resolved,
	)
	if err != nil {
		return nil, err
	}
	if resolved.Valid {
		t := resolved.Time
		n.ResolvedAt = &t
	}
	return &n, nil
}

// RecordDrop decides whether a drop is news for the owner and stores it if so.
// Against the latest unread notification for the same item: none or a strictly
// lower price creates a new row, an equal or higher price is a no-op. The bool
// reports whether a row was created.
func (r *NotificationRepository) RecordDrop(ctx context.Context, in DropInput) (*models.Notification, bool, error) {
	unlock := r.locks.lock(fmt.Sprintf("%s/%d", in.OwnerID, in.ItemID))
	defer unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.db.Dialect == database.DialectPostgres {
		// other processes sweeping the same store
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
			fmt.Sprintf("notification:%s/%d", in.OwnerID, in.ItemID)); err != nil {
			return nil, false, fmt.Errorf("failed to lock notification key: %w", err)
		}
	}

	latest, err := scanNotification(tx.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE owner_id = ? AND tracked_item_id = ? AND is_read = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`), in.OwnerID, in.ItemID, false))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, false, fmt.Errorf("failed to get latest notification: %w", err)
	case in.Price >= latest.Price:
		return nil, false, nil
	}

	created, err := scanNotification(tx.QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO notifications (owner_id, tracked_item_id, marketplace_id, title, price, target_price, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+notificationColumns),
		in.OwnerID, in.ItemID, in.MarketplaceID, in.Title, in.Price, in.TargetPrice, false, time.Now().UTC(),
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit notification: %w", err)
	}

	return created, true, nil
}

// ListForOwner returns the owner's notifications, newest first
func (r *NotificationRepository) ListForOwner(ctx context.Context, ownerID string, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE owner_id = ?`
	args := []any{ownerID}
	if unreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}

	return notifications, rows.Err()
}

// MarkRead resolves a notification so the next drop for that item alerts again
func (r *NotificationRepository) MarkRead(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE notifications SET is_read = ?, resolved_at = ?
		WHERE owner_id = ? AND id = ? AND is_read = ?
	`), true, time.Now().UTC(), ownerID, id, false)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnread returns how many unread notifications the owner has
func (r *NotificationRepository) CountUnread(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT COUNT(*) FROM notifications WHERE owner_id = ? AND is_read = ?
	`), ownerID, false).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
