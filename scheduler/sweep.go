package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"valuescout/models"
	"valuescout/repository"
	"valuescout/services"

	"golang.org/x/sync/errgroup"
)

// mailGrace bounds the alert mail step when the sweep context is already cancelled
const mailGrace = 30 * time.Second

// ItemStore lists the items a sweep checks
type ItemStore interface {
	ListTracked(ctx context.Context) ([]models.TrackedItem, error)
}

// PriceResolver finds an item's current price
type PriceResolver interface {
	Resolve(ctx context.Context, item models.TrackedItem) models.PriceCheckResult
}

// DropRecorder stores a drop unless the owner was already told about it
type DropRecorder interface {
	RecordDrop(ctx context.Context, in repository.DropInput) (*models.Notification, bool, error)
}

// UserLookup resolves an owner's email address
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AlertSender delivers the batched emails at the end of a sweep
type AlertSender interface {
	Send(ctx context.Context, batch *services.Batch) services.SendReport
}

// Sweep checks every tracked item once and mails the owners whose targets were reached
type Sweep struct {
	items         ItemStore
	resolver      PriceResolver
	notifications DropRecorder
	users         UserLookup
	mail          AlertSender
	workers       int
}

func NewSweep(items ItemStore, resolver PriceResolver, notifications DropRecorder, users UserLookup, mail AlertSender, workers int) *Sweep {
	if workers <= 0 {
		workers = 4
	}
	return &Sweep{
		items:         items,
		resolver:      resolver,
		notifications: notifications,
		users:         users,
		mail:          mail,
		workers:       workers,
	}
}

type sweepCounters struct {
	checked, resolved, belowTarget, alerts atomic.Int64
}

// emailCache remembers owner addresses for the length of one sweep
type emailCache struct {
	mu     sync.Mutex
	emails map[string]string
}

// Run performs one sweep. Item failures are logged and skipped; only a failure
// to list the tracked items or a cancelled context fails the run.
func (s *Sweep) Run(ctx context.Context, trigger string) (models.SweepRun, error) {
	run := models.NewSweepRun(trigger)
	log.Printf("🚀 Starting price sweep %s (%s)", run.ID, trigger)

	items, err := s.items.ListTracked(ctx)
	if err != nil {
		err = fmt.Errorf("failed to list tracked items: %w", err)
		run.Fail(err)
		return *run, err
	}
	if len(items) == 0 {
		log.Println("⚠️ No tracked items found")
		run.Complete()
		return *run, nil
	}

	var (
		counters sweepCounters
		batch    = services.NewBatch()
		emails   = &emailCache{emails: make(map[string]string)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			s.checkItem(gctx, item, &counters, batch, emails)
			return nil
		})
	}
	_ = g.Wait()

	run.Checked = int(counters.checked.Load())
	run.Resolved = int(counters.resolved.Load())
	run.BelowTarget = int(counters.belowTarget.Load())
	run.AlertsCreated = int(counters.alerts.Load())

	if batch.Recipients() > 0 {
		mailCtx := ctx
		if ctx.Err() != nil {
			// recorded alerts would otherwise never be mailed
			var cancel context.CancelFunc
			mailCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), mailGrace)
			defer cancel()
		}
		report := s.mail.Send(mailCtx, batch)
		run.EmailsSent = report.Sent
		run.EmailsFailed = report.Failed
		run.EmailsSkipped = report.Skipped
	}

	if err := ctx.Err(); err != nil {
		run.Fail(err)
		log.Printf("❌ Price sweep %s interrupted after %d/%d items: %v", run.ID, run.Checked, len(items), err)
		return *run, err
	}

	run.Complete()
	log.Printf("✅ Price sweep %s done in %s: %d checked, %d priced, %d at or below target, %d new alerts, %d emails sent, %d failed, %d skipped",
		run.ID, run.Duration().Round(time.Millisecond), run.Checked, run.Resolved, run.BelowTarget,
		run.AlertsCreated, run.EmailsSent, run.EmailsFailed, run.EmailsSkipped)
	return *run, nil
}

func (s *Sweep) checkItem(ctx context.Context, item models.TrackedItem, c *sweepCounters, batch *services.Batch, emails *emailCache) {
	c.checked.Add(1)

	res := s.resolver.Resolve(ctx, item)
	if !res.Found() {
		log.Printf("⏭️ No price for %q (item %d), skipping", item.Title, item.ID)
		return
	}
	c.resolved.Add(1)

	price, target := *res.Price, item.GetTargetPrice()
	if price > target {
		log.Printf("💰 %s: ₹%.2f (target ₹%.2f, %s)", item.Title, price, target, res.Method)
		return
	}
	c.belowTarget.Add(1)
	log.Printf("📉 PRICE DROP: %s ₹%.2f <= target ₹%.2f (%s)", item.Title, price, target, res.Method)

	_, created, err := s.notifications.RecordDrop(ctx, repository.DropInput{
		OwnerID:       item.OwnerID,
		ItemID:        item.ID,
		MarketplaceID: item.MarketplaceID,
		Title:         item.Title,
		Price:         price,
		TargetPrice:   target,
	})
	if err != nil {
		log.Printf("❌ Failed to record drop for item %d: %v", item.ID, err)
		return
	}
	if !created {
		log.Printf("🔕 Already notified %s about %q at this price", item.OwnerID, item.Title)
		return
	}
	c.alerts.Add(1)

	email := s.ownerEmail(ctx, item.OwnerID, emails)
	if email == "" {
		log.Printf("⚠️ No email address for user %s, alert stored without mail", item.OwnerID)
		return
	}

	batch.Add(email, services.DroppedItem{
		Title:       item.Title,
		Image:       item.Image,
		Link:        item.Link,
		Price:       price,
		TargetPrice: target,
	})
}

func (s *Sweep) ownerEmail(ctx context.Context, ownerID string, cache *emailCache) string {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if email, ok := cache.emails[ownerID]; ok {
		return email
	}

	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("❌ Failed to look up user %s: %v", ownerID, err)
			// not cached, a later item may succeed
			return ""
		}
		user = &models.User{}
	}

	cache.emails[ownerID] = user.Email
	return user.Email
}
