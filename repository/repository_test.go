package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"valuescout/database"
	"valuescout/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), "sqlite", "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func drop(price float64) DropInput {
	return DropInput{OwnerID: "u1", ItemID: 7, MarketplaceID: "B0TEST", Title: "Widget", Price: price, TargetPrice: 5000}
}

func TestRecordDropDecisionTable(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(openTestDB(t))

	steps := []struct {
		price   float64
		created bool
	}{
		{4800, true},  // no unread yet
		{4800, false}, // same price
		{4900, false}, // higher
		{4500, true},  // strictly lower
		{4500, false},
	}
	for i, s := range steps {
		n, created, err := repo.RecordDrop(ctx, drop(s.price))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if created != s.created {
			t.Fatalf("step %d (price %.0f): created = %v, want %v", i, s.price, created, s.created)
		}
		if created && n.Price != s.price {
			t.Errorf("step %d: stored price %.0f", i, n.Price)
		}
	}

	all, err := repo.ListForOwner(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(all))
	}
	if all[0].Price != 4500 || all[1].Price != 4800 {
		t.Errorf("unexpected order: %+v", all)
	}
}

func TestRecordDropAfterMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(openTestDB(t))

	n, _, err := repo.RecordDrop(ctx, drop(4800))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkRead(ctx, "u1", n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := repo.MarkRead(ctx, "u1", n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second mark read: got %v, want ErrNotFound", err)
	}

	_, created, err := repo.RecordDrop(ctx, drop(4800))
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("expected a new notification once the previous one was read")
	}

	count, err := repo.CountUnread(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("unread = %d, want 1", count)
	}

	all, _ := repo.ListForOwner(ctx, "u1", false)
	var resolved int
	for _, n := range all {
		if n.ResolvedAt != nil {
			resolved++
		}
	}
	if resolved != 1 {
		t.Errorf("resolved = %d, want 1", resolved)
	}
}

func TestRecordDropConcurrentSamePrice(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(openTestDB(t))

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repo.RecordDrop(ctx, drop(4700))
			if err != nil {
				t.Error(err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("created %d notifications, want 1", createdCount)
	}
}

func TestWishlistAddAndDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewWishlistRepository(openTestDB(t))

	item := &models.TrackedItem{OwnerID: "u1", Title: "Air Max 90", Link: "https://www.amazon.in/dp/B0AIRMAX90", MarketplaceID: "B0AIRMAX90", Source: "Amazon", Price: models.Float(7999)}
	saved, err := repo.Add(ctx, item)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if saved.ID == 0 || saved.IsTracked() {
		t.Errorf("unexpected saved item: %+v", saved)
	}

	if _, err := repo.Add(ctx, item); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second add: got %v, want ErrDuplicate", err)
	}

	other := *item
	other.OwnerID = "u2"
	if _, err := repo.Add(ctx, &other); err != nil {
		t.Errorf("another owner should be able to save the same link: %v", err)
	}
}

func TestWishlistSetTargetAndListTracked(t *testing.T) {
	ctx := context.Background()
	repo := NewWishlistRepository(openTestDB(t))

	a, _ := repo.Add(ctx, &models.TrackedItem{OwnerID: "u1", Title: "A", Link: "https://example.com/a"})
	if _, err := repo.Add(ctx, &models.TrackedItem{OwnerID: "u1", Title: "B", Link: "https://example.com/b"}); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.SetTarget(ctx, "u1", a.ID, 0); err == nil {
		t.Error("expected error for non-positive target")
	}
	if _, err := repo.SetTarget(ctx, "u2", a.ID, 100); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner: got %v, want ErrNotFound", err)
	}
	updated, err := repo.SetTarget(ctx, "u1", a.ID, 100)
	if err != nil {
		t.Fatal(err)
	}
	if updated.GetTargetPrice() != 100 {
		t.Errorf("target = %v", updated.GetTargetPrice())
	}

	tracked, err := repo.ListTracked(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 1 || tracked[0].ID != a.ID {
		t.Errorf("tracked = %+v", tracked)
	}

	if err := repo.Remove(ctx, "u1", 0, "https://example.com/b"); err != nil {
		t.Errorf("remove by link: %v", err)
	}
	if err := repo.Remove(ctx, "u1", 0, "https://example.com/b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove twice: got %v", err)
	}
	items, _ := repo.ListForOwner(ctx, "u1")
	if len(items) != 1 {
		t.Errorf("expected 1 remaining item, got %d", len(items))
	}
}

func TestProductUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(openTestDB(t))

	first, err := repo.Upsert(ctx, models.CandidateListing{Source: "Amazon", Title: "Nike Air Max 270", Link: "https://example.com/p1", Price: models.Float(9999)})
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.Upsert(ctx, models.CandidateListing{Source: "Amazon", Title: "Nike Air Max 270 React", Link: "https://example.com/p1", Price: models.Float(8999)})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("upsert by link created a second row: %d vs %d", first.ID, second.ID)
	}
	if second.Price == nil || *second.Price != 8999 {
		t.Errorf("price not refreshed: %+v", second.Price)
	}

	if _, err := repo.Upsert(ctx, models.CandidateListing{Source: "Flipkart", Title: "Steel Water Bottle", Link: "https://example.com/p2"}); err != nil {
		t.Fatal(err)
	}

	found, err := repo.Search(ctx, "air max", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Link != "https://example.com/p1" {
		t.Errorf("search results: %+v", found)
	}

	byID, err := repo.GetByIDs(ctx, []int64{first.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(byID) != 1 || byID[0].Title != "Nike Air Max 270 React" {
		t.Errorf("by ids: %+v", byID)
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	if err := repo.Create(ctx, models.User{ID: "u1", Email: "a@example.com", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, models.User{ID: "u2", Email: "a@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email: got %v", err)
	}
	u, err := repo.GetByID(ctx, "u1")
	if err != nil || u.Email != "a@example.com" {
		t.Errorf("get: %+v %v", u, err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user: got %v", err)
	}
}

func TestProductSearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(openTestDB(t))

	for i, title := range []string{"50% Off Running Shoe", "5000 Mile Shoe", "Air_Max Slide", "AirXMax Slide"} {
		link := fmt.Sprintf("https://example.com/w%d", i)
		if _, err := repo.Upsert(ctx, models.CandidateListing{Source: "Amazon", Title: title, Link: link}); err != nil {
			t.Fatal(err)
		}
	}

	cases := map[string]string{
		"50%":     "50% Off Running Shoe",
		"air_max": "Air_Max Slide",
	}
	for query, want := range cases {
		found, err := repo.Search(ctx, query, 10)
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		if len(found) != 1 || found[0].Title != want {
			t.Errorf("search %q = %+v, want only %q", query, found, want)
		}
	}
}
