package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"valuescout/database"
	"valuescout/matcher"
	"valuescout/models"
	"valuescout/repository"
	"valuescout/scheduler"
	"valuescout/services"
	"valuescout/sources"

	"github.com/gorilla/mux"
)

type stubSource struct {
	name     string
	listings []models.CandidateListing
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, query string) []models.CandidateListing {
	return s.listings
}

type gateRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *gateRunner) Run(ctx context.Context, trigger string) (models.SweepRun, error) {
	r.started <- struct{}{}
	<-r.release
	run := models.NewSweepRun(trigger)
	run.Complete()
	return *run, nil
}

type testEnv struct {
	router        *mux.Router
	db            *database.DB
	notifications *repository.NotificationRepository
	products      *repository.ProductRepository
	comparison    *services.ComparisonOrchestrator
	runner        *gateRunner
	sweeps        *scheduler.Scheduler
}

func newTestEnv(t *testing.T, styleURL string) *testEnv {
	t.Helper()

	db, err := database.Open(context.Background(), "sqlite", "file:"+filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	products := repository.NewProductRepository(db)
	notifications := repository.NewNotificationRepository(db)
	amazon := &stubSource{name: "Amazon", listings: []models.CandidateListing{
		{Source: "Amazon", Title: "Nike Air Max 90 Running Shoes", Price: models.Float(4999), Link: "https://www.amazon.in/dp/B000000001"},
		{Source: "Amazon", Title: "Nike Air Max Shoe Cleaner Kit", Price: models.Float(299), Link: "https://www.amazon.in/dp/B000000002"},
	}}
	comparison := services.NewComparisonOrchestrator([]sources.Source{amazon}, products, matcher.DefaultRules(), time.Second)

	runner := &gateRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	sweeps, err := scheduler.New("0 0 0,12 * * *", runner, false)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	h := NewHandlers(
		repository.NewWishlistRepository(db),
		notifications,
		products,
		comparison,
		sweeps,
		services.NewStyleClient(styleURL, time.Second),
	)
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	env := &testEnv{
		router:        r,
		db:            db,
		notifications: notifications,
		products:      products,
		comparison:    comparison,
		runner:        runner,
		sweeps:        sweeps,
	}
	t.Cleanup(func() {
		comparison.Wait()
		db.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestComparePricesValidation(t *testing.T) {
	env := newTestEnv(t, "")

	if rec := env.do(t, http.MethodGet, "/api/compare-prices", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing q: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/compare-prices?q=nike&offset=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative offset: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/compare-prices?q=nike&offset=two", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric offset: got %d", rec.Code)
	}
}

func TestComparePricesReturnsRelevantListing(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/compare-prices?q=nike+air+max", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: %d %s", rec.Code, rec.Body.String())
	}
	var result services.ComparisonResult
	decode(t, rec, &result)

	if len(result.Top) != 1 {
		t.Fatalf("top = %+v, want only the shoe", result.Top)
	}
	if result.Top[0].Title != "Nike Air Max 90 Running Shoes" {
		t.Errorf("top[0] = %q", result.Top[0].Title)
	}
}

func TestExternalSearchStoresListings(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/external-search?q=nike+air+max", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("external search: %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/search?q=nike+air", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search: %d", rec.Code)
	}
	var body struct {
		Count    int              `json:"count"`
		Products []models.Product `json:"products"`
	}
	decode(t, rec, &body)
	if body.Count != 2 {
		t.Errorf("catalog count = %d, want 2", body.Count)
	}
}

func TestWishlistLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	add := `{"userId":"u1","title":"Nike Air Max 90","price":5200,"source":"Amazon","link":"https://www.amazon.in/dp/B0TESTASIN/ref=x","targetPrice":5000}`
	rec := env.do(t, http.MethodPost, "/api/wishlist/add", add)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	var item models.TrackedItem
	decode(t, rec, &item)
	if item.MarketplaceID != "B0TESTASIN" {
		t.Errorf("asin = %q, want it taken from the link", item.MarketplaceID)
	}

	if rec := env.do(t, http.MethodPost, "/api/wishlist/add", add); rec.Code != http.StatusConflict {
		t.Errorf("duplicate add: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/wishlist/add", `{"userId":"u1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid add: got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/wishlist/u1", "")
	var items []models.TrackedItem
	decode(t, rec, &items)
	if len(items) != 1 {
		t.Fatalf("wishlist = %d items", len(items))
	}

	rec = env.do(t, http.MethodGet, "/api/wishlist/check/u1?link=https://www.amazon.in/dp/B0TESTASIN/ref=x", "")
	var check struct {
		InWishlist bool `json:"inWishlist"`
	}
	decode(t, rec, &check)
	if !check.InWishlist {
		t.Error("check: expected link to be in wishlist")
	}

	rec = env.do(t, http.MethodPost, "/api/wishlist/price-alert", `{"userId":"u1","itemId":`+itoa(item.ID)+`,"targetPrice":4500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("price alert: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &item)
	if item.GetTargetPrice() != 4500 {
		t.Errorf("target = %v", item.GetTargetPrice())
	}
	if rec := env.do(t, http.MethodPost, "/api/wishlist/price-alert", `{"userId":"u2","itemId":`+itoa(item.ID)+`,"targetPrice":4500}`); rec.Code != http.StatusNotFound {
		t.Errorf("price alert for other owner: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/wishlist/price-alert", `{"userId":"u1","itemId":`+itoa(item.ID)+`,"targetPrice":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("zero target: got %d", rec.Code)
	}

	remove := `{"userId":"u1","itemId":` + itoa(item.ID) + `}`
	if rec := env.do(t, http.MethodDelete, "/api/wishlist/remove", remove); rec.Code != http.StatusOK {
		t.Errorf("remove: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/wishlist/remove", remove); rec.Code != http.StatusNotFound {
		t.Errorf("second remove: got %d", rec.Code)
	}
}

func TestNotificationsReadFlow(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	n, created, err := env.notifications.RecordDrop(ctx, repository.DropInput{
		OwnerID: "u1", ItemID: 1, MarketplaceID: "B0TEST", Title: "Widget", Price: 4800, TargetPrice: 5000,
	})
	if err != nil || !created {
		t.Fatalf("record drop: %v %v", created, err)
	}

	rec := env.do(t, http.MethodGet, "/api/notifications/u1", "")
	var list struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	decode(t, rec, &list)
	if len(list.Notifications) != 1 || list.Unread != 1 {
		t.Fatalf("notifications = %+v", list)
	}

	path := "/api/notifications/" + itoa(n.ID) + "/read"
	if rec := env.do(t, http.MethodPost, path, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("read without user: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, path, `{"userId":"u1"}`); rec.Code != http.StatusOK {
		t.Errorf("read: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, path+"?userId=u1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("read twice: got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/notifications/u1?unread=true", "")
	decode(t, rec, &list)
	if len(list.Notifications) != 0 || list.Unread != 0 {
		t.Errorf("after read = %+v", list)
	}
}

func TestProductsByIDs(t *testing.T) {
	env := newTestEnv(t, "")
	p, err := env.products.Upsert(context.Background(), models.CandidateListing{
		Source: "Amazon", Title: "Nike Air Max 90", Price: models.Float(4999), Link: "https://www.amazon.in/dp/B000000001",
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec := env.do(t, http.MethodGet, "/api/products-by-ids?ids=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad ids: got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/products-by-ids", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing ids: got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/products-by-ids?ids="+itoa(p.ID)+",999", "")
	var products []models.Product
	decode(t, rec, &products)
	if len(products) != 1 || products[0].ID != p.ID {
		t.Errorf("products = %+v", products)
	}
}

func TestStyleBuilder(t *testing.T) {
	style := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/style-builder/missing" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"product not found"}`))
			return
		}
		w.Write([]byte(`{"recommendations":[{"id":"1","score":0.9},{"id":"sku-x","score":0.5}]}`))
	}))
	defer style.Close()

	env := newTestEnv(t, style.URL)
	if _, err := env.products.Upsert(context.Background(), models.CandidateListing{
		Source: "Amazon", Title: "White Sneakers", Price: models.Float(1999), Link: "https://www.amazon.in/dp/B000000003",
	}); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodGet, "/api/style-builder/42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("style builder: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Recommendations []services.StyleRecommendation `json:"recommendations"`
		Products        []models.Product               `json:"products"`
	}
	decode(t, rec, &body)
	if len(body.Recommendations) != 2 || len(body.Products) != 1 {
		t.Errorf("style body = %+v", body)
	}

	if rec := env.do(t, http.MethodGet, "/api/style-builder/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("upstream 404: got %d", rec.Code)
	}
}

func TestStyleBuilderDisabled(t *testing.T) {
	env := newTestEnv(t, "")
	if rec := env.do(t, http.MethodGet, "/api/style-builder/42", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled style service: got %d", rec.Code)
	}
}

func TestSweepRunRefusesOverlap(t *testing.T) {
	env := newTestEnv(t, "")

	if rec := env.do(t, http.MethodPost, "/api/sweep/run", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("first run: got %d", rec.Code)
	}
	<-env.runner.started

	if rec := env.do(t, http.MethodPost, "/api/sweep/run", ""); rec.Code != http.StatusConflict {
		t.Errorf("overlapping run: got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/sweep/status", "")
	var state scheduler.State
	decode(t, rec, &state)
	if !state.Running || state.LastSkipped == nil {
		t.Errorf("status while running = %+v", state)
	}

	close(env.runner.release)
	env.sweeps.Stop()

	rec = env.do(t, http.MethodGet, "/api/sweep/status", "")
	decode(t, rec, &state)
	if state.Running || state.Last == nil || state.Last.Status != models.SweepStatusCompleted {
		t.Errorf("status after run = %+v", state)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
