package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"valuescout/models"
	"valuescout/repository"
	"valuescout/scheduler"
	"valuescout/services"
	"valuescout/sources"

	"github.com/gorilla/mux"
)

const maxProductIDs = 100

type Handlers struct {
	wishlist      *repository.WishlistRepository
	notifications *repository.NotificationRepository
	products      *repository.ProductRepository
	comparison    *services.ComparisonOrchestrator
	sweeps        *scheduler.Scheduler
	style         *services.StyleClient
}

func NewHandlers(
	wishlist *repository.WishlistRepository,
	notifications *repository.NotificationRepository,
	products *repository.ProductRepository,
	comparison *services.ComparisonOrchestrator,
	sweeps *scheduler.Scheduler,
	style *services.StyleClient,
) *Handlers {
	return &Handlers{
		wishlist:      wishlist,
		notifications: notifications,
		products:      products,
		comparison:    comparison,
		sweeps:        sweeps,
		style:         style,
	}
}

// RegisterRoutes mounts every endpoint on r
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Search and comparison
	api.HandleFunc("/compare-prices", h.ComparePrices).Methods("GET")
	api.HandleFunc("/external-search", h.ExternalSearch).Methods("GET")
	api.HandleFunc("/search", h.SearchCatalog).Methods("GET")
	api.HandleFunc("/products-by-ids", h.ProductsByIDs).Methods("GET")
	api.HandleFunc("/style-builder/{productId}", h.StyleBuilder).Methods("GET")

	// Wishlist
	api.HandleFunc("/wishlist/add", h.AddToWishlist).Methods("POST")
	api.HandleFunc("/wishlist/remove", h.RemoveFromWishlist).Methods("DELETE")
	api.HandleFunc("/wishlist/price-alert", h.SetPriceAlert).Methods("POST")
	api.HandleFunc("/wishlist/check/{userId}", h.CheckWishlist).Methods("GET")
	api.HandleFunc("/wishlist/{userId}", h.GetWishlist).Methods("GET")

	// Notifications
	api.HandleFunc("/notifications/{userId}", h.GetNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods("POST")

	// Sweep control
	api.HandleFunc("/sweep/run", h.RunSweep).Methods("POST")
	api.HandleFunc("/sweep/status", h.SweepStatus).Methods("GET")
}

// HealthCheck returns a simple health check response
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "valuescout",
	}
	if h.sweeps != nil {
		response["sweep_running"] = h.sweeps.Snapshot().Running
	}
	writeJSON(w, http.StatusOK, response)
}

// ComparePrices returns the cheapest relevant listings across every source
func (h *Handlers) ComparePrices(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	writeJSON(w, http.StatusOK, h.comparison.Compare(r.Context(), query, offset))
}

// ExternalSearch queries the marketplaces and stores what they return
func (h *Handlers) ExternalSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	writeJSON(w, http.StatusOK, h.comparison.ExternalSearch(r.Context(), query))
}

// SearchCatalog searches the local product catalog
func (h *Handlers) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	products, err := h.products.Search(r.Context(), query, limit)
	if err != nil {
		log.Printf("Failed to search catalog: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to search products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"query": query, "count": len(products), "products": products})
}

// ProductsByIDs returns catalog products for a comma separated id list
func (h *Handlers) ProductsByIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		log.Printf("Failed to get products by ids: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// StyleBuilder proxies outfit recommendations and attaches the catalog products they name
func (h *Handlers) StyleBuilder(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	recs, err := h.style.Related(r.Context(), productID)
	if err != nil {
		var serviceErr *services.StyleServiceError
		switch {
		case errors.Is(err, services.ErrStyleServiceDisabled):
			writeError(w, http.StatusServiceUnavailable, "Style service not configured")
		case errors.As(err, &serviceErr):
			writeError(w, serviceErr.Status, serviceErr.Message)
		default:
			log.Printf("Style builder failed for %s: %v", productID, err)
			writeError(w, http.StatusBadGateway, "Style service unavailable")
		}
		return
	}

	var ids []int64
	for _, rec := range recs {
		if id, err := strconv.ParseInt(rec.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	products := []models.Product{}
	if len(ids) > 0 {
		found, err := h.products.GetByIDs(r.Context(), ids)
		if err != nil {
			log.Printf("Failed to load recommended products: %v", err)
		} else if found != nil {
			products = found
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":      productID,
		"recommendations": recs,
		"products":        products,
	})
}

// AddToWishlist saves an item for a user, optionally with a target price
func (h *Handlers) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req models.AddWishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item := &models.TrackedItem{
		OwnerID:       req.UserID,
		Title:         req.Title,
		Link:          req.Link,
		MarketplaceID: req.ASIN,
		Source:        req.Source,
		Image:         req.Image,
		Price:         req.Price,
		TargetPrice:   req.TargetPrice,
	}
	if item.MarketplaceID == "" {
		item.MarketplaceID = sources.ExtractASIN(item.Link)
	}
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.wishlist.Add(r.Context(), item)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Item already in wishlist")
			return
		}
		log.Printf("Failed to add wishlist item: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to add item to wishlist")
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// RemoveFromWishlist deletes an item by id or by link
func (h *Handlers) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	var req models.RemoveWishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || (req.ItemID == 0 && req.Link == "") {
		writeError(w, http.StatusBadRequest, "userId and itemId or link are required")
		return
	}

	if err := h.wishlist.Remove(r.Context(), req.UserID, req.ItemID, req.Link); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		log.Printf("Failed to remove wishlist item: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove item")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed from wishlist"})
}

// GetWishlist returns every item a user saved
func (h *Handlers) GetWishlist(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	items, err := h.wishlist.ListForOwner(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to get wishlist for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get wishlist")
		return
	}

	// Ensure we always return an array, even if empty
	if items == nil {
		items = []models.TrackedItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CheckWishlist reports whether a user already saved a link
func (h *Handlers) CheckWishlist(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	link := r.URL.Query().Get("link")
	if link == "" {
		writeError(w, http.StatusBadRequest, "Query parameter link is required")
		return
	}

	item, err := h.wishlist.FindByLink(r.Context(), userID, link)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("Failed to check wishlist: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to check wishlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"inWishlist": item != nil, "item": item})
}

// SetPriceAlert sets the target price on a saved item
func (h *Handlers) SetPriceAlert(w http.ResponseWriter, r *http.Request) {
	var req models.SetTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.ItemID == 0 {
		writeError(w, http.StatusBadRequest, "userId and itemId are required")
		return
	}
	if req.TargetPrice <= 0 {
		writeError(w, http.StatusBadRequest, "targetPrice must be positive")
		return
	}

	item, err := h.wishlist.SetTarget(r.Context(), req.UserID, req.ItemID, req.TargetPrice)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		log.Printf("Failed to set price alert: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to set price alert")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// GetNotifications lists a user's price drop notifications, newest first
func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	list, err := h.notifications.ListForOwner(r.Context(), userID, unreadOnly)
	if err != nil {
		log.Printf("Failed to get notifications for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get notifications")
		return
	}
	if list == nil {
		list = []models.Notification{}
	}

	unread, err := h.notifications.CountUnread(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to count unread notifications for %s: %v", userID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": list, "unread": unread})
}

// MarkNotificationRead resolves a notification so the next drop alerts again
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		var body struct {
			UserID string `json:"userId"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		userID = body.UserID
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		log.Printf("Failed to mark notification %d read: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// RunSweep starts a manual sweep in the background
func (h *Handlers) RunSweep(w http.ResponseWriter, r *http.Request) {
	if err := h.sweeps.Trigger(); err != nil {
		if errors.Is(err, scheduler.ErrSweepRunning) {
			writeError(w, http.StatusConflict, "A price sweep is already running")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start price sweep")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Price sweep started"})
}

// SweepStatus reports the current, last and next sweep
func (h *Handlers) SweepStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sweeps.Snapshot())
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("query parameter ids is required")
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("ids must be positive integers")
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("query parameter ids is required")
	}
	if len(ids) > maxProductIDs {
		return nil, errors.New("too many ids")
	}
	return ids, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
