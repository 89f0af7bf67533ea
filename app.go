package main

import (
	"context"
	"fmt"
	"log"

	"valuescout/config"
	"valuescout/database"
	"valuescout/matcher"
	"valuescout/repository"
	"valuescout/scheduler"
	"valuescout/scraper"
	"valuescout/services"
	"valuescout/sources"
)

// app holds the wired components shared by every command
type app struct {
	db            *database.DB
	wishlist      *repository.WishlistRepository
	notifications *repository.NotificationRepository
	products      *repository.ProductRepository
	users         *repository.UserRepository
	comparison    *services.ComparisonOrchestrator
	scheduler     *scheduler.Scheduler
	style         *services.StyleClient
	browser       *scraper.BrowserPageFetcher
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	rules, err := matcher.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load match rules: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	a := &app{
		db:            db,
		wishlist:      repository.NewWishlistRepository(db),
		notifications: repository.NewNotificationRepository(db),
		products:      repository.NewProductRepository(db),
		users:         repository.NewUserRepository(db),
		style:         services.NewStyleClient(cfg.StyleServiceURL, cfg.FetchTimeout),
	}

	serp := sources.NewSerpClient(cfg.Search)
	amazon := sources.NewAmazonSource(serp)
	marketplaces := []sources.Source{
		amazon,
		sources.NewFlipkartSource(serp),
		sources.NewShoppingSource(serp),
	}
	a.comparison = services.NewComparisonOrchestrator(marketplaces, a.products, rules, cfg.Search.Timeout)

	// An unset lookup sends every item straight to the page fetch
	var lookup scraper.PriceLookup
	if serp.Enabled() {
		lookup = amazon
	} else {
		log.Println("⚠️ SerpAPI not configured, sweep prices come from product pages only")
	}

	var fetcher scraper.PageFetcher = scraper.NewHTTPPageFetcher(cfg.FetchTimeout)
	if cfg.BrowserFallback {
		a.browser = scraper.NewBrowserPageFetcher()
		fetcher = a.browser
	}
	resolver := scraper.NewPriceResolver(lookup, fetcher, cfg.Search.AmazonDomain, cfg.FetchTimeout)

	mail := services.NewMailBatcher(services.NewMailer(cfg.Mail))
	sweep := scheduler.NewSweep(a.wishlist, resolver, a.notifications, a.users, mail, cfg.Sweep.Workers)

	a.scheduler, err = scheduler.New(cfg.Sweep.Schedule, sweep, cfg.Sweep.RunOnStart)
	if err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

// Close releases the browser and the database
func (a *app) Close() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			log.Printf("Failed to close browser: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
