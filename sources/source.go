package sources

import (
	"context"

	"valuescout/models"
)

// Source searches one marketplace. Failures are logged and yield an empty slice.
type Source interface {
	Name() string
	Search(ctx context.Context, query string) []models.CandidateListing
}

func limit(listings []models.CandidateListing, max int) []models.CandidateListing {
	if max > 0 && len(listings) > max {
		return listings[:max]
	}
	return listings
}
