// Package datafeed fetches raw trading signals from external sources: insider
// filings, congressional trade disclosures and news sentiment.
package datafeed

import (
	"context"
	"time"

	"github.com/Cikle/Alpatrader/internal/models"
)

// InsiderFeed fetches corporate insider filings.
type InsiderFeed interface {
	FetchRecent(ctx context.Context, since time.Time) ([]models.RawTransaction, error)
}

// CongressFeed fetches congressional trade disclosures.
type CongressFeed interface {
	FetchRecent(ctx context.Context, since time.Time) ([]models.RawTransaction, error)
}

// NewsFeed fetches sentiment for a set of tickers.
type NewsFeed interface {
	FetchNews(ctx context.Context, tickers []string) ([]models.RawNewsItem, error)
}
