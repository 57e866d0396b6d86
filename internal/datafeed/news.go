package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/cache"
	apperrors "github.com/Cikle/Alpatrader/internal/errors"
	"github.com/Cikle/Alpatrader/internal/models"
)

const (
	finnhubBaseURL = "https://finnhub.io/api/v1"
	newsCacheTTL   = 1 * time.Hour
)

// FinnhubNewsFeed fetches per-ticker news sentiment from Finnhub.
type FinnhubNewsFeed struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      cache.Store
	logger     zerolog.Logger
	now        func() time.Time
}

// NewFinnhubNewsFeed creates the news feed. Sentiment responses are cached per
// ticker for an hour since Finnhub rate-limits aggressively.
func NewFinnhubNewsFeed(apiKey string, store cache.Store, logger zerolog.Logger) *FinnhubNewsFeed {
	return &FinnhubNewsFeed{
		baseURL:    finnhubBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      store,
		logger:     logger.With().Str("feed", "news").Logger(),
		now:        time.Now,
	}
}

// SetBaseURL overrides the endpoint. Used by tests.
func (f *FinnhubNewsFeed) SetBaseURL(u string) { f.baseURL = u }

type finnhubSentiment struct {
	Symbol    string `json:"symbol"`
	Sentiment struct {
		BullishPercent float64 `json:"bullishPercent"`
		BearishPercent float64 `json:"bearishPercent"`
	} `json:"sentiment"`
	CompanyNewsScore float64 `json:"companyNewsScore"`
	Buzz             struct {
		ArticlesInLastWeek int     `json:"articlesInLastWeek"`
		Buzz               float64 `json:"buzz"`
	} `json:"buzz"`
}

// FetchNews returns one sentiment item per ticker with available coverage.
// Tickers with errors are skipped so one bad symbol cannot starve the rest.
func (f *FinnhubNewsFeed) FetchNews(ctx context.Context, tickers []string) ([]models.RawNewsItem, error) {
	if f.apiKey == "" {
		return nil, apperrors.NewFetchError("news", "finnhub api key not configured", apperrors.ErrCredentialsMissing)
	}

	var out []models.RawNewsItem
	for _, ticker := range tickers {
		item, err := f.fetchTicker(ctx, ticker)
		if err != nil {
			f.logger.Warn().Err(err).Str("ticker", ticker).Msg("Skipping ticker news")
			continue
		}
		if item != nil {
			out = append(out, *item)
		}
	}

	f.logger.Info().Int("count", len(out)).Int("requested", len(tickers)).
		Msg("Fetched news sentiment")
	return out, nil
}

func (f *FinnhubNewsFeed) fetchTicker(ctx context.Context, ticker string) (*models.RawNewsItem, error) {
	if cached := f.cachedItem(ctx, ticker); cached != nil {
		return cached, nil
	}

	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("token", f.apiKey)
	u := f.baseURL + "/news-sentiment?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError("news", "fetching sentiment", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetchError("news",
			fmt.Sprintf("finnhub returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw finnhubSentiment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding sentiment for %s: %w", ticker, err)
	}

	item := f.toItem(ticker, raw)
	if item == nil {
		return nil, nil
	}
	f.storeItem(ctx, ticker, item)
	return item, nil
}

// toItem converts Finnhub's bullish/bearish split into a signed sentiment
// score. Thin coverage yields no item rather than a low-confidence guess.
func (f *FinnhubNewsFeed) toItem(ticker string, raw finnhubSentiment) *models.RawNewsItem {
	if raw.Buzz.ArticlesInLastWeek == 0 {
		return nil
	}

	sentiment := raw.Sentiment.BullishPercent - raw.Sentiment.BearishPercent
	confidence := raw.CompanyNewsScore
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &models.RawNewsItem{
		Ticker:      ticker,
		Headline:    fmt.Sprintf("%d articles this week", raw.Buzz.ArticlesInLastWeek),
		Sentiment:   sentiment,
		Confidence:  confidence,
		PublishedAt: f.now(),
	}
}

func (f *FinnhubNewsFeed) cachedItem(ctx context.Context, ticker string) *models.RawNewsItem {
	if f.cache == nil {
		return nil
	}
	key := newsCacheKey(ticker, f.now())
	data, found, err := f.cache.Get(ctx, key)
	if err != nil || !found {
		return nil
	}
	var item models.RawNewsItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil
	}
	return &item
}

func (f *FinnhubNewsFeed) storeItem(ctx context.Context, ticker string, item *models.RawNewsItem) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	key := newsCacheKey(ticker, f.now())
	if err := f.cache.Put(ctx, key, data, newsCacheTTL); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func newsCacheKey(ticker string, now time.Time) string {
	return fmt.Sprintf("news:%s:%s", ticker, now.Format("2006-01-02"))
}
