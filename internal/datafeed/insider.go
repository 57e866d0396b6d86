package datafeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/cache"
	apperrors "github.com/Cikle/Alpatrader/internal/errors"
	"github.com/Cikle/Alpatrader/internal/models"
	"github.com/Cikle/Alpatrader/pkg/utils"
)

const (
	openInsiderBaseURL = "http://openinsider.com/screener"
	insiderCacheTTL    = 6 * time.Hour
)

// OpenInsiderFeed scrapes CEO/CFO filings from OpenInsider's CSV export.
type OpenInsiderFeed struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Store
	logger     zerolog.Logger
}

// NewOpenInsiderFeed creates the insider feed. The cache deduplicates rows
// already seen in previous cycles; pass nil to disable caching.
func NewOpenInsiderFeed(store cache.Store, logger zerolog.Logger) *OpenInsiderFeed {
	return &OpenInsiderFeed{
		baseURL:    openInsiderBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		cache:      store,
		logger:     logger.With().Str("feed", "insider").Logger(),
	}
}

// SetBaseURL overrides the endpoint. Used by tests.
func (f *OpenInsiderFeed) SetBaseURL(u string) { f.baseURL = u }

type openInsiderRow struct {
	FilingDate      string `csv:"Filing Date"`
	Ticker          string `csv:"Ticker"`
	InsiderName     string `csv:"Insider Name"`
	Title           string `csv:"Title"`
	TransactionType string `csv:"Trade Type"`
	Value           string `csv:"Value"`
	Industry        string `csv:"Industry"`
}

// FetchRecent returns insider purchases and sales filed since the given time.
func (f *OpenInsiderFeed) FetchRecent(ctx context.Context, since time.Time) ([]models.RawTransaction, error) {
	q := url.Values{}
	q.Set("fd", "730")
	q.Set("td", "0")
	q.Set("cnt", "200")
	q.Set("action", "csv")

	var rows []openInsiderRow
	fetch := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("openinsider returned status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		rows = rows[:0]
		return gocsv.UnmarshalBytes(body, &rows)
	}

	if err := utils.Retry(ctx, utils.DefaultRetryConfig(), fetch); err != nil {
		return nil, apperrors.NewFetchError("insider", "fetching openinsider screener", err)
	}

	var out []models.RawTransaction
	for _, row := range rows {
		tx, ok := f.parseRow(row)
		if !ok {
			continue
		}
		if tx.FilingDate.Before(since) {
			continue
		}
		if f.seen(ctx, tx) {
			continue
		}
		out = append(out, tx)
	}

	f.logger.Info().Int("count", len(out)).Msg("Fetched insider filings")
	return out, nil
}

func (f *OpenInsiderFeed) parseRow(row openInsiderRow) (models.RawTransaction, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(row.Ticker))
	if ticker == "" {
		return models.RawTransaction{}, false
	}

	filed, err := time.Parse("2006-01-02 15:04:05", strings.TrimSpace(row.FilingDate))
	if err != nil {
		filed, err = time.Parse("2006-01-02", strings.TrimSpace(row.FilingDate))
		if err != nil {
			f.logger.Debug().Str("ticker", ticker).Str("filing_date", row.FilingDate).
				Msg("Skipping row with unparseable filing date")
			return models.RawTransaction{}, false
		}
	}

	var direction models.Direction
	switch {
	case strings.HasPrefix(row.TransactionType, "P"): // P - Purchase
		direction = models.DirectionBuy
	case strings.HasPrefix(row.TransactionType, "S"): // S - Sale
		direction = models.DirectionSell
	default:
		return models.RawTransaction{}, false
	}

	value := strings.TrimSpace(row.Value)
	value = strings.NewReplacer("$", "", ",", "", "+", "", "(", "-", ")", "").Replace(value)
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return models.RawTransaction{}, false
	}
	if amount < 0 {
		amount = -amount
	}

	return models.RawTransaction{
		Ticker:       ticker,
		Actor:        strings.TrimSpace(row.InsiderName),
		Role:         strings.TrimSpace(row.Title),
		Direction:    direction,
		DollarAmount: amount,
		Sector:       strings.TrimSpace(row.Industry),
		FilingDate:   filed,
	}, true
}

// seen marks a filing in the cache and reports whether it was already there.
func (f *OpenInsiderFeed) seen(ctx context.Context, tx models.RawTransaction) bool {
	if f.cache == nil {
		return false
	}
	key := fmt.Sprintf("insider:%s:%s:%s", tx.Ticker, tx.Actor, tx.FilingDate.Format("2006-01-02"))
	_, found, err := f.cache.Get(ctx, key)
	if err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		return false
	}
	if found {
		return true
	}
	if err := f.cache.Put(ctx, key, []byte("1"), insiderCacheTTL); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return false
}
