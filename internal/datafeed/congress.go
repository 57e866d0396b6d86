package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Cikle/Alpatrader/internal/cache"
	apperrors "github.com/Cikle/Alpatrader/internal/errors"
	"github.com/Cikle/Alpatrader/internal/models"
	"github.com/Cikle/Alpatrader/pkg/utils"
)

const (
	senateWatcherBaseURL = "https://senatestockwatcher.com/api"
	congressCacheTTL     = 12 * time.Hour
)

// SenateWatcherFeed fetches congressional trade disclosures from the Senate
// Stock Watcher API.
type SenateWatcherFeed struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Store
	logger     zerolog.Logger
}

// NewSenateWatcherFeed creates the congress feed. Pass a nil cache to disable
// deduplication.
func NewSenateWatcherFeed(store cache.Store, logger zerolog.Logger) *SenateWatcherFeed {
	return &SenateWatcherFeed{
		baseURL:    senateWatcherBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		cache:      store,
		logger:     logger.With().Str("feed", "congress").Logger(),
	}
}

// SetBaseURL overrides the endpoint. Used by tests.
func (f *SenateWatcherFeed) SetBaseURL(u string) { f.baseURL = u }

type senateTrade struct {
	Ticker          string `json:"ticker"`
	Senator         string `json:"senator"`
	TransactionType string `json:"transaction_type"`
	TransactionDate string `json:"transaction_date"`
	Amount          string `json:"amount"`
	AssetType       string `json:"asset_type"`
	Sector          string `json:"sector"`
}

// FetchRecent returns disclosures filed since the given time.
func (f *SenateWatcherFeed) FetchRecent(ctx context.Context, since time.Time) ([]models.RawTransaction, error) {
	var trades []senateTrade
	fetch := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/trades/recent", nil)
		if err != nil {
			return err
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("senate stock watcher returned status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		trades = trades[:0]
		return json.Unmarshal(body, &trades)
	}

	if err := utils.Retry(ctx, utils.DefaultRetryConfig(), fetch); err != nil {
		return nil, apperrors.NewFetchError("congress", "fetching recent trades", err)
	}

	var out []models.RawTransaction
	for _, trade := range trades {
		tx, ok := f.parseTrade(trade)
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

	f.logger.Info().Int("count", len(out)).Msg("Fetched congressional disclosures")
	return out, nil
}

func (f *SenateWatcherFeed) parseTrade(trade senateTrade) (models.RawTransaction, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(trade.Ticker))
	if ticker == "" || ticker == "--" {
		return models.RawTransaction{}, false
	}
	if trade.AssetType != "" && !strings.EqualFold(trade.AssetType, "stock") {
		return models.RawTransaction{}, false
	}

	filed, err := time.Parse("2006-01-02", strings.TrimSpace(trade.TransactionDate))
	if err != nil {
		f.logger.Debug().Str("ticker", ticker).Str("date", trade.TransactionDate).
			Msg("Skipping trade with unparseable date")
		return models.RawTransaction{}, false
	}

	txType := strings.ToLower(trade.TransactionType)
	var direction models.Direction
	switch {
	case strings.Contains(txType, "purchase") || strings.Contains(txType, "buy"):
		direction = models.DirectionBuy
	case strings.Contains(txType, "sale") || strings.Contains(txType, "sell"):
		direction = models.DirectionSell
	default:
		return models.RawTransaction{}, false
	}

	amount, err := ParseDollarRange(trade.Amount)
	if err != nil {
		f.logger.Debug().Str("ticker", ticker).Str("amount", trade.Amount).
			Msg("Skipping trade with unparseable amount")
		return models.RawTransaction{}, false
	}

	return models.RawTransaction{
		Ticker:       ticker,
		Actor:        strings.TrimSpace(trade.Senator),
		Role:         "Senator",
		Direction:    direction,
		DollarAmount: amount,
		Sector:       strings.TrimSpace(trade.Sector),
		FilingDate:   filed,
	}, true
}

// ParseDollarRange converts a disclosure amount into a single dollar figure.
// Disclosures report ranges like "$1,001 - $15,000"; the midpoint is used.
// Plain figures ("$15000", "15000.50") pass through unchanged.
func ParseDollarRange(s string) (float64, error) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("empty amount")
	}

	parts := strings.Split(clean, "-")
	switch len(parts) {
	case 1:
		d, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0, fmt.Errorf("parsing amount %q: %w", s, err)
		}
		return d.InexactFloat64(), nil
	case 2:
		lo, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0, fmt.Errorf("parsing range low %q: %w", s, err)
		}
		hi, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, fmt.Errorf("parsing range high %q: %w", s, err)
		}
		mid := lo.Add(hi).Div(decimal.NewFromInt(2))
		return mid.InexactFloat64(), nil
	default:
		return 0, fmt.Errorf("unrecognized amount format %q", s)
	}
}

func (f *SenateWatcherFeed) seen(ctx context.Context, tx models.RawTransaction) bool {
	if f.cache == nil {
		return false
	}
	key := fmt.Sprintf("congress:%s:%s:%s", tx.Ticker, tx.Actor, tx.FilingDate.Format("2006-01-02"))
	_, found, err := f.cache.Get(ctx, key)
	if err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		return false
	}
	if found {
		return true
	}
	if err := f.cache.Put(ctx, key, []byte("1"), congressCacheTTL); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return false
}
