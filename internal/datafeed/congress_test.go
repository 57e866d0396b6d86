package datafeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cikle/Alpatrader/internal/cache"
	"github.com/Cikle/Alpatrader/internal/models"
)

func TestParseDollarRange(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"$1,001 - $15,000", 8000.5, false},
		{"$15,001 - $50,000", 32500.5, false},
		{"$50,000", 50000, false},
		{"15000.50", 15000.50, false},
		{"1001 - 15000", 8000.5, false},
		{"", 0, true},
		{"a - b", 0, true},
		{"$1 - $2 - $3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDollarRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestSenateWatcherFetchRecent(t *testing.T) {
	trades := []senateTrade{
		{
			Ticker:          "acme",
			Senator:         "Jane Roe",
			TransactionType: "Purchase",
			TransactionDate: "2024-06-20",
			Amount:          "$15,001 - $50,000",
			AssetType:       "Stock",
			Sector:          "Technology",
		},
		{
			// Non-stock assets are skipped.
			Ticker:          "BOND",
			Senator:         "John Doe",
			TransactionType: "Purchase",
			TransactionDate: "2024-06-20",
			Amount:          "$1,001 - $15,000",
			AssetType:       "Municipal Bond",
		},
		{
			// Sale maps to a SELL direction.
			Ticker:          "XYZ",
			Senator:         "John Doe",
			TransactionType: "Sale (Full)",
			TransactionDate: "2024-06-21",
			Amount:          "$1,001 - $15,000",
			AssetType:       "Stock",
		},
		{
			// Unparseable dates are skipped.
			Ticker:          "BAD",
			Senator:         "John Doe",
			TransactionType: "Purchase",
			TransactionDate: "junk",
			Amount:          "$1,001 - $15,000",
			AssetType:       "Stock",
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades/recent", r.URL.Path)
		json.NewEncoder(w).Encode(trades)
	}))
	defer srv.Close()

	feed := NewSenateWatcherFeed(nil, zerolog.Nop())
	feed.SetBaseURL(srv.URL)

	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := feed.FetchRecent(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ACME", got[0].Ticker)
	assert.Equal(t, models.DirectionBuy, got[0].Direction)
	assert.InDelta(t, 32500.5, got[0].DollarAmount, 0.001)
	assert.Equal(t, "Senator", got[0].Role)

	assert.Equal(t, "XYZ", got[1].Ticker)
	assert.Equal(t, models.DirectionSell, got[1].Direction)
}

func TestSenateWatcherDeduplicatesViaCache(t *testing.T) {
	trades := []senateTrade{{
		Ticker:          "ACME",
		Senator:         "Jane Roe",
		TransactionType: "Purchase",
		TransactionDate: "2024-06-20",
		Amount:          "$1,001 - $15,000",
		AssetType:       "Stock",
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(trades)
	}))
	defer srv.Close()

	feed := NewSenateWatcherFeed(cache.NewMemoryStore(), zerolog.Nop())
	feed.SetBaseURL(srv.URL)

	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	first, err := feed.FetchRecent(context.Background(), since)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := feed.FetchRecent(context.Background(), since)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestSenateWatcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	feed := NewSenateWatcherFeed(nil, zerolog.Nop())
	feed.SetBaseURL(srv.URL)

	_, err := feed.FetchRecent(context.Background(), time.Now().AddDate(0, 0, -7))
	assert.Error(t, err)
}
