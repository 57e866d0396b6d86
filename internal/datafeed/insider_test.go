package datafeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cikle/Alpatrader/internal/models"
)

const insiderCSV = `Filing Date,Ticker,Insider Name,Title,Trade Type,Value,Industry
2024-06-20 16:05:00,ACME,Jane Roe,CFO,P - Purchase,"$1,250,000",Technology
2024-06-21 09:30:00,XYZ,John Doe,CEO,S - Sale,"-$2,400,000",Healthcare
2024-06-21 10:00:00,AWRD,Jack Smith,Dir,A - Award,"$100,000",Technology
junk,BAD,Jane Roe,CFO,P - Purchase,"$500,000",Technology
`

func TestOpenInsiderFetchRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csv", r.URL.Query().Get("action"))
		w.Write([]byte(insiderCSV))
	}))
	defer srv.Close()

	feed := NewOpenInsiderFeed(nil, zerolog.Nop())
	feed.SetBaseURL(srv.URL)

	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := feed.FetchRecent(context.Background(), since)
	require.NoError(t, err)
	// The award row and the unparseable row are dropped.
	require.Len(t, got, 2)

	assert.Equal(t, "ACME", got[0].Ticker)
	assert.Equal(t, "CFO", got[0].Role)
	assert.Equal(t, models.DirectionBuy, got[0].Direction)
	assert.InDelta(t, 1_250_000, got[0].DollarAmount, 0.001)
	assert.Equal(t, "Technology", got[0].Sector)

	assert.Equal(t, "XYZ", got[1].Ticker)
	assert.Equal(t, models.DirectionSell, got[1].Direction)
	// Sale values come through negative, stored as magnitude.
	assert.InDelta(t, 2_400_000, got[1].DollarAmount, 0.001)
}

func TestOpenInsiderSinceFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(insiderCSV))
	}))
	defer srv.Close()

	feed := NewOpenInsiderFeed(nil, zerolog.Nop())
	feed.SetBaseURL(srv.URL)

	// Only the June 21 filing is new enough.
	since := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	got, err := feed.FetchRecent(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "XYZ", got[0].Ticker)
}
