package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cikle/Alpatrader/internal/broker"
	"github.com/Cikle/Alpatrader/internal/models"
)

// fakeBroker records submitted orders and serves canned data.
type fakeBroker struct {
	mu        sync.Mutex
	account   models.Account
	positions []models.Position
	quotes    map[string]float64
	orders    map[string][]models.HistoricalOrder
	submitted []models.Order
	onSubmit  func(order models.Order)
	rejectAll bool
	marketErr error
}

var _ broker.Broker = (*fakeBroker)(nil)

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		account: models.Account{Equity: 100_000, BuyingPower: 200_000, Cash: 100_000},
		quotes:  map[string]float64{},
		orders:  map[string][]models.HistoricalOrder{},
	}
}

func (b *fakeBroker) GetAccount(context.Context) (*models.Account, error) {
	acct := b.account
	return &acct, nil
}

func (b *fakeBroker) GetPositions(context.Context) ([]models.Position, error) {
	return append([]models.Position{}, b.positions...), nil
}

func (b *fakeBroker) GetQuote(_ context.Context, ticker string) (float64, error) {
	if price, ok := b.quotes[ticker]; ok {
		return price, nil
	}
	return 50, nil
}

func (b *fakeBroker) IsMarketOpen(context.Context) (bool, error) {
	if b.marketErr != nil {
		return false, b.marketErr
	}
	return true, nil
}

func (b *fakeBroker) SubmitOrder(_ context.Context, order *models.Order) (*models.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, *order)
	if b.onSubmit != nil {
		b.onSubmit(*order)
	}
	if b.rejectAll {
		return &models.OrderResult{Accepted: false, Status: "rejected", Reason: "insufficient buying power"}, nil
	}
	return &models.OrderResult{OrderID: "order-1", Accepted: true, Status: "accepted"}, nil
}

func (b *fakeBroker) GetOrders(_ context.Context, ticker string) ([]models.HistoricalOrder, error) {
	return b.orders[ticker], nil
}

func (b *fakeBroker) GetOptionChain(_ context.Context, ticker string) (*models.OptionChain, error) {
	price, _ := b.GetQuote(context.Background(), ticker)
	return broker.BuildChain(ticker, price, time.Now()), nil
}

func (b *fakeBroker) IsShortable(context.Context, string) (bool, error) {
	return true, nil
}

func (b *fakeBroker) submittedOrders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Order{}, b.submitted...)
}

// fakeFeed serves fixed transactions.
type fakeFeed struct {
	txs []models.RawTransaction
	err error
}

func (f *fakeFeed) FetchRecent(context.Context, time.Time) ([]models.RawTransaction, error) {
	return f.txs, f.err
}

type fakeNewsFeed struct {
	items []models.RawNewsItem
	err   error
}

func (f *fakeNewsFeed) FetchNews(context.Context, []string) ([]models.RawNewsItem, error) {
	return f.items, f.err
}

func newTestOrchestrator(b *fakeBroker, feeds Feeds) *Orchestrator {
	o := NewOrchestrator(testConfig(), b, feeds, nil, zerolog.Nop())
	o.SetClock(testClock())
	return o
}

func TestRunCycleOpensFromSignals(t *testing.T) {
	b := newFakeBroker()
	filed := testClock()().Add(-48 * time.Hour)

	feeds := Feeds{
		Insider: &fakeFeed{txs: []models.RawTransaction{{
			Ticker: "ACME", Actor: "Jane Roe", Role: "CFO",
			Direction: models.DirectionSell, DollarAmount: 500_000, FilingDate: filed,
		}}},
		Congress: &fakeFeed{},
		News:     &fakeNewsFeed{},
	}

	o := newTestOrchestrator(b, feeds)
	o.RunCycle(context.Background())

	orders := b.submittedOrders()
	require.Len(t, orders, 1)
	// Inverse strategy turns the CFO sale into a bot buy.
	assert.Equal(t, "ACME", orders[0].Ticker)
	assert.Equal(t, models.OrderSideBuy, orders[0].Side)
	assert.Equal(t, "signal_insider_only", orders[0].Tag)
	assert.Equal(t, StateIdle, o.State())
}

func TestRunCycleExitsBeforeOpens(t *testing.T) {
	b := newFakeBroker()
	// Held position deep underwater trips the stop loss.
	b.positions = []models.Position{{
		Ticker: "ACME", Quantity: 100, EntryPrice: 100, CurrentPrice: 80,
	}}
	b.quotes["ACME"] = 80

	filed := testClock()().Add(-48 * time.Hour)
	feeds := Feeds{
		// A fresh signal for the same ticker arrives in the same cycle.
		Insider: &fakeFeed{txs: []models.RawTransaction{{
			Ticker: "ACME", Actor: "Jane Roe", Role: "CEO",
			Direction: models.DirectionSell, DollarAmount: 500_000, FilingDate: filed,
		}}},
		Congress: &fakeFeed{},
		News:     &fakeNewsFeed{},
	}

	o := newTestOrchestrator(b, feeds)
	o.RunCycle(context.Background())

	orders := b.submittedOrders()
	require.Len(t, orders, 1)
	// Only the close goes out; the entry for the closing ticker is suppressed.
	assert.Equal(t, models.OrderSideSell, orders[0].Side)
	assert.Equal(t, "exit_stop_loss", orders[0].Tag)
	assert.Equal(t, 100, orders[0].Quantity)
}

func TestRunCycleStateSequence(t *testing.T) {
	b := newFakeBroker()
	// One position to close, one unrelated signal to open.
	b.positions = []models.Position{{
		Ticker: "ACME", Quantity: 100, EntryPrice: 100, CurrentPrice: 80,
	}}
	b.quotes["ACME"] = 80

	filed := testClock()().Add(-48 * time.Hour)
	feeds := Feeds{
		Insider: &fakeFeed{},
		Congress: &fakeFeed{txs: []models.RawTransaction{{
			Ticker: "BBB", Actor: "Test Senator", Role: "Senator",
			Direction: models.DirectionBuy, DollarAmount: 50_000, FilingDate: filed,
		}}},
		News: &fakeNewsFeed{},
	}

	o := newTestOrchestrator(b, feeds)
	states := map[string]CycleState{}
	b.onSubmit = func(order models.Order) { states[order.Tag] = o.State() }
	o.RunCycle(context.Background())

	orders := b.submittedOrders()
	require.Len(t, orders, 2)
	// Closes go out first, while the cycle is still in the closing state;
	// entries only after aggregation and sizing.
	assert.Equal(t, "exit_stop_loss", orders[0].Tag)
	assert.Equal(t, "signal_congress_only", orders[1].Tag)
	assert.Equal(t, StateClosingPositions, states["exit_stop_loss"])
	assert.Equal(t, StateOpeningPositions, states["signal_congress_only"])
}

func TestRunCycleDegradesOnFeedFailure(t *testing.T) {
	b := newFakeBroker()
	filed := testClock()().Add(-48 * time.Hour)

	feeds := Feeds{
		Insider: &fakeFeed{err: assert.AnError},
		Congress: &fakeFeed{txs: []models.RawTransaction{{
			Ticker: "GOOD", Actor: "Test Senator", Role: "Senator",
			Direction: models.DirectionBuy, DollarAmount: 50_000, FilingDate: filed,
		}}},
		News: &fakeNewsFeed{err: assert.AnError},
	}

	o := newTestOrchestrator(b, feeds)
	o.RunCycle(context.Background())

	// The healthy source still trades.
	orders := b.submittedOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, "GOOD", orders[0].Ticker)
}

func TestRunCycleRejectionDoesNotBlockOthers(t *testing.T) {
	b := newFakeBroker()
	b.rejectAll = true
	filed := testClock()().Add(-48 * time.Hour)

	feeds := Feeds{
		Insider: &fakeFeed{},
		Congress: &fakeFeed{txs: []models.RawTransaction{
			{Ticker: "AAA", Actor: "S1", Role: "Senator", Direction: models.DirectionBuy, DollarAmount: 50_000, FilingDate: filed},
			{Ticker: "BBB", Actor: "S2", Role: "Senator", Direction: models.DirectionBuy, DollarAmount: 50_000, FilingDate: filed},
		}},
		News: &fakeNewsFeed{},
	}

	o := newTestOrchestrator(b, feeds)
	o.RunCycle(context.Background())

	// Both orders attempted even though every submission is rejected.
	assert.Len(t, b.submittedOrders(), 2)
}

func TestRunCycleClearsHighWaterMarkOnClose(t *testing.T) {
	b := newFakeBroker()
	b.positions = []models.Position{{
		Ticker: "ACME", Quantity: 100, EntryPrice: 100, CurrentPrice: 125,
	}}

	feeds := Feeds{Insider: &fakeFeed{}, Congress: &fakeFeed{}, News: &fakeNewsFeed{}}
	o := newTestOrchestrator(b, feeds)

	// Seed a mark, then let the take profit close wipe it.
	o.hwm.Observe("ACME", 25)
	o.RunCycle(context.Background())

	orders := b.submittedOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, "exit_take_profit", orders[0].Tag)

	_, ok := o.hwm.Best("ACME")
	assert.False(t, ok)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	b := newFakeBroker()
	feeds := Feeds{Insider: &fakeFeed{}, Congress: &fakeFeed{}, News: &fakeNewsFeed{}}
	o := newTestOrchestrator(b, feeds)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
