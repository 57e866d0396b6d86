// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"

	"github.com/Cikle/Alpatrader/internal/models"
)

// Broker defines the interface for broker operations. All calls take a
// context; implementations must respect cancellation.
type Broker interface {
	// Account
	GetAccount(ctx context.Context) (*models.Account, error)

	// Positions
	GetPositions(ctx context.Context) ([]models.Position, error)

	// Market data
	GetQuote(ctx context.Context, ticker string) (float64, error)
	IsMarketOpen(ctx context.Context) (bool, error)

	// Orders
	SubmitOrder(ctx context.Context, order *models.Order) (*models.OrderResult, error)
	GetOrders(ctx context.Context, ticker string) ([]models.HistoricalOrder, error)

	// Options
	GetOptionChain(ctx context.Context, ticker string) (*models.OptionChain, error)

	// Shortability
	IsShortable(ctx context.Context, ticker string) (bool, error)
}
