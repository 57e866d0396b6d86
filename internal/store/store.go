// Package store provides data persistence implementations.
package store

import (
	"context"

	"github.com/Cikle/Alpatrader/internal/models"
)

// AuditStore records what the bot saw and did each cycle, and persists the
// trailing-stop high-water marks across restarts.
type AuditStore interface {
	SaveSignals(ctx context.Context, cycle int64, signals []models.EffectiveSignal) error
	SaveDecision(ctx context.Context, cycle int64, decision models.Decision) error
	SaveOrder(ctx context.Context, cycle int64, order models.Order, result models.OrderResult) error
	SaveExit(ctx context.Context, cycle int64, trigger models.ExitTrigger, result models.OrderResult) error

	LoadHighWaterMarks(ctx context.Context) (map[string]float64, error)
	SaveHighWaterMark(ctx context.Context, ticker string, plPercent float64) error
	DeleteHighWaterMark(ctx context.Context, ticker string) error

	Close() error
}
