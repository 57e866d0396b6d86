package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/models"
)

// HighWaterMarks tracks the best unrealized P&L percent seen per ticker across
// cycles. The mark only increases until the position is closed. Owned by the
// orchestrator and passed into the exit evaluator each cycle.
type HighWaterMarks struct {
	mu    sync.Mutex
	marks map[string]float64
}

// NewHighWaterMarks creates an empty high-water-mark table.
func NewHighWaterMarks() *HighWaterMarks {
	return &HighWaterMarks{marks: make(map[string]float64)}
}

// Observe records the current P&L percent for a ticker and returns the
// resulting high-water mark. The mark never decreases.
func (h *HighWaterMarks) Observe(ticker string, plPercent float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	best, ok := h.marks[ticker]
	if !ok || plPercent > best {
		h.marks[ticker] = plPercent
		return plPercent
	}
	return best
}

// Best returns the recorded high-water mark for a ticker.
func (h *HighWaterMarks) Best(ticker string) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	best, ok := h.marks[ticker]
	return best, ok
}

// Clear removes the mark for a ticker once its position is closed.
func (h *HighWaterMarks) Clear(ticker string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.marks, ticker)
}

// Snapshot returns a copy of all marks, for persistence.
func (h *HighWaterMarks) Snapshot() map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]float64, len(h.marks))
	for k, v := range h.marks {
		out[k] = v
	}
	return out
}

// Restore replaces the table contents, for startup recovery.
func (h *HighWaterMarks) Restore(marks map[string]float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marks = make(map[string]float64, len(marks))
	for k, v := range marks {
		h.marks[k] = v
	}
}

// OrderHistory provides past orders for entry-time estimation.
type OrderHistory interface {
	GetOrders(ctx context.Context, ticker string) ([]models.HistoricalOrder, error)
}

// ExitEvaluator scans held positions against the configured exit rules and
// emits close triggers. It runs once per cycle, independent of new-signal
// processing.
type ExitEvaluator struct {
	cfg    config.ExitConfig
	hwm    *HighWaterMarks
	orders OrderHistory
	logger zerolog.Logger
	now    func() time.Time
}

// NewExitEvaluator creates a new exit evaluator. The high-water-mark table is
// owned by the caller.
func NewExitEvaluator(cfg config.ExitConfig, hwm *HighWaterMarks, orders OrderHistory, logger zerolog.Logger) *ExitEvaluator {
	return &ExitEvaluator{
		cfg:    cfg,
		hwm:    hwm,
		orders: orders,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the evaluator's clock. Used by tests.
func (e *ExitEvaluator) SetClock(now func() time.Time) { e.now = now }

// Evaluate returns one trigger per position matching at least one enabled exit
// rule. Rules are checked in fixed order (stop loss, take profit, time based,
// trailing stop) and the first match determines the reported reason. When
// exits are restricted to market hours and the market is closed, evaluation is
// skipped entirely.
func (e *ExitEvaluator) Evaluate(ctx context.Context, positions []models.Position, marketOpen bool) []models.ExitTrigger {
	if e.cfg.ExitDuringMarketHoursOnly && !marketOpen {
		return nil
	}

	var triggers []models.ExitTrigger
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		if trigger, ok := e.evaluatePosition(ctx, pos); ok {
			triggers = append(triggers, trigger)
		}
	}
	return triggers
}

// percentTolerance absorbs float round-off in computed P&L percentages so a
// position sitting exactly on a configured boundary still triggers.
const percentTolerance = 1e-9

func (e *ExitEvaluator) evaluatePosition(ctx context.Context, pos models.Position) (models.ExitTrigger, bool) {
	now := e.now()
	pl := pos.PLPercent()

	trigger := func(reason models.ExitReason, detail string) (models.ExitTrigger, bool) {
		return models.ExitTrigger{
			Ticker:      pos.Ticker,
			Reason:      reason,
			Detail:      detail,
			Quantity:    pos.AbsQuantity(),
			TriggeredAt: now,
		}, true
	}

	if e.cfg.UseStopLoss && pl <= e.cfg.StopLossPercent+percentTolerance {
		return trigger(models.ExitReasonStopLoss,
			fmt.Sprintf("%.2f%% <= %.2f%%", pl, e.cfg.StopLossPercent))
	}

	if e.cfg.UseTakeProfit && pl >= e.cfg.TakeProfitPercent-percentTolerance {
		return trigger(models.ExitReasonTakeProfit,
			fmt.Sprintf("%.2f%% >= %.2f%%", pl, e.cfg.TakeProfitPercent))
	}

	if e.cfg.UseTimeBasedExit && e.cfg.MaxHoldDays > 0 {
		daysHeld := e.daysHeld(ctx, pos, now)
		if daysHeld >= e.cfg.MaxHoldDays {
			return trigger(models.ExitReasonTimeBased,
				fmt.Sprintf("%d days >= %d days", daysHeld, e.cfg.MaxHoldDays))
		}
	}

	if e.cfg.UseTrailingStop {
		best := e.hwm.Observe(pos.Ticker, pl)
		// Only armed once the position has been in profit.
		if best > 0 {
			decline := best - pl
			if decline >= e.cfg.TrailingStopPercent-percentTolerance {
				return trigger(models.ExitReasonTrailingStop,
					fmt.Sprintf("declined %.2f%% from best %.2f%%", decline, best))
			}
		}
	}

	return models.ExitTrigger{}, false
}

// daysHeld returns how long the position has been open. When the broker does
// not report entry time, it is estimated from the earliest matching fill in
// order history; with no usable history the position is treated as age zero
// rather than failing the cycle.
func (e *ExitEvaluator) daysHeld(ctx context.Context, pos models.Position, now time.Time) int {
	entry := pos.EntryTime
	if entry.IsZero() {
		entry = e.estimateEntryTime(ctx, pos)
	}
	if entry.IsZero() {
		return 0
	}
	days := int(now.Sub(entry).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func (e *ExitEvaluator) estimateEntryTime(ctx context.Context, pos models.Position) time.Time {
	if e.orders == nil {
		return time.Time{}
	}

	orders, err := e.orders.GetOrders(ctx, pos.Ticker)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("ticker", pos.Ticker).
			Msg("Could not fetch order history for entry-time estimation")
		return time.Time{}
	}

	openingSide := models.OrderSideBuy
	if !pos.IsLong() {
		openingSide = models.OrderSideSell
	}

	var earliest time.Time
	for _, o := range orders {
		if o.Side != openingSide || o.Status != "filled" {
			continue
		}
		filled := o.FilledAt
		if filled.IsZero() {
			filled = o.CreatedAt
		}
		if earliest.IsZero() || filled.Before(earliest) {
			earliest = filled
		}
	}
	return earliest
}
