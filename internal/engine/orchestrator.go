package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/broker"
	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/datafeed"
	"github.com/Cikle/Alpatrader/internal/logging"
	"github.com/Cikle/Alpatrader/internal/metrics"
	"github.com/Cikle/Alpatrader/internal/models"
	"github.com/Cikle/Alpatrader/internal/notify"
	"github.com/Cikle/Alpatrader/internal/store"
	"github.com/Cikle/Alpatrader/pkg/utils"
)

// CycleState names the orchestrator's position within a trading cycle.
type CycleState string

const (
	StateIdle               CycleState = "idle"
	StateFetching           CycleState = "fetching"
	StateEvaluatingExits    CycleState = "evaluating_exits"
	StateClosingPositions   CycleState = "closing_positions"
	StateAggregatingSignals CycleState = "aggregating_signals"
	StateSizing             CycleState = "sizing"
	StateOpeningPositions   CycleState = "opening_positions"
)

// Feeds bundles the three signal sources.
type Feeds struct {
	Insider  datafeed.InsiderFeed
	Congress datafeed.CongressFeed
	News     datafeed.NewsFeed
}

// Orchestrator drives the trading loop: fetch, evaluate exits, close,
// aggregate, size, open. Exits always run before entries, and a ticker being
// closed this cycle is never reopened in the same cycle.
type Orchestrator struct {
	cfg    *config.Config
	logger zerolog.Logger

	broker   broker.Broker
	feeds    Feeds
	audit    store.AuditStore
	notifier notify.Notifier

	aggregator *Aggregator
	sizer      *Sizer
	exits      *ExitEvaluator
	hwm        *HighWaterMarks

	mu    sync.Mutex
	state CycleState
	cycle int64

	now func() time.Time
}

// NewOrchestrator wires the engine together. The audit store may be nil to
// disable persistence.
func NewOrchestrator(cfg *config.Config, b broker.Broker, feeds Feeds, audit store.AuditStore, logger zerolog.Logger) *Orchestrator {
	hwm := NewHighWaterMarks()
	return &Orchestrator{
		cfg:        cfg,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		broker:     b,
		feeds:      feeds,
		audit:      audit,
		aggregator: NewAggregator(cfg, logger),
		sizer:      NewSizer(cfg, logger),
		exits:      NewExitEvaluator(cfg.ExitStrategy, hwm, b, logger),
		hwm:        hwm,
		state:      StateIdle,
		now:        time.Now,
	}
}

// SetNotifier attaches an optional trade notifier.
func (o *Orchestrator) SetNotifier(n notify.Notifier) { o.notifier = n }

// SetClock overrides the orchestrator's clock and propagates it to the engine
// components. Used by tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
	o.aggregator.SetClock(now)
	o.sizer.SetClock(now)
	o.exits.SetClock(now)
}

// State returns the current cycle state.
func (o *Orchestrator) State() CycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s CycleState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes trading cycles until the context is cancelled. An in-flight
// cycle is finished before returning. High-water marks are restored from the
// audit store on startup so trailing stops survive restarts.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.audit != nil {
		marks, err := o.audit.LoadHighWaterMarks(ctx)
		if err != nil {
			o.logger.Warn().Err(err).Msg("Could not restore high water marks")
		} else if len(marks) > 0 {
			o.hwm.Restore(marks)
			o.logger.Info().Int("count", len(marks)).Msg("Restored high water marks")
		}
	}

	interval := o.cfg.Trading.CycleInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	o.logger.Info().Dur("interval", interval).Msg("Starting trading loop")
	o.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("Shutting down trading loop")
			return ctx.Err()
		case <-ticker.C:
			o.RunCycle(ctx)
		}
	}
}

type fetchResult struct {
	signals []models.Signal
	errs    map[models.Source]error
}

// RunCycle executes one full cycle. Individual failures degrade the cycle
// rather than aborting it: a dead feed contributes nothing, a failed ticker
// order does not block the others.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	o.mu.Lock()
	o.cycle++
	cycle := o.cycle
	o.mu.Unlock()

	logger := logging.WithCycle(o.logger, fmt.Sprintf("%d", cycle))
	logger.Info().Msg("Cycle started")
	defer func() {
		o.setState(StateIdle)
		metrics.CyclesTotal.Inc()
		logger.Info().Msg("Cycle finished")
	}()

	marketOpen := o.marketOpen(ctx)

	o.setState(StateFetching)
	fetched := o.fetchSignals(ctx)

	o.setState(StateEvaluatingExits)
	positions, err := o.broker.GetPositions(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Could not fetch positions, skipping exit evaluation")
		positions = nil
	}
	triggers := o.exits.Evaluate(ctx, positions, marketOpen)

	o.setState(StateClosingPositions)
	o.closePositions(ctx, cycle, triggers, positions, logger)

	o.setState(StateAggregatingSignals)
	decisionMap := o.aggregator.Aggregate(fetched.signals)
	decisions := make([]models.Decision, 0, len(decisionMap))
	for _, d := range decisionMap {
		decisions = append(decisions, d)
	}

	resolution := Resolve(decisions, triggers, logger)

	o.setState(StateSizing)
	o.setState(StateOpeningPositions)
	o.openPositions(ctx, cycle, resolution.Opens, positions, marketOpen, logger)

	o.persistCycle(ctx, cycle, resolution, logger)
}

// marketOpen asks the broker, falling back to the local calendar if the
// broker clock is unavailable.
func (o *Orchestrator) marketOpen(ctx context.Context) bool {
	open, err := o.broker.IsMarketOpen(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Broker clock unavailable, using local market calendar")
		return utils.GetMarketStatusAt(o.now()) == utils.MarketOpen
	}
	return open
}

// fetchSignals queries all three feeds in parallel, each under its own
// timeout. A failed source contributes an empty slice.
func (o *Orchestrator) fetchSignals(ctx context.Context) fetchResult {
	timeout := o.cfg.Trading.FetchTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	now := o.now()
	since := now.Add(-7 * 24 * time.Hour)

	var mu sync.Mutex
	result := fetchResult{errs: make(map[models.Source]error)}

	add := func(source models.Source, signals []models.Signal, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.errs[source] = err
			metrics.FetchErrors.WithLabelValues(string(source)).Inc()
			o.logger.Error().Err(err).Str("source", string(source)).Msg("Feed fetch failed")
			return
		}
		result.signals = append(result.signals, signals...)
		metrics.SignalsTotal.WithLabelValues(string(source)).Add(float64(len(signals)))
		for _, sig := range signals {
			logging.LogSignal(o.logger, sig)
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		raws, err := o.feeds.Insider.FetchRecent(fctx, since)
		if err != nil {
			add(models.SourceInsider, nil, err)
			return
		}
		signals := make([]models.Signal, 0, len(raws))
		for _, raw := range raws {
			signals = append(signals, NormalizeTransaction(raw, models.SourceInsider, now))
		}
		add(models.SourceInsider, signals, nil)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		raws, err := o.feeds.Congress.FetchRecent(fctx, since)
		if err != nil {
			add(models.SourceCongress, nil, err)
			return
		}
		signals := make([]models.Signal, 0, len(raws))
		for _, raw := range raws {
			signals = append(signals, NormalizeTransaction(raw, models.SourceCongress, now))
		}
		add(models.SourceCongress, signals, nil)
	}()

	wg.Wait()

	// News sentiment is fetched for the tickers the other two sources
	// surfaced, after those fetches complete.
	tickerSet := make(map[string]bool)
	for _, sig := range result.signals {
		tickerSet[sig.Ticker] = true
	}
	if len(tickerSet) > 0 {
		tickers := make([]string, 0, len(tickerSet))
		for t := range tickerSet {
			tickers = append(tickers, t)
		}
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		items, err := o.feeds.News.FetchNews(fctx, tickers)
		if err != nil {
			add(models.SourceNews, nil, err)
		} else {
			signals := make([]models.Signal, 0, len(items))
			for _, item := range items {
				signals = append(signals, NormalizeNews(item, now))
			}
			add(models.SourceNews, signals, nil)
		}
	}

	return result
}

func (o *Orchestrator) closePositions(ctx context.Context, cycle int64, triggers []models.ExitTrigger, positions []models.Position, logger zerolog.Logger) {
	held := make(map[string]models.Position, len(positions))
	for _, p := range positions {
		held[p.Ticker] = p
	}

	for _, trigger := range triggers {
		pos, ok := held[trigger.Ticker]
		if !ok {
			continue
		}

		side := models.OrderSideSell
		if !pos.IsLong() {
			side = models.OrderSideBuy
		}
		order := &models.Order{
			Ticker:      trigger.Ticker,
			Side:        side,
			Type:        models.OrderTypeMarket,
			Class:       models.AssetEquity,
			Quantity:    trigger.Quantity,
			TimeInForce: "day",
			Tag:         "exit_" + string(trigger.Reason),
			SubmittedAt: o.now(),
		}

		logging.LogExit(logger, trigger)
		result, err := o.broker.SubmitOrder(ctx, order)
		if err != nil {
			logger.Error().Err(err).Str("ticker", trigger.Ticker).Msg("Close order failed")
			continue
		}
		logging.LogOrder(logger, *order, *result)
		metrics.ExitsTotal.WithLabelValues(string(trigger.Reason)).Inc()
		if o.notifier != nil {
			if err := o.notifier.SendExit(ctx, trigger); err != nil {
				logger.Warn().Err(err).Msg("Exit notification failed")
			}
		}

		if result.Accepted {
			o.hwm.Clear(trigger.Ticker)
			if o.audit != nil {
				if err := o.audit.DeleteHighWaterMark(ctx, trigger.Ticker); err != nil {
					logger.Warn().Err(err).Str("ticker", trigger.Ticker).Msg("Could not delete high water mark")
				}
			}
		}
		if o.audit != nil {
			if err := o.audit.SaveExit(ctx, cycle, trigger, *result); err != nil {
				logger.Warn().Err(err).Msg("Could not persist exit")
			}
		}
	}
}

func (o *Orchestrator) openPositions(ctx context.Context, cycle int64, decisions []models.Decision, positions []models.Position, marketOpen bool, logger zerolog.Logger) {
	if len(decisions) == 0 {
		return
	}

	account, err := o.broker.GetAccount(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Could not fetch account, skipping entries")
		return
	}

	held := make(map[string]models.Position, len(positions))
	for _, p := range positions {
		held[p.Ticker] = p
	}

	for _, decision := range decisions {
		o.openOne(ctx, cycle, decision, account, held, marketOpen, logger)
	}
}

// openOne sizes and submits a single entry. A panic in one ticker's path is
// contained so the rest of the cycle proceeds.
func (o *Orchestrator) openOne(ctx context.Context, cycle int64, decision models.Decision, account *models.Account, held map[string]models.Position, marketOpen bool, logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("ticker", decision.Ticker).Msg("Recovered from entry panic")
		}
	}()

	tlog := logging.WithTicker(logger, decision.Ticker)
	logging.LogDecision(tlog, decision)

	price, err := o.broker.GetQuote(ctx, decision.Ticker)
	if err != nil {
		tlog.Error().Err(err).Msg("Could not fetch quote, skipping ticker")
		return
	}

	// Short entries need the symbol to be shortable at the broker.
	if decision.Direction == models.DirectionSell {
		existing, holds := held[decision.Ticker]
		if !holds || !existing.IsLong() {
			shortable, err := o.broker.IsShortable(ctx, decision.Ticker)
			if err != nil {
				tlog.Warn().Err(err).Msg("Shortability check failed, skipping ticker")
				return
			}
			if !shortable {
				tlog.Info().Msg("Symbol not shortable, skipping entry")
				metrics.SignalsDropped.WithLabelValues("not_shortable").Inc()
				return
			}
		}
	}

	input := SizingInput{
		Decision:       decision,
		PortfolioValue: account.Equity,
		CurrentPrice:   price,
		MarketOpen:     marketOpen,
	}
	if pos, ok := held[decision.Ticker]; ok {
		existing := pos
		input.Existing = &existing
	}
	if o.cfg.Options.UseOptions && decision.Confidence >= o.cfg.Options.MinOptionConfidence {
		chain, err := o.broker.GetOptionChain(ctx, decision.Ticker)
		if err != nil {
			tlog.Warn().Err(err).Msg("Option chain unavailable, falling back to equity")
		} else {
			input.Chain = chain
		}
	}

	order := o.sizer.Size(input)
	if order == nil {
		return
	}

	result, err := o.broker.SubmitOrder(ctx, order)
	if err != nil {
		tlog.Error().Err(err).Msg("Order submission failed")
		return
	}
	logging.LogOrder(tlog, *order, *result)
	metrics.OrdersTotal.WithLabelValues(string(order.Side), string(order.Class)).Inc()
	if !result.Accepted {
		metrics.OrdersRejected.Inc()
	}
	if o.notifier != nil {
		if err := o.notifier.SendOrder(ctx, *order, *result); err != nil {
			tlog.Warn().Err(err).Msg("Order notification failed")
		}
	}

	if o.audit != nil {
		if err := o.audit.SaveOrder(ctx, cycle, *order, *result); err != nil {
			tlog.Warn().Err(err).Msg("Could not persist order")
		}
	}
}

// persistCycle writes the cycle's decisions, signals and high-water marks.
func (o *Orchestrator) persistCycle(ctx context.Context, cycle int64, resolution Resolution, logger zerolog.Logger) {
	if o.audit == nil {
		return
	}

	var signals []models.EffectiveSignal
	record := func(ds []models.Decision) {
		for _, d := range ds {
			signals = append(signals, d.Contributing...)
			if err := o.audit.SaveDecision(ctx, cycle, d); err != nil {
				logger.Warn().Err(err).Str("ticker", d.Ticker).Msg("Could not persist decision")
			}
		}
	}
	record(resolution.Opens)
	record(resolution.Suppressed)

	if err := o.audit.SaveSignals(ctx, cycle, signals); err != nil {
		logger.Warn().Err(err).Msg("Could not persist signals")
	}

	for ticker, pl := range o.hwm.Snapshot() {
		if err := o.audit.SaveHighWaterMark(ctx, ticker, pl); err != nil {
			logger.Warn().Err(err).Str("ticker", ticker).Msg("Could not persist high water mark")
		}
	}
}
