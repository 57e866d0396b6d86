package cli

import (
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cikle/Alpatrader/internal/datafeed"
	"github.com/Cikle/Alpatrader/internal/engine"
	"github.com/Cikle/Alpatrader/internal/models"
)

func newSignalsCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Fetch and aggregate signals without trading",
		Long: `Fetch insider, congressional and news signals, run them through the
configured strategy transforms and aggregation, and print the resulting
per-ticker decisions. No orders are placed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			since := time.Now().AddDate(0, 0, -days)

			insider := datafeed.NewOpenInsiderFeed(app.Cache, app.Logger)
			congress := datafeed.NewSenateWatcherFeed(app.Cache, app.Logger)
			news := datafeed.NewFinnhubNewsFeed(app.Config.Credentials.News.FinnhubKey, app.Cache, app.Logger)

			now := time.Now()
			var signals []models.Signal

			insiderRaws, err := insider.FetchRecent(ctx, since)
			if err != nil {
				output.Warning("Insider feed failed: %v", err)
			}
			for _, raw := range insiderRaws {
				signals = append(signals, engine.NormalizeTransaction(raw, models.SourceInsider, now))
			}

			congressRaws, err := congress.FetchRecent(ctx, since)
			if err != nil {
				output.Warning("Congress feed failed: %v", err)
			}
			for _, raw := range congressRaws {
				signals = append(signals, engine.NormalizeTransaction(raw, models.SourceCongress, now))
			}

			tickerSet := make(map[string]bool)
			for _, sig := range signals {
				tickerSet[sig.Ticker] = true
			}
			if len(tickerSet) > 0 {
				tickers := make([]string, 0, len(tickerSet))
				for t := range tickerSet {
					tickers = append(tickers, t)
				}
				items, err := news.FetchNews(ctx, tickers)
				if err != nil {
					output.Warning("News feed failed: %v", err)
				}
				for _, item := range items {
					signals = append(signals, engine.NormalizeNews(item, now))
				}
			}

			aggregator := engine.NewAggregator(app.Config, app.Logger)
			decisions := aggregator.Aggregate(signals)

			if output.IsJSON() {
				return output.JSON(decisions)
			}

			output.Printf("Fetched %d signals across %d tickers\n\n", len(signals), len(tickerSet))
			if len(decisions) == 0 {
				output.Dim("No actionable decisions")
				return nil
			}

			tickers := make([]string, 0, len(decisions))
			for t := range decisions {
				tickers = append(tickers, t)
			}
			sort.Strings(tickers)

			for _, ticker := range tickers {
				d := decisions[ticker]
				line := "%s %-8s %-18s conf=%.2f mult=%.1fx  %s"
				if d.Direction == models.DirectionBuy {
					output.Bullish(line, output.TierTag(string(d.Tier)), ticker, d.Direction, d.Confidence, d.SizeMultiplier, d.Description)
				} else {
					output.Bearish(line, output.TierTag(string(d.Tier)), ticker, d.Direction, d.Confidence, d.SizeMultiplier, d.Description)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "look-back window in days")
	return cmd
}
