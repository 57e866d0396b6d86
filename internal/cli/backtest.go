package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cikle/Alpatrader/internal/backtest"
	"github.com/Cikle/Alpatrader/internal/datafeed"
	"github.com/Cikle/Alpatrader/internal/engine"
	"github.com/Cikle/Alpatrader/internal/models"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		days   int
		equity float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recent signals against synthetic prices",
		Long: `Replay the look-back window's insider and congressional signals through
the live aggregation and sizing engine, filling orders against
deterministic synthetic prices. Useful for checking how the configured
strategies would have sized and sequenced entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			end := time.Now().Truncate(24 * time.Hour)
			start := end.AddDate(0, 0, -days)

			insider := datafeed.NewOpenInsiderFeed(app.Cache, app.Logger)
			congress := datafeed.NewSenateWatcherFeed(app.Cache, app.Logger)

			var signals []models.Signal
			insiderRaws, err := insider.FetchRecent(ctx, start)
			if err != nil {
				output.Warning("Insider feed failed: %v", err)
			}
			for _, raw := range insiderRaws {
				sig := engine.NormalizeTransaction(raw, models.SourceInsider, raw.FilingDate)
				signals = append(signals, sig)
			}
			congressRaws, err := congress.FetchRecent(ctx, start)
			if err != nil {
				output.Warning("Congress feed failed: %v", err)
			}
			for _, raw := range congressRaws {
				sig := engine.NormalizeTransaction(raw, models.SourceCongress, raw.FilingDate)
				signals = append(signals, sig)
			}

			if len(signals) == 0 {
				output.Dim("No signals in window, nothing to replay")
				return nil
			}

			runner := backtest.NewRunner(app.Config, app.Logger)
			result := runner.Run(signals, start, end, equity)

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Printf("Window:    %s to %s (%d trading days)\n",
				start.Format("2006-01-02"), end.Format("2006-01-02"), result.DaysSimulated)
			output.Printf("Equity:    $%.2f -> $%.2f\n", result.StartingEquity, result.EndingEquity)
			ret := result.ReturnPercent()
			if ret >= 0 {
				output.Bullish("Return:    %+.2f%%", ret)
			} else {
				output.Bearish("Return:    %+.2f%%", ret)
			}
			output.Println()

			for _, trade := range result.Trades {
				output.Printf("%s  %s %-5s %-8s %6d @ %8.2f  (%s)\n",
					trade.Date.Format("2006-01-02"), output.TierTag(string(trade.Tier)),
					trade.Side, trade.Ticker, trade.Quantity, trade.Price,
					fmt.Sprintf("$%.0f", trade.EntryCost))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "look-back window in days")
	cmd.Flags().Float64Var(&equity, "equity", 100000, "starting equity")
	return cmd
}
