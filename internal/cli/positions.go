package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/Cikle/Alpatrader/internal/errors"
)

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Show account and open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Broker == nil {
				return apperrors.ErrCredentialsMissing
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			account, err := app.Broker.GetAccount(ctx)
			if err != nil {
				return fmt.Errorf("fetching account: %w", err)
			}
			positions, err := app.Broker.GetPositions(ctx)
			if err != nil {
				return fmt.Errorf("fetching positions: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"account":   account,
					"positions": positions,
				})
			}

			output.Printf("Equity:       $%.2f\n", account.Equity)
			output.Printf("Cash:         $%.2f\n", account.Cash)
			output.Printf("Buying power: $%.2f\n", account.BuyingPower)
			output.Println()

			if len(positions) == 0 {
				output.Dim("No open positions")
				return nil
			}

			output.Printf("%-8s %8s %12s %12s %10s\n", "TICKER", "QTY", "ENTRY", "CURRENT", "P&L%")
			for _, pos := range positions {
				pl := pos.PLPercent()
				line := fmt.Sprintf("%-8s %8d %12.2f %12.2f %9.2f%%",
					pos.Ticker, pos.Quantity, pos.EntryPrice, pos.CurrentPrice, pl)
				if pl >= 0 {
					output.Bullish("%s", line)
				} else {
					output.Bearish("%s", line)
				}
			}
			return nil
		},
	}
}
