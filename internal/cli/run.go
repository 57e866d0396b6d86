package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cikle/Alpatrader/internal/datafeed"
	"github.com/Cikle/Alpatrader/internal/engine"
	apperrors "github.com/Cikle/Alpatrader/internal/errors"
	"github.com/Cikle/Alpatrader/internal/metrics"
	"github.com/Cikle/Alpatrader/internal/notify"
)

func newRunCmd(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading loop",
		Long: `Run the trading loop: fetch signals, evaluate exits, close and open
positions on the configured cycle interval. Stops cleanly on SIGINT or
SIGTERM, finishing the in-flight cycle first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Broker == nil {
				return apperrors.ErrCredentialsMissing
			}
			if err := app.Config.ValidateCredentials(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if app.Config.Metrics.Enabled {
				srv := metrics.Serve(app.Config.Metrics.Addr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				app.Logger.Info().Str("addr", app.Config.Metrics.Addr).Msg("Metrics server started")
			}

			feeds := engine.Feeds{
				Insider:  datafeed.NewOpenInsiderFeed(app.Cache, app.Logger),
				Congress: datafeed.NewSenateWatcherFeed(app.Cache, app.Logger),
				News:     datafeed.NewFinnhubNewsFeed(app.Config.Credentials.News.FinnhubKey, app.Cache, app.Logger),
			}

			orchestrator := engine.NewOrchestrator(app.Config, app.Broker, feeds, app.Store, app.Logger)
			if app.Config.Notify.Enabled {
				orchestrator.SetNotifier(notify.NewMultiNotifier(
					notify.Level(app.Config.Notify.Level),
					notify.NewTerminalChannel(true),
					notify.NewWebhookChannel(app.Config.Notify.WebhookURL),
				))
			}

			if once {
				orchestrator.RunCycle(ctx)
				return nil
			}

			err := orchestrator.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}
