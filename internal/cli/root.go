// Package cli provides the command-line interface for the trading bot.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Cikle/Alpatrader/internal/broker"
	"github.com/Cikle/Alpatrader/internal/cache"
	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/logging"
	"github.com/Cikle/Alpatrader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Broker broker.Broker
	Store  store.AuditStore
	Cache  cache.Store
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Credentials.Alpaca.APIKey != "" {
		alpaca, err := broker.NewAlpacaClient(cfg.Credentials.Alpaca, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize broker")
		} else {
			app.Broker = alpaca
			logger.Debug().Msg("Alpaca broker initialized")
		}
	}

	dbPath := config.DefaultConfigDir() + "/alpatrader.db"
	auditStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize audit store, some features may be unavailable")
	} else {
		app.Store = auditStore
		logger.Debug().Msg("SQLite audit store initialized")
	}

	if cfg.Cache.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(context.Background(), cfg.Cache, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
			app.Cache = cache.NewMemoryStore()
		} else {
			app.Cache = redisStore
			logger.Debug().Str("addr", cfg.Cache.RedisAddr).Msg("Redis cache initialized")
		}
	} else {
		app.Cache = cache.NewMemoryStore()
	}

	rootCmd := &cobra.Command{
		Use:   "alpatrader",
		Short: "Alpatrader - insider and congressional trade signal bot",
		Long: `Alpatrader is an automated trading bot for Alpaca.

It watches insider filings, congressional trade disclosures and news
sentiment, optionally inverts them, and sizes stock or option positions
from the aggregated signal. An independent exit engine manages stop
losses, take profits, time stops and trailing stops.

Use 'alpatrader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/alpatrader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newSignalsCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Alpatrader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}
