package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Cikle/Alpatrader/internal/cli"
	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/logging"
)

func main() {
	// A local .env is optional; env vars override file-based credentials.
	_ = godotenv.Load()

	configDir := config.DefaultConfigDir()
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	logger := logging.NewLoggerWithConfig(logging.DefaultLogConfig())

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Normalize(logger)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
