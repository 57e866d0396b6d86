package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Alpatrader Configuration

[trading]
# Strategy per signal source: "inverse", "normal", or "disabled"
insider_strategy = "inverse"
congress_strategy = "inverse"

# Maximum position size as percentage of portfolio value
max_position_size_percent = 5.0

# Tier multipliers applied to the base allocation
strong_news_multiplier = 2.0
congress_only_multiplier = 1.0
insider_only_multiplier = 0.5

# News confidence threshold for the strong-news tier
strong_news_threshold = 0.7
# Decisions below this confidence are not traded
min_confidence = 0.5

# Signal pre-filters
min_insider_transaction_size = 200000.0
max_congress_transaction_size = 1000000.0
insider_delay_hours = 24.0
congress_delay_hours = 24.0

# Only open positions while the market is open
trade_during_market_hours_only = true
# Polling interval between cycles
cycle_interval = "5m"
# Per-source fetch timeout
fetch_timeout = "15s"

[filters]
# Sectors to monitor (empty = all)
sectors = []
# Sectors to exclude
blacklist_sectors = []
# Suppress new trades during FOMC blackout windows
skip_fomc_blackout = true

[exit_strategy]
use_stop_loss = true
# Negative threshold: trigger at this loss or worse
stop_loss_percent = -10.0
use_take_profit = true
take_profit_percent = 20.0
use_time_based_exit = true
max_hold_days = 30
use_trailing_stop = false
trailing_stop_percent = 5.0
# Skip exit evaluation entirely while the market is closed
exit_during_market_hours_only = true

[options]
use_options = false
min_option_confidence = 0.7
max_option_position_percent = 2.0
target_delta = 0.5
target_days_to_expiry = 30

[cache]
# Redis address, e.g. "localhost:6379". Empty uses the in-process cache.
redis_addr = ""
redis_password = ""
redis_db = 0
ttl = "6h"

[metrics]
enabled = false
addr = ":9183"

[notifications]
enabled = true
# all, trades_only, errors_only
level = "trades_only"
webhook_url = ""
`

const credentialsTemplate = `# Alpatrader Credentials
# Keep this file secure. Environment variables override these values.

[alpaca]
api_key = ""
api_secret = ""
base_url = "https://paper-api.alpaca.markets"
data_url = "https://data.alpaca.markets"

[news]
newsapi_key = ""
finnhub_key = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
