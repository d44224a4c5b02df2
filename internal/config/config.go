package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
// TOKEN_ADDRESS defaults to USDC on Arbitrum One.
type Config struct {
	BotToken     string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath       string `envconfig:"DB_PATH" default:"./data/monitor.db"`
	RPCURL       string `envconfig:"RPC_URL" default:"https://arb1.arbitrum.io/rpc"`
	TokenAddress string `envconfig:"TOKEN_ADDRESS" default:"0xaf88d065e77c8cc2239327c5edb3a432268e5831"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFile      string `envconfig:"LOG_FILE" default:""`      // empty: stdout only
	HTTPAddr     string `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
