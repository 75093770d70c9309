// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ChainConfig struct {
	Endpoints       []string      `yaml:"endpoints"`        // ordered RPC endpoints, first is preferred
	TokenAddress    string        `yaml:"token_address"`    // ERC20 reward token (6 decimals)
	EscrowAddress   string        `yaml:"escrow_address"`   // escrow contract
	MaxRetries      int           `yaml:"max_retries"`      // attempts across endpoint rotations
	Backoff         time.Duration `yaml:"backoff"`          // linear backoff step between retries
	ReceiptTimeout  time.Duration `yaml:"receipt_timeout"`  // max wait for a mined receipt
	GasMarginPct    int           `yaml:"gas_margin_pct"`   // safety margin on gas estimates
	DefaultGasLimit uint64        `yaml:"default_gas_limit"` // used when estimation fails
	MinGasBalance   string        `yaml:"min_gas_balance"`  // wei, minimum native balance for withdrawal
	OperatorKey     string        `yaml:"operator_key"`     // hex private key of the attestation wallet
	SignerKeys      []string      `yaml:"signer_keys"`      // hex private keys for locally-held wallets (dev)
}

type SocialConfig struct {
	APIBaseURL     string        `yaml:"api_base_url"`
	APIKey         string        `yaml:"api_key"`
	ScrapeProxyURL string        `yaml:"scrape_proxy_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"` // fetch rate limit toward the platform
	RateBurst      int           `yaml:"rate_burst"`
}

type EscrowConfig struct {
	FeeRateBps       int64         `yaml:"fee_rate_bps"`      // platform fee in basis points
	MinWithdraw      string        `yaml:"min_withdraw"`      // decimal token amount
	BalanceTolerance string        `yaml:"balance_tolerance"` // accepted delta mismatch, decimal
	SessionWindow    time.Duration `yaml:"session_window"`    // verification session lifetime
	MinDwell         time.Duration `yaml:"min_dwell"`         // anti-instant-claim guard
	VerifyRateLimit  int           `yaml:"verify_rate_limit"` // session starts per performer per window
	ReconcileEvery   time.Duration `yaml:"reconcile_every"`   // degraded-job scan interval
	DiscardAfter     time.Duration `yaml:"discard_after"`     // grace before unmined creations are dropped
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Chain    ChainConfig    `yaml:"chain"`
	Social   SocialConfig   `yaml:"social"`
	Escrow   EscrowConfig   `yaml:"escrow"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Chain.MaxRetries <= 0 {
		cfg.Chain.MaxRetries = 3
	}
	if cfg.Chain.Backoff <= 0 {
		cfg.Chain.Backoff = 500 * time.Millisecond
	}
	if cfg.Chain.ReceiptTimeout <= 0 {
		cfg.Chain.ReceiptTimeout = 90 * time.Second
	}
	if cfg.Chain.GasMarginPct <= 0 {
		cfg.Chain.GasMarginPct = 20
	}
	if cfg.Chain.DefaultGasLimit == 0 {
		cfg.Chain.DefaultGasLimit = 400_000
	}
	if cfg.Social.Timeout <= 0 {
		cfg.Social.Timeout = 10 * time.Second
	}
	if cfg.Social.RatePerSecond <= 0 {
		cfg.Social.RatePerSecond = 5
	}
	if cfg.Social.RateBurst <= 0 {
		cfg.Social.RateBurst = 10
	}
	if cfg.Escrow.FeeRateBps <= 0 {
		cfg.Escrow.FeeRateBps = 1000 // 10%
	}
	if cfg.Escrow.SessionWindow <= 0 {
		cfg.Escrow.SessionWindow = 10 * time.Minute
	}
	if cfg.Escrow.MinDwell <= 0 {
		cfg.Escrow.MinDwell = 15 * time.Second
	}
	if cfg.Escrow.VerifyRateLimit <= 0 {
		cfg.Escrow.VerifyRateLimit = 10
	}
	if cfg.Escrow.ReconcileEvery <= 0 {
		cfg.Escrow.ReconcileEvery = time.Minute
	}
	if cfg.Escrow.DiscardAfter <= 0 {
		cfg.Escrow.DiscardAfter = time.Hour
	}
	if cfg.Escrow.MinWithdraw == "" {
		cfg.Escrow.MinWithdraw = "1.00"
	}
	if cfg.Escrow.BalanceTolerance == "" {
		cfg.Escrow.BalanceTolerance = "0.01"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if len(cfg.Chain.Endpoints) == 0 {
		return nil, errors.New("chain.endpoints is required")
	}
	if cfg.Chain.TokenAddress == "" || cfg.Chain.EscrowAddress == "" {
		return nil, errors.New("chain.token_address and chain.escrow_address are required")
	}
	if cfg.Chain.OperatorKey == "" {
		return nil, errors.New("chain.operator_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
