// Package config loads the server's tunables via viper from environment
// variables, matching the configuration layer style used across the example
// corpus's Go services. No configuration file is read.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every tunable named in spec §6.
type Config struct {
	EntryFeeMin decimal.Decimal
	EntryFeeMax decimal.Decimal

	DepositMin decimal.Decimal
	DepositMax decimal.Decimal

	MinWithdrawal decimal.Decimal

	PlatformFeeRate decimal.Decimal // 0.10

	MatchmakerTick time.Duration // ~5s

	FastLudoTimer2P time.Duration // 300s
	FastLudoTimer4P time.Duration // 600s

	MemoryTurnTimer  time.Duration // 15s
	MemoryLifelines  int           // 3
	MemoryPairCounts []int         // {11, 15}

	SnakesTurnAnimation time.Duration // 3s

	ConnRegistryCleanupInterval time.Duration

	GatewaySecret string

	AdminUserIDs map[string]struct{}
}

// Load reads configuration from the environment, prefixed ARENA_, applying
// the spec's defaults when a value is unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("entry_fee_min", "0")
	v.SetDefault("entry_fee_max", "10000")
	v.SetDefault("deposit_min", "10")
	v.SetDefault("deposit_max", "50000")
	v.SetDefault("min_withdrawal", "100")
	v.SetDefault("platform_fee_rate", "0.10")
	v.SetDefault("matchmaker_tick_seconds", 5)
	v.SetDefault("fast_ludo_timer_2p_seconds", 300)
	v.SetDefault("fast_ludo_timer_4p_seconds", 600)
	v.SetDefault("memory_turn_timer_seconds", 15)
	v.SetDefault("memory_lifelines", 3)
	v.SetDefault("snakes_turn_animation_seconds", 3)
	v.SetDefault("conn_registry_cleanup_seconds", 30)
	v.SetDefault("gateway_secret", "")

	cfg := &Config{}

	var err error
	if cfg.EntryFeeMin, err = decimal.NewFromString(v.GetString("entry_fee_min")); err != nil {
		return nil, fmt.Errorf("entry_fee_min: %w", err)
	}
	if cfg.EntryFeeMax, err = decimal.NewFromString(v.GetString("entry_fee_max")); err != nil {
		return nil, fmt.Errorf("entry_fee_max: %w", err)
	}
	if cfg.DepositMin, err = decimal.NewFromString(v.GetString("deposit_min")); err != nil {
		return nil, fmt.Errorf("deposit_min: %w", err)
	}
	if cfg.DepositMax, err = decimal.NewFromString(v.GetString("deposit_max")); err != nil {
		return nil, fmt.Errorf("deposit_max: %w", err)
	}
	if cfg.MinWithdrawal, err = decimal.NewFromString(v.GetString("min_withdrawal")); err != nil {
		return nil, fmt.Errorf("min_withdrawal: %w", err)
	}
	if cfg.PlatformFeeRate, err = decimal.NewFromString(v.GetString("platform_fee_rate")); err != nil {
		return nil, fmt.Errorf("platform_fee_rate: %w", err)
	}

	cfg.MatchmakerTick = time.Duration(v.GetInt("matchmaker_tick_seconds")) * time.Second
	cfg.FastLudoTimer2P = time.Duration(v.GetInt("fast_ludo_timer_2p_seconds")) * time.Second
	cfg.FastLudoTimer4P = time.Duration(v.GetInt("fast_ludo_timer_4p_seconds")) * time.Second
	cfg.MemoryTurnTimer = time.Duration(v.GetInt("memory_turn_timer_seconds")) * time.Second
	cfg.MemoryLifelines = v.GetInt("memory_lifelines")
	cfg.MemoryPairCounts = []int{11, 15}
	cfg.SnakesTurnAnimation = time.Duration(v.GetInt("snakes_turn_animation_seconds")) * time.Second
	cfg.ConnRegistryCleanupInterval = time.Duration(v.GetInt("conn_registry_cleanup_seconds")) * time.Second
	cfg.GatewaySecret = v.GetString("gateway_secret")

	cfg.AdminUserIDs = make(map[string]struct{})
	for _, id := range strings.Split(v.GetString("admin_user_ids"), ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			cfg.AdminUserIDs[id] = struct{}{}
		}
	}

	return cfg, nil
}

// IsAdmin reports whether userID is a configured admin.
func (c *Config) IsAdmin(userID string) bool {
	_, ok := c.AdminUserIDs[userID]
	return ok
}
