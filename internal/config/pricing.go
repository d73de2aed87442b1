package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PricingConfig holds the tunable, non-catalog pricing knobs.
type PricingConfig struct {
	Currency string `mapstructure:"currency"`
	// SavingsMultiplier scales the base total into the "buying separately" reference cost.
	SavingsMultiplier float64 `mapstructure:"savingsMultiplier"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Currency:          "USD",
		SavingsMultiplier: 2.5,
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingConfigHolder returns a holder that never reloads.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPricingConfigHolder(log *zap.Logger) (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/workspacebilling")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WORKSPACEBILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.currency", defaults.Currency)
	v.SetDefault("pricing.savingsMultiplier", defaults.SavingsMultiplier)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	cfg = normalizePricingConfig(cfg)
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPricingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	log = log.Named("config.pricing")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Warn("pricing config reload failed", zap.Error(err))
			return
		}
		updated = normalizePricingConfig(updated)
		if err := validatePricingConfig(updated); err != nil {
			log.Warn("invalid pricing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("pricing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	if h == nil {
		return DefaultPricingConfig()
	}
	return h.current.Load().(PricingConfig)
}

func normalizePricingConfig(cfg PricingConfig) PricingConfig {
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	return cfg
}

func validatePricingConfig(cfg PricingConfig) error {
	if len(cfg.Currency) != 3 {
		return errors.New("pricing.currency must be a 3-letter ISO code")
	}
	if cfg.SavingsMultiplier < 1 {
		return errors.New("pricing.savingsMultiplier must be >= 1")
	}
	return nil
}
