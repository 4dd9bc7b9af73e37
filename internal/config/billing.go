package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// PendingChargeMode controls whether manually entered pending charges are
// folded into the scheduled monthly invoice or kept separate for the
// estimated-invoice view.
const (
	PendingChargeModeSeparate = "separate"
	PendingChargeModeFold     = "fold"
)

// BillingConfig holds billing policy knobs. Monetary values are decimal
// strings so policy edits never pass through binary floating point.
type BillingConfig struct {
	LitersPerContainer      string `mapstructure:"litersPerContainer"`
	Currency                string `mapstructure:"currency"`
	VATRate                 string `mapstructure:"vatRate"`
	CreditDebitRatePerLiter string `mapstructure:"creditDebitRatePerLiter"`
	PendingChargeMode       string `mapstructure:"pendingChargeMode"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		LitersPerContainer:      "19.5",
		Currency:                "PHP",
		VATRate:                 "0.12",
		CreditDebitRatePerLiter: "2.00",
		PendingChargeMode:       PendingChargeModeSeparate,
	}
}

// LiterFactor returns the liters-per-container conversion factor.
func (c BillingConfig) LiterFactor() decimal.Decimal {
	return decimal.RequireFromString(c.LitersPerContainer)
}

// DebitRate returns the per-liter rate used for parent credit debits.
func (c BillingConfig) DebitRate() decimal.Decimal {
	return decimal.RequireFromString(c.CreditDebitRatePerLiter)
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewBillingConfigHolderFor wraps an explicit config, validated. Used by
// tests and embedded setups that do not read a policy file.
func NewBillingConfigHolderFor(cfg BillingConfig) (*BillingConfigHolder, error) {
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

// NewBillingConfigHolder loads billing.yml and watches it for changes.
func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/aquadesk/config") // Volume-mounted config
	v.AddConfigPath("/etc/aquadesk")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("AQUADESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.litersPerContainer", defaults.LitersPerContainer)
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.vatRate", defaults.VATRate)
	v.SetDefault("billing.creditDebitRatePerLiter", defaults.CreditDebitRatePerLiter)
	v.SetDefault("billing.pendingChargeMode", defaults.PendingChargeMode)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	for key, raw := range map[string]string{
		"billing.litersPerContainer":      cfg.LitersPerContainer,
		"billing.vatRate":                 cfg.VATRate,
		"billing.creditDebitRatePerLiter": cfg.CreditDebitRatePerLiter,
	} {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if value.IsNegative() {
			return fmt.Errorf("%s cannot be negative", key)
		}
	}
	if cfg.LitersPerContainer == "" || decimal.RequireFromString(cfg.LitersPerContainer).IsZero() {
		return errors.New("billing.litersPerContainer cannot be zero")
	}
	switch cfg.PendingChargeMode {
	case PendingChargeModeSeparate, PendingChargeModeFold:
	default:
		return fmt.Errorf("billing.pendingChargeMode must be %q or %q", PendingChargeModeSeparate, PendingChargeModeFold)
	}
	return nil
}
