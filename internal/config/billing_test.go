package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBillingConfig(t *testing.T) {
	cfg := DefaultBillingConfig()

	assert.True(t, cfg.LiterFactor().Equal(decimal.RequireFromString("19.5")))
	assert.True(t, cfg.DebitRate().Equal(decimal.RequireFromString("2.00")))
	assert.Equal(t, PendingChargeModeSeparate, cfg.PendingChargeMode)
	assert.NoError(t, validateBillingConfig(cfg))
}

func TestValidateBillingConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BillingConfig)
		ok     bool
	}{
		{"defaults", func(*BillingConfig) {}, true},
		{"fold_mode", func(c *BillingConfig) { c.PendingChargeMode = PendingChargeModeFold }, true},
		{"bad_mode", func(c *BillingConfig) { c.PendingChargeMode = "merge" }, false},
		{"zero_liter_factor", func(c *BillingConfig) { c.LitersPerContainer = "0" }, false},
		{"negative_rate", func(c *BillingConfig) { c.CreditDebitRatePerLiter = "-2" }, false},
		{"garbage_decimal", func(c *BillingConfig) { c.VATRate = "12%" }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultBillingConfig()
			tc.mutate(&cfg)
			err := validateBillingConfig(cfg)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestBillingConfigHolder(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.PendingChargeMode = PendingChargeModeFold

	holder, err := NewBillingConfigHolderFor(cfg)
	require.NoError(t, err)
	assert.Equal(t, PendingChargeModeFold, holder.Get().PendingChargeMode)

	_, err = NewBillingConfigHolderFor(BillingConfig{})
	assert.Error(t, err)
}
