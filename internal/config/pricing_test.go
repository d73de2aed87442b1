package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPricingConfigHolder_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewPricingConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 2.5, cfg.SavingsMultiplier)
}

func TestNewPricingConfigHolder_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := []byte("pricing:\n  currency: eur\n  savingsMultiplier: 3\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pricing.yml"), content, 0o600))

	holder, err := NewPricingConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 3.0, cfg.SavingsMultiplier)
}

func TestNewPricingConfigHolder_RejectsInvalidMultiplier(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := []byte("pricing:\n  currency: USD\n  savingsMultiplier: 0.5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pricing.yml"), content, 0o600))

	_, err := NewPricingConfigHolder(zap.NewNop())
	assert.Error(t, err)
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "250ms")
	assert.Equal(t, "250ms", getenvDuration("TEST_TIMEOUT", 0).String())

	t.Setenv("TEST_TIMEOUT", "4")
	assert.Equal(t, "4s", getenvDuration("TEST_TIMEOUT", 0).String())

	t.Setenv("TEST_TIMEOUT", "nope")
	assert.Equal(t, "1s", getenvDuration("TEST_TIMEOUT", 1e9).String())
}
