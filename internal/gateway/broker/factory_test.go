package broker

import (
	"testing"

	"tradewind/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsBackend(t *testing.T) {
	b, err := New(config.BrokerConfig{
		Backend: "alpaca",
		Alpaca:  config.AlpacaConfig{APIKey: "k", SecretKey: "s", BaseURL: "https://paper-api.alpaca.markets"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alpaca", b.Name())

	// Empty backend defaults to alpaca.
	b, err = New(config.BrokerConfig{
		Alpaca: config.AlpacaConfig{APIKey: "k", SecretKey: "s"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alpaca", b.Name())

	b, err = New(config.BrokerConfig{
		Backend: "Binance",
		Binance: config.BinanceConfig{APIKey: "k", SecretKey: "s"},
	})
	require.NoError(t, err)
	assert.Equal(t, "binance", b.Name())
}

func TestNewUnsupportedBackend(t *testing.T) {
	_, err := New(config.BrokerConfig{Backend: "kraken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestNewMissingCredentials(t *testing.T) {
	_, err := New(config.BrokerConfig{Backend: "alpaca"})
	assert.Error(t, err)

	_, err = New(config.BrokerConfig{Backend: "binance"})
	assert.Error(t, err)
}
