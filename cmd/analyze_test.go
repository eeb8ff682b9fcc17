package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFeatureFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	addFeatureFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestFeaturesFromFlags(t *testing.T) {
	fs := parseFeatureFlags(t,
		"--city", "kandy",
		"--beds", "3",
		"--asking-price", "30000000",
		"--tags", "Garden, pool,garden",
	)
	f, err := featuresFromFlags(fs)
	require.NoError(t, err)

	assert.Equal(t, "kandy", f.City)
	require.NotNil(t, f.Beds)
	assert.Equal(t, 3, *f.Beds)
	require.NotNil(t, f.AskingPrice)
	assert.InDelta(t, 30_000_000, *f.AskingPrice, 0.001)
	assert.Equal(t, []string{"garden", "pool"}, f.Tags)
	assert.Nil(t, f.Baths, "unset flags stay nil")
	assert.Nil(t, f.Area)
	assert.False(t, f.HasLocation())
}

func TestFeaturesFromFlags_ZeroIsSet(t *testing.T) {
	f, err := featuresFromFlags(parseFeatureFlags(t, "--baths", "0"))
	require.NoError(t, err)
	require.NotNil(t, f.Baths)
	assert.Equal(t, 0, *f.Baths)
}

func TestFeaturesFromFlags_Link(t *testing.T) {
	f, err := featuresFromFlags(parseFeatureFlags(t, "--link", "https://www.google.com/maps/@7.2906,80.6337,15z"))
	require.NoError(t, err)
	require.True(t, f.HasLocation())
	assert.InDelta(t, 7.2906, *f.Lat, 1e-9)
	assert.InDelta(t, 80.6337, *f.Lon, 1e-9)

	_, err = featuresFromFlags(parseFeatureFlags(t, "--link", "https://example.com/no-coordinates"))
	assert.Error(t, err)
}
