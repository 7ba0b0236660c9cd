package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/geo"
	"github.com/sitescout/sitescout/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func parcelAt(lat, lng float64) *model.Parcel {
	return &model.Parcel{
		ID:       "p1",
		Name:     "Site",
		Centroid: geo.Point{Lat: lat, Lng: lng},
	}
}

func TestSeededDeterminism(t *testing.T) {
	p := NewSeeded(42)
	parcel := parcelAt(38.95, -77.45)

	first, err := p.Attributes(context.Background(), parcel)
	require.NoError(t, err)
	second, err := p.Attributes(context.Background(), parcel)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same parcel must yield identical attributes")
}

func TestSeededDistinctParcelsDiffer(t *testing.T) {
	p := NewSeeded(42)

	a, err := p.Attributes(context.Background(), parcelAt(38.95, -77.45))
	require.NoError(t, err)
	b, err := p.Attributes(context.Background(), parcelAt(30.27, -97.74))
	require.NoError(t, err)

	assert.NotEqual(t, a.ElevationM, b.ElevationM)
}

func TestSeededRanges(t *testing.T) {
	p := NewSeeded(7)

	coords := []geo.Point{
		{Lat: 38.95, Lng: -77.45},
		{Lat: 30.27, Lng: -97.74},
		{Lat: 41.88, Lng: -87.63},
		{Lat: 47.61, Lng: -122.33},
	}

	for _, c := range coords {
		attrs, err := p.Attributes(context.Background(), parcelAt(c.Lat, c.Lng))
		require.NoError(t, err)

		assert.GreaterOrEqual(t, attrs.ElevationM, 20.0)
		assert.LessOrEqual(t, attrs.ElevationM, 2420.0)
		assert.GreaterOrEqual(t, attrs.FloodRisk, 0.0)
		assert.LessOrEqual(t, attrs.FloodRisk, 1.0)
		assert.GreaterOrEqual(t, attrs.PowerKM, 0.5)
		require.NotNil(t, attrs.LatencyMS)
		assert.InDelta(t, geo.LatencyProxyMS(c), *attrs.LatencyMS, 0.001)
		require.NotNil(t, attrs.CostPerMW)
		assert.GreaterOrEqual(t, *attrs.CostPerMW, 50.0)
		assert.Equal(t, "mock-seeded", attrs.Provider)
	}
}

func TestFixedProvider(t *testing.T) {
	p := NewFixed(config.ProviderConfig{
		ElevationM: 250,
		FloodRisk:  0.2,
		PowerKM:    3,
		CostPerMW:  90,
	})

	attrs, err := p.Attributes(context.Background(), parcelAt(geo.Ashburn.Lat, geo.Ashburn.Lng))
	require.NoError(t, err)

	assert.Equal(t, 250.0, attrs.ElevationM)
	assert.Equal(t, 0.2, attrs.FloodRisk)
	assert.Equal(t, 3.0, attrs.PowerKM)
	require.NotNil(t, attrs.LatencyMS)
	assert.InDelta(t, 0, *attrs.LatencyMS, 0.001, "latency derived from centroid when unset")
	require.NotNil(t, attrs.CostPerMW)
	assert.Equal(t, 90.0, *attrs.CostPerMW)
	assert.Equal(t, "mock-fixed", attrs.Provider)
}

func TestNewSelectsMode(t *testing.T) {
	assert.IsType(t, &Fixed{}, New(config.ProviderConfig{Mode: "fixed"}))
	assert.IsType(t, &Seeded{}, New(config.ProviderConfig{Mode: "seeded"}))
	assert.IsType(t, &Seeded{}, New(config.ProviderConfig{}), "seeded is the default")
}
