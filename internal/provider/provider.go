// Package provider supplies site attributes for parcels. The Provider
// interface is the substitution point for a real geospatial data source;
// the implementations here are mocks standing in for one.
package provider

import (
	"context"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/model"
)

// Provider produces a SiteAttributes record for a parcel.
type Provider interface {
	Attributes(ctx context.Context, parcel *model.Parcel) (*model.SiteAttributes, error)
}

// New selects a mock provider from config.
func New(cfg config.ProviderConfig) Provider {
	if cfg.Mode == "fixed" {
		return NewFixed(cfg)
	}
	return NewSeeded(cfg.Seed)
}
