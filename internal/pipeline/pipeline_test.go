package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/geo"
	"github.com/sitescout/sitescout/internal/model"
	"github.com/sitescout/sitescout/internal/scorer"
	"github.com/sitescout/sitescout/internal/store"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeProvider returns attributes keyed by parcel name.
type fakeProvider struct {
	attrs map[string]*model.SiteAttributes
	err   error
}

func (f *fakeProvider) Attributes(_ context.Context, parcel *model.Parcel) (*model.SiteAttributes, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.attrs[parcel.Name], nil
}

// fakeStore records the evaluation it is asked to persist.
type fakeStore struct {
	created *model.Evaluation
	err     error
}

func (f *fakeStore) CreateEvaluation(_ context.Context, eval *model.Evaluation) error {
	if f.err != nil {
		return f.err
	}
	f.created = eval
	return nil
}

func (f *fakeStore) GetEvaluation(context.Context, string) (*model.Evaluation, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListEvaluations(context.Context, store.ListFilter) ([]model.Evaluation, error) {
	return nil, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func testEngine(t *testing.T) *scorer.Engine {
	t.Helper()
	engine, err := scorer.New(scorer.DefaultConfig())
	require.NoError(t, err)
	return engine
}

func namedParcel(id, name string, lat, lng float64) model.Parcel {
	return model.Parcel{
		ID:       id,
		Name:     name,
		Centroid: geo.Point{Lat: lat, Lng: lng},
		BBox:     geo.BBox{MinLng: lng, MinLat: lat, MaxLng: lng + 0.1, MaxLat: lat + 0.1},
	}
}

func TestEvaluateRanksAndPersists(t *testing.T) {
	prov := &fakeProvider{attrs: map[string]*model.SiteAttributes{
		"Good":    {ElevationM: 500, FloodRisk: 0.1, PowerKM: 2},
		"Middle":  {ElevationM: 500, FloodRisk: 0.5, PowerKM: 40},
		"Flooded": {ElevationM: 500, FloodRisk: 0.9, PowerKM: 2},
	}}
	st := &fakeStore{}
	p := New(prov, testEngine(t), nil, st, config.PipelineConfig{MaxConcurrentParcels: 2})

	parcels := []model.Parcel{
		namedParcel("a", "Middle", 38.9, -77.5),
		namedParcel("b", "Good", 39.1, -77.3),
		namedParcel("c", "Flooded", 39.3, -77.1),
	}

	eval, err := p.Evaluate(context.Background(), "geojson", parcels, nil)
	require.NoError(t, err)

	require.Len(t, eval.Results, 3)
	assert.Equal(t, "Good", eval.Results[0].Name, "highest score first")
	assert.Equal(t, model.TierGreen, eval.Results[0].Tier)
	assert.Equal(t, model.TierRed, eval.Results[2].Tier, "flood cap forces red")
	assert.True(t, eval.Results[0].Score >= eval.Results[1].Score)
	assert.True(t, eval.Results[1].Score >= eval.Results[2].Score)

	assert.Equal(t, 3, eval.ResultCount)
	assert.Equal(t, "geojson", eval.Source)
	assert.NotEmpty(t, eval.ID)
	assert.False(t, eval.CreatedAt.IsZero())

	// Bounding box spans all parcels.
	assert.InDelta(t, -77.5, eval.BBox.MinLng, 0.001)
	assert.InDelta(t, -77.0, eval.BBox.MaxLng, 0.001)

	require.NotNil(t, st.created)
	assert.Equal(t, eval.ID, st.created.ID)
}

func TestEvaluateSkipsInvalidParcels(t *testing.T) {
	prov := &fakeProvider{attrs: map[string]*model.SiteAttributes{
		"Good": {ElevationM: 500, FloodRisk: 0.1, PowerKM: 2},
		"Bad":  {ElevationM: 500, FloodRisk: 3.0, PowerKM: 2}, // out of range
	}}
	p := New(prov, testEngine(t), nil, nil, config.PipelineConfig{})

	ingestSkipped := []model.SkippedParcel{{Name: "Unparseable", Reason: "ring is not closed"}}
	parcels := []model.Parcel{
		namedParcel("a", "Good", 38.9, -77.5),
		namedParcel("b", "Bad", 39.1, -77.3),
	}

	eval, err := p.Evaluate(context.Background(), "upload", parcels, ingestSkipped)
	require.NoError(t, err, "validation failures must not fail the batch")

	require.Len(t, eval.Results, 1)
	assert.Equal(t, "Good", eval.Results[0].Name)

	require.Len(t, eval.Skipped, 2)
	assert.Equal(t, "Unparseable", eval.Skipped[0].Name, "ingest skips carried through")
	names := []string{eval.Skipped[0].Name, eval.Skipped[1].Name}
	assert.Contains(t, names, "Bad")
}

func TestEvaluateProviderFailureFailsBatch(t *testing.T) {
	prov := &fakeProvider{err: eris.New("upstream timeout")}
	p := New(prov, testEngine(t), nil, nil, config.PipelineConfig{})

	_, err := p.Evaluate(context.Background(), "upload",
		[]model.Parcel{namedParcel("a", "Site", 38.9, -77.5)}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestEvaluateStoreFailure(t *testing.T) {
	prov := &fakeProvider{attrs: map[string]*model.SiteAttributes{
		"Good": {ElevationM: 500, FloodRisk: 0.1, PowerKM: 2},
	}}
	st := &fakeStore{err: eris.New("disk full")}
	p := New(prov, testEngine(t), nil, st, config.PipelineConfig{})

	_, err := p.Evaluate(context.Background(), "upload",
		[]model.Parcel{namedParcel("a", "Good", 38.9, -77.5)}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist evaluation")
}

func TestEvaluateEmptyBatch(t *testing.T) {
	p := New(&fakeProvider{}, testEngine(t), nil, nil, config.PipelineConfig{})

	eval, err := p.Evaluate(context.Background(), "upload", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, eval.Results)
	assert.Zero(t, eval.ResultCount)
}
