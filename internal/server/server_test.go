package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/model"
	"github.com/sitescout/sitescout/internal/pipeline"
	"github.com/sitescout/sitescout/internal/provider"
	"github.com/sitescout/sitescout/internal/scorer"
	"github.com/sitescout/sitescout/internal/store"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

const validGeoJSON = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "properties": {"name": "Parcel A"}, "geometry": {"type": "Polygon",
		"coordinates": [[[-77.50, 38.90], [-77.40, 38.90], [-77.40, 39.00], [-77.50, 39.00], [-77.50, 38.90]]]}}
]}`

func testServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	engine, err := scorer.New(scorer.DefaultConfig())
	require.NoError(t, err)

	p := pipeline.New(provider.New(config.ProviderConfig{Mode: "seeded", Seed: 1}),
		engine, nil, st, config.PipelineConfig{})

	return New(p, st, nil), st
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestCreateEvaluation(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/evaluations", validGeoJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var eval model.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))

	assert.NotEmpty(t, eval.ID)
	assert.Equal(t, "upload", eval.Source)
	require.Len(t, eval.Results, 1)
	assert.Equal(t, "Parcel A", eval.Results[0].Name)
	assert.GreaterOrEqual(t, eval.Results[0].Score, 0)
	assert.LessOrEqual(t, eval.Results[0].Score, 100)
	assert.NotEmpty(t, eval.Results[0].Tier)
	assert.NotEmpty(t, eval.Results[0].Justification)
}

func TestCreateEvaluationSourceQuery(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/evaluations?source=drawn", validGeoJSON)
	require.Equal(t, http.StatusCreated, rec.Code)

	var eval model.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	assert.Equal(t, "drawn", eval.Source)
}

func TestCreateEvaluationBadRequests(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"type": "FeatureCollection"`},
		{"unsupported type", `{"type": "GeometryCollection", "geometries": []}`},
		{"no valid parcels", `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "geometry": {"type": "Polygon",
				"coordinates": [[[-77.5, 38.9], [-77.4, 38.9], [-77.5, 38.9]]]}}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/evaluations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateEvaluationReportsSkipped(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"type": "FeatureCollection", "features": [
		{"type": "Feature", "properties": {"name": "Open"}, "geometry": {"type": "Polygon",
			"coordinates": [[[-77.5, 38.9], [-77.4, 38.9], [-77.4, 39.0], [-77.5, 39.0]]]}}
	]}`

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/evaluations", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error   string                `json:"error"`
		Skipped []model.SkippedParcel `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "no valid parcels")
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "Open", resp.Skipped[0].Name)
}

func TestGetEvaluation(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/evaluations", validGeoJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/evaluations/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Results, 1)
}

func TestGetEvaluationNotFound(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/evaluations/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEvaluations(t *testing.T) {
	srv, _ := testServer(t)

	t.Run("empty store", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/evaluations", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"evaluations": []}`, rec.Body.String())
	})

	t.Run("after create", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/evaluations", validGeoJSON)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(t, srv, http.MethodGet, "/api/v1/evaluations", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Evaluations []model.Evaluation `json:"evaluations"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Evaluations, 1)
		assert.Equal(t, 1, resp.Evaluations[0].ResultCount)
	})
}

func TestListEvaluationsNoStore(t *testing.T) {
	engine, err := scorer.New(scorer.DefaultConfig())
	require.NoError(t, err)
	p := pipeline.New(provider.New(config.ProviderConfig{}), engine, nil, nil, config.PipelineConfig{})
	srv := New(p, nil, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/evaluations", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
