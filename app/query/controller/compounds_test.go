package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eqcalc/thermox/app/query/types"
	"github.com/eqcalc/thermox/pkg/cache"
	"github.com/eqcalc/thermox/pkg/chem"
)

type stubResolver struct {
	inchis map[string]string
}

func (s *stubResolver) Resolve(_ context.Context, id string) (*string, error) {
	if inchi, ok := s.inchis[id]; ok {
		return &inchi, nil
	}
	return nil, nil
}

type stubPredictor struct{}

func (stubPredictor) DissociationConstants(_ context.Context, _ string) ([]float64, string, error) {
	return []float64{12.9, 6.5}, "smiles", nil
}

type stubConverter struct{}

func (stubConverter) Convert(_ context.Context, _ string, _, _ chem.Format) (string, error) {
	return "InChI=1S/major", nil
}

type stubExtractor struct{}

func (stubExtractor) FormulaAndCharge(_ context.Context, _ string) (map[string]int, int, error) {
	return map[string]int{"C": 6, "H": 12, "O": 6}, 0, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	resolver := &stubResolver{inchis: map[string]string{
		"C00031": "InChI=1S/C6H12O6",
	}}
	tools := chem.Tools{Predictor: stubPredictor{}, Converter: stubConverter{}, Extractor: stubExtractor{}}

	ccache, err := cache.New(context.Background(), zap.NewNop(), resolver, tools, cache.Options{
		CachePath: filepath.Join(t.TempDir(), "compounds.json"),
	})
	require.NoError(t, err)

	app := &types.App{Cache: ccache, Logger: zap.NewNop()}
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)

	server := httptest.NewServer(WithCORS(router))
	t.Cleanup(server.Close)
	return server
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetCompound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/compounds/C00031")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		ID      string    `json:"id"`
		PKas    []float64 `json:"pKas"`
		MajorMS int       `json:"majorMS"`
		NHs     []int     `json:"nHs"`
		Zs      []int     `json:"zs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "C00031", body.ID)
	assert.Equal(t, []float64{12.9, 6.5}, body.PKas)
	assert.Equal(t, 1, body.MajorMS)
	assert.Len(t, body.NHs, 3)
}

func TestTransformCompound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/compounds/C00031/transform?ph=7&is=0.25&t=298.15")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "C00031", body["id"])
	assert.Equal(t, 7.0, body["ph"])
	assert.NotNil(t, body["ddg0"])
}

func TestTransformCompoundDefaults(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/compounds/C00031/transform")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7.0, body["ph"])
	assert.Equal(t, 0.25, body["ionic_strength"])
	assert.Equal(t, 298.15, body["temperature"])
}

func TestTransformCompoundBadParam(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/compounds/C00031/transform?ph=acid")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransformNeutralReference(t *testing.T) {
	server := newTestServer(t)

	// The stub ladder has charges [-1, 0, 1]; a neutral reference exists.
	resp, err := http.Get(server.URL + "/compounds/C00031/transform?ref=neutral")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
