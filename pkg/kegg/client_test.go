package kegg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eqcalc/thermox/pkg/chem"
	"github.com/eqcalc/thermox/pkg/retry"
)

type stubConverter struct {
	out string
	err error
}

func (s *stubConverter) Convert(_ context.Context, _ string, _, _ chem.Format) (string, error) {
	return s.out, s.err
}

func fastOpts(endpoints ...string) Opts {
	return Opts{
		Endpoints: endpoints,
		RPS:       1000,
		Burst:     1000,
		Timeout:   2 * time.Second,
		Retry: &retry.Config{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   1,
		},
	}
}

func TestCompoundID(t *testing.T) {
	assert.Equal(t, "C00031", CompoundID(31))
	assert.Equal(t, "C15670", CompoundID(15670))
}

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get/cpd:C00031/mol", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("molfile body"))
	}))
	defer server.Close()

	client := New(zap.NewNop(), &stubConverter{out: "InChI=1S/C6H12O6"}, fastOpts(server.URL))
	inchi, err := client.Resolve(context.Background(), "C00031")

	require.NoError(t, err)
	require.NotNil(t, inchi)
	assert.Equal(t, "InChI=1S/C6H12O6", *inchi)
}

func TestResolveNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(zap.NewNop(), &stubConverter{}, fastOpts(server.URL))
	inchi, err := client.Resolve(context.Background(), "C00000")

	require.NoError(t, err, "a structureless compound is not an error")
	assert.Nil(t, inchi)
}

func TestResolveUnconvertibleStructure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("empty molfile"))
	}))
	defer server.Close()

	client := New(zap.NewNop(), &stubConverter{err: chem.ErrNoStructure}, fastOpts(server.URL))
	inchi, err := client.Resolve(context.Background(), "C00282")

	require.NoError(t, err)
	assert.Nil(t, inchi)
}

func TestResolveTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(zap.NewNop(), &stubConverter{}, fastOpts(server.URL))
	_, err := client.Resolve(context.Background(), "C00031")

	require.Error(t, err)
	var resErr *ResolutionError
	assert.True(t, errors.As(err, &resErr))
	assert.Equal(t, "C00031", resErr.ID)
}

func TestMolForEndpointFailover(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("molfile"))
	}))
	defer good.Close()

	client := New(zap.NewNop(), &stubConverter{}, fastOpts(bad.URL, good.URL))
	mol, found, err := client.MolFor(context.Background(), "C00031")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "molfile", mol)
}

func TestMolForRetriesTransientFailure(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("molfile"))
	}))
	defer server.Close()

	client := New(zap.NewNop(), &stubConverter{}, fastOpts(server.URL))
	mol, found, err := client.MolFor(context.Background(), "C00031")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "molfile", mol)
	assert.Equal(t, int64(2), hits.Load())
}
