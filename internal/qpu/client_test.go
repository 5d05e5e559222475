package qpu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtumor/internal/circuit"
	"qtumor/internal/config"
)

// fakeRuntime serves the subset of the runtime REST API used by HTTPService.
type fakeRuntime struct {
	t         *testing.T
	jobStatus string
	results   string
	submitted map[string]any
}

func (f *fakeRuntime) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/backends", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"devices":["ibm_busy","ibm_idle","ibm_sim"]}`))
	})
	mux.HandleFunc("/backends/ibm_busy/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":true,"status":"active","length_queue":40}`))
	})
	mux.HandleFunc("/backends/ibm_idle/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":true,"status":"active","length_queue":3}`))
	})
	mux.HandleFunc("/backends/ibm_sim/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":true,"status":"active","length_queue":0}`))
	})
	mux.HandleFunc("/backends/ibm_sim/configuration", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"backend_name":"ibm_sim","n_qubits":32,"simulator":true}`))
	})
	deviceConfig := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"n_qubits":4,"basis_gates":["cz","rz","sx","x"],"coupling_map":[[0,1],[1,0],[1,2],[2,3]],"simulator":false}`))
	}
	mux.HandleFunc("/backends/ibm_busy/configuration", deviceConfig)
	mux.HandleFunc("/backends/ibm_idle/configuration", deviceConfig)
	mux.HandleFunc("/backends/ibm_idle/properties", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"qubits":[[{"name":"T1","value":100},{"name":"readout_error","value":0.02}],[{"name":"readout_error","value":0.01}]]}`))
	})
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&f.submitted); err != nil {
			f.t.Errorf("decode submit body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"job-123","backend":"ibm_idle"}`))
	})
	mux.HandleFunc("/jobs/job-123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-123","backend":"ibm_idle","status":"Queued","state":{"status":"` + f.jobStatus + `"}}`))
	})
	mux.HandleFunc("/jobs/job-123/results", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(f.results))
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Service-CRN") != "crn:test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func newTestService(t *testing.T) (*HTTPService, *fakeRuntime) {
	t.Helper()
	fake := &fakeRuntime{t: t, jobStatus: "Completed", results: `{"results":[{"data":{"evs":0.123456}}]}`}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	svc, err := NewHTTPService(config.RuntimeConfig{BaseURL: srv.URL + "/", Instance: "crn:test", Token: "test-token"})
	require.NoError(t, err)
	return svc, fake
}

func TestNewServiceFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Runtime.Token = "tok"

	svc, err := NewServiceFromConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, svc)

	cfg.Runtime.Channel = "local"
	_, err = NewServiceFromConfig(cfg)
	assert.Error(t, err)

	_, err = NewHTTPService(config.RuntimeConfig{BaseURL: "http://x"})
	assert.Error(t, err, "token is required")
}

func TestHTTPServiceBackendsAndLeastBusy(t *testing.T) {
	svc, _ := newTestService(t)

	backends, err := svc.Backends(context.Background())
	require.NoError(t, err)
	require.Len(t, backends, 3)

	best, err := LeastBusy(context.Background(), svc, BackendFilter{Operational: true, Simulator: false})
	require.NoError(t, err)
	assert.Equal(t, "ibm_idle", best.Name)
	assert.Equal(t, 3, best.PendingJobs)

	_, err = LeastBusy(context.Background(), svc, BackendFilter{Operational: true, MinQubits: 100})
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestHTTPServiceTarget(t *testing.T) {
	svc, _ := newTestService(t)

	target, err := svc.Target(context.Background(), "ibm_idle")
	require.NoError(t, err)
	assert.Equal(t, 4, target.NumQubits)
	assert.Equal(t, []string{"cz", "rz", "sx", "x"}, target.BasisGates)
	assert.Len(t, target.CouplingMap, 4)
	assert.Equal(t, map[int]float64{0: 0.02, 1: 0.01}, target.QubitErrors)

	// ibm_busy has no properties endpoint; a 404 is tolerated.
	target, err = svc.Target(context.Background(), "ibm_busy")
	require.NoError(t, err)
	assert.Nil(t, target.QubitErrors)
}

func TestHTTPServiceRunEstimatorAndPoll(t *testing.T) {
	svc, fake := newTestService(t)

	c, err := circuit.BuildAnsatz(2, circuit.NewParameters(4))
	require.NoError(t, err)

	job, err := svc.RunEstimator(context.Background(), EstimatorRequest{
		Backend:         "ibm_idle",
		Circuit:         c,
		Observable:      circuit.AllZ(2),
		ParameterValues: []float64{0.1, 0.2, 0.3, 0.4},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-123", job.ID())
	assert.Equal(t, "ibm_idle", job.Backend())

	assert.Equal(t, "estimator", fake.submitted["program_id"])
	params := fake.submitted["params"].(map[string]any)
	assert.Equal(t, float64(2), params["version"])
	pubs := params["pubs"].([]any)
	require.Len(t, pubs, 1)
	pub := pubs[0].([]any)
	require.Len(t, pub, 3)
	assert.True(t, strings.HasPrefix(pub[0].(string), "OPENQASM 3.0;"))
	assert.Equal(t, map[string]any{"ZZ": float64(1)}, pub[1])
	assert.Equal(t, []any{[]any{0.1, 0.2, 0.3, 0.4}}, pub[2])

	status, err := job.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DONE", status)

	res, err := job.Result(context.Background())
	require.NoError(t, err)
	v, err := res.Expectation(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.123456, v, 1e-12)
}

func TestHTTPServiceJobLookup(t *testing.T) {
	svc, fake := newTestService(t)
	fake.jobStatus = "Cancelled"

	job, err := svc.Job(context.Background(), "job-123")
	require.NoError(t, err)
	status, err := job.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", status)

	_, err = svc.Job(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = svc.Job(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestHTTPServiceAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"errors":[{"message":"boom"}]}`))
	}))
	defer srv.Close()

	svc, err := NewHTTPService(config.RuntimeConfig{BaseURL: srv.URL, Token: "t"})
	require.NoError(t, err)

	_, err = svc.Backends(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "boom")
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"Queued":    "QUEUED",
		"RUNNING":   "RUNNING",
		"Completed": "DONE",
		"Cancelled": "CANCELLED",
		"Failed":    "ERROR",
		"Mystery":   "Mystery",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeStatus(in), in)
	}
}
