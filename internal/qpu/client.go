package qpu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"qtumor/internal/circuit"
	"qtumor/internal/config"
)

// ErrJobNotFound is returned when the remote service does not know a job id.
var ErrJobNotFound = errors.New("job not found")

// BackendStatus is the subset of backend status and configuration used for
// backend selection.
type BackendStatus struct {
	Name        string `json:"name"`
	Operational bool   `json:"operational"`
	Simulator   bool   `json:"simulator"`
	PendingJobs int    `json:"pendingJobs"`
	NumQubits   int    `json:"numQubits"`
	Message     string `json:"message,omitempty"`
}

// EstimatorRequest is one estimator submission with a single pub: a
// transpiled circuit, an observable laid out on the same physical qubits
// and one parameter binding.
type EstimatorRequest struct {
	Backend         string
	Circuit         *circuit.Circuit
	Observable      circuit.Observable
	ParameterValues []float64
}

// Job is a handle on a remote estimator job. Handles are cheap and can be
// recreated from an id with Service.Job.
type Job interface {
	ID() string
	Backend() string
	Status(ctx context.Context) (string, error)
	Result(ctx context.Context) (*PrimitiveResult, error)
}

// Service is the contract with the remote quantum runtime.
type Service interface {
	Backends(ctx context.Context) ([]BackendStatus, error)
	Target(ctx context.Context, backend string) (circuit.Target, error)
	RunEstimator(ctx context.Context, req EstimatorRequest) (Job, error)
	Job(ctx context.Context, id string) (Job, error)
}

// APIError is a non-2xx response from the runtime API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("runtime %s %s failed with status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("runtime %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

var supportedChannels = map[string]struct{}{
	"ibm_quantum_platform": {},
	"ibm_cloud":            {},
	"ibm_quantum":          {},
}

// NewServiceFromConfig constructs the runtime Service described by the
// configuration. Only the HTTP runtime API is supported today.
func NewServiceFromConfig(cfg *config.Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	channel := strings.ToLower(strings.TrimSpace(cfg.Runtime.Channel))
	if _, ok := supportedChannels[channel]; !ok {
		return nil, fmt.Errorf("unsupported runtime channel: %s", cfg.Runtime.Channel)
	}
	return NewHTTPService(cfg.Runtime)
}

// HTTPService implements Service over the Qiskit Runtime REST API.
type HTTPService struct {
	baseURL  string
	token    string
	instance string
	client   *http.Client
}

// NewHTTPService creates an HTTPService from RuntimeConfig.
func NewHTTPService(cfg config.RuntimeConfig) (*HTTPService, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("runtime.baseURL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("runtime token is required")
	}

	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}

	return &HTTPService{
		baseURL:  base,
		token:    cfg.Token,
		instance: cfg.Instance,
		client:   &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}, nil
}

func (s *HTTPService) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
	if s.instance != "" {
		req.Header.Set("Service-CRN", s.instance)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type backendsResponse struct {
	Devices []string `json:"devices"`
}

type backendStatusResponse struct {
	State       bool   `json:"state"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	LengthQueue int    `json:"length_queue"`
}

type backendConfigResponse struct {
	BackendName string   `json:"backend_name"`
	NQubits     int      `json:"n_qubits"`
	BasisGates  []string `json:"basis_gates"`
	CouplingMap [][]int  `json:"coupling_map"`
	Simulator   bool     `json:"simulator"`
}

type backendPropertiesResponse struct {
	Qubits [][]struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	} `json:"qubits"`
}

// Backends lists every backend visible to the instance with its status.
func (s *HTTPService) Backends(ctx context.Context) ([]BackendStatus, error) {
	var list backendsResponse
	if err := s.do(ctx, http.MethodGet, "/backends", nil, &list); err != nil {
		return nil, err
	}

	out := make([]BackendStatus, 0, len(list.Devices))
	for _, name := range list.Devices {
		escaped := url.PathEscape(name)

		var st backendStatusResponse
		if err := s.do(ctx, http.MethodGet, "/backends/"+escaped+"/status", nil, &st); err != nil {
			return nil, fmt.Errorf("backend %s status: %w", name, err)
		}
		var conf backendConfigResponse
		if err := s.do(ctx, http.MethodGet, "/backends/"+escaped+"/configuration", nil, &conf); err != nil {
			return nil, fmt.Errorf("backend %s configuration: %w", name, err)
		}

		out = append(out, BackendStatus{
			Name:        name,
			Operational: st.State && (st.Status == "" || strings.EqualFold(st.Status, "active")),
			Simulator:   conf.Simulator,
			PendingJobs: st.LengthQueue,
			NumQubits:   conf.NQubits,
			Message:     st.Message,
		})
	}
	return out, nil
}

// Target returns the transpilation target of a backend. Qubit error data
// comes from the properties endpoint when the backend publishes it.
func (s *HTTPService) Target(ctx context.Context, backend string) (circuit.Target, error) {
	escaped := url.PathEscape(backend)

	var conf backendConfigResponse
	if err := s.do(ctx, http.MethodGet, "/backends/"+escaped+"/configuration", nil, &conf); err != nil {
		return circuit.Target{}, fmt.Errorf("backend %s configuration: %w", backend, err)
	}

	t := circuit.Target{
		Name:       backend,
		NumQubits:  conf.NQubits,
		BasisGates: conf.BasisGates,
	}
	for _, e := range conf.CouplingMap {
		if len(e) != 2 {
			continue
		}
		t.CouplingMap = append(t.CouplingMap, [2]int{e[0], e[1]})
	}

	var props backendPropertiesResponse
	err := s.do(ctx, http.MethodGet, "/backends/"+escaped+"/properties", nil, &props)
	var apiErr *APIError
	switch {
	case err == nil:
		t.QubitErrors = make(map[int]float64, len(props.Qubits))
		for q, entries := range props.Qubits {
			for _, p := range entries {
				if p.Name == "readout_error" {
					t.QubitErrors[q] = p.Value
				}
			}
		}
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		// Simulators and some devices publish no properties.
	default:
		return circuit.Target{}, fmt.Errorf("backend %s properties: %w", backend, err)
	}

	return t, nil
}

type estimatorParams struct {
	Version int     `json:"version"`
	Pubs    [][]any `json:"pubs"`
}

type createJobRequest struct {
	ProgramID string          `json:"program_id"`
	Backend   string          `json:"backend"`
	Params    estimatorParams `json:"params"`
}

type createJobResponse struct {
	ID      string `json:"id"`
	Backend string `json:"backend"`
}

// RunEstimator submits one estimator job and returns its handle without
// waiting for execution.
func (s *HTTPService) RunEstimator(ctx context.Context, req EstimatorRequest) (Job, error) {
	if req.Circuit == nil {
		return nil, errors.New("nil circuit")
	}
	if req.Backend == "" {
		return nil, errors.New("backend is required")
	}

	body := createJobRequest{
		ProgramID: "estimator",
		Backend:   req.Backend,
		Params: estimatorParams{
			Version: 2,
			Pubs: [][]any{{
				req.Circuit.QASM3(),
				req.Observable.Map(),
				[][]float64{req.ParameterValues},
			}},
		},
	}

	var created createJobResponse
	if err := s.do(ctx, http.MethodPost, "/jobs", body, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, errors.New("runtime returned an empty job id")
	}

	backend := created.Backend
	if backend == "" {
		backend = req.Backend
	}
	return &httpJob{svc: s, id: created.ID, backend: backend}, nil
}

type jobResponse struct {
	ID      string `json:"id"`
	Backend string `json:"backend"`
	Status  string `json:"status"`
	State   struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"state"`
}

func (s *HTTPService) getJob(ctx context.Context, id string) (jobResponse, error) {
	var job jobResponse
	err := s.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &job)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return job, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// Job recovers a handle for a job submitted earlier, possibly by another
// process.
func (s *HTTPService) Job(ctx context.Context, id string) (Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty id", ErrJobNotFound)
	}
	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &httpJob{svc: s, id: id, backend: job.Backend}, nil
}

type httpJob struct {
	svc     *HTTPService
	id      string
	backend string
}

func (j *httpJob) ID() string      { return j.id }
func (j *httpJob) Backend() string { return j.backend }

// Status reports the job state in the SDK's vocabulary (QUEUED, RUNNING,
// DONE, CANCELLED, ERROR).
func (j *httpJob) Status(ctx context.Context) (string, error) {
	job, err := j.svc.getJob(ctx, j.id)
	if err != nil {
		return "", err
	}
	raw := job.State.Status
	if raw == "" {
		raw = job.Status
	}
	return NormalizeStatus(raw), nil
}

func (j *httpJob) Result(ctx context.Context) (*PrimitiveResult, error) {
	var res PrimitiveResult
	if err := j.svc.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(j.id)+"/results", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// NormalizeStatus maps REST job states onto the SDK status names. Unknown
// states pass through unchanged.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued":
		return "QUEUED"
	case "running":
		return "RUNNING"
	case "completed":
		return "DONE"
	case "cancelled", "cancelled - ran too long":
		return "CANCELLED"
	case "failed":
		return "ERROR"
	default:
		return raw
	}
}
