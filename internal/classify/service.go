package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qtumor/internal/circuit"
	"qtumor/internal/config"
	"qtumor/internal/jobs"
	"qtumor/internal/metrics"
	"qtumor/internal/qpu"
)

// Service submits feature vectors to the remote estimator and classifies
// finished jobs. It never waits on a job; callers poll with Check.
type Service struct {
	cfg      *config.Config
	svc      qpu.Service
	selector *qpu.Selector
	store    jobs.HandleStore
	logger   *slog.Logger
}

// NewService wires a Service. logger may be nil.
func NewService(cfg *config.Config, svc qpu.Service, selector *qpu.Selector, st jobs.HandleStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		cfg:      cfg,
		svc:      svc,
		selector: selector,
		store:    st,
		logger:   logger,
	}
}

// ExpectedFeatures is the feature vector length accepted by Submit.
func (s *Service) ExpectedFeatures() int {
	return circuit.TotalParams(s.cfg.Circuit.NumQubits, s.cfg.Circuit.Layers)
}

// Submit builds the ansatz, lays it out on the selected backend and
// submits one estimator job binding features to the ansatz parameters.
// It returns the remote job id without waiting for the job.
func (s *Service) Submit(ctx context.Context, features []float64) (string, error) {
	id, backend, err := s.submit(ctx, features)
	if err != nil {
		metrics.RecordSubmit(backend, KindOf(err).Code())
		s.logger.Warn("job_submit_failed", "backend", backend, "code", KindOf(err).Code(), "error", err)
		return "", err
	}
	metrics.RecordSubmit(backend, "")
	return id, nil
}

func (s *Service) submit(ctx context.Context, features []float64) (string, string, error) {
	numQubits := s.cfg.Circuit.NumQubits
	expected := s.ExpectedFeatures()
	if len(features) != expected {
		return "", "", wrap(KindInput, "", &InputError{Expected: expected, Actual: len(features)})
	}

	backend, err := s.selector.Current(ctx)
	if err != nil {
		return "", "", wrap(KindRemote, "select backend", err)
	}

	ansatz, err := circuit.BuildAnsatz(numQubits, circuit.NewParameters(expected))
	if err != nil {
		return "", backend, wrap(KindInput, "build ansatz", err)
	}
	observable := circuit.AllZ(numQubits)

	target, err := s.svc.Target(ctx, backend)
	if err != nil {
		return "", backend, wrap(KindRemote, "fetch target "+backend, err)
	}
	pm, err := circuit.GeneratePresetPassManager(target, s.cfg.Circuit.OptimizationLevel)
	if err != nil {
		return "", backend, wrap(KindTranspile, "pass manager", err)
	}
	transpiled, err := pm.Run(ansatz)
	if err != nil {
		return "", backend, wrap(KindTranspile, "transpile", err)
	}
	observable, err = observable.ApplyLayout(transpiled.Layout, transpiled.NumQubits)
	if err != nil {
		return "", backend, wrap(KindTranspile, "apply layout", err)
	}

	job, err := s.svc.RunEstimator(ctx, qpu.EstimatorRequest{
		Backend:         backend,
		Circuit:         transpiled,
		Observable:      observable,
		ParameterValues: append([]float64(nil), features...),
	})
	if err != nil {
		return "", backend, wrap(KindRemote, "run estimator", err)
	}

	h := jobs.Handle{
		ID:          job.ID(),
		Backend:     backend,
		Features:    len(features),
		SubmittedAt: time.Now().UTC(),
		Job:         job,
	}
	if err := s.store.Put(ctx, h); err != nil {
		// The job exists remotely; Check recovers it by id.
		s.logger.Warn("job_handle_store_failed", "job_id", h.ID, "error", err)
	}

	s.logger.Info("job_submitted", "job_id", h.ID, "backend", backend, "layout", transpiled.Layout.Physical)
	return h.ID, backend, nil
}

// Check polls the job once and classifies its result when done. Failures,
// including panics, are reported in the Result and never returned.
func (s *Service) Check(ctx context.Context, id string, threshold float64) (res Result) {
	var status jobs.Status
	defer func() {
		if r := recover(); r != nil {
			status = jobs.StatusError
			res = failed(wrap(KindDecode, "check", fmt.Errorf("panic: %v", r)))
		}
		s.finish(ctx, id, status, res)
	}()

	status, res = s.check(ctx, id, threshold)
	return res
}

func (s *Service) check(ctx context.Context, id string, threshold float64) (jobs.Status, Result) {
	job, err := s.lookup(ctx, id)
	if err != nil {
		return jobs.StatusError, failed(err)
	}

	raw, err := job.Status(ctx)
	if err != nil {
		return jobs.StatusError, failed(wrap(KindRemote, "job status", err))
	}

	status := jobs.ParseStatus(raw)
	switch status {
	case jobs.StatusCancelled:
		return status, cancelled()
	case jobs.StatusPending:
		return status, pending(raw)
	}

	pr, err := job.Result(ctx)
	if err != nil {
		return jobs.StatusError, failed(wrap(KindRemote, "job result", err))
	}
	ev, err := pr.Expectation(0)
	if err != nil {
		return jobs.StatusError, failed(wrap(KindDecode, "decode result", err))
	}
	return status, complete(ev, threshold)
}

// lookup returns the live job for id, consulting the handle store first
// and the remote service on a miss.
func (s *Service) lookup(ctx context.Context, id string) (qpu.Job, error) {
	h, ok, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Warn("job_handle_lookup_failed", "job_id", id, "error", err)
	}
	if ok && h.Job != nil {
		return h.Job, nil
	}

	job, err := s.svc.Job(ctx, id)
	if err != nil {
		if errors.Is(err, qpu.ErrJobNotFound) {
			return nil, wrap(KindLookup, "lookup job "+id, err)
		}
		return nil, wrap(KindRemote, "lookup job "+id, err)
	}
	return job, nil
}

func (s *Service) finish(ctx context.Context, id string, status jobs.Status, res Result) {
	metrics.RecordPoll(res.Status, res.Code, res.Prediction)
	s.logger.Info("job_polled", "job_id", id, "status", res.Status, "code", res.Code, "prediction", res.Prediction)

	if !status.Terminal() {
		return
	}
	if rr, ok := s.store.(jobs.ResultRecorder); ok {
		payload, err := json.Marshal(res)
		if err == nil {
			err = rr.RecordResult(ctx, id, status, payload)
		}
		if err != nil {
			s.logger.Warn("job_result_record_failed", "job_id", id, "error", err)
		}
	}
	// Handles stay after polling-path errors so a later poll can retry.
	if s.cfg.Store.EvictOnTerminal && status != jobs.StatusError {
		if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, jobs.ErrHandleNotFound) {
			s.logger.Warn("job_handle_evict_failed", "job_id", id, "error", err)
		}
	}
}

// Backend returns the currently selected backend.
func (s *Service) Backend(ctx context.Context) (string, error) {
	return s.selector.Current(ctx)
}

// ReselectBackend runs backend selection again.
func (s *Service) ReselectBackend(ctx context.Context) (string, error) {
	name, err := s.selector.Reselect(ctx)
	if err != nil {
		return "", wrap(KindRemote, "reselect backend", err)
	}
	s.logger.Info("backend_selected", "backend", name)
	return name, nil
}

// Forget removes a job handle from the store. It returns
// jobs.ErrHandleNotFound for unknown ids.
func (s *Service) Forget(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Store exposes the handle store for listing and health checks.
func (s *Service) Store() jobs.HandleStore {
	return s.store
}
