package qpu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoBackend is returned when no backend satisfies a BackendFilter.
var ErrNoBackend = errors.New("no backend matches the filter")

// BackendFilter restricts backend selection.
type BackendFilter struct {
	Operational bool
	Simulator   bool
	MinQubits   int
}

// LeastBusy returns the matching backend with the fewest pending jobs.
// Ties are broken by name so selection is deterministic.
func LeastBusy(ctx context.Context, svc Service, filter BackendFilter) (BackendStatus, error) {
	backends, err := svc.Backends(ctx)
	if err != nil {
		return BackendStatus{}, err
	}

	candidates := make([]BackendStatus, 0, len(backends))
	for _, b := range backends {
		if filter.Operational && !b.Operational {
			continue
		}
		if b.Simulator != filter.Simulator {
			continue
		}
		if b.NumQubits < filter.MinQubits {
			continue
		}
		candidates = append(candidates, b)
	}
	if len(candidates) == 0 {
		return BackendStatus{}, ErrNoBackend
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PendingJobs != candidates[j].PendingJobs {
			return candidates[i].PendingJobs < candidates[j].PendingJobs
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates[0], nil
}

// Selector owns the choice of backend. A pinned name is used as-is;
// otherwise the least busy operational device is chosen on first use and
// kept until Reselect is called.
type Selector struct {
	svc    Service
	pinned string
	filter BackendFilter

	mu      sync.Mutex
	current string
}

// NewSelector creates a Selector. An empty pinned name enables least-busy
// selection with filter.
func NewSelector(svc Service, pinned string, filter BackendFilter) *Selector {
	return &Selector{svc: svc, pinned: pinned, filter: filter}
}

// Current returns the selected backend name, selecting one if needed.
func (s *Selector) Current(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != "" {
		return s.current, nil
	}
	return s.selectLocked(ctx)
}

// Reselect discards the current choice and selects again.
func (s *Selector) Reselect(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	return s.selectLocked(ctx)
}

func (s *Selector) selectLocked(ctx context.Context) (string, error) {
	if s.pinned != "" {
		s.current = s.pinned
		return s.current, nil
	}
	b, err := LeastBusy(ctx, s.svc, s.filter)
	if err != nil {
		return "", fmt.Errorf("select backend: %w", err)
	}
	s.current = b.Name
	return s.current, nil
}
