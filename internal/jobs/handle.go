package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"qtumor/internal/qpu"
)

// ErrHandleNotFound is returned by HandleStore.Delete when no handle
// exists for the id.
var ErrHandleNotFound = errors.New("job handle not found")

// Handle is what the service remembers about a submitted job. Job is the
// live remote handle; it only survives in in-process stores and is
// recovered by id otherwise.
type Handle struct {
	ID          string    `json:"id"`
	Backend     string    `json:"backend"`
	Features    int       `json:"features"`
	SubmittedAt time.Time `json:"submittedAt"`

	Job qpu.Job `json:"-"`
}

// HandleStore keeps job handles between submission and polling. Handles
// are inserted on submit and removed explicitly, on terminal status when
// configured, or by retention.
type HandleStore interface {
	Put(ctx context.Context, h Handle) error
	Get(ctx context.Context, id string) (Handle, bool, error)
	// Delete returns ErrHandleNotFound when there is nothing to delete.
	Delete(ctx context.Context, id string) error
}

// Record is a handle together with the last classification outcome
// recorded for it.
type Record struct {
	Handle
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Lister is implemented by stores that can enumerate their handles,
// newest first.
type Lister interface {
	List(ctx context.Context, limit, offset int) ([]Record, error)
}

// Expirer is implemented by stores that support TTL cleanup.
type Expirer interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ResultRecorder is implemented by stores that persist the last
// classification outcome of a job alongside its handle.
type ResultRecorder interface {
	RecordResult(ctx context.Context, id string, status Status, result json.RawMessage) error
}

// Pinger is implemented by stores backed by a network service.
type Pinger interface {
	Ping(ctx context.Context) error
}
