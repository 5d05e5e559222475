package jobs

import "strings"

// Status is the lifecycle state of a remote job as seen by a poller.
// Remote services report free text; ParseStatus is the only place that
// text is interpreted.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// ParseStatus translates a remote status string, case-insensitively:
// anything mentioning CANCELLED is cancelled, anything else without DONE
// is still pending, and the rest is done. StatusError is never derived
// from text; it marks failures on the polling path itself.
func ParseStatus(raw string) Status {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "CANCELLED"):
		return StatusCancelled
	case !strings.Contains(upper, "DONE"):
		return StatusPending
	default:
		return StatusDone
	}
}

// Terminal reports whether no further status change is expected.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled || s == StatusError
}
