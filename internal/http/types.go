package http

import (
	"time"

	"qtumor/internal/classify"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// SubmitRequest carries one feature vector to classify.
type SubmitRequest struct {
	Features []float64 `json:"features"`
}

// SubmitResponse returns the remote job id and the URL to poll it at.
type SubmitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

// CheckResponse is a poll outcome. Success reports that the poll itself
// was answered; the job outcome is in Status.
type CheckResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	classify.Result
}

type JobItem struct {
	ID          string    `json:"id"`
	Backend     string    `json:"backend"`
	Features    int       `json:"features"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Result      any       `json:"result,omitempty"`
}

type ListJobsResponse struct {
	Success bool      `json:"success"`
	Jobs    []JobItem `json:"jobs"`
}

type BackendResponse struct {
	Success bool   `json:"success"`
	Backend string `json:"backend"`
}
