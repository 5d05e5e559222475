package classify

import "math"

const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusError    = "error"

	PredictionTumor   = "Tumor Detected"
	PredictionNoTumor = "No Tumor Detected"

	// DefaultThreshold is the decision boundary used when callers do not
	// pass one.
	DefaultThreshold = 0.0
)

// Result is the outcome of one poll of a submitted job.
type Result struct {
	Status           string   `json:"status"`
	Message          string   `json:"message,omitempty"`
	Code             string   `json:"code,omitempty"`
	ExpectationValue *float64 `json:"expectation_value,omitempty"`
	Prediction       string   `json:"prediction,omitempty"`
}

// Round4 rounds v to four decimal places, halves away from zero.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Predict maps an expectation value to a label. Values on the threshold
// count as detected. Callers pass the unrounded value.
func Predict(ev, threshold float64) string {
	if ev >= threshold {
		return PredictionTumor
	}
	return PredictionNoTumor
}

func complete(ev, threshold float64) Result {
	rounded := Round4(ev)
	return Result{
		Status:           StatusComplete,
		ExpectationValue: &rounded,
		Prediction:       Predict(ev, threshold),
	}
}

func pending(raw string) Result {
	return Result{Status: StatusPending, Message: "Job is still running... (Status: " + raw + ")"}
}

func cancelled() Result {
	return Result{
		Status:  StatusError,
		Code:    KindCancelled.Code(),
		Message: "Job was canceled on the quantum service.",
	}
}

func failed(err error) Result {
	code := KindOf(err).Code()
	return Result{
		Status:  StatusError,
		Code:    code,
		Message: "Failed to retrieve job result: " + err.Error(),
	}
}
