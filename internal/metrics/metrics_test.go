package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	// Record a single request and ensure it appears in the export.
	RecordRequest("GET", "/v1/jobs/:id", 200, 42)

	out := Export()
	if !strings.Contains(out, "qtumor_http_requests_total{method=\"GET\",path=\"/v1/jobs/:id\",status=\"200\"}") {
		t.Fatalf("expected HTTP request metric for GET /v1/jobs/:id in export, got:\n%s", out)
	}
	if !strings.Contains(out, "qtumor_http_request_duration_ms_sum") || !strings.Contains(out, "qtumor_http_request_duration_ms_count") {
		t.Fatalf("expected latency metrics headers in export, got:\n%s", out)
	}
}

func TestRecordJobMetrics(t *testing.T) {
	RecordSubmit("ibm_fez", "")
	RecordSubmit("", "INVALID_INPUT")
	RecordPoll("complete", "", "Tumor Detected")
	RecordPoll("error", "JOB_CANCELLED", "")

	out := Export()
	for _, want := range []string{
		"qtumor_jobs_submitted_total{backend=\"ibm_fez\"}",
		"qtumor_job_submit_failures_total{code=\"INVALID_INPUT\"}",
		"qtumor_job_polls_total{status=\"complete\",code=\"\"}",
		"qtumor_job_polls_total{status=\"error\",code=\"JOB_CANCELLED\"}",
		"qtumor_predictions_total{prediction=\"Tumor Detected\"}",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in export, got:\n%s", want, out)
		}
	}
}

func TestRecordRetentionHandles(t *testing.T) {
	RecordRetentionHandles(0)
	RecordRetentionHandles(3)

	out := Export()
	if !strings.Contains(out, "qtumor_retention_handles_deleted_total") {
		t.Fatalf("expected retention counter in export, got:\n%s", out)
	}
}
