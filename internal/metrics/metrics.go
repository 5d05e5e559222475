package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and job traffic.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsSubmitted  = make(map[string]int64)
	submitFailures = make(map[string]int64)
	pollsTotal     = make(map[pollKey]int64)
	predictions    = make(map[string]int64)

	retentionHandlesDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type pollKey struct {
	Status string
	Code   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordSubmit counts a submission attempt. code is empty on success.
func RecordSubmit(backend, code string) {
	mu.Lock()
	defer mu.Unlock()

	if code == "" {
		jobsSubmitted[backend]++
		return
	}
	submitFailures[code]++
}

// RecordPoll counts a poll by its outcome status and error code.
func RecordPoll(status, code, prediction string) {
	mu.Lock()
	defer mu.Unlock()

	pollsTotal[pollKey{Status: status, Code: code}]++
	if prediction != "" {
		predictions[prediction]++
	}
}

// RecordRetentionHandles increments the counter of handles deleted by TTL.
func RecordRetentionHandles(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionHandlesDeleted += deleted
}

func writeCounterMap(b *strings.Builder, name, help, label string, m map[string]int64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s=\"%s\"} %d\n", name, label, k, m[k])
	}
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP qtumor_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE qtumor_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "qtumor_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP qtumor_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE qtumor_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP qtumor_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE qtumor_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "qtumor_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "qtumor_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	writeCounterMap(&b, "qtumor_jobs_submitted_total", "Total estimator jobs submitted by backend", "backend", jobsSubmitted)
	writeCounterMap(&b, "qtumor_job_submit_failures_total", "Total failed submissions by error code", "code", submitFailures)

	b.WriteString("# HELP qtumor_job_polls_total Total job polls by outcome\n")
	b.WriteString("# TYPE qtumor_job_polls_total counter\n")

	var pollKeys []pollKey
	for k := range pollsTotal {
		pollKeys = append(pollKeys, k)
	}
	sort.Slice(pollKeys, func(i, j int) bool {
		if pollKeys[i].Status != pollKeys[j].Status {
			return pollKeys[i].Status < pollKeys[j].Status
		}
		return pollKeys[i].Code < pollKeys[j].Code
	})
	for _, k := range pollKeys {
		fmt.Fprintf(&b, "qtumor_job_polls_total{status=\"%s\",code=\"%s\"} %d\n", k.Status, k.Code, pollsTotal[k])
	}

	writeCounterMap(&b, "qtumor_predictions_total", "Total completed classifications by prediction", "prediction", predictions)

	b.WriteString("# HELP qtumor_retention_handles_deleted_total Total job handles deleted by TTL\n")
	b.WriteString("# TYPE qtumor_retention_handles_deleted_total counter\n")
	fmt.Fprintf(&b, "qtumor_retention_handles_deleted_total %d\n", retentionHandlesDeleted)

	return b.String()
}
