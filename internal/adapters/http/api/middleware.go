package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/tatami/pkg/metrics"
)

// failureSeverity ranks the error codes the API answers with. Rejected
// placements and in-flight retries are normal scheduling traffic; only
// server-side failures page anyone.
var failureSeverity = map[string]string{ //nolint:gochecknoglobals // static lookup
	"placement_rejected": "low",
	"command_pending":    "low",
	"not_found":          "medium",
	"invalid_request":    "medium",
	"cancelled":          "high",
	"internal":           "high",
}

// MetricsMiddleware records request counts and latency per endpoint. Failed
// requests are additionally counted under the error code written in the
// response body, so a clash rejected by the conflict engine is told apart
// from a malformed request or a retry racing its first attempt.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, elapsed)

		if rec.status < http.StatusBadRequest {
			return
		}
		code := rec.failure
		if code == "" {
			code = fallbackCode(rec.status)
		}
		severity, ok := failureSeverity[code]
		if !ok {
			severity = "medium"
		}
		metrics.RecordErrorByEndpoint(endpoint, r.Method, code)
		metrics.RecordErrorByType(code, severity)
		metrics.RecordErrorLatency("http", code, elapsed)
	}
}

// fallbackCode labels failures written by the mux itself, such as 405s
// and unmatched paths, which carry no error body of ours.
func fallbackCode(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "internal"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "invalid_request"
	}
}

// failureTagger is implemented by writers that want to know which error
// code a handler answered with.
type failureTagger interface {
	tagFailure(code string)
}

// statusRecorder captures the status and error code of a response.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	failure string
}

func (rw *statusRecorder) tagFailure(code string) { rw.failure = code }

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
