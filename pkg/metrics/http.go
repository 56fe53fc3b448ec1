package metrics

import "time"

// HTTPMetrics provides observability for the HTTP adapter.
//
// This interface is optional: the adapter uses NewNoopHTTPMetrics when none
// is provided.
type HTTPMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - route: Route template (e.g. "/files/:name"), never the raw path
	//   - method: HTTP method
	//   - status: Response status code
	//   - duration: Time taken to serve the request
	RecordRequest(route, method string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight gauge.
	RecordRequestStart()

	// RecordRequestEnd decrements the in-flight gauge.
	RecordRequestEnd()

	// RecordBytes records request or response body bytes.
	//
	// Parameters:
	//   - direction: "in" or "out"
	RecordBytes(direction string, bytes int64)

	// RecordRateLimited counts a request rejected by the rate limiter.
	RecordRateLimited()
}

type noopHTTPMetrics struct{}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

func (noopHTTPMetrics) RecordRequest(string, string, int, time.Duration) {}
func (noopHTTPMetrics) RecordRequestStart()                              {}
func (noopHTTPMetrics) RecordRequestEnd()                                {}
func (noopHTTPMetrics) RecordBytes(string, int64)                        {}
func (noopHTTPMetrics) RecordRateLimited()                               {}
