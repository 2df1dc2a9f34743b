package api

// QueryRequest is the body of POST /. Both fields are optional; absent or
// null fields fall back to an empty region list and a zero threshold.
type QueryRequest struct {
	Regions     []string `json:"regions"`
	ThresholdMs float64  `json:"threshold_ms"`
}

// RegionMetricsResponse is one region's entry in the POST / response.
type RegionMetricsResponse struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// QueryResponse is the payload for POST /: region identifier to metrics.
type QueryResponse map[string]RegionMetricsResponse

// StatusResponse is the payload for GET /.
type StatusResponse struct {
	Status string `json:"status"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
