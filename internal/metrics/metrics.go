package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Query metrics
	CallStageQueriesTotal int64
	CallStageRowsTotal    int64
	QueryErrorsTotal      int64

	// Aggregation metrics
	StatsComputationsTotal  int64
	SessionsGroupedTotal    int64
	lastComputationDuration time.Duration

	// Export metrics
	ExportsTotal      int64
	ExportErrorsTotal int64

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			httpRequestsTotal:    make(map[string]map[int]int64),
			httpRequestDurations: make(map[string][]float64),
			startTime:            time.Now(),
		}
	})
	return instance
}

// RecordCallStageQuery records a call stage query and the rows it returned
func (m *Metrics) RecordCallStageQuery(rows int) {
	m.mu.Lock()
	m.CallStageQueriesTotal++
	m.CallStageRowsTotal += int64(rows)
	m.mu.Unlock()
}

// RecordQueryError increments the query error counter
func (m *Metrics) RecordQueryError() {
	m.mu.Lock()
	m.QueryErrorsTotal++
	m.mu.Unlock()
}

// RecordStatsComputation records one aggregation pass over grouped sessions
func (m *Metrics) RecordStatsComputation(duration time.Duration, sessionCount int) {
	m.mu.Lock()
	m.StatsComputationsTotal++
	m.SessionsGroupedTotal += int64(sessionCount)
	m.lastComputationDuration = duration
	m.mu.Unlock()
}

// RecordExport increments the export counter
func (m *Metrics) RecordExport() {
	m.mu.Lock()
	m.ExportsTotal++
	m.mu.Unlock()
}

// RecordExportError increments the export error counter
func (m *Metrics) RecordExportError() {
	m.mu.Lock()
	m.ExportErrorsTotal++
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("campaign_api_uptime_seconds", time.Since(m.startTime).Seconds())

		// Query metrics
		write("campaign_api_call_stage_queries_total", m.CallStageQueriesTotal)
		write("campaign_api_call_stage_rows_total", m.CallStageRowsTotal)
		write("campaign_api_query_errors_total", m.QueryErrorsTotal)

		// Aggregation metrics
		write("campaign_api_stats_computations_total", m.StatsComputationsTotal)
		write("campaign_api_sessions_grouped_total", m.SessionsGroupedTotal)
		write("campaign_api_stats_computation_duration_seconds", m.lastComputationDuration.Seconds())

		// Export metrics
		write("campaign_api_exports_total", m.ExportsTotal)
		write("campaign_api_export_errors_total", m.ExportErrorsTotal)

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("campaign_api_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
