package server

import "github.com/prometheus/client_golang/prometheus"

// Process-global Prometheus counters; the only global mutable state
// besides configuration.
var (
	githubAPICalls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "github_api_calls",
		Help: "Number of calls made to the forge's REST API.",
	})
	tenorAPICalls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenor_api_calls",
		Help: "Number of calls made to the gif search provider.",
	})
)

func init() {
	prometheus.MustRegister(githubAPICalls, tenorAPICalls)
}

// IncGitHubAPICalls increments the global forge-API call counter. It is
// exposed so a forge adapter built outside this package (cmd/prbot's
// production wiring) can report into the same metric.
func IncGitHubAPICalls() {
	githubAPICalls.Inc()
}

// IncTenorAPICalls increments the global gif-search call counter.
func IncTenorAPICalls() {
	tenorAPICalls.Inc()
}
