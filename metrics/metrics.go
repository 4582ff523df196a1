// Package metrics exposes the connection core's Prometheus instrumentation:
// one Collector per process (or per pool, for an embedder that wants
// per-pool registries), passed into gmysql.Open and threaded through every
// command the connection issues.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the connection core's Prometheus metrics.
type Collector struct {
	Registry *prometheus.Registry

	commandsTotal    *prometheus.CounterVec
	resultsTotal     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	warningsTotal    prometheus.Counter
	openStatements   prometheus.Gauge
}

// New creates and registers the connection core's metrics on a fresh
// registry. Safe to call more than once: each call is independent.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gmysql_commands_total",
				Help: "Commands sent, by COM_xxx byte",
			},
			[]string{"command"},
		),
		resultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gmysql_results_total",
				Help: "Command responses received, by kind (ok, err, eof, local_infile, result_set)",
			},
			[]string{"kind"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gmysql_errors_total",
				Help: "Server ERR packets received, by error taxonomy kind",
			},
			[]string{"kind"},
		),
		warningsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gmysql_warnings_total",
				Help: "Warnings reported across all OK/EOF packets",
			},
		),
		openStatements: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gmysql_open_statements",
				Help: "Prepared statements currently open on this connection",
			},
		),
	}

	reg.MustRegister(
		c.commandsTotal,
		c.resultsTotal,
		c.errorsTotal,
		c.warningsTotal,
		c.openStatements,
	)

	return c
}

// ObserveCommand records one command send, labeled by its COM_xxx byte.
func (c *Collector) ObserveCommand(command byte) {
	c.commandsTotal.WithLabelValues(fmt.Sprintf("0x%02x", command)).Inc()
}

// ObserveResult records one dispatched response, labeled by tag: "ok",
// "err", "eof", "local_infile", or "result_set".
func (c *Collector) ObserveResult(tag string) {
	c.resultsTotal.WithLabelValues(tag).Inc()
}

// ObserveError records one server ERR packet, labeled by its classified
// error kind (e.g. "IntegrityError").
func (c *Collector) ObserveError(kind string) {
	c.errorsTotal.WithLabelValues(kind).Inc()
}

// ObserveWarnings adds count to the running warnings total.
func (c *Collector) ObserveWarnings(count uint16) {
	c.warningsTotal.Add(float64(count))
}

// SetOpenStatements sets the open-prepared-statement gauge.
func (c *Collector) SetOpenStatements(n int) {
	c.openStatements.Set(float64(n))
}
