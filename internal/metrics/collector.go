// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector for permgate decisions. It renders the Prometheus text exposition
// format directly.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewMetricsCollector()

// MetricsCollector aggregates counters, gauges, and histograms.
type MetricsCollector struct {
	counters   sync.Map // name{labels} -> *Counter
	gauges     sync.Map // name{labels} -> *Gauge
	histograms sync.Map // name{labels} -> *Histogram
	startTime  time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

type series struct {
	name   string
	help   string
	labels string
}

func (s series) key() string { return s.name + "{" + s.labels + "}" }

// Counter is a monotonically increasing counter.
type Counter struct {
	series
	value atomic.Int64
}

func (c *Counter) Inc() { c.value.Add(1) }
func (c *Counter) Add(n int64) { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	series
	value atomic.Int64
}

func (g *Gauge) Set(v int64) { g.value.Store(v) }
func (g *Gauge) Inc() { g.value.Add(1) }
func (g *Gauge) Dec() { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values. Bucket counts are
// cumulative, as the exposition format expects.
type Histogram struct {
	series
	mu     sync.Mutex
	bounds []float64
	counts []int64
	count  int64
	sum    float64
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.counts[i]++
		}
	}
}

// ObserveSince records the seconds elapsed since start.
func (h *Histogram) ObserveSince(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// --- Registration helpers ---

// Counter returns or creates the counter for name and labels.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	s := series{name: name, help: help, labels: labels}
	if v, ok := c.counters.Load(s.key()); ok {
		return v.(*Counter)
	}
	actual, _ := c.counters.LoadOrStore(s.key(), &Counter{series: s})
	return actual.(*Counter)
}

// Gauge returns or creates the gauge for name and labels.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	s := series{name: name, help: help, labels: labels}
	if v, ok := c.gauges.Load(s.key()); ok {
		return v.(*Gauge)
	}
	actual, _ := c.gauges.LoadOrStore(s.key(), &Gauge{series: s})
	return actual.(*Gauge)
}

// Histogram returns or creates the histogram for name and labels. Buckets are
// copied and sorted; an implicit +Inf bucket is always rendered.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	s := series{name: name, help: help, labels: labels}
	if v, ok := c.histograms.Load(s.key()); ok {
		return v.(*Histogram)
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	h := &Histogram{series: s, bounds: bounds, counts: make([]int64, len(bounds))}
	actual, _ := c.histograms.LoadOrStore(s.key(), h)
	return actual.(*Histogram)
}

// --- Prometheus text rendering ---

// WriteTo renders every series in Prometheus text format, sorted by name and
// labels so output is stable between scrapes.
func (c *MetricsCollector) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP permgate_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE permgate_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "permgate_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	var counters []*Counter
	c.counters.Range(func(_, v any) bool { counters = append(counters, v.(*Counter)); return true })
	sortSeries(counters, func(x *Counter) series { return x.series })
	lastName := ""
	for _, ctr := range counters {
		writeHeader(&sb, ctr.series, "counter", &lastName)
		fmt.Fprintf(&sb, "%s %d\n", sampleName(ctr.name, ctr.labels), ctr.Value())
	}

	var gauges []*Gauge
	c.gauges.Range(func(_, v any) bool { gauges = append(gauges, v.(*Gauge)); return true })
	sortSeries(gauges, func(x *Gauge) series { return x.series })
	lastName = ""
	for _, g := range gauges {
		writeHeader(&sb, g.series, "gauge", &lastName)
		fmt.Fprintf(&sb, "%s %d\n", sampleName(g.name, g.labels), g.Value())
	}

	var hists []*Histogram
	c.histograms.Range(func(_, v any) bool { hists = append(hists, v.(*Histogram)); return true })
	sortSeries(hists, func(x *Histogram) series { return x.series })
	lastName = ""
	for _, h := range hists {
		writeHeader(&sb, h.series, "histogram", &lastName)
		h.mu.Lock()
		for i, le := range h.bounds {
			writeBucket(&sb, h, formatBound(le), h.counts[i])
		}
		writeBucket(&sb, h, "+Inf", h.count)
		fmt.Fprintf(&sb, "%s %d\n", sampleName(h.name+"_count", h.labels), h.count)
		fmt.Fprintf(&sb, "%s %g\n", sampleName(h.name+"_sum", h.labels), h.sum)
		h.mu.Unlock()
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// Handler returns an http.HandlerFunc serving the metrics.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = c.WriteTo(w)
	}
}

func sortSeries[T any](items []T, get func(T) series) {
	sort.Slice(items, func(i, j int) bool {
		return get(items[i]).key() < get(items[j]).key()
	})
}

func writeHeader(sb *strings.Builder, s series, typ string, lastName *string) {
	if s.name == *lastName {
		return
	}
	*lastName = s.name
	fmt.Fprintf(sb, "# HELP %s %s\n", s.name, s.help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", s.name, typ)
}

func writeBucket(sb *strings.Builder, h *Histogram, le string, count int64) {
	labels := `le="` + le + `"`
	if h.labels != "" {
		labels = h.labels + "," + labels
	}
	fmt.Fprintf(sb, "%s_bucket{%s} %d\n", h.name, labels, count)
}

func sampleName(name, labels string) string {
	if labels == "" {
		return name
	}
	return name + "{" + labels + "}"
}

func formatBound(le float64) string {
	if math.IsInf(le, 1) {
		return "+Inf"
	}
	return fmt.Sprintf("%g", le)
}

// --- Pre-defined metrics used across the application ---

var (
	ChecksTotal       = Collector.Counter("permgate_checks_total", "Total permission checks evaluated", "")
	DenialsTotal      = Collector.Counter("permgate_denials_total", "Total permission checks denied", "")
	PermissionUpdates = Collector.Counter("permgate_permission_updates_total", "Total matrix hot swaps", "")
	AuditSinkErrors   = Collector.Counter("permgate_audit_sink_errors_total", "Audit entries the sink failed to accept", "")
	PolicyReloads     = Collector.Counter("permgate_policy_reloads_total", "Policy file reloads applied", "")
	AuditLogSize      = Collector.Gauge("permgate_audit_log_entries", "Entries held in the in-memory audit log", "")

	CheckLatency = Collector.Histogram("permgate_check_latency_seconds", "Permission check latency in seconds", "",
		[]float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1})
)

// DenialsByType returns the denial counter for a request kind.
func DenialsByType(kind string) *Counter {
	return Collector.Counter("permgate_denials_by_type_total", "Permission checks denied, by request type", `type="`+kind+`"`)
}
