package metrics

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	HTTPRequests      = "http_requests_total"
	HTTPErrors        = "http_requests_errors_total"
	StylistTurns      = "stylist_turns_total"
	OutfitViolations  = "stylist_outfit_violations_total"
	ClothingProcessed = "clothing_processed_total"
)

// Registry keeps counters for the /metrics endpoint and mirrors every
// increment to an OpenTelemetry instrument. A nil *Registry is a no-op.
type Registry struct {
	mu          sync.Mutex
	values      map[string]int64
	meter       metric.Meter
	instruments map[string]metric.Int64Counter
}

func NewRegistry(scope string) *Registry {
	return &Registry{
		values:      make(map[string]int64),
		meter:       otel.GetMeterProvider().Meter(scope),
		instruments: make(map[string]metric.Int64Counter),
	}
}

func key(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, k+"="+labels[k])
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func (r *Registry) Inc(ctx context.Context, name string, labels map[string]string) {
	r.Add(ctx, name, labels, 1)
}

func (r *Registry) Add(ctx context.Context, name string, labels map[string]string, n int64) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.values[key(name, labels)] += n
	inst, ok := r.instruments[name]
	if !ok {
		// a failed instrument is stored as nil
		inst, _ = r.meter.Int64Counter(name)
		r.instruments[name] = inst
	}
	r.mu.Unlock()

	if inst == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	inst.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Value returns the current count for an exact name and label set.
func (r *Registry) Value(name string, labels map[string]string) int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key(name, labels)]
}

func (r *Registry) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	if r == nil {
		return out
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *Registry) Handler(c echo.Context) error {
	return c.JSON(http.StatusOK, r.Snapshot())
}
