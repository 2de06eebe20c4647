package metrics

import (
	"time"

	obserrors "github.com/fabworks/jobshop/internal/observability/errors"
	"github.com/fabworks/jobshop/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// DeltaMetric captures one pass through the delta apply path.
type DeltaMetric struct {
	// Operation is "apply" or "undo".
	Operation string
	Result    string
	// Reason carries the rejection reason when Result is "rejected".
	Reason   string
	Duration time.Duration
	Err      error
}

// EmitDelta emits standardised delta lifecycle metrics.
func EmitDelta(sink statsd.Sink, in DeltaMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}
	if in.Reason != "" {
		tags["reason"] = in.Reason
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("delta.outcome", 1, tags)

	if in.Duration > 0 {
		sink.Timing("delta.duration", in.Duration, CloneTags(tags))
	}
}

// EmitSweep emits rejection-sweeper metrics: rows pruned and backlog age.
func EmitSweep(sink statsd.Sink, pruned int64, took time.Duration) {
	if sink == nil {
		return
	}
	sink.Count("sweeper.pruned", pruned, nil)
	if took > 0 {
		sink.Timing("sweeper.duration", took, nil)
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
