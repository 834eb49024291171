package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/ctrlsim/internal/dynamo"
)

var factories = map[string]func() dynamo.Metric{
	"control_effort": func() dynamo.Metric { return NewControlEffort() },
	"tracking_error": func() dynamo.Metric { return NewTrackingError() },
	"rms_error":      func() dynamo.Metric { return NewRMSError() },
	"stability":      func() dynamo.Metric { return NewStability(0) },
}

// Standard returns a fresh set of every known metric.
func Standard() []dynamo.Metric {
	names := Names()
	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		out = append(out, factories[name]())
	}
	return out
}

func ByName(name string) (dynamo.Metric, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collect reads every metric's current value keyed by name.
func Collect(ms []dynamo.Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
