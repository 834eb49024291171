package statistics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "ctrlsim"
)

// Register adds collector to reg, or to the default registry when reg is nil.
func Register(reg prometheus.Registerer, collector prometheus.Collector) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(collector)
}
