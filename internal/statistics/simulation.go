package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/ctrlsim/internal/dynamo"
)

const simSubsystem = "sim"

// Reading is a point-in-time copy of one running simulation.
type Reading struct {
	ID       string
	Plant    string
	Status   string
	Steps    int
	Snapshot dynamo.Snapshot
}

// Source hands the collector fresh readings on every scrape.
type Source interface {
	Readings() []Reading
}

type SimCollector struct {
	source    Source
	time      *prometheus.Desc
	measured  *prometheus.Desc
	setpoint  *prometheus.Desc
	actuation *prometheus.Desc
	terminal  *prometheus.Desc
	steps     *prometheus.Desc
	running   *prometheus.Desc
}

func NewSimCollector(source Source) *SimCollector {
	labels := []string{"id", "plant"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, simSubsystem, name), help, labels, nil)
	}
	return &SimCollector{
		source:    source,
		time:      desc("time_seconds", "Simulated time of the plant"),
		measured:  desc("measured", "Current measured process variable"),
		setpoint:  desc("setpoint", "Current setpoint"),
		actuation: desc("actuation", "Actuation applied on the last step"),
		terminal:  desc("terminal", "1 if the plant reached a terminal state"),
		steps:     desc("steps_total", "Physics steps taken since the last reset"),
		running:   desc("running", "1 if the simulation loop is scheduled"),
	}
}

func (collector *SimCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.time
	ch <- collector.measured
	ch <- collector.setpoint
	ch <- collector.actuation
	ch <- collector.terminal
	ch <- collector.steps
	ch <- collector.running
}

func (collector *SimCollector) Collect(ch chan<- prometheus.Metric) {
	for _, r := range collector.source.Readings() {
		s := r.Snapshot
		ch <- prometheus.MustNewConstMetric(collector.time, prometheus.GaugeValue, s.Time, r.ID, r.Plant)
		ch <- prometheus.MustNewConstMetric(collector.measured, prometheus.GaugeValue, s.Measured, r.ID, r.Plant)
		ch <- prometheus.MustNewConstMetric(collector.setpoint, prometheus.GaugeValue, s.Setpoint, r.ID, r.Plant)
		ch <- prometheus.MustNewConstMetric(collector.actuation, prometheus.GaugeValue, s.Actuation, r.ID, r.Plant)
		ch <- prometheus.MustNewConstMetric(collector.terminal, prometheus.GaugeValue, boolValue(s.Terminal), r.ID, r.Plant)
		ch <- prometheus.MustNewConstMetric(collector.steps, prometheus.CounterValue, float64(r.Steps), r.ID, r.Plant)
		ch <- prometheus.MustNewConstMetric(collector.running, prometheus.GaugeValue, boolValue(r.Status == "running"), r.ID, r.Plant)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
