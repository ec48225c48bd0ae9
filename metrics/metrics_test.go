package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"ffbengine.dev/engine"
	"ffbengine.dev/jitter"
	"ffbengine.dev/safety"
)

type fakeProvider struct {
	stats    engine.Stats
	faultLog *safety.FaultLog
}

func (p *fakeProvider) GetStats() engine.Stats       { return p.stats }
func (p *fakeProvider) FaultLog() *safety.FaultLog   { return p.faultLog }

func TestExporterRegistersWithoutError(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := &fakeProvider{faultLog: safety.NewFaultLog(8)}
	exp := NewExporter(p)
	if err := reg.Register(exp); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestExporterReportsCurrentSafetyStateAsOne(t *testing.T) {
	faultLog := safety.NewFaultLog(8)
	faultLog.Append(safety.FaultEntry{Fault: safety.FaultThermalLimit})
	faultLog.Append(safety.FaultEntry{Fault: safety.FaultThermalLimit})
	faultLog.Append(safety.FaultEntry{Fault: safety.FaultUsbStall})

	p := &fakeProvider{
		stats: engine.Stats{
			DroppedFrames: 7,
			Jitter:        jitter.Snapshot{MaxNs: 123, P50Ns: 10, P99Ns: 50, SampleCount: 1000, MissedTicks: 2},
			SafetyState:   safety.SafeMode(safety.TriggerCommunicationLoss, 5),
			Violations:    3,
			Mode:          "raw_torque",
		},
		faultLog: faultLog,
	}
	exp := NewExporter(p)

	reg := prometheus.NewRegistry()
	if err := reg.Register(exp); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}

	safetyFam := byName["ffbengine_safety_state"]
	if safetyFam == nil {
		t.Fatal("missing ffbengine_safety_state family")
	}
	var sawActive bool
	for _, m := range safetyFam.Metric {
		var state string
		for _, lp := range m.Label {
			if lp.GetName() == "state" {
				state = lp.GetValue()
			}
		}
		if state == "safe_mode" {
			if m.Gauge.GetValue() != 1 {
				t.Fatalf("safe_mode gauge = %v, want 1", m.Gauge.GetValue())
			}
			sawActive = true
		} else if m.Gauge.GetValue() != 0 {
			t.Fatalf("state %q gauge = %v, want 0", state, m.Gauge.GetValue())
		}
	}
	if !sawActive {
		t.Fatal("safe_mode state series not found")
	}

	faultFam := byName["ffbengine_faults_logged_total"]
	if faultFam == nil {
		t.Fatal("missing ffbengine_faults_logged_total family")
	}
	for _, m := range faultFam.Metric {
		var fault string
		for _, lp := range m.Label {
			if lp.GetName() == "fault" {
				fault = lp.GetValue()
			}
		}
		switch fault {
		case "thermal_limit":
			if m.Counter.GetValue() != 2 {
				t.Fatalf("thermal_limit count = %v, want 2", m.Counter.GetValue())
			}
		case "usb_stall":
			if m.Counter.GetValue() != 1 {
				t.Fatalf("usb_stall count = %v, want 1", m.Counter.GetValue())
			}
		default:
			if m.Counter.GetValue() != 0 {
				t.Fatalf("fault %q count = %v, want 0", fault, m.Counter.GetValue())
			}
		}
	}

	droppedFam := byName["ffbengine_dropped_frames_total"]
	if droppedFam == nil || droppedFam.Metric[0].Counter.GetValue() != 7 {
		t.Fatalf("dropped frames family = %+v, want counter 7", droppedFam)
	}
}
