package diagnostics

import (
	"bytes"
	"testing"

	"ffbengine.dev/safety"
)

func TestBlackboxWrapsAtCapacity(t *testing.T) {
	b := NewBlackbox(4)
	for i := uint64(0); i < 6; i++ {
		b.Append(BlackboxEntry{Seq: i})
	}
	if got := b.Len(); got != 4 {
		t.Fatalf("Len() = %d, want 4", got)
	}
	entries := b.Entries()
	var seqs []uint64
	for _, e := range entries {
		seqs = append(seqs, e.Seq)
	}
	want := []uint64{2, 3, 4, 5}
	if len(seqs) != len(want) {
		t.Fatalf("seqs = %v, want %v", seqs, want)
	}
	for i := range want {
		if seqs[i] != want[i] {
			t.Fatalf("seqs = %v, want %v", seqs, want)
		}
	}
}

func TestEntryFromTickRendersStateAndFault(t *testing.T) {
	e := EntryFromTick(1, 100, 0.5, 2.0, 0.1, 0.2, false, safety.SafeMode(safety.TriggerCommunicationLoss, 100), safety.FaultUsbStall)
	if e.SafetyState != "safe_mode" {
		t.Fatalf("SafetyState = %q, want safe_mode", e.SafetyState)
	}
	if e.Fault != "usb_stall" {
		t.Fatalf("Fault = %q, want usb_stall", e.Fault)
	}
}

func TestExportImportBlackboxRoundTrips(t *testing.T) {
	b := NewBlackbox(8)
	b.Append(BlackboxEntry{Seq: 1, TorqueOutNm: 1.5})
	b.Append(BlackboxEntry{Seq: 2, TorqueOutNm: -0.5})

	var buf bytes.Buffer
	if err := ExportBlackbox(&buf, b.Entries()); err != nil {
		t.Fatalf("ExportBlackbox: %v", err)
	}
	got, err := DecodeBlackbox(&buf)
	if err != nil {
		t.Fatalf("DecodeBlackbox: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 1 || got[1].Seq != 2 {
		t.Fatalf("got = %+v, want 2 entries with seq 1,2", got)
	}
}

func TestExportImportFaultLogRoundTrips(t *testing.T) {
	log := safety.NewFaultLog(4)
	log.Append(safety.FaultEntry{TsMonoNs: 10, Fault: safety.FaultThermalLimit, Description: "hot"})
	log.Append(safety.FaultEntry{TsMonoNs: 20, Fault: safety.FaultOvercurrent, Description: "overcurrent"})

	var buf bytes.Buffer
	if err := ExportFaultLog(&buf, log.Entries()); err != nil {
		t.Fatalf("ExportFaultLog: %v", err)
	}
	got, err := DecodeFaultLog(&buf)
	if err != nil {
		t.Fatalf("DecodeFaultLog: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Fault != "thermal_limit" || got[1].Fault != "overcurrent" {
		t.Fatalf("got = %+v", got)
	}
}
