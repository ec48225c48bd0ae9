package diagnostics

import (
	"io"

	"github.com/fxamacker/cbor/v2"

	"ffbengine.dev/safety"
)

// FaultRecord is the on-disk shape of a safety.FaultEntry export
// record (spec.md §6 "self-delimited record with timestamp, fault
// kind, short UTF-8 description").
type FaultRecord struct {
	TsMonoNs        int64   `cbor:"1,keyasint"`
	Fault           string  `cbor:"2,keyasint"`
	Trigger         string  `cbor:"3,keyasint"`
	TorqueAtFaultNm float64 `cbor:"4,keyasint"`
	ResponseNs      int64   `cbor:"5,keyasint"`
	Description     string  `cbor:"6,keyasint"`
}

func faultRecord(e safety.FaultEntry) FaultRecord {
	return FaultRecord{
		TsMonoNs:        e.TsMonoNs,
		Fault:           e.Fault.String(),
		Trigger:         e.Trigger.String(),
		TorqueAtFaultNm: e.TorqueAtFaultNm,
		ResponseNs:      e.ResponseNs,
		Description:     e.Description,
	}
}

// ExportFaultLog writes entries to w as a sequence of self-delimited
// CBOR records, one per fault, decodable by calling
// cbor.NewDecoder(r).Decode() in a loop (spec.md §6). This is an
// out-of-band operation, never called from the real-time tick (spec.md
// §4.12 "Export is out-of-band").
func ExportFaultLog(w io.Writer, entries []safety.FaultEntry) error {
	enc := cbor.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(faultRecord(e)); err != nil {
			return err
		}
	}
	return nil
}

// ExportBlackbox writes entries to w as a sequence of self-delimited
// CBOR records, the same streaming shape as ExportFaultLog.
func ExportBlackbox(w io.Writer, entries []BlackboxEntry) error {
	enc := cbor.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// DecodeFaultLog reads a stream produced by ExportFaultLog back into
// FaultRecord values, for tooling that inspects an exported log
// without reconstructing a live safety.FaultLog.
func DecodeFaultLog(r io.Reader) ([]FaultRecord, error) {
	dec := cbor.NewDecoder(r)
	var out []FaultRecord
	for {
		var rec FaultRecord
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeBlackbox reads a stream produced by ExportBlackbox back into
// BlackboxEntry values.
func DecodeBlackbox(r io.Reader) ([]BlackboxEntry, error) {
	dec := cbor.NewDecoder(r)
	var out []BlackboxEntry
	for {
		var e BlackboxEntry
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				break
			}
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}
