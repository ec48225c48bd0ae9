// Package profile implements the persisted-state contract spec.md §6
// names but places outside the core: file-per-profile JSON, an ID
// regex, a schema version discriminator, and a loader that rejects
// unknown major versions. It is a named interface only (spec.md §1
// "Profile storage, JSON schemas, UI/CLI, auto-profile-switching and
// process detection" are deliberately out of scope) — this package
// supplies the file contract, not a UI, CLI, or auto-switcher.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"ffbengine.dev/pipeline"
)

// idPattern is spec.md §6's profile ID regex.
var idPattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// CurrentMajor is the major schema version this package writes and
// accepts. SchemaVersion strings are "major.minor"; the loader
// rejects any file whose major component differs (spec.md §6 "loader
// rejects unknown major versions").
const CurrentMajor = 1

// CurrentSchemaVersion is the SchemaVersion written by Save for new
// profiles.
const CurrentSchemaVersion = "1.0"

var (
	// ErrInvalidID is returned when a profile ID doesn't match
	// ^[a-z0-9_.-]+$.
	ErrInvalidID = errors.New("profile: id must match ^[a-z0-9_.-]+$")
	// ErrUnknownMajorVersion is returned by Load when a file's schema
	// major version isn't CurrentMajor.
	ErrUnknownMajorVersion = errors.New("profile: unknown schema major version")
	// ErrMalformedVersion is returned when SchemaVersion isn't
	// "major.minor" with integer components.
	ErrMalformedVersion = errors.New("profile: malformed schema_version")
)

// Tuning holds the pipeline-tuning portion of a Profile: response
// curve and notch filters, the variable-shape part of the pipeline's
// configuration (spec.md §4.6). It is marshalled to CBOR and embedded
// in the JSON envelope as a byte string (SPEC_FULL.md §3 "profile
// files on disk use the same encoder for their binary section" — CBOR
// for this nested blob, JSON for the envelope around it), a binary
// section nested inside a larger on-disk container.
type Tuning struct {
	Curve   []pipeline.CurvePoint
	Notches []pipeline.NotchConfig
}

// Profile is the on-disk, file-per-profile shape spec.md §6 names.
// Field names match the engine.Config options a profile supplies
// values for.
type Profile struct {
	SchemaVersion string `json:"schema_version"`
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`

	MaxSafeTorqueNm float64 `json:"max_safe_torque_nm"`
	MaxHighTorqueNm float64 `json:"max_high_torque_nm"`
	SlewRateNmPerS  float64 `json:"slew_rate_nm_per_s"`

	Bumpstop pipeline.BumpstopConfig `json:"bumpstop"`
	HandsOff pipeline.HandsOffConfig `json:"hands_off"`

	// TuningCBOR is Tuning, CBOR-encoded. encoding/json marshals a
	// []byte field as a base64 string automatically, so the envelope
	// stays plain JSON while this section stays CBOR end to end.
	TuningCBOR []byte `json:"tuning_cbor,omitempty"`
}

// EncodeTuning CBOR-encodes t into p.TuningCBOR.
func (p *Profile) EncodeTuning(t Tuning) error {
	b, err := cbor.Marshal(t)
	if err != nil {
		return fmt.Errorf("profile: encode tuning: %w", err)
	}
	p.TuningCBOR = b
	return nil
}

// DecodeTuning CBOR-decodes p.TuningCBOR back into a Tuning. It
// returns the zero Tuning, no error, if TuningCBOR is empty.
func (p *Profile) DecodeTuning() (Tuning, error) {
	var t Tuning
	if len(p.TuningCBOR) == 0 {
		return t, nil
	}
	if err := cbor.Unmarshal(p.TuningCBOR, &t); err != nil {
		return Tuning{}, fmt.Errorf("profile: decode tuning: %w", err)
	}
	return t, nil
}

func majorVersion(schemaVersion string) (int, error) {
	parts := strings.SplitN(schemaVersion, ".", 2)
	if len(parts) != 2 {
		return 0, ErrMalformedVersion
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, ErrMalformedVersion
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return 0, ErrMalformedVersion
	}
	return major, nil
}

// Validate checks the ID pattern and schema version, independent of
// any filesystem access (spec.md §7 "reject at boundary").
func (p *Profile) Validate() error {
	if !idPattern.MatchString(p.ID) {
		return ErrInvalidID
	}
	major, err := majorVersion(p.SchemaVersion)
	if err != nil {
		return err
	}
	if major != CurrentMajor {
		return fmt.Errorf("%w: %s", ErrUnknownMajorVersion, p.SchemaVersion)
	}
	return nil
}

// Serialize canonicalizes p to its on-disk JSON form. Canonicalization
// here means "encoding/json's own deterministic field order and
// number formatting" — there is no field reordering or whitespace
// variance to normalize away, so serialize(deserialize(s)) reproduces
// s byte-for-byte (spec.md §8 "Profile serialization" round-trip
// property), given s was itself produced by Serialize.
func (p *Profile) Serialize() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("profile: serialize: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Deserialize parses b into a Profile and validates it.
func Deserialize(b []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("profile: deserialize: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// fileName returns the file-per-profile path id.json resolves to
// under dir.
func fileName(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

// Save writes p to dir as "<id>.json", validating first.
func Save(dir string, p *Profile) error {
	b, err := p.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(fileName(dir, p.ID), b, 0o644)
}

// Load reads and validates the profile with the given id from dir,
// rejecting any schema major version other than CurrentMajor.
func Load(dir, id string) (*Profile, error) {
	b, err := os.ReadFile(fileName(dir, id))
	if err != nil {
		return nil, fmt.Errorf("profile: load %q: %w", id, err)
	}
	return Deserialize(b)
}

// List returns the IDs of every "*.json" file in dir whose contents
// parse and validate as a Profile, skipping (not failing on) entries
// that don't.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("profile: list %q: %w", dir, err)
	}
	var ids []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			continue
		}
		p, err := Deserialize(b)
		if err != nil {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}
