package fractal

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// RecordSize is the encoded size of a ViewRecord in bytes.
const RecordSize = 32

// RecordVersion is the only record layout understood by this package.
const RecordVersion = 1

// textPrefix marks the text form of a record, so other link formats can be
// told apart.
const textPrefix = "A"

// ErrBadRecord is returned when decoding a malformed view record.
var ErrBadRecord = errors.New("fractal: malformed view record")

// ViewRecord is the fixed binary layout used to share a view:
//
//	offset  size  field
//	0       2     Version (uint16)
//	2       2     Iter    (uint16)
//	4       4     padding (zero)
//	8       8     X       (float64)
//	16      8     Y       (float64)
//	24      8     W       (float64)
//
// All fields are little-endian.
type ViewRecord struct {
	Version uint16
	Iter    uint16
	X, Y, W float64
}

// MarshalBinary encodes the record into its 32-byte layout.
func (r ViewRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint16(buf[0:], r.Version)
	binary.LittleEndian.PutUint16(buf[2:], r.Iter)
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(r.X))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(r.Y))
	binary.LittleEndian.PutUint64(buf[24:], math.Float64bits(r.W))
	return buf, nil
}

// UnmarshalBinary decodes a 32-byte record. The padding bytes are ignored.
func (r *ViewRecord) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrBadRecord, len(data), RecordSize)
	}
	r.Version = binary.LittleEndian.Uint16(data[0:])
	r.Iter = binary.LittleEndian.Uint16(data[2:])
	r.X = math.Float64frombits(binary.LittleEndian.Uint64(data[8:]))
	r.Y = math.Float64frombits(binary.LittleEndian.Uint64(data[16:]))
	r.W = math.Float64frombits(binary.LittleEndian.Uint64(data[24:]))
	return nil
}

// MarshalText encodes the record as "A" followed by standard base64 with
// '/' written as '*' and '=' written as '_', which survives in a URL
// fragment unescaped.
func (r ViewRecord) MarshalText() ([]byte, error) {
	raw, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	s := base64.StdEncoding.EncodeToString(raw)
	s = strings.NewReplacer("/", "*", "=", "_").Replace(s)
	return []byte(textPrefix + s), nil
}

// UnmarshalText decodes the form produced by MarshalText.
func (r *ViewRecord) UnmarshalText(text []byte) error {
	s, ok := strings.CutPrefix(strings.TrimPrefix(string(text), "#"), textPrefix)
	if !ok {
		return fmt.Errorf("%w: missing %q prefix", ErrBadRecord, textPrefix)
	}
	s = strings.NewReplacer("*", "/", "_", "=").Replace(s)
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	return r.UnmarshalBinary(raw)
}

// Record converts the view and an iteration budget into a ViewRecord.
// Only the centre and width are recorded; the transform is not part of the
// layout.
func (v ViewState) Record(iter uint) (ViewRecord, error) {
	if iter > math.MaxUint16 {
		return ViewRecord{}, &ConfigError{Field: "iter", Reason: fmt.Sprintf("%d does not fit a view record", iter)}
	}
	return ViewRecord{
		Version: RecordVersion,
		Iter:    uint16(iter),
		X:       v.CenterX,
		Y:       v.CenterY,
		W:       v.Width,
	}, nil
}

// ViewFromRecord converts a record back into a view with the identity
// transform and its iteration budget. The resulting view is validated.
func ViewFromRecord(r ViewRecord) (ViewState, uint, error) {
	if r.Version != RecordVersion {
		return ViewState{}, 0, fmt.Errorf("%w: version %d", ErrBadRecord, r.Version)
	}
	v := NewView(r.X, r.Y, r.W)
	if err := v.Validate(); err != nil {
		return ViewState{}, 0, err
	}
	return v, uint(r.Iter), nil
}
