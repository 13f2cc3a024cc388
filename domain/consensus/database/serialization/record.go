package serialization

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when bytes don't decode to the expected record
var ErrMalformed = errors.New("malformed record")

// RecordWriter builds a protobuf wire format message field by field
type RecordWriter struct {
	buf []byte
}

// NewRecordWriter returns an empty RecordWriter
func NewRecordWriter() *RecordWriter {
	return &RecordWriter{}
}

// Uint64 appends a varint field. Zero values are omitted.
func (w *RecordWriter) Uint64(number protowire.Number, value uint64) {
	if value == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, number, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, value)
}

// Bytes appends a length-delimited field. Empty values are omitted.
func (w *RecordWriter) Bytes(number protowire.Number, value []byte) {
	if len(value) == 0 {
		return
	}
	w.RepeatedBytes(number, value)
}

// RepeatedBytes appends one element of a repeated length-delimited
// field. Unlike Bytes it keeps empty values.
func (w *RecordWriter) RepeatedBytes(number protowire.Number, value []byte) {
	w.buf = protowire.AppendTag(w.buf, number, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, value)
}

// Hash appends a hash field
func (w *RecordWriter) Hash(number protowire.Number, hash *externalapi.DomainHash) {
	w.Bytes(number, hash.ByteSlice())
}

// Message appends a nested message field
func (w *RecordWriter) Message(number protowire.Number, message *RecordWriter) {
	w.RepeatedBytes(number, message.buf)
}

// Serialize returns the encoded message
func (w *RecordWriter) Serialize() []byte {
	return w.buf
}

// Record is a decoded protobuf wire format message
type Record struct {
	varints map[protowire.Number]uint64
	bytes   map[protowire.Number][][]byte
}

// ParseRecord decodes a protobuf wire format message. Unknown field
// types are skipped.
func ParseRecord(data []byte) (*Record, error) {
	record := &Record{
		varints: make(map[protowire.Number]uint64),
		bytes:   make(map[protowire.Number][][]byte),
	}
	for len(data) > 0 {
		number, fieldType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, errors.Wrapf(ErrMalformed, "bad tag: %s", protowire.ParseError(n))
		}
		data = data[n:]

		switch fieldType {
		case protowire.VarintType:
			value, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, errors.Wrapf(ErrMalformed, "field %d: %s", number, protowire.ParseError(n))
			}
			record.varints[number] = value
			data = data[n:]
		case protowire.BytesType:
			value, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, errors.Wrapf(ErrMalformed, "field %d: %s", number, protowire.ParseError(n))
			}
			record.bytes[number] = append(record.bytes[number], value)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(number, fieldType, data)
			if n < 0 {
				return nil, errors.Wrapf(ErrMalformed, "field %d: %s", number, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return record, nil
}

// Uint64 returns the varint field with the given number, 0 if absent
func (r *Record) Uint64(number protowire.Number) uint64 {
	return r.varints[number]
}

// Bytes returns the last occurrence of the given length-delimited field
func (r *Record) Bytes(number protowire.Number) []byte {
	values := r.bytes[number]
	if len(values) == 0 {
		return nil
	}
	return values[len(values)-1]
}

// RepeatedBytes returns all occurrences of the given length-delimited field
func (r *Record) RepeatedBytes(number protowire.Number) [][]byte {
	return r.bytes[number]
}

// Has returns whether the given length-delimited field is present
func (r *Record) Has(number protowire.Number) bool {
	return len(r.bytes[number]) > 0
}

// Hash returns the given hash field. An absent field is the zero hash.
func (r *Record) Hash(number protowire.Number) (*externalapi.DomainHash, error) {
	value := r.Bytes(number)
	if value == nil {
		return &externalapi.DomainHash{}, nil
	}
	hash, err := externalapi.NewDomainHashFromByteSlice(value)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "field %d: %s", number, err)
	}
	return hash, nil
}

// Fixed copies the given field into dst, which it must fill exactly. An
// absent field leaves dst zeroed.
func (r *Record) Fixed(number protowire.Number, dst []byte) error {
	value := r.Bytes(number)
	if value == nil {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	if len(value) != len(dst) {
		return errors.Wrapf(ErrMalformed, "field %d: expected %d bytes, got %d", number, len(dst), len(value))
	}
	copy(dst, value)
	return nil
}

// Message parses the given nested message field
func (r *Record) Message(number protowire.Number) (*Record, error) {
	return ParseRecord(r.Bytes(number))
}

func protoNumber(number int) protowire.Number {
	return protowire.Number(number)
}
