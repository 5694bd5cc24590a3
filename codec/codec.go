package codec

import (
	"encoding/binary"
	"math"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/xnft/errors"
)

// Wire types as defined by the protobuf encoding.
const (
	WireVarint  = 0
	WireFixed64 = 1
	WireBytes   = 2
	WireFixed32 = 5
)

// Marshaler is implemented by any message that can be embedded.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Unmarshaler is implemented by any message that can be decoded from an
// embedded field.
type Unmarshaler interface {
	Unmarshal([]byte) error
}

// Buffer accumulates encoded fields. Zero value is ready to use. Scalar
// fields holding the zero value are omitted.
type Buffer struct {
	buf []byte
	err error
}

func (b *Buffer) tag(field, wire int) {
	b.buf = append(b.buf, proto.EncodeVarint(uint64(field)<<3|uint64(wire))...)
}

// Uvarint writes an unsigned integer field.
func (b *Buffer) Uvarint(field int, v uint64) {
	if v == 0 {
		return
	}
	b.tag(field, WireVarint)
	b.buf = append(b.buf, proto.EncodeVarint(v)...)
}

// Int64 writes a signed integer field using the int64 (not zigzag)
// protobuf representation.
func (b *Buffer) Int64(field int, v int64) {
	b.Uvarint(field, uint64(v))
}

// Bool writes a boolean field.
func (b *Buffer) Bool(field int, v bool) {
	if v {
		b.Uvarint(field, 1)
	}
}

// Bytes writes a length delimited field.
func (b *Buffer) Bytes(field int, v []byte) {
	if len(v) == 0 {
		return
	}
	b.tag(field, WireBytes)
	b.buf = append(b.buf, proto.EncodeVarint(uint64(len(v)))...)
	b.buf = append(b.buf, v...)
}

// String writes a string field.
func (b *Buffer) String(field int, v string) {
	b.Bytes(field, []byte(v))
}

// Message writes an embedded message. Unlike scalar fields, a non nil
// message is always written, even when its encoding is empty, so that
// presence survives a round trip.
func (b *Buffer) Message(field int, m Marshaler) {
	if m == nil || isNil(m) {
		return
	}
	raw, err := m.Marshal()
	if err != nil {
		if b.err == nil {
			b.err = errors.Wrapf(err, "field %d", field)
		}
		return
	}
	b.tag(field, WireBytes)
	b.buf = append(b.buf, proto.EncodeVarint(uint64(len(raw)))...)
	b.buf = append(b.buf, raw...)
}

// Result returns the encoded bytes, or the first error that happened while
// encoding embedded messages.
func (b *Buffer) Result() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.buf == nil {
		return []byte{}, nil
	}
	return b.buf, nil
}

// Decoder gives access to the value of the field currently being decoded.
// Every accessor records the first error, use Err to read it.
type Decoder struct {
	raw  []byte
	wire int
	err  error
}

// Decode iterates over all fields encoded in raw and calls fn for each. The
// callback must consume the value using one of the Decoder accessors or
// Skip.
func Decode(raw []byte, fn func(d *Decoder, field int) error) error {
	d := &Decoder{raw: raw}
	for len(d.raw) > 0 {
		key, n := proto.DecodeVarint(d.raw)
		if n == 0 {
			return errors.Wrap(errors.ErrInput, "malformed field tag")
		}
		d.raw = d.raw[n:]
		field := int(key >> 3)
		if field <= 0 {
			return errors.Wrapf(errors.ErrInput, "illegal field number %d", field)
		}
		d.wire = int(key & 0x7)
		if err := fn(d, field); err != nil {
			return err
		}
		if d.err != nil {
			return d.err
		}
	}
	return nil
}

// Err returns the first error that happened while decoding the current
// message.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
	d.raw = nil
}

func (d *Decoder) expect(wire int) bool {
	if d.err != nil {
		return false
	}
	if d.wire != wire {
		d.fail(errors.Wrapf(errors.ErrInput, "wire type %d, expected %d", d.wire, wire))
		return false
	}
	return true
}

// Uvarint reads an unsigned integer.
func (d *Decoder) Uvarint() uint64 {
	if !d.expect(WireVarint) {
		return 0
	}
	v, n := proto.DecodeVarint(d.raw)
	if n == 0 {
		d.fail(errors.Wrap(errors.ErrInput, "malformed varint"))
		return 0
	}
	d.raw = d.raw[n:]
	return v
}

// Int64 reads a signed integer.
func (d *Decoder) Int64() int64 {
	return int64(d.Uvarint())
}

// Uint32 reads an unsigned integer that must fit 32 bits.
func (d *Decoder) Uint32() uint32 {
	v := d.Uvarint()
	if v > math.MaxUint32 {
		d.fail(errors.Wrap(errors.ErrOverflow, "uint32"))
		return 0
	}
	return uint32(v)
}

// Bool reads a boolean.
func (d *Decoder) Bool() bool {
	return d.Uvarint() != 0
}

func (d *Decoder) delimited() []byte {
	if !d.expect(WireBytes) {
		return nil
	}
	size, n := proto.DecodeVarint(d.raw)
	if n == 0 || uint64(len(d.raw)-n) < size {
		d.fail(errors.Wrap(errors.ErrInput, "malformed length delimited field"))
		return nil
	}
	v := d.raw[n : n+int(size)]
	d.raw = d.raw[n+int(size):]
	return v
}

// Bytes reads a length delimited value. The returned slice is a copy.
func (d *Decoder) Bytes() []byte {
	v := d.delimited()
	if v == nil {
		return nil
	}
	cpy := make([]byte, len(v))
	copy(cpy, v)
	return cpy
}

// Text reads a string value.
func (d *Decoder) Text() string {
	return string(d.delimited())
}

// Message reads an embedded message into m.
func (d *Decoder) Message(m Unmarshaler) {
	v := d.delimited()
	if d.err != nil {
		return
	}
	if err := m.Unmarshal(v); err != nil {
		d.fail(err)
	}
}

// Skip discards the current value.
func (d *Decoder) Skip() {
	if d.err != nil {
		return
	}
	switch d.wire {
	case WireVarint:
		_, n := proto.DecodeVarint(d.raw)
		if n == 0 {
			d.fail(errors.Wrap(errors.ErrInput, "malformed varint"))
			return
		}
		d.raw = d.raw[n:]
	case WireBytes:
		d.delimited()
	case WireFixed64:
		d.fixed(8)
	case WireFixed32:
		d.fixed(4)
	default:
		d.fail(errors.Wrapf(errors.ErrInput, "unsupported wire type %d", d.wire))
	}
}

func (d *Decoder) fixed(size int) {
	if len(d.raw) < size {
		d.fail(errors.Wrap(errors.ErrInput, "truncated fixed field"))
		return
	}
	d.raw = d.raw[size:]
}

// EncodeSequence returns the 8 byte big endian representation of given
// value. Such keys preserve numeric order when compared as bytes.
func EncodeSequence(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeSequence is the inverse of EncodeSequence.
func DecodeSequence(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errors.Wrapf(errors.ErrInput, "sequence must be 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
