package xnft

import (
	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
)

// Metadata is embedded in every persisted model. It carries the schema
// version the model was written with.
type Metadata struct {
	Schema uint32
}

// Marshal implements Persistent.
func (m *Metadata) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Uvarint(1, uint64(m.Schema))
	return b.Result()
}

// Unmarshal implements Persistent.
func (m *Metadata) Unmarshal(raw []byte) error {
	*m = Metadata{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Schema = d.Uint32()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// Validate returns an error if the metadata is missing or declares an
// invalid schema version.
func (m *Metadata) Validate() error {
	if m == nil {
		return errors.Wrap(errors.ErrMetadata, "missing metadata")
	}
	if m.Schema < 1 {
		return errors.Wrap(errors.ErrMetadata, "schema version must be at least 1")
	}
	return nil
}

// Copy returns a copy of this object. This method is helpful when cloning
// models that embed the header.
func (m *Metadata) Copy() *Metadata {
	if m == nil {
		return nil
	}
	cpy := *m
	return &cpy
}
