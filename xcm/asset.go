package xcm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
)

// InstanceKind tells how an asset instance identifier is represented.
type InstanceKind uint8

const (
	IndexInstance InstanceKind = 1 + iota
	Array4Instance
	Array8Instance
	Array16Instance
	Array32Instance
)

var arrayKinds = map[int]InstanceKind{
	4:  Array4Instance,
	8:  Array8Instance,
	16: Array16Instance,
	32: Array32Instance,
}

// AssetInstance identifies a single non fungible item within an asset
// class. Index is used by IndexInstance, Data by all array kinds.
type AssetInstance struct {
	Kind  InstanceKind
	Index uint64
	Data  []byte
}

// Index returns an instance identified by a number.
func Index(n uint64) AssetInstance {
	return AssetInstance{Kind: IndexInstance, Index: n}
}

// ArrayInstance returns an instance identified by an opaque byte array. The
// kind is chosen by the length of data, which must be 4, 8, 16 or 32.
func ArrayInstance(data []byte) (AssetInstance, error) {
	kind, ok := arrayKinds[len(data)]
	if !ok {
		return AssetInstance{}, errors.Wrapf(errors.ErrInput, "no array instance of length %d", len(data))
	}
	return AssetInstance{Kind: kind, Data: clone(data)}, nil
}

// Validate returns an error if the instance is not in its canonical form.
func (a AssetInstance) Validate() error {
	switch a.Kind {
	case IndexInstance:
		if len(a.Data) != 0 {
			return errors.Wrap(errors.ErrInput, "index instance carries data")
		}
	case Array4Instance, Array8Instance, Array16Instance, Array32Instance:
		if a.Index != 0 {
			return errors.Wrap(errors.ErrInput, "array instance carries an index")
		}
		if arrayKinds[len(a.Data)] != a.Kind {
			return errors.Wrapf(errors.ErrInput, "array instance of length %d", len(a.Data))
		}
	default:
		return errors.Wrapf(errors.ErrInput, "unknown instance kind %d", a.Kind)
	}
	return nil
}

// Equals returns true if both instances are identical.
func (a AssetInstance) Equals(o AssetInstance) bool {
	return a.Kind == o.Kind && a.Index == o.Index && bytes.Equal(a.Data, o.Data)
}

func (a AssetInstance) String() string {
	if a.Kind == IndexInstance {
		return fmt.Sprintf("index(%d)", a.Index)
	}
	return fmt.Sprintf("array%d(%s)", len(a.Data), hex.EncodeToString(a.Data))
}

// Copy returns a deep copy of the instance.
func (a AssetInstance) Copy() *AssetInstance {
	a.Data = clone(a.Data)
	return &a
}

func (a AssetInstance) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Uvarint(1, uint64(a.Kind))
	b.Uvarint(2, a.Index)
	b.Bytes(3, a.Data)
	return b.Result()
}

func (a *AssetInstance) Unmarshal(raw []byte) error {
	*a = AssetInstance{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			v := d.Uvarint()
			if v > math.MaxUint8 {
				return errors.Wrap(errors.ErrOverflow, "instance kind")
			}
			a.Kind = InstanceKind(v)
		case 2:
			a.Index = d.Uvarint()
		case 3:
			a.Data = d.Bytes()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// Asset is a single non fungible item: the location of its class (the
// collection) and the instance within that class.
type Asset struct {
	ID       Location
	Instance AssetInstance
}

// Validate returns an error if either part of the asset is invalid.
func (a Asset) Validate() error {
	if err := a.ID.Validate(); err != nil {
		return errors.Wrap(err, "id")
	}
	if err := a.Instance.Validate(); err != nil {
		return errors.Wrap(err, "instance")
	}
	return nil
}

// Equals returns true if both assets are identical.
func (a Asset) Equals(o Asset) bool {
	return a.ID.Equals(o.ID) && a.Instance.Equals(o.Instance)
}

func (a Asset) String() string {
	return a.ID.String() + "#" + a.Instance.String()
}

func (a Asset) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, a.ID)
	b.Message(2, a.Instance)
	return b.Result()
}

func (a *Asset) Unmarshal(raw []byte) error {
	*a = Asset{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			d.Message(&a.ID)
		case 2:
			d.Message(&a.Instance)
		default:
			d.Skip()
		}
		return d.Err()
	})
}
