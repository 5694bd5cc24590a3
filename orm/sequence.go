package orm

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
)

// Sequence is a persistent counter stored under "_s.<bucket>:<name>". Its
// encoded values sort in the same order as the numbers, so they can serve as
// ordered primary keys.
type Sequence struct {
	key []byte
}

func NewSequence(bucket, name string) Sequence {
	return Sequence{key: []byte("_s." + bucket + ":" + name)}
}

// NextInt advances the counter and returns the new value. The first value
// is 1.
func (s *Sequence) NextInt(db xnft.KVStore) (uint64, error) {
	n, err := s.Latest(db)
	if err != nil {
		return 0, err
	}
	if n == ^uint64(0) {
		return 0, errors.Wrapf(errors.ErrOverflow, "sequence %s", s.key)
	}
	n++
	if err := db.Set(s.key, codec.EncodeSequence(n)); err != nil {
		return 0, errors.Wrapf(err, "sequence %s", s.key)
	}
	return n, nil
}

// NextVal is NextInt returning the encoded value.
func (s *Sequence) NextVal(db xnft.KVStore) ([]byte, error) {
	n, err := s.NextInt(db)
	if err != nil {
		return nil, err
	}
	return codec.EncodeSequence(n), nil
}

// Latest returns the last value handed out, or 0.
func (s *Sequence) Latest(db xnft.ReadOnlyKVStore) (uint64, error) {
	raw, err := db.Get(s.key)
	switch {
	case err != nil:
		return 0, errors.Wrapf(err, "sequence %s", s.key)
	case raw == nil:
		return 0, nil
	}
	return codec.DecodeSequence(raw)
}
