package store

import (
	"github.com/iov-one/xnft/errors"
)

// SliceIterator iterates over preloaded key value pairs.
type SliceIterator struct {
	data []Model
}

var _ Iterator = (*SliceIterator)(nil)

func NewSliceIterator(data []Model) *SliceIterator {
	return &SliceIterator{data: data}
}

func (s *SliceIterator) Next() (key, value []byte, err error) {
	if len(s.data) == 0 {
		return nil, nil, errors.Wrap(errors.ErrIteratorDone, "slice")
	}
	m := s.data[0]
	s.data = s.data[1:]
	return m.Key, m.Value, nil
}

func (s *SliceIterator) Release() {
	s.data = nil
}

// EmptyKVStore holds nothing and ignores writes. It is the bottom layer of
// MemStore.
type EmptyKVStore struct{}

var _ KVStore = EmptyKVStore{}

func (EmptyKVStore) Get([]byte) ([]byte, error) { return nil, nil }
func (EmptyKVStore) Has([]byte) (bool, error) { return false, nil }
func (EmptyKVStore) Set(key, value []byte) error { return nil }
func (EmptyKVStore) Delete([]byte) error { return nil }
func (e EmptyKVStore) NewBatch() Batch { return NewNonAtomicBatch(e) }

func (EmptyKVStore) Iterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

func (EmptyKVStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

// op is a pending write. A nil value deletes the key.
type op struct {
	key   []byte
	value []byte
}

// NonAtomicBatch replays queued writes on the underlying store one by one.
// A failure halfway leaves the earlier writes applied, so it is only fit
// for in-memory stores.
type NonAtomicBatch struct {
	out SetDeleter
	ops []op
}

var _ Batch = (*NonAtomicBatch)(nil)

func NewNonAtomicBatch(out SetDeleter) *NonAtomicBatch {
	return &NonAtomicBatch{out: out}
}

func (b *NonAtomicBatch) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	b.ops = append(b.ops, op{key: key, value: value})
	return nil
}

func (b *NonAtomicBatch) Delete(key []byte) error {
	b.ops = append(b.ops, op{key: key})
	return nil
}

// Write applies all queued writes in order and empties the batch.
func (b *NonAtomicBatch) Write() error {
	defer b.reset()
	for _, o := range b.ops {
		var err error
		if o.value == nil {
			err = b.out.Delete(o.key)
		} else {
			err = b.out.Set(o.key, o.value)
		}
		if err != nil {
			return errors.Wrapf(err, "write %X", o.key)
		}
	}
	return nil
}

func (b *NonAtomicBatch) reset() {
	b.ops = nil
}

func (b *NonAtomicBatch) Len() int {
	return len(b.ops)
}
