package orm

import (
	"bytes"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
)

const indexPrefix = "_i."

// index keeps references from a value computed by the indexer to the
// primary keys of the models.
//
// A unique index stores prefix + value => primary key.
// A multi index stores prefix + len(value) + value + primary key => nil.
type index struct {
	name    string
	prefix  []byte
	unique  bool
	indexer Indexer
}

func newIndex(bucket, name string, indexer Indexer, unique bool) index {
	return index{
		name:    name,
		prefix:  []byte(indexPrefix + bucket + "_" + name + ":"),
		unique:  unique,
		indexer: indexer,
	}
}

func (i index) dbKey(value, pk []byte) []byte {
	if i.unique {
		return cat(i.prefix, value)
	}
	return cat(i.prefix, proto.EncodeVarint(uint64(len(value))), value, pk)
}

// update moves the reference to the model with given primary key. prev
// is nil on insert, next is nil on delete.
func (i index) update(db xnft.KVStore, pk []byte, prev, next Model) error {
	var prevVal, nextVal []byte
	var err error
	if prev != nil {
		if prevVal, err = i.indexer(prev); err != nil {
			return errors.Wrapf(err, "index %s", i.name)
		}
	}
	if next != nil {
		if nextVal, err = i.indexer(next); err != nil {
			return errors.Wrapf(err, "index %s", i.name)
		}
	}
	if prev != nil && next != nil && bytes.Equal(prevVal, nextVal) {
		return nil
	}
	if prevVal != nil {
		if err := db.Delete(i.dbKey(prevVal, pk)); err != nil {
			return errors.Wrapf(err, "index %s", i.name)
		}
	}
	if nextVal == nil {
		return nil
	}
	key := i.dbKey(nextVal, pk)
	if i.unique {
		existing, err := db.Get(key)
		if err != nil {
			return errors.Wrapf(err, "index %s", i.name)
		}
		if existing != nil && !bytes.Equal(existing, pk) {
			return errors.Wrapf(errors.ErrDuplicate, "index %s", i.name)
		}
		return db.Set(key, pk)
	}
	return db.Set(key, []byte{})
}

// keys returns primary keys of all models indexed under given value.
func (i index) keys(db xnft.ReadOnlyKVStore, value []byte) ([][]byte, error) {
	if i.unique {
		pk, err := db.Get(i.dbKey(value, nil))
		if err != nil {
			return nil, err
		}
		if pk == nil {
			return nil, nil
		}
		return [][]byte{pk}, nil
	}

	start := i.dbKey(value, nil)
	it, err := db.Iterator(start, prefixEnd(start))
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var res [][]byte
	for {
		key, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		res = append(res, key[len(start):])
	}
}

func cat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// prefixEnd returns the smallest key greater than all keys with given
// prefix, or nil if no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
