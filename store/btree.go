package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/xnft/errors"
)

// BTreeCacheable gives any KVStore btree cache wraps.
type BTreeCacheable struct {
	KVStore
}

var _ CacheableKVStore = BTreeCacheable{}

func (b BTreeCacheable) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b.KVStore, b.NewBatch(), nil)
}

// MemStore returns an empty in-memory store. Nothing is persisted.
func MemStore() CacheableKVStore {
	var empty EmptyKVStore
	return NewBTreeCacheWrap(empty, empty.NewBatch(), nil)
}

// BTreeCacheWrap keeps uncommitted writes in a btree in front of a read
// only parent. Writes are mirrored into batch, which Write flushes to the
// parent.
type BTreeCacheWrap struct {
	bt    *btree.BTree
	free  *btree.FreeList
	back  ReadOnlyKVStore
	batch Batch
}

var _ KVCacheWrap = BTreeCacheWrap{}

// NewBTreeCacheWrap creates a cache over kv. Nested wraps share free to
// recycle btree nodes; nil allocates a new list.
func NewBTreeCacheWrap(kv ReadOnlyKVStore, batch Batch, free *btree.FreeList) BTreeCacheWrap {
	if free == nil {
		free = btree.NewFreeList(btree.DefaultFreeListSize)
	}
	return BTreeCacheWrap{
		bt:    btree.NewWithFreeList(2, free),
		free:  free,
		back:  kv,
		batch: batch,
	}
}

func (b BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b, b.NewBatch(), b.free)
}

func (b BTreeCacheWrap) NewBatch() Batch {
	return NewNonAtomicBatch(b)
}

// Write flushes all cached writes to the parent and empties the cache.
func (b BTreeCacheWrap) Write() error {
	defer b.Discard()
	return b.batch.Write()
}

// Discard drops all cached writes. The wrap stays usable.
func (b BTreeCacheWrap) Discard() {
	for b.bt.DeleteMin() != nil {
	}
	if nb, ok := b.batch.(*NonAtomicBatch); ok {
		nb.reset()
	}
}

func (b BTreeCacheWrap) Set(key, value []byte) error {
	if key == nil {
		return errors.Wrap(errors.ErrDatabase, "nil key")
	}
	b.bt.ReplaceOrInsert(item{key: key, value: value})
	return b.batch.Set(key, value)
}

// Delete records a tombstone hiding the parent's value.
func (b BTreeCacheWrap) Delete(key []byte) error {
	b.bt.ReplaceOrInsert(item{key: key, deleted: true})
	return b.batch.Delete(key)
}

func (b BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	if res := b.bt.Get(item{key: key}); res != nil {
		it := res.(item)
		if it.deleted {
			return nil, nil
		}
		return it.value, nil
	}
	return b.back.Get(key)
}

func (b BTreeCacheWrap) Has(key []byte) (bool, error) {
	if res := b.bt.Get(item{key: key}); res != nil {
		return !res.(item).deleted, nil
	}
	return b.back.Has(key)
}

// Iterator merges cached writes with the parent range.
func (b BTreeCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	parent, err := b.back.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return mergeIterators(parent, rangeBtree(b.bt, start, end), false)
}

func (b BTreeCacheWrap) ReverseIterator(start, end []byte) (Iterator, error) {
	parent, err := b.back.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	ours := rangeBtree(b.bt, start, end)
	for i, j := 0, len(ours)-1; i < j; i, j = i+1, j-1 {
		ours[i], ours[j] = ours[j], ours[i]
	}
	return mergeIterators(parent, ours, true)
}

// item is the only type stored in the btree. A deleted item shadows the
// value of the backing store.
type item struct {
	key     []byte
	value   []byte
	deleted bool
}

var _ btree.Item = item{}

func (i item) Less(other btree.Item) bool {
	return bytes.Compare(i.key, other.(item).key) < 0
}

// rangeBtree returns all items in [start, end) in ascending order. A nil
// boundary is open.
func rangeBtree(bt *btree.BTree, start, end []byte) []item {
	var res []item
	collect := func(i btree.Item) bool {
		res = append(res, i.(item))
		return true
	}
	switch {
	case start == nil && end == nil:
		bt.Ascend(collect)
	case start == nil:
		bt.AscendLessThan(item{key: end}, collect)
	case end == nil:
		bt.AscendGreaterOrEqual(item{key: start}, collect)
	default:
		bt.AscendRange(item{key: start}, item{key: end}, collect)
	}
	return res
}
