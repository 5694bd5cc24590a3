/*
Package store provides the key value stores the application runs on: an
in-memory btree cache that layers uncommitted writes over a parent store,
and (in store/iavl) a merkle tree backed store that commits versions.
*/
package store

import "github.com/iov-one/xnft"

// Move references for all storage types into this package
// for shorter names everywhere

type (
	ReadOnlyKVStore  = xnft.ReadOnlyKVStore
	SetDeleter       = xnft.SetDeleter
	KVStore          = xnft.KVStore
	Batch            = xnft.Batch
	Iterator         = xnft.Iterator
	CacheableKVStore = xnft.CacheableKVStore
	KVCacheWrap      = xnft.KVCacheWrap
	CommitKVStore    = xnft.CommitKVStore
	CommitID         = xnft.CommitID
)

// Model groups together key and value to return
type Model struct {
	Key   []byte
	Value []byte
}

// Pair constructs a model from a key-value pair
func Pair(key, value []byte) Model {
	return Model{
		Key:   key,
		Value: value,
	}
}
