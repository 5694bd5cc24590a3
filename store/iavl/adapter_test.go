package iavl

import (
	"testing"

	"github.com/iov-one/xnft/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitStore(t *testing.T) {
	s := MemCommitStore()

	id, err := s.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), id.Version)

	cache := s.CacheWrap()
	require.NoError(t, cache.Set([]byte("a"), []byte("1")))
	require.NoError(t, cache.Set([]byte("b"), []byte("2")))

	// nothing visible before write
	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, cache.Write())
	id, err = s.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Version)
	assert.NotEmpty(t, id.Hash)

	v, err = s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	// discarded changes never reach the tree
	cache = s.CacheWrap()
	require.NoError(t, cache.Delete([]byte("a")))
	cache.Discard()
	id2, err := s.Commit()
	require.NoError(t, err)
	assert.Equal(t, id.Hash, id2.Hash)

	// iteration over committed content
	cache = s.CacheWrap()
	require.NoError(t, cache.Set([]byte("c"), []byte("3")))
	it, err := cache.ReverseIterator(nil, nil)
	require.NoError(t, err)
	var keys []string
	for {
		k, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		require.NoError(t, err)
		keys = append(keys, string(k))
	}
	it.Release()
	assert.Equal(t, []string{"c", "b", "a"}, keys)
}
