package orm

import (
	"github.com/iov-one/xnft"
)

// Model is implemented by any entity that can be stored using ModelBucket.
type Model interface {
	xnft.Persistent
	Validate() error
}

// Indexer calculates the secondary index key for a given model. Returning
// a nil key excludes the model from the index.
type Indexer func(Model) ([]byte, error)
