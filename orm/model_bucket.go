package orm

import (
	"reflect"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
)

// ModelBucket stores models of a single type under a common prefix and
// keeps its secondary indexes up to date.
type ModelBucket struct {
	name    string
	prefix  []byte
	model   reflect.Type
	seq     *Sequence
	indexes map[string]index
	order   []string
}

// ModelBucketOption is implemented by any function that can configure
// ModelBucket during creation.
type ModelBucketOption func(mb *ModelBucket)

// WithIDSequence configures the bucket to use the given sequence instance
// for generating ID when Put is called without a key.
func WithIDSequence(s Sequence) ModelBucketOption {
	return func(mb *ModelBucket) {
		mb.seq = &s
	}
}

// WithIndex configures the bucket to build an index with given name. All
// entities stored in the bucket are indexed using value returned by the
// indexer function. If an index is unique, there can be only one entity
// referenced per index value.
func WithIndex(name string, indexer Indexer, unique bool) ModelBucketOption {
	return func(mb *ModelBucket) {
		if _, ok := mb.indexes[name]; ok {
			panic("index " + name + " declared twice")
		}
		mb.indexes[name] = newIndex(mb.name, name, indexer, unique)
		mb.order = append(mb.order, name)
	}
}

// NewModelBucket returns a ModelBucket instance. Given model instance is
// only used to learn the type of stored entities.
//
// Bucket name must be unique within the application, since it is the
// prefix of every stored key.
func NewModelBucket(name string, m Model, opts ...ModelBucketOption) *ModelBucket {
	if !isBucketName(name) {
		panic("invalid bucket name: " + name)
	}
	tp := reflect.TypeOf(m)
	if tp.Kind() != reflect.Ptr {
		panic("model must be a pointer")
	}
	mb := &ModelBucket{
		name:    name,
		prefix:  []byte(name + ":"),
		model:   tp,
		indexes: make(map[string]index),
	}
	for _, fn := range opts {
		fn(mb)
	}
	return mb
}

// Name returns the bucket name.
func (mb *ModelBucket) Name() string {
	return mb.name
}

// DBKey returns the full key a model with given primary key is stored
// under.
func (mb *ModelBucket) DBKey(key []byte) []byte {
	return cat(mb.prefix, key)
}

func (mb *ModelBucket) newModel() Model {
	return reflect.New(mb.model.Elem()).Interface().(Model)
}

// One query the database for a single model instance. Lookup is done by
// the primary index key. Result is loaded into given destination model.
// This method returns ErrNotFound if the entity does not exist in the
// database. If given model type cannot be used to contain stored entity,
// ErrType is returned.
func (mb *ModelBucket) One(db xnft.ReadOnlyKVStore, key []byte, dest Model) error {
	if reflect.TypeOf(dest) != mb.model {
		return errors.Wrapf(errors.ErrType, "%T cannot hold %s", dest, mb.model)
	}
	raw, err := db.Get(mb.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot get from the database")
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", mb.name, key)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "cannot unmarshal %s", mb.name)
	}
	return nil
}

// Has returns nil if an entity with given primary key is stored in the
// database. ErrNotFound is returned otherwise.
func (mb *ModelBucket) Has(db xnft.ReadOnlyKVStore, key []byte) error {
	ok, err := db.Has(mb.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot query the database")
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", mb.name, key)
	}
	return nil
}

// ByIndex returns all models referenced by the index under given value.
// Destination must be a pointer to a slice of models. Primary keys of the
// loaded models are returned in the same order.
func (mb *ModelBucket) ByIndex(db xnft.ReadOnlyKVStore, indexName string, value []byte, destination interface{}) ([][]byte, error) {
	idx, ok := mb.indexes[indexName]
	if !ok {
		return nil, errors.Wrapf(errors.ErrHuman, "unknown index %q", indexName)
	}
	dest := reflect.ValueOf(destination)
	if dest.Kind() != reflect.Ptr || dest.Elem().Kind() != reflect.Slice {
		return nil, errors.Wrap(errors.ErrType, "destination must be a pointer to a slice")
	}
	slice := dest.Elem()
	elemIsPtr := slice.Type().Elem() == mb.model
	if !elemIsPtr && slice.Type().Elem() != mb.model.Elem() {
		return nil, errors.Wrapf(errors.ErrType, "slice of %s cannot hold %s", slice.Type().Elem(), mb.model)
	}

	keys, err := idx.keys(db, value)
	if err != nil {
		return nil, errors.Wrapf(err, "index %s", indexName)
	}
	for _, key := range keys {
		m := mb.newModel()
		if err := mb.One(db, key, m); err != nil {
			return nil, errors.Wrap(err, "index reference")
		}
		v := reflect.ValueOf(m)
		if !elemIsPtr {
			v = v.Elem()
		}
		slice = reflect.Append(slice, v)
	}
	dest.Elem().Set(slice)
	return keys, nil
}

// Put saves given model in the database. Before inserting into the
// database, model is validated using its Validate method. If the key is nil
// or zero length and the bucket was configured with a sequence, a new key
// is generated. The key of the stored model is returned.
func (mb *ModelBucket) Put(db xnft.KVStore, key []byte, m Model) ([]byte, error) {
	if reflect.TypeOf(m) != mb.model {
		return nil, errors.Wrapf(errors.ErrType, "%T cannot be stored in %s", m, mb.name)
	}
	if len(key) == 0 {
		if mb.seq == nil {
			return nil, errors.Wrap(errors.ErrEmpty, "key")
		}
		next, err := mb.seq.NextVal(db)
		if err != nil {
			return nil, errors.Wrap(err, "ID sequence")
		}
		key = next
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}

	prev, err := mb.load(db, key)
	if err != nil {
		return nil, err
	}
	for _, name := range mb.order {
		if err := mb.indexes[name].update(db, key, prev, m); err != nil {
			return nil, err
		}
	}

	raw, err := m.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}
	if err := db.Set(mb.DBKey(key), raw); err != nil {
		return nil, errors.Wrap(err, "cannot store in the database")
	}
	return key, nil
}

// Delete removes an entity with given primary key from the database. It
// returns ErrNotFound if an entity with given key does not exist.
func (mb *ModelBucket) Delete(db xnft.KVStore, key []byte) error {
	prev, err := mb.load(db, key)
	if err != nil {
		return err
	}
	if prev == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", mb.name, key)
	}
	for _, name := range mb.order {
		if err := mb.indexes[name].update(db, key, prev, nil); err != nil {
			return err
		}
	}
	if err := db.Delete(mb.DBKey(key)); err != nil {
		return errors.Wrap(err, "cannot delete from the database")
	}
	return nil
}

// Scan calls fn for every model stored under a primary key starting with
// given prefix, in ascending key order. Iteration stops at the first
// error returned by fn.
func (mb *ModelBucket) Scan(db xnft.ReadOnlyKVStore, prefix []byte, fn func(key []byte, m Model) error) error {
	start := mb.DBKey(prefix)
	it, err := db.Iterator(start, prefixEnd(start))
	if err != nil {
		return errors.Wrap(err, "iterator")
	}
	defer it.Release()
	for {
		key, raw, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "iterator")
		}
		m := mb.newModel()
		if err := m.Unmarshal(raw); err != nil {
			return errors.Wrapf(err, "cannot unmarshal %s", mb.name)
		}
		if err := fn(key[len(mb.prefix):], m); err != nil {
			return err
		}
	}
}

func (mb *ModelBucket) load(db xnft.ReadOnlyKVStore, key []byte) (Model, error) {
	raw, err := db.Get(mb.DBKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "cannot get from the database")
	}
	if raw == nil {
		return nil, nil
	}
	m := mb.newModel()
	if err := m.Unmarshal(raw); err != nil {
		return nil, errors.Wrapf(err, "cannot unmarshal %s", mb.name)
	}
	return m, nil
}

func isBucketName(name string) bool {
	if len(name) < 3 || len(name) > 20 {
		return false
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z') && c != '_' {
			return false
		}
	}
	return true
}
