package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/orm"
	"github.com/iov-one/xnft/xcm"
	"golang.org/x/crypto/blake2b"
)

// Registry keeps the collection records and maps foreign collections to
// their local derivatives.
type Registry struct {
	bucket *orm.ModelBucket
	items  *orm.ModelBucket
}

// NewRegistry returns a registry using the default buckets.
func NewRegistry() *Registry {
	return &Registry{
		bucket: NewCollectionBucket(),
		items:  NewItemBucket(),
	}
}

// RegisterNativeCollection creates a native collection owned by owner. When
// dedup is set, registering metadata that an existing native collection
// already uses fails with ErrDuplicateMetadata.
func (r *Registry) RegisterNativeCollection(db xnft.KVStore, owner xnft.Address, metadata []byte, mode Mode, dedup bool) (*Collection, error) {
	hash := blake2b.Sum256(metadata)
	if dedup {
		var existing []*Collection
		keys, err := r.bucket.ByIndex(db, "metadata", hash[:], &existing)
		if err != nil {
			return nil, errors.Wrap(err, "metadata index")
		}
		if len(keys) != 0 {
			return nil, errors.Wrapf(ErrDuplicateMetadata, "used by collection %d", existing[0].ID)
		}
	}
	c := &Collection{
		Metadata:     &xnft.Metadata{Schema: 1},
		Kind:         Native,
		Mode:         mode,
		Owner:        owner,
		MetadataHash: hash[:],
	}
	if err := r.create(db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RegisterOrLookupDerivative returns the derivative collection representing
// the foreign collection, creating it if it does not exist yet. The boolean
// is true if the collection was created by this call.
func (r *Registry) RegisterOrLookupDerivative(db xnft.KVStore, chain xcm.Location, remote xcm.Junctions, mode Mode) (*Collection, bool, error) {
	c, err := r.LookupForeign(db, chain, remote)
	switch {
	case err == nil:
		return c, false, nil
	case !errors.ErrNotFound.Is(err):
		return nil, false, err
	}
	c = &Collection{
		Metadata: &xnft.Metadata{Schema: 1},
		Kind:     Derivative,
		Mode:     mode,
		Foreign:  &ForeignRef{Chain: chain, Collection: remote},
	}
	if err := r.create(db, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// RegisterForeignCollection explicitly registers a derivative of the
// foreign collection at asset. The location is simplified first, so that
// different ways of pointing at the same asset are registered once.
func (r *Registry) RegisterForeignCollection(db xnft.KVStore, conv Converter, asset xcm.Location, mode Mode) (*Collection, error) {
	if conv.IsLocal(asset) {
		return nil, errors.Wrapf(ErrLocalAsset, "%s", asset)
	}
	chain, remote := conv.SplitForeign(asset)
	if len(remote) == 0 {
		return nil, errors.Wrapf(errors.ErrInput, "%s is a chain, not a collection", asset)
	}
	c, created, err := r.RegisterOrLookupDerivative(db, chain, remote, mode)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errors.Wrapf(ErrAlreadyRegistered, "as collection %d", c.ID)
	}
	return c, nil
}

// LookupForeign returns the derivative of the foreign collection. An
// ErrNotFound error is returned if it was never registered.
func (r *Registry) LookupForeign(db xnft.ReadOnlyKVStore, chain xcm.Location, remote xcm.Junctions) (*Collection, error) {
	ref := &ForeignRef{Chain: chain, Collection: remote}
	key, err := ref.Key()
	if err != nil {
		return nil, errors.Wrap(err, "foreign reference")
	}
	var found []*Collection
	if _, err := r.bucket.ByIndex(db, "foreign", key, &found); err != nil {
		return nil, errors.Wrap(err, "foreign index")
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "foreign collection %s", ref)
	}
	return found[0], nil
}

// Collection returns the collection with given id.
func (r *Registry) Collection(db xnft.ReadOnlyKVStore, id uint64) (*Collection, error) {
	var c Collection
	if err := r.bucket.One(db, collectionKey(id), &c); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, errors.Wrapf(ErrUnknownCollection, "%d", id)
		}
		return nil, err
	}
	return &c, nil
}

// Save stores an updated collection record.
func (r *Registry) Save(db xnft.KVStore, c *Collection) error {
	_, err := r.bucket.Put(db, collectionKey(c.ID), c)
	return err
}

// DestroyCollection removes a native collection with no outstanding items,
// together with the history of its burned items. Only the owner can do
// that.
func (r *Registry) DestroyCollection(db xnft.KVStore, id uint64, caller xnft.Address) error {
	c, err := r.Collection(db, id)
	if err != nil {
		return err
	}
	if c.Kind != Native {
		return errors.Wrapf(ErrNotNative, "collection %d", id)
	}
	if !c.Owner.Equals(caller) {
		return errors.Wrapf(ErrNotOwner, "collection %d", id)
	}
	if c.Items != 0 {
		return errors.Wrapf(ErrCollectionNotEmpty, "%d items", c.Items)
	}

	var keys [][]byte
	err = r.items.Scan(db, collectionKey(id), func(key []byte, _ orm.Model) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "scan items")
	}
	for _, k := range keys {
		if err := r.items.Delete(db, k); err != nil {
			return errors.Wrap(err, "delete item")
		}
	}
	return r.bucket.Delete(db, collectionKey(id))
}

func (r *Registry) create(db xnft.KVStore, c *Collection) error {
	id, err := collectionSeq.NextInt(db)
	if err != nil {
		return errors.Wrap(err, "collection sequence")
	}
	c.ID = id
	if _, err := r.bucket.Put(db, collectionKey(id), c); err != nil {
		if errors.ErrDuplicate.Is(err) {
			return errors.Wrap(ErrAlreadyRegistered, err.Error())
		}
		return errors.Wrap(err, "save collection")
	}
	return nil
}
