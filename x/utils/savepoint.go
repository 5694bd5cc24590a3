package utils

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
)

// Savepoint runs the rest of the chain in a cache wrap that is written only
// when the handler succeeds. It is off for both Check and Deliver until
// enabled with OnCheck or OnDeliver.
type Savepoint struct {
	check, deliver bool
}

var _ xnft.Decorator = Savepoint{}

func NewSavepoint() Savepoint {
	return Savepoint{}
}

func (s Savepoint) OnCheck() Savepoint {
	s.check = true
	return s
}

func (s Savepoint) OnDeliver() Savepoint {
	s.deliver = true
	return s
}

func (s Savepoint) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Checker) (res *xnft.CheckResult, err error) {
	if !s.check {
		return next.Check(ctx, db, tx)
	}
	err = Atomic(db, func(db xnft.KVStore) (err error) {
		res, err = next.Check(ctx, db, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s Savepoint) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Deliverer) (res *xnft.DeliverResult, err error) {
	if !s.deliver {
		return next.Deliver(ctx, db, tx)
	}
	err = Atomic(db, func(db xnft.KVStore) (err error) {
		res, err = next.Deliver(ctx, db, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Atomic runs fn on a cache wrap of db and writes the cache only if fn
// succeeds. A panic in fn is returned as ErrPanic. When db cannot be cache
// wrapped fn works on db directly and a failure may leave partial writes.
func Atomic(db xnft.KVStore, fn func(xnft.KVStore) error) (err error) {
	defer errors.Recover(&err)

	cacheable, ok := db.(xnft.CacheableKVStore)
	if !ok {
		return fn(db)
	}
	cache := cacheable.CacheWrap()
	// Discarding a cache that was already written is a no-op.
	defer cache.Discard()
	if err := fn(cache); err != nil {
		return err
	}
	return errors.Wrap(cache.Write(), "write savepoint")
}
