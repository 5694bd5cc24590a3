package utils

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
)

// Recovery converts a panic raised anywhere below it into an ErrPanic error,
// so a broken handler fails its own transaction and not the node.
type Recovery struct{}

var _ xnft.Decorator = Recovery{}

func NewRecovery() Recovery {
	return Recovery{}
}

func (Recovery) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Checker) (res *xnft.CheckResult, err error) {
	defer recovered(ctx, tx, &err)
	return next.Check(ctx, db, tx)
}

func (Recovery) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Deliverer) (res *xnft.DeliverResult, err error) {
	defer recovered(ctx, tx, &err)
	return next.Deliver(ctx, db, tx)
}

// recovered must be deferred directly, recover returns nil otherwise.
func recovered(ctx xnft.Context, tx xnft.Tx, err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = errors.Wrapf(errors.ErrPanic, "%v", r)
	xnft.GetLogger(ctx).Error("transaction panicked", "path", xnft.GetPath(tx), "panic", r)
}
