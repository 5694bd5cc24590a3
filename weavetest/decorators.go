package weavetest

import "github.com/iov-one/xnft"

// Decorator counts the calls passing through it. A non nil CheckErr or
// DeliverErr is returned instead of calling the next handler.
type Decorator struct {
	CheckErr   error
	DeliverErr error

	checks, delivers int
}

var _ xnft.Decorator = (*Decorator)(nil)

func (d *Decorator) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Checker) (*xnft.CheckResult, error) {
	d.checks++
	if d.CheckErr != nil {
		return nil, d.CheckErr
	}
	return next.Check(ctx, db, tx)
}

func (d *Decorator) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Deliverer) (*xnft.DeliverResult, error) {
	d.delivers++
	if d.DeliverErr != nil {
		return nil, d.DeliverErr
	}
	return next.Deliver(ctx, db, tx)
}

// CallCount returns the number of Check and Deliver calls, failed ones
// included.
func (d *Decorator) CallCount() int {
	return d.checks + d.delivers
}

// Decorate puts d in front of h.
func Decorate(h xnft.Handler, d xnft.Decorator) xnft.Handler {
	return decorated{next: h, dec: d}
}

type decorated struct {
	next xnft.Handler
	dec  xnft.Decorator
}

func (d decorated) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	return d.dec.Check(ctx, db, tx, d.next)
}

func (d decorated) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	return d.dec.Deliver(ctx, db, tx, d.next)
}
