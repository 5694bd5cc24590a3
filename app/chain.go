package app

import (
	"reflect"

	"github.com/iov-one/xnft"
)

// Decorators holds a chain of decorators, not yet resolved by a Handler
type Decorators struct {
	chain []xnft.Decorator
}

/*
ChainDecorators takes a chain of decorators,
and upon adding a final Handler (often a Router),
returns a Handler that will execute this whole stack.

  app.ChainDecorators(
    utils.NewLogging(),
    utils.NewRecovery(),
    utils.NewActionTagger(),
    utils.NewSavepoint().OnDeliver(),
  ).WithHandler(
    router,
  )
*/
func ChainDecorators(chain ...xnft.Decorator) Decorators {
	return Decorators{}.Chain(chain...)
}

// Chain allows us to keep adding more Decorators to the chain
func (d Decorators) Chain(chain ...xnft.Decorator) Decorators {
	newChain := make([]xnft.Decorator, 0, len(d.chain)+len(chain))
	newChain = append(newChain, d.chain...)
	for _, dc := range chain {
		if isNil(dc) {
			continue
		}
		newChain = append(newChain, dc)
	}
	return Decorators{newChain}
}

func isNil(d xnft.Decorator) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// WithHandler resolves the stack and returns a concrete Handler
// that will pass through the chain of decorators before calling
// the final Handler.
func (d Decorators) WithHandler(h xnft.Handler) xnft.Handler {
	// start wrapping the handler from last decorator to first one
	// as the top of the chain is understood to be executed first
	for i := len(d.chain) - 1; i >= 0; i-- {
		h = step{d: d.chain[i], next: h}
	}
	return h
}

// step captures one step executing a decorator around a
// specific Handler.
type step struct {
	d    xnft.Decorator
	next xnft.Handler
}

var _ xnft.Handler = step{}

// Check passes the handler into the decorator, implements Handler
func (s step) Check(ctx xnft.Context, store xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	return s.d.Check(ctx, store, tx, s.next)
}

// Deliver passes the handler into the decorator, implements Handler
func (s step) Deliver(ctx xnft.Context, store xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	return s.d.Deliver(ctx, store, tx, s.next)
}
