package weavetest

import (
	"context"
	"fmt"

	"github.com/iov-one/xnft"
)

// Auth authenticates a fixed set of conditions: Signer (when set) and all
// of Signers.
type Auth struct {
	Signer  xnft.Condition
	Signers []xnft.Condition
}

func (a *Auth) GetConditions(xnft.Context) []xnft.Condition {
	if a.Signer == nil {
		return a.Signers
	}
	return append(a.Signers, a.Signer)
}

func (a *Auth) HasAddress(ctx xnft.Context, addr xnft.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

// CtxAuth authenticates the conditions stored in the context under Key.
type CtxAuth struct {
	Key string
}

// SetConditions returns a context in which given conditions signed.
func (a *CtxAuth) SetConditions(ctx xnft.Context, conds ...xnft.Condition) xnft.Context {
	return context.WithValue(ctx, a.Key, conds)
}

func (a *CtxAuth) GetConditions(ctx xnft.Context) []xnft.Condition {
	switch v := ctx.Value(a.Key).(type) {
	case nil:
		return nil
	case []xnft.Condition:
		return v
	default:
		panic(fmt.Sprintf("context key %q holds %T", a.Key, v))
	}
}

func (a *CtxAuth) HasAddress(ctx xnft.Context, addr xnft.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

func hasAddress(conds []xnft.Condition, addr xnft.Address) bool {
	for _, c := range conds {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}
