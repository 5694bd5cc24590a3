package x

import (
	"github.com/iov-one/xnft"
)

// Authenticator reports which conditions signed the current transaction.
// Handlers receive one in their constructor instead of assuming a signature
// scheme.
type Authenticator interface {
	GetConditions(xnft.Context) []xnft.Condition
	HasAddress(xnft.Context, xnft.Address) bool
}

// MultiAuth is the union of several authenticators.
type MultiAuth []Authenticator

var _ Authenticator = MultiAuth(nil)

func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth(impls)
}

func (m MultiAuth) GetConditions(ctx xnft.Context) []xnft.Condition {
	var conds []xnft.Condition
	for _, a := range m {
		conds = append(conds, a.GetConditions(ctx)...)
	}
	return conds
}

func (m MultiAuth) HasAddress(ctx xnft.Context, addr xnft.Address) bool {
	for _, a := range m {
		if a.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// GetAddresses returns the address of every signing condition, in order.
func GetAddresses(ctx xnft.Context, auth Authenticator) []xnft.Address {
	conds := auth.GetConditions(ctx)
	addrs := make([]xnft.Address, 0, len(conds))
	for _, c := range conds {
		addrs = append(addrs, c.Address())
	}
	return addrs
}

// MainSigner returns the first signing condition or nil.
func MainSigner(ctx xnft.Context, auth Authenticator) xnft.Condition {
	if conds := auth.GetConditions(ctx); len(conds) > 0 {
		return conds[0]
	}
	return nil
}

// AnySigner returns the address of the main signer, or nil if the
// transaction is not signed.
func AnySigner(ctx xnft.Context, auth Authenticator) xnft.Address {
	if s := MainSigner(ctx, auth); s != nil {
		return s.Address()
	}
	return nil
}
