package weavetest

import (
	"crypto/rand"
	"testing"

	"github.com/iov-one/xnft"
)

// RandomAddr returns a valid address that no condition controls.
func RandomAddr(t testing.TB) xnft.Address {
	raw := make([]byte, xnft.AddressLength)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("cannot generate a random address: %s", err)
	}
	return xnft.Address(raw)
}
