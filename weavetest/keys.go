package weavetest

import (
	"crypto/rand"

	"github.com/iov-one/xnft"
	"golang.org/x/crypto/ed25519"
)

// Key is an ed25519 key pair usable as a transaction signer.
type Key struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// NewKey generates a new random key pair.
func NewKey() Key {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return Key{Public: pub, Private: priv}
}

// Condition returns the signature condition fulfilled by this key.
func (k Key) Condition() xnft.Condition {
	return xnft.NewCondition("sigs", "ed25519", k.Public)
}

// Sign returns the signature of given message.
func (k Key) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// NewCondition returns the condition of a freshly generated key.
func NewCondition() xnft.Condition {
	return NewKey().Condition()
}
