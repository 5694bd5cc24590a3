// Package bech32 converts binary addresses to and from their bech32 text
// form.
package bech32

import (
	"github.com/btcsuite/btcutil/bech32"
	"github.com/iov-one/xnft/errors"
)

// Decode returns the human readable part and the 8 bit payload of a bech32
// string.
func Decode(s string) (string, []byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return hrp, payload, nil
}

// DecodePrefixed is like Decode but fails if the human readable part is not
// hrp.
func DecodePrefixed(hrp, s string) ([]byte, error) {
	got, payload, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if got != hrp {
		return nil, errors.Wrapf(errors.ErrInput, "prefix %q, want %q", got, hrp)
	}
	return payload, nil
}

// Encode returns the bech32 form of payload.
func Encode(hrp string, payload []byte) (string, error) {
	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, err.Error())
	}
	s, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, err.Error())
	}
	return s, nil
}
