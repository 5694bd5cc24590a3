package xnft

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/xnft/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionParse(t *testing.T) {
	c := NewCondition("sigs", "ed25519", []byte{0xde, 0xad})
	ext, typ, data, err := c.Parse()
	require.NoError(t, err)
	assert.Equal(t, "sigs", ext)
	assert.Equal(t, "ed25519", typ)
	assert.Equal(t, []byte{0xde, 0xad}, data)
	assert.Equal(t, "sigs/ed25519/DEAD", c.String())
	assert.NoError(t, c.Validate())

	bad := Condition("no-slashes")
	assert.True(t, errors.ErrInput.Is(bad.Validate()))
	_, _, _, err = bad.Parse()
	assert.True(t, errors.ErrInput.Is(err))
}

func TestAddressText(t *testing.T) {
	addr := NewCondition("sigs", "ed25519", []byte("alice")).Address()
	require.NoError(t, addr.Validate())

	got, err := ParseAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	got, err = ParseAddress("hex:" + "00112233445566778899aabbccddeeff00112233")
	require.NoError(t, err)
	assert.Len(t, got, AddressLength)

	_, err = ParseAddress("00ff")
	assert.True(t, errors.ErrInput.Is(err))

	got, err = ParseAddress("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddressJSON(t *testing.T) {
	addr := NewAddress([]byte("bob"))
	raw, err := json.Marshal(addr)
	require.NoError(t, err)

	var got Address
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.True(t, addr.Equals(got))

	assert.Error(t, json.Unmarshal([]byte(`"xnft1invalid"`), &got))
}
