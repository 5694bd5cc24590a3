package xnft

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/iov-one/xnft/crypto/bech32"
	"github.com/iov-one/xnft/errors"
	"golang.org/x/crypto/blake2b"
)

// AddressLength matches the AccountKey20 junction, so that every address can
// be named on other chains.
const AddressLength = 20

// AddressPrefix is the human readable part of bech32 encoded addresses.
var AddressPrefix = "xnft"

// (?s) lets the data section contain newlines.
var conditionFormat = regexp.MustCompile(`(?s)^([a-zA-Z0-9_\-]{3,8})/([a-zA-Z0-9_\-]{3,8})/(.+)$`)

// Condition describes who can authorize an action, in the form
// extension/type/data. A signature check on an ed25519 key produces
// "sigs/ed25519/<public key>".
type Condition []byte

func NewCondition(ext, typ string, data []byte) Condition {
	c := make(Condition, 0, len(ext)+len(typ)+len(data)+2)
	c = append(c, ext...)
	c = append(c, '/')
	c = append(c, typ...)
	c = append(c, '/')
	return append(c, data...)
}

// Parse splits the condition into its extension, type and data.
func (c Condition) Parse() (ext, typ string, data []byte, err error) {
	m := conditionFormat.FindSubmatch(c)
	if m == nil {
		return "", "", nil, errors.Wrapf(errors.ErrInput, "malformed condition %X", []byte(c))
	}
	return string(m[1]), string(m[2]), m[3], nil
}

func (c Condition) Validate() error {
	_, _, _, err := c.Parse()
	return err
}

// Address returns the address controlled by this condition.
func (c Condition) Address() Address {
	return NewAddress(c)
}

func (c Condition) Equals(o Condition) bool {
	return bytes.Equal(c, o)
}

// String keeps the extension and type readable and hex encodes the data.
func (c Condition) String() string {
	ext, typ, data, err := c.Parse()
	if err != nil {
		return fmt.Sprintf("invalid condition %X", []byte(c))
	}
	return fmt.Sprintf("%s/%s/%X", ext, typ, data)
}

// Address is the account identifier: the first AddressLength bytes of the
// blake2b-256 digest of a condition.
type Address []byte

// NewAddress derives the address of given condition bytes.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	sum := blake2b.Sum256(data)
	return Address(sum[:AddressLength])
}

func (a Address) Equals(o Address) bool {
	return bytes.Equal(a, o)
}

func (a Address) Validate() error {
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInput, "address must be %d bytes, got %d", AddressLength, len(a))
	}
	return nil
}

// String returns the bech32 form.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	s, err := bech32.Encode(AddressPrefix, a)
	if err != nil {
		return strings.ToUpper(hex.EncodeToString(a))
	}
	return s
}

// ParseAddress accepts the bech32 form, plain hex and hex with a "hex:"
// prefix. An empty string is a nil address.
func ParseAddress(enc string) (Address, error) {
	var (
		raw []byte
		err error
	)
	switch {
	case enc == "":
		return nil, nil
	case strings.HasPrefix(enc, "hex:"):
		raw, err = hex.DecodeString(enc[len("hex:"):])
	case strings.HasPrefix(enc, AddressPrefix+"1"):
		if raw, err = bech32.DecodePrefixed(AddressPrefix, enc); err != nil {
			return nil, err
		}
	default:
		raw, err = hex.DecodeString(enc)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot decode address %q", enc)
	}
	addr := Address(raw)
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

// MarshalJSON uses the bech32 form instead of base64.
func (a Address) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(errors.ErrInput, "address must be a JSON string")
	}
	addr, err := ParseAddress(enc)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
