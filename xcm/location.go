package xcm

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
)

// MaxJunctions is the maximum number of junctions a location interior can
// hold.
const MaxJunctions = 8

// JunctionKind tells how a junction value should be interpreted.
type JunctionKind uint8

const (
	ParachainJunction JunctionKind = 1 + iota
	PalletJunction
	IndexJunction
	KeyJunction
	Account32Junction
	Account20Junction
	ConsensusJunction
)

var junctionNames = map[JunctionKind]string{
	ParachainJunction: "parachain",
	PalletJunction:    "pallet",
	IndexJunction:     "index",
	KeyJunction:       "key",
	Account32Junction: "account32",
	Account20Junction: "account20",
	ConsensusJunction: "consensus",
}

func (k JunctionKind) String() string {
	if n, ok := junctionNames[k]; ok {
		return n
	}
	return fmt.Sprintf("junction(%d)", uint8(k))
}

var (
	networkRx  = regexp.MustCompile(`^[a-z0-9_\-]{1,32}$`)
	junctionRx = regexp.MustCompile(`^([a-z0-9]+)\(([^()]*)\)$`)
)

// Junction is a single step of a location interior. Only the fields used by
// the junction kind can be set, the others must hold zero values.
type Junction struct {
	Kind    JunctionKind
	Index   uint64
	Key     []byte
	Network string
}

// Parachain returns a junction pointing at a parachain with given id.
func Parachain(id uint32) Junction {
	return Junction{Kind: ParachainJunction, Index: uint64(id)}
}

// PalletInstance returns a junction pointing at a runtime module instance.
func PalletInstance(n uint8) Junction {
	return Junction{Kind: PalletJunction, Index: uint64(n)}
}

// GeneralIndex returns a junction holding a numeric index.
func GeneralIndex(n uint64) Junction {
	return Junction{Kind: IndexJunction, Index: n}
}

// GeneralKey returns a junction holding an opaque key of up to 32 bytes.
func GeneralKey(key []byte) Junction {
	return Junction{Kind: KeyJunction, Key: clone(key)}
}

// AccountID32 returns a junction pointing at a 32 byte account.
func AccountID32(id []byte) Junction {
	return Junction{Kind: Account32Junction, Key: clone(id)}
}

// AccountKey20 returns a junction pointing at a 20 byte account.
func AccountKey20(key []byte) Junction {
	return Junction{Kind: Account20Junction, Key: clone(key)}
}

// GlobalConsensus returns a junction pointing at a consensus system, for
// example a relay chain network.
func GlobalConsensus(network string) Junction {
	return Junction{Kind: ConsensusJunction, Network: network}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// Validate returns an error if the junction is not in its canonical form.
func (j Junction) Validate() error {
	switch j.Kind {
	case ParachainJunction, PalletJunction, IndexJunction:
		if len(j.Key) != 0 || j.Network != "" {
			return errors.Wrapf(errors.ErrInput, "%s junction carries a key", j.Kind)
		}
		if j.Kind == ParachainJunction && j.Index > math.MaxUint32 {
			return errors.Wrap(errors.ErrOverflow, "parachain id")
		}
		if j.Kind == PalletJunction && j.Index > math.MaxUint8 {
			return errors.Wrap(errors.ErrOverflow, "pallet instance")
		}
	case KeyJunction, Account32Junction, Account20Junction:
		if j.Index != 0 || j.Network != "" {
			return errors.Wrapf(errors.ErrInput, "%s junction carries an index", j.Kind)
		}
		switch {
		case j.Kind == KeyJunction && (len(j.Key) == 0 || len(j.Key) > 32):
			return errors.Wrapf(errors.ErrInput, "key length %d", len(j.Key))
		case j.Kind == Account32Junction && len(j.Key) != 32:
			return errors.Wrapf(errors.ErrInput, "account32 length %d", len(j.Key))
		case j.Kind == Account20Junction && len(j.Key) != 20:
			return errors.Wrapf(errors.ErrInput, "account20 length %d", len(j.Key))
		}
	case ConsensusJunction:
		if j.Index != 0 || len(j.Key) != 0 {
			return errors.Wrap(errors.ErrInput, "consensus junction carries a value")
		}
		if !networkRx.MatchString(j.Network) {
			return errors.Wrapf(errors.ErrInput, "network %q", j.Network)
		}
	default:
		return errors.Wrapf(errors.ErrInput, "unknown junction kind %d", j.Kind)
	}
	return nil
}

// Equals returns true if both junctions are identical.
func (j Junction) Equals(o Junction) bool {
	return j.Kind == o.Kind &&
		j.Index == o.Index &&
		j.Network == o.Network &&
		bytes.Equal(j.Key, o.Key)
}

func (j Junction) String() string {
	switch j.Kind {
	case ParachainJunction, PalletJunction, IndexJunction:
		return fmt.Sprintf("%s(%d)", j.Kind, j.Index)
	case KeyJunction, Account32Junction, Account20Junction:
		return fmt.Sprintf("%s(%s)", j.Kind, hex.EncodeToString(j.Key))
	case ConsensusJunction:
		return fmt.Sprintf("%s(%s)", j.Kind, j.Network)
	default:
		return j.Kind.String()
	}
}

func parseJunction(s string) (Junction, error) {
	m := junctionRx.FindStringSubmatch(s)
	if m == nil {
		return Junction{}, errors.Wrapf(errors.ErrInput, "junction %q", s)
	}
	var kind JunctionKind
	for k, name := range junctionNames {
		if name == m[1] {
			kind = k
		}
	}
	j := Junction{Kind: kind}
	switch kind {
	case ParachainJunction, PalletJunction, IndexJunction:
		n, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return j, errors.Wrapf(errors.ErrInput, "junction %q: %s", s, err)
		}
		j.Index = n
	case KeyJunction, Account32Junction, Account20Junction:
		raw, err := hex.DecodeString(m[2])
		if err != nil {
			return j, errors.Wrapf(errors.ErrInput, "junction %q: %s", s, err)
		}
		j.Key = raw
	case ConsensusJunction:
		j.Network = m[2]
	default:
		return j, errors.Wrapf(errors.ErrInput, "unknown junction %q", m[1])
	}
	return j, j.Validate()
}

func (j Junction) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Uvarint(1, uint64(j.Kind))
	b.Uvarint(2, j.Index)
	b.Bytes(3, j.Key)
	b.String(4, j.Network)
	return b.Result()
}

func (j *Junction) Unmarshal(raw []byte) error {
	*j = Junction{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			v := d.Uvarint()
			if v > math.MaxUint8 {
				return errors.Wrap(errors.ErrOverflow, "junction kind")
			}
			j.Kind = JunctionKind(v)
		case 2:
			j.Index = d.Uvarint()
		case 3:
			j.Key = d.Bytes()
		case 4:
			j.Network = d.Text()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// Junctions is an ordered list of junctions, the interior of a location.
type Junctions []Junction

// Validate checks every junction and the length of the list.
func (js Junctions) Validate() error {
	if len(js) > MaxJunctions {
		return errors.Wrapf(errors.ErrInput, "%d junctions, at most %d allowed", len(js), MaxJunctions)
	}
	for i, j := range js {
		if err := j.Validate(); err != nil {
			return errors.Wrapf(err, "junction %d", i)
		}
	}
	return nil
}

// Equals returns true if both lists hold the same junctions.
func (js Junctions) Equals(o Junctions) bool {
	if len(js) != len(o) {
		return false
	}
	for i := range js {
		if !js[i].Equals(o[i]) {
			return false
		}
	}
	return true
}

// HasPrefix returns true if the list starts with all junctions of prefix.
func (js Junctions) HasPrefix(prefix Junctions) bool {
	if len(prefix) > len(js) {
		return false
	}
	return js[:len(prefix)].Equals(prefix)
}

func (js Junctions) String() string {
	parts := make([]string, len(js))
	for i, j := range js {
		parts[i] = j.String()
	}
	return strings.Join(parts, "/")
}

// Clone returns a deep copy of the list.
func (js Junctions) Clone() Junctions {
	if js == nil {
		return nil
	}
	c := make(Junctions, len(js))
	for i, j := range js {
		j.Key = clone(j.Key)
		c[i] = j
	}
	return c
}

// Location points at a chain, an account or an asset relative to the chain
// that is using it.
type Location struct {
	Parents  uint8
	Interior Junctions
}

// NewLocation returns a location going up given number of parents and then
// down through all given junctions.
func NewLocation(parents uint8, interior ...Junction) Location {
	return Location{Parents: parents, Interior: Junctions(interior).Clone()}
}

// IsHere returns true if the location points at the chain using it.
func (l Location) IsHere() bool {
	return l.Parents == 0 && len(l.Interior) == 0
}

// Validate returns an error if any of the junctions is invalid.
func (l Location) Validate() error {
	return l.Interior.Validate()
}

// Equals returns true if both locations are identical. Two locations
// pointing at the same place in a different way are not equal, Simplify
// them first.
func (l Location) Equals(o Location) bool {
	return l.Parents == o.Parents && l.Interior.Equals(o.Interior)
}

// Append returns a new location extended with given junctions.
func (l Location) Append(js ...Junction) Location {
	interior := make(Junctions, 0, len(l.Interior)+len(js))
	interior = append(interior, l.Interior.Clone()...)
	interior = append(interior, Junctions(js).Clone()...)
	return Location{Parents: l.Parents, Interior: interior}
}

// Split returns the junctions left after removing prefix from the location.
// False is returned if the location does not start with prefix.
func (l Location) Split(prefix Location) (Junctions, bool) {
	if l.Parents != prefix.Parents || !l.Interior.HasPrefix(prefix.Interior) {
		return nil, false
	}
	return l.Interior[len(prefix.Interior):].Clone(), true
}

// SplitChain separates the part of the location that points at a chain from
// the part that is local to that chain. The chain part ends with the last
// parachain or consensus junction. If there is none, the chain part is made
// of the parent hops only.
func (l Location) SplitChain() (Location, Junctions) {
	cut := 0
	for i, j := range l.Interior {
		if j.Kind == ParachainJunction || j.Kind == ConsensusJunction {
			cut = i + 1
		}
	}
	chain := Location{Parents: l.Parents, Interior: l.Interior[:cut].Clone()}
	return chain, l.Interior[cut:].Clone()
}

// Absolute returns the location as seen from the root of the consensus
// universe. The universal location is the absolute interior of the chain
// this location is relative to.
func (l Location) Absolute(universal Junctions) (Junctions, error) {
	if int(l.Parents) > len(universal) {
		return nil, errors.Wrapf(errors.ErrInput, "location %s escapes the universe %s", l, universal)
	}
	keep := len(universal) - int(l.Parents)
	abs := make(Junctions, 0, keep+len(l.Interior))
	abs = append(abs, universal[:keep].Clone()...)
	abs = append(abs, l.Interior.Clone()...)
	if len(abs) > MaxJunctions {
		return nil, errors.Wrapf(errors.ErrInput, "absolute location of %s is too long", l)
	}
	return abs, nil
}

// Relative returns the shortest location pointing at the absolute location
// as seen from the chain with the absolute location from.
func Relative(absolute, from Junctions) Location {
	n := 0
	for n < len(absolute) && n < len(from) && absolute[n].Equals(from[n]) {
		n++
	}
	return Location{
		Parents:  uint8(len(from) - n),
		Interior: absolute[n:].Clone(),
	}
}

// Reanchor returns the location as seen from the target location. Both the
// receiver and the target are relative to the chain at universal.
func (l Location) Reanchor(target Location, universal Junctions) (Location, error) {
	abs, err := l.Absolute(universal)
	if err != nil {
		return Location{}, err
	}
	tabs, err := target.Absolute(universal)
	if err != nil {
		return Location{}, errors.Wrap(err, "target")
	}
	return Relative(abs, tabs), nil
}

// Simplify removes redundant parent hops, for example a location that goes
// up to the parent and then back down to the same chain. The location is
// returned unchanged if it cannot be resolved within universal.
func (l Location) Simplify(universal Junctions) Location {
	abs, err := l.Absolute(universal)
	if err != nil {
		return l
	}
	return Relative(abs, universal)
}

func (l Location) String() string {
	if l.IsHere() {
		return "."
	}
	parts := make([]string, 0, int(l.Parents)+len(l.Interior))
	for i := 0; i < int(l.Parents); i++ {
		parts = append(parts, "..")
	}
	for _, j := range l.Interior {
		parts = append(parts, j.String())
	}
	return strings.Join(parts, "/")
}

// ParseLocation decodes the text representation of a location. An empty
// string and "." both mean here.
func ParseLocation(s string) (Location, error) {
	var l Location
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return l, nil
	}
	for _, part := range strings.Split(s, "/") {
		if part == ".." {
			if len(l.Interior) != 0 {
				return Location{}, errors.Wrapf(errors.ErrInput, "location %q: parent after junction", s)
			}
			if l.Parents == math.MaxUint8 {
				return Location{}, errors.Wrap(errors.ErrOverflow, "parents")
			}
			l.Parents++
			continue
		}
		j, err := parseJunction(part)
		if err != nil {
			return Location{}, errors.Wrapf(err, "location %q", s)
		}
		l.Interior = append(l.Interior, j)
	}
	if err := l.Validate(); err != nil {
		return Location{}, errors.Wrapf(err, "location %q", s)
	}
	return l, nil
}

// MustParseLocation is like ParseLocation but panics on error.
func MustParseLocation(s string) Location {
	l, err := ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Location) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	parsed, err := ParseLocation(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Location) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Uvarint(1, uint64(l.Parents))
	for _, j := range l.Interior {
		b.Message(2, j)
	}
	return b.Result()
}

func (l *Location) Unmarshal(raw []byte) error {
	*l = Location{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			v := d.Uvarint()
			if v > math.MaxUint8 {
				return errors.Wrap(errors.ErrOverflow, "parents")
			}
			l.Parents = uint8(v)
		case 2:
			var j Junction
			d.Message(&j)
			l.Interior = append(l.Interior, j)
		default:
			d.Skip()
		}
		return d.Err()
	})
}
