package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/gconf"
	"github.com/iov-one/xnft/xcm"
)

const packageName = "bridge"

// MaxTicketTTL bounds the ticket lifetime, about ten years of six second
// blocks.
const MaxTicketTTL = 50000000

// Configuration of the bridge, stored using gconf.
type Configuration struct {
	Metadata *xnft.Metadata `json:"metadata"`
	// Owner is allowed to update the configuration and to register foreign
	// collections explicitly.
	Owner xnft.Address `json:"owner"`
	// UniversalLocation is the absolute location of this chain.
	UniversalLocation xcm.Location `json:"universal_location"`
	// CollectionsPrefix is prepended to the index of a native collection
	// to build its asset location.
	CollectionsPrefix xcm.Location `json:"collections_prefix"`
	// TicketTTL is the number of blocks an outbound transfer waits for an
	// acknowledgment before it can be reversed.
	TicketTTL int64 `json:"ticket_ttl"`
	// DeduplicateMetadata rejects native collections registered with the
	// metadata of an existing one.
	DeduplicateMetadata bool `json:"deduplicate_metadata"`
	// DefaultMode is used when a collection is registered without a mode.
	DefaultMode Mode `json:"default_mode"`
	// TrustedTeleporters are the chains this chain accepts teleported
	// items from.
	TrustedTeleporters []xcm.Location `json:"trusted_teleporters"`
	// UnitWeight is the execution cost of a single instruction.
	UnitWeight uint64 `json:"unit_weight"`
	// SweepLimit is the maximum number of expired tickets reversed at the
	// beginning of a block.
	SweepLimit uint32 `json:"sweep_limit"`
}

var _ gconf.OwnedConfig = (*Configuration)(nil)

// Validate returns an error if the configuration cannot be used.
func (c *Configuration) Validate() error {
	if err := c.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	if c.UniversalLocation.Parents != 0 || len(c.UniversalLocation.Interior) == 0 {
		errs = errors.AppendField(errs, "UniversalLocation",
			errors.Wrap(errors.ErrInput, "must be an absolute location"))
	} else {
		errs = errors.AppendField(errs, "UniversalLocation", c.UniversalLocation.Validate())
	}
	if c.CollectionsPrefix.Parents != 0 {
		errs = errors.AppendField(errs, "CollectionsPrefix",
			errors.Wrap(errors.ErrInput, "must be local"))
	} else if len(c.CollectionsPrefix.Interior) >= xcm.MaxJunctions {
		errs = errors.AppendField(errs, "CollectionsPrefix",
			errors.Wrap(errors.ErrInput, "too long"))
	} else {
		errs = errors.AppendField(errs, "CollectionsPrefix", c.CollectionsPrefix.Validate())
	}
	switch {
	case c.TicketTTL < 1:
		errs = errors.AppendField(errs, "TicketTTL", errors.Wrap(errors.ErrInput, "must be positive"))
	case c.TicketTTL > MaxTicketTTL:
		errs = errors.AppendField(errs, "TicketTTL", errors.Wrapf(errors.ErrInput, "must not exceed %d", MaxTicketTTL))
	}
	errs = errors.AppendField(errs, "DefaultMode", c.DefaultMode.Validate())
	for _, t := range c.TrustedTeleporters {
		if t.IsHere() {
			errs = errors.AppendField(errs, "TrustedTeleporters", errors.Wrap(errors.ErrInput, "here"))
			continue
		}
		errs = errors.AppendField(errs, "TrustedTeleporters", t.Validate())
	}
	if c.SweepLimit == 0 {
		errs = errors.AppendField(errs, "SweepLimit", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	return errs
}

// GetOwner returns the address allowed to change the configuration.
func (c *Configuration) GetOwner() xnft.Address {
	return c.Owner
}

// Universal returns the absolute interior of this chain.
func (c *Configuration) Universal() xcm.Junctions {
	return c.UniversalLocation.Interior
}

// Trusts returns true if teleports from given chain are accepted.
func (c *Configuration) Trusts(origin xcm.Location) bool {
	for _, t := range c.TrustedTeleporters {
		if t.Simplify(c.Universal()).Equals(origin) {
			return true
		}
	}
	return false
}

func (c *Configuration) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, c.Metadata)
	b.Bytes(2, c.Owner)
	b.Message(3, c.UniversalLocation)
	b.Message(4, c.CollectionsPrefix)
	b.Int64(5, c.TicketTTL)
	b.Bool(6, c.DeduplicateMetadata)
	b.Uvarint(7, uint64(c.DefaultMode))
	for _, t := range c.TrustedTeleporters {
		b.Message(8, t)
	}
	b.Uvarint(9, c.UnitWeight)
	b.Uvarint(10, uint64(c.SweepLimit))
	return b.Result()
}

func (c *Configuration) Unmarshal(raw []byte) error {
	*c = Configuration{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			c.Metadata = &xnft.Metadata{}
			d.Message(c.Metadata)
		case 2:
			c.Owner = d.Bytes()
		case 3:
			d.Message(&c.UniversalLocation)
		case 4:
			d.Message(&c.CollectionsPrefix)
		case 5:
			c.TicketTTL = d.Int64()
		case 6:
			c.DeduplicateMetadata = d.Bool()
		case 7:
			c.DefaultMode = Mode(enum(d.Uvarint()))
		case 8:
			var t xcm.Location
			d.Message(&t)
			c.TrustedTeleporters = append(c.TrustedTeleporters, t)
		case 9:
			c.UnitWeight = d.Uvarint()
		case 10:
			c.SweepLimit = d.Uint32()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, packageName, &conf); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return &conf, nil
}
