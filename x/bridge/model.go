package bridge

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/orm"
	"github.com/iov-one/xnft/xcm"
)

// Kind tells where the items of a collection were minted.
type Kind uint8

const (
	// Native collections are minted on this chain.
	Native Kind = 1 + iota
	// Derivative collections represent a collection minted on another
	// chain.
	Derivative
)

func (k Kind) String() string {
	switch k {
	case Native:
		return "native"
	case Derivative:
		return "derivative"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Validate returns an error if the kind is unknown.
func (k Kind) Validate() error {
	if k != Native && k != Derivative {
		return errors.Wrapf(errors.ErrInput, "collection kind %d", k)
	}
	return nil
}

// Mode tells how items leave their native chain.
type Mode uint8

const (
	// Reserve keeps the native item locked while a derivative exists
	// elsewhere.
	Reserve Mode = 1 + iota
	// Teleport burns the native item and mints it on the destination.
	// Requires the destination to trust this chain.
	Teleport
)

func (m Mode) String() string {
	switch m {
	case Reserve:
		return "reserve"
	case Teleport:
		return "teleport"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Validate returns an error if the mode is unknown.
func (m Mode) Validate() error {
	if m != Reserve && m != Teleport {
		return errors.Wrapf(errors.ErrInput, "transfer mode %d", m)
	}
	return nil
}

// ParseMode returns the mode with given name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "reserve":
		return Reserve, nil
	case "teleport":
		return Teleport, nil
	case "":
		return 0, nil
	default:
		return 0, errors.Wrapf(errors.ErrInput, "unknown mode %q", s)
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if m == 0 {
		return json.Marshal("")
	}
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	v, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// State of an item record.
type State uint8

const (
	// Resident items are owned by an account on this chain.
	Resident State = 1 + iota
	// Locked items cannot be used. Either an outbound transfer awaits
	// reconciliation (the item has an open ticket), or the item backs a
	// derivative on the counterparty chain.
	Locked
	// Stashed items do not exist on this chain. The record is kept so
	// that the nonce history survives.
	Stashed
)

func (s State) String() string {
	switch s {
	case Resident:
		return "resident"
	case Locked:
		return "locked"
	case Stashed:
		return "stashed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Validate returns an error if the state is unknown.
func (s State) Validate() error {
	if s < Resident || s > Stashed {
		return errors.Wrapf(errors.ErrInput, "item state %d", s)
	}
	return nil
}

// enum narrows a decoded enumeration value. Values that do not fit are
// mapped to an invalid value, rejected by Validate.
func enum(v uint64) uint8 {
	if v > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(v)
}

// ForeignRef locates the collection a derivative represents: the chain it
// was minted on and the collection identifier local to that chain.
type ForeignRef struct {
	Chain      xcm.Location
	Collection xcm.Junctions
}

// Validate returns an error if the reference cannot point at a foreign
// collection.
func (f *ForeignRef) Validate() error {
	if f == nil {
		return errors.Wrap(errors.ErrEmpty, "foreign reference")
	}
	if err := f.Chain.Validate(); err != nil {
		return errors.Wrap(err, "chain")
	}
	if f.Chain.IsHere() {
		return errors.Wrap(ErrLocalAsset, "chain")
	}
	if len(f.Collection) == 0 {
		return errors.Wrap(errors.ErrEmpty, "collection")
	}
	if err := f.Collection.Validate(); err != nil {
		return errors.Wrap(err, "collection")
	}
	return nil
}

// AssetID returns the location of the foreign collection relative to this
// chain.
func (f *ForeignRef) AssetID() xcm.Location {
	return f.Chain.Append(f.Collection...)
}

func (f *ForeignRef) String() string {
	return f.AssetID().String()
}

// Key returns the value the registry indexes this reference under.
func (f *ForeignRef) Key() ([]byte, error) {
	return f.Marshal()
}

func (f *ForeignRef) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, f.Chain)
	for _, j := range f.Collection {
		b.Message(2, j)
	}
	return b.Result()
}

func (f *ForeignRef) Unmarshal(raw []byte) error {
	*f = ForeignRef{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			d.Message(&f.Chain)
		case 2:
			var j xcm.Junction
			d.Message(&j)
			f.Collection = append(f.Collection, j)
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// Collection is the registry record of a collection.
type Collection struct {
	Metadata *xnft.Metadata
	ID       uint64
	Kind     Kind
	Mode     Mode
	// Owner can mint items and destroy the collection. Native only.
	Owner xnft.Address
	// Foreign is set iff the collection is a derivative.
	Foreign      *ForeignRef
	MetadataHash []byte
	// Items counts the items that exist on this chain, or were teleported
	// away and can come back.
	Items uint64
}

var _ orm.Model = (*Collection)(nil)

func (c *Collection) Validate() error {
	if err := c.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if c.ID == 0 {
		errs = errors.AppendField(errs, "ID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Kind", c.Kind.Validate())
	errs = errors.AppendField(errs, "Mode", c.Mode.Validate())
	switch c.Kind {
	case Native:
		errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
		if c.Foreign != nil {
			errs = errors.AppendField(errs, "Foreign", errors.Wrap(errors.ErrState, "native collection with a foreign reference"))
		}
	case Derivative:
		errs = errors.AppendField(errs, "Foreign", c.Foreign.Validate())
		if len(c.Owner) != 0 {
			errs = errors.AppendField(errs, "Owner", errors.Wrap(errors.ErrState, "derivative collection with an owner"))
		}
	}
	if n := len(c.MetadataHash); n != 0 && n != 32 {
		errs = errors.AppendField(errs, "MetadataHash", errors.Wrapf(errors.ErrInput, "length %d", n))
	}
	return errs
}

func (c *Collection) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, c.Metadata)
	b.Uvarint(2, c.ID)
	b.Uvarint(3, uint64(c.Kind))
	b.Uvarint(4, uint64(c.Mode))
	b.Bytes(5, c.Owner)
	b.Message(6, c.Foreign)
	b.Bytes(7, c.MetadataHash)
	b.Uvarint(8, c.Items)
	return b.Result()
}

func (c *Collection) Unmarshal(raw []byte) error {
	*c = Collection{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			c.Metadata = &xnft.Metadata{}
			d.Message(c.Metadata)
		case 2:
			c.ID = d.Uvarint()
		case 3:
			c.Kind = Kind(enum(d.Uvarint()))
		case 4:
			c.Mode = Mode(enum(d.Uvarint()))
		case 5:
			c.Owner = d.Bytes()
		case 6:
			c.Foreign = &ForeignRef{}
			d.Message(c.Foreign)
		case 7:
			c.MetadataHash = d.Bytes()
		case 8:
			c.Items = d.Uvarint()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// Item is the provenance record of a single item.
type Item struct {
	Metadata   *xnft.Metadata
	Collection uint64
	ID         uint64
	State      State
	// Owner is set iff the item is Resident.
	Owner xnft.Address
	// Sequence is the nonce of the last transfer of this item. It never
	// decreases.
	Sequence uint64
	// Counterparty is the chain the item was sent to while Locked, or the
	// origin of a derivative item that exists on this chain.
	Counterparty *xcm.Location
	// ForeignInstance is the identifier of a derivative item on its
	// native chain. Nil for native items.
	ForeignInstance *xcm.AssetInstance
	// Ticket is the open outbound transfer ticket, if any.
	Ticket uint64
}

var _ orm.Model = (*Item)(nil)

func (i *Item) Validate() error {
	if err := i.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if i.Collection == 0 {
		errs = errors.AppendField(errs, "Collection", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "State", i.State.Validate())
	if i.State == Resident {
		errs = errors.AppendField(errs, "Owner", i.Owner.Validate())
	} else if len(i.Owner) != 0 {
		errs = errors.AppendField(errs, "Owner", errors.Wrapf(errors.ErrState, "owner set on %s item", i.State))
	}
	if i.State == Locked && i.Counterparty == nil {
		errs = errors.AppendField(errs, "Counterparty", errors.Wrap(errors.ErrEmpty, "locked item without counterparty"))
	}
	if i.Counterparty != nil {
		errs = errors.AppendField(errs, "Counterparty", i.Counterparty.Validate())
	}
	if i.ForeignInstance != nil {
		errs = errors.AppendField(errs, "ForeignInstance", i.ForeignInstance.Validate())
	}
	if i.Ticket != 0 && i.State != Locked {
		errs = errors.AppendField(errs, "Ticket", errors.Wrapf(errors.ErrState, "ticket on %s item", i.State))
	}
	return errs
}

// Derivative returns true if the item represents an item of another chain.
func (i *Item) Derivative() bool {
	return i.ForeignInstance != nil
}

// outstanding returns true if the item counts towards the collection size.
func (i *Item) outstanding() bool {
	if i == nil {
		return false
	}
	return i.State != Stashed || i.Counterparty != nil
}

func (i *Item) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, i.Metadata)
	b.Uvarint(2, i.Collection)
	b.Uvarint(3, i.ID)
	b.Uvarint(4, uint64(i.State))
	b.Bytes(5, i.Owner)
	b.Uvarint(6, i.Sequence)
	b.Message(7, i.Counterparty)
	b.Message(8, i.ForeignInstance)
	b.Uvarint(9, i.Ticket)
	return b.Result()
}

func (i *Item) Unmarshal(raw []byte) error {
	*i = Item{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			i.Metadata = &xnft.Metadata{}
			d.Message(i.Metadata)
		case 2:
			i.Collection = d.Uvarint()
		case 3:
			i.ID = d.Uvarint()
		case 4:
			i.State = State(enum(d.Uvarint()))
		case 5:
			i.Owner = d.Bytes()
		case 6:
			i.Sequence = d.Uvarint()
		case 7:
			i.Counterparty = &xcm.Location{}
			d.Message(i.Counterparty)
		case 8:
			i.ForeignInstance = &xcm.AssetInstance{}
			d.Message(i.ForeignInstance)
		case 9:
			i.Ticket = d.Uvarint()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// Ticket links a locked item to the outbound transfer that locked it.
type Ticket struct {
	Metadata      *xnft.Metadata
	ID            uint64
	Collection    uint64
	Item          uint64
	Destination   xcm.Location
	Beneficiary   xcm.Location
	Nonce         uint64
	PreviousOwner xnft.Address
	FeeLimit      uint64
	// CreatedAt and ExpiresAt are block heights.
	CreatedAt int64
	ExpiresAt int64
}

var _ orm.Model = (*Ticket)(nil)

func (t *Ticket) Validate() error {
	if err := t.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if t.ID == 0 {
		errs = errors.AppendField(errs, "ID", errors.ErrEmpty)
	}
	if t.Collection == 0 {
		errs = errors.AppendField(errs, "Collection", errors.ErrEmpty)
	}
	if t.Destination.IsHere() {
		errs = errors.AppendField(errs, "Destination", ErrInvalidDestination)
	} else {
		errs = errors.AppendField(errs, "Destination", t.Destination.Validate())
	}
	errs = errors.AppendField(errs, "Beneficiary", t.Beneficiary.Validate())
	if t.Nonce == 0 {
		errs = errors.AppendField(errs, "Nonce", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "PreviousOwner", t.PreviousOwner.Validate())
	if t.ExpiresAt <= t.CreatedAt {
		errs = errors.AppendField(errs, "ExpiresAt", errors.Wrap(errors.ErrInput, "must be after creation"))
	}
	return errs
}

func (t *Ticket) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, t.Metadata)
	b.Uvarint(2, t.ID)
	b.Uvarint(3, t.Collection)
	b.Uvarint(4, t.Item)
	b.Message(5, t.Destination)
	b.Message(6, t.Beneficiary)
	b.Uvarint(7, t.Nonce)
	b.Bytes(8, t.PreviousOwner)
	b.Uvarint(9, t.FeeLimit)
	b.Int64(10, t.CreatedAt)
	b.Int64(11, t.ExpiresAt)
	return b.Result()
}

func (t *Ticket) Unmarshal(raw []byte) error {
	*t = Ticket{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			t.Metadata = &xnft.Metadata{}
			d.Message(t.Metadata)
		case 2:
			t.ID = d.Uvarint()
		case 3:
			t.Collection = d.Uvarint()
		case 4:
			t.Item = d.Uvarint()
		case 5:
			d.Message(&t.Destination)
		case 6:
			d.Message(&t.Beneficiary)
		case 7:
			t.Nonce = d.Uvarint()
		case 8:
			t.PreviousOwner = d.Bytes()
		case 9:
			t.FeeLimit = d.Uvarint()
		case 10:
			t.CreatedAt = d.Int64()
		case 11:
			t.ExpiresAt = d.Int64()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// PendingMessage correlates a dispatched program with its ticket.
type PendingMessage struct {
	Metadata    *xnft.Metadata
	Ticket      uint64
	Destination xcm.Location
	Nonce       uint64
	// MessageHash is the blake2b-256 digest of the encoded program.
	MessageHash []byte
	SentAt      int64
	ExpiresAt   int64
}

var _ orm.Model = (*PendingMessage)(nil)

func (p *PendingMessage) Validate() error {
	if err := p.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if p.Ticket == 0 {
		errs = errors.AppendField(errs, "Ticket", errors.ErrEmpty)
	}
	if p.Destination.IsHere() {
		errs = errors.AppendField(errs, "Destination", ErrInvalidDestination)
	}
	if p.Nonce == 0 {
		errs = errors.AppendField(errs, "Nonce", errors.ErrEmpty)
	}
	if len(p.MessageHash) != 32 {
		errs = errors.AppendField(errs, "MessageHash", errors.Wrapf(errors.ErrInput, "length %d", len(p.MessageHash)))
	}
	return errs
}

func (p *PendingMessage) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, p.Metadata)
	b.Uvarint(2, p.Ticket)
	b.Message(3, p.Destination)
	b.Uvarint(4, p.Nonce)
	b.Bytes(5, p.MessageHash)
	b.Int64(6, p.SentAt)
	b.Int64(7, p.ExpiresAt)
	return b.Result()
}

func (p *PendingMessage) Unmarshal(raw []byte) error {
	*p = PendingMessage{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			p.Metadata = &xnft.Metadata{}
			d.Message(p.Metadata)
		case 2:
			p.Ticket = d.Uvarint()
		case 3:
			d.Message(&p.Destination)
		case 4:
			p.Nonce = d.Uvarint()
		case 5:
			p.MessageHash = d.Bytes()
		case 6:
			p.SentAt = d.Int64()
		case 7:
			p.ExpiresAt = d.Int64()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

var (
	collectionSeq = orm.NewSequence("coll", "id")
	itemSeq       = orm.NewSequence("item", "derivative")
	ticketSeq     = orm.NewSequence("ticket", "id")
)

// NewCollectionBucket returns the bucket holding the registry. Derivative
// collections are indexed by their foreign reference, native collections by
// their metadata hash.
func NewCollectionBucket() *orm.ModelBucket {
	return orm.NewModelBucket("coll", &Collection{},
		orm.WithIndex("foreign", foreignRefIndexer, true),
		orm.WithIndex("metadata", metadataIndexer, false),
	)
}

// NewItemBucket returns the bucket holding item provenance records.
// Derivative items are indexed by their foreign instance, resident items by
// their owner.
func NewItemBucket() *orm.ModelBucket {
	return orm.NewModelBucket("item", &Item{},
		orm.WithIndex("foreign", foreignInstanceIndexer, true),
		orm.WithIndex("owner", ownerIndexer, false),
	)
}

// NewTicketBucket returns the bucket holding open transfer tickets.
func NewTicketBucket() *orm.ModelBucket {
	return orm.NewModelBucket("ticket", &Ticket{})
}

// NewPendingBucket returns the bucket holding dispatched messages awaiting
// reconciliation.
func NewPendingBucket() *orm.ModelBucket {
	return orm.NewModelBucket("pending", &PendingMessage{})
}

func foreignRefIndexer(m orm.Model) ([]byte, error) {
	c, ok := m.(*Collection)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	if c.Foreign == nil {
		return nil, nil
	}
	return c.Foreign.Key()
}

func metadataIndexer(m orm.Model) ([]byte, error) {
	c, ok := m.(*Collection)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	if c.Kind != Native || len(c.MetadataHash) == 0 {
		return nil, nil
	}
	return c.MetadataHash, nil
}

func foreignInstanceIndexer(m orm.Model) ([]byte, error) {
	i, ok := m.(*Item)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	if i.ForeignInstance == nil {
		return nil, nil
	}
	return foreignInstanceKey(i.Collection, *i.ForeignInstance)
}

func ownerIndexer(m orm.Model) ([]byte, error) {
	i, ok := m.(*Item)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	if len(i.Owner) == 0 {
		return nil, nil
	}
	return i.Owner, nil
}

func foreignInstanceKey(collection uint64, inst xcm.AssetInstance) ([]byte, error) {
	raw, err := inst.Marshal()
	if err != nil {
		return nil, err
	}
	return append(codec.EncodeSequence(collection), raw...), nil
}

func collectionKey(id uint64) []byte {
	return codec.EncodeSequence(id)
}

func itemKey(collection, item uint64) []byte {
	return append(codec.EncodeSequence(collection), codec.EncodeSequence(item)...)
}

func ticketKey(id uint64) []byte {
	return codec.EncodeSequence(id)
}
