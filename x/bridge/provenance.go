package bridge

import (
	"math"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/orm"
	"github.com/iov-one/xnft/xcm"
)

// Provenance drives the item state machine. Every method either applies
// the whole transition or returns an error. Callers run methods on a cache
// wrap and discard it on error, so partial writes never reach the store.
type Provenance struct {
	registry *Registry
	items    *orm.ModelBucket
	tickets  *orm.ModelBucket
	pending  *orm.ModelBucket
}

// NewProvenance returns a provenance store using the default buckets.
func NewProvenance(r *Registry) *Provenance {
	return &Provenance{
		registry: r,
		items:    NewItemBucket(),
		tickets:  NewTicketBucket(),
		pending:  NewPendingBucket(),
	}
}

// Transition describes the result of an inbound transfer.
type Transition struct {
	Item *Item
	// Applied is false when the message carried a nonce that was already
	// seen. Such message is a successful no-op.
	Applied bool
	// Registered is set when the transfer created a derivative collection.
	Registered *Collection
}

// Item returns the item record.
func (p *Provenance) Item(db xnft.ReadOnlyKVStore, collection, id uint64) (*Item, error) {
	var it Item
	if err := p.items.One(db, itemKey(collection, id), &it); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, errors.Wrapf(ErrUnknownItem, "%d/%d", collection, id)
		}
		return nil, err
	}
	return &it, nil
}

// ForeignItem returns the derivative item representing given foreign
// instance. ErrNotFound is returned if no such item exists.
func (p *Provenance) ForeignItem(db xnft.ReadOnlyKVStore, collection uint64, inst xcm.AssetInstance) (*Item, error) {
	key, err := foreignInstanceKey(collection, inst)
	if err != nil {
		return nil, errors.Wrap(err, "instance")
	}
	var found []*Item
	if _, err := p.items.ByIndex(db, "foreign", key, &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "instance %s of collection %d", inst, collection)
	}
	return found[0], nil
}

// ItemsByOwner returns all resident items owned by given address.
func (p *Provenance) ItemsByOwner(db xnft.ReadOnlyKVStore, owner xnft.Address) ([]*Item, error) {
	var items []*Item
	if _, err := p.items.ByIndex(db, "owner", owner, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Ticket returns an open ticket.
func (p *Provenance) Ticket(db xnft.ReadOnlyKVStore, id uint64) (*Ticket, error) {
	var t Ticket
	if err := p.tickets.One(db, ticketKey(id), &t); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, errors.Wrapf(ErrUnknownTicket, "%d", id)
		}
		return nil, err
	}
	return &t, nil
}

// Pending returns the dispatched message of an open ticket.
func (p *Provenance) Pending(db xnft.ReadOnlyKVStore, ticket uint64) (*PendingMessage, error) {
	var m PendingMessage
	if err := p.pending.One(db, ticketKey(ticket), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Mint creates an item of a native collection. A burned item can be minted
// again, it keeps its sequence.
func (p *Provenance) Mint(db xnft.KVStore, collection, id uint64, owner xnft.Address) (*Item, error) {
	c, err := p.registry.Collection(db, collection)
	if err != nil {
		return nil, err
	}
	if c.Kind != Native {
		return nil, errors.Wrapf(ErrNotNative, "collection %d", collection)
	}

	it, err := p.Item(db, collection, id)
	switch {
	case err == nil:
		if it.outstanding() {
			return nil, errors.Wrapf(ErrItemExists, "%d/%d", collection, id)
		}
		it.State = Resident
		it.Owner = owner
		return it, p.save(db, it, false)
	case !ErrUnknownItem.Is(err):
		return nil, err
	}

	it = &Item{
		Metadata:   &xnft.Metadata{Schema: 1},
		Collection: collection,
		ID:         id,
		State:      Resident,
		Owner:      owner,
	}
	return it, p.save(db, it, false)
}

// InitiateOutboundTransfer locks a resident item owned by caller and opens
// a ticket for its transfer to destination. The ticket nonce is the new
// item sequence.
func (p *Provenance) InitiateOutboundTransfer(
	db xnft.KVStore,
	collection, id uint64,
	caller xnft.Address,
	destination, beneficiary xcm.Location,
	feeLimit uint64,
	height, ttl int64,
) (*Ticket, error) {
	it, err := p.Item(db, collection, id)
	if err != nil {
		return nil, err
	}
	if it.State != Resident {
		return nil, errors.Wrapf(ErrItemNotAvailable, "item is %s", it.State)
	}
	if !it.Owner.Equals(caller) {
		return nil, errors.Wrap(ErrNotOwner, "item")
	}
	if destination.IsHere() {
		return nil, errors.Wrap(ErrInvalidDestination, "here")
	}
	if it.Derivative() && !it.Counterparty.Equals(destination) {
		return nil, errors.Wrapf(ErrInvalidDestination, "derivative can only return to %s", it.Counterparty)
	}
	if it.Sequence == math.MaxUint64 {
		return nil, errors.Wrap(errors.ErrOverflow, "item sequence")
	}
	if ttl < 1 || height > math.MaxInt64-ttl {
		return nil, errors.Wrapf(errors.ErrOverflow, "ticket expiration %d + %d", height, ttl)
	}

	ticketID, err := ticketSeq.NextInt(db)
	if err != nil {
		return nil, errors.Wrap(err, "ticket sequence")
	}
	t := &Ticket{
		Metadata:      &xnft.Metadata{Schema: 1},
		ID:            ticketID,
		Collection:    collection,
		Item:          id,
		Destination:   destination,
		Beneficiary:   beneficiary,
		Nonce:         it.Sequence + 1,
		PreviousOwner: it.Owner,
		FeeLimit:      feeLimit,
		CreatedAt:     height,
		ExpiresAt:     height + ttl,
	}
	if _, err := p.tickets.Put(db, ticketKey(t.ID), t); err != nil {
		return nil, errors.Wrap(err, "save ticket")
	}
	if err := db.Set(timeoutKey(t.ExpiresAt, t.ID), []byte{}); err != nil {
		return nil, errors.Wrap(err, "timeout queue")
	}

	was := it.outstanding()
	it.State = Locked
	it.Owner = nil
	it.Sequence = t.Nonce
	it.Counterparty = &destination
	it.Ticket = t.ID
	if err := p.save(db, it, was); err != nil {
		return nil, err
	}
	return t, nil
}

// ReverseOutbound gives an item locked by an expired ticket back to its
// previous owner. The sequence is advanced, so that a late acknowledgment
// of the reversed transfer is rejected as stale.
func (p *Provenance) ReverseOutbound(db xnft.KVStore, ticketID uint64, height int64) (*Item, error) {
	t, err := p.Ticket(db, ticketID)
	if err != nil {
		return nil, err
	}
	if height <= t.ExpiresAt {
		return nil, errors.Wrapf(ErrNotExpired, "expires at %d", t.ExpiresAt)
	}
	it, err := p.Item(db, t.Collection, t.Item)
	if err != nil {
		return nil, err
	}
	if it.State != Locked || it.Ticket != t.ID {
		return nil, errors.Wrapf(ErrItemNotAvailable, "item is not locked by ticket %d", t.ID)
	}
	if it.Sequence == math.MaxUint64 {
		return nil, errors.Wrap(errors.ErrOverflow, "item sequence")
	}

	was := it.outstanding()
	it.State = Resident
	it.Owner = t.PreviousOwner
	it.Sequence++
	it.Ticket = 0
	if !it.Derivative() {
		it.Counterparty = nil
	}
	if err := p.save(db, it, was); err != nil {
		return nil, err
	}
	if err := p.closeTicket(db, t); err != nil {
		return nil, err
	}
	return it, nil
}

// InboundMint applies a transfer of a foreign item to this chain. The
// derivative collection is registered on first use. A nonce that is not
// greater than the last seen one makes the call a successful no-op.
func (p *Provenance) InboundMint(
	db xnft.KVStore,
	origin xcm.Location,
	remote xcm.Junctions,
	inst xcm.AssetInstance,
	nonce uint64,
	beneficiary xnft.Address,
	mode Mode,
) (*Transition, error) {
	c, err := p.registry.LookupForeign(db, origin, remote)
	switch {
	case err == nil:
		if c.Mode != mode {
			return nil, errors.Wrapf(ErrMalformedProgram, "collection %d uses %s transfers", c.ID, c.Mode)
		}
		it, err := p.ForeignItem(db, c.ID, inst)
		switch {
		case err == nil:
			return p.resurrect(db, it, origin, nonce, beneficiary)
		case !errors.ErrNotFound.Is(err):
			return nil, err
		}
	case !errors.ErrNotFound.Is(err):
		return nil, err
	}

	tr := &Transition{Applied: true}
	if c == nil {
		c, _, err = p.registry.RegisterOrLookupDerivative(db, origin, remote, mode)
		if err != nil {
			return nil, errors.Wrap(err, "register derivative")
		}
		tr.Registered = c
	}
	id, err := itemSeq.NextInt(db)
	if err != nil {
		return nil, errors.Wrap(err, "item sequence")
	}
	tr.Item = &Item{
		Metadata:        &xnft.Metadata{Schema: 1},
		Collection:      c.ID,
		ID:              id,
		State:           Resident,
		Owner:           beneficiary,
		Sequence:        nonce,
		Counterparty:    &origin,
		ForeignInstance: inst.Copy(),
	}
	if err := p.save(db, tr.Item, false); err != nil {
		return nil, err
	}
	return tr, nil
}

func (p *Provenance) resurrect(db xnft.KVStore, it *Item, origin xcm.Location, nonce uint64, beneficiary xnft.Address) (*Transition, error) {
	if nonce <= it.Sequence {
		return &Transition{Item: it}, nil
	}
	switch {
	case it.State == Stashed:
	case it.State == Locked && it.Ticket != 0 && it.Counterparty != nil && it.Counterparty.Equals(origin):
		// The return home succeeded and the item was sent back here
		// before the acknowledgment arrived.
		t, err := p.Ticket(db, it.Ticket)
		if err != nil {
			return nil, err
		}
		if err := p.closeTicket(db, t); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(ErrItemNotAvailable, "derivative is %s", it.State)
	}
	was := it.outstanding()
	it.State = Resident
	it.Owner = beneficiary
	it.Sequence = nonce
	it.Counterparty = &origin
	it.Ticket = 0
	if err := p.save(db, it, was); err != nil {
		return nil, err
	}
	return &Transition{Item: it, Applied: true}, nil
}

// InboundReturn applies the transfer of a native item back to this chain.
// The message must come from the chain the item was sent to.
func (p *Provenance) InboundReturn(
	db xnft.KVStore,
	origin xcm.Location,
	collection, id uint64,
	nonce uint64,
	beneficiary xnft.Address,
) (*Transition, error) {
	c, err := p.registry.Collection(db, collection)
	if err != nil {
		return nil, err
	}
	if c.Kind != Native {
		return nil, errors.Wrapf(ErrNotNative, "collection %d", collection)
	}
	it, err := p.Item(db, collection, id)
	if err != nil {
		return nil, err
	}
	if nonce <= it.Sequence {
		return &Transition{Item: it}, nil
	}
	switch it.State {
	case Locked:
	case Stashed:
		if c.Mode != Teleport || it.Counterparty == nil {
			return nil, errors.Wrap(ErrItemNotAvailable, "item was burned")
		}
	default:
		return nil, errors.Wrapf(ErrItemNotAvailable, "item is %s", it.State)
	}
	if it.Counterparty == nil || !it.Counterparty.Equals(origin) {
		return nil, errors.Wrapf(ErrCounterpartyMismatch, "item is held by %s", it.Counterparty)
	}
	if it.Ticket != 0 {
		// The transfer succeeded and the item came back before the
		// acknowledgment arrived.
		t, err := p.Ticket(db, it.Ticket)
		if err != nil {
			return nil, err
		}
		if err := p.closeTicket(db, t); err != nil {
			return nil, err
		}
	}

	was := it.outstanding()
	it.State = Resident
	it.Owner = beneficiary
	it.Sequence = nonce
	it.Counterparty = nil
	it.Ticket = 0
	if err := p.save(db, it, was); err != nil {
		return nil, err
	}
	return &Transition{Item: it, Applied: true}, nil
}

// Acknowledge confirms that the transfer of given ticket was executed by
// its destination. Native items stay locked (reserve) or are burned
// (teleport), derivative items are burned.
func (p *Provenance) Acknowledge(db xnft.KVStore, origin xcm.Location, ticketID, nonce uint64) (*Item, error) {
	t, err := p.Ticket(db, ticketID)
	if err != nil {
		if ErrUnknownTicket.Is(err) {
			return nil, errors.Wrapf(ErrStaleAcknowledgment, "ticket %d is closed", ticketID)
		}
		return nil, err
	}
	if !t.Destination.Equals(origin) {
		return nil, errors.Wrapf(ErrCounterpartyMismatch, "ticket destination is %s", t.Destination)
	}
	if nonce != t.Nonce {
		return nil, errors.Wrapf(ErrStaleAcknowledgment, "nonce %d, ticket nonce %d", nonce, t.Nonce)
	}
	it, err := p.Item(db, t.Collection, t.Item)
	if err != nil {
		return nil, err
	}
	if it.State != Locked || it.Ticket != t.ID {
		return nil, errors.Wrapf(ErrStaleAcknowledgment, "item is not locked by ticket %d", t.ID)
	}

	was := it.outstanding()
	it.Ticket = 0
	if it.Derivative() {
		it.State = Stashed
		it.Counterparty = nil
	} else {
		c, err := p.registry.Collection(db, it.Collection)
		if err != nil {
			return nil, err
		}
		if c.Mode == Teleport {
			it.State = Stashed
		}
	}
	if err := p.save(db, it, was); err != nil {
		return nil, err
	}
	if err := p.closeTicket(db, t); err != nil {
		return nil, err
	}
	return it, nil
}

// Transfer changes the owner of a resident item.
func (p *Provenance) Transfer(db xnft.KVStore, collection, id uint64, caller, recipient xnft.Address) (*Item, error) {
	it, err := p.Item(db, collection, id)
	if err != nil {
		return nil, err
	}
	if it.State != Resident {
		return nil, errors.Wrapf(ErrItemNotAvailable, "item is %s", it.State)
	}
	if !it.Owner.Equals(caller) {
		return nil, errors.Wrap(ErrNotOwner, "item")
	}
	it.Owner = recipient
	return it, p.save(db, it, true)
}

// Burn destroys a resident native item. The record is kept as stashed.
func (p *Provenance) Burn(db xnft.KVStore, collection, id uint64, caller xnft.Address) (*Item, error) {
	it, err := p.Item(db, collection, id)
	if err != nil {
		return nil, err
	}
	if it.Derivative() {
		return nil, errors.Wrapf(ErrNotNative, "collection %d", collection)
	}
	if it.State != Resident {
		return nil, errors.Wrapf(ErrItemNotAvailable, "item is %s", it.State)
	}
	if !it.Owner.Equals(caller) {
		return nil, errors.Wrap(ErrNotOwner, "item")
	}
	was := it.outstanding()
	it.State = Stashed
	it.Owner = nil
	it.Counterparty = nil
	return it, p.save(db, it, was)
}

// Expiration is an entry of the timeout queue.
type Expiration struct {
	ExpiresAt int64
	Ticket    uint64
}

// Expired returns up to limit open tickets that expired before height, in
// expiration order.
func (p *Provenance) Expired(db xnft.ReadOnlyKVStore, height int64, limit int) ([]Expiration, error) {
	end := cat(timeoutPrefix, codec.EncodeSequence(uint64(height)))
	it, err := db.Iterator(timeoutPrefix, end)
	if err != nil {
		return nil, errors.Wrap(err, "timeout queue")
	}
	defer it.Release()

	var expired []Expiration
	for len(expired) < limit {
		key, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "timeout queue")
		}
		key = key[len(timeoutPrefix):]
		if len(key) != 16 {
			return nil, errors.Wrapf(errors.ErrDatabase, "timeout queue key length %d", len(key))
		}
		at, err := codec.DecodeSequence(key[:8])
		if err != nil {
			return nil, errors.Wrap(err, "timeout queue key")
		}
		id, err := codec.DecodeSequence(key[8:])
		if err != nil {
			return nil, errors.Wrap(err, "timeout queue key")
		}
		expired = append(expired, Expiration{ExpiresAt: int64(at), Ticket: id})
	}
	return expired, nil
}

// dropTimeout removes a ticket from the timeout queue.
func (p *Provenance) dropTimeout(db xnft.KVStore, expiresAt int64, ticketID uint64) error {
	return db.Delete(timeoutKey(expiresAt, ticketID))
}

func (p *Provenance) closeTicket(db xnft.KVStore, t *Ticket) error {
	if err := p.tickets.Delete(db, ticketKey(t.ID)); err != nil {
		return errors.Wrap(err, "delete ticket")
	}
	if err := p.pending.Delete(db, ticketKey(t.ID)); err != nil && !errors.ErrNotFound.Is(err) {
		return errors.Wrap(err, "delete pending message")
	}
	if err := p.dropTimeout(db, t.ExpiresAt, t.ID); err != nil {
		return errors.Wrap(err, "timeout queue")
	}
	return nil
}

// save stores the item and keeps the collection item counter up to date.
// wasOutstanding is the outstanding state of the item before the change.
func (p *Provenance) save(db xnft.KVStore, it *Item, wasOutstanding bool) error {
	if now := it.outstanding(); now != wasOutstanding {
		c, err := p.registry.Collection(db, it.Collection)
		if err != nil {
			return err
		}
		switch {
		case now:
			c.Items++
		case c.Items == 0:
			return errors.Wrapf(errors.ErrHuman, "collection %d item counter underflow", c.ID)
		default:
			c.Items--
		}
		if err := p.registry.Save(db, c); err != nil {
			return errors.Wrap(err, "save collection")
		}
	}
	if _, err := p.items.Put(db, itemKey(it.Collection, it.ID), it); err != nil {
		return errors.Wrap(err, "save item")
	}
	return nil
}

var timeoutPrefix = []byte("_bridge.timeout:")

func timeoutKey(expiresAt int64, ticketID uint64) []byte {
	return cat(timeoutPrefix, codec.EncodeSequence(uint64(expiresAt)), codec.EncodeSequence(ticketID))
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
