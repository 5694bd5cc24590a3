package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/gconf"
	"github.com/iov-one/xnft/x"
	"github.com/iov-one/xnft/xcm"
)

const (
	registerCollectionCost int64 = 100
	registerForeignCost    int64 = 100
	mintCost               int64 = 50
	transferCost           int64 = 10
	burnCost               int64 = 10
	destroyCollectionCost  int64 = 10
	transferCrossChainCost int64 = 200
	reverseExpiredCost     int64 = 0
)

// RegisterRoutes registers all bridge message handlers. Programs for other
// chains are sent through sender.
func RegisterRoutes(r xnft.Registry, auth x.Authenticator, sender xcm.Sender) {
	registry := NewRegistry()
	provenance := NewProvenance(registry)
	dispatcher := NewDispatcher(registry, provenance, sender)

	r.Handle(&RegisterCollectionMsg{}, RegisterCollectionHandler{auth: auth, registry: registry})
	r.Handle(&RegisterForeignMsg{}, RegisterForeignHandler{auth: auth, registry: registry})
	r.Handle(&MintMsg{}, MintHandler{auth: auth, registry: registry, provenance: provenance})
	r.Handle(&TransferMsg{}, TransferHandler{auth: auth, provenance: provenance})
	r.Handle(&BurnMsg{}, BurnHandler{auth: auth, provenance: provenance})
	r.Handle(&DestroyCollectionMsg{}, DestroyCollectionHandler{auth: auth, registry: registry})
	r.Handle(&TransferCrossChainMsg{}, TransferCrossChainHandler{auth: auth, provenance: provenance, dispatcher: dispatcher})
	r.Handle(&ReverseExpiredMsg{}, ReverseExpiredHandler{provenance: provenance})
	r.Handle(&UpdateConfigurationMsg{}, gconf.NewUpdateConfigurationHandler(packageName, &Configuration{}, auth))
}

// RegisterCollectionHandler creates native collections.
type RegisterCollectionHandler struct {
	auth     x.Authenticator
	registry *Registry
}

var _ xnft.Handler = RegisterCollectionHandler{}

func (h RegisterCollectionHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &xnft.CheckResult{GasAllocated: registerCollectionCost}, nil
}

func (h RegisterCollectionHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, owner, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	mode := msg.Mode
	if mode == 0 {
		mode = conf.DefaultMode
	}
	c, err := h.registry.RegisterNativeCollection(db, owner, msg.CollectionMetadata, mode, conf.DeduplicateMetadata)
	if err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{
		Data: collectionKey(c.ID),
		Tags: tags{}.event(EventCollectionRegistered).uint(CollectionKey, c.ID),
	}, nil
}

func (h RegisterCollectionHandler) validate(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*RegisterCollectionMsg, xnft.Address, error) {
	var msg RegisterCollectionMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	owner := x.AnySigner(ctx, h.auth)
	if owner == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return &msg, owner, nil
}

// RegisterForeignHandler registers derivative collections on request of the
// configuration owner.
type RegisterForeignHandler struct {
	auth     x.Authenticator
	registry *Registry
}

var _ xnft.Handler = RegisterForeignHandler{}

func (h RegisterForeignHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &xnft.CheckResult{GasAllocated: registerForeignCost}, nil
}

func (h RegisterForeignHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, conf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	mode := msg.Mode
	if mode == 0 {
		mode = conf.DefaultMode
	}
	c, err := h.registry.RegisterForeignCollection(db, NewConverter(conf), msg.Asset, mode)
	if err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{
		Data: collectionKey(c.ID),
		Tags: tags{}.event(EventCollectionRegistered).uint(CollectionKey, c.ID).add(ChainKey, c.Foreign.Chain.String()),
	}, nil
}

func (h RegisterForeignHandler) validate(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*RegisterForeignMsg, *Configuration, error) {
	var msg RegisterForeignMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, conf.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "configuration owner signature required")
	}
	return &msg, conf, nil
}

// MintHandler creates items of native collections.
type MintHandler struct {
	auth       x.Authenticator
	registry   *Registry
	provenance *Provenance
}

var _ xnft.Handler = MintHandler{}

func (h MintHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &xnft.CheckResult{GasAllocated: mintCost}, nil
}

func (h MintHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	it, err := h.provenance.Mint(db, msg.CollectionID, msg.ItemID, msg.Owner)
	if err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{
		Data: itemKey(it.Collection, it.ID),
		Tags: tags{}.event(EventItemMinted).item(it),
	}, nil
}

func (h MintHandler) validate(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*MintMsg, error) {
	var msg MintMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	c, err := h.registry.Collection(db, msg.CollectionID)
	if err != nil {
		return nil, err
	}
	if c.Kind != Native {
		return nil, errors.Wrapf(ErrNotNative, "collection %d", c.ID)
	}
	if !h.auth.HasAddress(ctx, c.Owner) {
		return nil, errors.Wrap(ErrNotOwner, "collection owner signature required")
	}
	return &msg, nil
}

// TransferHandler moves items between local accounts.
type TransferHandler struct {
	auth       x.Authenticator
	provenance *Provenance
}

var _ xnft.Handler = TransferHandler{}

func (h TransferHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &xnft.CheckResult{GasAllocated: transferCost}, nil
}

func (h TransferHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, caller, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	it, err := h.provenance.Transfer(db, msg.CollectionID, msg.ItemID, caller, msg.Recipient)
	if err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{Tags: tags{}.event(EventItemTransferred).item(it)}, nil
}

func (h TransferHandler) validate(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*TransferMsg, xnft.Address, error) {
	var msg TransferMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	caller, err := itemSigner(ctx, db, h.auth, h.provenance, msg.CollectionID, msg.ItemID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, caller, nil
}

// BurnHandler destroys native items.
type BurnHandler struct {
	auth       x.Authenticator
	provenance *Provenance
}

var _ xnft.Handler = BurnHandler{}

func (h BurnHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &xnft.CheckResult{GasAllocated: burnCost}, nil
}

func (h BurnHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, caller, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	it, err := h.provenance.Burn(db, msg.CollectionID, msg.ItemID, caller)
	if err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{Tags: tags{}.event(EventItemBurned).item(it)}, nil
}

func (h BurnHandler) validate(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*BurnMsg, xnft.Address, error) {
	var msg BurnMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	caller, err := itemSigner(ctx, db, h.auth, h.provenance, msg.CollectionID, msg.ItemID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, caller, nil
}

// DestroyCollectionHandler removes empty native collections.
type DestroyCollectionHandler struct {
	auth     x.Authenticator
	registry *Registry
}

var _ xnft.Handler = DestroyCollectionHandler{}

func (h DestroyCollectionHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &xnft.CheckResult{GasAllocated: destroyCollectionCost}, nil
}

func (h DestroyCollectionHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, owner, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.registry.DestroyCollection(db, msg.CollectionID, owner); err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{
		Tags: tags{}.event(EventCollectionDestroyed).uint(CollectionKey, msg.CollectionID),
	}, nil
}

func (h DestroyCollectionHandler) validate(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*DestroyCollectionMsg, xnft.Address, error) {
	var msg DestroyCollectionMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	c, err := h.registry.Collection(db, msg.CollectionID)
	if err != nil {
		return nil, nil, err
	}
	if c.Kind == Native && !h.auth.HasAddress(ctx, c.Owner) {
		return nil, nil, errors.Wrap(ErrNotOwner, "collection owner signature required")
	}
	return &msg, c.Owner, nil
}

// TransferCrossChainHandler sends items to other chains.
type TransferCrossChainHandler struct {
	auth       x.Authenticator
	provenance *Provenance
	dispatcher *Dispatcher
}

var _ xnft.Handler = TransferCrossChainHandler{}

func (h TransferCrossChainHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	msg, caller, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	it, err := h.provenance.Item(db, msg.CollectionID, msg.ItemID)
	if err != nil {
		return nil, err
	}
	if it.State != Resident {
		return nil, errors.Wrapf(ErrItemNotAvailable, "item is %s", it.State)
	}
	if !it.Owner.Equals(caller) {
		return nil, errors.Wrap(ErrNotOwner, "item")
	}
	return &xnft.CheckResult{GasAllocated: transferCrossChainCost}, nil
}

func (h TransferCrossChainHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, caller, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	t, err := h.dispatcher.Dispatch(ctx, db, TransferRequest{
		Collection:  msg.CollectionID,
		Item:        msg.ItemID,
		Caller:      caller,
		Destination: msg.Destination,
		Beneficiary: msg.Beneficiary,
		FeeLimit:    msg.FeeLimit,
	})
	if err != nil {
		return nil, err
	}
	it := &Item{Collection: t.Collection, ID: t.Item}
	return &xnft.DeliverResult{
		Data: ticketKey(t.ID),
		Tags: tags{}.event(EventItemLocked).event(EventItemTransferredOut).item(it).ticket(t),
	}, nil
}

func (h TransferCrossChainHandler) validate(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*TransferCrossChainMsg, xnft.Address, error) {
	var msg TransferCrossChainMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	caller, err := itemSigner(ctx, db, h.auth, h.provenance, msg.CollectionID, msg.ItemID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, caller, nil
}

// ReverseExpiredHandler reverses transfers whose ticket expired. It does
// not require any signature.
type ReverseExpiredHandler struct {
	provenance *Provenance
}

var _ xnft.Handler = ReverseExpiredHandler{}

func (h ReverseExpiredHandler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	msg, height, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	t, err := h.provenance.Ticket(db, msg.TicketID)
	if err != nil {
		return nil, err
	}
	if height <= t.ExpiresAt {
		return nil, errors.Wrapf(ErrNotExpired, "expires at %d", t.ExpiresAt)
	}
	return &xnft.CheckResult{GasAllocated: reverseExpiredCost}, nil
}

func (h ReverseExpiredHandler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, height, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	it, err := h.provenance.ReverseOutbound(db, msg.TicketID, height)
	if err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{
		Tags: tags{}.event(EventTransferReversed).item(it).uint(TicketKey, msg.TicketID),
	}, nil
}

func (h ReverseExpiredHandler) validate(ctx xnft.Context, tx xnft.Tx) (*ReverseExpiredMsg, int64, error) {
	var msg ReverseExpiredMsg
	if err := xnft.LoadMsg(tx, &msg); err != nil {
		return nil, 0, errors.Wrap(err, "load msg")
	}
	height, ok := xnft.GetHeight(ctx)
	if !ok {
		return nil, 0, errors.Wrap(errors.ErrHuman, "block height not set")
	}
	return &msg, height, nil
}

// itemSigner returns the owner of the item if the owner signed the
// transaction, otherwise any signer. The provenance store rejects the
// latter with ErrNotOwner.
func itemSigner(ctx xnft.Context, db xnft.KVStore, auth x.Authenticator, p *Provenance, collection, id uint64) (xnft.Address, error) {
	it, err := p.Item(db, collection, id)
	if err != nil {
		return nil, err
	}
	if it.Owner != nil && auth.HasAddress(ctx, it.Owner) {
		return it.Owner, nil
	}
	signer := x.AnySigner(ctx, auth)
	if signer == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return signer, nil
}
