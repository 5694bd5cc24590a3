package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/x/utils"
	"github.com/iov-one/xnft/xcm"
)

// TransferRequest asks for an item to be moved to another chain.
type TransferRequest struct {
	Collection uint64
	Item       uint64
	Caller     xnft.Address
	// Destination chain, relative to this chain.
	Destination xcm.Location
	// Beneficiary account, relative to the destination chain.
	Beneficiary xcm.Location
	// FeeLimit is the most the sender pays for the execution on the
	// destination chain.
	FeeLimit uint64
}

// Dispatcher locks items leaving this chain and sends the program that
// recreates them on the destination.
type Dispatcher struct {
	registry   *Registry
	provenance *Provenance
	sender     xcm.Sender
}

// NewDispatcher returns a dispatcher sending programs through sender.
func NewDispatcher(r *Registry, p *Provenance, sender xcm.Sender) *Dispatcher {
	return &Dispatcher{registry: r, provenance: p, sender: sender}
}

// Dispatch locks the item and sends the transfer program. If the program
// cannot be sent, nothing is written and the item remains resident.
func (d *Dispatcher) Dispatch(ctx xnft.Context, db xnft.KVStore, req TransferRequest) (*Ticket, error) {
	height, ok := xnft.GetHeight(ctx)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "block height not set")
	}

	var ticket *Ticket
	err := utils.Atomic(db, func(db xnft.KVStore) error {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		dest := req.Destination.Simplify(conf.Universal())
		if dest.IsHere() {
			return errors.Wrap(ErrInvalidDestination, "here")
		}
		c, err := d.registry.Collection(db, req.Collection)
		if err != nil {
			return err
		}
		if c.Kind == Derivative && !c.Foreign.Chain.Equals(dest) {
			return errors.Wrapf(ErrInvalidDestination, "derivative can only return to %s", c.Foreign.Chain)
		}

		t, err := d.provenance.InitiateOutboundTransfer(db, req.Collection, req.Item, req.Caller,
			dest, req.Beneficiary, req.FeeLimit, height, conf.TicketTTL)
		if err != nil {
			return err
		}
		it, err := d.provenance.Item(db, req.Collection, req.Item)
		if err != nil {
			return err
		}
		prog, err := BuildProgram(NewConverter(conf), c, it, t)
		if err != nil {
			return errors.Wrap(err, "build program")
		}
		raw, err := prog.Marshal()
		if err != nil {
			return errors.Wrap(err, "encode program")
		}

		pending := &PendingMessage{
			Metadata:    &xnft.Metadata{Schema: 1},
			Ticket:      t.ID,
			Destination: dest,
			Nonce:       t.Nonce,
			MessageHash: xcm.Hash(raw),
			SentAt:      height,
			ExpiresAt:   t.ExpiresAt,
		}
		if _, err := d.provenance.pending.Put(db, ticketKey(t.ID), pending); err != nil {
			return errors.Wrap(err, "save pending message")
		}

		env := xcm.Envelope{Destination: dest, Nonce: t.Nonce, Payload: raw}
		if err := d.sender.Send(ctx, env); err != nil {
			return errors.Append(ErrTransport, err)
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// BuildProgram returns the program executed by the destination of the
// ticket. Asset and reply locations are reanchored to the destination.
//
// The first instruction tells the destination how the item arrives. A
// native item is deposited into the reserve kept by this chain, or
// teleported. A derivative going home is withdrawn from the reserve its
// native chain keeps for this chain, or teleported back.
func BuildProgram(conv Converter, c *Collection, it *Item, t *Ticket) (xcm.Program, error) {
	var asset xcm.Asset
	if it.Derivative() {
		asset = xcm.Asset{ID: c.Foreign.AssetID(), Instance: *it.ForeignInstance}
	} else {
		asset = xcm.Asset{ID: conv.LocalAssetID(c.ID), Instance: conv.ItemInstance(it.ID)}
	}
	id, err := asset.ID.Reanchor(t.Destination, conv.universal)
	if err != nil {
		return nil, errors.Wrap(err, "asset")
	}
	asset.ID = id
	reply, err := xcm.Location{}.Reanchor(t.Destination, conv.universal)
	if err != nil {
		return nil, errors.Wrap(err, "reply location")
	}

	var arrive xcm.Instruction
	switch {
	case c.Mode == Teleport:
		arrive = xcm.ReceiveTeleportedAsset(asset)
	case it.Derivative():
		arrive = xcm.WithdrawAsset(asset)
	default:
		arrive = xcm.ReserveAssetDeposited(asset)
	}
	prog := xcm.Program{
		arrive,
		xcm.BuyExecution(t.FeeLimit),
		xcm.DepositAsset(t.Beneficiary),
		xcm.SetTopic(t.Nonce),
		xcm.ReportTransfer(t.ID, reply),
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	return prog, nil
}
