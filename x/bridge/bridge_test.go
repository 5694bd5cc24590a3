package bridge

import (
	"context"
	"testing"

	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/weavetest"
	"github.com/iov-one/xnft/weavetest/assert"
	"github.com/iov-one/xnft/xcm"
	"github.com/iov-one/xnft/xcm/xcmtest"
)

func TestReserveTransferLifecycle(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	carol := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	assert.Equal(t, uint64(1), coll.ID)
	a.mint(coll.ID, 7, alice)

	ticket, err := a.send(coll.ID, 7, alice, b, bob)
	assert.Nil(t, err)
	it := a.item(coll.ID, 7)
	assert.Equal(t, Locked, it.State)
	assert.Nil(t, it.Owner)
	assert.Equal(t, uint64(1), it.Sequence)
	assert.Equal(t, uint64(1), ticket.Nonce)
	assert.Equal(t, ticket.ID, it.Ticket)
	pending, err := a.provenance.Pending(a.db, ticket.ID)
	assert.Nil(t, err)
	assert.Equal(t, ticket.Nonce, pending.Nonce)
	assert.Equal(t, 32, len(pending.MessageHash))

	deliveries := b.inbox()
	assert.Equal(t, 1, len(deliveries))
	assert.Equal(t, xcm.Hash(deliveries[0].Payload), pending.MessageHash)

	out := b.executor.Execute(b.ctx(), b.db, deliveries[0].Origin, deliveries[0].Payload)
	assert.Nil(t, out.Err)
	assert.Equal(t, true, out.Applied)
	assert.Equal(t, []string{EventCollectionRegistered, EventDerivativeMinted}, tagValue(out.Tags, EventKey))

	dc := b.derivative(a, coll.ID)
	assert.Equal(t, Derivative, dc.Kind)
	assert.Equal(t, Reserve, dc.Mode)
	dit := b.derivativeItem(dc, 7)
	assert.Equal(t, Resident, dit.State)
	assert.Equal(t, bob, dit.Owner)
	assert.Equal(t, uint64(1), dit.Sequence)

	// Delivering the same message again changes nothing.
	out = b.executor.Execute(b.ctx(), b.db, deliveries[0].Origin, deliveries[0].Payload)
	assert.Nil(t, out.Err)
	assert.Equal(t, false, out.Applied)
	owned, err := b.provenance.ItemsByOwner(b.db, bob)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(owned))
	dc = b.derivative(a, coll.ID)
	assert.Equal(t, uint64(1), dc.Items)

	// Only the first execution was acknowledged.
	assert.Equal(t, 1, net.Pending(paraA))
	outs := a.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	assert.Equal(t, []string{EventTransferConfirmed}, tagValue(outs[0].Tags, EventKey))
	it = a.item(coll.ID, 7)
	assert.Equal(t, Locked, it.State)
	assert.Equal(t, uint64(0), it.Ticket)
	_, err = a.provenance.Ticket(a.db, ticket.ID)
	assert.IsErr(t, ErrUnknownTicket, err)
	_, err = a.provenance.Pending(a.db, ticket.ID)
	assert.IsErr(t, errors.ErrNotFound, err)

	// Bob sends the item home, to Carol.
	_, err = b.send(dc.ID, dit.ID, bob, a, carol)
	assert.Nil(t, err)
	outs = a.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	assert.Equal(t, []string{EventItemReturned}, tagValue(outs[0].Tags, EventKey))
	it = a.item(coll.ID, 7)
	assert.Equal(t, Resident, it.State)
	assert.Equal(t, carol, it.Owner)
	assert.Equal(t, uint64(2), it.Sequence)
	assert.Nil(t, it.Counterparty)

	outs = b.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	dit = b.item(dc.ID, dit.ID)
	assert.Equal(t, Stashed, dit.State)
	assert.Nil(t, dit.Owner)
	dc = b.derivative(a, coll.ID)
	assert.Equal(t, uint64(0), dc.Items)

	// The stashed derivative comes back to life on the next transfer.
	_, err = a.send(coll.ID, 7, carol, b, bob)
	assert.Nil(t, err)
	outs = b.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	assert.Equal(t, []string{EventDerivativeMinted}, tagValue(outs[0].Tags, EventKey))
	again := b.derivativeItem(dc, 7)
	assert.Equal(t, dit.ID, again.ID)
	assert.Equal(t, Resident, again.State)
	assert.Equal(t, uint64(3), again.Sequence)
}

func TestTeleportTransfer(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, func(c *Configuration) {
		c.TrustedTeleporters = []xcm.Location{xcm.MustParseLocation("../parachain(2001)")}
	})
	b := newTestChain(t, net, paraB, func(c *Configuration) {
		c.TrustedTeleporters = []xcm.Location{xcm.MustParseLocation("../parachain(2000)")}
	})
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Teleport)
	a.mint(coll.ID, 1, alice)

	_, err := a.send(coll.ID, 1, alice, b, bob)
	assert.Nil(t, err)
	outs := b.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	dc := b.derivative(a, coll.ID)
	assert.Equal(t, Teleport, dc.Mode)

	a.receive()
	it := a.item(coll.ID, 1)
	assert.Equal(t, Stashed, it.State)
	// Teleported items still count, they can come back.
	c, err := a.registry.Collection(a.db, coll.ID)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), c.Items)
	assert.IsErr(t, ErrCollectionNotEmpty, a.registry.DestroyCollection(a.db, coll.ID, alice))

	dit := b.derivativeItem(dc, 1)
	_, err = b.send(dc.ID, dit.ID, bob, a, alice)
	assert.Nil(t, err)
	outs = a.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	it = a.item(coll.ID, 1)
	assert.Equal(t, Resident, it.State)
	assert.Equal(t, alice, it.Owner)
}

func TestUntrustedTeleportIsRejected(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Teleport)
	a.mint(coll.ID, 1, alice)
	_, err := a.send(coll.ID, 1, alice, b, bob)
	assert.Nil(t, err)

	outs := b.receive()
	assert.Equal(t, 1, len(outs))
	assert.IsErr(t, ErrUntrustedTeleport, outs[0].Err)
	assert.Equal(t, []string{EventMessageRejected}, tagValue(outs[0].Tags, EventKey))
	assert.Equal(t, []string{ErrUntrustedTeleport.Error()}, tagValue(outs[0].Tags, ReasonKey))

	// Nothing was registered and nothing was acknowledged.
	remote := xcm.Junctions{xcm.PalletInstance(52), xcm.GeneralIndex(coll.ID)}
	_, err = b.registry.LookupForeign(b.db, b.location(a), remote)
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, 0, net.Pending(paraA))
}

func TestReverseExpiredTransfer(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 7, alice)

	created := a.height
	ticket, err := a.send(coll.ID, 7, alice, b, bob)
	assert.Nil(t, err)
	assert.Equal(t, created+100, ticket.ExpiresAt)

	// The message is lost.
	b.inbox()

	_, err = a.provenance.ReverseOutbound(a.db, ticket.ID, created+100)
	assert.IsErr(t, ErrNotExpired, err)

	it, err := a.provenance.ReverseOutbound(a.db, ticket.ID, created+101)
	assert.Nil(t, err)
	assert.Equal(t, Resident, it.State)
	assert.Equal(t, alice, it.Owner)
	assert.Equal(t, uint64(2), it.Sequence)

	_, err = a.provenance.ReverseOutbound(a.db, ticket.ID, created+102)
	assert.IsErr(t, ErrUnknownTicket, err)
}

func TestLateAcknowledgmentIsStale(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 7, alice)
	ticket, err := a.send(coll.ID, 7, alice, b, bob)
	assert.Nil(t, err)

	// Executed by the destination, but the acknowledgment is late.
	b.receive()
	_, err = a.provenance.ReverseOutbound(a.db, ticket.ID, ticket.ExpiresAt+1)
	assert.Nil(t, err)

	outs := a.receive()
	assert.Equal(t, 1, len(outs))
	assert.IsErr(t, ErrStaleAcknowledgment, outs[0].Err)
	it := a.item(coll.ID, 7)
	assert.Equal(t, Resident, it.State)
	assert.Equal(t, alice, it.Owner)
}

func TestResendBeforeReturnAcknowledged(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	carol := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 7, alice)
	_, err := a.send(coll.ID, 7, alice, b, bob)
	assert.Nil(t, err)
	b.receive()
	a.receive()

	dc := b.derivative(a, coll.ID)
	dit := b.derivativeItem(dc, 7)
	back, err := b.send(dc.ID, dit.ID, bob, a, carol)
	assert.Nil(t, err)
	outs := a.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)

	// The acknowledgment of the return is held back while Carol sends
	// the item to Bob again.
	held := b.inbox()
	assert.Equal(t, 1, len(held))
	_, err = a.send(coll.ID, 7, carol, b, bob)
	assert.Nil(t, err)
	outs = b.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	assert.Equal(t, true, outs[0].Applied)
	assert.Equal(t, []string{EventDerivativeMinted}, tagValue(outs[0].Tags, EventKey))

	dit = b.derivativeItem(dc, 7)
	assert.Equal(t, Resident, dit.State)
	assert.Equal(t, bob, dit.Owner)
	assert.Equal(t, uint64(3), dit.Sequence)
	assert.Equal(t, uint64(0), dit.Ticket)
	_, err = b.provenance.Ticket(b.db, back.ID)
	assert.IsErr(t, ErrUnknownTicket, err)
	_, err = b.provenance.Pending(b.db, back.ID)
	assert.IsErr(t, errors.ErrNotFound, err)
	expired, err := b.provenance.Expired(b.db, back.ExpiresAt+1, 10)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(expired))
	dc = b.derivative(a, coll.ID)
	assert.Equal(t, uint64(1), dc.Items)

	// The late acknowledgment changes nothing.
	out := b.executor.Execute(b.ctx(), b.db, held[0].Origin, held[0].Payload)
	assert.IsErr(t, ErrStaleAcknowledgment, out.Err)
	dit = b.derivativeItem(dc, 7)
	assert.Equal(t, Resident, dit.State)
	assert.Equal(t, bob, dit.Owner)

	// Bob can use the item and the origin learns about its arrival.
	_, err = b.provenance.Transfer(b.db, dc.ID, dit.ID, bob, carol)
	assert.Nil(t, err)
	outs = a.receive()
	assert.Equal(t, 1, len(outs))
	assert.Nil(t, outs[0].Err)
	it := a.item(coll.ID, 7)
	assert.Equal(t, Locked, it.State)
	assert.Equal(t, uint64(0), it.Ticket)
}

func TestTransportRefusal(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 7, alice)

	net.Refuse(paraB, xcm.ErrBackpressure)
	_, err := a.send(coll.ID, 7, alice, b, bob)
	assert.IsErr(t, ErrTransport, err)
	assert.IsErr(t, xcm.ErrBackpressure, err)

	it := a.item(coll.ID, 7)
	assert.Equal(t, Resident, it.State)
	assert.Equal(t, alice, it.Owner)
	assert.Equal(t, uint64(0), it.Sequence)
	expired, err := a.provenance.Expired(a.db, a.height+1000, 10)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(expired))

	// Unknown chains cannot be reached either.
	unknown := newTestChain(t, xcmtest.NewNetwork(0), paraC, nil)
	_, err = a.send(coll.ID, 7, alice, unknown, bob)
	assert.IsErr(t, ErrTransport, err)
	assert.IsErr(t, xcm.ErrUnroutable, err)
	code, _ := errors.ABCIInfo(err, false)
	assert.Equal(t, ErrTransport.ABCICode(), code)
}

func TestExecutorRejections(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 7, alice)
	conv := NewConverter(a.conf)

	asset := xcm.Asset{
		ID:       xcm.MustParseLocation("../parachain(2000)/pallet(52)").Append(xcm.GeneralIndex(coll.ID)),
		Instance: xcm.Index(7),
	}
	bobAccount := xcm.NewLocation(0, xcm.AccountKey20(bob))
	home := xcm.MustParseLocation("../parachain(2000)")
	transfer := func(fee uint64) xcm.Program {
		return xcm.Program{
			xcm.ReserveAssetDeposited(asset),
			xcm.BuyExecution(fee),
			xcm.DepositAsset(bobAccount),
			xcm.SetTopic(1),
			xcm.ReportTransfer(1, home),
		}
	}
	encode := func(p xcm.Program) []byte {
		raw, err := p.Marshal()
		assert.Nil(t, err)
		return raw
	}

	cases := map[string]struct {
		origin    xcm.Location
		payload   []byte
		sender    xcm.Sender
		wantErr   *errors.Error
		wantCause *errors.Error
	}{
		"fee too low": {
			origin:  home,
			payload: encode(transfer(49)),
			wantErr: ErrTooExpensive,
		},
		"garbage": {
			origin:  home,
			payload: []byte{0xff, 0xff, 0xff},
			wantErr: ErrMalformedProgram,
		},
		"unexpected shape": {
			origin:  home,
			payload: encode(xcm.Program{xcm.BuyExecution(100), xcm.DepositAsset(bobAccount)}),
			wantErr: ErrMalformedProgram,
		},
		"asset not held by origin": {
			origin:  xcm.MustParseLocation("../parachain(2002)"),
			payload: encode(transfer(100)),
			wantErr: ErrCounterpartyMismatch,
		},
		"beneficiary is not an account": {
			origin: home,
			payload: encode(xcm.Program{
				xcm.ReserveAssetDeposited(asset),
				xcm.BuyExecution(100),
				xcm.DepositAsset(xcm.NewLocation(0, xcm.GeneralIndex(1))),
				xcm.SetTopic(1),
				xcm.ReportTransfer(1, home),
			}),
			wantErr: ErrMalformedProgram,
		},
		"acknowledgment refused": {
			origin:  home,
			payload: encode(transfer(100)),
			sender: xcm.SenderFunc(func(context.Context, xcm.Envelope) error {
				return xcm.ErrBackpressure
			}),
			wantErr:   ErrTransport,
			wantCause: xcm.ErrBackpressure,
		},
		"panic": {
			origin:  home,
			payload: encode(transfer(100)),
			sender: xcm.SenderFunc(func(context.Context, xcm.Envelope) error {
				panic("boom")
			}),
			wantErr: errors.ErrPanic,
		},
		"return of an item that never left": {
			origin: home,
			payload: encode(xcm.Program{
				xcm.WithdrawAsset(xcm.Asset{ID: conv.LocalAssetID(coll.ID), Instance: xcm.Index(7)}),
				xcm.BuyExecution(100),
				xcm.DepositAsset(bobAccount),
				xcm.SetTopic(5),
				xcm.ReportTransfer(1, home),
			}),
			wantErr: ErrUnknownCollection,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			exec := b.executor
			if tc.sender != nil {
				exec = NewExecutor(b.registry, b.provenance, tc.sender)
			}
			out := exec.Execute(b.ctx(), b.db, tc.origin, tc.payload)
			assert.IsErr(t, tc.wantErr, out.Err)
			if tc.wantCause != nil {
				assert.IsErr(t, tc.wantCause, out.Err)
			}
			assert.Equal(t, false, out.Applied)
			assert.Equal(t, []string{EventMessageRejected}, tagValue(out.Tags, EventKey))

			// A rejected program leaves no trace.
			remote := xcm.Junctions{xcm.PalletInstance(52), xcm.GeneralIndex(coll.ID)}
			_, err := b.registry.LookupForeign(b.db, home, remote)
			assert.IsErr(t, errors.ErrNotFound, err)
		})
	}
}

func TestReturnFromWrongChain(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	newTestChain(t, net, paraC, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 7, alice)
	_, err := a.send(coll.ID, 7, alice, b, bob)
	assert.Nil(t, err)
	b.receive()
	a.receive()

	conv := NewConverter(a.conf)
	prog := xcm.Program{
		xcm.WithdrawAsset(xcm.Asset{ID: conv.LocalAssetID(coll.ID), Instance: xcm.Index(7)}),
		xcm.BuyExecution(100),
		xcm.DepositAsset(xcm.NewLocation(0, xcm.AccountKey20(bob))),
		xcm.SetTopic(2),
		xcm.ReportTransfer(1, xcm.MustParseLocation("../parachain(2002)")),
	}
	raw, err := prog.Marshal()
	assert.Nil(t, err)

	// Parachain 2002 never held the item.
	out := a.executor.Execute(a.ctx(), a.db, xcm.MustParseLocation("../parachain(2002)"), raw)
	assert.IsErr(t, ErrCounterpartyMismatch, out.Err)
	it := a.item(coll.ID, 7)
	assert.Equal(t, Locked, it.State)
}

func TestExecuteBatch(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 1, alice)
	a.mint(coll.ID, 2, alice)
	_, err := a.send(coll.ID, 1, alice, b, bob)
	assert.Nil(t, err)
	_, err = a.send(coll.ID, 2, alice, b, bob)
	assert.Nil(t, err)

	deliveries := b.inbox()
	assert.Equal(t, 2, len(deliveries))
	deliveries = append(deliveries, deliveries[0], xcm.Delivery{
		Origin:  deliveries[0].Origin,
		Nonce:   9,
		Payload: []byte("not a program"),
	})

	outcomes, raw, err := b.executor.ExecuteBatch(b.ctx(), b.db, deliveries)
	assert.Nil(t, err)
	assert.Equal(t, 4, len(outcomes))

	report, err := DecodeBatchReport(raw)
	assert.Nil(t, err)
	assert.Equal(t, 4, len(report.Results))
	assert.Equal(t, true, report.Results[0].Applied)
	assert.Equal(t, true, report.Results[1].Applied)
	assert.Equal(t, false, report.Results[2].Applied)
	assert.Equal(t, uint32(0), report.Results[2].Code)
	assert.Equal(t, ErrMalformedProgram.ABCICode(), report.Results[3].Code)
	assert.Equal(t, uint64(9), report.Results[3].Nonce)
}

func TestDerivativeCanOnlyGoHome(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	b := newTestChain(t, net, paraB, nil)
	c := newTestChain(t, net, paraC, nil)
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	coll := a.collection(alice, Reserve)
	a.mint(coll.ID, 7, alice)
	_, err := a.send(coll.ID, 7, alice, b, bob)
	assert.Nil(t, err)
	b.receive()

	dc := b.derivative(a, coll.ID)
	dit := b.derivativeItem(dc, 7)
	_, err = b.send(dc.ID, dit.ID, bob, c, bob)
	assert.IsErr(t, ErrInvalidDestination, err)
	_, err = b.send(dc.ID, dit.ID, alice, a, alice)
	assert.IsErr(t, ErrNotOwner, err)
}

func TestDispatchRequiresHeight(t *testing.T) {
	net := xcmtest.NewNetwork(0)
	a := newTestChain(t, net, paraA, nil)
	_, err := a.dispatcher.Dispatch(context.Background(), a.db, TransferRequest{})
	assert.IsErr(t, errors.ErrHuman, err)
}
