package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/x/utils"
	"github.com/iov-one/xnft/xcm"
	amino "github.com/tendermint/go-amino"
	"github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
)

// Outcome of executing an inbound program. Execution never returns an
// error to the transport, a rejected program is reported through Err and
// the rejection tags.
type Outcome struct {
	// Applied is true if the program changed the state. A replayed
	// transfer succeeds without being applied.
	Applied bool
	Tags    []common.KVPair
	Err     error
}

// Executor runs programs received from other chains.
type Executor struct {
	registry   *Registry
	provenance *Provenance
	sender     xcm.Sender
}

// NewExecutor returns an executor answering transfers through sender.
func NewExecutor(r *Registry, p *Provenance, sender xcm.Sender) *Executor {
	return &Executor{registry: r, provenance: p, sender: sender}
}

// Execute runs a program sent by origin. Origin is relative to this chain.
// A failing program leaves no trace in the store.
func (e *Executor) Execute(ctx xnft.Context, db xnft.KVStore, origin xcm.Location, payload []byte) Outcome {
	var out Outcome
	err := utils.Atomic(db, func(db xnft.KVStore) error {
		var err error
		out, err = e.execute(ctx, db, origin, payload)
		return err
	})
	if err != nil {
		code, _ := errors.ABCIInfo(err, false)
		GetLogger(ctx).Error("inbound message rejected",
			"origin", origin.String(),
			"code", code,
			"err", err)
		return Outcome{
			Err:  err,
			Tags: tags{}.event(EventMessageRejected).add(ChainKey, origin.String()).add(ReasonKey, rejectReason(err)),
		}
	}
	return out
}

func (e *Executor) execute(ctx xnft.Context, db xnft.KVStore, origin xcm.Location, payload []byte) (Outcome, error) {
	conf, err := loadConf(db)
	if err != nil {
		return Outcome{}, err
	}
	conv := NewConverter(conf)
	origin = origin.Simplify(conf.Universal())
	if origin.IsHere() {
		return Outcome{}, errors.Wrap(ErrCounterpartyMismatch, "message from this chain")
	}

	prog, err := xcm.DecodeProgram(payload)
	if err != nil {
		return Outcome{}, errors.Wrap(ErrMalformedProgram, err.Error())
	}
	if len(prog) == 1 && prog[0].Op == xcm.OpQueryResponse {
		q := prog[0]
		it, err := e.provenance.Acknowledge(db, origin, q.QueryID, q.Nonce)
		if err != nil {
			return Outcome{}, err
		}
		t := tags{}.event(EventTransferConfirmed).item(it).uint(TicketKey, q.QueryID).uint(NonceKey, q.Nonce)
		return Outcome{Applied: true, Tags: t}, nil
	}

	order, err := parseTransfer(prog)
	if err != nil {
		return Outcome{}, err
	}
	weight, err := prog.Weight(conf.UnitWeight)
	if err != nil {
		return Outcome{}, errors.Wrap(ErrTooExpensive, err.Error())
	}
	if order.fee < weight {
		return Outcome{}, errors.Wrapf(ErrTooExpensive, "fee %d, weight %d", order.fee, weight)
	}
	beneficiary, ok := conv.LocationAccount(order.beneficiary)
	if !ok {
		return Outcome{}, errors.Wrapf(ErrMalformedProgram, "beneficiary %s is not a local account", order.beneficiary)
	}
	if !order.report.Simplify(conf.Universal()).Equals(origin) {
		return Outcome{}, errors.Wrapf(ErrCounterpartyMismatch, "report to %s", order.report)
	}
	if order.op == xcm.OpReceiveTeleportedAsset && !conf.Trusts(origin) {
		return Outcome{}, errors.Wrapf(ErrUntrustedTeleport, "%s", origin)
	}

	var (
		tr    *Transition
		event string
	)
	asset := order.asset
	asset.ID = asset.ID.Simplify(conf.Universal())
	if conv.IsLocal(asset.ID) {
		tr, err = e.returned(db, conv, origin, order, asset, beneficiary)
		event = EventItemReturned
	} else {
		tr, err = e.minted(db, origin, order, asset, beneficiary)
		event = EventDerivativeMinted
	}
	if err != nil {
		return Outcome{}, err
	}
	if !tr.Applied {
		GetLogger(ctx).Debug("replayed transfer ignored",
			"origin", origin.String(),
			"reason", errors.Wrapf(ErrReplay, "nonce %d, sequence %d", order.nonce, tr.Item.Sequence))
		return Outcome{}, nil
	}

	var t tags
	if tr.Registered != nil {
		t = t.event(EventCollectionRegistered).uint(CollectionKey, tr.Registered.ID)
	}
	t = t.event(event).item(tr.Item).uint(NonceKey, order.nonce).add(ChainKey, origin.String())

	ack, err := xcm.Program{xcm.QueryResponse(order.queryID, order.nonce)}.Marshal()
	if err != nil {
		return Outcome{}, errors.Wrap(err, "encode acknowledgment")
	}
	env := xcm.Envelope{Destination: origin, Nonce: order.nonce, Payload: ack}
	if err := e.sender.Send(ctx, env); err != nil {
		return Outcome{}, errors.Wrap(errors.Append(ErrTransport, err), "send acknowledgment")
	}
	return Outcome{Applied: true, Tags: t}, nil
}

// returned handles a native item coming back to this chain.
func (e *Executor) returned(db xnft.KVStore, conv Converter, origin xcm.Location, order *transferOrder, asset xcm.Asset, beneficiary xnft.Address) (*Transition, error) {
	coll, ok := conv.LocalCollection(asset.ID)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedProgram, "%s is not a collection", asset.ID)
	}
	item, ok := conv.LocalItem(asset.Instance)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedProgram, "%s is not a local item", asset.Instance)
	}
	c, err := e.registry.Collection(db, coll)
	if err != nil {
		return nil, err
	}
	want := xcm.OpWithdrawAsset
	if c.Mode == Teleport {
		want = xcm.OpReceiveTeleportedAsset
	}
	if order.op != want {
		return nil, errors.Wrapf(ErrMalformedProgram, "%s of a %s collection", order.op, c.Mode)
	}
	return e.provenance.InboundReturn(db, origin, coll, item, order.nonce, beneficiary)
}

// minted handles a foreign item arriving at this chain.
func (e *Executor) minted(db xnft.KVStore, origin xcm.Location, order *transferOrder, asset xcm.Asset, beneficiary xnft.Address) (*Transition, error) {
	remote, ok := asset.ID.Split(origin)
	if !ok {
		return nil, errors.Wrapf(ErrCounterpartyMismatch, "asset %s is not native to %s", asset.ID, origin)
	}
	if len(remote) == 0 {
		return nil, errors.Wrapf(ErrMalformedProgram, "%s is a chain, not a collection", asset.ID)
	}
	var mode Mode
	switch order.op {
	case xcm.OpReserveAssetDeposited:
		mode = Reserve
	case xcm.OpReceiveTeleportedAsset:
		mode = Teleport
	default:
		return nil, errors.Wrapf(ErrMalformedProgram, "%s of a foreign asset", order.op)
	}
	return e.provenance.InboundMint(db, origin, remote, asset.Instance, order.nonce, beneficiary, mode)
}

// BatchReport summarizes the execution of several deliveries.
type BatchReport struct {
	Results []BatchResult
}

// BatchResult is the outcome of a single delivery.
type BatchResult struct {
	Nonce   uint64
	Applied bool
	Code    uint32
	Log     string
}

// ExecuteBatch executes deliveries in order, each independently of the
// others, and returns their outcomes together with the amino encoded report.
func (e *Executor) ExecuteBatch(ctx xnft.Context, db xnft.KVStore, deliveries []xcm.Delivery) ([]Outcome, []byte, error) {
	outcomes := make([]Outcome, len(deliveries))
	report := BatchReport{Results: make([]BatchResult, len(deliveries))}
	for i, d := range deliveries {
		outcomes[i] = e.Execute(ctx, db, d.Origin, d.Payload)
		code, msg := errors.ABCIInfo(outcomes[i].Err, false)
		report.Results[i] = BatchResult{
			Nonce:   d.Nonce,
			Applied: outcomes[i].Applied,
			Code:    code,
			Log:     msg,
		}
	}
	raw, err := amino.MarshalBinaryBare(report)
	if err != nil {
		return outcomes, nil, errors.Wrap(err, "encode report")
	}
	return outcomes, raw, nil
}

// DecodeBatchReport decodes a report returned by ExecuteBatch.
func DecodeBatchReport(raw []byte) (*BatchReport, error) {
	var r BatchReport
	if err := amino.UnmarshalBinaryBare(raw, &r); err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return &r, nil
}

// transferOrder is a transfer program broken into its parts.
type transferOrder struct {
	op          xcm.Opcode
	asset       xcm.Asset
	fee         uint64
	beneficiary xcm.Location
	nonce       uint64
	queryID     uint64
	report      xcm.Location
}

// parseTransfer accepts only the program shape produced by BuildProgram.
func parseTransfer(prog xcm.Program) (*transferOrder, error) {
	shape := []xcm.Opcode{0, xcm.OpBuyExecution, xcm.OpDepositAsset, xcm.OpSetTopic, xcm.OpReportTransfer}
	if len(prog) != len(shape) {
		return nil, errors.Wrapf(ErrMalformedProgram, "%d instructions", len(prog))
	}
	switch prog[0].Op {
	case xcm.OpWithdrawAsset, xcm.OpReserveAssetDeposited, xcm.OpReceiveTeleportedAsset:
	default:
		return nil, errors.Wrapf(ErrMalformedProgram, "program starts with %s", prog[0].Op)
	}
	for n, op := range shape[1:] {
		if prog[n+1].Op != op {
			return nil, errors.Wrapf(ErrMalformedProgram, "instruction %d is %s, want %s", n+1, prog[n+1].Op, op)
		}
	}
	return &transferOrder{
		op:          prog[0].Op,
		asset:       *prog[0].Asset,
		fee:         prog[1].Fee,
		beneficiary: *prog[2].Beneficiary,
		nonce:       prog[3].Nonce,
		queryID:     prog[4].QueryID,
		report:      *prog[4].Destination,
	}, nil
}

// rejectReason returns the description of the registered error at the
// root of err.
func rejectReason(err error) string {
	if root := errors.Root(err); root != nil {
		return root.Error()
	}
	return "internal error"
}

// GetLogger returns the context logger scoped to this module.
func GetLogger(ctx xnft.Context) log.Logger {
	return xnft.GetLogger(ctx).With("module", packageName)
}
