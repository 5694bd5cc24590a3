package xcm

import (
	"fmt"
	"math"

	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
	"golang.org/x/crypto/blake2b"
)

// Opcode identifies an instruction.
type Opcode uint8

const (
	// OpWithdrawAsset takes the asset out of the holding of the origin.
	// On the reserve chain of the asset it releases the reserve.
	OpWithdrawAsset Opcode = 1 + iota
	// OpReserveAssetDeposited announces that the sender locked the asset
	// it is the reserve of, and a derivative should be minted.
	OpReserveAssetDeposited
	// OpReceiveTeleportedAsset announces that the sender burned the asset
	// and a copy should be minted. Requires trust in the sender.
	OpReceiveTeleportedAsset
	// OpBuyExecution pays for the execution of the program.
	OpBuyExecution
	// OpDepositAsset places the asset in the holding of the beneficiary.
	OpDepositAsset
	// OpSetTopic carries the transfer nonce.
	OpSetTopic
	// OpReportTransfer asks the receiver to report a successful execution.
	OpReportTransfer
	// OpQueryResponse is the report of a successful execution.
	OpQueryResponse
)

var opcodeNames = map[Opcode]string{
	OpWithdrawAsset:          "WithdrawAsset",
	OpReserveAssetDeposited:  "ReserveAssetDeposited",
	OpReceiveTeleportedAsset: "ReceiveTeleportedAsset",
	OpBuyExecution:           "BuyExecution",
	OpDepositAsset:           "DepositAsset",
	OpSetTopic:               "SetTopic",
	OpReportTransfer:         "ReportTransfer",
	OpQueryResponse:          "QueryResponse",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(%d)", uint8(o))
}

// Instruction is a single step of a program. Which fields are used depends
// on the opcode.
//
//   WithdrawAsset, ReserveAssetDeposited, ReceiveTeleportedAsset: Asset
//   BuyExecution: Fee
//   DepositAsset: Beneficiary
//   SetTopic: Nonce
//   ReportTransfer: QueryID, Destination
//   QueryResponse: QueryID, Nonce
type Instruction struct {
	Op          Opcode
	Asset       *Asset
	Fee         uint64
	Beneficiary *Location
	Nonce       uint64
	QueryID     uint64
	Destination *Location
}

func WithdrawAsset(a Asset) Instruction {
	return Instruction{Op: OpWithdrawAsset, Asset: &a}
}

func ReserveAssetDeposited(a Asset) Instruction {
	return Instruction{Op: OpReserveAssetDeposited, Asset: &a}
}

func ReceiveTeleportedAsset(a Asset) Instruction {
	return Instruction{Op: OpReceiveTeleportedAsset, Asset: &a}
}

func BuyExecution(fee uint64) Instruction {
	return Instruction{Op: OpBuyExecution, Fee: fee}
}

func DepositAsset(beneficiary Location) Instruction {
	return Instruction{Op: OpDepositAsset, Beneficiary: &beneficiary}
}

func SetTopic(nonce uint64) Instruction {
	return Instruction{Op: OpSetTopic, Nonce: nonce}
}

func ReportTransfer(queryID uint64, destination Location) Instruction {
	return Instruction{Op: OpReportTransfer, QueryID: queryID, Destination: &destination}
}

func QueryResponse(queryID, nonce uint64) Instruction {
	return Instruction{Op: OpQueryResponse, QueryID: queryID, Nonce: nonce}
}

// Validate returns an error if fields required by the opcode are missing or
// fields it does not use are set.
func (i Instruction) Validate() error {
	var (
		asset = i.Asset != nil
		bene  = i.Beneficiary != nil
		dest  = i.Destination != nil
		extra bool
	)
	switch i.Op {
	case OpWithdrawAsset, OpReserveAssetDeposited, OpReceiveTeleportedAsset:
		if !asset {
			return errors.Wrapf(errors.ErrEmpty, "%s asset", i.Op)
		}
		if err := i.Asset.Validate(); err != nil {
			return errors.Wrapf(err, "%s asset", i.Op)
		}
		extra = bene || dest || i.Fee != 0 || i.Nonce != 0 || i.QueryID != 0
	case OpBuyExecution:
		extra = asset || bene || dest || i.Nonce != 0 || i.QueryID != 0
	case OpDepositAsset:
		if !bene {
			return errors.Wrap(errors.ErrEmpty, "beneficiary")
		}
		if err := i.Beneficiary.Validate(); err != nil {
			return errors.Wrap(err, "beneficiary")
		}
		extra = asset || dest || i.Fee != 0 || i.Nonce != 0 || i.QueryID != 0
	case OpSetTopic:
		if i.Nonce == 0 {
			return errors.Wrap(errors.ErrEmpty, "topic nonce")
		}
		extra = asset || bene || dest || i.Fee != 0 || i.QueryID != 0
	case OpReportTransfer:
		if !dest {
			return errors.Wrap(errors.ErrEmpty, "report destination")
		}
		if err := i.Destination.Validate(); err != nil {
			return errors.Wrap(err, "report destination")
		}
		if i.QueryID == 0 {
			return errors.Wrap(errors.ErrEmpty, "query id")
		}
		extra = asset || bene || i.Fee != 0 || i.Nonce != 0
	case OpQueryResponse:
		if i.QueryID == 0 {
			return errors.Wrap(errors.ErrEmpty, "query id")
		}
		extra = asset || bene || dest || i.Fee != 0
	default:
		return errors.Wrapf(errors.ErrInput, "unknown opcode %d", i.Op)
	}
	if extra {
		return errors.Wrapf(errors.ErrInput, "%s carries unused fields", i.Op)
	}
	return nil
}

func (i Instruction) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Uvarint(1, uint64(i.Op))
	if i.Asset != nil {
		b.Message(2, *i.Asset)
	}
	b.Uvarint(3, i.Fee)
	if i.Beneficiary != nil {
		b.Message(4, *i.Beneficiary)
	}
	b.Uvarint(5, i.Nonce)
	b.Uvarint(6, i.QueryID)
	if i.Destination != nil {
		b.Message(7, *i.Destination)
	}
	return b.Result()
}

func (i *Instruction) Unmarshal(raw []byte) error {
	*i = Instruction{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			v := d.Uvarint()
			if v > math.MaxUint8 {
				return errors.Wrap(errors.ErrOverflow, "opcode")
			}
			i.Op = Opcode(v)
		case 2:
			i.Asset = &Asset{}
			d.Message(i.Asset)
		case 3:
			i.Fee = d.Uvarint()
		case 4:
			i.Beneficiary = &Location{}
			d.Message(i.Beneficiary)
		case 5:
			i.Nonce = d.Uvarint()
		case 6:
			i.QueryID = d.Uvarint()
		case 7:
			i.Destination = &Location{}
			d.Message(i.Destination)
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// MaxInstructions limits the size of a single program.
const MaxInstructions = 16

// Program is a list of instructions executed in order.
type Program []Instruction

// Validate checks every instruction.
func (p Program) Validate() error {
	if len(p) == 0 {
		return errors.Wrap(errors.ErrEmpty, "program")
	}
	if len(p) > MaxInstructions {
		return errors.Wrapf(errors.ErrInput, "%d instructions, at most %d allowed", len(p), MaxInstructions)
	}
	for n, i := range p {
		if err := i.Validate(); err != nil {
			return errors.Wrapf(err, "instruction %d", n)
		}
	}
	return nil
}

// Weight returns the execution cost of the program given the cost of a
// single instruction.
func (p Program) Weight(unit uint64) (uint64, error) {
	n := uint64(len(p))
	if n != 0 && unit > math.MaxUint64/n {
		return 0, errors.Wrap(errors.ErrOverflow, "program weight")
	}
	return unit * n, nil
}

func (p Program) Marshal() ([]byte, error) {
	var b codec.Buffer
	for _, i := range p {
		b.Message(1, i)
	}
	return b.Result()
}

func (p *Program) Unmarshal(raw []byte) error {
	*p = nil
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			var i Instruction
			d.Message(&i)
			*p = append(*p, i)
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// DecodeProgram unmarshals and validates an encoded program.
func DecodeProgram(raw []byte) (Program, error) {
	var p Program
	if err := p.Unmarshal(raw); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Hash returns the blake2b-256 digest of an encoded program.
func Hash(raw []byte) []byte {
	h := blake2b.Sum256(raw)
	return h[:]
}
