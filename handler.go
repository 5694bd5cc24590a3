package xnft

import (
	"encoding/json"

	"github.com/tendermint/tendermint/libs/common"
)

// Handler processes one family of messages, for example minting items or
// sending them to another chain. Check validates a transaction without
// relying on its writes being kept; Deliver executes it.
type Handler interface {
	Checker
	Deliverer
}

type Checker interface {
	Check(ctx Context, db KVStore, tx Tx) (*CheckResult, error)
}

type Deliverer interface {
	Deliver(ctx Context, db KVStore, tx Tx) (*DeliverResult, error)
}

// Decorator runs around a handler. Each call must either return an error or
// pass the transaction on to next.
type Decorator interface {
	Check(ctx Context, db KVStore, tx Tx, next Checker) (*CheckResult, error)
	Deliver(ctx Context, db KVStore, tx Tx, next Deliverer) (*DeliverResult, error)
}

// Ticker runs maintenance at the beginning of every block. A block cannot
// fail at that point, so Tick has no error result and must deal with
// failures itself.
type Ticker interface {
	Tick(ctx Context, db CacheableKVStore) TickResult
}

// Registry binds message paths to handlers.
type Registry interface {
	Handle(m Msg, h Handler)
}

// CheckResult is the result of a successful Check.
type CheckResult struct {
	// Data is a machine readable value, for example the key of a created
	// record.
	Data []byte
	Log  string
	// GasAllocated is the upper bound of work the transaction may do.
	GasAllocated int64
	GasPayment   int64
}

// DeliverResult is the result of a successful Deliver.
type DeliverResult struct {
	Data []byte
	Log  string
	// Tags index the transaction and carry the events it emitted.
	Tags    []common.KVPair
	GasUsed int64
}

// TickResult carries the events emitted by one Tick. No tags is a valid
// result.
type TickResult struct {
	Tags []common.KVPair
}

// Options is the genesis document split by top level key. Each extension
// reads its own key.
type Options map[string]json.RawMessage

// ReadOptions decodes the JSON stored under key into obj. A missing key is
// not an error and leaves obj untouched.
func (o Options) ReadOptions(key string, obj interface{}) error {
	raw, ok := o[key]
	if !ok || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, obj)
}

// Initializer loads an extension's state from the genesis document.
type Initializer interface {
	FromGenesis(Options, KVStore) error
}
