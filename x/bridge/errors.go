package bridge

import "github.com/iov-one/xnft/errors"

// Validation errors are caused by bad caller input and are returned before
// any state is modified.
var (
	ErrUnknownCollection  = errors.Register(1100, "unknown collection")
	ErrNotOwner           = errors.Register(1101, "not the owner")
	ErrDuplicateMetadata  = errors.Register(1102, "duplicate collection metadata")
	ErrAlreadyRegistered  = errors.Register(1103, "foreign collection already registered")
	ErrLocalAsset         = errors.Register(1104, "asset is local")
	ErrInvalidDestination = errors.Register(1105, "invalid destination")
	ErrUnknownItem        = errors.Register(1116, "unknown item")
	ErrItemExists         = errors.Register(1117, "item exists")
	ErrNotNative          = errors.Register(1118, "collection is not native")
	ErrUnknownTicket      = errors.Register(1119, "unknown ticket")
)

// Protocol errors are caused by malformed, replayed or mis-addressed
// inbound messages. Such messages are dropped.
var (
	ErrReplay               = errors.Register(1106, "replayed message")
	ErrCounterpartyMismatch = errors.Register(1107, "unexpected counterparty")
	ErrUntrustedTeleport    = errors.Register(1108, "teleport origin is not trusted")
	ErrTooExpensive         = errors.Register(1109, "execution fee too low")
	ErrStaleAcknowledgment  = errors.Register(1110, "stale acknowledgment")
	ErrMalformedProgram     = errors.Register(1111, "malformed program")
)

// State errors are returned when an operation is attempted against an item
// or collection that is not in the required state.
var (
	ErrItemNotAvailable   = errors.Register(1112, "item not available")
	ErrNotExpired         = errors.Register(1113, "ticket not expired")
	ErrCollectionNotEmpty = errors.Register(1114, "collection not empty")
)

// ErrTransport is returned when the transport refused to accept an
// outbound message.
var ErrTransport = errors.Register(1115, "transport refused message")
