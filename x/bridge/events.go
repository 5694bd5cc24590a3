package bridge

import (
	"strconv"

	"github.com/tendermint/tendermint/libs/common"
)

// Tag keys emitted by the bridge.
const (
	EventKey      = "bridge.event"
	ReasonKey     = "bridge.reason"
	CollectionKey = "bridge.collection"
	ItemKey       = "bridge.item"
	TicketKey     = "bridge.ticket"
	NonceKey      = "bridge.nonce"
	ChainKey      = "bridge.chain"
)

// Event names, stored under EventKey.
const (
	EventCollectionRegistered = "collection_registered"
	EventCollectionDestroyed  = "collection_destroyed"
	EventItemMinted           = "item_minted"
	EventItemBurned           = "item_burned"
	EventItemTransferred      = "item_transferred"
	EventItemLocked           = "item_locked"
	EventItemTransferredOut   = "item_transferred_out"
	EventDerivativeMinted     = "derivative_minted"
	EventItemReturned         = "item_returned"
	EventTransferConfirmed    = "transfer_confirmed"
	EventTransferReversed     = "transfer_reversed"
	EventMessageRejected      = "message_rejected"
)

type tags []common.KVPair

func (t tags) add(key, value string) tags {
	return append(t, common.KVPair{Key: []byte(key), Value: []byte(value)})
}

func (t tags) event(name string) tags {
	return t.add(EventKey, name)
}

func (t tags) uint(key string, n uint64) tags {
	return t.add(key, strconv.FormatUint(n, 10))
}

func (t tags) item(it *Item) tags {
	return t.uint(CollectionKey, it.Collection).uint(ItemKey, it.ID)
}

func (t tags) ticket(tk *Ticket) tags {
	return t.uint(TicketKey, tk.ID).uint(NonceKey, tk.Nonce).add(ChainKey, tk.Destination.String())
}
