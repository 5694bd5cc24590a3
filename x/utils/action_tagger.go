package utils

import (
	"github.com/iov-one/xnft"
	"github.com/tendermint/tendermint/libs/common"
)

// ActionKey is the tag key under which ActionTagger records the message path.
const ActionKey = "action"

// ActionTagger tags every successfully delivered transaction with the path
// of its message, so clients can subscribe to one kind of action, for
// example all cross chain transfers.
type ActionTagger struct{}

var _ xnft.Decorator = ActionTagger{}

func NewActionTagger() ActionTagger {
	return ActionTagger{}
}

func (ActionTagger) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Checker) (*xnft.CheckResult, error) {
	return next.Check(ctx, db, tx)
}

func (ActionTagger) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Deliverer) (*xnft.DeliverResult, error) {
	// A transaction without a message cannot be tagged, so it fails before
	// the handler runs.
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, err
	}
	res, err := next.Deliver(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	res.Tags = append(res.Tags, common.KVPair{Key: []byte(ActionKey), Value: []byte(msg.Path())})
	return res, nil
}
