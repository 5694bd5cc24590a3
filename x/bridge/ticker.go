package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
)

// TimeoutTicker reverses transfers whose ticket expired without an
// acknowledgment. It runs at the beginning of every block and processes at
// most the configured sweep limit of tickets.
type TimeoutTicker struct {
	provenance *Provenance
	hn         xnft.Handler
}

var _ xnft.Ticker = (*TimeoutTicker)(nil)

// NewTimeoutTicker returns a ticker reversing expired tickets kept by p.
func NewTimeoutTicker(p *Provenance) *TimeoutTicker {
	return &TimeoutTicker{
		provenance: p,
		hn:         ReverseExpiredHandler{provenance: p},
	}
}

// Tick implements xnft.Ticker. Every reversal is written separately, a
// failing one does not affect the others.
func (t *TimeoutTicker) Tick(ctx xnft.Context, db xnft.CacheableKVStore) xnft.TickResult {
	var res xnft.TickResult
	logger := GetLogger(ctx)

	height, ok := xnft.GetHeight(ctx)
	if !ok {
		logger.Error("timeout sweep skipped", "err", "block height not set")
		return res
	}
	conf, err := loadConf(db)
	if err != nil {
		logger.Error("timeout sweep skipped", "err", err)
		return res
	}
	expired, err := t.provenance.Expired(db, height, int(conf.SweepLimit))
	if err != nil {
		logger.Error("timeout sweep skipped", "err", err)
		return res
	}

	for _, e := range expired {
		cache := db.CacheWrap()
		tx := &sweepTx{msg: &ReverseExpiredMsg{Metadata: &xnft.Metadata{Schema: 1}, TicketID: e.Ticket}}
		r, err := t.hn.Deliver(ctx, cache, tx)
		if err != nil {
			cache.Discard()
			logger.Error("cannot reverse expired transfer", "ticket", e.Ticket, "err", err)
			// A ticket that cannot be reversed must not block the
			// queue. It can still be reversed explicitly.
			if err := t.provenance.dropTimeout(db, e.ExpiresAt, e.Ticket); err != nil {
				logger.Error("cannot drop timeout", "ticket", e.Ticket, "err", err)
			}
			continue
		}
		if err := cache.Write(); err != nil {
			logger.Error("cannot write reversal", "ticket", e.Ticket, "err", err)
			continue
		}
		res.Tags = append(res.Tags, r.Tags...)
	}
	if len(expired) != 0 {
		logger.Info("timeout sweep", "height", height, "tickets", len(expired))
	}
	return res
}

// sweepTx wraps a message created by the ticker so that it can be
// processed by a handler.
type sweepTx struct {
	msg xnft.Msg
}

var _ xnft.Tx = (*sweepTx)(nil)

func (tx *sweepTx) GetMsg() (xnft.Msg, error) {
	return tx.msg, nil
}

func (tx *sweepTx) Marshal() ([]byte, error) {
	return nil, errors.Wrap(errors.ErrHuman, "operation not supported")
}

func (tx *sweepTx) Unmarshal([]byte) error {
	return errors.Wrap(errors.ErrHuman, "operation not supported")
}
