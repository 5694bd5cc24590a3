package utils

import (
	"time"

	"github.com/iov-one/xnft"
)

// Logging writes one entry per transaction with its path and duration.
// Failures are logged as errors, successful checks at debug level and
// successful deliveries at info level.
type Logging struct{}

var _ xnft.Decorator = Logging{}

func NewLogging() Logging {
	return Logging{}
}

func (Logging) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Checker) (*xnft.CheckResult, error) {
	start := time.Now()
	res, err := next.Check(ctx, db, tx)
	var msg string
	if res != nil {
		msg = res.Log
	}
	logTx(ctx, tx, start, msg, err, true)
	return res, err
}

func (Logging) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx, next xnft.Deliverer) (*xnft.DeliverResult, error) {
	start := time.Now()
	res, err := next.Deliver(ctx, db, tx)
	var msg string
	if res != nil {
		msg = res.Log
	}
	logTx(ctx, tx, start, msg, err, false)
	return res, err
}

// logTx always writes an entry, even with an empty message, because the
// path and duration are worth recording.
func logTx(ctx xnft.Context, tx xnft.Tx, start time.Time, msg string, err error, check bool) {
	logger := xnft.GetLogger(ctx).With(
		"path", xnft.GetPath(tx),
		"duration_us", time.Since(start)/time.Microsecond,
	)
	switch {
	case err != nil:
		logger.Error(msg, "err", err)
	case check:
		logger.Debug(msg)
	default:
		logger.Info(msg)
	}
}
