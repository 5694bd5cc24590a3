package app

import (
	"github.com/iov-one/xnft"
)

// Tickers runs a list of tickers one after another and collects their tags.
// It is meant to be called once at the beginning of every block.
type Tickers []xnft.Ticker

var _ xnft.Ticker = Tickers(nil)

// Tick implements xnft.Ticker.
func (ts Tickers) Tick(ctx xnft.Context, db xnft.CacheableKVStore) xnft.TickResult {
	var res xnft.TickResult
	for _, t := range ts {
		r := t.Tick(ctx, db)
		res.Tags = append(res.Tags, r.Tags...)
	}
	return res
}
