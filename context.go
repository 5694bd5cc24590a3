package xnft

import (
	"context"
	"regexp"
	"time"

	"github.com/iov-one/xnft/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

// Context carries the block information a handler runs with.
type Context = context.Context

type contextKey int

const (
	contextKeyHeader contextKey = iota
	contextKeyHeight
	contextKeyChainID
	contextKeyLogger
	contextKeyTime
)

var (
	// DefaultLogger is returned by GetLogger when the context has none.
	DefaultLogger = log.NewNopLogger()

	IsValidChainID = regexp.MustCompile(`^[a-zA-Z0-9_\-]{6,20}$`).MatchString
)

// WithHeader panics if the header is already set.
func WithHeader(ctx Context, header abci.Header) Context {
	if _, ok := GetHeader(ctx); ok {
		panic("block header already set")
	}
	return context.WithValue(ctx, contextKeyHeader, header)
}

func GetHeader(ctx Context) (abci.Header, bool) {
	h, ok := ctx.Value(contextKeyHeader).(abci.Header)
	return h, ok
}

// WithHeight panics if the height is already set. Ticket expirations are
// measured in block heights, so a context without one cannot start or
// reverse transfers.
func WithHeight(ctx Context, height int64) Context {
	if _, ok := GetHeight(ctx); ok {
		panic("block height already set")
	}
	return context.WithValue(ctx, contextKeyHeight, height)
}

func GetHeight(ctx Context) (int64, bool) {
	h, ok := ctx.Value(contextKeyHeight).(int64)
	return h, ok
}

// WithBlockTime stores t in UTC.
func WithBlockTime(ctx Context, t time.Time) Context {
	return context.WithValue(ctx, contextKeyTime, t.UTC())
}

// BlockTime fails if the context holds no block time or a zero one.
func BlockTime(ctx Context) (time.Time, error) {
	t, ok := ctx.Value(contextKeyTime).(time.Time)
	switch {
	case !ok:
		return time.Time{}, errors.Wrap(errors.ErrHuman, "no block time in context")
	case t.IsZero():
		return t, errors.Wrap(errors.ErrHuman, "zero block time in context")
	}
	return t, nil
}

// WithChainID panics if a chain id is already set or id is not valid.
func WithChainID(ctx Context, id string) Context {
	if ctx.Value(contextKeyChainID) != nil {
		panic("chain id already set")
	}
	if !IsValidChainID(id) {
		panic("invalid chain id " + id)
	}
	return context.WithValue(ctx, contextKeyChainID, id)
}

// GetChainID panics if no chain id is set.
func GetChainID(ctx Context) string {
	id, ok := ctx.Value(contextKeyChainID).(string)
	if !ok {
		panic("no chain id in context")
	}
	return id
}

func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

func GetLogger(ctx Context) log.Logger {
	if l, ok := ctx.Value(contextKeyLogger).(log.Logger); ok {
		return l
	}
	return DefaultLogger
}

// WithLogInfo returns a context whose logger adds keyvals to every entry.
func WithLogInfo(ctx Context, keyvals ...interface{}) Context {
	return WithLogger(ctx, GetLogger(ctx).With(keyvals...))
}
