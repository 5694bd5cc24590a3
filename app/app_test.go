package app

import (
	"context"
	"testing"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/store"
	"github.com/iov-one/xnft/weavetest"
	"github.com/iov-one/xnft/weavetest/assert"
	"github.com/tendermint/tendermint/libs/common"
)

func TestRouter(t *testing.T) {
	r := NewRouter()
	good := &weavetest.Msg{RoutePath: "test/good"}
	bad := &weavetest.Msg{RoutePath: "test/bad"}
	missing := &weavetest.Msg{RoutePath: "test/missing"}

	counter := &weavetest.Handler{}
	r.Handle(good, counter)
	r.Handle(bad, &weavetest.Handler{DeliverErr: errors.ErrState})

	// make sure invalid registrations panic
	assert.Panics(t, func() { r.Handle(good, counter) })
	assert.Panics(t, func() { r.Handle(&weavetest.Msg{RoutePath: "l:7"}, counter) })

	ctx := context.Background()
	db := store.MemStore()

	_, err := r.Check(ctx, db, &weavetest.Tx{Msg: good})
	assert.Nil(t, err)
	_, err = r.Deliver(ctx, db, &weavetest.Tx{Msg: good})
	assert.Nil(t, err)
	assert.Equal(t, 2, counter.CallCount())

	_, err = r.Deliver(ctx, db, &weavetest.Tx{Msg: bad})
	assert.IsErr(t, errors.ErrState, err)

	_, err = r.Deliver(ctx, db, &weavetest.Tx{Msg: missing})
	assert.IsErr(t, errors.ErrNotFound, err)
	_, err = r.Check(ctx, db, &weavetest.Tx{Msg: missing})
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, 2, counter.CallCount())

	_, err = r.Deliver(ctx, db, &weavetest.Tx{Err: errors.ErrMsg})
	assert.IsErr(t, errors.ErrMsg, err)
}

func TestChain(t *testing.T) {
	c1 := &weavetest.Decorator{}
	c2 := &weavetest.Decorator{}
	var nilDecorator *weavetest.Decorator
	h := &weavetest.Handler{}

	stack := ChainDecorators(c1, nilDecorator).Chain(nil, c2).WithHandler(h)

	ctx := context.Background()
	db := store.MemStore()
	tx := &weavetest.Tx{Msg: &weavetest.Msg{RoutePath: "test/chain"}}

	_, err := stack.Check(ctx, db, tx)
	assert.Nil(t, err)
	_, err = stack.Deliver(ctx, db, tx)
	assert.Nil(t, err)
	assert.Equal(t, 2, c1.CallCount())
	assert.Equal(t, 2, c2.CallCount())
	assert.Equal(t, 2, h.CallCount())

	// an error in the middle stops the stack
	c2.DeliverErr = errors.ErrUnauthorized
	_, err = stack.Deliver(ctx, db, tx)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	assert.Equal(t, 1, h.DeliverCallCount())
}

type tagTicker string

func (tt tagTicker) Tick(xnft.Context, xnft.CacheableKVStore) xnft.TickResult {
	return xnft.TickResult{Tags: []common.KVPair{{Key: []byte("tick"), Value: []byte(tt)}}}
}

func TestTickers(t *testing.T) {
	ts := Tickers{tagTicker("a"), tagTicker("b")}
	res := ts.Tick(context.Background(), store.MemStore())
	assert.Equal(t, 2, len(res.Tags))
	assert.Equal(t, []byte("b"), res.Tags[1].Value)
}
