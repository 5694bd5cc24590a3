package bridge

import (
	"context"
	"testing"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/gconf"
	"github.com/iov-one/xnft/store"
	"github.com/iov-one/xnft/weavetest"
	"github.com/iov-one/xnft/xcm"
	"github.com/iov-one/xnft/xcm/xcmtest"
	"github.com/tendermint/tendermint/libs/common"
)

var (
	paraA = xcm.Junctions{xcm.GlobalConsensus("polkadot"), xcm.Parachain(2000)}
	paraB = xcm.Junctions{xcm.GlobalConsensus("polkadot"), xcm.Parachain(2001)}
	paraC = xcm.Junctions{xcm.GlobalConsensus("polkadot"), xcm.Parachain(2002)}
)

// testChain is a single chain running the bridge, connected to other test
// chains through an in-memory network.
type testChain struct {
	t          testing.TB
	universal  xcm.Junctions
	db         xnft.CacheableKVStore
	conf       *Configuration
	registry   *Registry
	provenance *Provenance
	dispatcher *Dispatcher
	executor   *Executor
	ticker     *TimeoutTicker
	net        *xcmtest.Network
	height     int64
}

func testConfiguration(universal xcm.Junctions) *Configuration {
	return &Configuration{
		Metadata:          &xnft.Metadata{Schema: 1},
		Owner:             weavetest.NewCondition().Address(),
		UniversalLocation: xcm.Location{Interior: universal},
		CollectionsPrefix: xcm.NewLocation(0, xcm.PalletInstance(52)),
		TicketTTL:         100,
		DefaultMode:       Reserve,
		UnitWeight:        10,
		SweepLimit:        10,
	}
}

func newTestChain(t testing.TB, net *xcmtest.Network, universal xcm.Junctions, configure func(*Configuration)) *testChain {
	t.Helper()

	conf := testConfiguration(universal)
	if configure != nil {
		configure(conf)
	}
	db := store.MemStore()
	if err := gconf.Save(db, packageName, conf); err != nil {
		t.Fatalf("cannot save configuration: %s", err)
	}
	sender := net.Join(universal)
	registry := NewRegistry()
	provenance := NewProvenance(registry)
	return &testChain{
		t:          t,
		universal:  universal,
		db:         db,
		conf:       conf,
		registry:   registry,
		provenance: provenance,
		dispatcher: NewDispatcher(registry, provenance, sender),
		executor:   NewExecutor(registry, provenance, sender),
		ticker:     NewTimeoutTicker(provenance),
		net:        net,
		height:     1000,
	}
}

func (c *testChain) ctx() xnft.Context {
	return xnft.WithHeight(context.Background(), c.height)
}

// location returns the location of other chain as seen from this chain.
func (c *testChain) location(other *testChain) xcm.Location {
	return xcm.Relative(other.universal, c.universal)
}

// collection registers a native collection owned by owner.
func (c *testChain) collection(owner xnft.Address, mode Mode) *Collection {
	c.t.Helper()
	coll, err := c.registry.RegisterNativeCollection(c.db, owner, []byte(owner.String()), mode, false)
	if err != nil {
		c.t.Fatalf("cannot register collection: %s", err)
	}
	return coll
}

func (c *testChain) mint(collection, id uint64, owner xnft.Address) {
	c.t.Helper()
	if _, err := c.provenance.Mint(c.db, collection, id, owner); err != nil {
		c.t.Fatalf("cannot mint: %s", err)
	}
}

func (c *testChain) item(collection, id uint64) *Item {
	c.t.Helper()
	it, err := c.provenance.Item(c.db, collection, id)
	if err != nil {
		c.t.Fatalf("cannot load item %d/%d: %s", collection, id, err)
	}
	return it
}

func (c *testChain) send(collection, id uint64, caller xnft.Address, to *testChain, beneficiary xnft.Address) (*Ticket, error) {
	return c.dispatcher.Dispatch(c.ctx(), c.db, TransferRequest{
		Collection:  collection,
		Item:        id,
		Caller:      caller,
		Destination: c.location(to),
		Beneficiary: xcm.NewLocation(0, xcm.AccountKey20(beneficiary)),
		FeeLimit:    1000,
	})
}

// receive executes all messages waiting in the inbox of this chain.
func (c *testChain) receive() []Outcome {
	var outcomes []Outcome
	for _, d := range c.net.Drain(c.universal) {
		outcomes = append(outcomes, c.executor.Execute(c.ctx(), c.db, d.Origin, d.Payload))
	}
	return outcomes
}

// inbox returns the messages waiting for this chain without executing
// them.
func (c *testChain) inbox() []xcm.Delivery {
	return c.net.Drain(c.universal)
}

func (c *testChain) derivative(origin *testChain, remoteCollection uint64) *Collection {
	c.t.Helper()
	remote := xcm.Junctions{xcm.PalletInstance(52), xcm.GeneralIndex(remoteCollection)}
	coll, err := c.registry.LookupForeign(c.db, c.location(origin), remote)
	if err != nil {
		c.t.Fatalf("cannot find derivative of %d: %s", remoteCollection, err)
	}
	return coll
}

func (c *testChain) derivativeItem(coll *Collection, remoteItem uint64) *Item {
	c.t.Helper()
	it, err := c.provenance.ForeignItem(c.db, coll.ID, xcm.Index(remoteItem))
	if err != nil {
		c.t.Fatalf("cannot find derivative item %d: %s", remoteItem, err)
	}
	return it
}

func tagValue(tags []common.KVPair, key string) []string {
	var values []string
	for _, t := range tags {
		if string(t.Key) == key {
			values = append(values, string(t.Value))
		}
	}
	return values
}
