package bridge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/store"
	"github.com/iov-one/xnft/weavetest"
	"github.com/iov-one/xnft/xcm"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenesis(t *testing.T) {
	Convey("Bridge genesis", t, func() {
		owner := weavetest.NewCondition().Address()
		alice := weavetest.NewCondition().Address()
		hexAddr := func(a xnft.Address) string { return "hex:" + hex.EncodeToString(a) }

		conf := fmt.Sprintf(`
		"conf": {
			"bridge": {
				"metadata": {"Schema": 1},
				"owner": %q,
				"universal_location": "consensus(polkadot)/parachain(2000)",
				"collections_prefix": "pallet(52)",
				"ticket_ttl": 100,
				"default_mode": "reserve",
				"trusted_teleporters": ["../parachain(2001)"],
				"unit_weight": 10,
				"sweep_limit": 5
			}
		}`, hexAddr(owner))

		Convey("loads configuration and collections", func() {
			genesis := fmt.Sprintf(`{
				%s,
				"bridge": {
					"collections": [
						{"owner": %q, "metadata": "kitties", "items": [{"id": 1, "owner": %q}, {"id": 2, "owner": %q}]},
						{"owner": %q, "metadata": "puppies", "mode": "teleport"}
					],
					"foreign": [
						{"asset": "../parachain(2001)/pallet(52)/index(1)"}
					]
				}
			}`, conf, hexAddr(alice), hexAddr(alice), hexAddr(owner), hexAddr(alice))

			var opts xnft.Options
			So(json.Unmarshal([]byte(genesis), &opts), ShouldBeNil)

			db := store.MemStore()
			var init Initializer
			So(init.FromGenesis(opts, db), ShouldBeNil)

			c, err := loadConf(db)
			So(err, ShouldBeNil)
			So(c.Owner, ShouldResemble, owner)
			So(c.TicketTTL, ShouldEqual, 100)
			So(c.Trusts(xcm.MustParseLocation("../parachain(2001)")), ShouldBeTrue)

			r := NewRegistry()
			p := NewProvenance(r)

			kitties, err := r.Collection(db, 1)
			So(err, ShouldBeNil)
			So(kitties.Mode, ShouldEqual, Reserve)
			So(kitties.Items, ShouldEqual, 2)

			puppies, err := r.Collection(db, 2)
			So(err, ShouldBeNil)
			So(puppies.Mode, ShouldEqual, Teleport)
			So(puppies.Items, ShouldEqual, 0)

			it, err := p.Item(db, 1, 2)
			So(err, ShouldBeNil)
			So(it.Owner, ShouldResemble, owner)

			foreign, err := r.LookupForeign(db, xcm.MustParseLocation("../parachain(2001)"), xcm.Junctions{xcm.PalletInstance(52), xcm.GeneralIndex(1)})
			So(err, ShouldBeNil)
			So(foreign.Kind, ShouldEqual, Derivative)
			So(foreign.ID, ShouldEqual, 3)
		})

		Convey("works without collections", func() {
			var opts xnft.Options
			So(json.Unmarshal([]byte("{"+conf+"}"), &opts), ShouldBeNil)

			var init Initializer
			So(init.FromGenesis(opts, store.MemStore()), ShouldBeNil)
		})

		Convey("requires a configuration", func() {
			var opts xnft.Options
			So(json.Unmarshal([]byte(`{"bridge": {}}`), &opts), ShouldBeNil)

			var init Initializer
			So(init.FromGenesis(opts, store.MemStore()), ShouldNotBeNil)
		})

		Convey("rejects duplicated items", func() {
			genesis := fmt.Sprintf(`{
				%s,
				"bridge": {
					"collections": [
						{"owner": %q, "items": [{"id": 1, "owner": %q}, {"id": 1, "owner": %q}]}
					]
				}
			}`, conf, hexAddr(alice), hexAddr(alice), hexAddr(alice))

			var opts xnft.Options
			So(json.Unmarshal([]byte(genesis), &opts), ShouldBeNil)

			var init Initializer
			err := init.FromGenesis(opts, store.MemStore())
			So(ErrItemExists.Is(err), ShouldBeTrue)
		})
	})
}
