package xcm

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/xnft/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseLocation(t *testing.T) {
	Convey("Text form of a location", t, func() {
		Convey("round trips canonical strings", func() {
			for _, s := range []string{
				".",
				"..",
				"../..",
				"pallet(52)",
				"../parachain(2000)/pallet(52)/index(1)",
				"../../consensus(kusama)/parachain(1000)",
				"account20(00112233445566778899aabbccddeeff00112233)",
				"key(cafe)",
			} {
				l, err := ParseLocation(s)
				So(err, ShouldBeNil)
				So(l.String(), ShouldEqual, s)
			}
		})

		Convey("empty string is here", func() {
			l, err := ParseLocation("")
			So(err, ShouldBeNil)
			So(l.IsHere(), ShouldBeTrue)
		})

		Convey("rejects malformed input", func() {
			for _, s := range []string{
				"parachain(x)",
				"index(1)/..",
				"unknown(1)",
				"pallet(256)",
				"account20(0011)",
				"account32(zz)",
				"index(1)//index(2)",
				"consensus(Upper)",
				"index(1)/index(2)/index(3)/index(4)/index(5)/index(6)/index(7)/index(8)/index(9)",
			} {
				_, err := ParseLocation(s)
				So(err, ShouldNotBeNil)
			}
		})

		Convey("parsed junctions are typed", func() {
			l := MustParseLocation("../parachain(2000)/pallet(52)/index(1)")
			So(l.Parents, ShouldEqual, 1)
			So(l.Interior.Equals(Junctions{Parachain(2000), PalletInstance(52), GeneralIndex(1)}), ShouldBeTrue)
		})
	})
}

func TestLocationPerspective(t *testing.T) {
	paraA := Junctions{GlobalConsensus("polkadot"), Parachain(2000)}
	paraB := Junctions{GlobalConsensus("polkadot"), Parachain(2001)}

	Convey("Given a chain at "+paraA.String(), t, func() {
		Convey("Simplify removes redundant hops", func() {
			cases := map[string]string{
				"../parachain(2000)/pallet(52)":            "pallet(52)",
				"../../consensus(polkadot)/parachain(2001)": "../parachain(2001)",
				"../parachain(2001)":                        "../parachain(2001)",
				"../parachain(2000)":                        ".",
				"pallet(52)":                                "pallet(52)",
			}
			for in, want := range cases {
				So(MustParseLocation(in).Simplify(paraA).String(), ShouldEqual, want)
			}
		})

		Convey("Simplify leaves unresolvable locations alone", func() {
			l := MustParseLocation("../../../index(1)")
			So(l.Simplify(paraA).String(), ShouldEqual, "../../../index(1)")
		})

		Convey("Absolute fails when escaping the universe", func() {
			_, err := MustParseLocation("../../../index(1)").Absolute(paraA)
			So(errors.ErrInput.Is(err), ShouldBeTrue)
		})

		Convey("Relative finds the shortest path", func() {
			So(Relative(paraB, paraA).String(), ShouldEqual, "../parachain(2001)")
			So(Relative(paraA, paraA).String(), ShouldEqual, ".")
			So(Relative(paraA, nil).String(), ShouldEqual, "consensus(polkadot)/parachain(2000)")
		})

		Convey("Reanchor moves a local asset to the sibling perspective", func() {
			asset := MustParseLocation("pallet(52)/index(1)")
			got, err := asset.Reanchor(MustParseLocation("../parachain(2001)"), paraA)
			So(err, ShouldBeNil)
			So(got.String(), ShouldEqual, "../parachain(2000)/pallet(52)/index(1)")

			Convey("and back", func() {
				back, err := got.Reanchor(MustParseLocation("../parachain(2000)"), paraB)
				So(err, ShouldBeNil)
				So(back.String(), ShouldEqual, "pallet(52)/index(1)")
			})
		})

		Convey("Here reanchored is the chain itself", func() {
			got, err := Location{}.Reanchor(MustParseLocation("../parachain(2001)"), paraA)
			So(err, ShouldBeNil)
			So(got.String(), ShouldEqual, "../parachain(2000)")
		})
	})
}

func TestLocationSplit(t *testing.T) {
	Convey("Splitting a location", t, func() {
		Convey("SplitChain cuts after the last chain junction", func() {
			chain, rest := MustParseLocation("../parachain(2000)/pallet(52)/index(1)").SplitChain()
			So(chain.String(), ShouldEqual, "../parachain(2000)")
			So(rest.String(), ShouldEqual, "pallet(52)/index(1)")

			chain, rest = MustParseLocation("../pallet(5)/index(1)").SplitChain()
			So(chain.String(), ShouldEqual, "..")
			So(rest.String(), ShouldEqual, "pallet(5)/index(1)")
		})

		Convey("Split requires the exact prefix", func() {
			l := MustParseLocation("../parachain(2000)/pallet(52)/index(1)")
			rest, ok := l.Split(MustParseLocation("../parachain(2000)"))
			So(ok, ShouldBeTrue)
			So(rest.String(), ShouldEqual, "pallet(52)/index(1)")

			_, ok = l.Split(MustParseLocation("../parachain(2001)"))
			So(ok, ShouldBeFalse)
			_, ok = l.Split(MustParseLocation("parachain(2000)"))
			So(ok, ShouldBeFalse)
		})

		Convey("Append does not modify the receiver", func() {
			base := MustParseLocation("pallet(52)")
			ext := base.Append(GeneralIndex(3))
			So(base.String(), ShouldEqual, "pallet(52)")
			So(ext.String(), ShouldEqual, "pallet(52)/index(3)")
		})
	})
}

func TestLocationSerialization(t *testing.T) {
	Convey("Serialized locations", t, func() {
		l := MustParseLocation("../../consensus(kusama)/parachain(1000)/key(cafe)/account20(00112233445566778899aabbccddeeff00112233)")

		Convey("survive a binary round trip", func() {
			raw, err := l.Marshal()
			So(err, ShouldBeNil)
			var got Location
			So(got.Unmarshal(raw), ShouldBeNil)
			So(got.Equals(l), ShouldBeTrue)
		})

		Convey("are strings in JSON", func() {
			raw, err := json.Marshal(struct{ L Location }{l})
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"L":"`+l.String()+`"}`)

			var got struct{ L Location }
			So(json.Unmarshal(raw, &got), ShouldBeNil)
			So(got.L.Equals(l), ShouldBeTrue)
		})

		Convey("invalid JSON text is rejected", func() {
			var got Location
			So(json.Unmarshal([]byte(`"index(-1)"`), &got), ShouldNotBeNil)
			So(json.Unmarshal([]byte(`42`), &got), ShouldNotBeNil)
		})
	})
}
