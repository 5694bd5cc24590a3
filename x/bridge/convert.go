package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/xcm"
)

// Converter translates between local identifiers and protocol locations.
// It is pure, all state comes from the configuration it was built with.
type Converter struct {
	universal xcm.Junctions
	prefix    xcm.Junctions
}

// NewConverter returns a converter for the chain described by conf.
func NewConverter(conf *Configuration) Converter {
	return Converter{
		universal: conf.UniversalLocation.Interior.Clone(),
		prefix:    conf.CollectionsPrefix.Interior.Clone(),
	}
}

// LocalAssetID returns the location of a native collection relative to
// this chain.
func (c Converter) LocalAssetID(collection uint64) xcm.Location {
	return xcm.Location{Interior: c.prefix}.Append(xcm.GeneralIndex(collection))
}

// LocalCollection returns the native collection identifier an asset
// location points at. The location is relative to this chain.
func (c Converter) LocalCollection(l xcm.Location) (uint64, bool) {
	l = l.Simplify(c.universal)
	rest, ok := l.Split(xcm.Location{Interior: c.prefix})
	if !ok || len(rest) != 1 || rest[0].Kind != xcm.IndexJunction {
		return 0, false
	}
	return rest[0].Index, true
}

// ItemInstance returns the protocol identifier of a native item.
func (c Converter) ItemInstance(item uint64) xcm.AssetInstance {
	return xcm.Index(item)
}

// LocalItem returns the native item identifier of an asset instance.
// Native items are always published as index instances, byte array
// instances never name a native item, whatever their content.
func (c Converter) LocalItem(inst xcm.AssetInstance) (uint64, bool) {
	if inst.Kind != xcm.IndexInstance {
		return 0, false
	}
	return inst.Index, true
}

// IsLocal returns true if the location points inside this chain.
func (c Converter) IsLocal(l xcm.Location) bool {
	return l.Simplify(c.universal).Parents == 0
}

// SplitForeign separates a foreign asset location into the chain holding
// the asset and the collection identifier local to that chain.
func (c Converter) SplitForeign(l xcm.Location) (xcm.Location, xcm.Junctions) {
	return l.Simplify(c.universal).SplitChain()
}

// AccountLocation returns the location of a local account.
func (c Converter) AccountLocation(addr xnft.Address) xcm.Location {
	return xcm.NewLocation(0, xcm.AccountKey20(addr))
}

// LocationAccount returns the local account a location points at. Only
// 20 byte account keys map to addresses.
func (c Converter) LocationAccount(l xcm.Location) (xnft.Address, bool) {
	if l.Parents != 0 || len(l.Interior) != 1 || l.Interior[0].Kind != xcm.Account20Junction {
		return nil, false
	}
	addr := xnft.Address(l.Interior[0].Key)
	if addr.Validate() != nil {
		return nil, false
	}
	return addr, true
}
