package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/gconf"
	"github.com/iov-one/xnft/xcm"
)

// Initializer loads the bridge configuration and initial collections from
// the genesis file.
type Initializer struct{}

var _ xnft.Initializer = (*Initializer)(nil)

type genesisItem struct {
	ID    uint64       `json:"id"`
	Owner xnft.Address `json:"owner"`
}

type genesisCollection struct {
	Owner    xnft.Address  `json:"owner"`
	Metadata string        `json:"metadata"`
	Mode     Mode          `json:"mode"`
	Items    []genesisItem `json:"items"`
}

type genesisForeign struct {
	Asset xcm.Location `json:"asset"`
	Mode  Mode         `json:"mode"`
}

// FromGenesis stores the configuration found under conf.bridge and creates
// the collections listed under bridge.
func (*Initializer) FromGenesis(opts xnft.Options, db xnft.KVStore) error {
	if err := gconf.InitConfig(db, opts, packageName, &Configuration{}); err != nil {
		return errors.Wrap(err, "init config")
	}
	conf, err := loadConf(db)
	if err != nil {
		return err
	}

	var genesis struct {
		Collections []genesisCollection `json:"collections"`
		Foreign     []genesisForeign    `json:"foreign"`
	}
	if err := opts.ReadOptions(packageName, &genesis); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}

	registry := NewRegistry()
	provenance := NewProvenance(registry)
	for n, gc := range genesis.Collections {
		mode := gc.Mode
		if mode == 0 {
			mode = conf.DefaultMode
		}
		c, err := registry.RegisterNativeCollection(db, gc.Owner, []byte(gc.Metadata), mode, conf.DeduplicateMetadata)
		if err != nil {
			return errors.Wrapf(err, "collection %d", n)
		}
		for _, gi := range gc.Items {
			if _, err := provenance.Mint(db, c.ID, gi.ID, gi.Owner); err != nil {
				return errors.Wrapf(err, "collection %d item %d", n, gi.ID)
			}
		}
	}
	conv := NewConverter(conf)
	for n, gf := range genesis.Foreign {
		mode := gf.Mode
		if mode == 0 {
			mode = conf.DefaultMode
		}
		if _, err := registry.RegisterForeignCollection(db, conv, gf.Asset, mode); err != nil {
			return errors.Wrapf(err, "foreign collection %d", n)
		}
	}
	return nil
}
