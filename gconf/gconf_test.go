package gconf

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/store"
	"github.com/iov-one/xnft/weavetest"
	"github.com/iov-one/xnft/weavetest/assert"
)

type testConfig struct {
	Owner xnft.Address `json:"owner"`
	Limit uint64       `json:"limit"`
	Name  string       `json:"name"`
}

func (c *testConfig) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Bytes(1, c.Owner)
	b.Uvarint(2, c.Limit)
	b.String(3, c.Name)
	return b.Result()
}

func (c *testConfig) Unmarshal(raw []byte) error {
	*c = testConfig{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			c.Owner = d.Bytes()
		case 2:
			c.Limit = d.Uvarint()
		case 3:
			c.Name = d.Text()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

func (c *testConfig) Validate() error {
	if c.Limit == 0 {
		return errors.Wrap(errors.ErrModel, "limit required")
	}
	return c.Owner.Validate()
}

func (c *testConfig) GetOwner() xnft.Address {
	return c.Owner
}

type patchMsg struct {
	weavetest.Msg
	Patch *testConfig
}

func (m *patchMsg) GetPatch() OwnedConfig {
	return m.Patch
}

func (m *patchMsg) Validate() error {
	return nil
}

func TestSaveLoad(t *testing.T) {
	db := store.MemStore()
	owner := weavetest.RandomAddr(t)

	var got testConfig
	assert.IsErr(t, errors.ErrNotFound, Load(db, "test", &got))

	assert.IsErr(t, errors.ErrModel, Save(db, "test", &testConfig{Owner: owner}))

	conf := testConfig{Owner: owner, Limit: 7, Name: "seven"}
	assert.Nil(t, Save(db, "test", &conf))
	assert.Nil(t, Load(db, "test", &got))
	assert.Equal(t, conf, got)

	raw, err := db.Get(Key("test"))
	assert.Nil(t, err)
	if raw == nil {
		t.Fatal("configuration must be stored under the package key")
	}
}

func TestInitConfig(t *testing.T) {
	db := store.MemStore()
	owner := weavetest.RandomAddr(t)

	genesis := map[string]interface{}{
		"conf": map[string]interface{}{
			"test": map[string]interface{}{
				"owner": owner.String(),
				"limit": 3,
			},
		},
	}
	raw, err := json.Marshal(genesis)
	assert.Nil(t, err)
	var opts xnft.Options
	assert.Nil(t, json.Unmarshal(raw, &opts))

	var conf testConfig
	assert.Nil(t, InitConfig(db, opts, "test", &conf))
	var got testConfig
	assert.Nil(t, Load(db, "test", &got))
	assert.Equal(t, uint64(3), got.Limit)
	assert.Equal(t, owner, got.Owner)

	assert.IsErr(t, errors.ErrNotFound, InitConfig(db, opts, "other", &conf))
}

func TestUpdateConfiguration(t *testing.T) {
	owner := weavetest.NewCondition()
	stranger := weavetest.NewCondition()

	db := store.MemStore()
	assert.Nil(t, Save(db, "test", &testConfig{Owner: owner.Address(), Limit: 5, Name: "five"}))

	auth := &weavetest.CtxAuth{Key: "auth"}
	h := NewUpdateConfigurationHandler("test", &testConfig{}, auth)
	tx := &weavetest.Tx{Msg: &patchMsg{Patch: &testConfig{Limit: 9}}}

	ctx := auth.SetConditions(context.Background(), stranger)
	_, err := h.Deliver(ctx, db, tx)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	ctx = auth.SetConditions(context.Background(), owner)
	_, err = h.Deliver(ctx, db, tx)
	assert.Nil(t, err)

	var got testConfig
	assert.Nil(t, Load(db, "test", &got))
	assert.Equal(t, uint64(9), got.Limit)
	// zero value fields are left untouched
	assert.Equal(t, "five", got.Name)

	_, err = h.Deliver(ctx, db, &weavetest.Tx{Msg: &weavetest.Msg{RoutePath: "x"}})
	assert.IsErr(t, errors.ErrMsg, err)
}
