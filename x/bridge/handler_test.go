package bridge

import (
	"context"
	"math"
	"testing"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/app"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/gconf"
	"github.com/iov-one/xnft/store"
	"github.com/iov-one/xnft/weavetest"
	"github.com/iov-one/xnft/x/utils"
	"github.com/iov-one/xnft/xcm"
	"github.com/iov-one/xnft/xcm/xcmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers(t *testing.T) {
	auth := &weavetest.CtxAuth{Key: "auth"}
	net := xcmtest.NewNetwork(0)
	net.Join(paraB)

	owner := weavetest.NewCondition()
	db := store.MemStore()
	conf := testConfiguration(paraA)
	conf.Owner = owner.Address()
	require.NoError(t, gconf.Save(db, packageName, conf))

	rt := app.NewRouter()
	RegisterRoutes(rt, auth, net.Join(paraA))
	h := app.ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		utils.NewActionTagger(),
		utils.NewSavepoint().OnDeliver(),
	).WithHandler(rt)

	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	admin := weavetest.NewCondition()
	meta := &xnft.Metadata{Schema: 1}

	ctx := func(height int64, signers ...xnft.Condition) xnft.Context {
		return auth.SetConditions(xnft.WithHeight(context.Background(), height), signers...)
	}
	deliver := func(ctx xnft.Context, msg xnft.Msg) (*xnft.DeliverResult, error) {
		tx := &weavetest.Tx{Msg: msg}
		if _, err := h.Check(ctx, db.CacheWrap(), tx); err != nil {
			return nil, err
		}
		return h.Deliver(ctx, db, tx)
	}

	res, err := deliver(ctx(1, alice), &RegisterCollectionMsg{Metadata: meta, CollectionMetadata: []byte("kitties")})
	require.NoError(t, err)
	assert.Equal(t, collectionKey(1), res.Data)
	assert.Equal(t, []string{EventCollectionRegistered}, tagValue(res.Tags, EventKey))
	assert.Equal(t, []string{pathRegisterCollectionMsg}, tagValue(res.Tags, utils.ActionKey))

	registry := NewRegistry()
	c, err := registry.Collection(db, 1)
	require.NoError(t, err)
	assert.Equal(t, alice.Address(), c.Owner)
	assert.Equal(t, Reserve, c.Mode)

	_, err = deliver(ctx(1, bob), &MintMsg{Metadata: meta, CollectionID: 1, ItemID: 7, Owner: bob.Address()})
	assert.True(t, ErrNotOwner.Is(err))
	_, err = deliver(ctx(1, alice), &MintMsg{Metadata: meta, CollectionID: 1, ItemID: 7, Owner: alice.Address()})
	require.NoError(t, err)

	_, err = deliver(ctx(1, bob), &TransferMsg{Metadata: meta, CollectionID: 1, ItemID: 7, Recipient: bob.Address()})
	assert.True(t, ErrNotOwner.Is(err))
	_, err = deliver(ctx(1), &TransferMsg{Metadata: meta, CollectionID: 1, ItemID: 7, Recipient: bob.Address()})
	assert.True(t, errors.ErrUnauthorized.Is(err))

	res, err = deliver(ctx(2, alice), &TransferCrossChainMsg{
		Metadata:     meta,
		CollectionID: 1,
		ItemID:       7,
		Destination:  xcm.MustParseLocation("../parachain(2001)"),
		Beneficiary:  xcm.NewLocation(0, xcm.AccountKey20(bob.Address())),
		FeeLimit:     100,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{EventItemLocked, EventItemTransferredOut}, tagValue(res.Tags, EventKey))
	assert.Equal(t, []string{"1"}, tagValue(res.Tags, TicketKey))
	assert.Equal(t, 1, net.Pending(paraB))

	_, err = deliver(ctx(2, alice), &BurnMsg{Metadata: meta, CollectionID: 1, ItemID: 7})
	assert.True(t, ErrItemNotAvailable.Is(err))

	// Anybody can reverse, but only after the ticket expired.
	_, err = deliver(ctx(102), &ReverseExpiredMsg{Metadata: meta, TicketID: 1})
	assert.True(t, ErrNotExpired.Is(err))
	res, err = deliver(ctx(103), &ReverseExpiredMsg{Metadata: meta, TicketID: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{EventTransferReversed}, tagValue(res.Tags, EventKey))

	_, err = deliver(ctx(103, alice), &DestroyCollectionMsg{Metadata: meta, CollectionID: 1})
	assert.True(t, ErrCollectionNotEmpty.Is(err))
	_, err = deliver(ctx(103, alice), &BurnMsg{Metadata: meta, CollectionID: 1, ItemID: 7})
	require.NoError(t, err)
	res, err = deliver(ctx(103, alice), &DestroyCollectionMsg{Metadata: meta, CollectionID: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{EventCollectionDestroyed}, tagValue(res.Tags, EventKey))

	foreign := &RegisterForeignMsg{Metadata: meta, Asset: xcm.MustParseLocation("../parachain(2001)/pallet(52)/index(3)"), Mode: Teleport}
	_, err = deliver(ctx(103, admin), foreign)
	assert.True(t, errors.ErrUnauthorized.Is(err))

	// Hand the configuration over to admin.
	_, err = deliver(ctx(103, admin), &UpdateConfigurationMsg{Metadata: meta, Patch: &Configuration{Owner: admin.Address()}})
	assert.True(t, errors.ErrUnauthorized.Is(err))
	_, err = deliver(ctx(103, owner), &UpdateConfigurationMsg{Metadata: meta, Patch: &Configuration{Owner: admin.Address()}})
	require.NoError(t, err)

	res, err = deliver(ctx(103, admin), foreign)
	require.NoError(t, err)
	assert.Equal(t, []string{"../parachain(2001)"}, tagValue(res.Tags, ChainKey))
	_, err = deliver(ctx(103, admin), foreign)
	assert.True(t, ErrAlreadyRegistered.Is(err))
}

func TestMessageValidation(t *testing.T) {
	meta := &xnft.Metadata{Schema: 1}
	addr := weavetest.NewCondition().Address()
	dest := xcm.MustParseLocation("../parachain(2001)")
	beneficiary := xcm.NewLocation(0, xcm.AccountKey20(addr))

	cases := map[string]struct {
		msg        xnft.Msg
		wantErrs   map[string]*errors.Error
		wantNilErr bool
	}{
		"valid cross chain transfer": {
			msg:        &TransferCrossChainMsg{Metadata: meta, CollectionID: 1, ItemID: 1, Destination: dest, Beneficiary: beneficiary},
			wantNilErr: true,
		},
		"cross chain transfer to here": {
			msg: &TransferCrossChainMsg{Metadata: meta, CollectionID: 1, Beneficiary: beneficiary},
			wantErrs: map[string]*errors.Error{
				"CollectionID": nil,
				"Destination":  ErrInvalidDestination,
				"Beneficiary":  nil,
			},
		},
		"cross chain transfer without collection": {
			msg: &TransferCrossChainMsg{Metadata: meta, Destination: dest},
			wantErrs: map[string]*errors.Error{
				"CollectionID": errors.ErrEmpty,
				"Destination":  nil,
				"Beneficiary":  errors.ErrEmpty,
			},
		},
		"mint without owner": {
			msg: &MintMsg{Metadata: meta, CollectionID: 1},
			wantErrs: map[string]*errors.Error{
				"CollectionID": nil,
				"Owner":        errors.ErrInput,
			},
		},
		"collection metadata too big": {
			msg: &RegisterCollectionMsg{Metadata: meta, CollectionMetadata: make([]byte, maxCollectionMetadata+1)},
			wantErrs: map[string]*errors.Error{
				"CollectionMetadata": errors.ErrInput,
				"Mode":               nil,
			},
		},
		"foreign collection here": {
			msg: &RegisterForeignMsg{Metadata: meta},
			wantErrs: map[string]*errors.Error{
				"Asset": errors.ErrEmpty,
			},
		},
		"reverse without ticket": {
			msg: &ReverseExpiredMsg{Metadata: meta},
			wantErrs: map[string]*errors.Error{
				"TicketID": errors.ErrEmpty,
			},
		},
		"configuration update without patch": {
			msg: &UpdateConfigurationMsg{Metadata: meta},
			wantErrs: map[string]*errors.Error{
				"Patch": errors.ErrEmpty,
			},
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantNilErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for field, want := range tc.wantErrs {
				fieldError(t, err, field, want)
			}
		})
	}
}

func TestMessageEncoding(t *testing.T) {
	msg := &TransferCrossChainMsg{
		Metadata:     &xnft.Metadata{Schema: 1},
		CollectionID: 4,
		ItemID:       9,
		Destination:  xcm.MustParseLocation("../parachain(2001)"),
		Beneficiary:  xcm.NewLocation(0, xcm.AccountKey20(weavetest.NewCondition().Address())),
		FeeLimit:     77,
	}
	raw, err := msg.Marshal()
	require.NoError(t, err)

	var got TransferCrossChainMsg
	require.NoError(t, got.Unmarshal(raw))
	assert.Equal(t, msg, &got)
}

func fieldError(t *testing.T, err error, field string, want *errors.Error) {
	t.Helper()
	errs := errors.FieldErrors(err, field)
	if want == nil {
		assert.Empty(t, errs, field)
		return
	}
	require.Len(t, errs, 1, field)
	assert.True(t, want.Is(errs[0]), "%s: %v", field, errs[0])
}

func TestConfigurationTicketTTL(t *testing.T) {
	cases := map[string]struct {
		ttl     int64
		wantErr *errors.Error
	}{
		"one block":    {ttl: 1},
		"longest":      {ttl: MaxTicketTTL},
		"zero":         {ttl: 0, wantErr: errors.ErrInput},
		"negative":     {ttl: -5, wantErr: errors.ErrInput},
		"too long":     {ttl: MaxTicketTTL + 1, wantErr: errors.ErrInput},
		"never expire": {ttl: math.MaxInt64, wantErr: errors.ErrInput},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			conf := testConfiguration(paraA)
			conf.TicketTTL = tc.ttl
			err := conf.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			fieldError(t, err, "TicketTTL", tc.wantErr)
		})
	}
}
