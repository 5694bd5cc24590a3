package gconf

import (
	"reflect"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/x"
)

// OwnedConfig is a configuration with an owner. A configuration update
// message must be signed by the owner in order to be authorized to apply
// the change.
type OwnedConfig interface {
	Configuration
	GetOwner() xnft.Address
}

// PatchMsg is implemented by configuration update messages. The returned
// configuration holds only the fields that should change, zero value fields
// are left untouched.
type PatchMsg interface {
	xnft.Msg
	GetPatch() OwnedConfig
}

// UpdateConfigurationHandler applies a PatchMsg to the stored configuration
// of a single package.
type UpdateConfigurationHandler struct {
	pkg string
	// We require this type to load the data.
	config OwnedConfig
	auth   x.Authenticator
}

var _ xnft.Handler = UpdateConfigurationHandler{}

// NewUpdateConfigurationHandler returns a message handler that process
// configuration patch message.
//
// To pass authentication step, each message must be signed by the current
// configuration owner. The configuration must have been created in genesis.
func NewUpdateConfigurationHandler(pkg string, config OwnedConfig, auth x.Authenticator) UpdateConfigurationHandler {
	return UpdateConfigurationHandler{
		pkg:    pkg,
		config: config,
		auth:   auth,
	}
}

func (h UpdateConfigurationHandler) Check(ctx xnft.Context, store xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	if err := h.applyTx(ctx, store, tx); err != nil {
		return nil, err
	}
	return &xnft.CheckResult{}, nil
}

func (h UpdateConfigurationHandler) Deliver(ctx xnft.Context, store xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	if err := h.applyTx(ctx, store, tx); err != nil {
		return nil, err
	}
	return &xnft.DeliverResult{}, nil
}

func (h UpdateConfigurationHandler) applyTx(ctx xnft.Context, store xnft.KVStore, tx xnft.Tx) error {
	// Never modify the prototype, handlers are shared between calls.
	config := reflect.New(reflect.TypeOf(h.config).Elem()).Interface().(OwnedConfig)
	if err := Load(store, h.pkg, config); err != nil {
		return errors.Wrap(err, "load current configuration")
	}
	owner := config.GetOwner()
	if owner == nil {
		return errors.Wrap(errors.ErrUnauthorized, "configuration has no owner")
	}
	if !h.auth.HasAddress(ctx, owner) {
		return errors.Wrap(errors.ErrUnauthorized, "owner did not sign transaction")
	}

	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "cannot get message")
	}
	pm, ok := msg.(PatchMsg)
	if !ok {
		return errors.Wrapf(errors.ErrMsg, "%T is not a configuration patch", msg)
	}
	if err := pm.Validate(); err != nil {
		return errors.Wrap(err, "validate")
	}
	if err := patch(config, pm.GetPatch()); err != nil {
		return errors.Wrap(err, "cannot patch config with message payload")
	}
	if err := Save(store, h.pkg, config); err != nil {
		return errors.Wrap(err, "cannot save updated config")
	}
	return nil
}

// patch copies all non zero fields of payload into config.
func patch(config OwnedConfig, payload OwnedConfig) error {
	if payload == nil || reflect.ValueOf(payload).IsNil() {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	if reflect.TypeOf(payload) != reflect.TypeOf(config) {
		return errors.Wrap(errors.ErrMsg, "config in message doesn't match store")
	}

	cval := reflect.ValueOf(config).Elem()
	pval := reflect.ValueOf(payload).Elem()
	for i := 0; i < cval.NumField(); i++ {
		got := pval.Field(i)
		// Zero values do not update the original configuration.
		if isZero(got) {
			continue
		}
		cval.Field(i).Set(got)
	}
	return nil
}

// isZero returns true if given value represents a zero value of a given type.
func isZero(val reflect.Value) bool {
	zero := reflect.Zero(val.Type()).Interface()
	return reflect.DeepEqual(val.Interface(), zero)
}
