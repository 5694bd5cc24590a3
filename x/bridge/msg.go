package bridge

import (
	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/gconf"
	"github.com/iov-one/xnft/xcm"
)

const (
	pathRegisterCollectionMsg  = "bridge/register_collection"
	pathRegisterForeignMsg     = "bridge/register_foreign"
	pathMintMsg                = "bridge/mint"
	pathTransferMsg            = "bridge/transfer"
	pathBurnMsg                = "bridge/burn"
	pathDestroyCollectionMsg   = "bridge/destroy_collection"
	pathTransferCrossChainMsg  = "bridge/transfer_cross_chain"
	pathReverseExpiredMsg      = "bridge/reverse_expired"
	pathUpdateConfigurationMsg = "bridge/update_configuration"

	maxCollectionMetadata = 4096
)

var (
	_ xnft.Msg       = (*RegisterCollectionMsg)(nil)
	_ xnft.Msg       = (*RegisterForeignMsg)(nil)
	_ xnft.Msg       = (*MintMsg)(nil)
	_ xnft.Msg       = (*TransferMsg)(nil)
	_ xnft.Msg       = (*BurnMsg)(nil)
	_ xnft.Msg       = (*DestroyCollectionMsg)(nil)
	_ xnft.Msg       = (*TransferCrossChainMsg)(nil)
	_ xnft.Msg       = (*ReverseExpiredMsg)(nil)
	_ gconf.PatchMsg = (*UpdateConfigurationMsg)(nil)
)

// RegisterCollectionMsg creates a native collection owned by the signer.
type RegisterCollectionMsg struct {
	Metadata           *xnft.Metadata
	CollectionMetadata []byte
	// Mode defaults to the configured one when not set.
	Mode Mode
}

func (RegisterCollectionMsg) Path() string {
	return pathRegisterCollectionMsg
}

func (m *RegisterCollectionMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if len(m.CollectionMetadata) > maxCollectionMetadata {
		errs = errors.AppendField(errs, "CollectionMetadata",
			errors.Wrapf(errors.ErrInput, "at most %d bytes", maxCollectionMetadata))
	}
	if m.Mode != 0 {
		errs = errors.AppendField(errs, "Mode", m.Mode.Validate())
	}
	return errs
}

func (m *RegisterCollectionMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Bytes(2, m.CollectionMetadata)
	b.Uvarint(3, uint64(m.Mode))
	return b.Result()
}

func (m *RegisterCollectionMsg) Unmarshal(raw []byte) error {
	*m = RegisterCollectionMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.CollectionMetadata = d.Bytes()
		case 3:
			m.Mode = Mode(enum(d.Uvarint()))
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// RegisterForeignMsg registers the derivative of a foreign collection
// before any of its items arrives. Only the configuration owner can send
// it.
type RegisterForeignMsg struct {
	Metadata *xnft.Metadata
	// Asset is the location of the foreign collection, relative to this
	// chain.
	Asset xcm.Location
	Mode  Mode
}

func (RegisterForeignMsg) Path() string {
	return pathRegisterForeignMsg
}

func (m *RegisterForeignMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if m.Asset.IsHere() {
		errs = errors.AppendField(errs, "Asset", errors.ErrEmpty)
	} else {
		errs = errors.AppendField(errs, "Asset", m.Asset.Validate())
	}
	if m.Mode != 0 {
		errs = errors.AppendField(errs, "Mode", m.Mode.Validate())
	}
	return errs
}

func (m *RegisterForeignMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Message(2, m.Asset)
	b.Uvarint(3, uint64(m.Mode))
	return b.Result()
}

func (m *RegisterForeignMsg) Unmarshal(raw []byte) error {
	*m = RegisterForeignMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			d.Message(&m.Asset)
		case 3:
			m.Mode = Mode(enum(d.Uvarint()))
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// MintMsg creates an item in a native collection. It must be signed by the
// collection owner.
type MintMsg struct {
	Metadata     *xnft.Metadata
	CollectionID uint64
	ItemID       uint64
	Owner        xnft.Address
}

func (MintMsg) Path() string {
	return pathMintMsg
}

func (m *MintMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if m.CollectionID == 0 {
		errs = errors.AppendField(errs, "CollectionID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Owner", m.Owner.Validate())
	return errs
}

func (m *MintMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Uvarint(2, m.CollectionID)
	b.Uvarint(3, m.ItemID)
	b.Bytes(4, m.Owner)
	return b.Result()
}

func (m *MintMsg) Unmarshal(raw []byte) error {
	*m = MintMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.CollectionID = d.Uvarint()
		case 3:
			m.ItemID = d.Uvarint()
		case 4:
			m.Owner = d.Bytes()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// TransferMsg changes the owner of a resident item.
type TransferMsg struct {
	Metadata     *xnft.Metadata
	CollectionID uint64
	ItemID       uint64
	Recipient    xnft.Address
}

func (TransferMsg) Path() string {
	return pathTransferMsg
}

func (m *TransferMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if m.CollectionID == 0 {
		errs = errors.AppendField(errs, "CollectionID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Recipient", m.Recipient.Validate())
	return errs
}

func (m *TransferMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Uvarint(2, m.CollectionID)
	b.Uvarint(3, m.ItemID)
	b.Bytes(4, m.Recipient)
	return b.Result()
}

func (m *TransferMsg) Unmarshal(raw []byte) error {
	*m = TransferMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.CollectionID = d.Uvarint()
		case 3:
			m.ItemID = d.Uvarint()
		case 4:
			m.Recipient = d.Bytes()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// BurnMsg destroys a resident native item owned by the signer.
type BurnMsg struct {
	Metadata     *xnft.Metadata
	CollectionID uint64
	ItemID       uint64
}

func (BurnMsg) Path() string {
	return pathBurnMsg
}

func (m *BurnMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.CollectionID == 0 {
		return errors.Field("CollectionID", errors.ErrEmpty, "required")
	}
	return nil
}

func (m *BurnMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Uvarint(2, m.CollectionID)
	b.Uvarint(3, m.ItemID)
	return b.Result()
}

func (m *BurnMsg) Unmarshal(raw []byte) error {
	*m = BurnMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.CollectionID = d.Uvarint()
		case 3:
			m.ItemID = d.Uvarint()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// DestroyCollectionMsg removes an empty native collection.
type DestroyCollectionMsg struct {
	Metadata     *xnft.Metadata
	CollectionID uint64
}

func (DestroyCollectionMsg) Path() string {
	return pathDestroyCollectionMsg
}

func (m *DestroyCollectionMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.CollectionID == 0 {
		return errors.Field("CollectionID", errors.ErrEmpty, "required")
	}
	return nil
}

func (m *DestroyCollectionMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Uvarint(2, m.CollectionID)
	return b.Result()
}

func (m *DestroyCollectionMsg) Unmarshal(raw []byte) error {
	*m = DestroyCollectionMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.CollectionID = d.Uvarint()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// TransferCrossChainMsg sends an item owned by the signer to another chain.
type TransferCrossChainMsg struct {
	Metadata     *xnft.Metadata
	CollectionID uint64
	ItemID       uint64
	// Destination chain, relative to this chain.
	Destination xcm.Location
	// Beneficiary account, relative to the destination chain.
	Beneficiary xcm.Location
	FeeLimit    uint64
}

func (TransferCrossChainMsg) Path() string {
	return pathTransferCrossChainMsg
}

func (m *TransferCrossChainMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	var errs error
	if m.CollectionID == 0 {
		errs = errors.AppendField(errs, "CollectionID", errors.ErrEmpty)
	}
	if m.Destination.IsHere() {
		errs = errors.AppendField(errs, "Destination", ErrInvalidDestination)
	} else {
		errs = errors.AppendField(errs, "Destination", m.Destination.Validate())
	}
	if m.Beneficiary.IsHere() {
		errs = errors.AppendField(errs, "Beneficiary", errors.ErrEmpty)
	} else {
		errs = errors.AppendField(errs, "Beneficiary", m.Beneficiary.Validate())
	}
	return errs
}

func (m *TransferCrossChainMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Uvarint(2, m.CollectionID)
	b.Uvarint(3, m.ItemID)
	b.Message(4, m.Destination)
	b.Message(5, m.Beneficiary)
	b.Uvarint(6, m.FeeLimit)
	return b.Result()
}

func (m *TransferCrossChainMsg) Unmarshal(raw []byte) error {
	*m = TransferCrossChainMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.CollectionID = d.Uvarint()
		case 3:
			m.ItemID = d.Uvarint()
		case 4:
			d.Message(&m.Destination)
		case 5:
			d.Message(&m.Beneficiary)
		case 6:
			m.FeeLimit = d.Uvarint()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// ReverseExpiredMsg gives an item back to its owner after the transfer
// ticket expired without an acknowledgment. Anyone can send it.
type ReverseExpiredMsg struct {
	Metadata *xnft.Metadata
	TicketID uint64
}

func (ReverseExpiredMsg) Path() string {
	return pathReverseExpiredMsg
}

func (m *ReverseExpiredMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.TicketID == 0 {
		return errors.Field("TicketID", errors.ErrEmpty, "required")
	}
	return nil
}

func (m *ReverseExpiredMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Uvarint(2, m.TicketID)
	return b.Result()
}

func (m *ReverseExpiredMsg) Unmarshal(raw []byte) error {
	*m = ReverseExpiredMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.TicketID = d.Uvarint()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// UpdateConfigurationMsg patches the bridge configuration. Zero value
// fields of the patch are ignored.
type UpdateConfigurationMsg struct {
	Metadata *xnft.Metadata
	Patch    *Configuration
}

func (UpdateConfigurationMsg) Path() string {
	return pathUpdateConfigurationMsg
}

func (m *UpdateConfigurationMsg) GetPatch() gconf.OwnedConfig {
	return m.Patch
}

func (m *UpdateConfigurationMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.Patch == nil {
		return errors.Field("Patch", errors.ErrEmpty, "required")
	}
	return nil
}

func (m *UpdateConfigurationMsg) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, m.Metadata)
	b.Message(2, m.Patch)
	return b.Result()
}

func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error {
	*m = UpdateConfigurationMsg{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			m.Metadata = &xnft.Metadata{}
			d.Message(m.Metadata)
		case 2:
			m.Patch = &Configuration{}
			d.Message(m.Patch)
		default:
			d.Skip()
		}
		return d.Err()
	})
}
