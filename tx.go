package xnft

import (
	"github.com/iov-one/xnft/errors"
)

// Msg is a request for a state transition. Authentication data lives in the
// Tx carrying it.
type Msg interface {
	Persistent

	// Path routes the message to its handler, for example
	// "bridge/transfer_cross_chain". It must match [0-9A-Za-z_\-/]+.
	Path() string

	// Validate checks the message content without access to the store.
	Validate() error
}

type Marshaller interface {
	Marshal() ([]byte, error)
}

// Persistent is implemented by pointers to types that can be stored.
type Persistent interface {
	Marshaller
	Unmarshal([]byte) error
}

// Tx is a signed envelope holding one message.
type Tx interface {
	GetMsg() (Msg, error)
}

// GetPath returns the path of the message in tx, for logging.
func GetPath(tx Tx) string {
	if msg, err := tx.GetMsg(); err == nil && msg != nil {
		return msg.Path()
	}
	return "(missing)"
}

// LoadMsg copies the message of tx into destination and validates it.
// Destination must be a pointer to the concrete message type.
func LoadMsg(tx Tx, destination interface{}) error {
	msg, err := tx.GetMsg()
	switch {
	case err != nil:
		return errors.Wrap(err, "transaction message")
	case msg == nil:
		return errors.Wrap(errors.ErrMsg, "transaction without message")
	}
	if err := setMsg(destination, msg); err != nil {
		return err
	}
	return errors.Wrap(msg.Validate(), "invalid message")
}
