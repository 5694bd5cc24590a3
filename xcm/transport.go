package xcm

import (
	"context"

	"github.com/iov-one/xnft/codec"
	"github.com/iov-one/xnft/errors"
)

var (
	// ErrUnroutable is returned by a Sender when there is no known route to
	// the destination.
	ErrUnroutable = errors.Register(1200, "unroutable destination")

	// ErrBackpressure is returned by a Sender when the queue towards the
	// destination is full.
	ErrBackpressure = errors.Register(1201, "transport backpressure")
)

// Envelope is an encoded program addressed to another chain.
type Envelope struct {
	// Destination is relative to the sending chain.
	Destination Location
	// Nonce of the transfer the program belongs to. Informational only,
	// the receiver must use the nonce carried by the program.
	Nonce   uint64
	Payload []byte
}

// Validate returns an error if the envelope cannot be sent.
func (e Envelope) Validate() error {
	if err := e.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if e.Destination.IsHere() {
		return errors.Wrap(errors.ErrInput, "destination is here")
	}
	if len(e.Payload) == 0 {
		return errors.Wrap(errors.ErrEmpty, "payload")
	}
	return nil
}

func (e Envelope) Marshal() ([]byte, error) {
	var b codec.Buffer
	b.Message(1, e.Destination)
	b.Uvarint(2, e.Nonce)
	b.Bytes(3, e.Payload)
	return b.Result()
}

func (e *Envelope) Unmarshal(raw []byte) error {
	*e = Envelope{}
	return codec.Decode(raw, func(d *codec.Decoder, field int) error {
		switch field {
		case 1:
			d.Message(&e.Destination)
		case 2:
			e.Nonce = d.Uvarint()
		case 3:
			e.Payload = d.Bytes()
		default:
			d.Skip()
		}
		return d.Err()
	})
}

// Sender hands envelopes to the transport that carries them to other
// chains. A nil error means the transport accepted the envelope, not that it
// was delivered or executed.
type Sender interface {
	Send(ctx context.Context, env Envelope) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, env Envelope) error

func (fn SenderFunc) Send(ctx context.Context, env Envelope) error {
	return fn(ctx, env)
}

// Delivery is an envelope as received by the destination chain, with the
// origin rewritten to be relative to the receiver.
type Delivery struct {
	Origin  Location
	Nonce   uint64
	Payload []byte
}
