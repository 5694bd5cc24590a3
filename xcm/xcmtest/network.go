/*
Package xcmtest provides an in memory transport connecting any number of
chains. It is meant to be used in tests only.
*/
package xcmtest

import (
	"context"
	"sync"

	"github.com/iov-one/xnft/errors"
	"github.com/iov-one/xnft/xcm"
)

// Network queues envelopes sent between the chains that joined it. Nothing
// is delivered automatically, call Drain to collect the deliveries of a
// chain and execute them.
type Network struct {
	mu       sync.Mutex
	capacity int
	chains   map[string]*chain
}

type chain struct {
	universal xcm.Junctions
	inbox     []xcm.Delivery
	refuse    error
}

// NewNetwork returns an empty network. Each chain inbox can hold up to
// capacity deliveries, zero means unlimited.
func NewNetwork(capacity int) *Network {
	return &Network{
		capacity: capacity,
		chains:   make(map[string]*chain),
	}
}

// Join registers a chain with given universal location and returns the
// sender it should use.
func (n *Network) Join(universal xcm.Junctions) xcm.Sender {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := universal.String()
	if _, ok := n.chains[key]; !ok {
		n.chains[key] = &chain{universal: universal.Clone()}
	}
	return &sender{net: n, from: universal.Clone()}
}

// Refuse makes every send towards given chain fail with err. Pass nil to
// accept envelopes again.
func (n *Network) Refuse(universal xcm.Junctions, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.chains[universal.String()]; ok {
		c.refuse = err
	}
}

// Drain returns and removes all deliveries waiting for given chain.
func (n *Network) Drain(universal xcm.Junctions) []xcm.Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.chains[universal.String()]
	if !ok {
		return nil
	}
	res := c.inbox
	c.inbox = nil
	return res
}

// Pending returns the number of deliveries waiting for given chain.
func (n *Network) Pending(universal xcm.Junctions) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.chains[universal.String()]; ok {
		return len(c.inbox)
	}
	return 0
}

type sender struct {
	net  *Network
	from xcm.Junctions
}

func (s *sender) Send(ctx context.Context, env xcm.Envelope) error {
	if err := env.Validate(); err != nil {
		return errors.Wrap(err, "envelope")
	}
	abs, err := env.Destination.Absolute(s.from)
	if err != nil {
		return errors.Wrap(xcm.ErrUnroutable, err.Error())
	}

	s.net.mu.Lock()
	defer s.net.mu.Unlock()

	c, ok := s.net.chains[abs.String()]
	if !ok {
		return errors.Wrapf(xcm.ErrUnroutable, "no chain at %s", abs)
	}
	if c.refuse != nil {
		return c.refuse
	}
	if s.net.capacity > 0 && len(c.inbox) >= s.net.capacity {
		return errors.Wrapf(xcm.ErrBackpressure, "inbox of %s is full", abs)
	}
	payload := make([]byte, len(env.Payload))
	copy(payload, env.Payload)
	c.inbox = append(c.inbox, xcm.Delivery{
		Origin:  xcm.Relative(s.from, abs),
		Nonce:   env.Nonce,
		Payload: payload,
	})
	return nil
}
