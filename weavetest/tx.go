package weavetest

import "github.com/iov-one/xnft"

// Tx carries Msg. A non nil Err is returned instead of the message.
type Tx struct {
	Msg xnft.Msg
	Err error
}

var _ xnft.Tx = (*Tx)(nil)

func (tx *Tx) GetMsg() (xnft.Msg, error) {
	if tx.Err != nil {
		return nil, tx.Err
	}
	return tx.Msg, nil
}

// Msg routes to RoutePath and serializes to Serialized. A non nil Err is
// returned by every method that can fail, Validate included.
type Msg struct {
	RoutePath  string
	Serialized []byte
	Err        error
}

var _ xnft.Msg = (*Msg)(nil)

func (m *Msg) Path() string { return m.RoutePath }
func (m *Msg) Validate() error { return m.Err }
func (m *Msg) Marshal() ([]byte, error) { return m.Serialized, m.Err }

func (m *Msg) Unmarshal(raw []byte) error {
	m.Serialized = raw
	return m.Err
}
