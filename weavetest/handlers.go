package weavetest

import "github.com/iov-one/xnft"

// Handler is a mock implementation of the xnft.Handler interface.
//
// Each method call is counted. If set, the error attribute is returned,
// otherwise a copy of the result attribute.
type Handler struct {
	checkCall   int
	CheckResult xnft.CheckResult
	CheckErr    error

	deliverCall   int
	DeliverResult xnft.DeliverResult
	DeliverErr    error

	// Write if set is stored in the database on every Deliver call,
	// before returning.
	Write *KV
}

// KV is a single key value pair.
type KV struct {
	Key, Value []byte
}

var _ xnft.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	h.checkCall++
	if h.CheckErr != nil {
		return nil, h.CheckErr
	}
	res := h.CheckResult
	return &res, nil
}

func (h *Handler) Deliver(ctx xnft.Context, db xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	h.deliverCall++
	if h.Write != nil {
		if err := db.Set(h.Write.Key, h.Write.Value); err != nil {
			return nil, err
		}
	}
	if h.DeliverErr != nil {
		return nil, h.DeliverErr
	}
	res := h.DeliverResult
	return &res, nil
}

func (h *Handler) CheckCallCount() int {
	return h.checkCall
}

func (h *Handler) DeliverCallCount() int {
	return h.deliverCall
}

func (h *Handler) CallCount() int {
	return h.checkCall + h.deliverCall
}

// PanicHandler panics with the given value on every call.
type PanicHandler struct {
	Value interface{}
}

var _ xnft.Handler = PanicHandler{}

func (h PanicHandler) Check(xnft.Context, xnft.KVStore, xnft.Tx) (*xnft.CheckResult, error) {
	panic(h.Value)
}

func (h PanicHandler) Deliver(xnft.Context, xnft.KVStore, xnft.Tx) (*xnft.DeliverResult, error) {
	panic(h.Value)
}
