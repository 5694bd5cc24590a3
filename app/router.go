package app

import (
	"fmt"
	"regexp"

	"github.com/iov-one/xnft"
	"github.com/iov-one/xnft/errors"
)

// isPath is the RegExp to ensure the routes make sense
var isPath = regexp.MustCompile(`^[a-zA-Z0-9_/]+$`).MatchString

// Router allows us to register many handlers with different paths and then
// direct each message to the proper handler.
//
// Minimal interface modeled after net/http.ServeMux
type Router struct {
	routes map[string]xnft.Handler
}

var _ xnft.Registry = (*Router)(nil)
var _ xnft.Handler = (*Router)(nil)

// NewRouter returns a new empty router instance.
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]xnft.Handler),
	}
}

// Handle adds a new Handler for the given message path. It panics if a
// handler for given path was already registered or the path is invalid.
func (r *Router) Handle(msg xnft.Msg, h xnft.Handler) {
	path := msg.Path()
	if !isPath(path) {
		panic(fmt.Sprintf("invalid path: %q", path))
	}
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("re-registering route: %s", path))
	}
	r.routes[path] = h
}

// handler returns the registered Handler for this path. If no path is
// found, returns a noSuchPath Handler.
func (r *Router) handler(m xnft.Msg) xnft.Handler {
	path := m.Path()
	if h, ok := r.routes[path]; ok {
		return h
	}
	return noSuchPathHandler{path: path}
}

// Check dispatches to the proper handler based on path
func (r *Router) Check(ctx xnft.Context, store xnft.KVStore, tx xnft.Tx) (*xnft.CheckResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	return r.handler(msg).Check(ctx, store, tx)
}

// Deliver dispatches to the proper handler based on path
func (r *Router) Deliver(ctx xnft.Context, store xnft.KVStore, tx xnft.Tx) (*xnft.DeliverResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	return r.handler(msg).Deliver(ctx, store, tx)
}

// noSuchPathHandler return errors.ErrNotFound for any request
type noSuchPathHandler struct {
	path string
}

func (h noSuchPathHandler) Check(xnft.Context, xnft.KVStore, xnft.Tx) (*xnft.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", h.path)
}

func (h noSuchPathHandler) Deliver(xnft.Context, xnft.KVStore, xnft.Tx) (*xnft.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", h.path)
}
