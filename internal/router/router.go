package router

import (
	"context"
	"strings"
)

// HandlerFunc handles one event. Returned errors are logged by the caller.
type HandlerFunc func(ctx context.Context, ev Event) error

type callbackRoute struct {
	prefix  string
	handler HandlerFunc
}

type messageRoute struct {
	match   func(Event) bool
	handler HandlerFunc
}

// Router maps events to handlers. Register everything before dispatching;
// registration is not safe for concurrent use.
type Router struct {
	commands  map[string]HandlerFunc
	callbacks []callbackRoute
	messages  []messageRoute
}

// New creates an empty Router.
func New() *Router {
	return &Router{commands: make(map[string]HandlerFunc)}
}

// OnCommand registers a handler for a command name.
func (r *Router) OnCommand(name string, h HandlerFunc) {
	r.commands[strings.ToLower(strings.TrimPrefix(name, "/"))] = h
}

// OnCallback registers a handler for callbacks whose data starts with prefix.
// The first matching registration wins.
func (r *Router) OnCallback(prefix string, h HandlerFunc) {
	r.callbacks = append(r.callbacks, callbackRoute{prefix: prefix, handler: h})
}

// OnMessage registers a handler for non-command messages matching pred.
// The first matching registration wins.
func (r *Router) OnMessage(pred func(Event) bool, h HandlerFunc) {
	r.messages = append(r.messages, messageRoute{match: pred, handler: h})
}

// Handler returns the handler for ev, or nil when none is registered.
func (r *Router) Handler(ev Event) HandlerFunc {
	switch ev.Type {
	case EventCommand:
		return r.commands[ev.Command]
	case EventCallback:
		for _, c := range r.callbacks {
			if strings.HasPrefix(ev.CallbackData, c.prefix) {
				return c.handler
			}
		}
	case EventMessage:
		for _, m := range r.messages {
			if m.match == nil || m.match(ev) {
				return m.handler
			}
		}
	}
	return nil
}

// Dispatch runs the handler for ev. Unrouted events are dropped.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	h := r.Handler(ev)
	if h == nil {
		droppedCount.WithLabelValues(ev.Type.String()).Inc()
		return nil
	}
	return h(ctx, ev)
}
