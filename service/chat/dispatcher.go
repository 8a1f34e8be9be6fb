package chat

import (
	"context"

	"github.com/Kesh3805/job-portal/tools/errs"
)

// HandlerFunc processes one inbound event for one connection. Errors
// returned here are reported to the originating connection only, as a
// scoped message-error frame.
type HandlerFunc func(ctx context.Context, conn *WsConn, data map[string]any) error

type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) {
	d.handlers[event] = h
}

func (d *Dispatcher) Dispatch(ctx context.Context, event string, conn *WsConn, data map[string]any) error {
	h, ok := d.handlers[event]
	if !ok {
		return errs.ErrValidation("unknown event").WithDetail(event)
	}
	return h(ctx, conn, data)
}
