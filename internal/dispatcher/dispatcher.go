// Package dispatcher implements the Message Dispatcher (spec §4.3): it
// owns no protocol state of its own, only the inbound queue, and spawns
// one goroutine per inbound envelope so handlers never block each other.
// Grounded on the teacher's Node.handleMessages/routeMessage
// (internal/node/node.go), generalized from a single-goroutine receive
// loop into goroutine-per-envelope.
package dispatcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/arjakob/caspaxos/internal/envelope"
	"github.com/arjakob/caspaxos/internal/transport"
)

// Handler is implemented by whatever owns the replica's protocol state
// (internal/caspaxos.Replica). Handle must be safe to call concurrently;
// the dispatcher never serializes calls to it.
type Handler interface {
	Handle(env envelope.Envelope)
}

// Dispatcher pulls envelopes off a Transport's inbound queue and fans
// each one out to its own goroutine.
type Dispatcher struct {
	transport transport.Transport
	handler   Handler
	logger    *zap.Logger

	wg sync.WaitGroup
}

// New builds a Dispatcher over t, delivering every inbound envelope to h.
func New(t transport.Transport, h Handler, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{transport: t, handler: h, logger: logger}
}

// Run reads t.Inbound() until ctx is cancelled or the channel closes,
// spawning one goroutine per envelope. It returns once no more envelopes
// will arrive; in-flight handler goroutines may still be running — call
// Drain to wait for them.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-d.transport.Inbound():
			if !ok {
				return
			}
			d.dispatch(env)
		}
	}
}

func (d *Dispatcher) dispatch(env envelope.Envelope) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("handler panic",
					zap.Any("panic", r),
					zap.String("envelope", env.String()),
				)
				panic(r)
			}
		}()
		d.handler.Handle(env)
	}()
}

// Drain blocks until every spawned handler goroutine has returned, or ctx
// is cancelled first. Used by tests to await settlement deterministically
// instead of sleeping — grounded on the teacher's Node.Stop/wg.Wait
// shutdown pattern.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
