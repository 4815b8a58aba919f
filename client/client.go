// Package wl implements the client side of the core Wayland protocol.
//
// A State owns the connection to the compositor. Incoming messages are
// read by a background goroutine but are only dispatched to objects,
// and thus to listeners, from inside of Flush, Dispatch, and RoundTrip,
// on the goroutine that calls them.
package wl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"deedles.dev/wlwin/internal/cq"
	"deedles.dev/wlwin/internal/debug"
	"deedles.dev/wlwin/internal/objstore"
	"deedles.dev/wlwin/wire"
)

// State is a connection to a Wayland compositor along with the set of
// objects that exist on it.
type State struct {
	done    chan struct{}
	close   sync.Once
	conn    *wire.Conn
	store   *objstore.Store
	queue   *cq.Queue[func() error]
	pending []*wire.MessageBuilder
	display *Display

	// err is the terminal error of the connection, if any. It is only
	// accessed from the dispatching goroutine.
	err error
}

// Dial connects to the compositor indicated by the environment. See
// wire.Dial for details.
func Dial() (*State, error) {
	c, err := wire.Dial()
	if err != nil {
		return nil, err
	}

	return NewState(c), nil
}

// NewState creates a State that communicates over conn. The State
// takes ownership of conn.
func NewState(conn *wire.Conn) *State {
	state := State{
		done:  make(chan struct{}),
		conn:  conn,
		store: objstore.New(1),
		queue: cq.New[func() error](),
	}
	state.display = &Display{Proxy: NewProxy(&state, DisplayInterface)}
	state.Add(state.display)
	go state.listen()

	return &state
}

func (state *State) listen() {
	for {
		msg, err := wire.ReadMessage(state.conn)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			select {
			case <-state.done:
			case state.queue.Add() <- func() error { return state.fail(err) }:
			}
			return
		}

		select {
		case <-state.done:
			return
		case state.queue.Add() <- func() error { return state.dispatch(msg) }:
		}
	}
}

// Display returns the wl_display singleton.
func (state *State) Display() *Display {
	return state.display
}

// Err returns the error that caused the connection to stop working,
// if any.
func (state *State) Err() error {
	return state.err
}

// Close closes the connection. It does not send any pending requests.
func (state *State) Close() error {
	var err error
	state.close.Do(func() {
		close(state.done)
		state.queue.Stop()
		err = state.conn.Close()
		if state.err == nil {
			state.err = net.ErrClosed
		}
	})
	return err
}

// Add adds obj to the set of known objects, allocating an ID for it.
func (state *State) Add(obj wire.Object) {
	state.store.Add(obj)
}

func (state *State) Get(id uint32) wire.Object {
	return state.store.Get(id)
}

// Destroy forgets about obj. Its ID stays reserved, and events sent to
// it are ignored, until the compositor confirms the deletion with
// wl_display.delete_id.
func (state *State) Destroy(obj wire.Object) {
	state.store.Zombify(obj.ID())
}

// Objects returns the number of live objects.
func (state *State) Objects() int {
	return state.store.Len()
}

// Enqueue queues msg to be sent the next time that the State sends
// messages.
func (state *State) Enqueue(msg *wire.MessageBuilder) {
	state.pending = append(state.pending, msg)
}

func (state *State) send() error {
	pending := state.pending
	state.pending = nil

	for i, msg := range pending {
		if debug.Enabled() {
			debug.Printf(" -> %v", msg)
		}
		err := msg.Build(state.conn)
		if err != nil {
			state.pending = pending[i+1:]
			return state.fail(fmt.Errorf("send %v: %w", msg.Method, err))
		}
	}
	return nil
}

func (state *State) fail(err error) error {
	if state.err == nil {
		state.err = err
	}
	return err
}

func (state *State) dispatch(msg *wire.MessageBuffer) error {
	obj, err := state.store.Dispatch(msg)
	if debug.Enabled() && (obj != nil) {
		debug.Printf("%v", msg.Debug(obj))
	}
	return err
}

func (state *State) run(batch []func() error) error {
	var errs []error
	for _, ev := range batch {
		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, state.send())
	return errors.Join(errs...)
}

// Send sends all enqueued messages without dispatching anything.
func (state *State) Send() error {
	if state.err != nil {
		return state.err
	}
	return state.send()
}

// Flush sends all enqueued messages and dispatches all messages that
// have been received since the last time that the event queue was
// processed. It does not block waiting for new messages.
func (state *State) Flush() error {
	if state.err != nil {
		return state.err
	}

	err := state.send()
	if err != nil {
		return err
	}

	select {
	case batch := <-state.queue.Get():
		return state.run(batch)
	default:
		return nil
	}
}

// Dispatch sends all enqueued messages and then blocks until at least
// one message has been received, dispatching everything that has been
// received.
func (state *State) Dispatch(ctx context.Context) error {
	if state.err != nil {
		return state.err
	}

	err := state.send()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case batch := <-state.queue.Get():
		return state.run(batch)
	}
}

// RoundTrip sends all enqueued messages and then dispatches incoming
// messages until the compositor has processed all of them. Any
// requests made by listeners while doing so are sent before it
// returns.
//
// RoundTrip blocks until the compositor answers or ctx is done.
func (state *State) RoundTrip(ctx context.Context) error {
	if state.err != nil {
		return state.err
	}

	var done bool
	state.display.Sync().Then(func(uint32) { done = true })

	err := state.send()
	if err != nil {
		return err
	}

	for !done {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case batch := <-state.queue.Get():
			err := state.run(batch)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
