package wl

import (
	"fmt"

	"deedles.dev/wlwin/wire"
)

const DisplayInterface = "wl_display"

const (
	displaySync        = 0
	displayGetRegistry = 1

	displayError    = 0
	displayDeleteID = 1
)

// Display is the wl_display singleton. It is created along with the
// State and always has the ID 1.
type Display struct {
	Proxy
	Listener DisplayListener

	registry *Registry
}

// DisplayListener is notified of wl_display events after the Display
// has handled them itself.
type DisplayListener interface {
	Error(objectID, code uint32, message string)
	DeleteID(id uint32)
}

func (display *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case displayError:
		objectID := msg.ReadUint()
		code := msg.ReadUint()
		message := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		return display.handleError(objectID, code, message)

	case displayDeleteID:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		display.deleteID(id)
		return nil

	default:
		return display.Proxy.Dispatch(msg)
	}
}

func (display *Display) handleError(objectID, code uint32, message string) error {
	err := &ProtocolError{ObjectID: objectID, Code: code, Message: message}
	if obj, ok := display.state.Get(objectID).(interface{ Interface() string }); ok {
		err.Interface = obj.Interface()
	}

	if display.Listener != nil {
		display.Listener.Error(objectID, code, message)
	}
	return display.state.fail(err)
}

func (display *Display) deleteID(id uint32) {
	display.state.store.Delete(id)
	if display.Listener != nil {
		display.Listener.DeleteID(id)
	}
}

// GetRegistry returns the registry for the display, creating it if
// necessary.
func (display *Display) GetRegistry() *Registry {
	if display.registry != nil {
		return display.registry
	}

	registry := Registry{
		Proxy:   NewProxy(display.state, RegistryInterface),
		globals: make(map[uint32]Global),
	}
	display.state.Add(&registry)

	msg := display.NewRequest(display, displayGetRegistry)
	msg.WriteUint(registry.ID())
	display.state.Enqueue(msg)

	display.registry = &registry
	return &registry
}

// Sync asks the compositor to emit the done event on the returned
// Callback once every previous request has been processed.
func (display *Display) Sync() *Callback {
	callback := Callback{Proxy: NewProxy(display.state, CallbackInterface)}
	display.state.Add(&callback)

	msg := display.NewRequest(display, displaySync)
	msg.WriteUint(callback.ID())
	display.state.Enqueue(msg)

	return &callback
}

// ProtocolError is a fatal error reported by the compositor. The
// connection is unusable after one is received.
type ProtocolError struct {
	ObjectID  uint32
	Interface string
	Code      uint32
	Message   string
}

func (err *ProtocolError) Error() string {
	obj := fmt.Sprint(err.ObjectID)
	if err.Interface != "" {
		obj = fmt.Sprintf("%v@%v", err.Interface, err.ObjectID)
	}
	return fmt.Sprintf("protocol error on %v: code %v: %v", obj, err.Code, err.Message)
}
