package wl

import (
	"fmt"

	"deedles.dev/wlwin/protocol"
	"deedles.dev/wlwin/wire"
)

// Proxy is the client-side half of a protocol object. It is embedded
// by the concrete object types, both here and in other packages that
// implement protocol extensions.
type Proxy struct {
	id    uint32
	state *State
	iface string
}

// NewProxy returns a Proxy for an object of the named interface. The
// object that embeds it must still be added to state.
func NewProxy(state *State, iface string) Proxy {
	return Proxy{state: state, iface: iface}
}

func (p *Proxy) ID() uint32 {
	return p.id
}

func (p *Proxy) SetID(id uint32) {
	p.id = id
}

func (p *Proxy) Delete() {}

// State returns the connection that the object belongs to.
func (p *Proxy) State() *State {
	return p.state
}

// Interface returns the name of the object's interface.
func (p *Proxy) Interface() string {
	return p.iface
}

// Dispatch is the default event handler. It rejects every opcode, so
// objects whose interfaces have events must provide their own.
func (p *Proxy) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: p.iface, Type: "event", Op: msg.Op()}
}

func (p *Proxy) MethodName(op uint16) string {
	return protocol.EventName(p.iface, op)
}

func (p *Proxy) String() string {
	return fmt.Sprintf("%v@%v", p.iface, p.id)
}

// NewRequest starts a request with the given opcode sent by sender,
// which should be the object that embeds p.
func (p *Proxy) NewRequest(sender wire.Object, op uint16) *wire.MessageBuilder {
	msg := wire.NewMessage(sender, op)
	msg.Method = protocol.RequestName(p.iface, op)
	return msg
}
