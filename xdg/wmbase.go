// Package xdg implements the client side of the xdg-shell protocol
// extension, which gives surfaces desktop window semantics.
package xdg

import (
	wl "deedles.dev/wlwin/client"
	"deedles.dev/wlwin/wire"
)

const WmBaseInterface = "xdg_wm_base"

const (
	wmBaseDestroy       = 0
	wmBaseGetXdgSurface = 2
	wmBasePong          = 3

	wmBasePing = 0
)

type WmBase struct {
	wl.Proxy
	Listener WmBaseListener
}

type WmBaseListener interface {
	// Ping is called when the compositor checks whether the client is
	// still alive. The listener should respond by calling Pong with
	// the same serial.
	Ping(serial uint32)
}

// BindWmBase binds the xdg_wm_base global with the given name.
func BindWmBase(state *wl.State, registry *wl.Registry, name, version uint32) *WmBase {
	wm := WmBase{Proxy: wl.NewProxy(state, WmBaseInterface)}
	registry.Bind(name, &wm, WmBaseInterface, version)
	return &wm
}

func (wm *WmBase) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case wmBasePing:
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if wm.Listener != nil {
			wm.Listener.Ping(serial)
		}
		return nil

	default:
		return wm.Proxy.Dispatch(msg)
	}
}

func (wm *WmBase) Pong(serial uint32) {
	msg := wm.NewRequest(wm, wmBasePong)
	msg.WriteUint(serial)
	wm.State().Enqueue(msg)
}

// GetXdgSurface creates an xdg_surface for s. s must not already have
// a role.
func (wm *WmBase) GetXdgSurface(s *wl.Surface) *Surface {
	xs := Surface{Proxy: wl.NewProxy(wm.State(), SurfaceInterface)}
	wm.State().Add(&xs)

	msg := wm.NewRequest(wm, wmBaseGetXdgSurface)
	msg.WriteUint(xs.ID())
	msg.WriteObject(s)
	wm.State().Enqueue(msg)

	return &xs
}

// Destroy destroys the xdg_wm_base. Every surface created from it must
// have been destroyed first.
func (wm *WmBase) Destroy() {
	wm.State().Enqueue(wm.NewRequest(wm, wmBaseDestroy))
	wm.State().Destroy(wm)
}
