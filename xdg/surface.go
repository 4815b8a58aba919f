package xdg

import (
	wl "deedles.dev/wlwin/client"
	"deedles.dev/wlwin/wire"
)

const SurfaceInterface = "xdg_surface"

const (
	surfaceDestroy           = 0
	surfaceGetToplevel       = 1
	surfaceSetWindowGeometry = 3
	surfaceAckConfigure      = 4

	surfaceConfigure = 0
)

type Surface struct {
	wl.Proxy
	Listener SurfaceListener
}

type SurfaceListener interface {
	// Configure marks the end of a configure sequence. The listener
	// must call AckConfigure with serial before the next commit.
	Configure(serial uint32)
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case surfaceConfigure:
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if s.Listener != nil {
			s.Listener.Configure(serial)
		}
		return nil

	default:
		return s.Proxy.Dispatch(msg)
	}
}

// GetToplevel assigns the toplevel role to the surface.
func (s *Surface) GetToplevel() *Toplevel {
	t := Toplevel{Proxy: wl.NewProxy(s.State(), ToplevelInterface)}
	s.State().Add(&t)

	msg := s.NewRequest(s, surfaceGetToplevel)
	msg.WriteUint(t.ID())
	s.State().Enqueue(msg)

	return &t
}

func (s *Surface) AckConfigure(serial uint32) {
	msg := s.NewRequest(s, surfaceAckConfigure)
	msg.WriteUint(serial)
	s.State().Enqueue(msg)
}

func (s *Surface) SetWindowGeometry(x, y, width, height int32) {
	msg := s.NewRequest(s, surfaceSetWindowGeometry)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.State().Enqueue(msg)
}

// Destroy destroys the xdg_surface. Its role object must have been
// destroyed first.
func (s *Surface) Destroy() {
	s.State().Enqueue(s.NewRequest(s, surfaceDestroy))
	s.State().Destroy(s)
}
