package wl

import "deedles.dev/wlwin/wire"

const SurfaceInterface = "wl_surface"

const (
	surfaceDestroy = 0
	surfaceDamage  = 2
	surfaceCommit  = 6

	surfaceEnter = 0
	surfaceLeave = 1
)

type Surface struct {
	Proxy
	Listener SurfaceListener
}

type SurfaceListener interface {
	Enter(output uint32)
	Leave(output uint32)
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case surfaceEnter, surfaceLeave:
		output := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if s.Listener == nil {
			return nil
		}

		if msg.Op() == surfaceEnter {
			s.Listener.Enter(output)
			return nil
		}
		s.Listener.Leave(output)
		return nil

	default:
		// Newer events, such as preferred_buffer_scale, are not sent at
		// the versions bound by this package.
		return s.Proxy.Dispatch(msg)
	}
}

func (s *Surface) Damage(x, y, width, height int32) {
	msg := s.NewRequest(s, surfaceDamage)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.state.Enqueue(msg)
}

func (s *Surface) Commit() {
	s.state.Enqueue(s.NewRequest(s, surfaceCommit))
}

func (s *Surface) Destroy() {
	s.state.Enqueue(s.NewRequest(s, surfaceDestroy))
	s.state.Destroy(s)
}
