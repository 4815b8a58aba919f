package window

import (
	"fmt"

	wl "deedles.dev/wlwin/client"
	"deedles.dev/wlwin/xdg"
)

type registryListener Session

func (s *registryListener) Global(name uint32, inter string, version uint32) {
	switch inter {
	case wl.CompositorInterface:
		if s.compositor != nil {
			return
		}
		s.compositor = wl.BindCompositor(s.state, s.registry, name, bindVersion)
		s.log.Info().Uint32("name", name).Uint32("version", version).Msg("found compositor")

	case xdg.WmBaseInterface:
		if s.wmBase != nil {
			return
		}
		s.wmBase = xdg.BindWmBase(s.state, s.registry, name, bindVersion)
		s.wmBase.Listener = (*wmBaseListener)(s)
		s.log.Info().Uint32("name", name).Uint32("version", version).Msg("found xdg_wm_base")
	}
}

func (s *registryListener) GlobalRemove(name uint32) {
	s.log.Debug().Uint32("name", name).Msg("global removed")
}

type wmBaseListener Session

func (s *wmBaseListener) Ping(serial uint32) {
	s.wmBase.Pong(serial)
}

type xsurfaceListener Session

func (s *xsurfaceListener) Configure(serial uint32) {
	s.xsurface.AckConfigure(serial)
}

type toplevelListener Session

func (s *toplevelListener) Configure(width, height int32, states []xdg.ToplevelState) {
	s.log.Debug().Int32("width", width).Int32("height", height).Stringers("states", stringers(states)).Msg("toplevel configure")
	if s.resize != nil {
		s.resize(width, height, states)
	}
}

func (s *toplevelListener) Close() {
	s.log.Info().Msg("close requested")
	s.quit = true
}

func stringers[T fmt.Stringer](s []T) []fmt.Stringer {
	r := make([]fmt.Stringer, 0, len(s))
	for _, v := range s {
		r = append(r, v)
	}
	return r
}
