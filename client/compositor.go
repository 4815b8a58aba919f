package wl

const CompositorInterface = "wl_compositor"

const (
	compositorCreateSurface = 0
	compositorCreateRegion  = 1
)

type Compositor struct {
	Proxy
}

// BindCompositor binds the wl_compositor global with the given name.
func BindCompositor(state *State, registry *Registry, name, version uint32) *Compositor {
	compositor := Compositor{Proxy: NewProxy(state, CompositorInterface)}
	registry.Bind(name, &compositor, CompositorInterface, version)
	return &compositor
}

func (c *Compositor) CreateSurface() *Surface {
	s := Surface{Proxy: NewProxy(c.state, SurfaceInterface)}
	c.state.Add(&s)

	msg := c.NewRequest(c, compositorCreateSurface)
	msg.WriteUint(s.ID())
	c.state.Enqueue(msg)

	return &s
}

// Destroy forgets about the compositor. Before version 6 wl_compositor
// has no destructor request, so nothing is sent to the compositor.
func (c *Compositor) Destroy() {
	c.state.Destroy(c)
}
