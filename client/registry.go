package wl

import (
	"deedles.dev/wlwin/wire"
	"golang.org/x/exp/maps"
)

const RegistryInterface = "wl_registry"

const (
	registryBind = 0

	registryGlobal       = 0
	registryGlobalRemove = 1
)

type Registry struct {
	Proxy
	Listener RegistryListener

	globals map[uint32]Global
}

type RegistryListener interface {
	Global(name uint32, inter string, version uint32)
	GlobalRemove(name uint32)
}

// Global describes an object advertised by the compositor.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Globals returns the globals that are currently advertised, keyed by
// name.
func (registry *Registry) Globals() map[uint32]Global {
	return maps.Clone(registry.globals)
}

func (registry *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case registryGlobal:
		name := msg.ReadUint()
		inter := msg.ReadString()
		version := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		registry.globals[name] = Global{Name: name, Interface: inter, Version: version}
		if registry.Listener != nil {
			registry.Listener.Global(name, inter, version)
		}
		return nil

	case registryGlobalRemove:
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		delete(registry.globals, name)
		if registry.Listener != nil {
			registry.Listener.GlobalRemove(name)
		}
		return nil

	default:
		return registry.Proxy.Dispatch(msg)
	}
}

// Bind creates a client-side object for the global with the given
// name. obj is added to the State and must not have been added
// already.
func (registry *Registry) Bind(name uint32, obj wire.Object, inter string, version uint32) {
	registry.state.Add(obj)

	msg := registry.NewRequest(registry, registryBind)
	msg.WriteUint(name)
	msg.WriteNewID(wire.NewID{Interface: inter, Version: version, ID: obj.ID()})
	registry.state.Enqueue(msg)
}

// Destroy forgets about the registry. wl_registry has no destructor
// request, so nothing is sent to the compositor.
func (registry *Registry) Destroy() {
	registry.state.Destroy(registry)
	if registry.state.display.registry == registry {
		registry.state.display.registry = nil
	}
}
