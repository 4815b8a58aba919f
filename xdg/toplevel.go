package xdg

import (
	"encoding/binary"

	wl "deedles.dev/wlwin/client"
	"deedles.dev/wlwin/wire"
)

const ToplevelInterface = "xdg_toplevel"

const (
	toplevelDestroy  = 0
	toplevelSetTitle = 2
	toplevelSetAppID = 3

	toplevelConfigure       = 0
	toplevelClose           = 1
	toplevelConfigureBounds = 2
	toplevelWmCapabilities  = 3
)

type Toplevel struct {
	wl.Proxy
	Listener ToplevelListener
}

type ToplevelListener interface {
	// Configure suggests a new size for the window. A width or height
	// of zero means that the client should decide for itself.
	Configure(width, height int32, states []ToplevelState)

	// Close is called when the user has asked for the window to be
	// closed.
	Close()
}

func (t *Toplevel) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case toplevelConfigure:
		width := msg.ReadInt()
		height := msg.ReadInt()
		states := msg.ReadArray()
		if err := msg.Err(); err != nil {
			return err
		}
		if t.Listener != nil {
			t.Listener.Configure(width, height, decodeStates(states))
		}
		return nil

	case toplevelClose:
		if t.Listener != nil {
			t.Listener.Close()
		}
		return nil

	case toplevelConfigureBounds:
		msg.ReadInt()
		msg.ReadInt()
		return msg.Err()

	case toplevelWmCapabilities:
		msg.ReadArray()
		return msg.Err()

	default:
		return t.Proxy.Dispatch(msg)
	}
}

func (t *Toplevel) SetTitle(title string) {
	msg := t.NewRequest(t, toplevelSetTitle)
	msg.WriteString(title)
	t.State().Enqueue(msg)
}

func (t *Toplevel) SetAppID(appID string) {
	msg := t.NewRequest(t, toplevelSetAppID)
	msg.WriteString(appID)
	t.State().Enqueue(msg)
}

func (t *Toplevel) Destroy() {
	t.State().Enqueue(t.NewRequest(t, toplevelDestroy))
	t.State().Destroy(t)
}

// ToplevelState is one of the states that a toplevel can be in, as
// reported by its configure event.
type ToplevelState uint32

const (
	ToplevelStateMaximized ToplevelState = 1 + iota
	ToplevelStateFullscreen
	ToplevelStateResizing
	ToplevelStateActivated
	ToplevelStateTiledLeft
	ToplevelStateTiledRight
	ToplevelStateTiledTop
	ToplevelStateTiledBottom
	ToplevelStateSuspended
)

func (s ToplevelState) String() string {
	switch s {
	case ToplevelStateMaximized:
		return "maximized"
	case ToplevelStateFullscreen:
		return "fullscreen"
	case ToplevelStateResizing:
		return "resizing"
	case ToplevelStateActivated:
		return "activated"
	case ToplevelStateTiledLeft:
		return "tiled_left"
	case ToplevelStateTiledRight:
		return "tiled_right"
	case ToplevelStateTiledTop:
		return "tiled_top"
	case ToplevelStateTiledBottom:
		return "tiled_bottom"
	case ToplevelStateSuspended:
		return "suspended"
	}

	return "unknown"
}

func decodeStates(data []byte) []ToplevelState {
	states := make([]ToplevelState, 0, len(data)/4)
	for len(data) >= 4 {
		states = append(states, ToplevelState(binary.NativeEndian.Uint32(data)))
		data = data[4:]
	}
	return states
}
