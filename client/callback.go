package wl

import "deedles.dev/wlwin/wire"

const CallbackInterface = "wl_callback"

const callbackDone = 0

type Callback struct {
	Proxy
	done func(uint32)
}

// Then sets f to be called when the callback's done event arrives.
func (c *Callback) Then(f func(uint32)) {
	c.done = f
}

func (c *Callback) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case callbackDone:
		data := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		// done is a destructor event.
		c.state.Destroy(c)
		if c.done != nil {
			c.done(data)
		}
		return nil

	default:
		return c.Proxy.Dispatch(msg)
	}
}
