// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is used by the client and xdg packages to encode
// requests and decode events, and by the test compositor for the
// reverse.
package wire

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// Object represents a Wayland protocol object.
type Object interface {
	ID() uint32
	SetID(id uint32)

	// Dispatch performs the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// Delete is called when the object's ID is released.
	Delete()

	// MethodName returns the name of the incoming message with the
	// given opcode. It is used for debugging output.
	MethodName(op uint16) string
}

// NewID is an untyped new_id argument, such as the one used by
// wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

func padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}

// unixTee reads from c, but also reads out-of-band data
// simultaneously, writing it into oob.
type unixTee struct {
	c   *net.UnixConn
	oob io.Writer
}

func (t unixTee) Read(buf []byte) (int, error) {
	oob := make([]byte, unix.CmsgSpace(maxFDs*4))
	n, oobn, _, _, err := t.c.ReadMsgUnix(buf, oob)
	_, ooberr := t.oob.Write(oob[:oobn])
	if (n == 0) && (err == nil) {
		err = io.EOF
	}
	return n, errors.Join(err, ooberr)
}

// maxFDs is the maximum number of file descriptors libwayland will
// attach to a single sendmsg call.
const maxFDs = 28
