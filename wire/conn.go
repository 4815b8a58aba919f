package wire

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/var/run/user/%v", os.Getuid())
}

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok || (v == "") {
		v = "wayland-0"
	}
	return ResolveSocket(v)
}

// ResolveSocket returns name if it is an absolute path and name
// joined onto $XDG_RUNTIME_DIR otherwise.
func ResolveSocket(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(xdgRuntimeDir(), name)
}

// Conn represents a low-level Wayland connection. It is not generally
// used directly, instead being handled automatically by a State
// implementation.
type Conn struct {
	conn *net.UnixConn
	wmu  sync.Mutex
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		conn: c,
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) write(data, oob []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_, _, err := c.conn.WriteMsgUnix(data, oob, nil)
	return err
}

// Dial opens a connection to the Wayland socket based on the current
// environment. It follows the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
func Dial() (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()

		c, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("WAYLAND_SOCKET fd %v is not a Unix socket", fd)
		}
		return NewConn(uc), nil
	}

	return DialPath(SocketPath())
}

// DialPath opens a connection to the Wayland socket at path.
func DialPath(path string) (*Conn, error) {
	s, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	return NewConn(s), nil
}

// Pair returns two Conns that are connected to each other. It is
// useful for running a client and a server in the same process.
func Pair() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}

	c1, err := fileConn(fds[0], "wayland-pair-0")
	if err != nil {
		unix.Close(fds[1])
		return nil, nil, err
	}
	c2, err := fileConn(fds[1], "wayland-pair-1")
	if err != nil {
		c1.Close()
		return nil, nil, err
	}

	return c1, c2, nil
}

func fileConn(fd int, name string) (*Conn, error) {
	file := os.NewFile(uintptr(fd), name)
	defer file.Close()

	c, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("open %v: %w", name, err)
	}
	return NewConn(c.(*net.UnixConn)), nil
}
