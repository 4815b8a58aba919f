// Package wltest provides a fake compositor that speaks just enough of
// the Wayland and xdg-shell protocols to open a single toplevel
// window. It runs in-process on one end of a socket pair.
package wltest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"sync"
	"testing"

	"deedles.dev/wlwin/protocol"
	"deedles.dev/wlwin/wire"
	"golang.org/x/sys/unix"
)

// Global is a global that the server advertises.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// DefaultGlobals returns the globals that a Server advertises unless
// told otherwise.
func DefaultGlobals() []Global {
	return []Global{
		{Name: 1, Interface: "wl_compositor", Version: 6},
		{Name: 2, Interface: "wl_shm", Version: 1},
		{Name: 3, Interface: "xdg_wm_base", Version: 6},
	}
}

type Option func(*Server)

// WithGlobals sets the globals that the server advertises, in order.
func WithGlobals(globals ...Global) Option {
	return func(s *Server) {
		s.globals = globals
	}
}

// WithoutSync makes the server ignore wl_display.sync, so round trips
// never complete.
func WithoutSync() Option {
	return func(s *Server) {
		s.noSync = true
	}
}

// Server is a fake compositor.
type Server struct {
	conn   *wire.Conn
	client *wire.Conn
	done   chan struct{}

	globals []Global
	noSync  bool

	mu         sync.Mutex
	objects    map[uint32]*resource
	serial     uint32
	wmBase     uint32
	xdgSurface uint32
	toplevel   uint32
	configured bool
	binds      []string
	pongs      []uint32
	acks       []uint32
	titles     []string
	appIDs     []string
	destroyed  []string
	commits    int
	damage     []Rect
	geometry   []Rect
	err        error
}

// Start starts a Server. The server is shut down when tb's test
// finishes.
func Start(tb testing.TB, opts ...Option) *Server {
	tb.Helper()

	client, conn, err := wire.Pair()
	if err != nil {
		tb.Fatalf("create socket pair: %v", err)
	}

	s := Server{
		conn:    conn,
		client:  client,
		done:    make(chan struct{}),
		globals: DefaultGlobals(),
		objects: map[uint32]*resource{1: {id: 1, iface: "wl_display"}},
	}
	for _, opt := range opts {
		opt(&s)
	}

	go s.listen()
	tb.Cleanup(func() {
		s.Hangup()
		client.Close()
		<-s.done
	})

	return &s
}

// Conn returns the client's end of the connection.
func (s *Server) Conn() *wire.Conn {
	return s.client
}

// Dial returns the client's end of the connection. It has the
// signature of a dialer for convenience.
func (s *Server) Dial() (*wire.Conn, error) {
	return s.client, nil
}

// Hangup closes the server's end of the connection.
func (s *Server) Hangup() {
	s.conn.Close()
}

func (s *Server) listen() {
	defer close(s.done)

	for {
		msg, err := wire.ReadMessage(s.conn)
		if err != nil {
			if !hungUp(err) {
				s.setErr(err)
			}
			return
		}

		s.mu.Lock()
		err = s.handle(msg)
		s.mu.Unlock()
		if (err != nil) && !hungUp(err) {
			s.setErr(err)
		}
	}
}

// hungUp reports whether err only means that one side of the
// connection has gone away.
func hungUp(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNRESET)
}

// Wait blocks until the server has stopped reading requests, which
// happens once either side hangs up. Every request that the client
// sent before hanging up has been handled by the time it returns.
func (s *Server) Wait() {
	<-s.done
}

func (s *Server) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil {
		s.err = err
	}
}

func (s *Server) nextSerial() uint32 {
	s.serial++
	return s.serial
}

func (s *Server) send(r *resource, op uint16, args ...any) error {
	msg := wire.NewMessage(r, op)
	msg.Method = protocol.EventName(r.iface, op)
	for _, arg := range args {
		switch arg := arg.(type) {
		case uint32:
			msg.WriteUint(arg)
		case int32:
			msg.WriteInt(arg)
		case string:
			msg.WriteString(arg)
		case []byte:
			msg.WriteArray(arg)
		default:
			panic(fmt.Errorf("unsupported argument type %T", arg))
		}
	}
	return msg.Build(s.conn)
}

func (s *Server) add(id uint32, iface string) *resource {
	r := resource{id: id, iface: iface}
	s.objects[id] = &r
	return &r
}

func (s *Server) destroy(r *resource) error {
	delete(s.objects, r.id)
	s.destroyed = append(s.destroyed, r.iface)
	return s.send(s.objects[1], 1, r.id)
}

func (s *Server) handle(msg *wire.MessageBuffer) error {
	r := s.objects[msg.Sender()]
	if r == nil {
		return fmt.Errorf("request for unknown object %v", msg.Sender())
	}

	switch r.iface {
	case "wl_display":
		return s.handleDisplay(msg)
	case "wl_registry":
		return s.handleRegistry(msg)
	case "wl_compositor":
		return s.handleCompositor(msg)
	case "wl_surface":
		return s.handleSurface(r, msg)
	case "xdg_wm_base":
		return s.handleWmBase(r, msg)
	case "xdg_surface":
		return s.handleXdgSurface(r, msg)
	case "xdg_toplevel":
		return s.handleToplevel(r, msg)
	default:
		return fmt.Errorf("request for unsupported interface %v", r.iface)
	}
}

func (s *Server) handleDisplay(msg *wire.MessageBuffer) error {
	id := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	switch msg.Op() {
	case 0: // sync
		if s.noSync {
			return nil
		}
		cb := s.add(id, "wl_callback")
		if err := s.send(cb, 0, s.nextSerial()); err != nil {
			return err
		}
		delete(s.objects, id)
		return s.send(s.objects[1], 1, id)

	case 1: // get_registry
		registry := s.add(id, "wl_registry")
		for _, g := range s.globals {
			if err := s.send(registry, 0, g.Name, g.Interface, g.Version); err != nil {
				return err
			}
		}
		return nil
	}
	return wire.UnknownOpError{Interface: "wl_display", Type: "request", Op: msg.Op()}
}

func (s *Server) handleRegistry(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return wire.UnknownOpError{Interface: "wl_registry", Type: "request", Op: msg.Op()}
	}

	name := msg.ReadUint()
	nid := msg.ReadNewID()
	if err := msg.Err(); err != nil {
		return err
	}

	i := slices.IndexFunc(s.globals, func(g Global) bool { return g.Name == name })
	if (i < 0) || (s.globals[i].Interface != nid.Interface) {
		return fmt.Errorf("bind of unknown global %v (%v)", name, nid.Interface)
	}

	s.add(nid.ID, nid.Interface)
	s.binds = append(s.binds, nid.Interface)
	if nid.Interface == "xdg_wm_base" {
		s.wmBase = nid.ID
	}
	return nil
}

func (s *Server) handleCompositor(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return wire.UnknownOpError{Interface: "wl_compositor", Type: "request", Op: msg.Op()}
	}

	id := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}
	s.add(id, "wl_surface")
	return nil
}

func (s *Server) handleSurface(r *resource, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0: // destroy
		return s.destroy(r)

	case 2: // damage
		rect := readRect(msg)
		if err := msg.Err(); err != nil {
			return err
		}
		s.damage = append(s.damage, rect)
		return nil

	case 6: // commit
		s.commits++
		if (s.toplevel == 0) || s.configured {
			return nil
		}
		s.configured = true
		return s.configure(0, 0)
	}
	return wire.UnknownOpError{Interface: "wl_surface", Type: "request", Op: msg.Op()}
}

func (s *Server) handleWmBase(r *resource, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0: // destroy
		s.wmBase = 0
		return s.destroy(r)

	case 2: // get_xdg_surface
		id := msg.ReadUint()
		surface := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if sr := s.objects[surface]; (sr == nil) || (sr.iface != "wl_surface") {
			return fmt.Errorf("get_xdg_surface with invalid surface %v", surface)
		}
		s.add(id, "xdg_surface")
		s.xdgSurface = id
		return nil

	case 3: // pong
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		s.pongs = append(s.pongs, serial)
		return nil
	}
	return wire.UnknownOpError{Interface: "xdg_wm_base", Type: "request", Op: msg.Op()}
}

func (s *Server) handleXdgSurface(r *resource, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0: // destroy
		s.xdgSurface = 0
		return s.destroy(r)

	case 1: // get_toplevel
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		s.add(id, "xdg_toplevel")
		s.toplevel = id
		return nil

	case 3: // set_window_geometry
		rect := readRect(msg)
		if err := msg.Err(); err != nil {
			return err
		}
		s.geometry = append(s.geometry, rect)
		return nil

	case 4: // ack_configure
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		s.acks = append(s.acks, serial)
		return nil
	}
	return wire.UnknownOpError{Interface: "xdg_surface", Type: "request", Op: msg.Op()}
}

func (s *Server) handleToplevel(r *resource, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0: // destroy
		s.toplevel = 0
		return s.destroy(r)

	case 2: // set_title
		title := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		s.titles = append(s.titles, title)
		return nil

	case 3: // set_app_id
		appID := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		s.appIDs = append(s.appIDs, appID)
		return nil
	}
	return wire.UnknownOpError{Interface: "xdg_toplevel", Type: "request", Op: msg.Op()}
}

func (s *Server) configure(width, height int32, states ...uint32) error {
	data := make([]byte, 0, 4*len(states))
	for _, state := range states {
		data = binary.NativeEndian.AppendUint32(data, state)
	}

	err := s.send(s.objects[s.toplevel], 0, width, height, data)
	if err != nil {
		return err
	}
	return s.send(s.objects[s.xdgSurface], 0, s.nextSerial())
}

// Ping sends xdg_wm_base.ping with the given serial.
func (s *Server) Ping(serial uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wmBase == 0 {
		return errors.New("xdg_wm_base is not bound")
	}
	return s.send(s.objects[s.wmBase], 0, serial)
}

// Configure sends a toplevel configure sequence.
func (s *Server) Configure(width, height int32, states ...uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.toplevel == 0 {
		return errors.New("no toplevel")
	}
	return s.configure(width, height, states...)
}

// Close sends xdg_toplevel.close.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.toplevel == 0 {
		return errors.New("no toplevel")
	}
	return s.send(s.objects[s.toplevel], 1)
}

// RemoveGlobal sends wl_registry.global_remove for every registry.
func (s *Server) RemoveGlobal(name uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.objects {
		if r.iface != "wl_registry" {
			continue
		}
		if err := s.send(r, 1, name); err != nil {
			return err
		}
	}
	return nil
}

// Error sends a fatal wl_display.error and hangs up.
func (s *Server) Error(objectID, code uint32, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.send(s.objects[1], 0, objectID, code, message)
	s.conn.Close()
	return err
}

// Err returns the first protocol violation that the server noticed.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func locked[T any](s *Server, f func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f()
}

// Binds returns the interfaces that the client has bound, in order.
func (s *Server) Binds() []string {
	return locked(s, func() []string { return slices.Clone(s.binds) })
}

// Pongs returns the serials of every pong received.
func (s *Server) Pongs() []uint32 {
	return locked(s, func() []uint32 { return slices.Clone(s.pongs) })
}

// Acks returns the serials of every ack_configure received.
func (s *Server) Acks() []uint32 {
	return locked(s, func() []uint32 { return slices.Clone(s.acks) })
}

// Titles returns every title that was set on a toplevel.
func (s *Server) Titles() []string {
	return locked(s, func() []string { return slices.Clone(s.titles) })
}

// AppIDs returns every app ID that was set on a toplevel.
func (s *Server) AppIDs() []string {
	return locked(s, func() []string { return slices.Clone(s.appIDs) })
}

// Destroyed returns the interfaces of the objects that the client has
// destroyed, in order.
func (s *Server) Destroyed() []string {
	return locked(s, func() []string { return slices.Clone(s.destroyed) })
}

// Commits returns the number of wl_surface.commit requests received.
func (s *Server) Commits() int {
	return locked(s, func() int { return s.commits })
}

// Damage returns every wl_surface.damage rectangle received.
func (s *Server) Damage() []Rect {
	return locked(s, func() []Rect { return slices.Clone(s.damage) })
}

// Geometry returns every xdg_surface.set_window_geometry rectangle
// received.
func (s *Server) Geometry() []Rect {
	return locked(s, func() []Rect { return slices.Clone(s.geometry) })
}

// Objects returns the number of live objects, including wl_display.
func (s *Server) Objects() int {
	return locked(s, func() int { return len(s.objects) })
}

// Rect is a rectangle sent as four int arguments.
type Rect struct {
	X, Y, Width, Height int32
}

func readRect(msg *wire.MessageBuffer) Rect {
	return Rect{
		X:      msg.ReadInt(),
		Y:      msg.ReadInt(),
		Width:  msg.ReadInt(),
		Height: msg.ReadInt(),
	}
}

// resource is the server-side half of a protocol object.
type resource struct {
	id    uint32
	iface string
}

func (r *resource) ID() uint32 { return r.id }
func (r *resource) SetID(id uint32) { r.id = id }
func (r *resource) Dispatch(*wire.MessageBuffer) error { return nil }
func (r *resource) Delete() {}

func (r *resource) MethodName(op uint16) string {
	return protocol.RequestName(r.iface, op)
}

func (r *resource) String() string {
	return fmt.Sprintf("%v@%v", r.iface, r.id)
}
