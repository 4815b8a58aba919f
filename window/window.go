// Package window opens a single xdg-shell toplevel window and keeps
// it alive. It exists for hosts, such as renderers, that draw into the
// window themselves and only need its native handles.
//
// A Session acquires its objects in a fixed order:
//
//	connection → registry → wl_compositor, xdg_wm_base → wl_surface
//	→ xdg_surface → xdg_toplevel
//
// and releases them in the reverse order. Protocol events are only
// handled during Init and PollEvents, on the calling goroutine. A
// Session must not be used concurrently.
package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	wl "deedles.dev/wlwin/client"
	"deedles.dev/wlwin/internal/logging"
	"deedles.dev/wlwin/wire"
	"deedles.dev/wlwin/xdg"
	"github.com/rs/zerolog"
)

const (
	DefaultTitle = "Vulkan Triangle"
	DefaultAppID = "vulkan-triangle"
)

// bindVersion is the version at which both required globals are bound.
const bindVersion = 1

var (
	ErrNoCompositor = errors.New("compositor did not advertise wl_compositor")
	ErrNoShell      = errors.New("compositor did not advertise xdg_wm_base")
	ErrInitialized  = errors.New("session is already initialized")
)

// Step identifies a step of Session.Init.
type Step int

const (
	StepConnect Step = iota
	StepRegistry
	StepDiscovery
	StepSurface
	StepShellSurface
	StepToplevel
	StepConfigure
)

func (s Step) String() string {
	switch s {
	case StepConnect:
		return "connect"
	case StepRegistry:
		return "registry"
	case StepDiscovery:
		return "discovery"
	case StepSurface:
		return "surface"
	case StepShellSurface:
		return "shell surface"
	case StepToplevel:
		return "toplevel"
	case StepConfigure:
		return "configure"
	}

	return fmt.Sprintf("Step(%d)", int(s))
}

// InitError is returned by Init when one of its steps fails. Objects
// created by earlier steps are left in place.
type InitError struct {
	Step Step
	Err  error
}

func (err *InitError) Error() string {
	return fmt.Sprintf("%v: %v", err.Step, err.Err)
}

func (err *InitError) Unwrap() error {
	return err.Err
}

// Dialer opens the connection to the compositor.
type Dialer func() (*wire.Conn, error)

type Option func(*Session)

func WithTitle(title string) Option {
	return func(s *Session) {
		s.title = title
	}
}

func WithAppID(appID string) Option {
	return func(s *Session) {
		s.appID = appID
	}
}

// WithDialer replaces wire.Dial as the way that the session connects
// to the compositor.
func WithDialer(dial Dialer) Option {
	return func(s *Session) {
		s.dial = dial
	}
}

// WithSocket connects to the named socket instead of the one
// indicated by the environment. Relative names are resolved against
// $XDG_RUNTIME_DIR.
func WithSocket(name string) Option {
	return func(s *Session) {
		s.dial = func() (*wire.Conn, error) {
			return wire.DialPath(wire.ResolveSocket(name))
		}
	}
}

// WithLogger sets the logger that progress messages are written to.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.log = logger
	}
}

// WithRoundTripTimeout bounds every round trip that the session
// performs. By default, round trips wait for as long as the compositor
// takes to respond.
func WithRoundTripTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		s.timeout = timeout
	}
}

// WithResizeHandler sets a function to be called whenever the
// compositor suggests a new size for the window.
func WithResizeHandler(f func(width, height int32, states []xdg.ToplevelState)) Option {
	return func(s *Session) {
		s.resize = f
	}
}

// Session is a single toplevel window.
type Session struct {
	title   string
	appID   string
	dial    Dialer
	log     zerolog.Logger
	timeout time.Duration
	resize  func(width, height int32, states []xdg.ToplevelState)

	state      *wl.State
	registry   *wl.Registry
	compositor *wl.Compositor
	wmBase     *xdg.WmBase
	surface    *wl.Surface
	xsurface   *xdg.Surface
	toplevel   *xdg.Toplevel
	quit       bool
}

// New returns a Session that has not yet connected to anything.
func New(opts ...Option) *Session {
	s := Session{
		title: DefaultTitle,
		appID: DefaultAppID,
		dial:  wire.Dial,
		log:   logging.New("wlwin", zerolog.InfoLevel),
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &s
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Session) dispatch(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.state.Dispatch(ctx)
}

func (s *Session) roundTrip(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.state.RoundTrip(ctx)
}

// send sends the requests made by step so that a broken connection is
// attributed to the step that first noticed it.
func (s *Session) send(step Step) error {
	err := s.state.Send()
	if err != nil {
		return s.fail(step, err)
	}
	return nil
}

func (s *Session) fail(step Step, err error) error {
	s.log.Error().Str("step", step.String()).Err(err).Msg("window initialization failed")
	return &InitError{Step: step, Err: err}
}

// Init connects to the compositor and creates the window. If it fails,
// the returned error is an *InitError and whatever was created before
// the failure is kept until Cleanup is called.
func (s *Session) Init(ctx context.Context) error {
	if s.state != nil {
		return ErrInitialized
	}

	s.log.Info().Msg("initializing wayland with xdg shell")

	conn, err := s.dial()
	if err != nil {
		return s.fail(StepConnect, err)
	}
	s.state = wl.NewState(conn)
	s.log.Info().Msg("connected to wayland display")

	s.registry = s.state.Display().GetRegistry()
	s.registry.Listener = (*registryListener)(s)
	if err := s.send(StepRegistry); err != nil {
		return err
	}

	err = s.dispatch(ctx)
	if err != nil {
		return s.fail(StepDiscovery, fmt.Errorf("dispatch: %w", err))
	}
	err = s.roundTrip(ctx)
	if err != nil {
		return s.fail(StepDiscovery, fmt.Errorf("round trip: %w", err))
	}

	if (s.compositor == nil) || (s.wmBase == nil) {
		s.log.Error().
			Bool("compositor", s.compositor != nil).
			Bool("shell", s.wmBase != nil).
			Msg("missing required globals")
		if s.compositor == nil {
			return s.fail(StepDiscovery, ErrNoCompositor)
		}
		return s.fail(StepDiscovery, ErrNoShell)
	}

	s.surface = s.compositor.CreateSurface()
	if err := s.send(StepSurface); err != nil {
		return err
	}
	s.log.Info().Uint32("id", s.surface.ID()).Msg("created surface")

	s.xsurface = s.wmBase.GetXdgSurface(s.surface)
	s.xsurface.Listener = (*xsurfaceListener)(s)
	if err := s.send(StepShellSurface); err != nil {
		return err
	}

	s.toplevel = s.xsurface.GetToplevel()
	s.toplevel.Listener = (*toplevelListener)(s)
	s.toplevel.SetTitle(s.title)
	s.toplevel.SetAppID(s.appID)
	if err := s.send(StepToplevel); err != nil {
		return err
	}

	s.surface.Commit()
	err = s.roundTrip(ctx)
	if err != nil {
		return s.fail(StepConfigure, fmt.Errorf("round trip: %w", err))
	}
	s.surface.Commit()
	if err := s.send(StepConfigure); err != nil {
		return err
	}

	s.log.Info().Str("title", s.title).Str("app_id", s.appID).Msg("xdg shell initialization complete")
	return nil
}

// PollEvents handles every event that has already arrived without
// waiting and then performs one round trip, handling anything that
// arrives during it. It does nothing if the session is not connected.
//
// Hosts should call it once per iteration of their main loop.
func (s *Session) PollEvents(ctx context.Context) error {
	if s.state == nil {
		return nil
	}

	err := s.state.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	err = s.roundTrip(ctx)
	if err != nil {
		return fmt.Errorf("round trip: %w", err)
	}
	return nil
}

// ShouldQuit reports whether the compositor has asked for the window
// to be closed. Once true, it stays true, including across Cleanup and
// a later Init.
func (s *Session) ShouldQuit() bool {
	return s.quit
}

// Cleanup destroys everything that the session has created, in the
// reverse of the order in which it was created, and disconnects. It is
// safe to call at any time, including more than once and after a
// failed Init. It does not reset ShouldQuit.
func (s *Session) Cleanup() error {
	if s.state == nil {
		return nil
	}

	s.log.Info().Msg("cleaning up wayland")

	if s.toplevel != nil {
		s.toplevel.Destroy()
		s.toplevel = nil
	}
	if s.xsurface != nil {
		s.xsurface.Destroy()
		s.xsurface = nil
	}
	if s.surface != nil {
		s.surface.Destroy()
		s.surface = nil
	}
	if s.wmBase != nil {
		s.wmBase.Destroy()
		s.wmBase = nil
	}
	if s.compositor != nil {
		s.compositor.Destroy()
		s.compositor = nil
	}
	if s.registry != nil {
		s.registry.Destroy()
		s.registry = nil
	}

	// If the connection is already broken there is nothing left to
	// release on the other end, so a failure to send the destroy
	// requests is not reported.
	err := s.state.Send()
	if err != nil {
		s.log.Debug().Err(err).Msg("flush destroy requests")
	}

	err = s.state.Close()
	s.state = nil
	return err
}

// State returns the session's connection, or nil if it is not
// connected.
func (s *Session) State() *wl.State {
	return s.state
}

// Display returns the wl_display of the session's connection, or nil
// if it is not connected.
func (s *Session) Display() *wl.Display {
	if s.state == nil {
		return nil
	}
	return s.state.Display()
}

// Surface returns the window's wl_surface, or nil if it has not been
// created.
func (s *Session) Surface() *wl.Surface {
	return s.surface
}
