package window

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"deedles.dev/wlwin/internal/wltest"
	"deedles.dev/wlwin/wire"
	"deedles.dev/wlwin/xdg"
	"github.com/rs/zerolog"
)

func newSession(srv *wltest.Server, opts ...Option) *Session {
	opts = append([]Option{WithDialer(srv.Dial), WithLogger(zerolog.Nop())}, opts...)
	return New(opts...)
}

func initSession(t *testing.T, srv *wltest.Server, opts ...Option) *Session {
	t.Helper()

	s := newSession(srv, opts...)
	t.Cleanup(func() { s.Cleanup() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	return s
}

func poll(t *testing.T, s *Session) {
	t.Helper()

	if err := s.PollEvents(context.Background()); err != nil {
		t.Fatalf("PollEvents() error: %v", err)
	}
}

func TestInit(t *testing.T) {
	srv := wltest.Start(t)
	s := newSession(srv)

	if (s.State() != nil) || (s.Display() != nil) || (s.Surface() != nil) {
		t.Fatal("accessors are not nil before Init")
	}

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if (s.State() == nil) || (s.Display() == nil) || (s.Surface() == nil) {
		t.Fatal("accessors are nil after Init")
	}
	if s.ShouldQuit() {
		t.Fatal("ShouldQuit() = true after Init")
	}
	poll(t, s)

	if binds := srv.Binds(); !slices.Equal(binds, []string{"wl_compositor", "xdg_wm_base"}) {
		t.Fatalf("Binds() = %v", binds)
	}
	if titles := srv.Titles(); !slices.Equal(titles, []string{DefaultTitle}) {
		t.Fatalf("Titles() = %v, want [%v]", titles, DefaultTitle)
	}
	if ids := srv.AppIDs(); !slices.Equal(ids, []string{DefaultAppID}) {
		t.Fatalf("AppIDs() = %v, want [%v]", ids, DefaultAppID)
	}
	if acks := srv.Acks(); len(acks) != 1 {
		t.Fatalf("Acks() = %v, want exactly one initial ack", acks)
	}
	if n := srv.Commits(); n != 2 {
		t.Fatalf("Commits() = %v, want 2", n)
	}
	if err := srv.Err(); err != nil {
		t.Fatalf("server error: %v", err)
	}

	if err := s.Init(context.Background()); !errors.Is(err, ErrInitialized) {
		t.Fatalf("second Init() error = %v, want %v", err, ErrInitialized)
	}

	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if (s.State() != nil) || (s.Display() != nil) || (s.Surface() != nil) {
		t.Fatal("accessors are not nil after Cleanup")
	}
}

func TestInitOptions(t *testing.T) {
	srv := wltest.Start(t)
	s := initSession(t, srv, WithTitle("Triangle"), WithAppID("dev.triangle"))
	poll(t, s)

	if titles := srv.Titles(); !slices.Equal(titles, []string{"Triangle"}) {
		t.Fatalf("Titles() = %v, want [Triangle]", titles)
	}
	if ids := srv.AppIDs(); !slices.Equal(ids, []string{"dev.triangle"}) {
		t.Fatalf("AppIDs() = %v, want [dev.triangle]", ids)
	}
}

func TestAnnounceOrder(t *testing.T) {
	srv := wltest.Start(t, wltest.WithGlobals(
		wltest.Global{Name: 5, Interface: "xdg_wm_base", Version: 3},
		wltest.Global{Name: 6, Interface: "wl_output", Version: 2},
		wltest.Global{Name: 7, Interface: "wl_compositor", Version: 4},
		wltest.Global{Name: 8, Interface: "wl_compositor", Version: 4},
	))
	s := initSession(t, srv)
	poll(t, s)

	// Only the first announcement of each global is bound.
	if binds := srv.Binds(); !slices.Equal(binds, []string{"xdg_wm_base", "wl_compositor"}) {
		t.Fatalf("Binds() = %v", binds)
	}
	if err := srv.Err(); err != nil {
		t.Fatalf("server error: %v", err)
	}
}

func TestMissingGlobals(t *testing.T) {
	tests := []struct {
		name    string
		globals []wltest.Global
		err     error
	}{
		{
			name:    "shell",
			globals: []wltest.Global{{Name: 1, Interface: "wl_compositor", Version: 6}},
			err:     ErrNoShell,
		},
		{
			name:    "compositor",
			globals: []wltest.Global{{Name: 3, Interface: "xdg_wm_base", Version: 6}},
			err:     ErrNoCompositor,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := wltest.Start(t, wltest.WithGlobals(test.globals...))
			s := newSession(srv)

			err := s.Init(context.Background())
			var ierr *InitError
			if !errors.As(err, &ierr) {
				t.Fatalf("Init() error = %v, want an *InitError", err)
			}
			if ierr.Step != StepDiscovery {
				t.Fatalf("failed step = %v, want %v", ierr.Step, StepDiscovery)
			}
			if !errors.Is(err, test.err) {
				t.Fatalf("Init() error = %v, want %v", err, test.err)
			}

			// Whatever was bound stays in place until Cleanup.
			if (s.compositor != nil) == (test.err == ErrNoCompositor) {
				t.Fatalf("compositor = %v after failing with %v", s.compositor, test.err)
			}
			if (s.wmBase != nil) == (test.err == ErrNoShell) {
				t.Fatalf("wmBase = %v after failing with %v", s.wmBase, test.err)
			}
			if s.Surface() != nil {
				t.Fatal("surface was created despite the failure")
			}

			if err := s.Cleanup(); err != nil {
				t.Fatalf("Cleanup() error: %v", err)
			}
			if (s.compositor != nil) || (s.wmBase != nil) || (s.registry != nil) || (s.State() != nil) {
				t.Fatal("Cleanup() left objects behind")
			}
		})
	}
}

func TestDialFailure(t *testing.T) {
	want := errors.New("no compositor here")
	s := New(
		WithDialer(func() (*wire.Conn, error) { return nil, want }),
		WithLogger(zerolog.Nop()),
	)

	err := s.Init(context.Background())
	var ierr *InitError
	if !errors.As(err, &ierr) || (ierr.Step != StepConnect) {
		t.Fatalf("Init() error = %v, want a connect failure", err)
	}
	if !errors.Is(err, want) {
		t.Fatalf("Init() error = %v, want it to wrap %v", err, want)
	}
	if s.State() != nil {
		t.Fatal("State() is not nil after a failed connect")
	}
	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
}

func TestRoundTripTimeout(t *testing.T) {
	srv := wltest.Start(t, wltest.WithoutSync())
	s := newSession(srv, WithRoundTripTimeout(50*time.Millisecond))
	defer s.Cleanup()

	err := s.Init(context.Background())
	var ierr *InitError
	if !errors.As(err, &ierr) || (ierr.Step != StepDiscovery) {
		t.Fatalf("Init() error = %v, want a discovery failure", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Init() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestPing(t *testing.T) {
	srv := wltest.Start(t)
	s := initSession(t, srv)

	if err := srv.Ping(77); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	poll(t, s)
	poll(t, s)

	if pongs := srv.Pongs(); !slices.Equal(pongs, []uint32{77}) {
		t.Fatalf("Pongs() = %v, want [77]", pongs)
	}
}

func TestResize(t *testing.T) {
	srv := wltest.Start(t)

	type size struct{ width, height int32 }
	var sizes []size
	var states []xdg.ToplevelState
	s := initSession(t, srv, WithResizeHandler(func(width, height int32, st []xdg.ToplevelState) {
		sizes = append(sizes, size{width, height})
		states = st
	}))

	err := srv.Configure(640, 480, uint32(xdg.ToplevelStateActivated))
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	poll(t, s)
	poll(t, s)

	if !slices.Equal(sizes, []size{{0, 0}, {640, 480}}) {
		t.Fatalf("sizes = %v, want [{0 0} {640 480}]", sizes)
	}
	if !slices.Equal(states, []xdg.ToplevelState{xdg.ToplevelStateActivated}) {
		t.Fatalf("states = %v, want [activated]", states)
	}
	if acks := srv.Acks(); len(acks) != 2 {
		t.Fatalf("Acks() = %v, want two acks", acks)
	}
}

func TestShouldQuit(t *testing.T) {
	srv := wltest.Start(t)
	s := initSession(t, srv)

	poll(t, s)
	if s.ShouldQuit() {
		t.Fatal("ShouldQuit() = true before the close event")
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	poll(t, s)
	if !s.ShouldQuit() {
		t.Fatal("ShouldQuit() = false after the close event")
	}

	poll(t, s)
	if !s.ShouldQuit() {
		t.Fatal("ShouldQuit() went back to false")
	}

	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if !s.ShouldQuit() {
		t.Fatal("ShouldQuit() was reset by Cleanup")
	}
}

func TestDefaults(t *testing.T) {
	s := New()

	if (s.title != DefaultTitle) || (s.appID != DefaultAppID) {
		t.Fatalf("title, app ID = %q, %q, want %q, %q", s.title, s.appID, DefaultTitle, DefaultAppID)
	}
	if level := s.log.GetLevel(); level != zerolog.InfoLevel {
		t.Fatalf("default log level = %v, want %v", level, zerolog.InfoLevel)
	}
	if s.timeout != 0 {
		t.Fatalf("default round trip timeout = %v, want none", s.timeout)
	}
}

func TestCleanup(t *testing.T) {
	srv := wltest.Start(t)
	s := initSession(t, srv)

	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatalf("second Cleanup() error: %v", err)
	}
	srv.Wait()

	want := []string{"xdg_toplevel", "xdg_surface", "wl_surface", "xdg_wm_base"}
	if d := srv.Destroyed(); !slices.Equal(d, want) {
		t.Fatalf("Destroyed() = %v, want %v", d, want)
	}
	if err := srv.Err(); err != nil {
		t.Fatalf("server error: %v", err)
	}

	if err := s.PollEvents(context.Background()); err != nil {
		t.Fatalf("PollEvents() after Cleanup() error: %v", err)
	}
}

func TestCleanupWithoutInit(t *testing.T) {
	s := New(WithLogger(zerolog.Nop()))

	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if (s.State() != nil) || (s.Display() != nil) || (s.Surface() != nil) {
		t.Fatal("accessors are not nil")
	}
	if s.ShouldQuit() {
		t.Fatal("ShouldQuit() = true")
	}
	if err := s.PollEvents(context.Background()); err != nil {
		t.Fatalf("PollEvents() without Init error: %v", err)
	}
}

func TestHangup(t *testing.T) {
	srv := wltest.Start(t)
	s := initSession(t, srv)

	srv.Hangup()
	if err := s.PollEvents(context.Background()); err == nil {
		t.Fatal("PollEvents() succeeded after the compositor hung up")
	}
	if s.ShouldQuit() {
		t.Fatal("ShouldQuit() = true after a hangup")
	}
	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
}

func TestStepString(t *testing.T) {
	if s := StepShellSurface.String(); s != "shell surface" {
		t.Fatalf("String() = %q, want %q", s, "shell surface")
	}
	if s := Step(42).String(); s != "Step(42)" {
		t.Fatalf("String() = %q, want %q", s, "Step(42)")
	}

	err := &InitError{Step: StepToplevel, Err: ErrNoShell}
	if err.Error() != "toplevel: compositor did not advertise xdg_wm_base" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
