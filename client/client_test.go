package wl

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"deedles.dev/wlwin/internal/wltest"
	"deedles.dev/wlwin/protocol"
)

func connect(t *testing.T, opts ...wltest.Option) (*wltest.Server, *State) {
	t.Helper()

	srv := wltest.Start(t, opts...)
	state := NewState(srv.Conn())
	t.Cleanup(func() { state.Close() })
	return srv, state
}

func TestRoundTripGlobals(t *testing.T) {
	_, state := connect(t)

	registry := state.Display().GetRegistry()
	if registry != state.Display().GetRegistry() {
		t.Fatal("GetRegistry() created a second registry")
	}

	err := state.RoundTrip(context.Background())
	if err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}

	globals := registry.Globals()
	if len(globals) != 3 {
		t.Fatalf("got %v globals, want 3: %v", len(globals), globals)
	}
	if g := globals[3]; g.Interface != "xdg_wm_base" || g.Version != 6 {
		t.Fatalf("global 3 = %+v, want xdg_wm_base version 6", g)
	}

	// The sync callback is gone, leaving the display and the registry.
	if n := state.Objects(); n != 2 {
		t.Fatalf("Objects() = %v, want 2", n)
	}
}

type recordingRegistry struct {
	added   []string
	removed []uint32
}

func (r *recordingRegistry) Global(name uint32, inter string, version uint32) {
	r.added = append(r.added, inter)
}

func (r *recordingRegistry) GlobalRemove(name uint32) {
	r.removed = append(r.removed, name)
}

func TestRegistryListener(t *testing.T) {
	srv, state := connect(t)
	ctx := context.Background()

	var listener recordingRegistry
	registry := state.Display().GetRegistry()
	registry.Listener = &listener
	if err := state.RoundTrip(ctx); err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}

	want := []string{"wl_compositor", "wl_shm", "xdg_wm_base"}
	if !slices.Equal(listener.added, want) {
		t.Fatalf("globals announced as %v, want %v", listener.added, want)
	}

	if err := srv.RemoveGlobal(2); err != nil {
		t.Fatalf("RemoveGlobal() error: %v", err)
	}
	if err := state.RoundTrip(ctx); err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}
	if !slices.Equal(listener.removed, []uint32{2}) {
		t.Fatalf("removed globals = %v, want [2]", listener.removed)
	}
	if _, ok := registry.Globals()[2]; ok {
		t.Fatal("removed global is still listed")
	}
}

func TestCreateSurface(t *testing.T) {
	srv, state := connect(t)
	ctx := context.Background()

	registry := state.Display().GetRegistry()
	if err := state.RoundTrip(ctx); err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}

	compositor := BindCompositor(state, registry, 1, 1)
	surface := compositor.CreateSurface()
	surface.Damage(1, 2, 10, 20)
	surface.Commit()
	if err := state.RoundTrip(ctx); err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}

	if binds := srv.Binds(); !slices.Equal(binds, []string{"wl_compositor"}) {
		t.Fatalf("Binds() = %v, want [wl_compositor]", binds)
	}
	if d := srv.Damage(); !slices.Equal(d, []wltest.Rect{{X: 1, Y: 2, Width: 10, Height: 20}}) {
		t.Fatalf("Damage() = %v, want [{1 2 10 20}]", d)
	}
	if n := srv.Commits(); n != 1 {
		t.Fatalf("Commits() = %v, want 1", n)
	}
	if surface.String() != "wl_surface@5" {
		t.Fatalf("surface is %v, want wl_surface@5", surface)
	}

	surface.Destroy()
	if err := state.RoundTrip(ctx); err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}
	if d := srv.Destroyed(); !slices.Equal(d, []string{"wl_surface"}) {
		t.Fatalf("Destroyed() = %v, want [wl_surface]", d)
	}
	if err := srv.Err(); err != nil {
		t.Fatalf("server error: %v", err)
	}
}

func TestProtocolError(t *testing.T) {
	srv, state := connect(t)

	if err := srv.Error(1, 3, "broken"); err != nil {
		t.Fatalf("Error() error: %v", err)
	}

	err := state.Dispatch(context.Background())
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("Dispatch() error = %v, want a *ProtocolError", err)
	}
	if (perr.Interface != "wl_display") || (perr.Code != 3) || (perr.Message != "broken") {
		t.Fatalf("protocol error = %+v", perr)
	}
	if !errors.As(state.Err(), &perr) {
		t.Fatalf("Err() = %v, want the protocol error", state.Err())
	}
	if err := state.Flush(); err == nil {
		t.Fatal("Flush() succeeded on a failed connection")
	}
}

func TestHangup(t *testing.T) {
	srv, state := connect(t)
	srv.Hangup()

	err := state.Dispatch(context.Background())
	if err == nil {
		t.Fatal("Dispatch() succeeded after the compositor hung up")
	}
	if state.Err() == nil {
		t.Fatal("Err() = nil after the compositor hung up")
	}
}

func TestRoundTripContext(t *testing.T) {
	_, state := connect(t, wltest.WithoutSync())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := state.RoundTrip(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RoundTrip() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestClose(t *testing.T) {
	_, state := connect(t)

	if err := state.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := state.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if err := state.RoundTrip(context.Background()); err == nil {
		t.Fatal("RoundTrip() succeeded on a closed connection")
	}
}

func TestOpcodes(t *testing.T) {
	tests := []struct {
		iface   string
		request bool
		op      uint16
		name    string
	}{
		{DisplayInterface, true, displaySync, "sync"},
		{DisplayInterface, true, displayGetRegistry, "get_registry"},
		{DisplayInterface, false, displayError, "error"},
		{DisplayInterface, false, displayDeleteID, "delete_id"},
		{RegistryInterface, true, registryBind, "bind"},
		{RegistryInterface, false, registryGlobal, "global"},
		{RegistryInterface, false, registryGlobalRemove, "global_remove"},
		{CallbackInterface, false, callbackDone, "done"},
		{CompositorInterface, true, compositorCreateSurface, "create_surface"},
		{CompositorInterface, true, compositorCreateRegion, "create_region"},
		{SurfaceInterface, true, surfaceDestroy, "destroy"},
		{SurfaceInterface, true, surfaceDamage, "damage"},
		{SurfaceInterface, true, surfaceCommit, "commit"},
		{SurfaceInterface, false, surfaceEnter, "enter"},
		{SurfaceInterface, false, surfaceLeave, "leave"},
	}

	for _, test := range tests {
		iface, ok := protocol.Find(test.iface)
		if !ok {
			t.Fatalf("interface %v not found", test.iface)
		}

		name := iface.EventName(test.op)
		if test.request {
			name = iface.RequestName(test.op)
		}
		if name != test.name {
			t.Errorf("%v opcode %v is %q, want %q", test.iface, test.op, name, test.name)
		}
	}
}

func TestProtocolErrorString(t *testing.T) {
	err := &ProtocolError{ObjectID: 5, Interface: "xdg_surface", Code: 1, Message: "bad"}
	want := "protocol error on xdg_surface@5: code 1: bad"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
