// wlglobals lists the globals that the compositor advertises and
// reports whether it offers everything that wlwin needs.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	wl "deedles.dev/wlwin/client"
	"deedles.dev/wlwin/internal/debug"
	"deedles.dev/wlwin/internal/logging"
	"deedles.dev/wlwin/xdg"
	"github.com/rs/zerolog"
)

var required = []string{wl.CompositorInterface, xdg.WmBaseInterface}

type errorListener struct {
	log zerolog.Logger
}

func (l errorListener) Error(objectID, code uint32, message string) {
	l.log.Error().Uint32("id", objectID).Uint32("code", code).Str("msg", message).Msg("protocol error")
}

func (l errorListener) DeleteID(id uint32) {}

func listGlobals(ctx context.Context, state *wl.State, logger zerolog.Logger) ([]wl.Global, error) {
	state.Display().Listener = errorListener{log: logger}

	registry := state.Display().GetRegistry()
	err := state.RoundTrip(ctx)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}

	globals := make([]wl.Global, 0, len(registry.Globals()))
	for _, g := range registry.Globals() {
		globals = append(globals, g)
	}
	slices.SortFunc(globals, func(g1, g2 wl.Global) int {
		return cmp.Compare(g1.Name, g2.Name)
	})
	return globals, nil
}

// missing returns the required interfaces that are not in globals.
func missing(globals []wl.Global) []string {
	var r []string
	for _, inter := range required {
		ok := slices.ContainsFunc(globals, func(g wl.Global) bool { return g.Interface == inter })
		if !ok {
			r = append(r, inter)
		}
	}
	return r
}

func printGlobals(w io.Writer, globals []wl.Global) {
	for _, g := range globals {
		fmt.Fprintf(w, "%4d  %-40s v%d\n", g.Name, g.Interface, g.Version)
	}
}

func main() {
	timeout := flag.Duration("timeout", 5*time.Second, "round trip timeout, 0 for none")
	flag.Parse()

	logger := logging.New("wlglobals", zerolog.InfoLevel)
	debug.SetLogger(logger.Level(zerolog.DebugLevel))

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	state, err := wl.Dial()
	if err != nil {
		logger.Fatal().Err(err).Msg("dial display")
	}
	defer state.Close()

	globals, err := listGlobals(ctx, state, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("list globals")
	}
	printGlobals(os.Stdout, globals)

	if m := missing(globals); len(m) > 0 {
		logger.Warn().Strs("missing", m).Msg("compositor cannot host a wlwin window")
		os.Exit(1)
	}
}
