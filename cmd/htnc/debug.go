package main

import (
	"expvar"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/alexshafranov/derplanner-sub000/pkg/compiler"
)

// published under /debug/vars
var (
	filesCompiled = expvar.NewInt("htnc_files_compiled")
	filesFailed   = expvar.NewInt("htnc_files_failed")
	// failed compilations by the phase that stopped them
	stoppedIn = expvar.NewMap("htnc_stopped_in")
	// diagnostics by code
	diagnostics = expvar.NewMap("htnc_diagnostics")
)

func countResult(res compiler.Result) {
	filesCompiled.Add(1)
	if res.OK() {
		return
	}
	filesFailed.Add(1)
	stoppedIn.Add(res.Reached.String(), 1)
	for _, d := range res.Diagnostics {
		diagnostics.Add(d.Kind.Code(), 1)
	}
}

// setupDebugHandlers serves the compile counters and CPU/heap profiles on
// addr in the background. Long-running `htnc serve` sessions are what it is
// for.
func setupDebugHandlers(addr string) error {
	m := http.NewServeMux()
	m.Handle("/debug/vars", expvar.Handler())
	m.HandleFunc("/debug/pprof/", pprof.Index)
	m.HandleFunc("/debug/pprof/profile", pprof.Profile)
	m.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	m.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	m.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: m, ReadHeaderTimeout: 5 * time.Second}
	slog.Info("debug handlers listening", "debugAddr", l.Addr().String())
	go srv.Serve(l) //nolint:errcheck
	return nil
}
