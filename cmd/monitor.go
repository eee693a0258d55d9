package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

// monitor exposes inference progress over expvar/HTTP, grounded on
// grample's own process monitor but retargeted at the signals this
// package's iterative engines and EM actually produce (iteration count,
// last objective delta) instead of Gibbs-chain burn-in/convergence stats.
type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	Algorithm string
	Task      string

	Iterations   *expvar.Int
	IBound       *expvar.Int
	RunTime      *expvar.Float
	LastObjDelta *expvar.Float
}

// Start begins the monitor.
func (m *monitor) Start() error {
	if m.info != nil {
		return errors.Errorf("BUG: you may only start the process monitor once")
	}

	m.info = expvar.NewMap("merlin-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: ":8000",
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.Iterations = expvar.NewInt("Iterations")
	m.IBound = expvar.NewInt("I-Bound")
	m.RunTime = expvar.NewFloat("Run-Time")
	m.LastObjDelta = expvar.NewFloat("Last-Objective-Delta")

	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see /debug/vars)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

// Stop shuts the monitor's HTTP server down, waiting up to two seconds for
// a graceful close before giving up.
func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP info stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
