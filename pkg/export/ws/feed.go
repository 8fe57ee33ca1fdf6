// Package ws serves radio state snapshots to UI clients over
// websocket as a periodic JSON stream.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/rcwire/elrsctl/pkg/framework"
	"github.com/rcwire/elrsctl/pkg/state"
)

// DefaultInterval is the snapshot period pushed to each client.
const DefaultInterval = 200 * time.Millisecond

// Feed streams state snapshots to each connected client.
type Feed struct {
	State    *state.RadioState
	Interval time.Duration
}

type frame struct {
	Status    string              `json:"status"`
	Mode      string              `json:"mode"`
	Telemetry state.LiveTelemetry `json:"telemetry"`
	Fresh     bool                `json:"fresh"`
	Spectrum  []int               `json:"spectrum,omitempty"`
}

// Handler returns the websocket endpoint.
func (f *Feed) Handler() http.Handler {
	return websocket.Handler(f.serve)
}

func (f *Feed) serve(conn *websocket.Conn) {
	defer conn.Close()
	interval := f.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	glog.V(2).Infof("ws client connected: %s", conn.Request().RemoteAddr)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		snap := frame{
			Status:    f.State.ConnectionStatus().String(),
			Mode:      f.State.Mode().String(),
			Telemetry: f.State.LiveTelemetry(),
			Fresh:     f.State.TelemetryFresh(time.Second),
		}
		if f.State.SpectrumFresh(time.Second) {
			snap.Spectrum, _ = f.State.Spectrum()
		}
		payload, err := json.Marshal(&snap)
		if err != nil {
			glog.Errorf("marshal ws frame: %v", err)
			return
		}
		if err := websocket.Message.Send(conn, string(payload)); err != nil {
			glog.V(2).Infof("ws client gone: %v", err)
			return
		}
	}
}

// Server exposes a Feed on an HTTP listen address.
type Server struct {
	Addr string
	Feed *Feed
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "ws-server"
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/telemetry", s.Feed.Handler())
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	return framework.RunWithContextCloser(ctx, srv, func() error {
		err := srv.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
}
