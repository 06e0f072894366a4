// Package monitor serves a small HTTP interface over a running calibration
// session: JSON progress, the captured samples, and a coverage chart.
package monitor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/capture"
	"github.com/banshee-data/calibkit/internal/dataset"
	"github.com/banshee-data/calibkit/internal/httputil"
)

// WebServer handles the HTTP interface for monitoring a capture session.
type WebServer struct {
	address     string
	server      *http.Server
	data        *dataset.Dataset
	session     *capture.Session
	store       *dataset.Store
	frameWidth  int
	frameHeight int
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address     string
	Dataset     *dataset.Dataset
	Session     *capture.Session // optional; nil in preview mode
	Store       *dataset.Store   // optional; registers fresh sessions on clear
	FrameWidth  int
	FrameHeight int
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:     config.Address,
		data:        config.Dataset,
		session:     config.Session,
		store:       config.Store,
		frameWidth:  config.FrameWidth,
		frameHeight: config.FrameHeight,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/session", ws.handleSession)
	mux.HandleFunc("/api/samples", ws.handleSamples)
	mux.HandleFunc("/charts/coverage", ws.handleCoverageChart)
	return mux
}

// Start begins the HTTP server in a goroutine and blocks until ctx is
// cancelled, then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("starting monitor server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start monitor server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("monitor server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("monitor server force close error: %v", err)
		}
	}
	return nil
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// sessionStatus is the JSON shape served by /api/session.
type sessionStatus struct {
	SessionID string     `json:"session_id"`
	BoardType board.Type `json:"board_type"`
	Width     int        `json:"board_width"`
	Height    int        `json:"board_height"`
	Samples   int        `json:"samples"`
	Captured  int        `json:"captured,omitempty"`
	Target    int        `json:"target,omitempty"`
	Complete  bool       `json:"complete"`
	Solved    bool       `json:"solved"`
	RMS       float64    `json:"rms,omitempty"`
}

func (ws *WebServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	g := ws.data.Geometry()
	status := sessionStatus{
		SessionID: ws.data.SessionID(),
		BoardType: g.Type,
		Width:     g.Size.Width,
		Height:    g.Size.Height,
		Samples:   ws.data.Len(),
	}
	if ws.session != nil {
		status.Captured = ws.session.Captured()
		status.Target = ws.session.Target()
		status.Complete = ws.session.IsComplete()
	}
	if results, ok := ws.data.Results(); ok {
		status.Solved = true
		status.RMS = results.TotalAvgErr
	}
	httputil.WriteJSONOK(w, status)
}

// handleSamples serves the captured-sample summaries on GET and discards the
// run on DELETE, starting a fresh session.
func (ws *WebServer) handleSamples(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ws.listSamples(w)
	case http.MethodDelete:
		ws.clearSamples(w)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (ws *WebServer) listSamples(w http.ResponseWriter) {
	type sampleSummary struct {
		Index       int   `json:"index"`
		TSUnixNanos int64 `json:"ts_unix_nanos"`
		Points      int   `json:"points"`
		Charuco     bool  `json:"charuco"`
	}
	samples := ws.data.Samples()
	out := make([]sampleSummary, 0, len(samples))
	for i, s := range samples {
		n := len(s.ImagePoints)
		if s.IsCharuco() {
			n = len(s.CharucoCorners)
		}
		out = append(out, sampleSummary{
			Index:       i,
			TSUnixNanos: s.TSUnixNanos,
			Points:      n,
			Charuco:     s.IsCharuco(),
		})
	}
	httputil.WriteJSONOK(w, out)
}

// clearSamples drops every sample and solved result, resets the capture
// session, and registers the replacement session with the store when one is
// attached so later appends keep persisting.
func (ws *WebServer) clearSamples(w http.ResponseWriter) {
	ws.data.Clear()
	if ws.session != nil {
		ws.session.Reset()
	}
	if ws.store != nil {
		if err := ws.store.CreateSession(ws.data.SessionID(), ws.data.Geometry(), ws.frameWidth, ws.frameHeight); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("register session: %v", err))
			return
		}
	}
	log.Printf("cleared capture run, new session %s", ws.data.SessionID())
	httputil.WriteJSONOK(w, map[string]string{"session_id": ws.data.SessionID()})
}
