// Package api exposes the driver's control operations over a small
// JSON HTTP surface, for configuration tooling and tests. It is a thin
// translation layer: all semantics live in the driver core.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sdr-control/sdrc/internal/auth"
	"github.com/sdr-control/sdrc/internal/driver"
	"github.com/sdr-control/sdrc/internal/subdev"
	"github.com/sdr-control/sdrc/internal/telemetry"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// Server serves the control API.
type Server struct {
	drv      *driver.Driver
	hub      *telemetry.Hub
	verifier *auth.Verifier
	log      *log.Logger
	httpSrv  *http.Server
}

// NewServer builds the API server. hub and verifier may be nil.
func NewServer(drv *driver.Driver, hub *telemetry.Hub, verifier *auth.Verifier, logger *log.Logger) *Server {
	return &Server{drv: drv, hub: hub, verifier: verifier, log: logger}
}

// Routes builds the route table.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/mboards", s.guard(s.handleListMboards))
	mux.HandleFunc("GET /api/v1/mboards/{mb}", s.guard(s.handleGetMboard))
	mux.HandleFunc("GET /api/v1/mboards/{mb}/hints", s.guard(s.handleHints))
	mux.HandleFunc("PUT /api/v1/mboards/{mb}/subdev_spec", s.guard(s.handleSubdevSpec))
	mux.HandleFunc("PUT /api/v1/mboards/{mb}/tick_rate", s.guard(s.handleTickRate))
	mux.HandleFunc("PUT /api/v1/mboards/{mb}/samp_rate", s.guard(s.handleSampRate))
	mux.HandleFunc("POST /api/v1/streams", s.guard(s.handleCreateStream))
	mux.HandleFunc("POST /api/v1/streams/release", s.guard(s.handleReleaseStream))
	mux.HandleFunc("POST /api/v1/streams/hooks", s.guard(s.handleStreamHooks))
	mux.HandleFunc("GET /api/v1/events", s.guard(s.handleEvents))
	return mux
}

func (s *Server) guard(h http.HandlerFunc) http.HandlerFunc {
	return auth.RequireAuth(s.verifier, h)
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("control API listening", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

type mboardSummary struct {
	Index        int     `json:"index"`
	TickRate     float64 `json:"tickRate"`
	Transport    string  `json:"transport"`
	NumRadios    int     `json:"numRadios"`
	RxSubdevSpec string  `json:"rxSubdevSpec"`
	TxSubdevSpec string  `json:"txSubdevSpec"`
}

func (s *Server) handleListMboards(w http.ResponseWriter, r *http.Request) {
	items := make([]mboardSummary, 0, s.drv.NumMboards())
	for i := 0; i < s.drv.NumMboards(); i++ {
		mb, _ := s.drv.Mboard(i)
		items = append(items, mboardSummary{
			Index:        mb.Index,
			TickRate:     mb.TickRate,
			Transport:    string(mb.XportPath),
			NumRadios:    mb.NumRadios(),
			RxSubdevSpec: mb.RxSubdevSpec,
			TxSubdevSpec: mb.TxSubdevSpec,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetMboard(w http.ResponseWriter, r *http.Request) {
	idx, err := s.mboardIndex(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	mb, err := s.drv.Mboard(idx)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mboardSummary{
		Index:        mb.Index,
		TickRate:     mb.TickRate,
		Transport:    string(mb.XportPath),
		NumRadios:    mb.NumRadios(),
		RxSubdevSpec: mb.RxSubdevSpec,
		TxSubdevSpec: mb.TxSubdevSpec,
	})
}

func (s *Server) handleHints(w http.ResponseWriter, r *http.Request) {
	idx, err := s.mboardIndex(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	switch dir := r.URL.Query().Get("direction"); dir {
	case "rx", "":
		writeJSON(w, http.StatusOK, s.drv.RxHints(idx))
	case "tx":
		writeJSON(w, http.StatusOK, s.drv.TxHints(idx))
	default:
		writeBadRequest(w, fmt.Sprintf("bad direction %q", dir))
	}
}

func (s *Server) handleSubdevSpec(w http.ResponseWriter, r *http.Request) {
	idx, err := s.mboardIndex(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req struct {
		Direction string `json:"direction"`
		Spec      string `json:"spec"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	spec, err := subdev.ParseSpec(req.Spec)
	if err != nil {
		writeOpError(w, err)
		return
	}
	if err := s.drv.UpdateSubdevSpec(subdev.Direction(req.Direction), idx, spec); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleTickRate(w http.ResponseWriter, r *http.Request) {
	idx, err := s.mboardIndex(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if err := s.drv.UpdateTickRate(idx, req.Rate); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleSampRate(w http.ResponseWriter, r *http.Request) {
	idx, err := s.mboardIndex(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req struct {
		Direction string  `json:"direction"`
		Dsp       int     `json:"dsp"`
		Rate      float64 `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	switch subdev.Direction(req.Direction) {
	case subdev.RX:
		err = s.drv.UpdateRxSampRate(idx, req.Dsp, req.Rate)
	case subdev.TX:
		err = s.drv.UpdateTxSampRate(idx, req.Dsp, req.Rate)
	default:
		writeBadRequest(w, fmt.Sprintf("bad direction %q", req.Direction))
		return
	}
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Mboard    int    `json:"mboard"`
		Dsps      []int  `json:"dsps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	id, err := s.drv.CreateStream(subdev.Direction(req.Direction), req.Mboard, req.Dsps)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"channel": id})
}

func (s *Server) handleReleaseStream(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Channel   string `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if err := s.drv.ReleaseStream(subdev.Direction(req.Direction), req.Channel); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleStreamHooks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tx bool `json:"tx"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if err := s.drv.PostStreamSetupHook(req.Tx); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// handleEvents streams telemetry events as server-sent events until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NOT_FOUND", Message: "telemetry disabled"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "streaming unsupported"})
		return
	}
	events, cancel := s.hub.Subscribe(64)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func (s *Server) mboardIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(r.PathValue("mb"))
	if err != nil {
		return 0, fmt.Errorf("bad mboard index %q", r.PathValue("mb"))
	}
	return idx, nil
}
