// Package server exposes the color update service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/neopixel-ap/internal/config"
	"github.com/coreman2200/neopixel-ap/internal/update"
	"github.com/coreman2200/neopixel-ap/internal/web"
	"github.com/coreman2200/neopixel-ap/internal/ws"
)

// Info describes the active backend for /health.
type Info struct {
	Driver   string
	TickFreq physic.Frequency
}

type Server struct {
	svc   *update.Service
	hub   *ws.Hub
	info  Info
	start time.Time
}

func New(svc *update.Service, hub *ws.Hub, info Info) *Server {
	return &Server{svc: svc, hub: hub, info: info, start: time.Now()}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/led", s.handleLED)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.hub.HandleColorsWS)
	mux.HandleFunc("/diag", s.hub.HandleDiagWS)
	mux.HandleFunc("/control", s.hub.HandleControlWS)
	return withCORS(mux)
}

// NewHTTPServer applies the configured timeouts.
func NewHTTPServer(h http.Handler, cfg config.HTTP) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(web.Index)
}

func (s *Server) handleLED(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	lg := log.With().
		Str("req_id", uuid.NewString()).
		Str("remote", r.RemoteAddr).
		Logger()
	// An accepted request is transmitted even if the client hangs up.
	ctx := lg.WithContext(context.WithoutCancel(r.Context()))

	// One byte past the limit is enough to tell an oversized body apart.
	body, err := io.ReadAll(io.LimitReader(r.Body, update.RequestLen+1))
	if err != nil {
		lg.Warn().Err(err).Msg("read request body")
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	c, err := s.svc.Handle(ctx, body)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.Bytes())
}

// StatusFor maps a color update error to its HTTP status.
func StatusFor(err error) int {
	var reqErr *update.RequestError
	if !errors.As(err, &reqErr) {
		return http.StatusInternalServerError
	}
	switch reqErr.Kind {
	case update.MalformedBody:
		return http.StatusBadRequest
	case update.EncodingFailed:
		return http.StatusInternalServerError
	case update.TransmitFailed:
		if update.IsShutdown(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type health struct {
	Status   string       `json:"status"`
	Driver   string       `json:"driver"`
	TickFreq string       `json:"tick_freq"`
	UptimeS  float64      `json:"uptime_s"`
	Last     string       `json:"last,omitempty"`
	Stats    update.Stats `json:"stats"`
	Clients  int          `json:"ws_clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Stats()
	colors, diags := s.hub.Clients()
	resp := health{
		Status:   "ok",
		Driver:   s.info.Driver,
		TickFreq: s.info.TickFreq.String(),
		UptimeS:  time.Since(s.start).Seconds(),
		Stats:    st,
		Clients:  colors + diags,
	}
	if st.Last != nil {
		resp.Last = st.Last.String()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
