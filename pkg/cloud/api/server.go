// Package api pkg/cloud/api/server.go serves the dashboard HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwelling79/pumpwatch/pkg/config"
	"github.com/mwelling79/pumpwatch/pkg/db"
	httpx "github.com/mwelling79/pumpwatch/pkg/http"
	"github.com/mwelling79/pumpwatch/pkg/metrics"
	"github.com/mwelling79/pumpwatch/pkg/models"
	"github.com/mwelling79/pumpwatch/pkg/pipeline"
)

const defaultHistoryLimit = 200

// APIServer converts pipeline results and store queries into JSON
// responses. It owns no business logic beyond parameter parsing and
// error-to-status mapping.
type APIServer struct {
	cfg      *config.Config
	store    db.Service
	pipeline pipeline.Service
	feed     *FeedHub
	router   *mux.Router
}

// NewAPIServer wires the routes.
func NewAPIServer(cfg *config.Config, store db.Service, pl pipeline.Service) *APIServer {
	s := &APIServer{
		cfg:      cfg,
		store:    store,
		pipeline: pl,
		feed:     NewFeedHub(),
		router:   mux.NewRouter(),
	}
	s.setupRoutes()

	return s
}

// Router exposes the handler for the lifecycle-managed HTTP server.
func (s *APIServer) Router() http.Handler {
	return s.router
}

func (s *APIServer) setupRoutes() {
	s.router.Use(httpx.CommonMiddleware)
	s.router.Use(httpx.RateLimitMiddleware(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

	s.router.HandleFunc("/api/health", s.getHealth).Methods("GET")
	s.router.HandleFunc("/api/login", s.handleLogin).Methods("GET", "POST", "OPTIONS")
	s.router.HandleFunc("/api/pumps", s.getPumps).Methods("GET")
	s.router.HandleFunc("/api/pumps/{id:[0-9]+}", s.getPumpDetails).Methods("GET")
	s.router.HandleFunc("/api/flowmeter", s.getFlowMeterLogs).Methods("GET")
	s.router.HandleFunc("/api/failures", s.getFailureLogs).Methods("GET")
	s.router.HandleFunc("/api/ml-alerts", s.getMLAlerts).Methods("GET")
	s.router.HandleFunc("/api/ws", s.feed.Register)

	s.router.Path("/metrics").Handler(promhttp.Handler())
}

func (s *APIServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response for %s: %v", r.URL.Path, err)
	}

	metrics.HTTPRequestsTotal.WithLabelValues(r.Method, routeTemplate(r), strconv.Itoa(status)).Inc()
}

// routeTemplate labels requests by their route pattern rather than the
// raw path, keeping metric cardinality bounded for parameterized routes.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}

	return r.URL.Path
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, r, status, errorResponse{Status: "error", Message: err.Error()})
}

func (s *APIServer) getHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", DB: true})
}

// handleLogin is the dummy dashboard login: static credentials, static
// token, no session state.
func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
		s.writeJSON(w, r, http.StatusOK, messageResponse{
			Message: "Login endpoint is alive. Use POST with JSON { username, password }.",
		})

		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = loginRequest{}
	}

	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)

	if username == "" || password == "" {
		s.writeJSON(w, r, http.StatusBadRequest, messageResponse{Message: "Username and password required"})
		return
	}

	if username != s.cfg.Auth.Username || password != s.cfg.Auth.Password {
		s.writeJSON(w, r, http.StatusUnauthorized, messageResponse{Message: "Invalid username or password"})
		return
	}

	s.writeJSON(w, r, http.StatusOK, loginResponse{
		Token: s.cfg.Auth.Token,
		User:  loginUser{Username: username},
	})
}

func (s *APIServer) getPumps(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	statuses, err := s.store.GetLatestPumpStatus(r.Context(), s.cfg.Pipeline.AllowedPumps, search)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	if statuses == nil {
		statuses = []models.PumpStatus{}
	}

	s.writeJSON(w, r, http.StatusOK, statuses)
}

func (s *APIServer) getPumpDetails(w http.ResponseWriter, r *http.Request) {
	pumpID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit)

	detail, err := s.store.GetPumpDetail(r.Context(), pumpID)
	if err != nil {
		if errors.Is(err, db.ErrPumpNotFound) {
			s.writeError(w, r, http.StatusNotFound, err)
			return
		}

		s.writeError(w, r, http.StatusInternalServerError, err)

		return
	}

	history, err := s.store.GetPumpHistory(r.Context(), pumpID, limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	if history == nil {
		history = []models.PumpHistoryPoint{}
	}

	s.writeJSON(w, r, http.StatusOK, pumpDetailResponse{Pump: detail, History: history})
}

func (s *APIServer) getFlowMeterLogs(w http.ResponseWriter, r *http.Request) {
	meterIDs := make([]int64, 0, len(s.cfg.Pipeline.FlowMeters))
	for _, fm := range s.cfg.Pipeline.FlowMeters {
		meterIDs = append(meterIDs, fm.FlowMeterID)
	}

	window := db.TimeWindow{Start: s.cfg.Pipeline.WindowStart}

	logs, err := s.store.GetFlowMeterLogs(r.Context(), window, meterIDs)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	if logs == nil {
		logs = []models.FlowMeterLog{}
	}

	s.writeJSON(w, r, http.StatusOK, logs)
}

func (s *APIServer) getFailureLogs(w http.ResponseWriter, r *http.Request) {
	filter := db.FailureFilter{
		PumpID: int64(queryInt(r, "pumpId", 0)),
		SiteID: int64(queryInt(r, "siteId", 0)),
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  queryInt(r, "limit", 0),
	}

	switch r.URL.Query().Get("isPumpFailure") {
	case "1":
		v := true
		filter.IsPumpFailure = &v
	case "0":
		v := false
		filter.IsPumpFailure = &v
	}

	logs, err := s.store.GetFailureLogs(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	if logs == nil {
		logs = []models.FailureLog{}
	}

	s.writeJSON(w, r, http.StatusOK, logs)
}

func (s *APIServer) getMLAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	records, err := s.pipeline.DetectAnomalies(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.feed.Broadcast(records)
	s.writeJSON(w, r, http.StatusOK, records)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
