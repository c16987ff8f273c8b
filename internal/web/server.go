// Package web exposes the test engine over a small JSON control plane.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/user/meshwatch/internal/engine"
	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/topology"
	"github.com/user/meshwatch/internal/util"
)

// Server is the web control plane.
type Server struct {
	eng    *engine.Engine
	feed   *engine.Feed
	source topology.Source
	port   int
	srv    *http.Server
}

// NewServer creates a new control plane server.
func NewServer(eng *engine.Engine, feed *engine.Feed, source topology.Source, port int) *Server {
	return &Server{eng: eng, feed: feed, source: source, port: port}
}

// Start registers routes and serves until Stop or process shutdown.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/start_test", s.handleStart)
	mux.HandleFunc("/api/stop_test", s.handleStop)
	mux.HandleFunc("/api/pause_test", s.handlePause)
	mux.HandleFunc("/api/resume_test", s.handleResume)
	mux.HandleFunc("/api/retest_device", s.handleRetest)
	mux.HandleFunc("/api/test_status/", s.handleStatus)
	mux.HandleFunc("/api/progress/", s.handleProgress)
	mux.HandleFunc("/api/logs/", s.handleLogs)
	mux.HandleFunc("/api/topology", s.handleTree)
	mux.HandleFunc("/api/topology/refresh", s.handleTopologyRefresh)
	mux.HandleFunc("/api/topology/summary", s.handleTopologySummary)
	mux.HandleFunc("/api/topology/lookup", s.handleTopologyLookup)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	util.Info("Control plane listening on port %d", s.port)

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// startRequest is the body of start, stop, pause, resume and retest calls.
type startRequest struct {
	TestType   string `json:"test_type"`
	IP         string `json:"ip"`
	Label      string `json:"label"`
	Parameters struct {
		PacketCount int `json:"packet_count"`
		Timeout     int `json:"timeout"`
	} `json:"parameters"`
}

func (r startRequest) params() engine.Params {
	return engine.Params{
		PacketCount: r.Parameters.PacketCount,
		Budget:      time.Duration(r.Parameters.Timeout) * time.Second,
	}
}

// requirePost rejects non-POST calls to mutating endpoints.
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return false
	}
	return true
}

func decodeRequest(r *http.Request) (startRequest, model.Kind, error) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, "", fmt.Errorf("bad request body: %w", err)
	}
	kind, err := model.ParseKind(req.TestType)
	if err != nil {
		return req, "", err
	}
	return req, kind, nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	req, kind, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.eng.Start(kind, req.params()); err != nil {
		if err == engine.ErrAlreadyRunning {
			writeError(w, http.StatusConflict, "Test already running")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("%s test started", kind)})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	_, kind, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.eng.Registry().RequestStop(kind)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Test stopped"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	_, kind, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.eng.Registry().RequestPause(kind)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Test paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	_, kind, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.eng.Registry().RequestResume(kind)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Test resumed"})
}

func (s *Server) handleRetest(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	req, kind, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.eng.Retest(kind, req.IP, req.Label, req.params()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Retest started for %s", req.Label)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r.URL.Path, "/api/test_status/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.eng.Registry().Status(kind))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r.URL.Path, "/api/progress/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := map[string]any{"events": s.feed.Events(kind)}
	if msg := s.feed.LastError(kind); msg != "" {
		resp["error"] = msg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r.URL.Path, "/api/logs/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := s.eng.Registry().Status(kind)
	if state.LogFile == "" {
		writeJSON(w, http.StatusOK, map[string]any{"logs": "No logs available"})
		return
	}
	content, err := os.ReadFile(state.LogFile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": string(content)})
}

// handleTree runs the topology command and returns the raw status dump.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	output, err := s.source.Fetch(nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"output":    strings.TrimSpace(output),
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	})
}

func (s *Server) handleTopologyRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Cache().Refresh(nil); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": s.eng.Cache().Summary()})
}

func (s *Server) handleTopologySummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    s.eng.Cache().Summary(),
		"fetched_at": s.eng.Cache().FetchedAt(),
	})
}

func (s *Server) handleTopologyLookup(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address query parameter is required")
		return
	}
	hops, found := s.eng.Cache().Lookup(address)
	resp := map[string]any{"address": address, "found": found}
	if found {
		resp["hop_count"] = hops
	}
	writeJSON(w, http.StatusOK, resp)
}

func kindFromPath(path, prefix string) (model.Kind, error) {
	return model.ParseKind(strings.TrimPrefix(path, prefix))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Warn("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}
