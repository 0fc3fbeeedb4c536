// Package webapi implements the HTTP + WebSocket surface spec §4.10
// describes: text/audio command execution, traced execution, component and
// system status, a served dashboard, and an AsyncAPI document generated
// from the registered WebSocket routes.
//
// Grounded on internal/health/health.go's Handler shape (a small set of
// dependencies, routes registered onto a caller-owned *http.ServeMux via a
// Register method, JSON responses written through one helper) and on
// internal/input/web/web.go for the Source this package feeds text/audio
// into over WebSocket.
package webapi

import (
	"encoding/json"
	"net/http"

	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/internal/input/web"
	"github.com/irenevoice/irenecore/internal/workflow"
)

// maxAudioUploadBytes is the multipart audio_file size limit spec §4.10 and
// §8 scenario 6 require; exceeding it is an HTTP 413, not a pipeline error.
const maxAudioUploadBytes = 10 * 1024 * 1024

// Server serves the web API surface. It holds no input-source-specific
// state of its own beyond what it needs to push WebSocket traffic into the
// web input source; command execution always goes through engine.
type Server struct {
	engine    *workflow.Engine
	manager   *core.Manager
	webSource *web.Source
	asyncAPI  *AsyncAPIDocument
}

// New creates a Server. manager may be nil (status/components endpoints
// then report an empty set) for deployments running the workflow engine
// without a full component manager, but engine and webSource are required.
func New(engine *workflow.Engine, manager *core.Manager, webSource *web.Source) *Server {
	return &Server{
		engine:    engine,
		manager:   manager,
		webSource: webSource,
		asyncAPI:  NewAsyncAPIDocument(),
	}
}

// Register mounts every route this package serves onto mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /execute/command", s.handleExecuteCommand)
	mux.HandleFunc("POST /execute/audio", s.handleExecuteAudio)
	mux.HandleFunc("POST /trace/command", s.handleTraceCommand)
	mux.HandleFunc("POST /trace/audio", s.handleTraceAudio)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /components", s.handleComponents)
	mux.HandleFunc("GET /system/status", s.handleStatus)
	mux.HandleFunc("GET /system/capabilities", s.handleCapabilities)
	mux.HandleFunc("GET /asyncapi.yaml", s.handleAsyncAPIYAML)
	mux.HandleFunc("GET /asyncapi.json", s.handleAsyncAPIJSON)
	mux.HandleFunc("GET /asyncapi.html", s.handleAsyncAPIHTML)
	mux.HandleFunc("GET /ws/audio/json", s.handleAudioJSONStream)
	mux.HandleFunc("GET /ws/audio/binary", s.handleAudioBinaryStream)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"success":false,"error":"encoding response"}`, http.StatusInternalServerError)
	}
}
