package webapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/internal/workflow"
	"github.com/irenevoice/irenecore/pkg/audio"
)

const dashboardHTML = `<!doctype html>
<html><head><title>irenecore</title></head>
<body><h1>irenecore</h1><p>Voice assistant core runtime is running.</p>
<ul><li><a href="/status">/status</a></li><li><a href="/components">/components</a></li>
<li><a href="/system/capabilities">/system/capabilities</a></li>
<li><a href="/asyncapi.html">/asyncapi.html</a></li></ul></body></html>`

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(dashboardHTML))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"components": s.componentStatus()})
}

func (s *Server) handleComponents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.componentStatus())
}

func (s *Server) componentStatus() []core.Status {
	if s.manager == nil {
		return []core.Status{}
	}
	return s.manager.Status()
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	caps := map[string]bool{}
	for _, st := range s.componentStatus() {
		caps[st.Name] = st.State == "running"
	}
	profile := "headless"
	if s.manager != nil {
		profile = string(s.manager.DeploymentProfile())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deployment_profile": profile,
		"capabilities":        caps,
	})
}

func decodeCommandRequest(r *http.Request) (CommandRequest, error) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return CommandRequest{}, fmt.Errorf("decoding command request: %w", err)
	}
	if req.Command == "" {
		return CommandRequest{}, fmt.Errorf("command must not be empty")
	}
	return req, nil
}

func (s *Server) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommandRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Success: false, Error: err.Error()})
		return
	}
	result, err := s.engine.ProcessText(r.Context(), req.Command, sessionIDFor(r), true, workflow.ClientContext{Extra: req.Metadata}, nil)
	writeJSON(w, http.StatusOK, commandResponseFrom(result, err))
}

func (s *Server) handleExecuteAudio(w http.ResponseWriter, r *http.Request) {
	frame, err := decodeAudioUpload(w, r)
	if err != nil {
		writeStatus, body := audioUploadError(err)
		writeJSON(w, writeStatus, body)
		return
	}
	result, err := s.engine.ProcessAudioInput(r.Context(), frame, sessionIDFor(r), true, workflow.ClientContext{SkipWakeWord: true}, nil)
	writeJSON(w, http.StatusOK, commandResponseFrom(result, err))
}

func (s *Server) handleTraceCommand(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommandRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, TraceCommandResponse{Success: false, Error: err.Error(), Timestamp: time.Now().Unix()})
		return
	}
	trace := workflow.NewTraceContext()
	start := time.Now()
	result, err := s.engine.ProcessText(r.Context(), req.Command, sessionIDFor(r), true, workflow.ClientContext{Extra: req.Metadata}, trace)
	writeJSON(w, http.StatusOK, traceResponseFrom(result, err, trace, start))
}

func (s *Server) handleTraceAudio(w http.ResponseWriter, r *http.Request) {
	frame, err := decodeAudioUpload(w, r)
	if err != nil {
		writeStatus, _ := audioUploadError(err)
		writeJSON(w, writeStatus, TraceCommandResponse{Success: false, Error: err.Error(), Timestamp: time.Now().Unix()})
		return
	}
	trace := workflow.NewTraceContext()
	start := time.Now()
	result, err := s.engine.ProcessAudioInput(r.Context(), frame, sessionIDFor(r), true, workflow.ClientContext{SkipWakeWord: true}, trace)
	writeJSON(w, http.StatusOK, traceResponseFrom(result, err, trace, start))
}

func sessionIDFor(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	return contextmgr.GenerateSessionID("web", "", "")
}

func commandResponseFrom(result intent.Result, err error) CommandResponse {
	if err != nil {
		return CommandResponse{Success: false, Error: err.Error()}
	}
	return CommandResponse{
		Success:  result.Success,
		Response: result.Text,
		Metadata: result.Metadata,
	}
}

func traceResponseFrom(result intent.Result, err error, trace *workflow.TraceContext, start time.Time) TraceCommandResponse {
	stages := make([]PipelineStageTrace, 0, len(trace.Records()))
	breakdown := make(map[string]int64, len(trace.Records()))
	for _, rec := range trace.Records() {
		stages = append(stages, PipelineStageTrace{
			Stage:            rec.Stage,
			Input:            rec.Input,
			Output:           rec.Output,
			Metadata:         rec.Metadata,
			ProcessingTimeMs: rec.ProcessingTimeMs,
		})
		breakdown[rec.Stage] += rec.ProcessingTimeMs
	}

	resp := TraceCommandResponse{
		Success:     err == nil && result.Success,
		FinalResult: result.Text,
		ExecutionTrace: ExecutionTrace{
			RequestID:      uuid.New().String(),
			PipelineStages: stages,
			PerformanceMetrics: PerformanceMetrics{
				TotalProcessingTimeMs: time.Since(start).Milliseconds(),
				StageBreakdown:        breakdown,
				TotalStages:           len(stages),
			},
		},
		Timestamp: time.Now().Unix(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

type audioTooLargeError struct{ limit int64 }

func (e audioTooLargeError) Error() string { return "Audio file too large" }

func audioUploadError(err error) (int, CommandResponse) {
	if _, ok := err.(audioTooLargeError); ok {
		return http.StatusRequestEntityTooLarge, CommandResponse{Success: false, Error: err.Error()}
	}
	return http.StatusBadRequest, CommandResponse{Success: false, Error: err.Error()}
}

// decodeAudioUpload reads the audio_file multipart field, enforcing
// maxAudioUploadBytes (spec §8 scenario 6: a 413 on oversize, no downstream
// pipeline invocation).
func decodeAudioUpload(w http.ResponseWriter, r *http.Request) (audio.AudioFrame, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes+1)
	if err := r.ParseMultipartForm(maxAudioUploadBytes + 1); err != nil {
		return audio.AudioFrame{}, audioTooLargeError{limit: maxAudioUploadBytes}
	}
	file, _, err := r.FormFile("audio_file")
	if err != nil {
		return audio.AudioFrame{}, fmt.Errorf("reading audio_file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes+1))
	if err != nil {
		return audio.AudioFrame{}, fmt.Errorf("reading audio upload: %w", err)
	}
	if int64(len(data)) > maxAudioUploadBytes {
		return audio.AudioFrame{}, audioTooLargeError{limit: maxAudioUploadBytes}
	}
	return audio.AudioFrame{Data: data, Encoding: audio.EncodingPCM16}, nil
}
