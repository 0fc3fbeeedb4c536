package webapi

import (
	"encoding/json"
	"html"
	"net/http"

	"gopkg.in/yaml.v3"
)

// AsyncAPIOperation documents one direction of a WebSocket channel.
type AsyncAPIOperation struct {
	Summary string         `yaml:"summary" json:"summary"`
	Message map[string]any `yaml:"message" json:"message"`
}

// AsyncAPIChannel is one entry in the document's channels map.
type AsyncAPIChannel struct {
	Description string              `yaml:"description" json:"description"`
	Tags        []string            `yaml:"tags,omitempty" json:"tags,omitempty"`
	Receive     *AsyncAPIOperation  `yaml:"receive,omitempty" json:"receive,omitempty"`
	Send        *AsyncAPIOperation  `yaml:"send,omitempty" json:"send,omitempty"`
}

// AsyncAPIDocument is the spec §4.10 "AsyncAPI 3.0.0 spec generated by
// scanning component routers for annotated WebSocket endpoints" — routers
// register their channel directly via [AsyncAPIDocument.RegisterChannel]
// instead of being scanned via reflection, since Go has no runtime route
// annotation facility equivalent to a decorator-based scanner.
type AsyncAPIDocument struct {
	Asyncapi string                     `yaml:"asyncapi" json:"asyncapi"`
	Info     map[string]string          `yaml:"info" json:"info"`
	Channels map[string]AsyncAPIChannel `yaml:"channels" json:"channels"`
}

// NewAsyncAPIDocument creates a document pre-populated with this package's
// own two ASR WebSocket channels (spec §6's base64-JSON and binary-PCM
// streams); component routers add their own via RegisterChannel.
func NewAsyncAPIDocument() *AsyncAPIDocument {
	doc := &AsyncAPIDocument{
		Asyncapi: "3.0.0",
		Info:     map[string]string{"title": "irenecore", "version": "1.0.0"},
		Channels: make(map[string]AsyncAPIChannel),
	}
	doc.RegisterChannel("/ws/audio/json", AsyncAPIChannel{
		Description: "Base64 JSON audio chunk stream for ASR",
		Tags:        []string{"asr"},
		Receive: &AsyncAPIOperation{
			Summary: "Client sends a base64-encoded audio chunk",
			Message: map[string]any{"type": "audio_chunk", "data": "base64", "language": "string?", "provider": "string?"},
		},
		Send: &AsyncAPIOperation{
			Summary: "Server sends a transcription result or error",
			Message: map[string]any{"type": "transcription_result | error"},
		},
	})
	doc.RegisterChannel("/ws/audio/binary", AsyncAPIChannel{
		Description: "Binary PCM audio stream for ASR",
		Tags:        []string{"asr"},
		Receive: &AsyncAPIOperation{
			Summary: "Client sends a session_config then raw PCM binary frames",
			Message: map[string]any{"type": "session_config | binary_websocket_protocol"},
		},
		Send: &AsyncAPIOperation{
			Summary: "Server sends session_ready, then transcription_result or error",
			Message: map[string]any{"type": "session_ready | transcription_result | error"},
		},
	})
	return doc
}

// RegisterChannel adds or replaces a component router's WebSocket channel
// documentation.
func (d *AsyncAPIDocument) RegisterChannel(path string, ch AsyncAPIChannel) {
	d.Channels[path] = ch
}

func (s *Server) handleAsyncAPIJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.asyncAPI)
}

func (s *Server) handleAsyncAPIYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(s.asyncAPI); err != nil {
		http.Error(w, "encoding asyncapi document", http.StatusInternalServerError)
	}
}

func (s *Server) handleAsyncAPIHTML(w http.ResponseWriter, _ *http.Request) {
	raw, err := json.MarshalIndent(s.asyncAPI, "", "  ")
	if err != nil {
		http.Error(w, "encoding asyncapi document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!doctype html><html><head><title>AsyncAPI</title></head><body><pre>"))
	_, _ = w.Write([]byte(html.EscapeString(string(raw))))
	_, _ = w.Write([]byte("</pre></body></html>"))
}
