package webapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/irenevoice/irenecore/pkg/audio"
)

// audioChunkMessage is the client→server message on the base64 JSON stream
// (spec §6 "WebSocket, base64 JSON audio stream").
type audioChunkMessage struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	Language string `json:"language,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// sessionConfigMessage is the client→server first message on the binary PCM
// stream (spec §6 "WebSocket, binary PCM stream").
type sessionConfigMessage struct {
	Type          string               `json:"type"`
	SampleRate    int                  `json:"sample_rate"`
	Channels      int                  `json:"channels"`
	Format        string               `json:"format"`
	Language      string               `json:"language,omitempty"`
	Provider      string               `json:"provider,omitempty"`
	SessionConfig *sessionConfigMessage `json:"session_config,omitempty"`
}

func (m sessionConfigMessage) resolved() sessionConfigMessage {
	if m.Type == "binary_websocket_protocol" && m.SessionConfig != nil {
		return *m.SessionConfig
	}
	return m
}

type transcriptionResultMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Provider  string `json:"provider,omitempty"`
	Language  string `json:"language,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type sessionReadyMessage struct {
	Type           string `json:"type"`
	ProtocolFormat string `json:"protocol_format"`
	Config         sessionConfigMessage `json:"config"`
	Timestamp      int64  `json:"timestamp"`
}

type wsErrorMessage struct {
	Type      string `json:"type"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}

func writeWSJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, raw)
}

// handleAudioJSONStream serves the base64 JSON audio_chunk ASR stream (spec
// §6): each text message carries one base64-encoded PCM chunk, transcribed
// via [workflow.Engine.Transcribe] and replied to with a transcription_result
// or error message.
func (s *Server) handleAudioJSONStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := r.Context()

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg audioChunkMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "audio_chunk" {
			_ = writeWSJSON(ctx, conn, wsErrorMessage{Type: "error", Error: "expected an audio_chunk message", Timestamp: time.Now().Unix()})
			continue
		}
		pcm, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			_ = writeWSJSON(ctx, conn, wsErrorMessage{Type: "error", Error: "invalid base64 audio data", Timestamp: time.Now().Unix()})
			continue
		}

		if s.webSource != nil {
			s.webSource.PushAudio(pcm)
		}

		text, err := s.engine.Transcribe(ctx, audio.AudioFrame{Data: pcm, Encoding: audio.EncodingPCM16})
		if err != nil {
			_ = writeWSJSON(ctx, conn, wsErrorMessage{Type: "error", Error: err.Error(), Timestamp: time.Now().Unix()})
			continue
		}
		_ = writeWSJSON(ctx, conn, transcriptionResultMessage{
			Type:      "transcription_result",
			Text:      text,
			Provider:  msg.Provider,
			Language:  msg.Language,
			Timestamp: time.Now().Unix(),
		})
	}
}

// handleAudioBinaryStream serves the binary PCM ASR stream (spec §6): the
// first JSON message establishes session_config, acknowledged with
// session_ready, then every subsequent binary frame is transcribed and
// replied to the same way as the JSON stream.
func (s *Server) handleAudioBinaryStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := r.Context()

	cfgType, cfgRaw, err := conn.Read(ctx)
	if err != nil || cfgType != websocket.MessageText {
		return
	}
	var cfg sessionConfigMessage
	if err := json.Unmarshal(cfgRaw, &cfg); err != nil {
		_ = writeWSJSON(ctx, conn, wsErrorMessage{Type: "error", Error: "expected a session_config message", Timestamp: time.Now().Unix()})
		return
	}
	cfg = cfg.resolved()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.Format == "" {
		cfg.Format = "pcm_s16le"
	}

	if err := writeWSJSON(ctx, conn, sessionReadyMessage{
		Type:           "session_ready",
		ProtocolFormat: "binary_pcm",
		Config:         cfg,
		Timestamp:      time.Now().Unix(),
	}); err != nil {
		return
	}

	for {
		msgType, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if msgType != websocket.MessageBinary {
			_ = writeWSJSON(ctx, conn, wsErrorMessage{Type: "error", Error: "expected binary PCM frame", Timestamp: time.Now().Unix()})
			continue
		}

		if s.webSource != nil {
			s.webSource.PushAudio(raw)
		}

		frame := audio.AudioFrame{Data: raw, SampleRate: cfg.SampleRate, Channels: cfg.Channels, Encoding: audio.EncodingPCM16}
		text, err := s.engine.Transcribe(ctx, frame)
		if err != nil {
			_ = writeWSJSON(ctx, conn, wsErrorMessage{Type: "error", Error: err.Error(), Timestamp: time.Now().Unix()})
			continue
		}
		if err := writeWSJSON(ctx, conn, transcriptionResultMessage{
			Type:      "transcription_result",
			Text:      text,
			Provider:  cfg.Provider,
			Language:  cfg.Language,
			Timestamp: time.Now().Unix(),
		}); err != nil {
			return
		}
	}
}
