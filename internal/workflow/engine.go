package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/internal/resilience"
	"github.com/irenevoice/irenecore/pkg/audio"
	"github.com/irenevoice/irenecore/pkg/audio/resample"
	"github.com/irenevoice/irenecore/pkg/audio/vad"
	providervad "github.com/irenevoice/irenecore/pkg/provider/vad"
	"github.com/irenevoice/irenecore/pkg/provider/stt"
	"github.com/irenevoice/irenecore/pkg/provider/tts"
	"github.com/irenevoice/irenecore/pkg/types"
)

// AudioSink is the playback surface for synthesized audio (spec §4.3's
// "audio output" stage).
type AudioSink interface {
	Play(ctx context.Context, frame audio.AudioFrame) error
}

// Config wires every optional and required collaborator of the pipeline.
// Only Recognizer, Orchestrator, and Contexts are mandatory — every other
// field models an optional stage that degrades to a pass-through when left
// nil, per spec §4.3's disabled-stage contracts.
type Config struct {
	Flags StageFlags

	VoiceTrigger  VoiceTrigger
	VADEngine     providervad.Engine
	ASR           stt.Provider
	ASRFallbacks  []stt.Provider
	Resampler     *resample.Converter
	TargetRate    int // ASR sample rate, e.g. 16000
	TextProcessor TextProcessor
	Recognizer    *intent.Recognizer
	Orchestrator  *intent.Orchestrator
	LLMEnricher   LLMEnricher
	TTS           tts.Provider
	TTSFallbacks  []tts.Provider
	Voice         types.VoiceProfile
	AudioOutput   AudioSink

	Contexts *contextmgr.Manager

	Logger *slog.Logger
}

// Engine drives the staged unified-voice-assistant pipeline (spec §4.3).
// Safe for concurrent use across independent requests; per-session state
// lives in the [contextmgr.Manager], not in the Engine itself.
type Engine struct {
	cfg Config
	log *slog.Logger

	asrGroup *resilience.FallbackGroup[stt.Provider]
	ttsGroup *resilience.FallbackGroup[tts.Provider]
}

// New creates an Engine from cfg. Recognizer, Orchestrator, and Contexts
// must be non-nil.
func New(cfg Config) (*Engine, error) {
	if cfg.Recognizer == nil || cfg.Orchestrator == nil || cfg.Contexts == nil {
		return nil, fmt.Errorf("workflow: Recognizer, Orchestrator, and Contexts are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TargetRate == 0 {
		cfg.TargetRate = 16000
	}

	e := &Engine{cfg: cfg, log: cfg.Logger}

	if cfg.ASR != nil {
		e.asrGroup = resilience.NewFallbackGroup[stt.Provider](cfg.ASR, "asr_primary", resilience.FallbackConfig{})
		for i, fb := range cfg.ASRFallbacks {
			e.asrGroup.AddFallback(fmt.Sprintf("asr_fallback_%d", i), fb)
		}
	}
	if cfg.TTS != nil {
		e.ttsGroup = resilience.NewFallbackGroup[tts.Provider](cfg.TTS, "tts_primary", resilience.FallbackConfig{})
		for i, fb := range cfg.TTSFallbacks {
			e.ttsGroup.AddFallback(fmt.Sprintf("tts_fallback_%d", i), fb)
		}
	}
	return e, nil
}

// ClientContext carries the per-request flags and metadata a caller (an
// input source, a webapi handler) supplies alongside raw text or audio.
type ClientContext struct {
	SkipWakeWord bool
	Language     string
	Extra        map[string]any
}

// ProcessText runs process_text_input (spec §4.3): skips voice trigger, VAD,
// and ASR, starting directly at text processing.
func (e *Engine) ProcessText(ctx context.Context, text, sessionID string, wantsAudio bool, clientCtx ClientContext, trace *TraceContext) (intent.Result, error) {
	convCtx := e.cfg.Contexts.Get(sessionID)
	return e.runFromText(ctx, text, convCtx, wantsAudio, clientCtx, trace)
}

// Transcribe runs the ASR stage alone, with no downstream NLU/intent
// execution: the web API's ASR-only WebSocket surface (spec §6) needs a
// bare transcript per audio chunk, not a full pipeline run.
func (e *Engine) Transcribe(ctx context.Context, frame audio.AudioFrame) (string, error) {
	return e.runASR(ctx, frame, nil)
}

// ProcessAudioInput runs process_audio_input (spec §4.3): the full pipeline
// from raw audio through voice trigger, VAD, ASR, and onward.
func (e *Engine) ProcessAudioInput(ctx context.Context, frame audio.AudioFrame, sessionID string, wantsAudio bool, clientCtx ClientContext, trace *TraceContext) (intent.Result, error) {
	convCtx := e.cfg.Contexts.Get(sessionID)

	if gated, err := e.runVoiceTrigger(ctx, frame, clientCtx, trace); err != nil {
		return e.failStage("voice_trigger", err, trace)
	} else if !gated {
		return intent.Result{Success: true}, nil
	}

	segments := e.runVAD(ctx, []audio.AudioFrame{frame}, trace)
	if len(segments) == 0 {
		// VAD disabled or produced no segment: direct-mode pass-through.
		segments = []audio.AudioFrame{frame}
	}

	var lastResult intent.Result
	var lastErr error
	for _, seg := range segments {
		lastResult, lastErr = e.runFromAudio(ctx, seg, convCtx, sessionID, wantsAudio, clientCtx, trace)
		if lastErr != nil {
			return lastResult, lastErr
		}
	}
	return lastResult, nil
}

// ProcessAudioStream runs process_audio_stream (spec §4.3): continuous mode
// for microphone-style sources — wake-word gating plus VAD segmentation,
// with one intent execution per completed utterance. frames is drained until
// closed or ctx is cancelled; results are delivered on the returned channel,
// which is closed when frames is exhausted.
func (e *Engine) ProcessAudioStream(ctx context.Context, frames <-chan audio.AudioFrame, sessionID string, wantsAudio bool, clientCtx ClientContext, trace *TraceContext) <-chan intent.Result {
	out := make(chan intent.Result)
	convCtx := e.cfg.Contexts.Get(sessionID)

	go func() {
		defer close(out)

		var vadSession providervad.SessionHandle
		if e.cfg.Flags.VADEnabled && e.cfg.VADEngine != nil {
			// Session parameters are advisory; a real deployment sources
			// SampleRate/FrameSizeMs from the active microphone's config.
			s, err := e.cfg.VADEngine.NewSession(providervad.Config{SampleRate: e.cfg.TargetRate, FrameSizeMs: 20, SpeechThreshold: 0.5, SilenceThreshold: 0.35})
			if err == nil {
				vadSession = s
				defer vadSession.Close()
			}
		}

		var pending []audio.AudioFrame
		gateOpen := !e.cfg.Flags.VoiceTriggerEnabled || clientCtx.SkipWakeWord

		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}

				if !gateOpen {
					detected, err := e.runVoiceTrigger(ctx, frame, clientCtx, trace)
					if err != nil {
						continue
					}
					if !detected {
						continue
					}
					gateOpen = true
				}

				if vadSession == nil {
					pending = append(pending, frame)
					continue
				}

				ev, err := vadSession.ProcessFrame(frame.Data)
				if err != nil {
					continue
				}
				switch ev.Type {
				case providervad.VADSpeechStart, providervad.VADSpeechContinue:
					pending = append(pending, frame)
				case providervad.VADSpeechEnd:
					pending = append(pending, frame)
					seg := vad.CombineFrames(pending)
					pending = nil
					gateOpen = !e.cfg.Flags.VoiceTriggerEnabled
					result, err := e.runFromAudio(ctx, seg.CombinedAudio, convCtx, sessionID, wantsAudio, clientCtx, trace)
					if err != nil {
						result = intent.Result{Success: false, Metadata: map[string]any{"error": err.Error()}}
					}
					select {
					case out <- result:
					case <-ctx.Done():
						return
					}
				case providervad.VADSilence:
					// no-op between utterances
				}
			}
		}
	}()

	return out
}

func (e *Engine) failStage(stage string, err error, trace *TraceContext) (intent.Result, error) {
	trace.record(stage, nil, nil, map[string]any{"error": err.Error()}, 0)
	return intent.Result{Success: false, Metadata: map[string]any{"error_kind": string(core.KindOf(err))}}, err
}

func (e *Engine) runVoiceTrigger(ctx context.Context, frame audio.AudioFrame, clientCtx ClientContext, trace *TraceContext) (bool, error) {
	start := time.Now()
	if !e.cfg.Flags.VoiceTriggerEnabled || clientCtx.SkipWakeWord || e.cfg.VoiceTrigger == nil {
		trace.record("voice_trigger", frame.SampleRate, true, map[string]any{"skipped": true}, time.Since(start))
		return true, nil
	}
	detected, confidence, err := e.cfg.VoiceTrigger.Detect(ctx, frame)
	trace.record("voice_trigger", frame.SampleRate, detected, map[string]any{"confidence": confidence}, time.Since(start))
	return detected, err
}

// runVAD segments frames into voice-only audio. Returns nil when VAD is
// disabled, unconfigured, or its session cannot be created; the caller then
// passes the original frame through unchanged (direct mode), matching
// spec §4.3's "pass audio through unchanged if disabled" contract.
func (e *Engine) runVAD(ctx context.Context, frames []audio.AudioFrame, trace *TraceContext) []audio.AudioFrame {
	start := time.Now()
	if !e.cfg.Flags.VADEnabled || e.cfg.VADEngine == nil {
		trace.record("vad", len(frames), len(frames), map[string]any{"disabled": true}, time.Since(start))
		return nil
	}

	session, err := e.cfg.VADEngine.NewSession(providervad.Config{
		SampleRate: e.cfg.TargetRate, FrameSizeMs: 20, SpeechThreshold: 0.5, SilenceThreshold: 0.35,
	})
	if err != nil {
		trace.record("vad", len(frames), nil, map[string]any{"error": err.Error()}, time.Since(start))
		return nil
	}
	defer session.Close()

	var segments []audio.AudioFrame
	var collected []audio.AudioFrame
	for _, f := range frames {
		ev, err := session.ProcessFrame(f.Data)
		if err != nil {
			continue
		}
		switch ev.Type {
		case providervad.VADSpeechStart, providervad.VADSpeechContinue:
			collected = append(collected, f)
		case providervad.VADSpeechEnd:
			collected = append(collected, f)
			seg := vad.CombineFrames(collected)
			segments = append(segments, seg.CombinedAudio)
			collected = nil
		}
	}
	trace.record("vad", len(frames), len(segments), nil, time.Since(start))
	return segments
}

// runFromAudio drives ASR, then hands off to runFromText for the remaining
// shared stages.
func (e *Engine) runFromAudio(ctx context.Context, frame audio.AudioFrame, convCtx *contextmgr.UnifiedConversationContext, sessionID string, wantsAudio bool, clientCtx ClientContext, trace *TraceContext) (intent.Result, error) {
	text, err := e.runASR(ctx, frame, trace)
	if err != nil {
		return e.failStage("asr", err, trace)
	}
	return e.runFromText(ctx, text, convCtx, wantsAudio, clientCtx, trace)
}

func (e *Engine) runASR(ctx context.Context, frame audio.AudioFrame, trace *TraceContext) (string, error) {
	start := time.Now()
	if !e.cfg.Flags.ASREnabled || e.asrGroup == nil {
		trace.record("asr", frame.SampleRate, "", map[string]any{"disabled": true}, time.Since(start))
		return "", nil
	}

	pcm := frame
	if e.cfg.Resampler != nil && frame.SampleRate != e.cfg.TargetRate {
		method := resample.SelectForUseCase(resample.UseCaseASR, float64(frame.SampleRate)/float64(e.cfg.TargetRate))
		pcm = e.cfg.Resampler.Convert(frame, e.cfg.TargetRate, 1, method)
	}

	var text string
	err := e.asrGroup.Execute(func(provider stt.Provider) error {
		session, err := provider.StartStream(ctx, stt.StreamConfig{SampleRate: e.cfg.TargetRate, Channels: 1})
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.SendAudio(pcm.Data); err != nil {
			return err
		}
		select {
		case final := <-session.Finals():
			text = final.Text
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return fmt.Errorf("workflow: asr timed out waiting for final transcript")
		}
	})
	trace.record("asr", pcm.SampleRate, text, nil, time.Since(start))
	return text, err
}

func (e *Engine) runFromText(ctx context.Context, text string, convCtx *contextmgr.UnifiedConversationContext, wantsAudio bool, clientCtx ClientContext, trace *TraceContext) (intent.Result, error) {
	normalized := e.runTextProcessing(text, trace)

	i := e.runNLU(ctx, normalized, convCtx, clientCtx, trace)

	result, err := e.runIntentExecution(convCtx, i, trace)
	if err != nil {
		return e.failStage("intent_execution", err, trace)
	}

	result = e.runLLMEnrichment(ctx, normalized, result, trace)

	if wantsAudio && result.ShouldSpeak {
		e.runTTSAndOutput(ctx, result.Text, trace)
	}

	return result, nil
}

func (e *Engine) runTextProcessing(text string, trace *TraceContext) string {
	start := time.Now()
	if !e.cfg.Flags.TextProcessingEnabled || e.cfg.TextProcessor == nil {
		trace.record("text_processing", text, text, map[string]any{"disabled": true}, time.Since(start))
		return text
	}
	out := e.cfg.TextProcessor.Process(text)
	trace.record("text_processing", text, out, nil, time.Since(start))
	return out
}

func (e *Engine) runNLU(ctx context.Context, text string, convCtx *contextmgr.UnifiedConversationContext, clientCtx ClientContext, trace *TraceContext) intent.Intent {
	start := time.Now()
	i := e.cfg.Recognizer.Recognize(ctx, text, convCtx)
	i.SessionID = convCtx.SessionID
	trace.record("nlu", text, i.Name, map[string]any{"confidence": i.Confidence}, time.Since(start))
	return i
}

func (e *Engine) runIntentExecution(convCtx *contextmgr.UnifiedConversationContext, i intent.Intent, trace *TraceContext) (intent.Result, error) {
	start := time.Now()
	result, err := e.cfg.Orchestrator.Execute(convCtx, i)
	trace.record("intent_execution", i.Name, result.Text, map[string]any{"success": result.Success}, time.Since(start))
	return result, err
}

func (e *Engine) runLLMEnrichment(ctx context.Context, convText string, result intent.Result, trace *TraceContext) intent.Result {
	start := time.Now()
	if !e.cfg.Flags.LLMEnrichmentEnabled || e.cfg.LLMEnricher == nil {
		trace.record("llm", result.Text, result.Text, map[string]any{"disabled": true}, time.Since(start))
		return result
	}
	enriched, err := e.cfg.LLMEnricher.Enrich(ctx, convText, result)
	if err != nil {
		// Best-effort: enrichment failure degrades to the un-enriched result.
		e.log.Warn("llm enrichment failed, degrading to raw result", "error", err)
		trace.record("llm", result.Text, result.Text, map[string]any{"error": err.Error()}, time.Since(start))
		return result
	}
	trace.record("llm", result.Text, enriched.Text, nil, time.Since(start))
	return enriched
}

func (e *Engine) runTTSAndOutput(ctx context.Context, text string, trace *TraceContext) {
	start := time.Now()
	if !e.cfg.Flags.TTSEnabled || e.ttsGroup == nil {
		trace.record("tts", text, nil, map[string]any{"disabled": true}, time.Since(start))
		return
	}

	textCh := make(chan string, 1)
	textCh <- text
	close(textCh)

	var audioCh <-chan []byte
	err := e.ttsGroup.Execute(func(provider tts.Provider) error {
		ch, err := provider.SynthesizeStream(ctx, textCh, e.cfg.Voice)
		if err != nil {
			return err
		}
		audioCh = ch
		return nil
	})
	if err != nil {
		e.log.Warn("tts synthesis failed", "error", err)
		trace.record("tts", text, nil, map[string]any{"error": err.Error()}, time.Since(start))
		return
	}
	trace.record("tts", text, nil, nil, time.Since(start))

	if !e.cfg.Flags.AudioOutputEnabled || e.cfg.AudioOutput == nil {
		for range audioCh {
			// drain without playback
		}
		return
	}

	outStart := time.Now()
	for pcm := range audioCh {
		frame := audio.AudioFrame{Data: pcm, SampleRate: e.cfg.TargetRate, Channels: 1, Encoding: audio.EncodingPCM16}
		if err := e.cfg.AudioOutput.Play(ctx, frame); err != nil {
			e.log.Warn("audio output playback failed", "error", err)
			break
		}
	}
	trace.record("audio_output", len(text), nil, nil, time.Since(outStart))
}
