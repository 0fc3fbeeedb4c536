package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/pkg/audio"
	"github.com/irenevoice/irenecore/pkg/provider/stt"
	sttmock "github.com/irenevoice/irenecore/pkg/provider/stt/mock"
	ttsmock "github.com/irenevoice/irenecore/pkg/provider/tts/mock"
)

type echoHandler struct{}

func (echoHandler) CanHandle(intent.Intent) bool { return true }

func (echoHandler) Execute(_ *contextmgr.UnifiedConversationContext, i intent.Intent) (intent.Result, error) {
	return intent.Result{Text: "you said: " + i.Text, Success: true, ShouldSpeak: true}, nil
}

type singleProvider struct {
	name string
	fn   func(ctx context.Context, text string, convCtx *contextmgr.UnifiedConversationContext) (intent.Intent, error)
}

func (s singleProvider) Name() string { return s.name }
func (s singleProvider) Recognize(ctx context.Context, text string, convCtx *contextmgr.UnifiedConversationContext) (intent.Intent, error) {
	return s.fn(ctx, text, convCtx)
}

func newTestEngine(t *testing.T, flags StageFlags) (*Engine, *contextmgr.Manager) {
	t.Helper()
	reg := intent.NewRegistry()
	reg.Register("echo.say", echoHandler{})

	provider := singleProvider{name: "echo-nlu", fn: func(_ context.Context, text string, _ *contextmgr.UnifiedConversationContext) (intent.Intent, error) {
		return intent.Intent{Name: "echo.say", Domain: "echo", Action: "say", Text: text, Confidence: 1.0}, nil
	}}
	recognizer, err := intent.NewRecognizer([]intent.NLUProvider{provider}, "echo-nlu", 0.5)
	require.NoError(t, err)

	orch := intent.NewOrchestrator(reg, nil, intent.OrchestratorConfig{})
	contexts := contextmgr.NewManager(contextmgr.Config{})

	eng, err := New(Config{
		Flags:        flags,
		Recognizer:   recognizer,
		Orchestrator: orch,
		Contexts:     contexts,
	})
	require.NoError(t, err)
	return eng, contexts
}

func TestEngine_ProcessText_RunsNLUAndIntentExecution(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultStageFlags())
	trace := NewTraceContext()

	result, err := eng.ProcessText(context.Background(), "hello there", "sess-1", false, ClientContext{}, trace)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "you said: hello there", result.Text)

	stages := make([]string, 0, len(trace.Records()))
	for _, r := range trace.Records() {
		stages = append(stages, r.Stage)
	}
	assert.Contains(t, stages, "text_processing")
	assert.Contains(t, stages, "nlu")
	assert.Contains(t, stages, "intent_execution")
}

func TestEngine_ProcessText_WantsAudioTriggersTTS(t *testing.T) {
	ttsProvider := &ttsmock.Provider{SynthesizeChunks: [][]byte{make([]byte, 10)}}
	reg := intent.NewRegistry()
	reg.Register("echo.say", echoHandler{})
	provider := singleProvider{name: "n", fn: func(_ context.Context, text string, _ *contextmgr.UnifiedConversationContext) (intent.Intent, error) {
		return intent.Intent{Name: "echo.say", Domain: "echo", Action: "say", Text: text, Confidence: 1.0}, nil
	}}
	recognizer, err := intent.NewRecognizer([]intent.NLUProvider{provider}, "n", 0.5)
	require.NoError(t, err)
	orch := intent.NewOrchestrator(reg, nil, intent.OrchestratorConfig{})
	contexts := contextmgr.NewManager(contextmgr.Config{})

	eng, err := New(Config{
		Flags:        DefaultStageFlags(),
		Recognizer:   recognizer,
		Orchestrator: orch,
		Contexts:     contexts,
		TTS:          ttsProvider,
	})
	require.NoError(t, err)

	trace := NewTraceContext()
	_, err = eng.ProcessText(context.Background(), "hi", "sess-1", true, ClientContext{}, trace)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(ttsProvider.SynthesizeStreamCalls) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_ProcessAudioInput_RunsASRThenIntent(t *testing.T) {
	sess := &sttmock.Session{
		PartialsCh: make(chan stt.Transcript, 1),
		FinalsCh:   make(chan stt.Transcript, 1),
	}
	sess.FinalsCh <- stt.Transcript{Text: "turn on the lights", IsFinal: true}
	sttProvider := &sttmock.Provider{Session: sess}

	reg := intent.NewRegistry()
	reg.Register("echo.say", echoHandler{})
	provider := singleProvider{name: "n", fn: func(_ context.Context, text string, _ *contextmgr.UnifiedConversationContext) (intent.Intent, error) {
		return intent.Intent{Name: "echo.say", Domain: "echo", Action: "say", Text: text, Confidence: 1.0}, nil
	}}
	recognizer, err := intent.NewRecognizer([]intent.NLUProvider{provider}, "n", 0.5)
	require.NoError(t, err)
	orch := intent.NewOrchestrator(reg, nil, intent.OrchestratorConfig{})
	contexts := contextmgr.NewManager(contextmgr.Config{})

	eng, err := New(Config{
		Flags: StageFlags{
			VoiceTriggerEnabled:   false,
			VADEnabled:            false,
			ASREnabled:            true,
			TextProcessingEnabled: true,
		},
		Recognizer:   recognizer,
		Orchestrator: orch,
		Contexts:     contexts,
		ASR:          sttProvider,
	})
	require.NoError(t, err)

	trace := NewTraceContext()
	frame := audio.AudioFrame{Data: make([]byte, 320), SampleRate: 16000, Channels: 1}
	result, err := eng.ProcessAudioInput(context.Background(), frame, "sess-1", false, ClientContext{SkipWakeWord: true}, trace)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "you said: turn on the lights", result.Text)
	assert.Equal(t, 1, sess.CloseCallCount)
}

func TestEngine_Transcribe_RunsASROnlyWithNoDownstreamIntent(t *testing.T) {
	sess := &sttmock.Session{
		PartialsCh: make(chan stt.Transcript, 1),
		FinalsCh:   make(chan stt.Transcript, 1),
	}
	sess.FinalsCh <- stt.Transcript{Text: "what time is it", IsFinal: true}
	sttProvider := &sttmock.Provider{Session: sess}

	reg := intent.NewRegistry()
	provider := singleProvider{name: "n", fn: func(context.Context, string, *contextmgr.UnifiedConversationContext) (intent.Intent, error) {
		t.Fatal("NLU should not run for a Transcribe-only call")
		return intent.Intent{}, nil
	}}
	recognizer, err := intent.NewRecognizer([]intent.NLUProvider{provider}, "n", 0.5)
	require.NoError(t, err)
	orch := intent.NewOrchestrator(reg, nil, intent.OrchestratorConfig{})
	contexts := contextmgr.NewManager(contextmgr.Config{})

	eng, err := New(Config{
		Flags:        StageFlags{ASREnabled: true},
		Recognizer:   recognizer,
		Orchestrator: orch,
		Contexts:     contexts,
		ASR:          sttProvider,
	})
	require.NoError(t, err)

	frame := audio.AudioFrame{Data: make([]byte, 320), SampleRate: 16000, Channels: 1}
	text, err := eng.Transcribe(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, "what time is it", text)
}
