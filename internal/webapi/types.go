package webapi

// CommandRequest is the POST /execute/command and /trace/command body
// (spec §6 "HTTP/JSON").
type CommandRequest struct {
	Command  string         `json:"command"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CommandResponse is the POST /execute/command and /execute/audio response.
type CommandResponse struct {
	Success  bool           `json:"success"`
	Response string         `json:"response"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PipelineStageTrace is one entry in TraceCommandResponse's
// execution_trace.pipeline_stages array.
type PipelineStageTrace struct {
	Stage            string         `json:"stage"`
	Input            any            `json:"input,omitempty"`
	Output           any            `json:"output,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// ContextEvolution reports how the conversation context changed across a
// traced request.
type ContextEvolution struct {
	Before  map[string]any `json:"before,omitempty"`
	After   map[string]any `json:"after,omitempty"`
	Changes []string       `json:"changes,omitempty"`
}

// PerformanceMetrics summarizes a traced request's timing.
type PerformanceMetrics struct {
	TotalProcessingTimeMs int64            `json:"total_processing_time_ms"`
	StageBreakdown        map[string]int64 `json:"stage_breakdown,omitempty"`
	TotalStages           int              `json:"total_stages"`
}

// ExecutionTrace is the execution_trace field of a TraceCommandResponse.
type ExecutionTrace struct {
	RequestID          string               `json:"request_id"`
	PipelineStages      []PipelineStageTrace `json:"pipeline_stages"`
	ContextEvolution    ContextEvolution     `json:"context_evolution"`
	PerformanceMetrics  PerformanceMetrics   `json:"performance_metrics"`
}

// TraceCommandResponse is the POST /trace/command and /trace/audio response
// (spec §6 "HTTP/JSON").
type TraceCommandResponse struct {
	Success        bool           `json:"success"`
	FinalResult    string         `json:"final_result"`
	ExecutionTrace ExecutionTrace `json:"execution_trace"`
	Timestamp      int64          `json:"timestamp"`
	Error          string         `json:"error,omitempty"`
}
