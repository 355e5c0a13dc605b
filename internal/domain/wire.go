package domain

import "strings"

// TaskRAGQA is the only task the agent endpoint runs.
const TaskRAGQA = "rag_qa"

// Response statuses.
const (
	StatusOK            = "ok"
	StatusLowConfidence = "low_confidence"
	StatusError         = "error"
)

// RunInput carries the caller's question.
type RunInput struct {
	Question string `json:"question"`
}

// RunParams are optional per-request overrides.
type RunParams struct {
	TopK          int      `json:"top_k,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

// RunRequest is the body of POST /run. Input is accepted as an alias of InputData.
type RunRequest struct {
	Task      string    `json:"task"`
	InputData *RunInput `json:"input_data,omitempty"`
	Input     *RunInput `json:"input,omitempty"`
	Params    RunParams `json:"params"`
}

// Question returns the trimmed question from whichever input field is set.
func (r RunRequest) Question() string {
	if r.InputData != nil && strings.TrimSpace(r.InputData.Question) != "" {
		return strings.TrimSpace(r.InputData.Question)
	}
	if r.Input != nil {
		return strings.TrimSpace(r.Input.Question)
	}
	return ""
}

// RunOutput is the answer part of a RunResponse.
type RunOutput struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// RunResponse is the body returned by POST /run.
type RunResponse struct {
	Status       string        `json:"status"`
	Output       *RunOutput    `json:"output,omitempty"`
	Usage        *Usage        `json:"usage,omitempty"`
	Error        string        `json:"error,omitempty"`
	ConflictInfo *ConflictInfo `json:"conflict_info,omitempty"`
}

// NewRunResponse maps a query response onto the wire payload. The status is
// low_confidence when sources were found but confidence is below minConfidence.
func NewRunResponse(resp *QueryResponse, minConfidence float64) RunResponse {
	status := StatusOK
	if len(resp.Sources) > 0 && resp.Confidence < minConfidence {
		status = StatusLowConfidence
	}
	sources := resp.Sources
	if sources == nil {
		sources = []Source{}
	}
	usage := resp.Usage
	return RunResponse{
		Status: status,
		Output: &RunOutput{
			Answer:     resp.Answer,
			Confidence: resp.Confidence,
			Sources:    sources,
			Reasoning:  resp.Reasoning,
		},
		Usage:        &usage,
		ConflictInfo: resp.Conflict,
	}
}
