package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRunRequestQuestion(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"input_data", `{"task":"rag_qa","input_data":{"question":"  onboarding? "}}`, "onboarding?"},
		{"input alias", `{"input":{"question":"incident"}}`, "incident"},
		{"input_data wins", `{"input_data":{"question":"a"},"input":{"question":"b"}}`, "a"},
		{"blank input_data falls back", `{"input_data":{"question":" "},"input":{"question":"b"}}`, "b"},
		{"missing", `{"task":"rag_qa"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req RunRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatal(err)
			}
			if got := req.Question(); got != tt.want {
				t.Errorf("Question() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRunResponseStatus(t *testing.T) {
	src := []Source{{Title: "Onboarding"}}
	tests := []struct {
		name string
		resp QueryResponse
		want string
	}{
		{"confident", QueryResponse{Confidence: 0.7, Sources: src}, StatusOK},
		{"below threshold", QueryResponse{Confidence: 0.5, Sources: src}, StatusLowConfidence},
		{"no match stays ok", QueryResponse{Answer: NoMatchAnswer}, StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRunResponse(&tt.resp, 0.65).Status; got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRunResponseEncodesEmptySources(t *testing.T) {
	data, err := json.Marshal(NewRunResponse(&QueryResponse{Answer: NoMatchAnswer}, 0.65))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"sources":[]`) {
		t.Errorf("sources should encode as an empty array: %s", data)
	}
	if strings.Contains(string(data), "conflict_info") {
		t.Errorf("conflict_info should be omitted: %s", data)
	}
}
