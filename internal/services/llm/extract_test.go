package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "bare object",
			response: `{"score": 72}`,
			want:     `{"score": 72}`,
		},
		{
			name:     "markdown fence with language tag",
			response: "```json\n{\"score\": 72}\n```",
			want:     `{"score": 72}`,
		},
		{
			name:     "surrounding prose",
			response: `Here is the analysis you asked for: {"score": 72} Let me know if you need more.`,
			want:     `{"score": 72}`,
		},
		{
			name:     "nested objects",
			response: `{"categories": {"clarity": 7, "proof": 4}, "score": 58}`,
			want:     `{"categories": {"clarity": 7, "proof": 4}, "score": 58}`,
		},
		{
			name:     "braces inside string literals",
			response: `{"headline": "We {deliver} results", "score": 60}`,
			want:     `{"headline": "We {deliver} results", "score": 60}`,
		},
		{
			name:     "escaped quotes inside strings",
			response: `{"quote": "they said \"best\" in town", "score": 65}`,
			want:     `{"quote": "they said \"best\" in town", "score": 65}`,
		},
		{
			name:     "first object wins",
			response: `{"a": 1} trailing {"b": 2}`,
			want:     `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSONObject(tt.response)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !json.Valid([]byte(got)) {
				t.Errorf("extracted payload is not valid JSON: %q", got)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "bare array",
			response: `["acme.com", "rival.io"]`,
			want:     `["acme.com", "rival.io"]`,
		},
		{
			name:     "fenced array with prose",
			response: "The likely competitors are:\n```json\n[\"acme.com\"]\n```",
			want:     `["acme.com"]`,
		},
		{
			name:     "array of objects",
			response: `Sure: [{"domain": "acme.com"}, {"domain": "rival.io"}]`,
			want:     `[{"domain": "acme.com"}, {"domain": "rival.io"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSONArray(tt.response)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONNoPayload(t *testing.T) {
	response := "I could not produce a result for this site."
	if got := ExtractJSONObject(response); got != response {
		t.Errorf("expected passthrough for payload-free response, got %q", got)
	}
}
