package common

import (
	"testing"
)

func TestNormalizeTargetURL(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"example.com", "https://example.com", false},
		{"Example.COM", "https://example.com", false},
		{"https://example.com/pricing", "https://example.com/pricing", false},
		{"http://example.com", "http://example.com", false},
		{"  example.com  ", "https://example.com", false},
		{"", "", true},
		{"ftp://example.com", "", true},
		{"localhost", "", true},
		{"not a url at all", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeTargetURL(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeTargetURL(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeTargetURL(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTargetURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"https://www.example.com/pricing?ref=x", "example.com"},
		{"EXAMPLE.com", "example.com"},
		{"example.com:8080", "example.com"},
		{"example.com/pricing", "example.com"},
		{"", ""},
		{"notadomain", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDomain(tt.input); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPathOf(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/pricing", "/pricing"},
		{"https://example.com", "/"},
		{"https://example.com/", "/"},
	}

	for _, tt := range tests {
		if got := PathOf(tt.input); got != tt.want {
			t.Errorf("PathOf(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewJobID(t *testing.T) {
	first := NewJobID()
	second := NewJobID()

	if first == second {
		t.Error("job IDs must be unique")
	}
	if len(first) < 10 || first[:4] != "job_" {
		t.Errorf("unexpected job id format: %q", first)
	}
}
