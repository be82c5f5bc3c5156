package model

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusUploaded, StatusAnalyzing, true},
		{StatusUploaded, StatusError, true},
		{StatusUploaded, StatusAnalyzed, false},
		{StatusAnalyzing, StatusAnalyzed, true},
		{StatusAnalyzing, StatusError, true},
		{StatusAnalyzing, StatusUploaded, false},
		{StatusAnalyzed, StatusAnalyzing, false},
		{StatusAnalyzed, StatusError, false},
		{StatusError, StatusAnalyzing, false},
		{StatusError, StatusUploaded, false},
		{"unknown", StatusAnalyzing, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s): expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []string{StatusUploaded, StatusAnalyzing, StatusAnalyzed, StatusError} {
		if !IsValidStatus(s) {
			t.Errorf("Expected '%s' to be valid", s)
		}
	}
	if IsValidStatus("pending") {
		t.Error("Expected 'pending' to be invalid")
	}
}

func TestIsValidDocumentType(t *testing.T) {
	for _, dt := range []string{TypeContract, TypeLease, TypeLoan, TypeNDA, TypeTerms, TypeOther} {
		if !IsValidDocumentType(dt) {
			t.Errorf("Expected '%s' to be valid", dt)
		}
	}
	if IsValidDocumentType("recipe") {
		t.Error("Expected 'recipe' to be invalid")
	}
}
