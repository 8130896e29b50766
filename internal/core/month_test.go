package core

import (
	"errors"
	"testing"
	"time"
)

func TestMonth_Validate(t *testing.T) {
	tests := []struct {
		name    string
		month   Month
		wantErr bool
	}{
		{name: "valid month", month: "2024-03", wantErr: false},
		{name: "valid december", month: "2024-12", wantErr: false},
		{name: "missing dash", month: "202403", wantErr: true},
		{name: "slash separator", month: "2024/03", wantErr: true},
		{name: "month zero", month: "2024-00", wantErr: true},
		{name: "month thirteen", month: "2024-13", wantErr: true},
		{name: "year too small", month: "1999-01", wantErr: true},
		{name: "year too large", month: "2101-01", wantErr: true},
		{name: "non-numeric year", month: "abcd-01", wantErr: true},
		{name: "non-numeric month", month: "2024-xy", wantErr: true},
		{name: "empty", month: "", wantErr: true},
		{name: "full date", month: "2024-03-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.month.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.month, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedMonth) {
				t.Errorf("Validate(%q) error should wrap ErrMalformedMonth, got %v", tt.month, err)
			}
		})
	}
}

func TestMonth_Next(t *testing.T) {
	tests := []struct {
		month Month
		want  Month
	}{
		{month: "2024-01", want: "2024-02"},
		{month: "2024-11", want: "2024-12"},
		{month: "2024-12", want: "2025-01"},
		{month: "2099-12", want: "2100-01"},
	}

	for _, tt := range tests {
		got, err := tt.month.Next()
		if err != nil {
			t.Fatalf("Next(%q) unexpected error: %v", tt.month, err)
		}
		if got != tt.want {
			t.Errorf("Next(%q) = %q, want %q", tt.month, got, tt.want)
		}
	}

	if _, err := Month("garbage").Next(); err == nil {
		t.Error("Next on malformed month should fail")
	}
}

func TestMonth_DateRange(t *testing.T) {
	start, end, err := Month("2024-12").DateRange()
	if err != nil {
		t.Fatalf("DateRange unexpected error: %v", err)
	}
	if start != "2024-12-01" {
		t.Errorf("start = %q, want 2024-12-01", start)
	}
	if end != "2025-01-01" {
		t.Errorf("end = %q, want 2025-01-01", end)
	}
}

func TestMonth_Display(t *testing.T) {
	tests := []struct {
		month Month
		want  string
	}{
		{month: "2024-03", want: "03/24"},
		{month: "2025-12", want: "12/25"},
		{month: "garbage", want: "garbage"},
		{month: "2024/03", want: "2024/03"},
		{month: "", want: ""},
	}

	for _, tt := range tests {
		if got := tt.month.Display(); got != tt.want {
			t.Errorf("Display(%q) = %q, want %q", tt.month, got, tt.want)
		}
	}
}

func TestNewMonth(t *testing.T) {
	if got := NewMonth(2024, time.March); got != "2024-03" {
		t.Errorf("NewMonth(2024, March) = %q, want 2024-03", got)
	}
	if got := NewMonth(2025, time.December); got != "2025-12" {
		t.Errorf("NewMonth(2025, December) = %q, want 2025-12", got)
	}
}
