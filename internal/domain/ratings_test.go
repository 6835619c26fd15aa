package domain

import (
	"errors"
	"testing"
)

func TestValidRating(t *testing.T) {
	for v := -1; v <= 7; v++ {
		want := v >= 1 && v <= 5
		if got := ValidRating(v); got != want {
			t.Fatalf("ValidRating(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestEntryValidate(t *testing.T) {
	negative := -5
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{name: "valid", entry: Entry{Energy: 1, Stress: 5, Productivity: 3}},
		{name: "energy zero", entry: Entry{Energy: 0, Stress: 3, Productivity: 3}, wantErr: true},
		{name: "stress six", entry: Entry{Energy: 3, Stress: 6, Productivity: 3}, wantErr: true},
		{name: "productivity zero", entry: Entry{Energy: 3, Stress: 3}, wantErr: true},
		{name: "negative duration", entry: Entry{Energy: 3, Stress: 3, Productivity: 3, Duration: &negative}, wantErr: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			err := testCase.entry.Validate()
			if testCase.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLabels(t *testing.T) {
	if got := EnergyLabel(1); got != "Drained" {
		t.Fatalf("expected Drained, got %q", got)
	}
	if got := StressLabel(5); got != "Intense" {
		t.Fatalf("expected Intense, got %q", got)
	}
	if got := ProductivityLabel(3); got != "Moving" {
		t.Fatalf("expected Moving, got %q", got)
	}
	if got := EnergyLabel(9); got != "" {
		t.Fatalf("expected empty label for out-of-range rating, got %q", got)
	}
}

func TestIsCategory(t *testing.T) {
	if !IsCategory("Class assignment") {
		t.Fatal("expected Class assignment to be a category")
	}
	if IsCategory(CategoryCheckIn) {
		t.Fatal("synthetic Check-in must not be offered as a detailed category")
	}
}
