package domain

import (
	"errors"
	"fmt"
)

// ErrValidation marks input the user has to correct. Nothing is persisted.
var ErrValidation = errors.New("validation error")

// Rating bounds shared by energy, stress and productivity.
const (
	MinRating     = 1
	MaxRating     = 5
	NeutralRating = 3
)

var (
	energyLabels       = [MaxRating]string{"Drained", "Low", "OK", "Good", "Strong"}
	stressLabels       = [MaxRating]string{"Calm", "Mild", "Tense", "High", "Intense"}
	productivityLabels = [MaxRating]string{"Stuck", "Slow", "Moving", "Solid", "Strong"}
)

// ValidRating reports whether v lies in [MinRating, MaxRating].
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}

// CheckRating returns an ErrValidation naming the field when v is out of range.
func CheckRating(field string, v int) error {
	if !ValidRating(v) {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrValidation, field, MinRating, MaxRating, v)
	}
	return nil
}

// EnergyLabel returns the word shown next to an energy rating.
func EnergyLabel(v int) string { return label(energyLabels, v) }

// StressLabel returns the word shown next to a stress rating.
func StressLabel(v int) string { return label(stressLabels, v) }

// ProductivityLabel returns the word shown next to a productivity rating.
func ProductivityLabel(v int) string { return label(productivityLabels, v) }

func label(set [MaxRating]string, v int) string {
	if !ValidRating(v) {
		return ""
	}
	return set[v-1]
}

// Validate checks the invariants every stored entry must satisfy.
func (e Entry) Validate() error {
	if err := CheckRating("energy", e.Energy); err != nil {
		return err
	}
	if err := CheckRating("stress", e.Stress); err != nil {
		return err
	}
	if err := CheckRating("productivity", e.Productivity); err != nil {
		return err
	}
	if e.Duration != nil && *e.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrValidation)
	}
	return nil
}
