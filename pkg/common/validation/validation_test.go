package validation

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/vnykmshr/tasko/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("test", "capacity", tt.value)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 4096, false},
		{"zero value", 0, false},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("test", "stack_size", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateNonNegative(%d) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
		})
	}
}

func TestValidateDurations(t *testing.T) {
	tests := []struct {
		name        string
		value       time.Duration
		wantPosErr  bool
		wantNNegErr bool
	}{
		{"positive", 10 * time.Millisecond, false, false},
		{"zero", 0, true, false},
		{"negative", -time.Second, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePositiveDuration("test", "interval", tt.value); (err != nil) != tt.wantPosErr {
				t.Errorf("ValidatePositiveDuration(%v) error = %v", tt.value, err)
			}
			if err := ValidateNonNegativeDuration("test", "delay", tt.value); (err != nil) != tt.wantNNegErr {
				t.Errorf("ValidateNonNegativeDuration(%v) error = %v", tt.value, err)
			}
		})
	}
}

func TestValidateNotNil(t *testing.T) {
	if err := ValidateNotNil("test", "task", nil); err == nil {
		t.Error("expected error for nil value")
	}
	if err := ValidateNotNil("test", "task", struct{}{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateNotEmpty(t *testing.T) {
	if err := ValidateNotEmpty("test", "cron", ""); err == nil {
		t.Error("expected error for empty string")
	}
	if err := ValidateNotEmpty("test", "cron", "@every 1s"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidationErrorWrapping(t *testing.T) {
	err := ValidatePositive("registry", "capacity", 0)
	if !stderrors.Is(err, errors.ErrInvalidConfiguration) {
		t.Errorf("expected error to wrap ErrInvalidConfiguration, got %v", err)
	}

	var verr *errors.ValidationError
	if !stderrors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Module != "registry" || verr.Field != "capacity" {
		t.Errorf("unexpected details: %+v", verr)
	}
	if verr.Hint == "" {
		t.Error("expected a hint")
	}
}
