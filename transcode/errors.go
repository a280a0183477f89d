package transcode

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrDecode matches any *DecodeError
	ErrDecode = errors.New("audio could not be decoded")

	// ErrTooShort matches any *TooShortError
	ErrTooShort = errors.New("audio too short")

	// ErrSilentInput matches any *SilentInputError
	ErrSilentInput = errors.New("audio is silent")

	// ErrTierUnavailable is returned by a tier whose backend is missing,
	// e.g. no ffmpeg binary on the host
	ErrTierUnavailable = errors.New("decoder tier unavailable")

	errEmptyInput = errors.New("empty audio data")
)

// TierFailure records why one decoder tier rejected the input
type TierFailure struct {
	Tier string
	Err  error
}

func (f TierFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Tier, f.Err)
}

// DecodeError is returned when no tier could decode the input. Attempts are
// in the order the tiers were tried.
type DecodeError struct {
	Attempts []TierFailure
}

func (e *DecodeError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrDecode.Error()
	}

	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s (tried %s)", ErrDecode, strings.Join(parts, "; "))
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Unwrap exposes the per-tier causes to errors.Is and errors.As
func (e *DecodeError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// Tiers returns the names of the attempted tiers
func (e *DecodeError) Tiers() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Tier
	}
	return names
}

// TooShortError is returned when a decoded waveform is below the minimum
// duration
type TooShortError struct {
	Duration time.Duration
	Minimum  time.Duration
}

func (e *TooShortError) Error() string {
	return fmt.Sprintf("%s: %.3fs is below the %.3fs minimum", ErrTooShort, e.Duration.Seconds(), e.Minimum.Seconds())
}

func (e *TooShortError) Is(target error) bool {
	return target == ErrTooShort
}

// SilentInputError is returned when the waveform peak is below the silence
// threshold
type SilentInputError struct {
	Peak      float64
	Threshold float64
}

func (e *SilentInputError) Error() string {
	return fmt.Sprintf("%s: peak amplitude %.2e is below %.2e", ErrSilentInput, e.Peak, e.Threshold)
}

func (e *SilentInputError) Is(target error) bool {
	return target == ErrSilentInput
}
