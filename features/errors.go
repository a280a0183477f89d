package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFeatureCorrupt matches any *FeatureCorruptError
var ErrFeatureCorrupt = errors.New("feature vector corrupt")

// FeatureCorruptError reports feature columns that cannot be handed to the
// classifier: missing, NaN or infinite, or not part of the schema
type FeatureCorruptError struct {
	Schema     string
	Missing    []string
	NonFinite  []string
	Unexpected []string
	Reason     string
}

func (e *FeatureCorruptError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.NonFinite) > 0 {
		parts = append(parts, "non-finite "+strings.Join(e.NonFinite, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}

	msg := ErrFeatureCorrupt.Error()
	if e.Schema != "" {
		msg = fmt.Sprintf("%s (schema %s)", msg, e.Schema)
	}
	if len(parts) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(parts, "; ")
}

func (e *FeatureCorruptError) Is(target error) bool {
	return target == ErrFeatureCorrupt
}

// Columns returns every offending column name
func (e *FeatureCorruptError) Columns() []string {
	out := make([]string, 0, len(e.Missing)+len(e.NonFinite)+len(e.Unexpected))
	out = append(out, e.Missing...)
	out = append(out, e.NonFinite...)
	return append(out, e.Unexpected...)
}
