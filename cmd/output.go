package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/RyanBlaney/sonido-vox/features"
)

// Output formats
const (
	formatJSON  = "json"
	formatTable = "table"
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatTable:
		return nil
	default:
		return fmt.Errorf("unknown output format %q, use json or table", format)
	}
}

// readInput reads an audio file and returns its extension as decoding hint
func readInput(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeFeatureTable prints one name/value row per feature in schema order
func writeFeatureTable(w io.Writer, v *features.Vector) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "FEATURE\tVALUE\n")
	values := v.Values()
	for i, name := range v.Schema().Names() {
		fmt.Fprintf(tw, "%s\t%.6g\n", name, values[i])
	}
	return tw.Flush()
}
