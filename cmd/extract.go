package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-vox/features"
)

// extractReport is the json output of the extract command
type extractReport struct {
	File            string           `json:"file"`
	DecoderTier     string           `json:"decoder_tier"`
	SchemaVersion   string           `json:"schema_version"`
	SampleRate      int              `json:"sample_rate"`
	DurationSeconds float64          `json:"duration_seconds"`
	VoicedFrames    int              `json:"voiced_frames"`
	ElapsedSeconds  float64          `json:"elapsed_seconds"`
	Features        *features.Vector `json:"features"`
}

func extractCommand(ctx *Context) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "extract [input]",
		Short: "Extract the voice feature vector of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			data, hint, err := readInput(args[0])
			if err != nil {
				return err
			}

			pipeline, err := newPipeline(ctx.Settings)
			if err != nil {
				return err
			}

			analysis, audio, err := pipeline.Run(cmd.Context(), data, hint)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if format == formatTable {
				fmt.Fprintf(out, "%s: %.2fs at %d Hz via %s\n\n", args[0], analysis.Duration.Seconds(), analysis.SampleRate, audio.Tier)
				return writeFeatureTable(out, analysis.Vector)
			}

			report := extractReport{
				File:            args[0],
				DecoderTier:     audio.Tier,
				SchemaVersion:   analysis.Vector.Schema().Version(),
				SampleRate:      analysis.SampleRate,
				DurationSeconds: analysis.Duration.Seconds(),
				ElapsedSeconds:  analysis.Elapsed.Seconds(),
				Features:        analysis.Vector,
			}
			if analysis.F0 != nil {
				report.VoicedFrames = analysis.F0.NumVoiced()
			}
			return writeJSON(out, report)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json, table")
	return cmd
}
