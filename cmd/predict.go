package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-vox/classifier"
)

// predictReport is the json output of the predict command, with the
// same fields the HTTP API returns
type predictReport struct {
	File                  string             `json:"file"`
	Prediction            int                `json:"prediction"`
	RiskScore             float64            `json:"risk_score"`
	ProbabilityHealthy    float64            `json:"probability_healthy"`
	ProbabilityParkinsons float64            `json:"probability_parkinsons"`
	Message               string             `json:"message"`
	DecoderTier           string             `json:"decoder_tier"`
	Features              map[string]float64 `json:"features,omitempty"`
}

func predictCommand(ctx *Context) *cobra.Command {
	var (
		format       string
		withFeatures bool
	)

	cmd := &cobra.Command{
		Use:   "predict [input]",
		Short: "Classify an audio file with the configured model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			data, hint, err := readInput(args[0])
			if err != nil {
				return err
			}

			svc, err := newService(ctx.Settings)
			if err != nil {
				return err
			}

			result, err := svc.Predict(cmd.Context(), data, hint)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			pred := result.Prediction
			out := cmd.OutOrStdout()
			if format == formatTable {
				fmt.Fprintf(out, "%s: %s (risk score %.2f)\n", args[0], pred.Message, pred.RiskScore)
				fmt.Fprintf(out, "healthy %.2f%%, at risk %.2f%%\n",
					classifier.Round(pred.ProbabilityHealthy*100, 2),
					classifier.Round(pred.ProbabilityAtRisk*100, 2))
				if withFeatures {
					fmt.Fprintln(out)
					return writeFeatureTable(out, result.Analysis.Vector)
				}
				return nil
			}

			report := predictReport{
				File:                  args[0],
				Prediction:            pred.Label,
				RiskScore:             pred.RiskScore,
				ProbabilityHealthy:    classifier.Round(pred.ProbabilityHealthy*100, 2),
				ProbabilityParkinsons: classifier.Round(pred.ProbabilityAtRisk*100, 2),
				Message:               pred.Message,
				DecoderTier:           result.Tier,
			}
			if withFeatures {
				report.Features = result.Analysis.Vector.Map()
			}
			return writeJSON(out, report)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json, table")
	cmd.Flags().BoolVar(&withFeatures, "features", false, "Include the feature vector")
	return cmd
}
