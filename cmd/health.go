package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-vox/classifier"
)

func healthCommand(ctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the model artifacts load",
		Long:  `Load the scaler and classifier and print the model state. Exits non-zero when no model is available.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(ctx.Settings)
			if err != nil {
				return err
			}

			h := svc.Health()
			if err := writeJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
			if !h.ModelLoaded {
				return fmt.Errorf("%w: %s", classifier.ErrModelUnavailable, h.Error)
			}
			return nil
		},
	}
}
