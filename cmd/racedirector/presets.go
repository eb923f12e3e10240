package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/midnightgrind/racedirector/internal/config"
)

func newPresetsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the AI difficulty presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			presets, err := config.GetDifficultyPresets()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(presets)
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tNAME\tSPEED\tREACTION\tMISTAKES\tAGGRESSION\tLINE\tRUBBER BAND")
			for i, p := range presets {
				fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
					i, p.Name, p.SpeedMultiplier, p.ReactionTime, p.MistakeFrequency,
					p.AggressionBase, p.RacingLineOptimality, p.RubberBandLevel)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print presets as JSON")
	return cmd
}
