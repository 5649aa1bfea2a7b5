package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/slidesmith/assemble"
	"github.com/tsawler/slidesmith/generate"
	"github.com/tsawler/slidesmith/report"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		briefPath string
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "generate --brief brief.yaml",
		Short: "Generate a deck for a brief from the stored slides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			brief, err := loadBrief(briefPath)
			if err != nil {
				return err
			}
			var m assemble.Mode
			if mode != "" {
				if m, err = assemble.ParseMode(mode); err != nil {
					return err
				}
			}

			svc, done, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer done()

			res, err := svc.Generate(cmd.Context(), brief, m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wrote %s (%s, %d slides)\n", res.Path, res.Mode, len(res.Assignments))
			for _, as := range res.Assignments {
				fmt.Fprintf(out, "  %2d  %-30s slide %d  similarity %.3f\n",
					as.Section.Number, as.Section.Label, as.Candidate.ID, as.Similarity)
			}
			for _, c := range res.Changes {
				fmt.Fprintf(out, "  %s\n", c)
			}
			if len(res.Warnings) > 0 {
				fmt.Fprintln(out, report.FormatWarnings(res.Warnings))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&briefPath, "brief", "", "brief file (YAML or JSON)")
	cmd.Flags().StringVar(&mode, "mode", "", "assembly mode (subset, fresh); subset when all slides share a deck")
	_ = cmd.MarkFlagRequired("brief")
	return cmd
}

// loadBrief reads a YAML or JSON brief.
func loadBrief(path string) (generate.Brief, error) {
	var b generate.Brief
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("parsing brief %s: %w", path, err)
	}
	return b, b.Validate()
}
