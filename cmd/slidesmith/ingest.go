package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsawler/slidesmith/report"
)

func newIngestCmd(a *app) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract, describe, embed and store the slides of one or more decks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title != "" && len(args) > 1 {
				return fmt.Errorf("--title needs a single file")
			}
			svc, done, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer done()

			out := cmd.OutOrStdout()
			for _, path := range args {
				res, err := svc.Ingest(cmd.Context(), path, title)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: presentation %d %q, %d slides\n",
					path, res.Presentation.ID, res.Presentation.Title, len(res.Slides))
				for _, s := range res.Slides {
					fmt.Fprintf(out, "  %3d  %-20s %-18s %s\n", s.Index+1, s.Category, s.SlideType, s.Title)
				}
				if len(res.Warnings) > 0 {
					fmt.Fprintln(out, report.FormatWarnings(res.Warnings))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "presentation title (defaults to the document title)")
	cmd.Flags().BoolVar(&a.useOCR, "ocr", false, "recognize text in pictures (requires the ocr build tag)")
	return cmd
}
