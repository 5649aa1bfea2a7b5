package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/slidesmith/assemble"
	"github.com/tsawler/slidesmith/pptx"
	"github.com/tsawler/slidesmith/report"
	"github.com/tsawler/slidesmith/substitute"
)

func newAssembleCmd(a *app) *cobra.Command {
	var (
		keep     string
		mode     string
		replPath string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "assemble <file> --keep 1,3,5",
		Short: "Build a deck from selected slides of one deck, optionally replacing text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := assemble.ParseMode(mode)
			if err != nil {
				return err
			}
			indices, err := parseIndices(keep)
			if err != nil {
				return err
			}
			repl, err := loadReplacements(replPath)
			if err != nil {
				return err
			}
			src, err := pptx.Open(args[0])
			if err != nil {
				return err
			}

			selections := make([]assemble.Selection, len(indices))
			for i, idx := range indices {
				selections[i] = assemble.Selection{SourceIndex: idx, Replacements: repl}
			}
			out, err := (&assemble.Assembler{Logger: a.logger}).Assemble(src, m, selections)
			if err != nil {
				return err
			}

			if output == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				output = filepath.Join(a.cfg.OutputDir, base+"_"+string(m)+".pptx")
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := out.Package.Save(output); err != nil {
				return err
			}
			a.metrics.ObserveSubstitutions(string(m), len(out.Changes))
			a.metrics.ObserveAssembly(string(m))
			a.metrics.ObserveWarnings(out.Warnings)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "wrote %s (%d slides)\n", output, out.Package.SlideCount())
			for _, c := range out.Changes {
				fmt.Fprintf(w, "  %s\n", c)
			}
			if len(out.Warnings) > 0 {
				fmt.Fprintln(w, report.FormatWarnings(out.Warnings))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keep, "keep", "", "slides to keep, 1-indexed (e.g. 1,3-5)")
	cmd.Flags().StringVar(&mode, "mode", string(assemble.ModeSubset), "assembly mode (subset, fresh)")
	cmd.Flags().StringVar(&replPath, "replacements", "", `JSON file of {"original": "replacement"} pairs or generated slide maps`)
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file")
	_ = cmd.MarkFlagRequired("keep")
	return cmd
}

// loadReplacements reads a replacement map. The file holds either a single
// {"original": "replacement"} object or a list of generated slide maps,
// which are merged.
func loadReplacements(path string) (substitute.Replacements, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var repl substitute.Replacements
	if err := json.Unmarshal(data, &repl); err == nil {
		return repl, nil
	}
	var items []substitute.Generated
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing replacements %s: %w", path, err)
	}
	merged, _ := substitute.Merge(items)
	return merged, nil
}
