package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/report"
	"github.com/tsawler/slidesmith/schema"
)

type inspectedSlide struct {
	Metadata schema.Metadata `json:"metadata"`
	Slide    *model.Slide    `json:"slide"`
}

type inspection struct {
	Slides   []inspectedSlide `json:"slides"`
	Warnings []report.Warning `json:"warnings,omitempty"`
}

func newInspectCmd(a *app) *cobra.Command {
	var (
		format string
		slides string
	)
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the slide models and derived metadata of a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			x, done, err := a.extractor()
			if err != nil {
				return err
			}
			defer done()
			if slides != "" {
				indices, err := parseIndices(slides)
				if err != nil {
					return err
				}
				x = x.Slides(indices...)
			}

			res, err := x.ExtractFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := inspection{Warnings: res.Warnings}
			for _, s := range res.Slides {
				out.Slides = append(out.Slides, inspectedSlide{Metadata: schema.Describe(s), Slide: s})
			}
			return writeInspection(cmd.OutOrStdout(), format, out)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, yaml)")
	cmd.Flags().StringVar(&slides, "slides", "", "slides to inspect, 1-indexed (e.g. 1,3-5)")
	cmd.Flags().BoolVar(&a.useOCR, "ocr", false, "recognize text in pictures (requires the ocr build tag)")
	return cmd
}

// writeInspection encodes v as indented JSON, or as YAML with the same
// field names.
func writeInspection(w io.Writer, format string, v inspection) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
