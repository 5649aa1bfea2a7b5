package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsawler/slidesmith/store"
)

func newPresentationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presentations",
		Short: "List the ingested presentations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListPresentations(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLIDES\tINGESTED\tTITLE\tPATH")
			for _, p := range list {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
					p.ID, p.SlideCount, p.CreatedAt.Format(time.DateTime), p.Title, p.StoragePath)
			}
			return w.Flush()
		},
	}
}

func newSlidesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "slides <presentation-id>",
		Short: "List the stored slides of a presentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid presentation id %q", args[0])
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			pres, err := st.GetPresentation(cmd.Context(), id)
			if err != nil {
				return err
			}
			slides, err := st.ListSlides(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "%s (%s)\n", pres.Title, pres.StoragePath)
			fmt.Fprintln(w, "ID\tSLIDE\tCATEGORY\tTYPE\tTITLE\tTAGS\tAUDIENCE\tSTAGE")
			for _, s := range slides {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.Index+1, s.Category, s.SlideType, s.Title,
					strings.Join(s.Tags, ","), s.Audience, s.SalesStage)
			}
			return w.Flush()
		},
	}
}

func newMetadataCmd(a *app) *cobra.Command {
	var (
		title, purpose, audience, stage string
		tags                            []string
	)
	cmd := &cobra.Command{
		Use:   "metadata <slide-id>",
		Short: "Edit the metadata of a stored slide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid slide id %q", args[0])
			}
			var u store.MetadataUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				u.Title = &title
			}
			if flags.Changed("purpose") {
				u.Purpose = &purpose
			}
			if flags.Changed("audience") {
				u.Audience = &audience
			}
			if flags.Changed("sales-stage") {
				u.SalesStage = &stage
			}
			if flags.Changed("tags") {
				u.Tags = append([]string{}, tags...)
			}
			if u.IsEmpty() {
				return fmt.Errorf("nothing to update")
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.UpdateSlideMetadata(cmd.Context(), id, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated slide %d\n", id)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "slide title")
	flags.StringVar(&purpose, "purpose", "", "slide purpose")
	flags.StringVar(&audience, "audience", "", "intended audience")
	flags.StringVar(&stage, "sales-stage", "", "sales stage")
	flags.StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	return cmd
}
