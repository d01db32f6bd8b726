package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tgienger/stn/internal/models"
)

func (e *env) tags() ([]models.Tag, error) {
	ctx, cancel := e.ctx()
	defer cancel()
	tags, err := e.queries.Tags(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list tags")
	}
	return tags, nil
}

func findTag(tags []models.Tag, ref string) (models.Tag, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	for _, t := range tags {
		if t.ID == ref || strings.EqualFold(t.Name, ref) {
			return t, nil
		}
	}
	return models.Tag{}, errors.Errorf("no tag named %q", ref)
}

// tagIDs maps tag names or ids to ids
func (e *env) tagIDs(refs []string) ([]string, error) {
	tags, err := e.tags()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		t, err := findTag(tags, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func newTagsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := e.tags()
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tags")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range tags {
				fmt.Fprintf(tw, "%s\t#%s\t%s\n", shortID(t.ID), t.Name, t.Color)
			}
			return tw.Flush()
		},
	}

	var color string
	create := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx()
			defer cancel()
			t, err := e.queries.CreateTag(ctx, models.TagData{Name: strings.TrimPrefix(args[0], "#"), Color: color})
			if err != nil {
				return errors.Wrap(err, "create tag")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created #%s\n", t.Name)
			return nil
		},
	}
	create.Flags().StringVar(&color, "color", "", "hex color such as #3b82f6")

	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := e.tags()
			if err != nil {
				return err
			}
			t, err := findTag(tags, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx()
			defer cancel()
			if err := e.queries.DeleteTag(ctx, t.ID); err != nil {
				return errors.Wrap(err, "delete tag")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%s\n", t.Name)
			return nil
		},
	}

	cmd.AddCommand(ls, create, rm)
	return cmd
}
