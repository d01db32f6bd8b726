package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/dnd"
	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/tree"
	"github.com/tgienger/stn/internal/ui/editor"
)

var (
	errNoMatch   = errors.New("no note matches")
	errAmbiguous = errors.New("more than one note matches")
)

// resolve finds a note by id, unique id prefix or exact title
func resolve(notes []models.Note, ref string) (models.Note, error) {
	ref = strings.TrimSpace(ref)
	var prefixed, titled []models.Note
	for _, n := range notes {
		switch {
		case n.ID == ref:
			return n, nil
		case strings.HasPrefix(n.ID, ref):
			prefixed = append(prefixed, n)
		case strings.EqualFold(n.Title, ref):
			titled = append(titled, n)
		}
	}
	for _, set := range [][]models.Note{prefixed, titled} {
		switch len(set) {
		case 0:
			continue
		case 1:
			return set[0], nil
		default:
			return models.Note{}, errors.Wrap(errAmbiguous, ref)
		}
	}
	return models.Note{}, errors.Wrap(errNoMatch, ref)
}

// allNotes returns every active note, nested children included
func (e *env) allNotes() ([]models.Note, error) {
	ctx, cancel := e.ctx()
	defer cancel()
	notes, err := e.queries.Notes(ctx, models.NoteFilters{})
	if err != nil {
		return nil, errors.Wrap(err, "list notes")
	}
	return tree.Flatten(notes), nil
}

func (e *env) findNote(ref string) (models.Note, []models.Note, error) {
	notes, err := e.allNotes()
	if err != nil {
		return models.Note{}, nil, err
	}
	n, err := resolve(notes, ref)
	return n, notes, err
}

func (e *env) findArchived(ref string) (models.Note, error) {
	ctx, cancel := e.ctx()
	defer cancel()
	notes, err := e.queries.Archived(ctx)
	if err != nil {
		return models.Note{}, errors.Wrap(err, "list trash")
	}
	return resolve(notes, ref)
}

// engine loads the working set for a structural change
func (e *env) engine(notes []models.Note) *tree.Engine {
	eng := tree.NewEngine(e.queries, e.logger.Named("tree"))
	eng.Load(notes)
	return eng
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseStatus(s string) (models.NoteStatus, error) {
	st := models.NoteStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch strings.ToLower(s) {
	case "todo", "to-do":
		st = models.StatusNotStarted
	case "doing", "progress":
		st = models.StatusInProgress
	}
	if !st.Valid() {
		return "", errors.Errorf("unknown status %q (not-started, in-progress, done)", s)
	}
	return st, nil
}

// parsePriority returns nil for "none"
func parsePriority(s string) (*models.NotePriority, error) {
	if strings.EqualFold(s, "none") || s == "" {
		return nil, nil
	}
	p := models.NotePriority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return nil, errors.Errorf("unknown priority %q (low, medium, high, none)", s)
	}
	return &p, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func printTree(w io.Writer, notes []models.Note) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	tree.BuildForest(notes).Walk(func(n *tree.Node, depth int) bool {
		fmt.Fprintf(tw, "%s\t%s%s\t%s\t%s\n", shortID(n.ID()), strings.Repeat("  ", depth), n.Note.Title, n.Note.Status.Label(), noteMarks(n.Note))
		return true
	})
	return tw.Flush()
}

func noteMarks(n models.Note) string {
	var marks []string
	if n.IsFavorite {
		marks = append(marks, "★")
	}
	if n.Priority != nil {
		marks = append(marks, strings.ToLower(string(*n.Priority)))
	}
	if n.DueDate != nil {
		marks = append(marks, "due "+n.DueDate.Format("2006-01-02"))
	}
	for _, t := range n.Tags {
		marks = append(marks, "#"+t.Name)
	}
	return strings.Join(marks, " ")
}

func newListCmd(e *env) *cobra.Command {
	var status, priority string
	var tags []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List notes as a tree",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f models.NoteFilters
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				f.Status = &st
			}
			if priority != "" {
				p, err := parsePriority(priority)
				if err != nil {
					return err
				}
				f.Priority = p
			}
			if len(tags) > 0 {
				ids, err := e.tagIDs(tags)
				if err != nil {
					return err
				}
				f.Tags = ids
			}

			ctx, cancel := e.ctx()
			defer cancel()
			notes, err := e.queries.Notes(ctx, f)
			if err != nil {
				return errors.Wrap(err, "list notes")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), notes)
			}
			if len(notes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes")
				return nil
			}
			return printTree(cmd.OutOrStdout(), tree.Flatten(notes))
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only notes with this status")
	cmd.Flags().StringVar(&priority, "priority", "", "only notes with this priority")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "only notes with these tags (name or id)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newShowCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <note>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, _, err := e.findNote(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx()
			defer cancel()
			n, err := e.queries.Note(ctx, found.ID)
			if err != nil {
				return errors.Wrap(err, "get note")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), n)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n%s\n", n.Title, strings.Repeat("=", max(len([]rune(n.Title)), 3)))
			fmt.Fprintf(w, "id: %s  status: %s", n.ID, n.Status.Label())
			if marks := noteMarks(*n); marks != "" {
				fmt.Fprintf(w, "  %s", marks)
			}
			fmt.Fprintln(w)
			if text := editor.PlainText(n.Content); text != "" {
				fmt.Fprintf(w, "\n%s\n", text)
			}
			if len(n.Children) > 0 {
				fmt.Fprintln(w, "\nSub-notes:")
				for _, st := range models.Statuses {
					for _, c := range n.Children {
						if c.Status == st && !c.IsArchived {
							fmt.Fprintf(w, "  [%s] %s  %s\n", st.Label(), c.Title, shortID(c.ID))
						}
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newNewCmd(e *env) *cobra.Command {
	var parent, content string
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := models.CreateNoteData{Title: strings.Join(args, " ")}
			if parent != "" {
				p, _, err := e.findNote(parent)
				if err != nil {
					return err
				}
				data.ParentID = models.StringPtr(p.ID)
			}
			if content != "" {
				data.Content = editor.FromText(content)
			}
			ctx, cancel := e.ctx()
			defer cancel()
			n, err := e.queries.CreateNote(ctx, data)
			if err != nil {
				return errors.Wrap(err, "create note")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", shortID(n.ID), n.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "create under this note")
	cmd.Flags().StringVar(&content, "content", "", "initial text; '# ' lines become headings and '- ' lines list items")
	return cmd
}

func newMoveCmd(e *env) *cobra.Command {
	var parent string
	var toRoot bool
	cmd := &cobra.Command{
		Use:   "mv <note>",
		Short: "Move a note under another note or to the top level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (parent == "") == !toRoot {
				return errors.New("pass either --parent or --root")
			}
			n, notes, err := e.findNote(args[0])
			if err != nil {
				return err
			}
			var target *string
			if parent != "" {
				p, err := resolve(notes, parent)
				if err != nil {
					return err
				}
				target = models.StringPtr(p.ID)
			}

			eng := e.engine(notes)
			d := eng.ProposeReparent(n.ID, target)
			if d.Outcome == tree.Ignored {
				fmt.Fprintln(cmd.OutOrStdout(), "Already there")
				return nil
			}
			ctx, cancel := e.ctx()
			defer cancel()
			if err := eng.Apply(ctx, d); err != nil {
				return errors.Wrap(err, "move note")
			}
			where := "the top level"
			if target != nil {
				p, _ := eng.Note(*target)
				where = p.Title
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", n.Title, where)
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "new parent note")
	cmd.Flags().BoolVar(&toRoot, "root", false, "move to the top level")
	return cmd
}

func newReorderCmd(e *env) *cobra.Command {
	var up, down int
	var to int
	cmd := &cobra.Command{
		Use:   "reorder <note>",
		Short: "Move a note among its siblings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, notes, err := e.findNote(args[0])
			if err != nil {
				return err
			}
			eng := e.engine(notes)
			g := tree.Group{ParentID: n.ParentID}
			members := eng.Members(g)
			order := make([]string, 0, len(members))
			for _, m := range members {
				order = append(order, m.ID)
			}

			var ok bool
			switch {
			case cmd.Flags().Changed("to"):
				order, ok = dnd.MoveTo(order, n.ID, to-1)
			default:
				order, ok = dnd.Step(order, n.ID, down-up)
			}
			if !ok {
				return errors.Wrap(errNoMatch, n.ID)
			}
			d := eng.ProposeReorder(g, order)
			if d.Outcome == tree.Ignored {
				fmt.Fprintln(cmd.OutOrStdout(), "Order unchanged")
				return nil
			}
			ctx, cancel := e.ctx()
			defer cancel()
			if err := eng.Apply(ctx, d); err != nil {
				return errors.Wrap(err, "reorder")
			}
			for i, m := range eng.Members(g) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, m.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&up, "up", 0, "move up this many places")
	cmd.Flags().IntVar(&down, "down", 0, "move down this many places")
	cmd.Flags().IntVar(&to, "to", 1, "move to this 1-based place")
	return cmd
}

func newSetCmd(e *env) *cobra.Command {
	var title, status, priority, due string
	var favorite bool
	cmd := &cobra.Command{
		Use:   "set <note>",
		Short: "Change fields of a note",
		Example: `  stn set groceries --status done
  stn set groceries --priority none --due 2024-05-01 --favorite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := e.findNote(args[0])
			if err != nil {
				return err
			}
			var u models.UpdateNoteData
			flags := cmd.Flags()
			if flags.Changed("title") {
				u.Title = &title
			}
			if flags.Changed("status") {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				u.Status = &st
			}
			if flags.Changed("priority") {
				p, err := parsePriority(priority)
				if err != nil {
					return err
				}
				u.Priority = models.From(p)
			}
			if flags.Changed("due") {
				if strings.EqualFold(due, "none") || due == "" {
					u.DueDate = models.Null[time.Time]()
				} else {
					t, err := time.ParseInLocation("2006-01-02", due, time.Local)
					if err != nil {
						return errors.Errorf("due dates look like 2024-03-31, got %q", due)
					}
					u.DueDate = models.Some(t)
				}
			}
			if flags.Changed("favorite") {
				u.IsFavorite = &favorite
			}
			if u.IsEmpty() {
				return errors.New("nothing to change")
			}

			ctx, cancel := e.ctx()
			defer cancel()
			updated, err := e.queries.UpdateNote(ctx, n.ID, u)
			if err != nil {
				return errors.Wrap(err, "update note")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", updated.Title, updated.Status.Label(), noteMarks(*updated))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&status, "status", "", "not-started, in-progress or done")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium, high or none")
	cmd.Flags().StringVar(&due, "due", "", "due date as YYYY-MM-DD, or none")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "mark as favorite (--favorite=false to unmark)")
	return cmd
}

func newArchiveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <note>",
		Short: "Move a note to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := e.findNote(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx()
			defer cancel()
			if err := e.queries.ArchiveNote(ctx, n.ID); err != nil {
				return errors.Wrap(err, "archive note")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to the trash\n", n.Title)
			return nil
		},
	}
}

func newRestoreCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <note>",
		Short: "Bring a note back from the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.findArchived(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx()
			defer cancel()
			if _, err := e.queries.RestoreNote(ctx, n.ID); err != nil {
				return errors.Wrap(err, "restore note")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", n.Title)
			return nil
		},
	}
}

func newPurgeCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge <note>",
		Short: "Delete a trashed note forever",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.findArchived(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return errors.Errorf("%q cannot be recovered after this, pass --yes to confirm", n.Title)
			}
			ctx, cancel := e.ctx()
			defer cancel()
			if err := e.queries.DeleteNotePermanently(ctx, n.ID); err != nil {
				return errors.Wrap(err, "delete note")
			}
			if err := e.db.ForgetNote(n.ID); err != nil {
				e.logger.Warn("forget note", zap.String(logging.FieldNoteID, n.ID), zap.Error(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", n.Title)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}

func newTrashCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "trash",
		Short: "List archived notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx()
			defer cancel()
			notes, err := e.queries.Archived(ctx)
			if err != nil {
				return errors.Wrap(err, "list trash")
			}
			if len(notes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Trash is empty")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, n := range notes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", shortID(n.ID), n.Title, n.UpdatedAt.Local().Format("Jan 2, 2006"))
			}
			return tw.Flush()
		},
	}
}

func newRecentCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recent, err := e.db.RecentNotes(limit)
			if err != nil {
				return errors.Wrap(err, "read history")
			}
			if len(recent) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recent notes")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range recent {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", shortID(r.NoteID), r.Title, r.VisitedAt.Local().Format("Jan 2 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "how many notes to show")
	return cmd
}
