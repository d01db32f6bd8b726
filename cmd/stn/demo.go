package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/api/apitest"
	"github.com/tgienger/stn/internal/cache"
	"github.com/tgienger/stn/internal/db"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/ui/editor"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo123"
)

// seedDemo fills the in-memory server with a small workspace
func seedDemo(srv *apitest.Server) {
	user := srv.SeedUser(demoEmail, "demo", demoPassword)
	urgent := srv.SeedTag(user.ID, models.Tag{Name: "urgent", Color: "#ef4444"})
	home := srv.SeedTag(user.ID, models.Tag{Name: "home", Color: "#22c55e"})

	high := models.PriorityHigh
	seed := func(n models.Note) models.Note {
		n.AuthorID = user.ID
		return srv.SeedNote(n)
	}

	welcome := seed(models.Note{
		Title:      "Welcome",
		Position:   0,
		IsFavorite: true,
		Content:    editor.FromText("# Welcome to stn\nNotes nest inside each other.\n- Press m on a note to move it\n- Press e to edit this text\n---\nChanges save by themselves."),
	})
	project := seed(models.Note{Title: "Kitchen remodel", Position: 1, Tags: []models.Tag{home}})
	seed(models.Note{Title: "Pick tiles", Position: 0, ParentID: models.StringPtr(project.ID), Status: models.StatusInProgress})
	seed(models.Note{Title: "Call plumber", Position: 1, ParentID: models.StringPtr(project.ID), Priority: &high, Tags: []models.Tag{urgent}})
	seed(models.Note{Title: "Measure cabinets", Position: 2, ParentID: models.StringPtr(project.ID), Status: models.StatusDone})
	seed(models.Note{Title: "Keyboard tips", Position: 0, ParentID: models.StringPtr(welcome.ID)})
}

func newDemoCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:         "demo",
		Short:       "Try the interface against a local throwaway server",
		Long:        "demo starts an in-memory notes server with sample data and opens the interface signed in as a demo user. Nothing is kept after exit.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := apitest.New()
			defer srv.Close()
			seedDemo(srv)

			database, err := db.New(":memory:")
			if err != nil {
				return errors.Wrap(err, "open database")
			}
			defer database.Close()

			client, err := api.New(api.Options{BaseURL: srv.URL(), Session: database, Logger: e.logger.Named("api")})
			if err != nil {
				return err
			}
			q := cache.NewQueries(cache.New(e.logger.Named("cache")), client, e.logger.Named("cache"))

			ctx, cancel := e.ctx()
			_, err = q.Login(ctx, models.Credentials{Email: demoEmail, Password: demoPassword})
			cancel()
			if err != nil {
				return errors.Wrap(err, "sign in to demo server")
			}
			return e.runTUI(q, database)
		},
	}
}
