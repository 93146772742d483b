package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/auth"
	"github.com/harrisonrobin/taskplan/pkg/colors"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/google"
	"github.com/harrisonrobin/taskplan/pkg/index"
	"github.com/harrisonrobin/taskplan/pkg/overdue"
	"github.com/harrisonrobin/taskplan/pkg/project"
	"github.com/harrisonrobin/taskplan/pkg/publish"
	"github.com/harrisonrobin/taskplan/pkg/scoring"
	"github.com/harrisonrobin/taskplan/pkg/store"
	"github.com/harrisonrobin/taskplan/pkg/tasks"
)

const dateLayout = "2006-01-02"

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Resolve(a.cfg.Store.Path))
}

func (a *app) scorer() scoring.Scorer {
	return scoring.NewScorer(a.cfg.Weights)
}

func (a *app) taskService(repo tasks.Repository) *tasks.Service {
	return tasks.NewService(repo, a.clock, a.logger)
}

func (a *app) projectService(repo project.Repository, capacity int) *project.Service {
	return project.NewService(repo, project.NewPredictor(capacity), a.logger)
}

func (a *app) authOptions() auth.Options {
	return auth.Options{
		CredentialsFile: a.cfg.Resolve(a.cfg.Calendar.CredentialsFile),
		TokenFile:       a.cfg.Resolve(a.cfg.Calendar.TokenFile),
		Port:            a.cfg.Calendar.Port,
		Logger:          a.logger,
	}
}

// calendarLinked reports whether a plan calendar is configured and a token
// exists, so calendar calls will not start the browser flow.
func (a *app) calendarLinked() bool {
	if a.cfg.Calendar.Name == "" {
		return false
	}
	_, err := os.Stat(a.authOptions().TokenFile)
	return err == nil
}

// publishState is the on-disk bookkeeping of published plans.
type publishState struct {
	index  *index.EventIndex
	table  *overdue.Table
	colors *colors.Cache
}

func (a *app) loadPublishState() (publishState, error) {
	dir := a.cfg.StateDir()
	idx, err := index.New(filepath.Join(dir, index.FileName))
	if err != nil {
		return publishState{}, errors.Wrap(err, "load event index")
	}
	table, err := overdue.New(filepath.Join(dir, overdue.FileName))
	if err != nil {
		return publishState{}, errors.Wrap(err, "load overdue table")
	}
	cache, err := colors.New(filepath.Join(dir, colors.FileName))
	if err != nil {
		return publishState{}, errors.Wrap(err, "load color cache")
	}
	return publishState{index: idx, table: table, colors: cache}, nil
}

func (a *app) googleClient(ctx context.Context, idx *index.EventIndex) (*google.CalendarClient, error) {
	srv, err := auth.CalendarService(ctx, a.authOptions())
	if err != nil {
		return nil, err
	}
	return google.NewClient(ctx, srv, google.Options{
		PlanCalendar:  a.cfg.Calendar.Name,
		BusyCalendars: a.cfg.Calendar.Busy,
		Index:         idx,
		Logger:        a.logger,
	})
}

func (a *app) publisher(sink publish.Sink, st publishState) *publish.Publisher {
	return publish.New(sink, st.index, st.table, st.colors,
		publish.WithLimit(a.cfg.Calendar.PublishLimit),
		publish.WithLogger(a.logger),
	)
}

// parseDate reads a YYYY-MM-DD flag; empty means today.
func (a *app) parseDate(s string) (time.Time, error) {
	if s == "" {
		now := a.clock.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrInvalidInput, "date %q, want YYYY-MM-DD", s)
	}
	return day, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
