package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/calendar"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/publish"
	"github.com/harrisonrobin/taskplan/pkg/scheduler"
	"github.com/harrisonrobin/taskplan/pkg/taskfile"
	"github.com/harrisonrobin/taskplan/pkg/tasks"
	"github.com/harrisonrobin/taskplan/pkg/taskwarrior"
)

// Task sources accepted by --source.
const (
	sourceStore       = "store"
	sourceTaskwarrior = "taskwarrior"
	sourceFile        = "file"
)

// defaultTaskwarriorFilter selects what "plan --source taskwarrior" exports.
var defaultTaskwarriorFilter = []string{"status:pending"}

// planFlags holds the flags for the plan command.
type planFlags struct {
	date       string
	week       bool
	source     string
	tasksFile  string
	eventsFile string
	filter     []string
	google     bool
	lunch      bool
	publish    bool
}

// AddPlanCommand adds the plan command.
func AddPlanCommand(root *cobra.Command, a *app) {
	flags := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Schedule open tasks into the free time of a day or week",
		Long: `Build a plan for one day (or seven with --week) from the active tasks.

Fixed events come from Google Calendar (--google), a YAML file (--events) or
a built-in 12:00-13:00 lunch break (--lunch). With --publish the plan items
are written to the configured plan calendar.

Examples:
  taskplan plan
  taskplan plan --date 2026-03-04 --events busy.yaml
  taskplan plan --week --source taskwarrior --google --publish`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.Context(), a, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.date, "date", "", "day to plan, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&flags.week, "week", false, "plan seven days starting at --date")
	cmd.Flags().StringVar(&flags.source, "source", sourceStore, "task source: store, taskwarrior or file")
	cmd.Flags().StringVar(&flags.tasksFile, "tasks", "", "YAML task file for --source file")
	cmd.Flags().StringSliceVar(&flags.filter, "filter", nil, "Taskwarrior filter for --source taskwarrior")
	cmd.Flags().StringVar(&flags.eventsFile, "events", "", "YAML file of fixed events")
	cmd.Flags().BoolVar(&flags.google, "google", false, "read fixed events from Google Calendar")
	cmd.Flags().BoolVar(&flags.lunch, "lunch", false, "block 12:00-13:00 every day")
	cmd.Flags().BoolVar(&flags.publish, "publish", false, "write the plan to the plan calendar")
	cmd.MarkFlagsMutuallyExclusive("google", "events", "lunch")

	root.AddCommand(cmd)
}

func runPlan(ctx context.Context, a *app, flags *planFlags, w io.Writer) error {
	day, err := a.parseDate(flags.date)
	if err != nil {
		return err
	}

	src, done, err := a.taskSource(ctx, flags)
	if err != nil {
		return err
	}
	defer done()

	var st publishState
	var sink publish.Sink
	var provider calendar.Provider
	if flags.google || flags.publish {
		if st, err = a.loadPublishState(); err != nil {
			return err
		}
		client, err := a.googleClient(ctx, st.index)
		if err != nil {
			return err
		}
		sink = client
		if flags.google {
			provider = client
		}
	}
	switch {
	case flags.eventsFile != "":
		f, err := taskfile.Load(flags.eventsFile)
		if err != nil {
			return err
		}
		events, err := f.FixedEvents()
		if err != nil {
			return err
		}
		provider = calendar.NewStatic(events)
	case flags.lunch:
		provider = calendar.Lunch()
	}

	planner, err := a.planner(src, provider)
	if err != nil {
		return err
	}
	var plans []scheduler.DayPlan
	if flags.week {
		plans, err = planner.PlanWeek(ctx, day)
	} else {
		var plan scheduler.DayPlan
		plan, err = planner.PlanDay(ctx, day)
		plans = []scheduler.DayPlan{plan}
	}
	if err != nil {
		return err
	}

	var reports []*publish.Report
	if flags.publish {
		pub := a.publisher(sink, st)
		for _, plan := range plans {
			report, err := pub.Publish(ctx, plan.Items())
			if err != nil {
				return errors.Wrapf(err, "publish plan of %s", plan.Date.Format(dateLayout))
			}
			reports = append(reports, &report)
			a.logger.Info().
				Str("date", plan.Date.Format(dateLayout)).
				Int("published", report.Published).
				Int("failed", report.Failed).
				Msg("plan published")
		}
	}

	if a.flags.JSON {
		views := make([]dayView, len(plans))
		for i, plan := range plans {
			views[i] = newDayView(plan)
			if i < len(reports) {
				views[i].Published = &publishView{Published: reports[i].Published, Failed: reports[i].Failed}
			}
		}
		return writeJSON(w, views)
	}
	for i, plan := range plans {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printPlan(w, plan); err != nil {
			return err
		}
	}
	return nil
}

// taskSource returns the selected task pool and a function releasing it.
func (a *app) taskSource(ctx context.Context, flags *planFlags) (scheduler.TaskSource, func(), error) {
	switch flags.source {
	case sourceStore, "":
		s, err := a.openStore()
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case sourceTaskwarrior:
		filter := flags.filter
		if len(filter) == 0 {
			filter = defaultTaskwarriorFilter
		}
		tws, err := taskwarrior.NewClient().GetTasks(ctx, filter)
		if err != nil {
			return nil, nil, err
		}
		ts, err := taskwarrior.ToModels(tws)
		if err != nil {
			return nil, nil, err
		}
		return tasks.NewMemoryRepository(ts...), func() {}, nil
	case sourceFile:
		if flags.tasksFile == "" {
			return nil, nil, errors.Wrap(errors.ErrInvalidInput, "--source file needs --tasks")
		}
		f, err := taskfile.Load(flags.tasksFile)
		if err != nil {
			return nil, nil, err
		}
		ts, err := f.ModelTasks()
		if err != nil {
			return nil, nil, err
		}
		return tasks.NewMemoryRepository(ts...), func() {}, nil
	}
	return nil, nil, errors.Wrapf(errors.ErrUnknownSource, "%q", flags.source)
}

func (a *app) planner(src scheduler.TaskSource, provider calendar.Provider) (*scheduler.Planner, error) {
	profile, err := a.cfg.SchedulerProfile()
	if err != nil {
		return nil, err
	}
	return scheduler.NewPlanner(src, provider, scheduler.NewAllocator(a.scorer()),
		scheduler.WithProfile(profile),
		scheduler.WithClock(a.clock),
		scheduler.WithLogger(a.logger),
	), nil
}

type itemView struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	ProjectID    string    `json:"project_id,omitempty"`
	CriticalPath bool      `json:"critical_path,omitempty"`
}

type eventView struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Work  bool      `json:"work"`
}

type backlogView struct {
	TaskID  string `json:"task_id"`
	Title   string `json:"title"`
	Minutes int    `json:"minutes"`
}

type publishView struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

type dayView struct {
	Date      string        `json:"date"`
	Fixed     []eventView   `json:"fixed"`
	Work      []itemView    `json:"work"`
	Personal  []itemView    `json:"personal"`
	Backlog   []backlogView `json:"backlog"`
	Published *publishView  `json:"published,omitempty"`
}

func newDayView(plan scheduler.DayPlan) dayView {
	v := dayView{
		Date:     plan.Date.Format(dateLayout),
		Fixed:    make([]eventView, 0, len(plan.Fixed)),
		Work:     itemViews(plan.Work),
		Personal: itemViews(plan.Personal),
		Backlog:  make([]backlogView, 0, len(plan.Backlog)),
	}
	for _, ev := range plan.Fixed {
		v.Fixed = append(v.Fixed, eventView{Title: ev.Title, Start: ev.Start, End: ev.End, Work: ev.IsWork})
	}
	for _, t := range plan.Backlog {
		v.Backlog = append(v.Backlog, backlogView{TaskID: t.ID, Title: t.Title, Minutes: t.EffectiveDuration()})
	}
	return v
}

func itemViews(items []model.ScheduledItem) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, itemView{
			TaskID:       it.Task.ID,
			Title:        it.Task.Title,
			Start:        it.Start,
			End:          it.End,
			ProjectID:    it.Task.ProjectID,
			CriticalPath: it.Task.IsCriticalPath,
		})
	}
	return out
}

func printPlan(w io.Writer, plan scheduler.DayPlan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Plan for %s (%s)\n", plan.Date.Format(dateLayout), plan.Date.Weekday())
	if len(plan.Fixed) > 0 {
		fmt.Fprintln(tw, "\nFixed")
		for _, ev := range plan.Fixed {
			fmt.Fprintf(tw, "  %s\t%s\t\n", span(ev.Start, ev.End), ev.Title)
		}
	}
	printItems(tw, "Work", plan.Work)
	printItems(tw, "Personal", plan.Personal)
	if len(plan.Backlog) > 0 {
		fmt.Fprintf(tw, "\nBacklog (%d)\n", len(plan.Backlog))
		for _, t := range plan.Backlog {
			fmt.Fprintf(tw, "  %dm\t%s\t%s\n", t.EffectiveDuration(), t.Title, t.ID)
		}
	}
	return tw.Flush()
}

func printItems(w io.Writer, heading string, items []model.ScheduledItem) {
	fmt.Fprintf(w, "\n%s\n", heading)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (nothing scheduled)")
		return
	}
	for _, it := range items {
		marker := ""
		if it.Task.IsCriticalPath {
			marker = " ◆"
		}
		fmt.Fprintf(w, "  %s\t%s%s\t%s\n", span(it.Start, it.End), it.Task.Title, marker, it.Task.ID)
	}
}

func span(start, end time.Time) string {
	return start.UTC().Format("15:04") + "-" + end.UTC().Format("15:04")
}
