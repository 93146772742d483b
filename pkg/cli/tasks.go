package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/tasks"
)

// addFlags holds the flags for the add command.
type addFlags struct {
	description string
	minutes     int
	maxMinutes  int
	priority    int
	energy      int
	project     string
	context     string
	tags        []string
	blockedBy   []string
	private     bool
	activate    bool
}

// AddTaskCommands adds add, list, complete, activate, resume and force-today.
func AddTaskCommands(root *cobra.Command, a *app) {
	root.AddCommand(newAddCmd(a), newListCmd(a))

	root.AddCommand(newTransitionCmd(a, "complete TASK_ID", "Mark a task done and unlock its dependents",
		func(ctx context.Context, svc *tasks.Service, id string, w io.Writer) error {
			done, err := svc.CompleteTask(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Completed %s\n", done.Task.Title)
			for _, t := range done.Unlocked {
				fmt.Fprintf(w, "Unlocked %s (%s)\n", t.Title, t.ID)
			}
			a.retire(ctx, id)
			return nil
		}))
	root.AddCommand(newTransitionCmd(a, "activate TASK_ID", "Move a task out of the inbox",
		func(ctx context.Context, svc *tasks.Service, id string, w io.Writer) error {
			t, err := svc.Activate(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s is %s\n", t.Title, t.Status)
			return nil
		}))
	root.AddCommand(newTransitionCmd(a, "resume TASK_ID", "Return a paused task to todo",
		func(ctx context.Context, svc *tasks.Service, id string, w io.Writer) error {
			t, err := svc.Resume(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s resumed at %d%%\n", t.Title, t.PercentComplete)
			return nil
		}))
	root.AddCommand(newTransitionCmd(a, "force-today TASK_ID", "Make a task due now at top priority",
		func(ctx context.Context, svc *tasks.Service, id string, w io.Writer) error {
			t, err := svc.ForceToday(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s is due today\n", t.Title)
			return nil
		}))
}

func newAddCmd(a *app) *cobra.Command {
	flags := &addFlags{}

	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task to the inbox",
		Long: `Add a task to the local store. New tasks land in the inbox; pass
--activate to make them schedulable right away.

Examples:
  taskplan add "Write quarterly report" --min 60 --max 120 --priority 4
  taskplan add Call the dentist --private --activate`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), a, flags, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&flags.description, "description", "d", "", "longer description")
	cmd.Flags().IntVar(&flags.minutes, "min", 0, "minimum estimate in minutes")
	cmd.Flags().IntVar(&flags.maxMinutes, "max", 0, "maximum estimate in minutes")
	cmd.Flags().IntVarP(&flags.priority, "priority", "p", 0, "priority 1-5 (default 3)")
	cmd.Flags().IntVarP(&flags.energy, "energy", "e", 0, "energy required 1-3 (default 2)")
	cmd.Flags().StringVar(&flags.project, "project", "", "project id")
	cmd.Flags().StringVar(&flags.context, "context", "", "context id")
	cmd.Flags().StringSliceVarP(&flags.tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().StringSliceVar(&flags.blockedBy, "blocked-by", nil, "id of a task that must finish first (repeatable)")
	cmd.Flags().BoolVar(&flags.private, "private", false, "schedule into personal hours")
	cmd.Flags().BoolVar(&flags.activate, "activate", false, "move the task out of the inbox")
	return cmd
}

func runAdd(ctx context.Context, a *app, flags *addFlags, title string, w io.Writer) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	svc := a.taskService(s)
	task, err := svc.CreateTask(ctx, tasks.CreateInput{
		Title:          title,
		Description:    flags.description,
		DurationMin:    flags.minutes,
		DurationMax:    flags.maxMinutes,
		Priority:       flags.priority,
		EnergyRequired: flags.energy,
		ProjectID:      flags.project,
		ContextID:      flags.context,
		IsPrivate:      flags.private,
		Tags:           flags.tags,
	})
	if err != nil {
		return err
	}
	if len(flags.blockedBy) > 0 {
		task.BlockedBy = flags.blockedBy
		if err := s.Save(ctx, task); err != nil {
			return err
		}
	}
	if flags.activate {
		if task, err = svc.Activate(ctx, task.ID); err != nil {
			return err
		}
	}
	if a.flags.JSON {
		return writeJSON(w, newTaskView(task))
	}
	fmt.Fprintln(w, task.ID)
	return nil
}

func newListCmd(a *app) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), a, statuses, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "only these statuses (default all)")
	return cmd
}

func runList(ctx context.Context, a *app, names []string, w io.Writer) error {
	statuses := make([]model.Status, 0, len(names))
	for _, name := range names {
		st, err := model.ParseStatus(name)
		if err != nil {
			return err
		}
		statuses = append(statuses, st)
	}

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.ListTasks(ctx, statuses...)
	if err != nil {
		return err
	}
	if a.flags.JSON {
		views := make([]taskView, len(list))
		for i, t := range list {
			views[i] = newTaskView(t)
		}
		return writeJSON(w, views)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRI\tEST\tTITLE")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%dm\t%s\n", t.ID, t.Status, t.Priority, t.DurationExpected(), t.Title)
	}
	return tw.Flush()
}

type taskView struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Priority  int      `json:"priority"`
	Energy    int      `json:"energy"`
	Minutes   int      `json:"minutes"`
	ProjectID string   `json:"project_id,omitempty"`
	Private   bool     `json:"private,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	BlockedBy []string `json:"blocked_by,omitempty"`
}

func newTaskView(t *model.Task) taskView {
	return taskView{
		ID:        t.ID,
		Title:     t.Title,
		Status:    string(t.Status),
		Priority:  t.Priority,
		Energy:    t.EnergyRequired,
		Minutes:   t.DurationExpected(),
		ProjectID: t.ProjectID,
		Private:   t.IsPrivate,
		Tags:      t.Tags,
		BlockedBy: t.BlockedBy,
	}
}

type transitionFunc func(ctx context.Context, svc *tasks.Service, id string, w io.Writer) error

// newTransitionCmd builds a command that applies one lifecycle change to a stored task.
func newTransitionCmd(a *app, use, short string, fn transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			return fn(cmd.Context(), a.taskService(s), args[0], cmd.OutOrStdout())
		},
	}
}

// retire removes a finished task's plan event when a calendar is linked.
// Failures only warn: the task itself is already saved.
func (a *app) retire(ctx context.Context, taskID string) {
	if !a.calendarLinked() {
		return
	}
	st, err := a.loadPublishState()
	if err != nil {
		a.logger.Warn().Err(err).Msg("could not load publish state")
		return
	}
	client, err := a.googleClient(ctx, st.index)
	if err != nil {
		a.logger.Warn().Err(err).Msg("calendar unavailable, plan event left in place")
		return
	}
	if err := a.publisher(client, st).Retire(ctx, taskID); err != nil {
		a.logger.Warn().Err(err).Str("task_id", taskID).Msg("could not remove plan event")
	}
}
