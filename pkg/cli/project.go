package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/cpm"
	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/project"
)

// AddProjectCommands adds project, goal, cpm and predict.
func AddProjectCommands(root *cobra.Command, a *app) {
	root.AddCommand(newProjectCmd(a), newGoalCmd(a), newCPMCmd(a), newPredictCmd(a))
}

type projectFlags struct {
	id       string
	goal     string
	parent   string
	deadline string
}

func newProjectCmd(a *app) *cobra.Command {
	flags := &projectFlags{}

	cmd := &cobra.Command{
		Use:   "project TITLE...",
		Short: "Create or update a project",
		Long: `Create a project, or update it when --id names an existing one. Tasks
of a project inherit its deadline, and the goal's deadline through it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline, err := optionalDate(a, flags.deadline)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			p := &model.Project{
				ID:       flags.id,
				Title:    strings.Join(args, " "),
				ParentID: flags.parent,
				GoalID:   flags.goal,
				Deadline: deadline,
			}
			if err := s.SaveProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.id, "id", "", "project id (default a new UUID)")
	cmd.Flags().StringVar(&flags.goal, "goal", "", "goal id")
	cmd.Flags().StringVar(&flags.parent, "parent", "", "parent project id")
	cmd.Flags().StringVar(&flags.deadline, "deadline", "", "deadline, YYYY-MM-DD")
	return cmd
}

func newGoalCmd(a *app) *cobra.Command {
	var id, deadline string

	cmd := &cobra.Command{
		Use:   "goal TITLE...",
		Short: "Create or update a goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := optionalDate(a, deadline)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			g := &model.Goal{ID: id, Title: strings.Join(args, " "), Deadline: due}
			if err := s.SaveGoal(cmd.Context(), g); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), g.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "goal id (default a new UUID)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline, YYYY-MM-DD")
	return cmd
}

// optionalDate parses a deadline flag as the end of that day in UTC.
func optionalDate(a *app, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	day, err := a.parseDate(s)
	if err != nil {
		return nil, err
	}
	end := day.Add(24*time.Hour - time.Second)
	return &end, nil
}

func newCPMCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cpm PROJECT_ID",
		Short: "Recalculate a project's critical path",
		Long: `Run the critical path method over the project's unresolved tasks, store
the changed critical-path flags and print each task's schedule in minutes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCPM(cmd.Context(), a, args[0], cmd.OutOrStdout())
		},
	}
}

type nodeView struct {
	TaskID   string `json:"task_id"`
	Duration int    `json:"duration"`
	ES       int    `json:"es"`
	EF       int    `json:"ef"`
	LS       int    `json:"ls"`
	LF       int    `json:"lf"`
	Float    int    `json:"float"`
	Critical bool   `json:"critical"`
}

func runCPM(ctx context.Context, a *app, projectID string, w io.Writer) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := a.projectService(s, project.DefaultDailyCapacity).RecalculateCPM(ctx, projectID)
	if result == nil {
		return err
	}
	if err != nil {
		a.logger.Warn().Err(err).Str("project_id", projectID).Msg("critical path computed but not saved")
	}

	nodes := sortedNodes(result)
	if a.flags.JSON {
		return writeJSON(w, nodes)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tDUR\tES\tEF\tLS\tLF\tFLOAT\t")
	for _, n := range nodes {
		marker := ""
		if n.Critical {
			marker = "◆"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n", n.TaskID, n.Duration, n.ES, n.EF, n.LS, n.LF, n.Float, marker)
	}
	fmt.Fprintf(tw, "\ncritical: %s\n", strings.Join(cpm.CriticalIDs(result), ", "))
	return tw.Flush()
}

func sortedNodes(result map[string]*cpm.Node) []nodeView {
	out := make([]nodeView, 0, len(result))
	for _, n := range result {
		out = append(out, nodeView{
			TaskID: n.TaskID, Duration: n.Duration,
			ES: n.ES, EF: n.EF, LS: n.LS, LF: n.LF,
			Float: n.Float, Critical: n.IsCritical,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ES != out[j].ES {
			return out[i].ES < out[j].ES
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

func newPredictCmd(a *app) *cobra.Command {
	var capacity int
	var from string

	cmd := &cobra.Command{
		Use:   "predict PROJECT_ID",
		Short: "Estimate when a project's remaining work will be done",
		Long: `Sum the expected duration of the project's unresolved tasks and spend it
at --capacity minutes per weekday, starting the day after --from.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := a.parseDate(from)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			done, err := a.projectService(s, capacity).PredictCompletion(cmd.Context(), args[0], day)
			if err != nil {
				return err
			}
			if a.flags.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"project_id": args[0],
					"completion": done.Format(dateLayout),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", done.Format(dateLayout), done.Weekday())
			return nil
		},
	}
	cmd.Flags().IntVar(&capacity, "capacity", project.DefaultDailyCapacity, "minutes of project work per weekday")
	cmd.Flags().StringVar(&from, "from", "", "start date, YYYY-MM-DD (default today)")
	return cmd
}
