package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/scoring"
)

type explainFlags struct {
	energy      int
	lastProject string
}

// AddExplainCommand adds the explain command.
func AddExplainCommand(root *cobra.Command, a *app) {
	flags := &explainFlags{}

	cmd := &cobra.Command{
		Use:   "explain TASK_ID",
		Short: "Show how a stored task's score is made up",
		Long: `Print the weighted contribution of every scoring term for one task,
as the planner would compute it now for a slot of the given energy level.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.Context(), a, flags, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&flags.energy, "energy", 1, "energy level of the slot (1-3)")
	cmd.Flags().StringVar(&flags.lastProject, "after", "", "project of the previously placed task")

	root.AddCommand(cmd)
}

func runExplain(ctx context.Context, a *app, flags *explainFlags, id string, w io.Writer) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	b := a.scorer().Explain(task, a.clock.Now(), scoring.Context{
		SlotEnergyLevel: flags.energy,
		LastProjectID:   flags.lastProject,
	})
	if a.flags.JSON {
		return writeJSON(w, b)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%s)\n", task.Title, task.ID)
	for _, term := range []struct {
		name  string
		value float64
	}{
		{"priority", b.Priority},
		{"duration", b.Duration},
		{"complexity", b.Complexity},
		{"urgency", b.Urgency},
		{"goal urgency", b.GoalUrgency},
		{"project urgency", b.ProjectUrgency},
		{"critical path", b.CriticalPath},
		{"milestone", b.Milestone},
		{"energy match", b.EnergyMatch},
		{"sequence", b.Sequence},
	} {
		fmt.Fprintf(tw, "  %s\t%8.4f\n", term.name, term.value)
	}
	fmt.Fprintf(tw, "  total\t%8.4f\n", b.Total)
	return tw.Flush()
}
