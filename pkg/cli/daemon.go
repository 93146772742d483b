package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/daemon"
	"github.com/harrisonrobin/taskplan/pkg/google"
	"github.com/harrisonrobin/taskplan/pkg/publish"
)

// Daemon job names.
const (
	jobPlan  = "plan"
	jobSweep = "sweep"
)

// AddDaemonCommand adds the daemon command.
func AddDaemonCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Plan and publish on a schedule",
		Long: `Run in the foreground, planning today from the store and publishing it to
the plan calendar at daemon.plan_cron, and marking plan events whose slot has
passed at daemon.sweep_cron. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, a)
		},
	}
	root.AddCommand(cmd)
}

func runDaemon(ctx context.Context, a *app) error {
	st, err := a.loadPublishState()
	if err != nil {
		return err
	}
	client, err := a.googleClient(ctx, st.index)
	if err != nil {
		return err
	}
	pub := a.publisher(client, st)

	d := daemon.New(a.logger)
	if err := d.Schedule(ctx, jobPlan, a.cfg.Daemon.PlanCron, func(ctx context.Context) error {
		return a.planAndPublish(ctx, client, pub)
	}); err != nil {
		return err
	}
	if err := d.Schedule(ctx, jobSweep, a.cfg.Daemon.SweepCron, func(ctx context.Context) error {
		n, err := pub.Sweep(ctx, a.clock.Now())
		if n > 0 {
			a.logger.Info().Int("marked", n).Msg("overdue plan events marked")
		}
		return err
	}); err != nil {
		return err
	}
	return d.Serve(ctx)
}

// planAndPublish plans today from the store with the calendar's busy time and
// publishes the result.
func (a *app) planAndPublish(ctx context.Context, client *google.CalendarClient, pub *publish.Publisher) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	day, err := a.parseDate("")
	if err != nil {
		return err
	}
	planner, err := a.planner(s, client)
	if err != nil {
		return err
	}
	plan, err := planner.PlanDay(ctx, day)
	if err != nil {
		return err
	}
	report, err := pub.Publish(ctx, plan.Items())
	a.logger.Info().
		Str("date", day.Format(dateLayout)).
		Int("published", report.Published).
		Int("failed", report.Failed).
		Int("backlog", len(plan.Backlog)).
		Msg("plan published")
	return err
}
