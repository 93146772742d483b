package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/taskwarrior"
)

// AddHookCommand adds the Taskwarrior hook command.
func AddHookCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Taskwarrior on-add/on-modify hook",
		Long: `Keep the store in step with Taskwarrior. Install as both hooks:

  ln -s $(which taskplan-hook) ~/.task/hooks/on-add.taskplan
  ln -s $(which taskplan-hook) ~/.task/hooks/on-modify.taskplan

where taskplan-hook runs "taskplan hook". The hook echoes the final task
unchanged, then saves it to the store. Completing a task unlocks its
dependents; a task that leaves the schedulable states loses its plan event.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHook(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.AddCommand(cmd)
}

func runHook(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	var raws []json.RawMessage
	dec := json.NewDecoder(in)
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "read hook input")
		}
		raws = append(raws, raw)
	}
	if len(raws) == 0 {
		return nil
	}

	// Taskwarrior reads the task back from stdout; anything else rejects the change.
	last := raws[len(raws)-1]
	if _, err := out.Write(append(bytes.TrimSpace(last), '\n')); err != nil {
		return errors.Wrap(err, "write hook output")
	}

	// From here on failures are logged: the modification itself must go through.
	tw, err := taskwarrior.NewClient().ParseTask(bytes.NewReader(last))
	if err != nil {
		a.logger.Warn().Err(err).Msg("hook: unreadable task")
		return nil
	}
	if err := a.syncHookTask(ctx, tw); err != nil {
		a.logger.Warn().Err(err).Str("task_id", tw.UUID).Msg("hook: could not update store")
	}
	return nil
}

func (a *app) syncHookTask(ctx context.Context, tw taskwarrior.Task) error {
	task, err := taskwarrior.ToModel(tw)
	if err != nil {
		return err
	}
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	wasDone := false
	prev, err := s.GetByID(ctx, task.ID)
	switch {
	case err == nil:
		wasDone = prev.Status == model.StatusDone
		task.IsCriticalPath = prev.IsCriticalPath
	case !errors.Is(err, errors.ErrTaskNotFound):
		return err
	}

	if err := s.Save(ctx, task); err != nil {
		return err
	}
	// Taskwarrior keeps depends after the blockers complete, so the store decides.
	if task.Status == model.StatusTodo || task.Status == model.StatusBlocked {
		blocked, err := s.HasActiveBlockers(ctx, task.ID)
		if err != nil {
			return err
		}
		want := model.StatusTodo
		if blocked {
			want = model.StatusBlocked
		}
		if task.Status != want {
			task.Status = want
			if err := s.Save(ctx, task); err != nil {
				return err
			}
		}
	}
	if task.Status == model.StatusDone && !wasDone {
		done, err := a.taskService(s).CompleteTask(ctx, task.ID)
		if err != nil {
			return err
		}
		a.logger.Info().Str("task_id", task.ID).Int("unlocked", len(done.Unlocked)).Msg("hook: task completed")
	}
	if !task.IsActive() {
		a.retire(ctx, task.ID)
	}
	return nil
}
