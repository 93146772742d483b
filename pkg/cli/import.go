package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/orgmode"
	"github.com/harrisonrobin/taskplan/pkg/taskfile"
	"github.com/harrisonrobin/taskplan/pkg/taskwarrior"
)

// AddImportCommand adds the import command and its sources.
func AddImportCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy tasks from another tool into the store",
		Long: `Import tasks into the local store. Tasks are matched by id, so importing
again updates the earlier copies.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "taskwarrior [FILTER...]",
		Short: "Import from Taskwarrior's export",
		Example: `  taskplan import taskwarrior
  taskplan import taskwarrior project:work status:pending`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := args
			if len(filter) == 0 {
				filter = defaultTaskwarriorFilter
			}
			tws, err := taskwarrior.NewClient().GetTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			ts, err := taskwarrior.ToModels(tws)
			if err != nil {
				return err
			}
			return a.importTasks(cmd.Context(), taskwarrior.Source, ts, cmd.OutOrStdout())
		},
	})

	var tag string
	orgCmd := &cobra.Command{
		Use:   "org FILE...",
		Short: "Import TODO headings from Org-mode files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := orgmode.ParseFiles(args, time.Local)
			if err != nil {
				return err
			}
			if tag != "" {
				ts = orgmode.FilterTasks(ts, tag)
			}
			return a.importTasks(cmd.Context(), orgmode.Source, ts, cmd.OutOrStdout())
		},
	}
	orgCmd.Flags().StringVar(&tag, "tag", "", "only headings carrying this tag")
	cmd.AddCommand(orgCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "yaml FILE",
		Short: "Import the tasks section of a YAML task file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := taskfile.Load(args[0])
			if err != nil {
				return err
			}
			ts, err := f.ModelTasks()
			if err != nil {
				return err
			}
			return a.importTasks(cmd.Context(), taskfile.Source, ts, cmd.OutOrStdout())
		},
	})

	root.AddCommand(cmd)
}

func (a *app) importTasks(ctx context.Context, source string, ts []*model.Task, w io.Writer) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	for _, t := range ts {
		if err := s.Save(ctx, t); err != nil {
			return errors.Wrapf(err, "import %q", t.Title)
		}
	}
	a.logger.Debug().Str("source", source).Int("tasks", len(ts)).Msg("tasks imported")
	fmt.Fprintf(w, "Imported %d tasks from %s\n", len(ts), source)
	return nil
}
