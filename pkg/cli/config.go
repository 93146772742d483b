package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/taskplan/pkg/config"
)

// AddConfigCommand adds the config command and its subcommands.
func AddConfigCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-calendar NAME",
		Short: "Set the calendar plans are published to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetCalendar(a.flags.ConfigPath, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan calendar set to: %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(a.cfg, a.flags.JSON, cmd.OutOrStdout())
		},
	})

	root.AddCommand(cmd)
}

// configView is the printable form of config.Config, paths resolved.
type configView struct {
	Calendar struct {
		Name            string   `yaml:"name" json:"name"`
		Busy            []string `yaml:"busy" json:"busy"`
		CredentialsFile string   `yaml:"credentials_file" json:"credentials_file"`
		TokenFile       string   `yaml:"token_file" json:"token_file"`
		Port            string   `yaml:"port" json:"port"`
		PublishLimit    int      `yaml:"publish_limit" json:"publish_limit"`
	} `yaml:"calendar" json:"calendar"`
	Profile struct {
		WorkStart     string         `yaml:"work_start" json:"work_start"`
		WorkEnd       string         `yaml:"work_end" json:"work_end"`
		PersonalStart string         `yaml:"personal_start" json:"personal_start"`
		PersonalEnd   string         `yaml:"personal_end" json:"personal_end"`
		Energy        map[string]int `yaml:"energy,omitempty" json:"energy,omitempty"`
		WIPLimit      int            `yaml:"wip_limit" json:"wip_limit"`
	} `yaml:"profile" json:"profile"`
	Weights map[string]float64 `yaml:"weights" json:"weights"`
	Store   struct {
		Path string `yaml:"path" json:"path"`
	} `yaml:"store" json:"store"`
	Daemon struct {
		PlanCron  string `yaml:"plan_cron" json:"plan_cron"`
		SweepCron string `yaml:"sweep_cron" json:"sweep_cron"`
	} `yaml:"daemon" json:"daemon"`
	Log struct {
		Level string `yaml:"level" json:"level"`
		File  string `yaml:"file,omitempty" json:"file,omitempty"`
	} `yaml:"log" json:"log"`
}

func newConfigView(cfg *config.Config) configView {
	var v configView
	v.Calendar.Name = cfg.Calendar.Name
	v.Calendar.Busy = cfg.Calendar.Busy
	v.Calendar.CredentialsFile = cfg.Resolve(cfg.Calendar.CredentialsFile)
	v.Calendar.TokenFile = cfg.Resolve(cfg.Calendar.TokenFile)
	v.Calendar.Port = cfg.Calendar.Port
	v.Calendar.PublishLimit = cfg.Calendar.PublishLimit

	v.Profile.WorkStart = cfg.Profile.WorkStart.String()
	v.Profile.WorkEnd = cfg.Profile.WorkEnd.String()
	v.Profile.PersonalStart = cfg.Profile.PersonalStart.String()
	v.Profile.PersonalEnd = cfg.Profile.PersonalEnd.String()
	v.Profile.Energy = cfg.Profile.Energy
	v.Profile.WIPLimit = cfg.Profile.WIPLimit

	w := cfg.Weights
	v.Weights = map[string]float64{
		"priority":        w.Priority,
		"duration":        w.Duration,
		"complexity":      w.Complexity,
		"urgency":         w.Urgency,
		"goal_urgency":    w.GoalUrgency,
		"project_urgency": w.ProjectUrgency,
		"energy_match":    w.EnergyMatch,
		"sequence":        w.Sequence,
		"milestone":       w.Milestone,
		"critical_path":   w.CriticalPath,
	}

	v.Store.Path = cfg.Resolve(cfg.Store.Path)
	v.Daemon.PlanCron = cfg.Daemon.PlanCron
	v.Daemon.SweepCron = cfg.Daemon.SweepCron
	v.Log.Level = cfg.Log.Level
	v.Log.File = cfg.Resolve(cfg.Log.File)
	return v
}

func showConfig(cfg *config.Config, asJSON bool, w io.Writer) error {
	v := newConfigView(cfg)
	if asJSON {
		return writeJSON(w, v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
