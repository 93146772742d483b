// Package config loads taskplan's layered configuration: built-in defaults,
// the YAML file under the config directory, then TASKPLAN_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/scheduler"
	"github.com/harrisonrobin/taskplan/pkg/scoring"
)

const (
	appName    = "taskplan"
	configFile = "config.yaml"
)

// Config is the full configuration.
type Config struct {
	Calendar CalendarConfig  `mapstructure:"calendar"`
	Profile  ProfileConfig   `mapstructure:"profile"`
	Weights  scoring.Weights `mapstructure:"weights"`
	Store    StoreConfig     `mapstructure:"store"`
	Daemon   DaemonConfig    `mapstructure:"daemon"`
	Log      LogConfig       `mapstructure:"log"`

	// dir is the directory relative paths resolve against.
	dir string
}

// CalendarConfig selects the Google calendars and credential files.
type CalendarConfig struct {
	// Name is the summary of the calendar plan items are published to.
	Name            string   `mapstructure:"name"`
	Busy            []string `mapstructure:"busy"`
	CredentialsFile string   `mapstructure:"credentials_file"`
	TokenFile       string   `mapstructure:"token_file"`
	Port            string   `mapstructure:"port"`
	PublishLimit    int      `mapstructure:"publish_limit"`
}

// ProfileConfig is the scheduling profile.
type ProfileConfig struct {
	WorkStart     model.TimeOfDay `mapstructure:"work_start"`
	WorkEnd       model.TimeOfDay `mapstructure:"work_end"`
	PersonalStart model.TimeOfDay `mapstructure:"personal_start"`
	PersonalEnd   model.TimeOfDay `mapstructure:"personal_end"`
	// Energy maps an hour ("0".."23") to a level 1..3.
	Energy   map[string]int `mapstructure:"energy"`
	WIPLimit int            `mapstructure:"wip_limit"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DaemonConfig holds the cron schedules of the daemon.
type DaemonConfig struct {
	PlanCron  string `mapstructure:"plan_cron"`
	SweepCron string `mapstructure:"sweep_cron"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Dir returns the configuration directory: $XDG_CONFIG_HOME/taskplan, or
// ~/.config/taskplan.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultPath returns the path of the configuration file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// StateDir is the directory holding the database, tokens and state files.
func (c *Config) StateDir() string {
	return c.dir
}

// Resolve returns path, joined to the state directory when relative.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

// SchedulerProfile converts the profile section.
func (c *Config) SchedulerProfile() (scheduler.Profile, error) {
	levels := make(map[int]int, len(c.Profile.Energy))
	for key, level := range c.Profile.Energy {
		hour, err := strconv.Atoi(key)
		if err != nil {
			return scheduler.Profile{}, wrapInvalid(err, "profile.energy key %q", key)
		}
		levels[hour] = level
	}
	energy, err := scheduler.NewEnergyProfile(levels)
	if err != nil {
		return scheduler.Profile{}, err
	}
	return scheduler.Profile{
		WorkStart:     c.Profile.WorkStart,
		WorkEnd:       c.Profile.WorkEnd,
		PersonalStart: c.Profile.PersonalStart,
		PersonalEnd:   c.Profile.PersonalEnd,
		Energy:        energy,
		WIPLimit:      c.Profile.WIPLimit,
	}, nil
}
