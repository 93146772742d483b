package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// newViperInstance creates a Viper instance with the TASKPLAN_ environment
// prefix and the built-in defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TASKPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults configures all default values. Keys match the mapstructure tags.
func setDefaults(v *viper.Viper) {
	v.SetDefault("calendar.name", "")
	v.SetDefault("calendar.busy", []string{"primary"})
	v.SetDefault("calendar.credentials_file", "credentials.json")
	v.SetDefault("calendar.token_file", "token.json")
	v.SetDefault("calendar.port", "6789")
	v.SetDefault("calendar.publish_limit", 4)

	v.SetDefault("profile.work_start", "09:00")
	v.SetDefault("profile.work_end", "17:00")
	v.SetDefault("profile.personal_start", "17:00")
	v.SetDefault("profile.personal_end", "22:00")
	v.SetDefault("profile.energy", map[string]int{})
	v.SetDefault("profile.wip_limit", 5)

	v.SetDefault("weights.priority", 0.4)
	v.SetDefault("weights.duration", 0.3)
	v.SetDefault("weights.complexity", 0.3)
	v.SetDefault("weights.urgency", 1.5)
	v.SetDefault("weights.goal_urgency", 1.0)
	v.SetDefault("weights.project_urgency", 1.0)
	v.SetDefault("weights.energy_match", 0.5)
	v.SetDefault("weights.sequence", 0.5)
	v.SetDefault("weights.milestone", 2.0)
	v.SetDefault("weights.critical_path", 2.0)

	v.SetDefault("store.path", "taskplan.db")

	v.SetDefault("daemon.plan_cron", "0 7 * * 1-5")
	v.SetDefault("daemon.sweep_cron", "*/15 * * * *")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads the configuration. An empty path means the default location; a
// missing file is not an error.
func Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, errors.Wrap(err, "locate config directory")
		}
		path = p
	}

	v := newViperInstance()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	cfg := &Config{dir: filepath.Dir(path)}
	if err := v.Unmarshal(cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("path", path).
		Str("calendar", cfg.Calendar.Name).
		Str("store", cfg.Resolve(cfg.Store.Path)).
		Msg("configuration loaded")

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToTimeOfDayHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

var timeOfDayType = reflect.TypeOf(model.TimeOfDay{})

// stringToTimeOfDayHookFunc decodes "HH:MM" strings into model.TimeOfDay.
func stringToTimeOfDayHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != timeOfDayType {
			return data, nil
		}
		return model.ParseTimeOfDay(data.(string))
	}
}

// SetCalendar stores name as the plan calendar in the file at path, keeping
// the rest of the file.
func SetCalendar(path, name string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return errors.Wrap(err, "locate config directory")
		}
		path = p
	}
	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config file %s", path)
		}
	}
	v.Set("calendar.name", name)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrapf(err, "write config file %s", path)
	}
	return nil
}
