package config

import (
	"fmt"
	"strconv"

	"github.com/robfig/cron/v3"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

func wrapInvalid(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + err.Error()
	}
	return fmt.Errorf("%w: %s", errors.ErrConfigInvalid, msg)
}

// Validate rejects configurations the planner cannot run with.
func Validate(cfg *Config) error {
	p := cfg.Profile
	for _, tr := range []struct {
		name       string
		start, end model.TimeOfDay
	}{
		{"work", p.WorkStart, p.WorkEnd},
		{"personal", p.PersonalStart, p.PersonalEnd},
	} {
		if !tr.start.Valid() || !tr.end.Valid() {
			return wrapInvalid(nil, "profile.%s hours %s-%s out of range", tr.name, tr.start, tr.end)
		}
		if tr.end.Minutes() <= tr.start.Minutes() {
			return wrapInvalid(nil, "profile.%s_end %s is not after %s_start %s", tr.name, tr.end, tr.name, tr.start)
		}
	}

	for key, level := range p.Energy {
		hour, err := strconv.Atoi(key)
		if err != nil || hour < 0 || hour > 23 {
			return wrapInvalid(err, "profile.energy hour %q outside 0-23", key)
		}
		if level < 1 || level > 3 {
			return wrapInvalid(nil, "profile.energy level %d at hour %s outside 1-3", level, key)
		}
	}
	if p.WIPLimit < 0 {
		return wrapInvalid(nil, "profile.wip_limit %d is negative", p.WIPLimit)
	}

	if cfg.Calendar.PublishLimit < 1 {
		return wrapInvalid(nil, "calendar.publish_limit must be at least 1")
	}
	if cfg.Store.Path == "" {
		return wrapInvalid(nil, "store.path is empty")
	}

	for name, spec := range map[string]string{"daemon.plan_cron": cfg.Daemon.PlanCron, "daemon.sweep_cron": cfg.Daemon.SweepCron} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return wrapInvalid(err, "%s %q", name, spec)
		}
	}
	return nil
}
