package scheduler

import (
	"fmt"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// EnergyProfile holds the energy level (1-3) for each hour of the day.
// Zero entries are unset and read as 1.
type EnergyProfile [24]int

// NewEnergyProfile builds a profile from an hour-keyed map.
func NewEnergyProfile(levels map[int]int) (EnergyProfile, error) {
	var p EnergyProfile
	for hour, level := range levels {
		if hour < 0 || hour > 23 {
			return EnergyProfile{}, fmt.Errorf("%w: hour %d outside 0-23", errors.ErrInvalidEnergy, hour)
		}
		if level < 1 || level > 3 {
			return EnergyProfile{}, fmt.Errorf("%w: level %d at hour %d outside 1-3", errors.ErrInvalidEnergy, level, hour)
		}
		p[hour] = level
	}
	return p, nil
}

// Level returns the energy level for hour.
func (p EnergyProfile) Level(hour int) int {
	if hour < 0 || hour > 23 || p[hour] == 0 {
		return 1
	}
	return p[hour]
}

// Profile is a user's scheduling preferences.
type Profile struct {
	WorkStart     model.TimeOfDay
	WorkEnd       model.TimeOfDay
	PersonalStart model.TimeOfDay
	PersonalEnd   model.TimeOfDay
	Energy        EnergyProfile
	// WIPLimit is informational; the allocator does not enforce it.
	WIPLimit int
}

// DefaultProfile returns a 09:00-17:00 work day with 17:00-22:00 personal time.
func DefaultProfile() Profile {
	return Profile{
		WorkStart:     model.TimeOfDay{Hour: 9},
		WorkEnd:       model.TimeOfDay{Hour: 17},
		PersonalStart: model.TimeOfDay{Hour: 17},
		PersonalEnd:   model.TimeOfDay{Hour: 22},
		WIPLimit:      5,
	}
}
