package project

import (
	"time"

	"github.com/harrisonrobin/taskplan/pkg/model"
)

// DefaultDailyCapacity is the project work in minutes assumed per working day.
const DefaultDailyCapacity = 240

// Predictor projects a completion date from remaining task estimates.
type Predictor struct {
	DailyCapacity int
}

// NewPredictor returns a Predictor; a non-positive capacity means the default.
func NewPredictor(dailyCapacity int) Predictor {
	if dailyCapacity <= 0 {
		dailyCapacity = DefaultDailyCapacity
	}
	return Predictor{DailyCapacity: dailyCapacity}
}

// Remaining sums the expected minutes of tasks. A task without estimates counts
// 30 minutes and a missing maximum equals the minimum.
func Remaining(tasks []*model.Task) float64 {
	var total float64
	for _, t := range tasks {
		lo := t.DurationMin
		if lo <= 0 {
			lo = model.DefaultDuration
		}
		hi := t.DurationMax
		if hi <= 0 {
			hi = lo
		}
		total += float64(lo+hi) / 2
	}
	return total
}

// Predict returns the date the work is consumed, spending the daily capacity on
// each weekday after from. With nothing left it returns from's date.
func (p Predictor) Predict(tasks []*model.Task, from time.Time) time.Time {
	capacity := p.DailyCapacity
	if capacity <= 0 {
		capacity = DefaultDailyCapacity
	}
	y, m, d := from.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, from.Location())

	remaining := Remaining(tasks)
	for remaining > 0 {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		remaining -= float64(capacity)
	}
	return day
}
