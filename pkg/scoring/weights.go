package scoring

// Weights controls how much each term contributes to a task's score.
// It is passed by value; the zero value scores every task 0.
type Weights struct {
	Priority       float64 `mapstructure:"priority" json:"priority"`
	Duration       float64 `mapstructure:"duration" json:"duration"`
	Complexity     float64 `mapstructure:"complexity" json:"complexity"`
	Urgency        float64 `mapstructure:"urgency" json:"urgency"`
	GoalUrgency    float64 `mapstructure:"goal_urgency" json:"goal_urgency"`
	ProjectUrgency float64 `mapstructure:"project_urgency" json:"project_urgency"`
	EnergyMatch    float64 `mapstructure:"energy_match" json:"energy_match"`
	Sequence       float64 `mapstructure:"sequence" json:"sequence"`
	Milestone      float64 `mapstructure:"milestone" json:"milestone"`
	CriticalPath   float64 `mapstructure:"critical_path" json:"critical_path"`
}

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{
		Priority:       0.4,
		Duration:       0.3,
		Complexity:     0.3,
		Urgency:        1.5,
		GoalUrgency:    1.0,
		ProjectUrgency: 1.0,
		EnergyMatch:    0.5,
		Sequence:       0.5,
		Milestone:      2.0,
		CriticalPath:   2.0,
	}
}
