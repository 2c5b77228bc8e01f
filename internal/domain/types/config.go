package types

// SessionConfig holds the morning and afternoon windows shared by every day.
type SessionConfig struct {
	MorningStart           string `json:"morning_start"`
	MorningEnd             string `json:"morning_end"`
	AfternoonStart         string `json:"afternoon_start"`
	AfternoonEnd           string `json:"afternoon_end"`
	SlotGranularityMinutes int    `json:"slot_granularity_minutes"`
}

// ScheduleConfig is the operator-supplied mat, day and session layout.
// CompetitionDays, when non-empty, takes precedence over StartDate/DayCount.
type ScheduleConfig struct {
	MatCount        int           `json:"mat_count"`
	StartDate       string        `json:"start_date,omitempty"`
	DayCount        int           `json:"day_count,omitempty"`
	CompetitionDays []Day         `json:"competition_days,omitempty"`
	Session         SessionConfig `json:"session"`
}
