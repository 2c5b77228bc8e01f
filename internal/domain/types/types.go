// Package types contains the schedule data model shared across the application.
package types

import (
	"encoding/json"
	"time"
)

// Competitor identifies a person entered in a category.
// Empty fields are treated as absent.
type Competitor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Club string `json:"club"`
}

// Category is a named competition unit with an ordered roster.
// Bracket is opaque to the scheduler and only round-trips.
type Category struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type,omitempty"`
	Roster  []Competitor    `json:"roster"`
	Bracket json.RawMessage `json:"bracket,omitempty"`
}

// Day is a competition date in YYYY-MM-DD form.
type Day string

// DayLayout is the layout used for Day values.
const DayLayout = "2006-01-02"

// ParseDay validates s and returns it as a Day.
func ParseDay(s string) (Day, bool) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", false
	}
	return Day(t.Format(DayLayout)), true
}

// Assignment places a category on a mat at a time on a day.
type Assignment struct {
	Day   Day   `json:"day"`
	Mat   int   `json:"mat"`
	Time  Clock `json:"time"`
	Order int   `json:"order"`
}

// Placement is an assignment together with the category it belongs to.
type Placement struct {
	CategoryID string `json:"category_id"`
	Assignment
}

// CustomEvent is a non-competitive timeline entry such as an opening ceremony.
// Mat 0 applies to every mat.
type CustomEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Time Clock  `json:"time"`
	Date Day    `json:"date"`
	Mat  int    `json:"mat"`
}

// AllMats is the CustomEvent mat value that applies to every mat.
const AllMats = 0

// ScheduleRecord is the durable representation of one tournament's schedule.
type ScheduleRecord struct {
	TournamentID string                `json:"tournament_id"`
	Revision     uint64                `json:"revision"`
	Config       ScheduleConfig        `json:"config"`
	Categories   []Category            `json:"categories"`
	Assignments  map[string]Assignment `json:"assignments"`
	Events       []CustomEvent         `json:"events"`
	UpdatedAt    time.Time             `json:"updated_at"`
}
