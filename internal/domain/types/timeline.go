package types

// EntryKind distinguishes timeline rows.
type EntryKind string

// Timeline entry kinds.
const (
	EntryCategory EntryKind = "category"
	EntryEvent    EntryKind = "event"
)

// TimelineEntry is one row of a mat's schedule for a day.
type TimelineEntry struct {
	Kind         EntryKind `json:"kind"`
	CategoryID   string    `json:"category_id,omitempty"`
	EventID      string    `json:"event_id,omitempty"`
	Name         string    `json:"name"`
	CategoryType string    `json:"category_type,omitempty"`
	Mat          int       `json:"mat"`
	Time         Clock     `json:"time"`
	Order        int       `json:"order"`
	AllMats      bool      `json:"all_mats,omitempty"`
}

// MatTimeline is the ordered schedule of a single mat.
type MatTimeline struct {
	Mat     int             `json:"mat"`
	Entries []TimelineEntry `json:"entries"`
}
