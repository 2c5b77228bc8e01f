package types

// ConflictType classifies a conflict warning.
type ConflictType string

// Conflict types, in precedence order.
const (
	HardSlotClash    ConflictType = "HARD_SLOT_CLASH"
	AthleteSameTime  ConflictType = "ATHLETE_SAME_TIME"
	AthleteOtherSlot ConflictType = "ATHLETE_OTHER_SLOT"
)

// Severity decides whether a warning blocks a placement.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ConflictWarning is a transient classification result. It is never stored.
type ConflictWarning struct {
	Type              ConflictType `json:"type"`
	Severity          Severity     `json:"severity"`
	Message           string       `json:"message"`
	Competitors       []Competitor `json:"competitors,omitempty"`
	OtherCategoryID   string       `json:"other_category_id"`
	OtherCategoryName string       `json:"other_category_name,omitempty"`
	OtherPlacement    Assignment   `json:"other_placement"`
}

// OverlapPair reports two categories that share competitors.
type OverlapPair struct {
	CategoryA string       `json:"category_a"`
	CategoryB string       `json:"category_b"`
	Overlap   []Competitor `json:"overlap"`
}
