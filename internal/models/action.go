package models

// UrgencyLevel buckets an action by how soon it should be started.
type UrgencyLevel string

const (
	UrgencyImmediate  UrgencyLevel = "immediate"
	UrgencyShortTerm  UrgencyLevel = "short_term"
	UrgencyMediumTerm UrgencyLevel = "medium_term"
	UrgencyLongTerm   UrgencyLevel = "long_term"
)

// UrgencyRank orders urgency levels, most urgent first. Unknown levels sort last.
func UrgencyRank(u UrgencyLevel) int {
	switch u {
	case UrgencyImmediate:
		return 0
	case UrgencyShortTerm:
		return 1
	case UrgencyMediumTerm:
		return 2
	case UrgencyLongTerm:
		return 3
	default:
		return 4
	}
}

// EffortEstimate is a coarse cost bucket for an action.
type EffortEstimate string

const (
	EffortLow    EffortEstimate = "low"
	EffortMedium EffortEstimate = "medium"
	EffortHigh   EffortEstimate = "high"
)

// PrioritizedAction is one ranked, actionable item derived from an insight.
type PrioritizedAction struct {
	ID              string         `json:"id"`
	SourceInsightID string         `json:"sourceInsightId"`
	Domain          string         `json:"domain"`
	Text            string         `json:"text"`
	PriorityScore   float64        `json:"priorityScore"` // [0,10]
	UrgencyLevel    UrgencyLevel   `json:"urgencyLevel"`
	EffortEstimate  EffortEstimate `json:"effortEstimate"`
	ExpectedOutcome string         `json:"expectedOutcome"`
}
