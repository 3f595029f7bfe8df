package models

// UnifiedResult is the single structured record produced by one integration
// run. It is always well-formed: failures surface in Warnings (or Error for a
// failed harmonization), never as a nil result.
type UnifiedResult struct {
	UserID             string              `json:"userId"`
	Insights           []Insight           `json:"insights"`
	Conflicts          []Conflict          `json:"conflicts"` // resolved and unresolved
	Synergies          []Insight           `json:"synergies"` // derived synergy/risk insights
	PrioritizedActions []PrioritizedAction `json:"prioritizedActions"`
	OverallConfidence  float64             `json:"overallConfidence"` // [0,1]
	Warnings           []string            `json:"warnings"`
	Error              bool                `json:"error"` // set only when harmonization produced nothing usable
}

// NewUnifiedResult returns an empty result with all slices initialised so the
// JSON output never contains nulls.
func NewUnifiedResult(userID string) *UnifiedResult {
	return &UnifiedResult{
		UserID:             userID,
		Insights:           []Insight{},
		Conflicts:          []Conflict{},
		Synergies:          []Insight{},
		PrioritizedActions: []PrioritizedAction{},
		Warnings:           []string{},
	}
}
