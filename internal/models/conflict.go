package models

// Conflict records a detected contradiction between insights or goals
// competing for a shared resource or holding a negative domain relation.
type Conflict struct {
	ID                 string   `json:"id"`
	InsightIDs         []string `json:"insightIds,omitempty"` // >=2 for insight conflicts
	GoalIDs            []string `json:"goalIds,omitempty"`    // set for goal-graph conflicts
	Domains            []string `json:"domains"`              // >=2 distinct, sorted
	Severity           float64  `json:"severity"`             // [0,1]
	ResolutionStrategy string   `json:"resolutionStrategy,omitempty"`
	Resolved           bool     `json:"resolved"`
	ResolutionText     string   `json:"resolutionText,omitempty"` // non-empty when Resolved
}
