package models

import "time"

// GoalRelation is the type of a directed dependency edge between goals.
type GoalRelation string

const (
	RelationEnables   GoalRelation = "enables"
	RelationRequires  GoalRelation = "requires"
	RelationSupports  GoalRelation = "supports"
	RelationConflicts GoalRelation = "conflicts"
)

// GoalStatus is the lifecycle state of a persisted goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
)

// GoalDependency is one outgoing edge of a goal.
type GoalDependency struct {
	TargetGoalID string       `json:"targetGoalId"`
	Relation     GoalRelation `json:"relation"`
	Strength     float64      `json:"strength"` // [0,1]
}

// Goal is a persisted user goal. Goals are created during planning, mutated by
// user updates and deleted on completion or removal; this engine only reads
// them and derives blocking/conflict signals.
type Goal struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	Domain       string           `json:"domain"`
	Description  string           `json:"description"`
	Status       GoalStatus       `json:"status"`
	Dependencies []GoalDependency `json:"dependencies,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// IsActive reports whether the goal still participates in graph analysis.
func (g *Goal) IsActive() bool {
	return g.Status == GoalActive
}
