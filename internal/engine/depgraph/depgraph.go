// Package depgraph builds a directed relationship graph over a user's goals
// and derives blocking, conflict and ordering signals from it.
package depgraph

import (
	"advisor-engine/internal/models"
)

// Graph is an immutable view over one user's goal set. All derived outputs
// are ordered by goal insertion order, so identical input yields identical
// output.
type Graph struct {
	goals []models.Goal
	byID  map[string]int // goal id -> index into goals
}

// BlockedGoal flags a goal whose required prerequisites are not completed.
type BlockedGoal struct {
	GoalID         string
	Domain         string
	MissingPrereqs []string // prerequisite goal ids, in dependency order
}

// ConflictPair is a pair of active goals joined by a conflicts edge, with
// GoalA the earlier of the two in insertion order. Severity is computed
// downstream from the domain priority scores.
type ConflictPair struct {
	GoalA    string
	GoalB    string
	DomainA  string
	DomainB  string
	Strength float64 // declared edge strength, [0,1]
}

// Build indexes the goal set. Dependencies pointing at unknown goal ids are
// kept; BlockedGoals treats them as incomplete prerequisites.
func Build(goals []models.Goal) *Graph {
	byID := make(map[string]int, len(goals))
	for i, g := range goals {
		byID[g.ID] = i
	}
	return &Graph{goals: goals, byID: byID}
}

// Goals returns the underlying goal set in insertion order.
func (g *Graph) Goals() []models.Goal {
	return g.goals
}

// BlockedGoals returns every active goal that has a requires edge to a
// prerequisite which is not completed (or does not exist).
func (g *Graph) BlockedGoals() []BlockedGoal {
	var blocked []BlockedGoal
	for _, goal := range g.goals {
		if !goal.IsActive() {
			continue
		}
		var missing []string
		for _, dep := range goal.Dependencies {
			if dep.Relation != models.RelationRequires {
				continue
			}
			idx, ok := g.byID[dep.TargetGoalID]
			if !ok || g.goals[idx].Status != models.GoalCompleted {
				missing = append(missing, dep.TargetGoalID)
			}
		}
		if len(missing) > 0 {
			blocked = append(blocked, BlockedGoal{
				GoalID:         goal.ID,
				Domain:         goal.Domain,
				MissingPrereqs: missing,
			})
		}
	}
	return blocked
}

// IsBlocked reports whether the given goal id appears in BlockedGoals.
func (g *Graph) IsBlocked(goalID string) bool {
	for _, b := range g.BlockedGoals() {
		if b.GoalID == goalID {
			return true
		}
	}
	return false
}

// ConflictPairs returns each pair of active goals joined by a conflicts edge,
// without duplicates even when both goals declare the edge.
func (g *Graph) ConflictPairs() []ConflictPair {
	seen := make(map[[2]string]bool)
	var pairs []ConflictPair
	for i, goal := range g.goals {
		if !goal.IsActive() {
			continue
		}
		for _, dep := range goal.Dependencies {
			if dep.Relation != models.RelationConflicts {
				continue
			}
			idx, ok := g.byID[dep.TargetGoalID]
			if !ok {
				continue
			}
			other := g.goals[idx]
			if !other.IsActive() {
				continue
			}
			key := [2]string{goal.ID, other.ID}
			if other.ID < goal.ID {
				key = [2]string{other.ID, goal.ID}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			pair := ConflictPair{
				GoalA:    goal.ID,
				GoalB:    other.ID,
				DomainA:  goal.Domain,
				DomainB:  other.Domain,
				Strength: dep.Strength,
			}
			if idx < i {
				pair.GoalA, pair.GoalB = other.ID, goal.ID
				pair.DomainA, pair.DomainB = other.Domain, goal.Domain
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// CriticalPath returns the longest chain of requires edges terminating at a
// goal, ordered prerequisite-first. Goals caught in a requires cycle are
// excluded from path computation.
func (g *Graph) CriticalPath() []string {
	inCycle := make(map[string]bool)
	for _, cycle := range g.RequiresCycles() {
		for _, id := range cycle {
			inCycle[id] = true
		}
	}

	// Longest path ending at each goal, following requires edges backwards
	// (the chain runs prerequisite -> dependent).
	memo := make(map[string][]string)
	var longestTo func(id string) []string
	longestTo = func(id string) []string {
		if path, ok := memo[id]; ok {
			return path
		}
		idx, ok := g.byID[id]
		if !ok || inCycle[id] {
			return nil
		}
		var best []string
		for _, dep := range g.goals[idx].Dependencies {
			if dep.Relation != models.RelationRequires {
				continue
			}
			if prefix := longestTo(dep.TargetGoalID); len(prefix) > len(best) {
				best = prefix
			}
		}
		path := append(append([]string{}, best...), id)
		memo[id] = path
		return path
	}

	var critical []string
	for _, goal := range g.goals {
		if inCycle[goal.ID] {
			continue
		}
		if path := longestTo(goal.ID); len(path) > len(critical) {
			critical = path
		}
	}
	if len(critical) < 2 {
		return nil
	}
	return critical
}

// RequiresCycles returns every cycle in the requires subgraph, each as the
// ordered list of goal ids along the cycle. An empty result means the
// requires edges are acyclic.
func (g *Graph) RequiresCycles() [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.goals))
	var cycles [][]string
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		idx, ok := g.byID[id]
		if !ok {
			return
		}
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range g.goals[idx].Dependencies {
			if dep.Relation != models.RelationRequires {
				continue
			}
			switch color[dep.TargetGoalID] {
			case white:
				visit(dep.TargetGoalID)
			case gray:
				// Slice the current stack from the re-entered node.
				for i, sid := range stack {
					if sid == dep.TargetGoalID {
						cycles = append(cycles, append([]string{}, stack[i:]...))
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, goal := range g.goals {
		if color[goal.ID] == white {
			visit(goal.ID)
		}
	}
	return cycles
}

// ExecutionOrder returns all goal ids ordered so that requires prerequisites
// come before their dependents. Goals caught in a requires cycle keep their
// insertion order and are appended after the acyclic part.
func (g *Graph) ExecutionOrder() []string {
	inCycle := make(map[string]bool)
	for _, cycle := range g.RequiresCycles() {
		for _, id := range cycle {
			inCycle[id] = true
		}
	}

	order := make([]string, 0, len(g.goals))
	done := make(map[string]bool, len(g.goals))
	var emit func(id string)
	emit = func(id string) {
		idx, ok := g.byID[id]
		if !ok || done[id] || inCycle[id] {
			return
		}
		done[id] = true
		for _, dep := range g.goals[idx].Dependencies {
			if dep.Relation == models.RelationRequires {
				emit(dep.TargetGoalID)
			}
		}
		order = append(order, id)
	}
	for _, goal := range g.goals {
		emit(goal.ID)
	}
	for _, goal := range g.goals {
		if inCycle[goal.ID] {
			order = append(order, goal.ID)
		}
	}
	return order
}
