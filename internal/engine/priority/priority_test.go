package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"advisor-engine/internal/models"
)

func activeGoal(id, domain string) models.Goal {
	return models.Goal{ID: id, Domain: domain, Status: models.GoalActive}
}

// ==========================
// Score Formula Tests
// ==========================

func TestScore_WellnessExample(t *testing.T) {
	// baseline 3, one urgency factor, one aligned active goal:
	// (10-3)*0.4 + 1.5 + 0.5 = 4.8
	s := NewScorer(
		map[string]float64{"career": 5, "wellness": 3, "finance": 6},
		map[string][]string{"wellness": {"burnout"}},
		[]models.Goal{activeGoal("goal-1", "wellness")},
	)
	assert.InDelta(t, 4.8, s.Score("wellness"), 1e-9)
}

func TestScore_Components(t *testing.T) {
	tests := []struct {
		name     string
		baseline map[string]float64
		urgency  map[string][]string
		goals    []models.Goal
		domain   string
		expected float64
	}{
		{
			name:     "baseline only",
			baseline: map[string]float64{"career": 5},
			domain:   "career",
			expected: 2.0,
		},
		{
			name:     "missing baseline defaults to 5.0",
			baseline: map[string]float64{},
			domain:   "career",
			expected: 2.0,
		},
		{
			name:     "urgency bonus capped at 3.0",
			baseline: map[string]float64{"wellness": 10},
			urgency:  map[string][]string{"wellness": {"burnout", "insomnia", "injury"}},
			domain:   "wellness",
			expected: 3.0,
		},
		{
			name:     "duplicate urgency factors counted once",
			baseline: map[string]float64{"wellness": 10},
			urgency:  map[string][]string{"wellness": {"burnout", "burnout"}},
			domain:   "wellness",
			expected: 1.5,
		},
		{
			name:     "goal bonus capped at 2.0",
			baseline: map[string]float64{"finance": 10},
			goals: []models.Goal{
				activeGoal("g1", "finance"), activeGoal("g2", "finance"),
				activeGoal("g3", "finance"), activeGoal("g4", "finance"),
				activeGoal("g5", "finance"),
			},
			domain:   "finance",
			expected: 2.0,
		},
		{
			name:     "completed goals do not count",
			baseline: map[string]float64{"finance": 10},
			goals:    []models.Goal{{ID: "g1", Domain: "finance", Status: models.GoalCompleted}},
			domain:   "finance",
			expected: 0.0,
		},
		{
			name:     "out-of-range baseline is clamped",
			baseline: map[string]float64{"career": -4},
			domain:   "career",
			expected: 4.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(tt.baseline, tt.urgency, tt.goals)
			assert.InDelta(t, tt.expected, s.Score(tt.domain), 1e-9)
		})
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	s := NewScorer(
		map[string]float64{"a": 0},
		map[string][]string{"a": {"f1", "f2", "f3", "f4"}},
		[]models.Goal{activeGoal("g1", "a"), activeGoal("g2", "a"), activeGoal("g3", "a"), activeGoal("g4", "a"), activeGoal("g5", "a")},
	)
	score := s.Score("a")
	assert.LessOrEqual(t, score, 10.0)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.InDelta(t, 9.0, score, 1e-9) // 4.0 + 3.0 + 2.0
}

// ==========================
// Ranking Tests
// ==========================

func TestRank_ByScoreDescending(t *testing.T) {
	s := NewScorer(
		map[string]float64{"career": 2, "wellness": 8, "finance": 5},
		nil, nil,
	)
	ranked := s.Rank([]string{"wellness", "finance", "career"}, nil)
	assert.Equal(t, []string{"career", "finance", "wellness"}, ranked)
}

func TestRank_TieBreaks(t *testing.T) {
	s := NewScorer(map[string]float64{"career": 5, "wellness": 5, "finance": 5}, nil, nil)

	// Unresolved conflicts first, then lexicographic for the remaining tie.
	ranked := s.Rank([]string{"wellness", "career", "finance"}, map[string]int{"wellness": 2})
	assert.Equal(t, []string{"wellness", "career", "finance"}, ranked)

	ranked = s.Rank([]string{"wellness", "career", "finance"}, nil)
	assert.Equal(t, []string{"career", "finance", "wellness"}, ranked)
}
