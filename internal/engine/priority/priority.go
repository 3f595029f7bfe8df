// Package priority computes the per-domain urgency score used by conflict
// resolution and action ranking.
package priority

import (
	"sort"

	"advisor-engine/internal/engine/similarity"
	"advisor-engine/internal/models"
)

// DefaultBaseline is assumed for a domain when the baseline provider reported
// nothing for it (including after a provider failure).
const DefaultBaseline = 5.0

const (
	urgencyFactorWeight = 1.5
	urgencyBonusCap     = 3.0
	goalWeight          = 0.5
	goalBonusCap        = 2.0
	baselineWeight      = 0.4
)

// Scorer computes domain priority scores from the user's baseline scores,
// active urgency factors and goal alignment. A lower baseline means the
// domain needs more attention, so it scores higher.
type Scorer struct {
	baselines   map[string]float64
	urgency     map[string][]string
	activeGoals map[string]int
}

// NewScorer captures one user's inputs. Nil maps are allowed; missing domains
// fall back to DefaultBaseline and zero bonuses.
func NewScorer(baselines map[string]float64, urgencyFactors map[string][]string, goals []models.Goal) *Scorer {
	activeGoals := make(map[string]int)
	for _, g := range goals {
		if g.IsActive() {
			activeGoals[g.Domain]++
		}
	}
	return &Scorer{
		baselines:   baselines,
		urgency:     urgencyFactors,
		activeGoals: activeGoals,
	}
}

// Score returns the priority for a domain, clamped to [0,10]:
// (10 - baseline) x 0.4, plus 1.5 per distinct urgency factor (capped at 3.0),
// plus 0.5 per active goal in the domain (capped at 2.0).
func (s *Scorer) Score(domain string) float64 {
	baseline, ok := s.baselines[domain]
	if !ok {
		baseline = DefaultBaseline
	}
	baseline = similarity.Clamp(baseline, 0, 10)

	urgencyBonus := urgencyFactorWeight * float64(distinctCount(s.urgency[domain]))
	if urgencyBonus > urgencyBonusCap {
		urgencyBonus = urgencyBonusCap
	}
	goalBonus := goalWeight * float64(s.activeGoals[domain])
	if goalBonus > goalBonusCap {
		goalBonus = goalBonusCap
	}

	score := (10-baseline)*baselineWeight + urgencyBonus + goalBonus
	return similarity.Clamp(score, 0, 10)
}

// Rank orders domains by score descending. Ties go to the domain with more
// unresolved conflicts, then lexicographically.
func (s *Scorer) Rank(domains []string, unresolvedConflicts map[string]int) []string {
	ranked := append([]string{}, domains...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := s.Score(ranked[i]), s.Score(ranked[j])
		if si != sj {
			return si > sj
		}
		ci, cj := unresolvedConflicts[ranked[i]], unresolvedConflicts[ranked[j]]
		if ci != cj {
			return ci > cj
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}

func distinctCount(values []string) int {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	return len(seen)
}
