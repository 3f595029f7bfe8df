// Package action converts the retained insight set into a ranked list of
// actionable items.
package action

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"advisor-engine/internal/engine/depgraph"
	"advisor-engine/internal/engine/priority"
	"advisor-engine/internal/engine/similarity"
	"advisor-engine/internal/models"
)

var actionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("advisor-engine/action"))

const (
	confidenceWeight = 4.0
	domainWeight     = 0.5
	goalBoost        = 1.0
)

// Effort heuristic bounds.
const (
	lowEffortMaxChars  = 60
	highEffortMinChars = 180
)

// heavyKeywords mark advice that implies a sustained, multi-step effort.
var heavyKeywords = []string{"plan", "build", "restructure", "overhaul", "relocate"}

// Prioritizer derives one action per retained insight and ranks them.
type Prioritizer struct {
	scorer         *priority.Scorer
	goalDomains    map[string]bool
	blockedDomains map[string][]string // domain -> blocked goal ids
}

// New captures the per-run goal context. Blocked goals annotate actions in
// their domain but never change scores.
func New(scorer *priority.Scorer, goals []models.Goal, blocked []depgraph.BlockedGoal) *Prioritizer {
	goalDomains := make(map[string]bool)
	for _, g := range goals {
		if g.IsActive() {
			goalDomains[g.Domain] = true
		}
	}
	blockedDomains := make(map[string][]string)
	for _, b := range blocked {
		blockedDomains[b.Domain] = append(blockedDomains[b.Domain], b.GoalID)
	}
	return &Prioritizer{
		scorer:         scorer,
		goalDomains:    goalDomains,
		blockedDomains: blockedDomains,
	}
}

// Prioritize builds one action per active insight and returns them ranked by
// priority score descending, ties broken by urgency then insertion order.
// now anchors the deadline-based urgency rules.
func (p *Prioritizer) Prioritize(insights []models.Insight, now time.Time) []models.PrioritizedAction {
	actions := make([]models.PrioritizedAction, 0, len(insights))
	for i := range insights {
		if insights[i].Status != models.InsightActive {
			continue
		}
		actions = append(actions, p.build(&insights[i], now))
	}
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].PriorityScore != actions[j].PriorityScore {
			return actions[i].PriorityScore > actions[j].PriorityScore
		}
		return models.UrgencyRank(actions[i].UrgencyLevel) < models.UrgencyRank(actions[j].UrgencyLevel)
	})
	return actions
}

func (p *Prioritizer) build(insight *models.Insight, now time.Time) models.PrioritizedAction {
	domain := insight.PrimaryDomain
	domainPriority := p.scorer.Score(domain)

	score := insight.Confidence * confidenceWeight
	score += domainPriority * domainWeight
	if p.goalDomains[domain] {
		score += goalBoost
	}
	score = similarity.Clamp(score, 0, 10)

	text := insight.Text
	if insight.Kind == models.InsightRisk {
		text = "Mitigate risk: " + lowerFirst(insight.Text)
	}

	return models.PrioritizedAction{
		ID:              uuid.NewSHA1(actionNamespace, []byte(insight.ID)).String(),
		SourceInsightID: insight.ID,
		Domain:          domain,
		Text:            text,
		PriorityScore:   score,
		UrgencyLevel:    urgency(score, insight.Deadline, now),
		EffortEstimate:  effort(text),
		ExpectedOutcome: p.expectedOutcome(insight, domain),
	}
}

// urgency is a deterministic function of the score and any explicit deadline.
func urgency(score float64, deadline *time.Time, now time.Time) models.UrgencyLevel {
	var until time.Duration = -1
	if deadline != nil {
		until = deadline.Sub(now)
	}
	switch {
	case score >= 8 || (deadline != nil && until < 7*24*time.Hour):
		return models.UrgencyImmediate
	case score >= 6 || (deadline != nil && until < 30*24*time.Hour):
		return models.UrgencyShortTerm
	case score >= 4:
		return models.UrgencyMediumTerm
	default:
		return models.UrgencyLongTerm
	}
}

// effort estimates cost from text length and category keywords.
func effort(text string) models.EffortEstimate {
	lower := strings.ToLower(text)
	heavy := false
	for _, kw := range heavyKeywords {
		if strings.Contains(lower, kw) {
			heavy = true
			break
		}
	}
	switch {
	case len(text) >= highEffortMinChars || heavy:
		return models.EffortHigh
	case len(text) <= lowEffortMaxChars:
		return models.EffortLow
	default:
		return models.EffortMedium
	}
}

func (p *Prioritizer) expectedOutcome(insight *models.Insight, domain string) string {
	outcome := fmt.Sprintf("improves %s (confidence %.2f)", strings.Join(insight.SourceDomains, ", "), insight.Confidence)
	if insight.Kind == models.InsightRisk {
		outcome = fmt.Sprintf("avoids a cross-domain setback between %s", strings.Join(insight.SourceDomains, " and "))
	}
	if blocked := p.blockedDomains[domain]; len(blocked) > 0 {
		outcome += fmt.Sprintf("; note: blocked prerequisite for %s", strings.Join(blocked, ", "))
	}
	return outcome
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
