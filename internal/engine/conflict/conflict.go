// Package conflict detects contradictions between insights (and goals) and
// resolves them with the configured policy.
package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"advisor-engine/internal/common/config"
	stderrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/engine/depgraph"
	"advisor-engine/internal/engine/priority"
	"advisor-engine/internal/engine/similarity"
	"advisor-engine/internal/models"
)

// Resolution policies.
const (
	PolicyPriority  = "priority"
	PolicyConsensus = "consensus"
	PolicyHybrid    = "hybrid"
)

// resourceContentionSeverity is the severity assigned to a conflict detected
// through shared constrained resources when no stronger matrix relation
// applies.
const resourceContentionSeverity = 0.5

var conflictNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("advisor-engine/conflict"))

// Resolver detects and resolves conflicts between insights and folds in goal
// conflicts reported by the dependency graph.
type Resolver struct {
	policy      string
	gap         float64
	constrained map[string]bool
	matrix      *models.RelationMatrix
	logger      logger.Logger
}

// Result carries the conflict list, the post-resolution insight set (original
// insights with updated statuses plus any synthesized compromises) and the
// warnings produced along the way.
type Result struct {
	Conflicts []models.Conflict
	Insights  []models.Insight
	Warnings  []string
}

func New(cfg config.EngineConfig, matrix *models.RelationMatrix, log logger.Logger) *Resolver {
	constrained := make(map[string]bool, len(cfg.ConstrainedResources))
	for _, r := range cfg.ConstrainedResources {
		constrained[r] = true
	}
	return &Resolver{
		policy:      cfg.ResolutionPolicy,
		gap:         cfg.PriorityGap,
		constrained: constrained,
		matrix:      matrix,
		logger:      log,
	}
}

// DetectAndResolve finds every conflict among the insights, folds in the goal
// conflict pairs, and applies the configured resolution policy. Unresolved
// conflicts are surfaced with a warning, never dropped.
func (r *Resolver) DetectAndResolve(insights []models.Insight, scorer *priority.Scorer, goalPairs []depgraph.ConflictPair) *Result {
	result := &Result{
		Conflicts: []models.Conflict{},
		Insights:  append([]models.Insight{}, insights...),
		Warnings:  []string{},
	}

	// Detection runs over the original direct insights only; compromises
	// appended during resolution are not re-examined.
	direct := len(result.Insights)
	for i := 0; i < direct; i++ {
		for j := i + 1; j < direct; j++ {
			severity, detected := r.detect(&result.Insights[i], &result.Insights[j])
			if !detected {
				continue
			}
			conflict := r.newInsightConflict(&result.Insights[i], &result.Insights[j], severity)
			r.resolve(&conflict, i, j, scorer, result)
			result.Conflicts = append(result.Conflicts, conflict)
		}
	}

	for _, pair := range goalPairs {
		conflict := r.newGoalConflict(pair, scorer)
		if !conflict.Resolved {
			result.Warnings = append(result.Warnings, unresolvableWarning(conflict.ID))
		}
		result.Conflicts = append(result.Conflicts, conflict)
	}

	return result
}

// detect reports whether two insights conflict and with what severity.
// Conflicts only arise across distinct primary domains: either through a
// negative matrix relation, or through a shared constrained resource whose
// texts pull in opposite directions.
func (r *Resolver) detect(a, b *models.Insight) (float64, bool) {
	if a.PrimaryDomain == b.PrimaryDomain {
		return 0, false
	}

	var severity float64
	detected := false

	if rel := r.matrix.Relation(a.PrimaryDomain, b.PrimaryDomain); rel < 0 {
		severity = -rel
		detected = true
	}

	if r.sharesConstrainedResource(a, b) && similarity.OppositeDirections(a.Text, b.Text) {
		detected = true
		if resourceContentionSeverity > severity {
			severity = resourceContentionSeverity
		}
	}

	return severity, detected
}

func (r *Resolver) sharesConstrainedResource(a, b *models.Insight) bool {
	for _, tag := range a.ResourceTags {
		if r.constrained[tag] && b.HasResourceTag(tag) {
			return true
		}
	}
	return false
}

func (r *Resolver) newInsightConflict(a, b *models.Insight, severity float64) models.Conflict {
	domains := []string{a.PrimaryDomain, b.PrimaryDomain}
	sort.Strings(domains)
	return models.Conflict{
		ID:         conflictID(a.ID, b.ID),
		InsightIDs: []string{a.ID, b.ID},
		Domains:    domains,
		Severity:   severity,
	}
}

// resolve applies the policy to one insight conflict, updating the insight
// statuses in result and appending a compromise insight when consensus is
// used. Index i and j address the conflicting insights inside result.Insights.
func (r *Resolver) resolve(conflict *models.Conflict, i, j int, scorer *priority.Scorer, result *Result) {
	a := &result.Insights[i]
	b := &result.Insights[j]
	scoreA := scorer.Score(a.PrimaryDomain)
	scoreB := scorer.Score(b.PrimaryDomain)

	policy := r.policy
	if policy == PolicyHybrid {
		if diff := scoreA - scoreB; diff > r.gap || -diff > r.gap {
			policy = PolicyPriority
		} else {
			policy = PolicyConsensus
		}
	}

	switch policy {
	case PolicyPriority:
		if scoreA == scoreB {
			conflict.Resolved = false
			result.Warnings = append(result.Warnings, unresolvableWarning(conflict.ID))
			r.logger.Warn("conflict unresolvable under priority policy", map[string]interface{}{
				"conflict_id": conflict.ID,
				"domains":     conflict.Domains,
			})
			return
		}
		winner, loser := a, b
		winScore, loseScore := scoreA, scoreB
		if scoreB > scoreA {
			winner, loser = b, a
			winScore, loseScore = scoreB, scoreA
		}
		loser.Status = models.InsightDeferred
		conflict.ResolutionStrategy = PolicyPriority
		conflict.Resolved = true
		conflict.ResolutionText = fmt.Sprintf(
			"%s takes precedence over %s (priority %.1f vs %.1f); %q deferred",
			winner.PrimaryDomain, loser.PrimaryDomain, winScore, loseScore, loser.Text,
		)

	case PolicyConsensus:
		compromise := r.compromiseInsight(a, b)
		a.Status = models.InsightSuperseded
		b.Status = models.InsightSuperseded
		result.Insights = append(result.Insights, compromise)
		conflict.ResolutionStrategy = PolicyConsensus
		conflict.Resolved = true
		conflict.ResolutionText = fmt.Sprintf(
			"synthesized compromise between %s and %s", a.PrimaryDomain, b.PrimaryDomain,
		)

	default:
		conflict.Resolved = false
		result.Warnings = append(result.Warnings, unresolvableWarning(conflict.ID))
		r.logger.Warn("unknown resolution policy", map[string]interface{}{
			"policy":      r.policy,
			"conflict_id": conflict.ID,
		})
	}
}

// compromiseInsight combines two conflicting insights into one balanced
// suggestion with the mean of their confidences.
func (r *Resolver) compromiseInsight(a, b *models.Insight) models.Insight {
	domainSet := make(map[string]bool)
	for _, d := range a.SourceDomains {
		domainSet[d] = true
	}
	for _, d := range b.SourceDomains {
		domainSet[d] = true
	}
	domains := make([]string, 0, len(domainSet))
	for d := range domainSet {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	text := fmt.Sprintf("Balance both: %s, while also making room to %s",
		strings.TrimRight(a.Text, "."), lowerFirst(strings.TrimRight(b.Text, ".")))
	return models.Insight{
		ID:            uuid.NewSHA1(conflictNamespace, []byte("compromise|"+a.ID+"|"+b.ID)).String(),
		SourceDomains: domains,
		PrimaryDomain: a.PrimaryDomain,
		Text:          text,
		Confidence:    (a.Confidence + b.Confidence) / 2,
		Kind:          models.InsightCompromise,
		Status:        models.InsightActive,
		SupportingRecommendationIDs: append(
			append([]string{}, a.SupportingRecommendationIDs...),
			b.SupportingRecommendationIDs...,
		),
	}
}

// newGoalConflict folds one goal conflict pair into the conflict list.
// Severity is the product of both domains' priority scores normalized to
// [0,1]. The higher-priority domain's goal takes precedence; for two goals in
// the same domain the scores are identical, so the earlier goal wins.
func (r *Resolver) newGoalConflict(pair depgraph.ConflictPair, scorer *priority.Scorer) models.Conflict {
	scoreA := scorer.Score(pair.DomainA)
	scoreB := scorer.Score(pair.DomainB)
	domains := []string{pair.DomainA, pair.DomainB}
	if pair.DomainA == pair.DomainB {
		domains = domains[:1]
	} else {
		sort.Strings(domains)
	}

	conflict := models.Conflict{
		ID:       conflictID(pair.GoalA, pair.GoalB),
		GoalIDs:  []string{pair.GoalA, pair.GoalB},
		Domains:  domains,
		Severity: (scoreA / 10) * (scoreB / 10),
	}
	switch {
	case scoreA > scoreB:
		conflict.Resolved = true
		conflict.ResolutionStrategy = PolicyPriority
		conflict.ResolutionText = fmt.Sprintf(
			"goal %s takes precedence (priority %.1f vs %.1f)", pair.GoalA, scoreA, scoreB)
	case scoreB > scoreA:
		conflict.Resolved = true
		conflict.ResolutionStrategy = PolicyPriority
		conflict.ResolutionText = fmt.Sprintf(
			"goal %s takes precedence (priority %.1f vs %.1f)", pair.GoalB, scoreB, scoreA)
	case pair.DomainA == pair.DomainB:
		conflict.Resolved = true
		conflict.ResolutionStrategy = PolicyPriority
		conflict.ResolutionText = fmt.Sprintf(
			"goal %s takes precedence over %s (earlier goal in %s)",
			pair.GoalA, pair.GoalB, pair.DomainA)
	default:
		conflict.Resolved = false
	}
	return conflict
}

func conflictID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return uuid.NewSHA1(conflictNamespace, []byte(a+"|"+b)).String()
}

func unresolvableWarning(conflictID string) string {
	return fmt.Sprintf("%s: conflict %s left unresolved", stderrors.ErrCodeUnresolvableConflict, conflictID)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
