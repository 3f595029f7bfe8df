// Package providers defines the external data sources the engine consults
// for a run: per-domain baseline scores and active urgency factors.
package providers

import "context"

// DomainBaselineProvider returns the user's current baseline score (0-10)
// per life domain. Missing domains default downstream.
type DomainBaselineProvider interface {
	BaselineScores(ctx context.Context, userID string) (map[string]float64, error)
}

// UrgencyFactorProvider returns the active urgency tags per domain, e.g.
// {"wellness": ["burnout"]}.
type UrgencyFactorProvider interface {
	UrgencyFactors(ctx context.Context, userID string) (map[string][]string, error)
}

// StaticBaselineProvider serves a fixed score map. Used in tests and local
// runs without a database.
type StaticBaselineProvider struct {
	Scores map[string]float64
}

func (p *StaticBaselineProvider) BaselineScores(ctx context.Context, userID string) (map[string]float64, error) {
	return p.Scores, nil
}

// StaticUrgencyProvider serves a fixed factor map.
type StaticUrgencyProvider struct {
	Factors map[string][]string
}

func (p *StaticUrgencyProvider) UrgencyFactors(ctx context.Context, userID string) (map[string][]string, error) {
	return p.Factors, nil
}
