package models

import "time"

// InsightKind classifies how an insight was derived.
type InsightKind string

const (
	InsightDirect     InsightKind = "direct"
	InsightSynergy    InsightKind = "synergy"
	InsightRisk       InsightKind = "risk"
	InsightCompromise InsightKind = "compromise"
)

// InsightStatus tracks what conflict resolution did to an insight.
type InsightStatus string

const (
	InsightActive     InsightStatus = "active"
	InsightDeferred   InsightStatus = "deferred"
	InsightSuperseded InsightStatus = "superseded"
)

// Insight is a deduplicated, domain-tagged unit of advice derived from one or
// more raw recommendations.
type Insight struct {
	ID                          string        `json:"id"`
	SourceDomains               []string      `json:"sourceDomains"` // sorted, unique
	PrimaryDomain               string        `json:"primaryDomain"` // domain of the representative recommendation
	Text                        string        `json:"text"`
	Confidence                  float64       `json:"confidence"`
	Kind                        InsightKind   `json:"kind"`
	Status                      InsightStatus `json:"status"`
	SupportingRecommendationIDs []string      `json:"supportingRecommendationIds,omitempty"`
	ResourceTags                []string      `json:"resourceTags,omitempty"`
	Deadline                    *time.Time    `json:"deadline,omitempty"`
}

// HasResourceTag reports whether the insight carries the given resource tag.
func (i *Insight) HasResourceTag(tag string) bool {
	for _, t := range i.ResourceTags {
		if t == tag {
			return true
		}
	}
	return false
}
