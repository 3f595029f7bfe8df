// Package harmonize turns raw, possibly duplicated recommendations from the
// domain collaborators into a canonical list of insights.
package harmonize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"advisor-engine/internal/common/config"
	stderrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/engine/similarity"
	"advisor-engine/internal/models"
)

// insightNamespace seeds the name-based ids so that identical content always
// yields the same insight id across runs.
var insightNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("advisor-engine/insight"))

// Harmonizer deduplicates and merges recommendations into insights. It is a
// pure transform: the same input always produces the same output and nothing
// outside the returned value is touched.
type Harmonizer struct {
	threshold    float64
	knownDomains map[string]bool
	weights      map[string]float64
	matrix       *models.RelationMatrix
	logger       logger.Logger
}

// Result is the harmonizer output: the deduplicated insights in
// first-appearance order plus any warnings accumulated while sanitizing.
type Result struct {
	Insights []models.Insight
	Warnings []string
}

func New(cfg config.EngineConfig, matrix *models.RelationMatrix, log logger.Logger) *Harmonizer {
	known := make(map[string]bool, len(cfg.Domains))
	for _, d := range cfg.Domains {
		known[d] = true
	}
	return &Harmonizer{
		threshold:    cfg.MergeThreshold,
		knownDomains: known,
		weights:      cfg.DomainWeights,
		matrix:       matrix,
		logger:       log,
	}
}

// Harmonize validates, deduplicates and merges the recommendations. Malformed
// entries are dropped with a warning. The returned error is non-nil only when
// a non-empty input produced no usable recommendation at all.
func (h *Harmonizer) Harmonize(recs []models.Recommendation) (*Result, error) {
	result := &Result{Insights: []models.Insight{}, Warnings: []string{}}

	valid := h.sanitize(recs, result)
	if len(valid) == 0 {
		if len(recs) > 0 {
			return result, stderrors.NewHarmonizationFailedError("all recommendations were malformed")
		}
		return result, nil
	}

	groups := h.cluster(valid)
	for _, group := range groups {
		result.Insights = append(result.Insights, h.merge(valid, group))
	}
	return result, nil
}

// sanitize applies the ingestion rules: drop empty text or domain, bucket
// unknown domains into general, clamp confidence, assign positional ids.
func (h *Harmonizer) sanitize(recs []models.Recommendation, result *Result) []models.Recommendation {
	valid := make([]models.Recommendation, 0, len(recs))
	for i, rec := range recs {
		if strings.TrimSpace(rec.Text) == "" || strings.TrimSpace(rec.Domain) == "" {
			warn := fmt.Sprintf("%s: recommendation %d dropped (empty text or domain)",
				stderrors.ErrCodeMalformedRecommendation, i)
			result.Warnings = append(result.Warnings, warn)
			h.logger.Warn("dropping malformed recommendation", map[string]interface{}{
				"position": i,
				"domain":   rec.Domain,
			})
			continue
		}
		if len(h.knownDomains) > 0 && !h.knownDomains[rec.Domain] {
			rec.Domain = models.GeneralDomain
		}
		rec.Confidence = similarity.Clamp(rec.Confidence, 0, 1)
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("rec-%d", i+1)
		}
		valid = append(valid, rec)
	}
	return valid
}

// cluster groups pairwise-similar recommendations with union-find so that
// chains of similar entries collapse into a single group. Groups are returned
// in first-appearance order, members in input order.
func (h *Harmonizer) cluster(recs []models.Recommendation) [][]int {
	parent := make([]int, len(recs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if rb < ra {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			if !h.mergeable(recs[i].Domain, recs[j].Domain) {
				continue
			}
			if similarity.TextScore(recs[i].Text, recs[j].Text) >= h.threshold {
				union(i, j)
			}
		}
	}

	groupIndex := make(map[int]int)
	var groups [][]int
	for i := range recs {
		root := find(i)
		gi, ok := groupIndex[root]
		if !ok {
			gi = len(groups)
			groupIndex[root] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}

// mergeable reports whether two recommendations are candidates for dedup:
// same domain, or domains with a declared relationship.
func (h *Harmonizer) mergeable(a, b string) bool {
	return a == b || h.matrix.Related(a, b)
}

// merge collapses one group into a single insight. The representative text
// comes from the highest-confidence member and the merged confidence is the
// domain-weighted average over all members.
func (h *Harmonizer) merge(recs []models.Recommendation, group []int) models.Insight {
	best := group[0]
	domainSet := make(map[string]bool)
	tagSet := make(map[string]bool)
	supporting := make([]string, 0, len(group))
	values := make([]float64, 0, len(group))
	weights := make([]float64, 0, len(group))
	var deadline *time.Time

	for _, idx := range group {
		rec := recs[idx]
		if rec.Confidence > recs[best].Confidence {
			best = idx
		}
		domainSet[rec.Domain] = true
		for _, tag := range rec.ResourceTags {
			tagSet[tag] = true
		}
		supporting = append(supporting, rec.ID)
		values = append(values, rec.Confidence)
		weights = append(weights, h.domainWeight(rec.Domain))
		if rec.Deadline != nil && (deadline == nil || rec.Deadline.Before(*deadline)) {
			deadline = rec.Deadline
		}
	}

	domains := make([]string, 0, len(domainSet))
	for d := range domainSet {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	rep := recs[best]
	return models.Insight{
		ID:                          insightID(rep.Domain, rep.Text, domains),
		SourceDomains:               domains,
		PrimaryDomain:               rep.Domain,
		Text:                        rep.Text,
		Confidence:                  similarity.WeightedMean(values, weights),
		Kind:                        models.InsightDirect,
		Status:                      models.InsightActive,
		SupportingRecommendationIDs: supporting,
		ResourceTags:                tags,
		Deadline:                    deadline,
	}
}

func (h *Harmonizer) domainWeight(domain string) float64 {
	if w, ok := h.weights[domain]; ok && w > 0 {
		return w
	}
	return 1.0
}

// insightID derives a stable id from the canonical insight content.
func insightID(primaryDomain, text string, domains []string) string {
	name := primaryDomain + "|" + text + "|" + strings.Join(domains, ",")
	return uuid.NewSHA1(insightNamespace, []byte(name)).String()
}
