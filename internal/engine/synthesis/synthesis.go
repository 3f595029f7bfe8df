// Package synthesis derives new insights describing cross-domain synergies
// and risks from the post-resolution insight set.
package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"advisor-engine/internal/engine/similarity"
	"advisor-engine/internal/models"
)

var synergyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("advisor-engine/synthesis"))

// Synthesizer derives synergy and risk insights from the retained insight set
// using the configured relationship matrix. The matrix is injected and never
// mutated, so concurrent runs can share one instance.
type Synthesizer struct {
	matrix *models.RelationMatrix
}

func New(matrix *models.RelationMatrix) *Synthesizer {
	return &Synthesizer{matrix: matrix}
}

// Synthesize walks every domain pair present among the active insights, in
// lexicographic order, and emits at most one derived insight per pair:
// a synergy for positively related pairs pulling the same way, a risk for
// negatively related pairs whose advice is simultaneously active. Domains the
// matrix marks self-amplifying additionally yield a compound synergy when
// they carry two or more insights.
func (s *Synthesizer) Synthesize(insights []models.Insight) []models.Insight {
	byDomain := make(map[string][]*models.Insight)
	for i := range insights {
		if insights[i].Status != models.InsightActive {
			continue
		}
		d := insights[i].PrimaryDomain
		byDomain[d] = append(byDomain[d], &insights[i])
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var derived []models.Insight
	for i, a := range domains {
		if compound := s.compound(a, byDomain[a]); compound != nil {
			derived = append(derived, *compound)
		}
		for _, b := range domains[i+1:] {
			strength := s.matrix.Relation(a, b)
			if strength == 0 {
				continue
			}
			repA := strongest(byDomain[a])
			repB := strongest(byDomain[b])
			if strength > 0 {
				if similarity.OppositeDirections(repA.Text, repB.Text) {
					continue
				}
				derived = append(derived, derive(models.InsightSynergy, a, b, repA, repB,
					strength*repA.Confidence*repB.Confidence,
					fmt.Sprintf("Progress on %q reinforces %q across %s and %s",
						repA.Text, repB.Text, a, b)))
			} else {
				derived = append(derived, derive(models.InsightRisk, a, b, repA, repB,
					-strength*repA.Confidence*repB.Confidence,
					fmt.Sprintf("Pursuing %q may undermine %q (%s strains %s)",
						repA.Text, repB.Text, a, b)))
			}
		}
	}
	return derived
}

// compound emits the single-domain synergy for a self-amplifying domain with
// at least two insights, built from its two strongest members.
func (s *Synthesizer) compound(domain string, members []*models.Insight) *models.Insight {
	strength := s.matrix.SelfAmplifying(domain)
	if strength <= 0 || len(members) < 2 {
		return nil
	}
	top := topTwo(members)
	insight := derive(models.InsightSynergy, domain, domain, top[0], top[1],
		strength*top[0].Confidence*top[1].Confidence,
		fmt.Sprintf("Combined %s efforts compound: %q together with %q",
			domain, top[0].Text, top[1].Text))
	insight.SourceDomains = []string{domain}
	return &insight
}

func derive(kind models.InsightKind, domainA, domainB string, a, b *models.Insight, confidence float64, text string) models.Insight {
	domains := []string{domainA, domainB}
	sort.Strings(domains)
	supporting := append(append([]string{}, a.SupportingRecommendationIDs...), b.SupportingRecommendationIDs...)
	name := string(kind) + "|" + strings.Join(domains, ",") + "|" + a.ID + "|" + b.ID
	return models.Insight{
		ID:                          uuid.NewSHA1(synergyNamespace, []byte(name)).String(),
		SourceDomains:               domains,
		PrimaryDomain:               domains[0],
		Text:                        text,
		Confidence:                  similarity.Clamp(confidence, 0, 1),
		Kind:                        kind,
		Status:                      models.InsightActive,
		SupportingRecommendationIDs: supporting,
	}
}

// strongest picks the highest-confidence member, earliest first on ties.
func strongest(members []*models.Insight) *models.Insight {
	best := members[0]
	for _, m := range members[1:] {
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	return best
}

// topTwo returns the two highest-confidence members, preserving input order
// between equals.
func topTwo(members []*models.Insight) [2]*models.Insight {
	first, second := members[0], (*models.Insight)(nil)
	for _, m := range members[1:] {
		switch {
		case m.Confidence > first.Confidence:
			first, second = m, first
		case second == nil || m.Confidence > second.Confidence:
			second = m
		}
	}
	return [2]*models.Insight{first, second}
}
