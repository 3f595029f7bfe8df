package harmonize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-engine/internal/common/config"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() config.EngineConfig {
	return config.EngineConfig{
		MergeThreshold:   0.6,
		Domains:          []string{"career", "wellness", "finance", "relationships", "general"},
		DomainWeights:    map[string]float64{},
		ResolutionPolicy: "hybrid",
	}
}

func newHarmonizer(cfg config.EngineConfig, relations ...models.RelationEntry) *Harmonizer {
	return New(cfg, models.NewRelationMatrix(relations), logger.NewNoOpLogger())
}

// ==========================
// Deduplication Tests
// ==========================

func TestHarmonize_MergesSimilarRecommendations(t *testing.T) {
	// Two wellness collaborators phrase the same advice slightly differently.
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "wellness", Text: "Exercise 3x per week", Confidence: 0.9},
		{Domain: "wellness", Text: "exercise 3x per week", Confidence: 0.7},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)

	require.Len(t, result.Insights, 1)
	insight := result.Insights[0]
	assert.InDelta(t, 0.8, insight.Confidence, 1e-9, "confidence is the average of both inputs")
	assert.Equal(t, "Exercise 3x per week", insight.Text, "highest-confidence member is the representative")
	assert.Equal(t, []string{"wellness"}, insight.SourceDomains)
	assert.Equal(t, []string{"rec-1", "rec-2"}, insight.SupportingRecommendationIDs)
	assert.Equal(t, models.InsightDirect, insight.Kind)
	assert.Empty(t, result.Warnings)
}

func TestHarmonize_InsightCountShrinksWhenSimilar(t *testing.T) {
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "finance", Text: "build an emergency fund of 3 months expenses", Confidence: 0.8},
		{Domain: "finance", Text: "build an emergency fund covering 3 months of expenses", Confidence: 0.6},
		{Domain: "career", Text: "ask for a promotion this quarter", Confidence: 0.7},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)
	assert.Less(t, len(result.Insights), len(recs))
	assert.Len(t, result.Insights, 2)
}

func TestHarmonize_ChainedSimilarityCollapsesToOneInsight(t *testing.T) {
	// A is similar to B and B to C; all three must land in one group even if
	// A and C alone would not clear the threshold.
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "wellness", Text: "sleep eight hours every night", Confidence: 0.5},
		{Domain: "wellness", Text: "sleep eight hours every single night", Confidence: 0.9},
		{Domain: "wellness", Text: "sleep eight full hours every single night", Confidence: 0.7},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)
	require.Len(t, result.Insights, 1)
	assert.Len(t, result.Insights[0].SupportingRecommendationIDs, 3)
	assert.Equal(t, "sleep eight hours every single night", result.Insights[0].Text)
}

func TestHarmonize_UnrelatedDomainsAreNotMerged(t *testing.T) {
	// Identical wording, but the domains have no declared relationship.
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "career", Text: "block two hours of focus time daily", Confidence: 0.8},
		{Domain: "finance", Text: "block two hours of focus time daily", Confidence: 0.8},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)
	assert.Len(t, result.Insights, 2)
}

func TestHarmonize_RelatedDomainsMerge(t *testing.T) {
	h := newHarmonizer(createTestConfig(), models.RelationEntry{A: "career", B: "finance", Strength: 0.7})
	recs := []models.Recommendation{
		{Domain: "career", Text: "negotiate a higher salary at review", Confidence: 0.9},
		{Domain: "finance", Text: "negotiate a higher salary at your review", Confidence: 0.5},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)
	require.Len(t, result.Insights, 1)
	assert.Equal(t, []string{"career", "finance"}, result.Insights[0].SourceDomains)
	assert.Equal(t, "career", result.Insights[0].PrimaryDomain)
}

// ==========================
// Ingestion Validation Tests
// ==========================

func TestHarmonize_DropsMalformedRecommendations(t *testing.T) {
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "wellness", Text: "", Confidence: 0.9},
		{Domain: "", Text: "do something", Confidence: 0.9},
		{Domain: "wellness", Text: "take a walk after lunch", Confidence: 0.9},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)
	assert.Len(t, result.Insights, 1)
	require.Len(t, result.Warnings, 2)
	for _, warn := range result.Warnings {
		assert.Contains(t, warn, "MALFORMED_RECOMMENDATION")
	}
}

func TestHarmonize_AllMalformedIsAFailure(t *testing.T) {
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "wellness", Text: ""},
		{Domain: "", Text: "   "},
	}

	result, err := h.Harmonize(recs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HARMONIZATION_FAILED")
	assert.Empty(t, result.Insights)
	assert.Len(t, result.Warnings, 2)
}

func TestHarmonize_EmptyInputIsNotAnError(t *testing.T) {
	h := newHarmonizer(createTestConfig())
	result, err := h.Harmonize(nil)
	require.NoError(t, err)
	assert.Empty(t, result.Insights)
	assert.Empty(t, result.Warnings)
}

func TestHarmonize_UnknownDomainFallsIntoGeneral(t *testing.T) {
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "astrology", Text: "mercury is in retrograde, postpone contracts", Confidence: 0.2},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)
	require.Len(t, result.Insights, 1)
	assert.Equal(t, models.GeneralDomain, result.Insights[0].PrimaryDomain)
}

func TestHarmonize_ClampsConfidence(t *testing.T) {
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "finance", Text: "increase retirement contributions", Confidence: 1.7},
		{Domain: "career", Text: "update portfolio and resume", Confidence: -0.3},
	}

	result, err := h.Harmonize(recs)
	require.NoError(t, err)
	require.Len(t, result.Insights, 2)
	assert.Equal(t, 1.0, result.Insights[0].Confidence)
	assert.Equal(t, 0.0, result.Insights[1].Confidence)
}

// ==========================
// Determinism Tests
// ==========================

func TestHarmonize_DeterministicIDs(t *testing.T) {
	h := newHarmonizer(createTestConfig())
	recs := []models.Recommendation{
		{Domain: "wellness", Text: "meditate ten minutes daily", Confidence: 0.8},
		{Domain: "career", Text: "schedule weekly one on ones", Confidence: 0.6},
	}

	first, err := h.Harmonize(recs)
	require.NoError(t, err)
	second, err := h.Harmonize(recs)
	require.NoError(t, err)

	require.Equal(t, len(first.Insights), len(second.Insights))
	for i := range first.Insights {
		assert.Equal(t, first.Insights[i].ID, second.Insights[i].ID)
		assert.False(t, strings.HasPrefix(first.Insights[i].ID, "rec-"))
	}
}
