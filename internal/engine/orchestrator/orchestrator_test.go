package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-engine/internal/common/config"
	stderrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
	"advisor-engine/internal/providers"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func createTestConfig() config.EngineConfig {
	return config.EngineConfig{
		MergeThreshold:       0.6,
		PriorityGap:          2.0,
		ResolutionPolicy:     "priority",
		ConstrainedResources: []string{"time", "money", "attention", "energy"},
		Domains:              []string{"career", "wellness", "finance"},
		Relations: []config.DomainRelation{
			{A: "career", B: "finance", Strength: 0.6},
		},
	}
}

func newOrchestrator(cfg config.EngineConfig, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	o := New(cfg, opts)
	o.now = func() time.Time { return testNow }
	return o
}

type runScopeKey struct{}

// ctxCapturingGoalSource records whether the context it receives carries the
// value attached to the run context.
type ctxCapturingGoalSource struct {
	sawRunScope bool
}

func (s *ctxCapturingGoalSource) GoalsForUser(ctx context.Context, userID string) ([]models.Goal, error) {
	s.sawRunScope = ctx.Value(runScopeKey{}) == "run-scoped"
	return nil, nil
}

type failingGoalSource struct{}

func (failingGoalSource) GoalsForUser(ctx context.Context, userID string) ([]models.Goal, error) {
	return nil, assert.AnError
}

type failingBaselineProvider struct{}

func (failingBaselineProvider) BaselineScores(ctx context.Context, userID string) (map[string]float64, error) {
	return nil, assert.AnError
}

func sampleInput() *RunInput {
	return &RunInput{
		UserID: "user-1",
		Recommendations: []models.Recommendation{
			{Domain: "career", Text: "accept the promotion requiring overtime", Confidence: 0.8, ResourceTags: []string{"time"}},
			{Domain: "wellness", Text: "reduce work hours to recover", Confidence: 0.7, ResourceTags: []string{"time"}},
			{Domain: "finance", Text: "automate savings transfers", Confidence: 0.9},
		},
	}
}

// ==========================
// Pipeline Assembly Tests
// ==========================

func TestRun_FullPipeline(t *testing.T) {
	o := newOrchestrator(createTestConfig(), Options{
		Baselines: &providers.StaticBaselineProvider{Scores: map[string]float64{
			"career": 0, "wellness": 5, "finance": 4,
		}},
		Urgency: &providers.StaticUrgencyProvider{Factors: map[string][]string{
			"career": {"deadline"},
		}},
	})

	result, err := o.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "user-1", result.UserID)
	assert.False(t, result.Error)
	assert.Len(t, result.Insights, 3)

	// career vs wellness contend for time in opposite directions; career has
	// the higher priority (5.5 vs 2.0), so wellness is deferred.
	require.Len(t, result.Conflicts, 1)
	assert.True(t, result.Conflicts[0].Resolved)
	assert.Equal(t, "priority", result.Conflicts[0].ResolutionStrategy)

	deferred := 0
	for _, ins := range result.Insights {
		if ins.Status == models.InsightDeferred {
			deferred++
			assert.Equal(t, "wellness", ins.PrimaryDomain)
		}
	}
	assert.Equal(t, 1, deferred)

	// career and finance are positively related and both active.
	require.Len(t, result.Synergies, 1)
	assert.Equal(t, models.InsightSynergy, result.Synergies[0].Kind)

	// Actions cover the retained set: two active directs plus the synergy.
	assert.Len(t, result.PrioritizedActions, 3)
	for _, a := range result.PrioritizedActions {
		assert.GreaterOrEqual(t, a.PriorityScore, 0.0)
		assert.LessOrEqual(t, a.PriorityScore, 10.0)
	}
	assert.Greater(t, result.OverallConfidence, 0.0)
	assert.LessOrEqual(t, result.OverallConfidence, 1.0)
}

func TestRun_EmptyInput(t *testing.T) {
	o := newOrchestrator(createTestConfig(), Options{})

	result, err := o.Run(context.Background(), &RunInput{UserID: "user-1"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Empty(t, result.Insights)
	assert.Empty(t, result.PrioritizedActions)
	assert.Zero(t, result.OverallConfidence)
	assert.False(t, result.Error)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no recommendations")
}

func TestRun_Idempotent(t *testing.T) {
	opts := Options{
		Baselines: &providers.StaticBaselineProvider{Scores: map[string]float64{
			"career": 3, "wellness": 5, "finance": 4,
		}},
	}
	input := sampleInput()
	input.Goals = []models.Goal{
		{ID: "goal-1", UserID: "user-1", Domain: "finance", Status: models.GoalActive},
	}

	o := newOrchestrator(createTestConfig(), opts)
	first, err := o.Run(context.Background(), input)
	require.NoError(t, err)
	second, err := o.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical input must yield an identical result")
}

func TestRun_DomainGapWarning(t *testing.T) {
	o := newOrchestrator(createTestConfig(), Options{})
	result, err := o.Run(context.Background(), &RunInput{
		UserID: "user-1",
		Recommendations: []models.Recommendation{
			{Domain: "career", Text: "update the resume", Confidence: 0.5},
		},
	})
	require.NoError(t, err)

	var gaps []string
	for _, w := range result.Warnings {
		if strings.HasPrefix(w, "domain gap") {
			gaps = append(gaps, w)
		}
	}
	require.Len(t, gaps, 2)
	assert.Contains(t, gaps[0], "wellness")
	assert.Contains(t, gaps[1], "finance")
}

// ==========================
// Failure Handling Tests
// ==========================

func TestRun_HarmonizationFailureSetsErrorFlag(t *testing.T) {
	o := newOrchestrator(createTestConfig(), Options{})
	result, err := o.Run(context.Background(), &RunInput{
		UserID: "user-1",
		Recommendations: []models.Recommendation{
			{Domain: "wellness", Text: ""},
			{Domain: "", Text: "no domain"},
		},
	})
	require.NoError(t, err, "a failed run still returns a well-formed result")
	require.NotNil(t, result)

	assert.True(t, result.Error)
	assert.Empty(t, result.Insights)
	assert.Empty(t, result.PrioritizedActions)

	foundStageWarning := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "STAGE_FAILURE") && strings.Contains(w, "harmonize") {
			foundStageWarning = true
		}
	}
	assert.True(t, foundStageWarning)
}

func TestRun_GoalStoreFailureDegradesGracefully(t *testing.T) {
	o := newOrchestrator(createTestConfig(), Options{Goals: failingGoalSource{}})
	result, err := o.Run(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.False(t, result.Error)
	assert.NotEmpty(t, result.Insights, "pipeline continues without goals")

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "STAGE_FAILURE") && strings.Contains(w, "goal_graph") {
			found = true
		}
	}
	assert.True(t, found, "the failed stage is named in warnings")
}

func TestRun_StageContextReachesCollaborators(t *testing.T) {
	src := &ctxCapturingGoalSource{}
	o := newOrchestrator(createTestConfig(), Options{Goals: src})

	ctx := context.WithValue(context.Background(), runScopeKey{}, "run-scoped")
	_, err := o.Run(ctx, sampleInput())
	require.NoError(t, err)

	assert.True(t, src.sawRunScope, "goal source must run under a context derived from the run context")
}

func TestRun_BaselineProviderFailureUsesDefaults(t *testing.T) {
	o := newOrchestrator(createTestConfig(), Options{Baselines: failingBaselineProvider{}})
	result, err := o.Run(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.False(t, result.Error)
	assert.NotEmpty(t, result.PrioritizedActions)
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "BASELINE_FETCH_FAILED") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_CancelledContext(t *testing.T) {
	o := newOrchestrator(createTestConfig(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx, sampleInput())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

// ==========================
// Run Lock Tests
// ==========================

func TestRedisRunLocker_SerializesPerUser(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	locker := NewRedisRunLocker(client, time.Minute)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "user-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "user-1")
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRunInProgress, stdErr.Code)

	// A different user is unaffected.
	otherRelease, err := locker.Acquire(ctx, "user-2")
	require.NoError(t, err)
	otherRelease()

	// Releasing frees the user for the next run.
	release()
	release2, err := locker.Acquire(ctx, "user-1")
	require.NoError(t, err)
	release2()
}

func TestRedisRunLocker_StaleReleaseKeepsNewerLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	locker := NewRedisRunLocker(client, time.Minute)
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "user-1")
	require.NoError(t, err)

	// The first run outlives its TTL; a second run takes the lock.
	mr.FastForward(2 * time.Minute)
	release2, err := locker.Acquire(ctx, "user-1")
	require.NoError(t, err)
	defer release2()

	// The stale release must not delete the second run's lock.
	staleRelease()
	_, err = locker.Acquire(ctx, "user-1")
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRunInProgress, stdErr.Code)
}

func TestRun_LockedUserGetsRunInProgress(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewRedisRunLocker(client, time.Minute)

	o := newOrchestrator(createTestConfig(), Options{Locker: locker})

	release, err := locker.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	defer release()

	result, err := o.Run(context.Background(), sampleInput())
	assert.Nil(t, result)
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRunInProgress, stdErr.Code)
}
