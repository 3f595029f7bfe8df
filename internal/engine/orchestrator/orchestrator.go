// Package orchestrator sequences the integration pipeline: harmonize, goal
// graph, domain priorities, conflict resolution, synthesis and action
// ranking, assembled into one UnifiedResult.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"advisor-engine/internal/common/config"
	stderrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/common/metrics"
	"advisor-engine/internal/common/observability"
	"advisor-engine/internal/engine/action"
	"advisor-engine/internal/engine/conflict"
	"advisor-engine/internal/engine/depgraph"
	"advisor-engine/internal/engine/harmonize"
	"advisor-engine/internal/engine/priority"
	"advisor-engine/internal/engine/synthesis"
	"advisor-engine/internal/models"
	"advisor-engine/internal/providers"
)

// Pipeline stage names, used in warnings, metrics and spans.
const (
	StageHarmonize  = "harmonize"
	StageGoalGraph  = "goal_graph"
	StagePriorities = "priorities"
	StageConflicts  = "conflicts"
	StageSynthesis  = "synthesis"
	StageActions    = "actions"
)

// GoalSource loads the user's persisted goals when the caller does not
// provide them inline.
type GoalSource interface {
	GoalsForUser(ctx context.Context, userID string) ([]models.Goal, error)
}

// RunInput is the full input of one integration run. Goals may be nil, in
// which case they are loaded from the goal source.
type RunInput struct {
	UserID          string
	Recommendations []models.Recommendation
	Goals           []models.Goal
}

// Orchestrator runs the fixed pipeline. All stages operate on run-local
// state, so one orchestrator can serve concurrent runs for different users.
type Orchestrator struct {
	cfg         config.EngineConfig
	matrix      *models.RelationMatrix
	harmonizer  *harmonize.Harmonizer
	resolver    *conflict.Resolver
	synthesizer *synthesis.Synthesizer
	baselines   providers.DomainBaselineProvider
	urgency     providers.UrgencyFactorProvider
	goals       GoalSource
	locker      RunLocker
	obs         *observability.Observability
	logger      logger.Logger
	now         func() time.Time
}

// Options carries the orchestrator collaborators.
type Options struct {
	Baselines providers.DomainBaselineProvider
	Urgency   providers.UrgencyFactorProvider
	Goals     GoalSource
	Locker    RunLocker
	Obs       *observability.Observability
	Logger    logger.Logger
}

func New(cfg config.EngineConfig, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	locker := opts.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	matrix := relationMatrix(cfg)
	return &Orchestrator{
		cfg:         cfg,
		matrix:      matrix,
		harmonizer:  harmonize.New(cfg, matrix, log),
		resolver:    conflict.New(cfg, matrix, log),
		synthesizer: synthesis.New(matrix),
		baselines:   opts.Baselines,
		urgency:     opts.Urgency,
		goals:       opts.Goals,
		locker:      locker,
		obs:         opts.Obs,
		logger:      log,
		now:         time.Now,
	}
}

func relationMatrix(cfg config.EngineConfig) *models.RelationMatrix {
	entries := make([]models.RelationEntry, 0, len(cfg.Relations))
	for _, r := range cfg.Relations {
		entries = append(entries, models.RelationEntry{A: r.A, B: r.B, Strength: r.Strength})
	}
	return models.NewRelationMatrix(entries)
}

// Run executes the pipeline once. It always returns a well-formed result for
// a run that started; a non-nil error means the run did not start (lock held)
// or was cancelled.
func (o *Orchestrator) Run(ctx context.Context, input *RunInput) (*models.UnifiedResult, error) {
	release, err := o.locker.Acquire(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := o.now()
	result, err := o.run(ctx, input)
	status := "ok"
	switch {
	case err != nil:
		status = "cancelled"
	case result.Error:
		status = "error"
	}
	metrics.RunsCompleted.WithLabelValues(status).Inc()
	o.obs.RecordRunProcessed(ctx, status)
	o.obs.RecordRunDuration(ctx, o.now().Sub(start), status)
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, input *RunInput) (*models.UnifiedResult, error) {
	result := models.NewUnifiedResult(input.UserID)

	// Harmonize. A failure here is the one fatal stage: nothing downstream
	// can run without insights.
	var harmonized *harmonize.Result
	err := o.stage(ctx, StageHarmonize, func(ctx context.Context) error {
		var err error
		harmonized, err = o.harmonizer.Harmonize(input.Recommendations)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if harmonized != nil {
			result.Warnings = append(result.Warnings, harmonized.Warnings...)
		}
		result.Warnings = append(result.Warnings, stageWarning(StageHarmonize, err))
		result.Error = true
		o.logger.Error("harmonization failed", map[string]interface{}{
			"userId": input.UserID,
			"error":  err,
		})
		return result, nil
	}
	result.Warnings = append(result.Warnings, harmonized.Warnings...)
	insights := harmonized.Insights

	if len(input.Recommendations) == 0 {
		result.Warnings = append(result.Warnings, "no recommendations provided; nothing to integrate")
		return result, nil
	}
	o.gapWarnings(insights, result)

	// Goal graph. Failures degrade to an empty goal set.
	var graph *depgraph.Graph
	err = o.stage(ctx, StageGoalGraph, func(ctx context.Context) error {
		goals := input.Goals
		if goals == nil && o.goals != nil {
			loaded, err := o.goals.GoalsForUser(ctx, input.UserID)
			if err != nil {
				return stderrors.NewGoalStoreQueryFailedError(err)
			}
			goals = loaded
		}
		graph = depgraph.Build(goals)
		for range graph.RequiresCycles() {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s: goal dependencies contain a required-edge cycle; affected goals fall back to insertion order",
				stderrors.ErrCodeCyclicRequiredDep))
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Warnings = append(result.Warnings, stageWarning(StageGoalGraph, err))
		graph = depgraph.Build(nil)
	}

	// Domain priorities. Provider failures degrade to default baselines.
	var scorer *priority.Scorer
	err = o.stage(ctx, StagePriorities, func(ctx context.Context) error {
		var baselines map[string]float64
		var urgencyFactors map[string][]string
		if o.baselines != nil {
			fetched, err := o.baselines.BaselineScores(ctx, input.UserID)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s: using default baselines: %v", stderrors.ErrCodeBaselineFetchFailed, err))
			} else {
				baselines = fetched
			}
		}
		if o.urgency != nil {
			fetched, err := o.urgency.UrgencyFactors(ctx, input.UserID)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s: skipping urgency bonuses: %v", stderrors.ErrCodeUrgencyFetchFailed, err))
			} else {
				urgencyFactors = fetched
			}
		}
		scorer = priority.NewScorer(baselines, urgencyFactors, graph.Goals())
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Warnings = append(result.Warnings, stageWarning(StagePriorities, err))
		scorer = priority.NewScorer(nil, nil, graph.Goals())
	}

	// Conflict detection and resolution.
	err = o.stage(ctx, StageConflicts, func(ctx context.Context) error {
		resolved := o.resolver.DetectAndResolve(insights, scorer, graph.ConflictPairs())
		insights = resolved.Insights
		result.Conflicts = resolved.Conflicts
		result.Warnings = append(result.Warnings, resolved.Warnings...)
		for _, c := range resolved.Conflicts {
			outcome := "unresolved"
			if c.Resolved {
				outcome = c.ResolutionStrategy
			}
			metrics.ConflictsDetected.WithLabelValues(outcome).Inc()
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Warnings = append(result.Warnings, stageWarning(StageConflicts, err))
	}

	// Cross-domain synthesis on the post-resolution set.
	err = o.stage(ctx, StageSynthesis, func(ctx context.Context) error {
		result.Synergies = o.synthesizer.Synthesize(insights)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Warnings = append(result.Warnings, stageWarning(StageSynthesis, err))
	}

	// Action ranking over the retained set, derived insights included.
	err = o.stage(ctx, StageActions, func(ctx context.Context) error {
		prioritizer := action.New(scorer, graph.Goals(), graph.BlockedGoals())
		retained := append(append([]models.Insight{}, insights...), result.Synergies...)
		result.PrioritizedActions = prioritizer.Prioritize(retained, o.now())
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Warnings = append(result.Warnings, stageWarning(StageActions, err))
	}

	result.Insights = insights
	result.OverallConfidence = overallConfidence(insights, result.Synergies)
	for _, ins := range insights {
		metrics.InsightsProduced.WithLabelValues(string(ins.Kind)).Inc()
	}
	return result, nil
}

// stage runs one pipeline stage with a span, duration metric, panic recovery
// and a cancellation check at the boundary. The stage body receives the span
// context so its own calls land under the stage span.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	spanCtx, end := o.obs.StartSpan(ctx, "engine."+name)
	start := time.Now()
	defer func() {
		end()
		metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil && ctx.Err() == nil {
			metrics.StageFailures.WithLabelValues(name).Inc()
		}
	}()
	return fn(spanCtx)
}

func stageWarning(stage string, err error) string {
	return fmt.Sprintf("%s:%s: %v", stderrors.ErrCodeStageFailure, stage, err)
}

// gapWarnings notes every configured domain absent from the harmonized input.
// The run proceeds; a missing collaborator is never fatal.
func (o *Orchestrator) gapWarnings(insights []models.Insight, result *models.UnifiedResult) {
	present := make(map[string]bool)
	for _, ins := range insights {
		for _, d := range ins.SourceDomains {
			present[d] = true
		}
	}
	for _, domain := range o.cfg.Domains {
		if domain == models.GeneralDomain || present[domain] {
			continue
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("domain gap: no recommendations for %s", domain))
	}
}

// overallConfidence is the confidence-weighted mean across the contributing
// (active) insights, derived ones included.
func overallConfidence(insights, synergies []models.Insight) float64 {
	var sum, weight float64
	add := func(list []models.Insight) {
		for _, ins := range list {
			if ins.Status != models.InsightActive {
				continue
			}
			sum += ins.Confidence * ins.Confidence
			weight += ins.Confidence
		}
	}
	add(insights)
	add(synergies)
	if weight == 0 {
		return 0
	}
	return sum / weight
}
