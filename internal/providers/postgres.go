package providers

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"advisor-engine/internal/common/logger"
)

// PostgresBaselineProvider reads the user's current domain scores from the
// domain_scores table, fronted by a Redis read-through cache.
type PostgresBaselineProvider struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewPostgresBaselineProvider(db *sql.DB, redisClient *redis.Client, cacheTTL time.Duration, log logger.Logger) *PostgresBaselineProvider {
	return &PostgresBaselineProvider{
		db:       db,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

func (p *PostgresBaselineProvider) BaselineScores(ctx context.Context, userID string) (map[string]float64, error) {
	cacheKey := "user:baselines:" + userID
	if p.redis != nil {
		if val, err := p.redis.Get(ctx, cacheKey).Result(); err == nil {
			var scores map[string]float64
			if err := json.Unmarshal([]byte(val), &scores); err == nil {
				return scores, nil
			}
		}
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT domain, score
		FROM domain_scores WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var domain string
		var score float64
		if err := rows.Scan(&domain, &score); err != nil {
			return nil, err
		}
		scores[domain] = score
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if p.redis != nil {
		data, _ := json.Marshal(scores)
		if err := p.redis.Set(ctx, cacheKey, data, p.cacheTTL).Err(); err != nil {
			p.logger.Warn("failed to cache baseline scores", map[string]interface{}{
				"userId": userID,
				"error":  err,
			})
		}
	}

	return scores, nil
}

// PostgresUrgencyProvider reads the active urgency factors per domain from
// the urgency_factors table, fronted by the same Redis cache pattern.
type PostgresUrgencyProvider struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewPostgresUrgencyProvider(db *sql.DB, redisClient *redis.Client, cacheTTL time.Duration, log logger.Logger) *PostgresUrgencyProvider {
	return &PostgresUrgencyProvider{
		db:       db,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

func (p *PostgresUrgencyProvider) UrgencyFactors(ctx context.Context, userID string) (map[string][]string, error) {
	cacheKey := "user:urgency:" + userID
	if p.redis != nil {
		if val, err := p.redis.Get(ctx, cacheKey).Result(); err == nil {
			var factors map[string][]string
			if err := json.Unmarshal([]byte(val), &factors); err == nil {
				return factors, nil
			}
		}
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT domain, factor
		FROM urgency_factors WHERE user_id = $1 AND active = true`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	factors := make(map[string][]string)
	for rows.Next() {
		var domain, factor string
		if err := rows.Scan(&domain, &factor); err != nil {
			return nil, err
		}
		factors[domain] = append(factors[domain], factor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if p.redis != nil {
		data, _ := json.Marshal(factors)
		if err := p.redis.Set(ctx, cacheKey, data, p.cacheTTL).Err(); err != nil {
			p.logger.Warn("failed to cache urgency factors", map[string]interface{}{
				"userId": userID,
				"error":  err,
			})
		}
	}

	return factors, nil
}
