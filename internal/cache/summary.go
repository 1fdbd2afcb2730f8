package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"medbook/backend/internal/domain"
	"medbook/backend/internal/store"
)

// SummaryCache keeps per-actor status counts in redis. All operations are
// best-effort: failures are logged and the caller falls back to the store.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewSummaryCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *SummaryCache {
	return &SummaryCache{
		client: client,
		ttl:    ttl,
		log:    log.With(slog.String("component", "summary_cache")),
	}
}

func (c *SummaryCache) Get(ctx context.Context, actor domain.Actor) (store.StatusCounts, bool) {
	raw, err := c.client.Get(ctx, summaryKey(actor.Role, actor.ID)).Bytes()
	if err == redis.Nil {
		return store.StatusCounts{}, false
	}
	if err != nil {
		c.log.WarnContext(ctx, "summary cache read failed", slog.String("error", err.Error()))
		return store.StatusCounts{}, false
	}

	var counts store.StatusCounts
	if err := json.Unmarshal(raw, &counts); err != nil {
		c.log.WarnContext(ctx, "summary cache entry corrupt", slog.String("error", err.Error()))
		return store.StatusCounts{}, false
	}
	return counts, true
}

func (c *SummaryCache) Set(ctx context.Context, actor domain.Actor, counts store.StatusCounts) {
	raw, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(actor.Role, actor.ID), raw, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "summary cache write failed", slog.String("error", err.Error()))
	}
}

// Invalidate drops both parties' summaries after an appointment write.
func (c *SummaryCache) Invalidate(ctx context.Context, patientID, doctorID uuid.UUID) {
	keys := []string{
		summaryKey(domain.RolePatient, patientID),
		summaryKey(domain.RoleDoctor, doctorID),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.WarnContext(ctx, "summary cache invalidation failed", slog.String("error", err.Error()))
	}
}

func summaryKey(role domain.Role, id uuid.UUID) string {
	return fmt.Sprintf("medbook:summary:%s:%s", role, id)
}
