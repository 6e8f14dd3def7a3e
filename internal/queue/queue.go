// Package queue is the Redis plumbing between the synchronous review path
// and the async consumers: the stats worker pops review events from a list,
// and per-user pub/sub channels fan updates out to the websocket hub.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mnemo-backend/internal/models"
)

const (
	ReviewEvents = "queue:review-events"

	userChannelPrefix = "user_updates:"
	dueCountKeyPrefix = "cache:due-count:"

	// Due-ness moves with the clock, not just with reviews: a card crosses
	// due_at without any event landing, so cached counts must age out.
	dueCountTTL = 5 * time.Minute
)

// UserChannel is the pub/sub channel carrying a user's live updates.
func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

func dueCountKey(userID uuid.UUID) string {
	return dueCountKeyPrefix + userID.String()
}

// ReviewQueue publishes completed reviews for async processing.
type ReviewQueue struct {
	redis *redis.Client
}

func NewReviewQueue(redisClient *redis.Client) *ReviewQueue {
	return &ReviewQueue{redis: redisClient}
}

func (q *ReviewQueue) PublishReview(ctx context.Context, ev models.ReviewEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode review event: %w", err)
	}
	if err := q.redis.LPush(ctx, ReviewEvents, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue review event: %w", err)
	}
	// The cached due count is stale the moment a review lands.
	q.redis.Del(ctx, dueCountKey(ev.UserID))
	return nil
}

// DueCountCache caches the per-user due-card count so the dashboard does not
// hit Postgres on every poll. Entries expire after dueCountTTL so counts
// catch up with cards that come due between reviews.
type DueCountCache struct {
	redis redis.Cmdable
}

func NewDueCountCache(redisClient redis.Cmdable) *DueCountCache {
	return &DueCountCache{redis: redisClient}
}

func (c *DueCountCache) Get(ctx context.Context, userID uuid.UUID) (int, bool) {
	n, err := c.redis.Get(ctx, dueCountKey(userID)).Int()
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *DueCountCache) Set(ctx context.Context, userID uuid.UUID, count int) {
	c.redis.Set(ctx, dueCountKey(userID), count, dueCountTTL)
}

func (c *DueCountCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	c.redis.Del(ctx, dueCountKey(userID))
}
