// Package worker drains the review-event queue: each event is written to
// the review log and daily aggregates, then fanned out to the owner's live
// update channel. Keeping this off the request path keeps the submit
// endpoint to a single awaited write.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"mnemo-backend/internal/models"
	"mnemo-backend/internal/queue"
	"mnemo-backend/internal/repository"
)

type Pool struct {
	redis       *redis.Client
	statsRepo   *repository.StatsRepo
	dueCache    *queue.DueCountCache
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, statsRepo *repository.StatsRepo, dueCache *queue.DueCountCache, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		statsRepo:   statsRepo,
		dueCache:    dueCache,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d stats worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Stats worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BRPOP with a timeout so shutdown is picked up between pops.
		result, err := p.redis.BRPop(ctx, 10*time.Second, queue.ReviewEvents).Result()
		if err != nil {
			continue // timeout or transient error, retry
		}
		if len(result) < 2 {
			continue
		}

		var ev models.ReviewEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			log.Printf("Stats worker %d: failed to parse review event: %v", id, err)
			continue
		}

		p.process(ctx, id, ev)
	}
}

func (p *Pool) process(ctx context.Context, id int, ev models.ReviewEvent) {
	if err := p.statsRepo.RecordReview(ctx, ev); err != nil {
		// Push back for a later retry; RecordReview is idempotent per event id.
		log.Printf("Stats worker %d: failed to record review %s: %v", id, ev.ID, err)
		payload, merr := json.Marshal(ev)
		if merr == nil {
			p.redis.LPush(ctx, queue.ReviewEvents, payload)
		}
		time.Sleep(time.Second)
		return
	}

	p.dueCache.Invalidate(ctx, ev.UserID)

	msg := models.WSMessage{
		Type: "review.recorded",
		Payload: models.ReviewRecordedEvent{
			CardID:       ev.CardID,
			Quality:      ev.Quality,
			IntervalDays: ev.IntervalDays,
			Repetitions:  ev.Repetitions,
			DueAt:        ev.ReviewedAt.AddDate(0, 0, ev.IntervalDays),
		},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	p.redis.Publish(ctx, queue.UserChannel(ev.UserID), payload)
}
