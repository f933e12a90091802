package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	appkafka "github.com/VangaRenuka/SocialConnect/internal/broker"
	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/notify"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

var logg = logger.New()

// Worker consumes broker events and performs their downstream effects
// concurrently: feed fan-out for new posts, notification creation for
// engagement events.
type Worker struct {
	store        store.StoreInterface
	reader       appkafka.KafkaReader
	notifier     *notify.Service
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(st store.StoreInterface, reader appkafka.KafkaReader, notifier *notify.Service, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	return &Worker{
		store:        st,
		reader:       reader,
		notifier:     notifier,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing.
func (w *Worker) Run(ctx context.Context) {
	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan []byte, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads broker messages and pushes them into the job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- []byte) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				if !waitWithContext(ctx, 50*time.Millisecond) {
					return
				}
				continue
			}

			select {
			case jobs <- msg.Value:
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
				logg.Info("worker", "Queue full, waiting to enqueue Kafka message")
			}
		}
	}
}

// processLoop decodes event envelopes and dispatches them.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-jobs:
			if !ok {
				return
			}

			var ev models.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				logg.Error("worker", "Invalid JSON in Kafka message", err)
				continue
			}
			if err := w.handleEvent(ctx, ev); err != nil {
				logg.Error("worker", "Failed to handle "+ev.Type+" event", err)
			}
		}
	}
}

func (w *Worker) handleEvent(ctx context.Context, ev models.Event) error {
	switch ev.Type {
	case models.EventPostCreated:
		if ev.Post == nil {
			return fmt.Errorf("post_created event without post")
		}
		return w.fanOut(ctx, *ev.Post)

	case models.EventPostLiked:
		if ev.Post == nil {
			return fmt.Errorf("post_liked event without post")
		}
		actor, err := w.store.GetUserByID(ev.ActorID)
		if err != nil {
			return fmt.Errorf("load liker: %w", err)
		}
		return w.notifier.NotifyLike(ctx, actor.ID, actor.Username, *ev.Post)

	case models.EventCommentAdded:
		if ev.Comment == nil {
			return fmt.Errorf("comment_added event without comment")
		}
		actor, err := w.store.GetUserByID(ev.ActorID)
		if err != nil {
			return fmt.Errorf("load commenter: %w", err)
		}
		if err := w.notifier.NotifyComment(ctx, actor.ID, actor.Username, *ev.Comment, ev.TargetID); err != nil {
			return err
		}
		return w.notifier.NotifyMentions(ctx, actor.ID, actor.Username, ev.Comment.Content, ev.Comment.PostID, ev.TargetID)

	case models.EventUserFollowed:
		actor, err := w.store.GetUserByID(ev.ActorID)
		if err != nil {
			return fmt.Errorf("load follower: %w", err)
		}
		return w.notifier.NotifyFollow(ctx, actor.ID, actor.Username, ev.TargetID)

	default:
		logg.Info("worker", "Skipping unknown event type "+ev.Type)
		return nil
	}
}

// fanOut writes the post into the author's own feed and every
// follower's feed, bounded by a semaphore.
func (w *Worker) fanOut(ctx context.Context, post models.Post) error {
	followers, err := w.store.GetFollowers(post.AuthorID)
	if err != nil {
		return fmt.Errorf("fetch followers: %w", err)
	}
	recipients := append([]string{post.AuthorID}, followers...)

	const fanoutLimit = 20
	var fanoutWG sync.WaitGroup
	semaphore := make(chan struct{}, fanoutLimit)

	for _, uid := range recipients {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			fanoutWG.Add(1)
			semaphore <- struct{}{}

			go func(u string) {
				defer fanoutWG.Done()
				defer func() { <-semaphore }()
				if err := w.store.AddToFeed(u, post); err != nil {
					logg.Error("worker", "Failed to add post to user feed", err)
				}
			}(uid)
		}
	}

	fanoutWG.Wait()
	logg.Info("worker", "Post delivered to followers (post ID anonymized)")
	return nil
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down the broker reader and the Cassandra session.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}

	logg.Info("worker", "Closing Cassandra session")
	w.store.Close()
	return nil
}
