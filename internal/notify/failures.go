package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxAttempts bounds how often one welcome mail is tried.
const MaxAttempts = 5

// DefaultFailureKey is the Redis list holding failed welcome mail.
const DefaultFailureKey = "studyshare:notify:welcome:failed"

// FailedJob is a failed dispatch kept for a later attempt.
type FailedJob struct {
	Job      Job       `json:"job"`
	Reason   Reason    `json:"reason"`
	Error    string    `json:"error,omitempty"`
	FailedAt time.Time `json:"failed_at"`
}

// FailureStore keeps failed jobs for background requeue.
type FailureStore interface {
	Record(ctx context.Context, failed FailedJob) error
	// Pop removes the oldest failure; it returns nil when none remain.
	Pop(ctx context.Context) (*FailedJob, error)
	Len(ctx context.Context) (int64, error)
}

// RedisFailureStore is a FIFO list in Redis.
type RedisFailureStore struct {
	client *redis.Client
	key    string
}

// NewRedisFailureStore builds a store on key; an empty key uses DefaultFailureKey.
func NewRedisFailureStore(client *redis.Client, key string) *RedisFailureStore {
	if key == "" {
		key = DefaultFailureKey
	}
	return &RedisFailureStore{client: client, key: key}
}

func (s *RedisFailureStore) Record(ctx context.Context, failed FailedJob) error {
	payload, err := json.Marshal(failed)
	if err != nil {
		return err
	}
	return s.client.LPush(ctx, s.key, payload).Err()
}

func (s *RedisFailureStore) Pop(ctx context.Context) (*FailedJob, error) {
	raw, err := s.client.RPop(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var failed FailedJob
	if err := json.Unmarshal(raw, &failed); err != nil {
		return nil, err
	}
	return &failed, nil
}

func (s *RedisFailureStore) Len(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.key).Result()
}

// Requeue moves up to limit recorded failures back onto the dispatcher queue.
// It stops early when the queue refuses a job; the dispatcher records the
// refused job again with its attempt count unchanged.
func Requeue(ctx context.Context, store FailureStore, d *Dispatcher, limit int) (int, error) {
	requeued := 0
	for requeued < limit {
		if err := ctx.Err(); err != nil {
			return requeued, err
		}
		failed, err := store.Pop(ctx)
		if err != nil {
			return requeued, err
		}
		if failed == nil {
			return requeued, nil
		}

		if _, ok := d.enqueue(failed.Job); !ok {
			return requeued, nil
		}
		requeued++
	}
	return requeued, nil
}
