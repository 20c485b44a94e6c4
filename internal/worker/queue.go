package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when the timeout elapses without a job.
var ErrEmpty = errors.New("queue: empty")

// Queue is a set of named FIFO lists.
type Queue interface {
	Push(ctx context.Context, name string, data []byte) error
	// Pop blocks up to timeout for the first non-empty list among names.
	Pop(ctx context.Context, timeout time.Duration, names ...string) (string, []byte, error)
	Len(ctx context.Context, name string) (int64, error)
}

// RedisQueue uses LPUSH/BRPOP, so idle workers cost nothing.
type RedisQueue struct{ rdb *redis.Client }

func NewRedisQueue(rdb *redis.Client) *RedisQueue { return &RedisQueue{rdb: rdb} }

func (q *RedisQueue) Push(ctx context.Context, name string, data []byte) error {
	return q.rdb.LPush(ctx, name, data).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration, names ...string) (string, []byte, error) {
	res, err := q.rdb.BRPop(ctx, timeout, names...).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, ErrEmpty
	}
	if err != nil {
		return "", nil, err
	}
	if len(res) < 2 {
		return "", nil, ErrEmpty
	}
	return res[0], []byte(res[1]), nil
}

func (q *RedisQueue) Len(ctx context.Context, name string) (int64, error) {
	return q.rdb.LLen(ctx, name).Result()
}

// MemoryQueue is the single-process fallback used when REDIS_URL is empty.
// Jobs do not survive a restart.
type MemoryQueue struct {
	mu    sync.Mutex
	lists map[string][][]byte
	wake  chan struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{lists: make(map[string][][]byte), wake: make(chan struct{})}
}

func (q *MemoryQueue) Push(_ context.Context, name string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[name] = append(q.lists[name], data)
	close(q.wake)
	q.wake = make(chan struct{})
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration, names ...string) (string, []byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		q.mu.Lock()
		for _, name := range names {
			if l := q.lists[name]; len(l) > 0 {
				data := l[0]
				q.lists[name] = l[1:]
				q.mu.Unlock()
				return name, data, nil
			}
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-timer.C:
			return "", nil, ErrEmpty
		case <-wake:
		}
	}
}

func (q *MemoryQueue) Len(_ context.Context, name string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.lists[name])), nil
}
