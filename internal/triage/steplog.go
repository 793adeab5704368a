package triage

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StepLog records completed pipeline steps per run so a re-invoked run
// resumes after its last committed step instead of re-executing it.
type StepLog interface {
	Completed(ctx context.Context, runID, step string) (bool, error)
	MarkCompleted(ctx context.Context, runID, step string) error
}

// RedisStepLog stores completed-step markers in a Redis hash per run id,
// expiring after the configured TTL.
type RedisStepLog struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStepLog builds the step log.
func NewRedisStepLog(client *redis.Client, ttl time.Duration) *RedisStepLog {
	return &RedisStepLog{client: client, ttl: ttl}
}

func stepLogKey(runID string) string {
	return "triage:steps:" + runID
}

// Completed reports whether the step already committed for this run.
func (l *RedisStepLog) Completed(ctx context.Context, runID, step string) (bool, error) {
	return l.client.HExists(ctx, stepLogKey(runID), step).Result()
}

// MarkCompleted records the step and refreshes the run's expiry.
func (l *RedisStepLog) MarkCompleted(ctx context.Context, runID, step string) error {
	key := stepLogKey(runID)
	if err := l.client.HSet(ctx, key, step, time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return err
	}
	return l.client.Expire(ctx, key, l.ttl).Err()
}

// MemoryStepLog is an in-process step log for tests and broker-less dev mode.
type MemoryStepLog struct {
	mu   sync.Mutex
	runs map[string]map[string]struct{}
}

// NewMemoryStepLog builds an empty in-memory log.
func NewMemoryStepLog() *MemoryStepLog {
	return &MemoryStepLog{runs: make(map[string]map[string]struct{})}
}

// Completed reports whether the step already committed for this run.
func (l *MemoryStepLog) Completed(_ context.Context, runID, step string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	steps, ok := l.runs[runID]
	if !ok {
		return false, nil
	}
	_, done := steps[step]
	return done, nil
}

// MarkCompleted records the step.
func (l *MemoryStepLog) MarkCompleted(_ context.Context, runID, step string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.runs[runID] == nil {
		l.runs[runID] = make(map[string]struct{})
	}
	l.runs[runID][step] = struct{}{}
	return nil
}
