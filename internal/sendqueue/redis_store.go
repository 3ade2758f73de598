package sendqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client sendqueue depends on, so a
// caller can hand in either a *redis.Client or a *redis.ClusterClient.
type RedisClient interface {
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// redisStore implements the sendqueue store interface over a real Redis
// connection. A sorted set named "sendqueue:<queue>:ready" holds job ids
// scored by their next-eligible timestamp; the job payload itself lives in a
// string key "sendqueue:<queue>:job:<id>"; completed/dead-lettered ids are
// pushed onto the capped lists "sendqueue:<queue>:completed" and
// "sendqueue:<queue>:deadletter" for operator inspection (§4.9 retention
// bounds).
type redisStore struct {
	client RedisClient
}

func readyKey(queue string) string      { return fmt.Sprintf("sendqueue:%s:ready", queue) }
func jobKey(queue, id string) string    { return fmt.Sprintf("sendqueue:%s:job:%s", queue, id) }
func completedKey(queue string) string  { return fmt.Sprintf("sendqueue:%s:completed", queue) }
func deadLetterKey(queue string) string { return fmt.Sprintf("sendqueue:%s:deadletter", queue) }

func (s *redisStore) enqueue(ctx context.Context, queueName string, readyAt time.Time, jobID string, data []byte) error {
	if err := s.client.Set(ctx, jobKey(queueName, jobID), data, 0).Err(); err != nil {
		return fmt.Errorf("sendqueue: store job: %w", err)
	}
	if err := s.client.ZAdd(ctx, readyKey(queueName), redis.Z{Score: float64(readyAt.UnixMilli()), Member: jobID}).Err(); err != nil {
		return fmt.Errorf("sendqueue: schedule job: %w", err)
	}
	return nil
}

func (s *redisStore) dequeueReady(ctx context.Context, queueName string, now time.Time, limit int) ([]Job, error) {
	ids, err := s.client.ZRangeByScore(ctx, readyKey(queueName), &redis.ZRangeBy{
		Min:    "0",
		Max:    fmt.Sprintf("%d", now.UnixMilli()),
		Offset: 0,
		Count:  int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("sendqueue: scan ready: %w", err)
	}

	jobs := make([]Job, 0, len(ids))
	for _, id := range ids {
		// Claim the slot before executing so a crashed worker doesn't strand
		// the job forever at the front of the ready window.
		if err := s.client.ZRem(ctx, readyKey(queueName), id).Err(); err != nil {
			continue
		}
		raw, err := s.client.Get(ctx, jobKey(queueName, id)).Result()
		if err != nil {
			continue
		}
		job, err := decodeJob([]byte(raw))
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *redisStore) reschedule(ctx context.Context, queueName string, readyAt time.Time, jobID string, data []byte) error {
	return s.enqueue(ctx, queueName, readyAt, jobID, data)
}

func (s *redisStore) remove(ctx context.Context, queueName string, jobID string) error {
	if err := s.client.ZRem(ctx, readyKey(queueName), jobID).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, jobKey(queueName, jobID)).Err()
}

func (s *redisStore) recordCompleted(ctx context.Context, queueName, jobID string) error {
	if err := s.remove(ctx, queueName, jobID); err != nil {
		return err
	}
	if err := s.client.LPush(ctx, completedKey(queueName), jobID).Err(); err != nil {
		return err
	}
	return s.client.LTrim(ctx, completedKey(queueName), 0, retainCompleted-1).Err()
}

func (s *redisStore) recordDeadLetter(ctx context.Context, queueName, jobID string) error {
	if err := s.remove(ctx, queueName, jobID); err != nil {
		return err
	}
	if err := s.client.LPush(ctx, deadLetterKey(queueName), jobID).Err(); err != nil {
		return err
	}
	return s.client.LTrim(ctx, deadLetterKey(queueName), 0, retainFailed-1).Err()
}
