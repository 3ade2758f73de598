package sendqueue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory stand-in for redisStore, exercising the same
// store interface so queue.go's scheduling/backoff/dead-letter logic can be
// tested without a live Redis instance.
type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string][]byte
	readyAt   map[string]time.Time
	completed []string
	deadLetter []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string][]byte{}, readyAt: map[string]time.Time{}}
}

func (f *fakeStore) enqueue(_ context.Context, _ string, readyAt time.Time, jobID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[jobID] = data
	f.readyAt[jobID] = readyAt
	return nil
}

func (f *fakeStore) dequeueReady(_ context.Context, _ string, now time.Time, limit int) ([]Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Job
	for id, at := range f.readyAt {
		if len(out) >= limit {
			break
		}
		if at.After(now) {
			continue
		}
		job, err := decodeJob(f.jobs[id])
		if err != nil {
			continue
		}
		delete(f.readyAt, id)
		out = append(out, job)
	}
	return out, nil
}

func (f *fakeStore) reschedule(ctx context.Context, queueName string, readyAt time.Time, jobID string, data []byte) error {
	return f.enqueue(ctx, queueName, readyAt, jobID, data)
}

func (f *fakeStore) remove(_ context.Context, _ string, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, jobID)
	delete(f.readyAt, jobID)
	return nil
}

func (f *fakeStore) recordCompleted(ctx context.Context, queueName, jobID string) error {
	if err := f.remove(ctx, queueName, jobID); err != nil {
		return err
	}
	f.mu.Lock()
	f.completed = append(f.completed, jobID)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) recordDeadLetter(ctx context.Context, queueName, jobID string) error {
	if err := f.remove(ctx, queueName, jobID); err != nil {
		return err
	}
	f.mu.Lock()
	f.deadLetter = append(f.deadLetter, jobID)
	f.mu.Unlock()
	return nil
}

func newTestQueue(fs *fakeStore) *Queue {
	return &Queue{store: fs, workers: 1}
}

func TestEnqueue_DequeueReady_RoundTrips(t *testing.T) {
	fs := newFakeStore()
	q := newTestQueue(fs)

	if err := q.Enqueue(context.Background(), "outbound", "send_message", map[string]string{"hello": "world"}, Options{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	jobs, err := fs.dequeueReady(context.Background(), "outbound", time.Now(), 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 ready job, got %d", len(jobs))
	}
	if jobs[0].MaxAttempts != DefaultAttempts {
		t.Fatalf("expected default attempts %d, got %d", DefaultAttempts, jobs[0].MaxAttempts)
	}
	var payload map[string]string
	if err := json.Unmarshal(jobs[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["hello"] != "world" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestExecute_SuccessRecordsCompleted(t *testing.T) {
	fs := newFakeStore()
	q := newTestQueue(fs)
	job := Job{ID: "j1", Queue: "outbound", MaxAttempts: 3, Backoff: time.Millisecond}

	q.execute(context.Background(), job, func(ctx context.Context, job Job) error { return nil })

	if len(fs.completed) != 1 || fs.completed[0] != "j1" {
		t.Fatalf("expected job j1 recorded completed, got %+v", fs.completed)
	}
}

func TestExecute_FailureReschedulesWithBackoff(t *testing.T) {
	fs := newFakeStore()
	q := newTestQueue(fs)
	job := Job{ID: "j2", Queue: "outbound", Attempt: 0, MaxAttempts: 3, Backoff: time.Second}

	before := time.Now()
	q.execute(context.Background(), job, func(ctx context.Context, job Job) error { return errTransient })

	at, ok := fs.readyAt["j2"]
	if !ok {
		t.Fatal("expected job rescheduled, not found")
	}
	if !at.After(before) {
		t.Fatalf("expected rescheduled time in the future, got %v (before=%v)", at, before)
	}
	if len(fs.deadLetter) != 0 {
		t.Fatalf("job should not be dead-lettered yet, got %+v", fs.deadLetter)
	}
}

func TestExecute_ExhaustedAttemptsDeadLetters(t *testing.T) {
	fs := newFakeStore()
	q := newTestQueue(fs)
	job := Job{ID: "j3", Queue: "outbound", Attempt: 2, MaxAttempts: 3, Backoff: time.Millisecond}

	q.execute(context.Background(), job, func(ctx context.Context, job Job) error { return errTransient })

	if len(fs.deadLetter) != 1 || fs.deadLetter[0] != "j3" {
		t.Fatalf("expected job j3 dead-lettered, got %+v", fs.deadLetter)
	}
	if _, ready := fs.readyAt["j3"]; ready {
		t.Fatal("dead-lettered job should not remain scheduled")
	}
}

var errTransient = &transientError{}

type transientError struct{}

func (*transientError) Error() string { return "transient failure" }
