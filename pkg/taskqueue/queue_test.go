package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pll.link/models"
	"pll.link/pkg/testdb"

	"gorm.io/gorm"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time         { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQueue(t *testing.T, maxAttempts int) (*Queue, *gorm.DB, *clock) {
	t.Helper()
	db := testdb.Open(t)
	q := New(db, Config{MaxAttempts: maxAttempts, Backoff: time.Second})
	c := &clock{t: time.Now()}
	q.now = c.now
	return q, db, c
}

func loadTask(t *testing.T, db *gorm.DB) models.Task {
	t.Helper()
	var task models.Task
	if err := db.First(&task).Error; err != nil {
		t.Fatalf("task: %v", err)
	}
	return task
}

func TestQueue_RunsAndDeletesTask(t *testing.T) {
	q, db, _ := newTestQueue(t, 3)
	ctx := context.Background()

	var got struct{ RecordID uint `json:"record_id"` }
	q.Register("test.ok", func(_ context.Context, payload []byte) error {
		return json.Unmarshal(payload, &got)
	})
	if err := q.Enqueue(ctx, nil, "test.ok", map[string]uint{"record_id": 42}); err != nil {
		t.Fatal(err)
	}

	if err := q.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if got.RecordID != 42 {
		t.Errorf("payload = %+v", got)
	}
	if n, _ := q.Pending(ctx, ""); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	var count int64
	db.Model(&models.Task{}).Count(&count)
	if count != 0 {
		t.Errorf("tasks left = %d", count)
	}
}

func TestQueue_RetriesWithBackoffUntilMaxAttempts(t *testing.T) {
	q, db, c := newTestQueue(t, 3)
	ctx := context.Background()

	var calls int32
	q.Register("test.fail", func(context.Context, []byte) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("downstream unavailable")
	})
	if err := q.Enqueue(ctx, nil, "test.fail", struct{}{}); err != nil {
		t.Fatal(err)
	}

	if n, err := q.RunOnce(ctx); err != nil || n != 1 {
		t.Fatalf("RunOnce = (%d, %v)", n, err)
	}
	task := loadTask(t, db)
	if task.Attempts != 1 || !strings.Contains(task.LastError, "downstream") || task.LockedUntil != nil {
		t.Fatalf("task after failure = %+v", task)
	}

	// Backoff dolmadan görev alınmaz.
	if n, _ := q.RunOnce(ctx); n != 0 {
		t.Fatalf("task claimed before its backoff elapsed")
	}

	c.advance(time.Second)
	q.RunOnce(ctx)
	c.advance(2 * time.Second)
	q.RunOnce(ctx)
	c.advance(time.Hour)
	if n, _ := q.RunOnce(ctx); n != 0 {
		t.Errorf("task claimed after reaching max attempts")
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
	if task := loadTask(t, db); task.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", task.Attempts)
	}
}

func TestQueue_PanicAndUnknownKindAreFailures(t *testing.T) {
	q, db, _ := newTestQueue(t, 5)
	ctx := context.Background()
	q.Register("test.panic", func(context.Context, []byte) error { panic("kaboom") })

	if err := q.Enqueue(ctx, nil, "test.panic", struct{}{}); err != nil {
		t.Fatal(err)
	}
	q.RunOnce(ctx)
	if task := loadTask(t, db); task.Attempts != 1 || !strings.Contains(task.LastError, "kaboom") {
		t.Errorf("panicking task = %+v", task)
	}
	db.Where("1 = 1").Delete(&models.Task{})

	if err := q.Enqueue(ctx, nil, "test.unknown", struct{}{}); err != nil {
		t.Fatal(err)
	}
	q.RunOnce(ctx)
	if task := loadTask(t, db); task.Attempts != 1 || !strings.Contains(task.LastError, ErrUnknownKind.Error()) {
		t.Errorf("unknown-kind task = %+v", task)
	}
}

func TestQueue_EnqueueFollowsCallerTransaction(t *testing.T) {
	q, db, _ := newTestQueue(t, 3)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		if err := q.Enqueue(ctx, tx, "test.rollback", struct{}{}); err != nil {
			t.Fatal(err)
		}
		return errors.New("rollback")
	})
	if n, _ := q.Pending(ctx, "test.rollback"); n != 0 {
		t.Errorf("task from rolled back transaction survived")
	}

	_ = db.Transaction(func(tx *gorm.DB) error {
		return q.Enqueue(ctx, tx, "test.commit", struct{}{})
	})
	if n, _ := q.Pending(ctx, "test.commit"); n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
}

func TestQueue_StartStopsOnCancel(t *testing.T) {
	q, _, _ := newTestQueue(t, 3)
	q.cfg.PollInterval = 10 * time.Millisecond
	q.cfg.Concurrency = 1
	q.now = time.Now

	done := make(chan struct{}, 1)
	q.Register("test.signal", func(context.Context, []byte) error {
		done <- struct{}{}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		q.Start(ctx)
		close(stopped)
	}()

	if err := q.Enqueue(context.Background(), nil, "test.signal", struct{}{}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not process the task")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
