package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// mockSessionPurger はSessionPurgerのモック実装。
type mockSessionPurger struct {
	deleteExpiredFunc func(ctx context.Context) (int64, error)
	calls             int
}

func (m *mockSessionPurger) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls++
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx)
	}
	return 0, nil
}

// mockMetrics はMetricsのモック実装。
type mockMetrics struct {
	purged int64
}

func (m *mockMetrics) RecordSessionsPurged(count int64) {
	m.purged += count
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestCleanupJob_Run_DeletesAndRecords(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockSessionPurger{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 7, nil
		},
	}
	metrics := &mockMetrics{}
	job := NewCleanupJob(purger, metrics, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if metrics.purged != 7 {
		t.Errorf("recorded purged = %d, want 7", metrics.purged)
	}
	if !strings.Contains(buf.String(), "deleted_count") {
		t.Error("expected deleted_count in log output")
	}
}

func TestCleanupJob_Run_NothingToDelete_Succeeds(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockSessionPurger{}
	job := NewCleanupJob(purger, &mockMetrics{}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() with no expired sessions should succeed, got %v", err)
	}
}

func TestCleanupJob_Run_RepositoryError_Fails(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockSessionPurger{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	job := NewCleanupJob(purger, &mockMetrics{}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when repository fails")
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockSessionPurger{}
	job := NewCleanupJob(purger, &mockMetrics{}, newTestLogger(&buf))
	job.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	// 起動直後の1回目の実行を待つ
	deadline := time.After(time.Second)
	for purger.calls == 0 {
		select {
		case <-deadline:
			t.Fatal("Start should run the job immediately")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return after context cancellation")
	}
}
