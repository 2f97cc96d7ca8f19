package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDaily struct {
	mu          sync.Mutex
	calls       int
	err         error
	hadDeadline bool
	ran         chan struct{}
}

func newFakeDaily(err error) *fakeDaily {
	return &fakeDaily{err: err, ran: make(chan struct{}, 8)}
}

func (f *fakeDaily) ArchiveYesterday(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	_, f.hadDeadline = ctx.Deadline()
	f.mu.Unlock()
	f.ran <- struct{}{}
	return f.err
}

type logRecord struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (r *recordingLogger) add(level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, logRecord{level: level, msg: msg, args: args})
}

func (r *recordingLogger) errors() []logRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []logRecord
	for _, rec := range r.records {
		if rec.level == "error" {
			out = append(out, rec)
		}
	}
	return out
}

func (r *recordingLogger) Debug(_ context.Context, msg string, args ...any) { r.add("debug", msg, args) }
func (r *recordingLogger) Info(_ context.Context, msg string, args ...any)  { r.add("info", msg, args) }
func (r *recordingLogger) Warn(_ context.Context, msg string, args ...any)  { r.add("warn", msg, args) }
func (r *recordingLogger) Error(_ context.Context, msg string, args ...any) { r.add("error", msg, args) }
func (r *recordingLogger) With(...any) logging.Logger                       { return r }

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	daily := newFakeDaily(nil)
	s := NewScheduler("not a cron spec", daily, nopLogger{})

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"not a cron spec"`)
	assert.Zero(t, daily.calls)
}

func TestScheduler_JobRunsArchiverWithTimeout(t *testing.T) {
	daily := newFakeDaily(nil)
	log := &recordingLogger{}
	s := NewScheduler("@daily", daily, log)

	s.job()

	assert.Equal(t, 1, daily.calls)
	assert.True(t, daily.hadDeadline, "the job bounds each run")
	assert.Empty(t, log.errors())
}

func TestScheduler_JobLogsFailure(t *testing.T) {
	daily := newFakeDaily(errors.New("bucket gone"))
	log := &recordingLogger{}
	s := NewScheduler("@daily", daily, log)

	require.NotPanics(t, s.job)

	errs := log.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "history archive failed", errs[0].msg)
	assert.Contains(t, errs[0].args, "bucket gone")
}

func TestScheduler_RunsOnScheduleUntilStopped(t *testing.T) {
	daily := newFakeDaily(nil)
	s := NewScheduler("@every 1s", daily, nopLogger{})
	require.NoError(t, s.Start())

	select {
	case <-daily.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
