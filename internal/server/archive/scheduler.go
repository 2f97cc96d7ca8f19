package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct {
	l logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(context.Background(), msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(context.Background(), msg, append(keysAndValues, "error", err.Error())...)
}

type dailyArchiver interface {
	ArchiveYesterday(ctx context.Context) error
}

// Scheduler runs the archiver on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	archiver dailyArchiver
	spec     string
	timeout  time.Duration
	logger   logging.Logger
}

func NewScheduler(spec string, a dailyArchiver, l logging.Logger) *Scheduler {
	logger := l.With("module", "archive_scheduler")
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)
	return &Scheduler{
		cron:     c,
		archiver: a,
		spec:     spec,
		timeout:  10 * time.Minute,
		logger:   logger,
	}
}

func (s *Scheduler) job() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.archiver.ArchiveYesterday(ctx); err != nil {
		s.logger.Error(ctx, "history archive failed", "error", err.Error())
	}
}

// Start registers the archive job and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.job); err != nil {
		return fmt.Errorf("schedule archive job %q: %w", s.spec, err)
	}
	s.logger.Info(context.Background(), "Scheduled history archive", "schedule", s.spec)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done once a running job
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
