package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cjfitness/notifier/internal/adapters/metrics"
	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/utils/location"
	"github.com/cjfitness/notifier/pkg/logger/types"
)

const (
	TaskReminders        = "reminders"
	TaskCheckInBroadcast = "checkin-broadcast"

	DefaultRemindersSpec = "* * * * *"
	DefaultBroadcastSpec = "0 9 * * 1"
)

type engine interface {
	Tick(ctx context.Context) dto.TickReport
	WeeklyBroadcast(ctx context.Context, occurrence time.Time) dto.BroadcastReport
}

type Options struct {
	RemindersSpec string
	BroadcastSpec string
	// Location the cron expressions are evaluated in. Defaults to the
	// service location.
	Location *time.Location

	// TickTimeout bounds one reminder sweep, BroadcastTimeout one broadcast.
	TickTimeout      time.Duration
	BroadcastTimeout time.Duration

	// CatchUpWindow is how late a missed broadcast may still be sent when the
	// scheduler starts. Zero disables catch-up.
	CatchUpWindow time.Duration
}

// Scheduler runs the reminder sweep and the check-in broadcast on their cron
// schedules. Reminder sweeps may overlap; the broadcast never does.
type Scheduler struct {
	engine engine
	opts   Options
	logger *types.Logger

	cron      *cron.Cron
	broadcast cron.Schedule
	entries   map[string]cron.EntryID

	mu  sync.RWMutex
	ctx context.Context

	now func() time.Time
}

func New(engine engine, opts Options, logger *types.Logger) (*Scheduler, error) {
	if opts.RemindersSpec == "" {
		opts.RemindersSpec = DefaultRemindersSpec
	}
	if opts.BroadcastSpec == "" {
		opts.BroadcastSpec = DefaultBroadcastSpec
	}
	if opts.Location == nil {
		opts.Location = location.Location()
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = 50 * time.Second
	}
	if opts.BroadcastTimeout <= 0 {
		opts.BroadcastTimeout = 10 * time.Minute
	}

	reminders, err := cron.ParseStandard(opts.RemindersSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", errorz.ErrInvalidSchedule, TaskReminders, opts.RemindersSpec, err)
	}
	broadcast, err := cron.ParseStandard(opts.BroadcastSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", errorz.ErrInvalidSchedule, TaskCheckInBroadcast, opts.BroadcastSpec, err)
	}

	cronLog := cronLogger{logger: logger}
	s := &Scheduler{
		engine:    engine,
		opts:      opts,
		logger:    logger,
		broadcast: broadcast,
		entries:   make(map[string]cron.EntryID, 2),
		ctx:       context.Background(),
		now:       time.Now,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
	}

	s.entries[TaskReminders] = s.cron.Schedule(reminders, cron.FuncJob(s.runReminders))
	s.entries[TaskCheckInBroadcast] = s.cron.Schedule(broadcast,
		cron.NewChain(cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(s.runBroadcast)),
	)

	return s, nil
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Infof("Starting scheduler (reminders=%q, broadcast=%q, location=%s)",
		s.opts.RemindersSpec, s.opts.BroadcastSpec, s.opts.Location)

	s.catchUp()
	s.cron.Start()

	<-ctx.Done()

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(5 * time.Second):
		s.logger.Warn("scheduler stopped with tasks still running")
	}
	return ctx.Err()
}

func (s *Scheduler) String() string {
	return "scheduler"
}

// NextRun returns the next planned run of the named task.
func (s *Scheduler) NextRun(task string) (time.Time, bool) {
	id, ok := s.entries[task]
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		// not started yet
		return entry.Schedule.Next(s.now().In(s.opts.Location)), true
	}
	return entry.Next, true
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(s.baseContext(), s.opts.TickTimeout)
	defer cancel()

	start := time.Now()
	s.engine.Tick(ctx)
	metrics.TickDuration.WithLabelValues(TaskReminders).Observe(time.Since(start).Seconds())
}

func (s *Scheduler) runBroadcast() {
	now := s.now().In(s.opts.Location)
	occurrence, ok := lastOccurrence(s.broadcast, now, time.Hour)
	if !ok {
		occurrence = now.Truncate(time.Minute)
	}
	s.broadcastAt(occurrence)
}

func (s *Scheduler) broadcastAt(occurrence time.Time) {
	ctx, cancel := context.WithTimeout(s.baseContext(), s.opts.BroadcastTimeout)
	defer cancel()

	start := time.Now()
	s.engine.WeeklyBroadcast(ctx, occurrence)
	metrics.TickDuration.WithLabelValues(TaskCheckInBroadcast).Observe(time.Since(start).Seconds())
}

// catchUp sends the most recent broadcast occurrence if it was missed while
// the process was down and is not older than CatchUpWindow. The engine's
// occurrence marker drops it when it already ran.
func (s *Scheduler) catchUp() {
	if s.opts.CatchUpWindow <= 0 {
		return
	}
	occurrence, ok := lastOccurrence(s.broadcast, s.now().In(s.opts.Location), s.opts.CatchUpWindow)
	if !ok {
		return
	}

	s.logger.Infof("Catching up check-in broadcast scheduled at %s", occurrence.Format(time.RFC3339))
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorf("check-in catch-up panicked: %v", r)
			}
		}()
		s.broadcastAt(occurrence)
	}()
}

// lastOccurrence returns the latest activation of schedule in (now-within, now].
func lastOccurrence(schedule cron.Schedule, now time.Time, within time.Duration) (time.Time, bool) {
	var (
		last  time.Time
		found bool
	)
	for t := schedule.Next(now.Add(-within)); !t.IsZero() && !t.After(now); t = schedule.Next(t) {
		last, found = t, true
	}
	return last, found
}

type cronLogger struct {
	logger *types.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
