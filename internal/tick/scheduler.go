// Package tick runs the per-minute reminder job.
//
// Each tick evaluates every owner with a reminder enabled: it converts the
// tick instant to the owner's local time, and for each channel and kind whose
// configured hour and minute match, counts the pending occurrences, sends a
// reminder and records the delivery in the ledger. The ledger claim happens
// only after a successful send, so a failed send is retried by a later tick
// on the same local day.
package tick

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/metrics"
	"github.com/phrazzld/sprout-api/internal/notify"
	"github.com/phrazzld/sprout-api/internal/platform/logger"
	"github.com/phrazzld/sprout-api/internal/store"
	"github.com/phrazzld/sprout-api/internal/task"
	"github.com/robfig/cron/v3"
)

// PreferenceSource lists owners with at least one reminder enabled.
type PreferenceSource interface {
	ListEnabled(ctx context.Context) ([]*domain.NotificationPreference, error)
}

// PendingCounter counts an owner's pending occurrences due on a date.
type PendingCounter interface {
	CountPending(ctx context.Context, ownerID uuid.UUID, due civil.Date) (int, error)
}

// Ledger is the delivery ledger.
type Ledger interface {
	Claimed(ctx context.Context, ownerID uuid.UUID, ch domain.Channel, kind domain.NotificationKind, day civil.Date) (bool, error)
	TryClaim(ctx context.Context, ownerID uuid.UUID, ch domain.Channel, kind domain.NotificationKind, day civil.Date) (bool, error)
}

// Dispatcher sends rendered reminders.
type Dispatcher interface {
	SendEmail(ctx context.Context, msg notify.EmailMessage) error
	SendPush(ctx context.Context, ownerID uuid.UUID, msg notify.PushMessage) (int, error)
}

// Config tunes the scheduler.
type Config struct {
	// Cron is the trigger expression, normally every minute.
	Cron string
	// Workers bounds concurrent owner evaluations within one tick.
	Workers int
	// DefaultTimezone applies when an owner's zone is missing or unknown.
	DefaultTimezone string
	// CatchUpMinutes is how many local minutes, starting at the configured
	// send time, a slot stays eligible. 1 means exact minute matching.
	CatchUpMinutes int
}

// Deps are the collaborators of the scheduler.
type Deps struct {
	Preferences PreferenceSource
	Occurrences PendingCounter
	Recipients  store.RecipientStore
	Ledger      Ledger
	Dispatcher  Dispatcher
	Catalog     *notify.Catalog
	Metrics     *metrics.Metrics
}

// TickReport summarizes one tick.
type TickReport struct {
	// At is the tick instant in UTC.
	At time.Time `json:"at"`
	// Owners is the number of owners evaluated.
	Owners int `json:"owners"`
	// Sent counts reminders delivered and claimed by this tick.
	Sent int `json:"sent"`
	// AlreadyClaimed counts matching slots another run had handled.
	AlreadyClaimed int `json:"already_claimed"`
	// Failed counts owners whose evaluation returned an error.
	Failed int `json:"failed"`
}

type combo struct {
	channel domain.Channel
	kind    domain.NotificationKind
}

var combos = []combo{
	{domain.ChannelEmail, domain.NotificationKindDueToday},
	{domain.ChannelEmail, domain.NotificationKindOverdue1D},
	{domain.ChannelPush, domain.NotificationKindDueToday},
	{domain.ChannelPush, domain.NotificationKindOverdue1D},
}

// Scheduler evaluates reminder preferences and delivers due reminders.
type Scheduler struct {
	deps       Deps
	cronSpec   string
	workers    int
	catchUp    int
	defaultLoc *time.Location
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewScheduler creates a Scheduler. An unloadable default zone falls back to
// the process zone.
func NewScheduler(cfg Config, deps Deps, logger *slog.Logger) *Scheduler {
	if deps.Preferences == nil || deps.Occurrences == nil || deps.Ledger == nil || deps.Dispatcher == nil {
		panic("tick scheduler dependencies cannot be nil")
	}
	if deps.Catalog == nil {
		deps.Catalog = notify.NewCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "tick_scheduler"))

	defaultLoc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil || cfg.DefaultTimezone == "" {
		logger.Warn("default timezone unavailable, using process zone",
			slog.String("timezone", cfg.DefaultTimezone),
			slog.String("fallback", time.Local.String()))
		defaultLoc = time.Local
	}

	spec := cfg.Cron
	if spec == "" {
		spec = "* * * * *"
	}

	catchUp := cfg.CatchUpMinutes
	if catchUp < 1 {
		catchUp = 1
	}

	return &Scheduler{
		deps:       deps,
		cronSpec:   spec,
		workers:    cfg.Workers,
		catchUp:    catchUp,
		defaultLoc: defaultLoc,
		logger:     logger,
	}
}

// ResolveLocation loads the named zone. A missing or unknown name yields
// fallback, or the process zone when fallback is nil. It never fails.
func ResolveLocation(name string, fallback *time.Location) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if fallback != nil {
		return fallback
	}
	return time.Local
}

// InSendWindow reports whether local falls within window minutes starting at
// hour:minute on the same local day. The window never crosses midnight.
func InSendWindow(local time.Time, hour, minute, window int) bool {
	if window < 1 {
		window = 1
	}
	offset := (local.Hour()*60 + local.Minute()) - (hour*60 + minute)
	return offset >= 0 && offset < window
}

// Start registers RunTick on the cron schedule and starts the trigger.
// Runs are allowed to overlap; the ledger keeps them from double-sending.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("tick scheduler already started")
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.cronSpec, func() {
		s.RunTick(ctx, time.Now())
	}); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", s.cronSpec, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("tick scheduler started", slog.String("cron", s.cronSpec))
	return nil
}

// Stop halts the trigger and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("tick scheduler stopped")
}

type counters struct {
	sent    atomic.Int64
	claimed atomic.Int64
	failed  atomic.Int64
}

// RunTick evaluates every enabled owner at instant now. One owner's failure
// is logged and counted; it never stops the others.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) TickReport {
	started := time.Now()
	now = now.UTC()
	log := s.logger.With(slog.Time("tick", now))
	report := TickReport{At: now}

	prefs, err := s.deps.Preferences.ListEnabled(ctx)
	if err != nil {
		log.ErrorContext(ctx, "failed to load notification preferences", slog.Any("error", err))
		s.deps.Metrics.ObserveTick(time.Since(started), 0, 0)
		return report
	}

	var c counters
	tasks := make([]task.Task, 0, len(prefs))
	for _, p := range prefs {
		pref := p
		tasks = append(tasks, task.Func{
			Name: "owner:" + pref.OwnerID.String(),
			Fn: func(ctx context.Context) error {
				return s.evaluateOwner(ctx, pref, now, &c)
			},
		})
	}

	task.RunAll(ctx, tasks, task.WorkerPoolConfig{WorkerCount: s.workers}, log, func(t task.Task, err error) {
		c.failed.Add(1)
		log.ErrorContext(ctx, "owner evaluation failed",
			slog.String("task", t.ID()),
			slog.Any("error", err))
	})

	report.Owners = len(prefs)
	report.Sent = int(c.sent.Load())
	report.AlreadyClaimed = int(c.claimed.Load())
	report.Failed = int(c.failed.Load())

	s.deps.Metrics.ObserveTick(time.Since(started), report.Owners, report.Failed)
	if report.Sent > 0 || report.Failed > 0 {
		log.InfoContext(ctx, "tick finished",
			slog.Int("owners", report.Owners),
			slog.Int("sent", report.Sent),
			slog.Int("already_claimed", report.AlreadyClaimed),
			slog.Int("failed", report.Failed))
	}
	return report
}

// evaluateOwner runs the four channel and kind combinations independently
// and joins their errors.
func (s *Scheduler) evaluateOwner(
	ctx context.Context,
	pref *domain.NotificationPreference,
	now time.Time,
	c *counters,
) error {
	loc := ResolveLocation(pref.Timezone, s.defaultLoc)
	local := now.In(loc)
	today := civil.DateOf(local)

	log := s.logger.With(
		slog.String("owner_id", pref.OwnerID.String()),
		slog.String("timezone", loc.String()),
		slog.String("local_date", today.String()))
	ctx = logger.WithLogger(ctx, log)

	var errs []error
	for _, cb := range combos {
		if !pref.Enabled(cb.channel, cb.kind) {
			continue
		}
		hour, minute := pref.SendTime(cb.channel)
		if !InSendWindow(local, hour, minute, s.catchUp) {
			continue
		}

		// Overdue looks exactly one day back; the ledger key is always today.
		due := today
		if cb.kind == domain.NotificationKindOverdue1D {
			due = today.AddDays(-1)
		}

		if err := s.deliver(ctx, pref, cb, today, due, c); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", cb.channel, cb.kind, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) deliver(
	ctx context.Context,
	pref *domain.NotificationPreference,
	cb combo,
	today, due civil.Date,
	c *counters,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("channel", string(cb.channel)),
		slog.String("kind", string(cb.kind)))
	channel, kind := string(cb.channel), string(cb.kind)

	done, err := s.deps.Ledger.Claimed(ctx, pref.OwnerID, cb.channel, cb.kind, today)
	if err != nil {
		log.WarnContext(ctx, "ledger pre-check failed, continuing", slog.Any("error", err))
	} else if done {
		c.claimed.Add(1)
		return nil
	}

	count, err := s.deps.Occurrences.CountPending(ctx, pref.OwnerID, due)
	if err != nil {
		return fmt.Errorf("failed to count pending occurrences: %w", err)
	}
	if count == 0 {
		return nil
	}

	switch cb.channel {
	case domain.ChannelEmail:
		if err := s.sendEmail(ctx, pref, cb.kind, count); err != nil {
			s.deps.Metrics.Send(channel, kind, metrics.OutcomeFailed)
			return err
		}
	case domain.ChannelPush:
		msg, err := s.deps.Catalog.Push(pref.Language, cb.kind, count)
		if err != nil {
			return err
		}
		sent, err := s.deps.Dispatcher.SendPush(ctx, pref.OwnerID, msg)
		if err != nil {
			s.deps.Metrics.Send(channel, kind, metrics.OutcomeFailed)
			return err
		}
		if sent == 0 {
			// No token accepted the message; leave the slot open.
			s.deps.Metrics.Send(channel, kind, metrics.OutcomeSkipped)
			log.DebugContext(ctx, "push reached no device")
			return nil
		}
	}
	s.deps.Metrics.Send(channel, kind, metrics.OutcomeSent)

	claimed, err := s.deps.Ledger.TryClaim(ctx, pref.OwnerID, cb.channel, cb.kind, today)
	if err != nil {
		return fmt.Errorf("reminder sent but not recorded: %w", err)
	}
	if !claimed {
		c.claimed.Add(1)
		log.InfoContext(ctx, "reminder slot claimed concurrently by another run")
		return nil
	}

	c.sent.Add(1)
	log.InfoContext(ctx, "reminder delivered", slog.Int("count", count))
	return nil
}

func (s *Scheduler) sendEmail(
	ctx context.Context,
	pref *domain.NotificationPreference,
	kind domain.NotificationKind,
	count int,
) error {
	if s.deps.Recipients == nil {
		return fmt.Errorf("email: %w", notify.ErrChannelUnavailable)
	}

	recipient, err := s.deps.Recipients.GetRecipient(ctx, pref.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if pref.Language != "" {
		recipient.Language = pref.Language
	}

	msg, err := s.deps.Catalog.Email(recipient, kind, count)
	if err != nil {
		return err
	}
	return s.deps.Dispatcher.SendEmail(ctx, msg)
}
