package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner is the scheduler's view of the monitor.
type Runner interface {
	RunCheck(ctx context.Context, scheduled bool) (Summary, error)
}

// ClockTime is a wall-clock slot for guaranteed daily runs.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// ParseClockTimes parses a list of "HH:MM" slots, rejecting the whole list on
// the first bad entry.
func ParseClockTimes(values []string) ([]ClockTime, error) {
	slots := make([]ClockTime, 0, len(values))
	for _, v := range values {
		ct, err := ParseClockTime(v)
		if err != nil {
			return nil, err
		}
		slots = append(slots, ct)
	}
	return slots, nil
}

// NextOccurrence returns the first instant after `after` at which the slot
// fires. With weekdaysOnly, Saturday and Sunday are skipped.
func NextOccurrence(slot ClockTime, after time.Time, weekdaysOnly bool) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), slot.Hour, slot.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	if weekdaysOnly {
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}

// Scheduler triggers monitoring passes on a fixed interval (continuous runs)
// and at fixed wall-clock slots (scheduled/guaranteed runs). A failing or
// dropped pass never unschedules future triggers.
type Scheduler struct {
	monitor      Runner
	interval     time.Duration
	slots        []ClockTime
	weekdaysOnly bool
	loc          *time.Location
	logger       *zap.Logger
}

func NewScheduler(monitor Runner, interval time.Duration, slots []ClockTime, loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		monitor:      monitor,
		interval:     interval,
		slots:        slots,
		weekdaysOnly: true,
		loc:          loc,
		logger:       logger.Named("scheduler"),
	}
}

// Start launches the trigger loops. Blocks until ctx is cancelled; intended
// to be called with `go`.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 && len(s.slots) == 0 {
		s.logger.Warn("no schedules configured, scheduler idle")
		return
	}

	if s.interval > 0 {
		go s.runInterval(ctx)
	}
	if len(s.slots) > 0 {
		go s.runClock(ctx)
	}

	slotNames := make([]string, len(s.slots))
	for i, slot := range s.slots {
		slotNames[i] = slot.String()
	}
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Strings("slots", slotNames))

	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runInterval(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.fire(ctx, false)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runClock(ctx context.Context) {
	for {
		now := time.Now().In(s.loc)
		next := NextOccurrence(s.slots[0], now, s.weekdaysOnly)
		for _, slot := range s.slots[1:] {
			if candidate := NextOccurrence(slot, now, s.weekdaysOnly); candidate.Before(next) {
				next = candidate
			}
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.fire(ctx, true)
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, scheduled bool) {
	summary, err := s.monitor.RunCheck(ctx, scheduled)
	switch {
	case errors.Is(err, ErrCheckInProgress):
		s.logger.Warn("trigger dropped, pass already running", zap.Bool("scheduled", scheduled))
	case err != nil:
		s.logger.Error("pass failed", zap.Bool("scheduled", scheduled), zap.Error(err))
	default:
		s.logger.Info("pass triggered",
			zap.Bool("scheduled", scheduled),
			zap.Int("sent", summary.Sent),
			zap.Int("errors", summary.Errors))
	}
}
