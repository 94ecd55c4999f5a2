package digest

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Clock abstracts time so tests can drive the schedule directly.
type Clock func() time.Time

// Scheduler decides when the daily digest is due. The schedule comes
// from a HH:MM wall-clock time, parsed into a cron expression. Due
// checks are pull based: the caller asks at its own cadence and the
// scheduler compares the next activation against the injected clock.
// When more than one activation was missed, exactly one catch-up flush
// covers the whole elapsed window.
type Scheduler struct {
	schedule cron.Schedule
	clock    Clock

	mu      sync.Mutex
	lastRun time.Time
	nextRun time.Time
}

// NewScheduler parses dailyTime ("09:00") into a daily cron schedule.
// The first activation is the next occurrence after the clock's
// current time.
func NewScheduler(dailyTime string, clock Clock) (*Scheduler, error) {
	if clock == nil {
		clock = time.Now
	}

	var hour, minute int
	if _, err := fmt.Sscanf(dailyTime, "%d:%d", &hour, &minute); err != nil {
		return nil, fmt.Errorf("invalid digest time %q: %w", dailyTime, err)
	}

	schedule, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return nil, fmt.Errorf("invalid digest schedule: %w", err)
	}

	now := clock()
	return &Scheduler{
		schedule: schedule,
		clock:    clock,
		lastRun:  now,
		nextRun:  schedule.Next(now),
	}, nil
}

// Due reports whether a digest flush is owed at the clock's current
// time and, if so, advances the schedule past now. Multiple missed
// activations collapse into a single true result, so downtime yields
// one catch-up digest over the whole gap rather than a burst.
func (s *Scheduler) Due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if now.Before(s.nextRun) {
		return false
	}

	missed := 0
	for !now.Before(s.nextRun) {
		s.nextRun = s.schedule.Next(s.nextRun)
		missed++
	}
	if missed > 1 {
		slog.Info("Digest catching up after downtime", "missed_activations", missed, "last_run", s.lastRun.Format(time.RFC3339))
	}
	s.lastRun = now

	return true
}

// NextRun reports the next scheduled activation.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextRun
}
