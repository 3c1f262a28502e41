package scan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Scheduler triggers pipeline cycles on a fixed interval, skipping runs
// that fall inside a configured quiet window.
type Scheduler struct {
	interval   time.Duration
	quietStart int // minutes since midnight, -1 disables
	quietEnd   int
	logger     *zap.Logger
	nowFunc    func() time.Time
}

// NewScheduler creates a scheduler from the scan configuration. Quiet hours
// are optional; both bounds must be set (or neither).
func NewScheduler(cfg Config, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		interval:   cfg.Interval,
		quietStart: -1,
		quietEnd:   -1,
		logger:     logger,
		nowFunc:    time.Now,
	}
	if s.interval <= 0 {
		s.interval = 5 * time.Minute
	}

	if (cfg.QuietStart == "") != (cfg.QuietEnd == "") {
		return nil, fmt.Errorf("quiet hours require both quiet_start and quiet_end")
	}
	if cfg.QuietStart != "" {
		start, err := parseHHMM(cfg.QuietStart)
		if err != nil {
			return nil, fmt.Errorf("quiet_start: %w", err)
		}
		end, err := parseHHMM(cfg.QuietEnd)
		if err != nil {
			return nil, fmt.Errorf("quiet_end: %w", err)
		}
		s.quietStart = start
		s.quietEnd = end
	}

	return s, nil
}

// Run invokes fn immediately and then on every interval tick until the
// context is cancelled. Ticks inside the quiet window are skipped.
func (s *Scheduler) Run(ctx context.Context, fn func(ctx context.Context)) {
	s.tick(ctx, fn)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, fn)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, fn func(ctx context.Context)) {
	if s.inQuietHours(s.nowFunc()) {
		s.logger.Debug("skipping cycle during quiet hours")
		return
	}
	fn(ctx)
}

// inQuietHours reports whether t falls inside the quiet window. Windows
// may cross midnight (e.g. 23:00 to 06:00).
func (s *Scheduler) inQuietHours(t time.Time) bool {
	if s.quietStart < 0 {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	if s.quietStart <= s.quietEnd {
		return minute >= s.quietStart && minute < s.quietEnd
	}
	return minute >= s.quietStart || minute < s.quietEnd
}

// parseHHMM parses a "HH:MM" clock time into minutes since midnight.
func parseHHMM(v string) (int, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", v)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	return hour*60 + minute, nil
}
