package calendar

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// window is one open interval within a day, half-open [start, end) in
// minutes from midnight.
type window struct {
	start int
	end   int
}

// schedule maps weekdays to their merged open windows.
type schedule map[time.Weekday][]window

// Calendar answers business-hours questions for an entity. Entity-specific
// entries win over the global calendar; with neither configured every
// instant counts as open, so deadline computation never deadlocks on a
// missing calendar.
type Calendar struct {
	hours    repository.BusinessHoursRepository
	walkDays int
	logger   *zap.Logger
}

// New constructs a Calendar. walkDays bounds the day-by-day walk in
// AddOpenMinutes against calendars with no usable open windows.
func New(hours repository.BusinessHoursRepository, walkDays int, logger *zap.Logger) *Calendar {
	if walkDays <= 0 {
		walkDays = 100
	}
	return &Calendar{hours: hours, walkDays: walkDays, logger: logger}
}

// IsOpen reports whether the instant falls inside an open window.
func (c *Calendar) IsOpen(ctx context.Context, entityID string, t time.Time) (bool, error) {
	sched, alwaysOpen, err := c.loadSchedule(ctx, entityID)
	if err != nil {
		return false, err
	}
	if alwaysOpen {
		return true, nil
	}
	day := dayStart(t)
	for _, win := range sched[t.Weekday()] {
		ws := day.Add(time.Duration(win.start) * time.Minute)
		we := day.Add(time.Duration(win.end) * time.Minute)
		if !t.Before(ws) && t.Before(we) {
			return true, nil
		}
	}
	return false, nil
}

// AddOpenMinutes walks forward from start, consuming open time day by day,
// and returns the instant at which the requested minutes of open time have
// elapsed. Zero or negative minutes return start unchanged. When the walk
// exhausts its day bound (a misconfigured calendar with no open days) the
// last computed instant is returned together with a configuration error.
func (c *Calendar) AddOpenMinutes(ctx context.Context, entityID string, start time.Time, minutes int) (time.Time, error) {
	if minutes <= 0 {
		return start, nil
	}
	sched, alwaysOpen, err := c.loadSchedule(ctx, entityID)
	if err != nil {
		return start, err
	}
	remaining := time.Duration(minutes) * time.Minute
	if alwaysOpen {
		return start.Add(remaining), nil
	}

	cur := start
	for day := 0; day < c.walkDays; day++ {
		base := dayStart(cur)
		for _, win := range sched[cur.Weekday()] {
			ws := base.Add(time.Duration(win.start) * time.Minute)
			we := base.Add(time.Duration(win.end) * time.Minute)
			if !cur.Before(we) {
				continue
			}
			if cur.Before(ws) {
				cur = ws
			}
			avail := we.Sub(cur)
			if remaining <= avail {
				return cur.Add(remaining), nil
			}
			remaining -= avail
			cur = we
		}
		cur = nextMidnight(cur)
	}

	if c.logger != nil {
		c.logger.Warn("calendar walk exhausted before consuming requested minutes",
			zap.String("entity_id", entityID),
			zap.Int("requested_minutes", minutes),
			zap.Int("walk_days", c.walkDays),
		)
	}
	return cur, util.NewConfigurationError("calendar has no open windows within walk bound",
		map[string]any{"entity_id": entityID, "walk_days": c.walkDays})
}

// OpenMinutesBetween sums the open time intersecting [start, end). The
// result is never negative; end at or before start yields zero.
func (c *Calendar) OpenMinutesBetween(ctx context.Context, entityID string, start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, nil
	}
	sched, alwaysOpen, err := c.loadSchedule(ctx, entityID)
	if err != nil {
		return 0, err
	}
	if alwaysOpen {
		return int64(end.Sub(start) / time.Minute), nil
	}

	var total time.Duration
	for base := dayStart(start); base.Before(end); base = nextMidnight(base) {
		for _, win := range sched[base.Weekday()] {
			ws := base.Add(time.Duration(win.start) * time.Minute)
			we := base.Add(time.Duration(win.end) * time.Minute)
			if ws.Before(start) {
				ws = start
			}
			if we.After(end) {
				we = end
			}
			if ws.Before(we) {
				total += we.Sub(ws)
			}
		}
	}
	return int64(total / time.Minute), nil
}

// loadSchedule resolves the effective calendar for an entity: its own active
// entries, else the global entries, else the 24/7 fallback.
func (c *Calendar) loadSchedule(ctx context.Context, entityID string) (schedule, bool, error) {
	entries, err := c.hours.ListActive(ctx, &entityID)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		entries, err = c.hours.ListActive(ctx, nil)
		if err != nil {
			return nil, false, err
		}
	}
	sched := buildSchedule(entries)
	if len(sched) == 0 {
		return nil, true, nil
	}
	return sched, false, nil
}

// buildSchedule keeps well-formed entries and merges overlapping windows
// per weekday.
func buildSchedule(entries []domain.BusinessHoursEntry) schedule {
	sched := make(schedule)
	for _, e := range entries {
		if !e.IsActive || e.StartMinute >= e.EndMinute {
			continue
		}
		sched[e.Weekday] = append(sched[e.Weekday], window{start: e.StartMinute, end: e.EndMinute})
	}
	for day, wins := range sched {
		sort.Slice(wins, func(i, j int) bool { return wins[i].start < wins[j].start })
		merged := wins[:0]
		for _, win := range wins {
			if n := len(merged); n > 0 && win.start <= merged[n-1].end {
				if win.end > merged[n-1].end {
					merged[n-1].end = win.end
				}
				continue
			}
			merged = append(merged, win)
		}
		sched[day] = merged
	}
	return sched
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
