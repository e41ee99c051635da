package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

type fakeHoursRepo struct {
	entries []domain.BusinessHoursEntry
}

func (f *fakeHoursRepo) ListActive(_ context.Context, entityID *string) ([]domain.BusinessHoursEntry, error) {
	var out []domain.BusinessHoursEntry
	for _, entry := range f.entries {
		switch {
		case entityID == nil && entry.EntityID == nil:
			out = append(out, entry)
		case entityID != nil && entry.EntityID != nil && *entry.EntityID == *entityID:
			out = append(out, entry)
		}
	}
	return out, nil
}

func weekdayHours(entityID *string, start, end int, days ...time.Weekday) []domain.BusinessHoursEntry {
	var entries []domain.BusinessHoursEntry
	for _, day := range days {
		entries = append(entries, domain.BusinessHoursEntry{
			EntityID:    entityID,
			Weekday:     day,
			StartMinute: start,
			EndMinute:   end,
			IsActive:    true,
		})
	}
	return entries
}

func businessWeek(entityID *string) []domain.BusinessHoursEntry {
	return weekdayHours(entityID, 9*60, 17*60,
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
}

const entityID = "11111111-1111-1111-1111-111111111111"

func newTestCalendar(entries []domain.BusinessHoursEntry) *Calendar {
	return New(&fakeHoursRepo{entries: entries}, 100, zap.NewNop())
}

func TestAddOpenMinutesZeroIsIdentity(t *testing.T) {
	cal := newTestCalendar(businessWeek(nil))
	start := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)

	got, err := cal.AddOpenMinutes(context.Background(), entityID, start, 0)
	require.NoError(t, err)
	assert.True(t, got.Equal(start))
}

func TestAddOpenMinutesSpansWeekend(t *testing.T) {
	cal := newTestCalendar(businessWeek(nil))
	// Friday 16:30 with Mon-Fri 09:00-17:00: 30 open minutes remain Friday,
	// the other 90 land Monday from 09:00.
	start := time.Date(2026, 1, 9, 16, 30, 0, 0, time.UTC)

	got, err := cal.AddOpenMinutes(context.Background(), entityID, start, 120)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 12, 10, 30, 0, 0, time.UTC), got)
}

func TestAddOpenMinutesAdvancesClosedStart(t *testing.T) {
	cal := newTestCalendar(businessWeek(nil))
	// Saturday start: counting begins Monday 09:00.
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	got, err := cal.AddOpenMinutes(context.Background(), entityID, start, 60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC), got)
}

func TestAddOpenMinutesEntityOverridesGlobal(t *testing.T) {
	eid := entityID
	entries := append(businessWeek(nil), weekdayHours(&eid, 0, 24*60,
		time.Saturday, time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)...)
	cal := newTestCalendar(entries)
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	got, err := cal.AddOpenMinutes(context.Background(), entityID, start, 60)
	require.NoError(t, err)
	// The entity runs around the clock, so Saturday counts.
	assert.Equal(t, start.Add(time.Hour), got)
}

func TestAddOpenMinutesNoCalendarMeansWallClock(t *testing.T) {
	cal := newTestCalendar(nil)
	start := time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)

	got, err := cal.AddOpenMinutes(context.Background(), entityID, start, 90)
	require.NoError(t, err)
	assert.Equal(t, start.Add(90*time.Minute), got)
}

func TestAddOpenMinutesWalkBound(t *testing.T) {
	// One open minute per week cannot satisfy the request within the bound.
	cal := newTestCalendar(weekdayHours(nil, 0, 1, time.Monday))
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	got, err := cal.AddOpenMinutes(context.Background(), entityID, start, 100000)
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindConfiguration))
	assert.True(t, got.After(start))
}

func TestAddOpenMinutesMonotonic(t *testing.T) {
	cal := newTestCalendar(businessWeek(nil))
	start := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)

	prev := start
	for _, minutes := range []int{15, 60, 8 * 60, 3 * 8 * 60} {
		got, err := cal.AddOpenMinutes(context.Background(), entityID, start, minutes)
		require.NoError(t, err)
		assert.True(t, got.After(prev), "minutes=%d", minutes)
		prev = got
	}
}

func TestOpenMinutesBetweenRoundTrip(t *testing.T) {
	cal := newTestCalendar(businessWeek(nil))
	start := time.Date(2026, 1, 9, 16, 30, 0, 0, time.UTC)

	for _, minutes := range []int{1, 30, 120, 480, 2400} {
		end, err := cal.AddOpenMinutes(context.Background(), entityID, start, minutes)
		require.NoError(t, err)

		got, err := cal.OpenMinutesBetween(context.Background(), entityID, start, end)
		require.NoError(t, err)
		assert.Equal(t, int64(minutes), got, "minutes=%d", minutes)
	}
}

func TestOpenMinutesBetweenReversedRangeIsZero(t *testing.T) {
	cal := newTestCalendar(businessWeek(nil))
	late := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)

	got, err := cal.OpenMinutesBetween(context.Background(), entityID, late, late.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestIsOpen(t *testing.T) {
	cal := newTestCalendar(businessWeek(nil))
	ctx := context.Background()

	open, err := cal.IsOpen(ctx, entityID, time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = cal.IsOpen(ctx, entityID, time.Date(2026, 1, 7, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open, "the window is half-open, 17:00 is closed")

	open, err = cal.IsOpen(ctx, entityID, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open, "Saturday is closed")
}

func TestBuildScheduleMergesOverlaps(t *testing.T) {
	entries := []domain.BusinessHoursEntry{
		{Weekday: time.Monday, StartMinute: 540, EndMinute: 720, IsActive: true},
		{Weekday: time.Monday, StartMinute: 660, EndMinute: 1020, IsActive: true},
		{Weekday: time.Monday, StartMinute: 100, EndMinute: 50, IsActive: true},
		{Weekday: time.Monday, StartMinute: 0, EndMinute: 60, IsActive: false},
	}
	sched := buildSchedule(entries)
	require.Len(t, sched[time.Monday], 1)
	assert.Equal(t, window{start: 540, end: 1020}, sched[time.Monday][0])
}
