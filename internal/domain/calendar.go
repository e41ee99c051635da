package domain

import "time"

// BusinessHoursEntry declares one open window for one weekday. Entries with a
// nil EntityID form the global calendar used by entities without their own.
// StartMinute and EndMinute are minutes from midnight, StartMinute < EndMinute.
type BusinessHoursEntry struct {
	ID          string
	EntityID    *string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	IsActive    bool
}
