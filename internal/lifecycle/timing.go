// Package lifecycle maps matched streams onto ManagedChannel rows: it
// decides whether a matched event is inside its create/delete timing
// window, resolves duplicate-handling and exception-keyword routing, and
// drives channel creation, consolidation, and scheduled deletion.
package lifecycle

import "time"

// CreateTiming gates when a channel is allowed to be created relative to
// the event's scheduled start time.
type CreateTiming string

const (
	CreateSameDay         CreateTiming = "same_day"
	CreateStreamAvailable CreateTiming = "stream_available"
	CreateDayBefore       CreateTiming = "day_before"
	Create2DaysBefore     CreateTiming = "2_days_before"
	Create3DaysBefore     CreateTiming = "3_days_before"
	CreateWeekBefore      CreateTiming = "1_week_before"
	CreateManual          CreateTiming = "manual"
)

// DeleteTiming gates when a channel becomes due for deletion relative to
// the event's scheduled start time.
type DeleteTiming string

const (
	DeleteStreamRemoved DeleteTiming = "stream_removed"
	DeleteSameDay       DeleteTiming = "same_day"
	DeleteDayAfter      DeleteTiming = "day_after"
	Delete2DaysAfter    DeleteTiming = "2_days_after"
	Delete3DaysAfter    DeleteTiming = "3_days_after"
	DeleteWeekAfter     DeleteTiming = "1_week_after"
)

// createOffsetDays maps a create timing to how many days before the
// event's calendar day a channel is allowed to be created. stream_available
// and manual aren't day-offset rules and are handled separately.
var createOffsetDays = map[CreateTiming]int{
	CreateSameDay:     0,
	CreateDayBefore:   1,
	Create2DaysBefore: 2,
	Create3DaysBefore: 3,
	CreateWeekBefore:  7,
}

// deleteOffsetDays maps a delete timing to how many days after the event's
// calendar day a channel becomes due for deletion. stream_removed isn't a
// day-offset rule and is handled by the caller (when a stream disappears
// from an upstream fetch, not on a timer).
var deleteOffsetDays = map[DeleteTiming]int{
	DeleteSameDay:  0,
	DeleteDayAfter: 1,
	Delete2DaysAfter: 2,
	Delete3DaysAfter: 3,
	DeleteWeekAfter:  7,
}

// Decision is the outcome of a timing-gate check, carrying a reason string
// suitable for a SKIPPED:before_window-style audit detail.
type Decision struct {
	ShouldAct bool
	Reason    string
}

func startOfDay(t time.Time, tz *time.Location) time.Time {
	t = t.In(tz)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, tz)
}

// ShouldCreateChannel reports whether now satisfies timing's create rule
// relative to eventStart. CreateManual always defers to an operator action
// and never auto-creates. CreateStreamAvailable always allows creation
// immediately, since "the stream showed up" is itself the trigger.
func ShouldCreateChannel(timing CreateTiming, eventStart time.Time, now time.Time, tz *time.Location) Decision {
	switch timing {
	case CreateManual:
		return Decision{ShouldAct: false, Reason: "manual_timing_requires_operator_action"}
	case CreateStreamAvailable:
		return Decision{ShouldAct: true}
	}

	offset, ok := createOffsetDays[timing]
	if !ok {
		offset = 0
	}
	windowOpen := startOfDay(eventStart, tz).AddDate(0, 0, -offset)
	if now.In(tz).Before(windowOpen) {
		return Decision{ShouldAct: false, Reason: "before_window"}
	}
	return Decision{ShouldAct: true}
}

// ScheduledDeleteAt computes the scheduled_delete_at timestamp for a newly
// created channel. DeleteStreamRemoved has no fixed timestamp — deletion is
// instead triggered when the matching pass no longer sees the stream — so
// it returns the zero Time and callers must not schedule a timer for it.
func ScheduledDeleteAt(timing DeleteTiming, eventStart time.Time, durationHours float64, tz *time.Location) time.Time {
	if timing == DeleteStreamRemoved {
		return time.Time{}
	}
	offset, ok := deleteOffsetDays[timing]
	if !ok {
		offset = 0
	}
	eventEnd := eventStart.Add(time.Duration(durationHours * float64(time.Hour)))
	return startOfDay(eventEnd, tz).AddDate(0, 0, offset+1)
}
