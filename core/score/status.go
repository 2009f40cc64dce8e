package score

import "time"

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOK      Status = "ok"
	StatusWarning Status = "warning" // gold banner
	StatusUrgent  Status = "urgent"  // red banner
	StatusOverdue Status = "overdue"
)

// Window is how close to a due date the banners turn gold (Warn) then red (Urgent).
type Window struct {
	WarnMonths int
	UrgentDays int
}

var (
	DLPTWindow = Window{WarnMonths: 3, UrgentDays: 14}
	SLTEWindow = Window{WarnMonths: 3, UrgentDays: 30}
)

// DaysUntil counts whole calendar days from today to the due date. Negative when past due.
func DaysUntil(due DueDate, today time.Time) int {
	d := truncateDay(due.Date)
	t := truncateDay(today)
	return int(d.Sub(t).Hours() / 24)
}

// StatusOf classifies a due date against today.
func (w Window) StatusOf(due DueDate, today time.Time) Status {
	if !due.Known {
		return StatusUnknown
	}
	days := DaysUntil(due, today)
	switch {
	case days < 0:
		return StatusOverdue
	case days <= w.UrgentDays:
		return StatusUrgent
	case !truncateDay(today).Before(AddMonths(truncateDay(due.Date), -w.WarnMonths)):
		return StatusWarning
	default:
		return StatusOK
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
