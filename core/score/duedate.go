package score

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
)

// DateLayout is the MM/DD/YYYY format test dates are exchanged in.
const DateLayout = "01/02/2006"

var ErrMalformedDate = errors.New("malformed date, expected MM/DD/YYYY")

// DueDate is the next date a test is due. The zero value is Unknown.
type DueDate struct {
	Date  time.Time
	Known bool
}

// Unknown is returned when there is no last test date to compute from.
var Unknown = DueDate{}

func (d DueDate) String() string {
	if !d.Known {
		return "N/A"
	}
	return d.Date.Format(DateLayout)
}

// MarshalJSON renders an unknown date as null.
func (d DueDate) MarshalJSON() ([]byte, error) {
	if !d.Known {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// DueDates holds the next DLPT and SLTE dates.
type DueDates struct {
	DLPT DueDate `json:"dlpt"`
	SLTE DueDate `json:"slte"`
}

// Interval is how long a result stays current for each test.
type Interval struct {
	DLPTYears  int
	SLTEMonths int
}

// IntervalFor picks the retest intervals for the given scores.
// One score >= 2 with the other < 2 falls to the shortest interval.
func IntervalFor(listening, reading Score) Interval {
	switch {
	case listening.Base >= 3 && reading.Base >= 3:
		return Interval{DLPTYears: 2, SLTEMonths: 36}
	case listening.Base >= 2 && reading.Base >= 2:
		return Interval{DLPTYears: 1, SLTEMonths: 18}
	default:
		return Interval{DLPTYears: 1, SLTEMonths: 12}
	}
}

// ParseDate parses a MM/DD/YYYY date. Empty input is reported with ok false.
func ParseDate(s string) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false, core.NewMalformedError(s, ErrMalformedDate)
	}
	return t, true, nil
}

// CheckDueDates computes the next DLPT and SLTE dates from the last test dates (MM/DD/YYYY).
// Missing dates yield Unknown rather than an error.
func CheckDueDates(listening, reading Score, lastDLPT, lastSLTE string) (DueDates, error) {
	dlpt, dlptOk, err := ParseDate(lastDLPT)
	if err != nil {
		return DueDates{}, errors.Wrap(err, "parsing last DLPT date")
	}
	slte, slteOk, err := ParseDate(lastSLTE)
	if err != nil {
		return DueDates{}, errors.Wrap(err, "parsing last SLTE date")
	}

	var dlptPtr, sltePtr *time.Time
	if dlptOk {
		dlptPtr = &dlpt
	}
	if slteOk {
		sltePtr = &slte
	}
	return NextDueDates(listening, reading, dlptPtr, sltePtr), nil
}

// NextDueDates is CheckDueDates over already parsed dates; nil means no test on record.
func NextDueDates(listening, reading Score, lastDLPT, lastSLTE *time.Time) DueDates {
	iv := IntervalFor(listening, reading)
	var dd DueDates
	if lastDLPT != nil {
		dd.DLPT = DueDate{Date: AddMonths(*lastDLPT, iv.DLPTYears*12), Known: true}
	}
	if lastSLTE != nil {
		dd.SLTE = DueDate{Date: AddMonths(*lastSLTE, iv.SLTEMonths), Known: true}
	}
	return dd
}

// AddMonths adds n calendar months to t, clamping to the last day of the target month (01/31 + 1 -> 02/28).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return first.AddDate(0, 0, d-1)
}
