package proficiency

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/score"
)

type Kind string

// Test kinds
const (
	KindDLPT Kind = "DLPT" // Defense Language Proficiency Test: listening & reading
	KindSLTE Kind = "SLTE" // Semi-annual Language Training Event
	KindOPI  Kind = "OPI"  // Oral Proficiency Interview: speaking
)

var (
	Kinds   = []string{string(KindDLPT), string(KindSLTE), string(KindOPI)}
	Dicodes = []string{"AU", "AP", "AE", "DG", "AD", "AV", "PV", "PG", "PF"}
)

// Record is one test result. Scores not measured by the test are nil.
type Record struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Language  string        `json:"language"`
	Dicode    string        `json:"dicode"`
	Kind      Kind          `json:"kind"`
	Listening *score.Score  `json:"listening"`
	Reading   *score.Score  `json:"reading"`
	Speaking  *score.Score  `json:"speaking"`
	Dialects  []score.Score `json:"dialects"`
	Date      time.Time     `json:"date"` // UTC midnight
	CreatedAt time.Time     `json:"created_at"`
}

// Pair returns the listening/reading pair of a DLPT record, nil for any other record.
func (r Record) Pair() *score.Pair {
	if r.Kind != KindDLPT || r.Listening == nil || r.Reading == nil {
		return nil
	}
	return &score.Pair{Listening: *r.Listening, Reading: *r.Reading, Dialects: r.Dialects}
}

// NewRecord contains information needed to add a test result.
type NewRecord struct {
	UserID    string   `json:"user_id"`
	Language  string   `json:"language" validate:"required,max=50"`
	Dicode    string   `json:"dicode" validate:"omitempty,dicode"`
	Kind      string   `json:"kind" validate:"required,testkind"`
	Listening string   `json:"listening" validate:"omitempty,scorecode"`
	Reading   string   `json:"reading" validate:"omitempty,scorecode"`
	Speaking  string   `json:"speaking" validate:"omitempty,scorecode"`
	Dialects  []string `json:"dialects" validate:"omitempty,dive,scorecode"`
	Date      string   `json:"date" validate:"required,testdate"` // MM/DD/YYYY
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Language = core.CleanString(nr.Language)
	nr.Dicode = core.CleanString(nr.Dicode)
	nr.Kind = core.CleanString(nr.Kind)
	nr.Listening = core.CleanString(nr.Listening)
	nr.Reading = core.CleanString(nr.Reading)
	nr.Speaking = core.CleanString(nr.Speaking)
	for i, d := range nr.Dialects {
		nr.Dialects[i] = core.CleanString(d)
	}
	return validate.Struct(nr)
}

// Record converts a validated NewRecord.
func (nr NewRecord) Record() (Record, error) {
	date, _, err := score.ParseDate(nr.Date)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		UserID:   nr.UserID,
		Language: nr.Language,
		Dicode:   nr.Dicode,
		Kind:     Kind(nr.Kind),
		Date:     date,
	}
	if rec.Listening, err = parseOptional(nr.Listening); err != nil {
		return Record{}, err
	}
	if rec.Reading, err = parseOptional(nr.Reading); err != nil {
		return Record{}, err
	}
	if rec.Speaking, err = parseOptional(nr.Speaking); err != nil {
		return Record{}, err
	}
	for _, code := range nr.Dialects {
		s, err := score.Parse(code)
		if err != nil {
			return Record{}, err
		}
		rec.Dialects = append(rec.Dialects, s)
	}
	return rec, nil
}

func parseOptional(code string) (*score.Score, error) {
	if code == "" {
		return nil, nil
	}
	s, err := score.Parse(code)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DueInfo is the next due date of a test and the banner shown for it.
type DueInfo struct {
	Due      score.DueDate `json:"due"`
	Status   score.Status  `json:"status"`
	DaysLeft *int          `json:"days_left"`
}

// NewDueInfo classifies due against the test's banner window.
func NewDueInfo(due score.DueDate, w score.Window, today time.Time) DueInfo {
	info := DueInfo{Due: due, Status: w.StatusOf(due, today)}
	if due.Known {
		days := score.DaysUntil(due, today)
		info.DaysLeft = &days
	}
	return info
}

// Profile is a member's current standing: requirement, month progress and test due dates.
type Profile struct {
	UserID        string      `json:"user_id"`
	Scores        *score.Pair `json:"scores"`
	RulesVersion  string      `json:"rules_version"`
	HoursRequired int         `json:"hours_required"`
	HoursDone     int         `json:"hours_done"`
	LastDLPT      *time.Time  `json:"last_dlpt"`
	LastSLTE      *time.Time  `json:"last_slte"`
	DLPT          DueInfo     `json:"dlpt"`
	SLTE          DueInfo     `json:"slte"`
}

// RequirementMet reports whether this month's hours cover the requirement.
func (p Profile) RequirementMet() bool {
	return p.HoursDone >= p.HoursRequired
}

// NeedsAttention reports whether the member is behind on hours or close to a test.
func (p Profile) NeedsAttention() bool {
	for _, st := range []score.Status{p.DLPT.Status, p.SLTE.Status} {
		if st == score.StatusUrgent || st == score.StatusOverdue {
			return true
		}
	}
	return !p.RequirementMet()
}

type QueryFilter struct {
	UserID  string   `query:"user_id"`
	UserIDs []string `query:"-"`
	Kind    string   `query:"kind"`
}

// Match reports whether r satisfies every set field of qf.
func (qf *QueryFilter) Match(r Record) bool {
	if qf.UserID != "" && r.UserID != qf.UserID {
		return false
	}
	if len(qf.UserIDs) > 0 && !core.StringInSlice(r.UserID, qf.UserIDs) {
		return false
	}
	if qf.Kind != "" && string(r.Kind) != qf.Kind {
		return false
	}
	return true
}
