package hours

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/score"
)

// Modalities
const (
	ModListening     = "Listening"
	ModReading       = "Reading"
	ModSpeaking      = "Speaking"
	ModTranscription = "Transcription"
	ModTranslation   = "Translation"
	ModVocabulary    = "Vocabulary"
	ModMentoring     = "Mentoring"
	ModTraining      = "Training Session"
	ModClass         = "Class"
	ModTest          = "Test"
)

var (
	Modalities = []string{
		ModListening, ModReading, ModSpeaking, ModTranscription, ModTranslation,
		ModVocabulary, ModMentoring, ModTraining, ModClass, ModTest,
	}

	MaxHoursPerEntry = 24
)

// NormalizeModality maps case-insensitive input to the canonical modality name.
// Returns "" for unknown modalities.
func NormalizeModality(mod string) string {
	mod = core.CleanString(mod)
	for _, m := range Modalities {
		if strings.EqualFold(m, mod) {
			return m
		}
	}
	return ""
}

// Entry is a block of language study logged by a user on a given day.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Date        time.Time `json:"date"` // UTC midnight
	Hours       int       `json:"hours"`
	Description string    `json:"description"`
	Modalities  []string  `json:"modalities"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEntry contains information needed to log hours.
type NewEntry struct {
	UserID      string   `json:"user_id"`
	Date        string   `json:"date" validate:"required,entrydate"` // MM/DD/YYYY
	Hours       int      `json:"hours" validate:"min=0,max=24"`
	Description string   `json:"description" validate:"required,max=250"`
	Modalities  []string `json:"modalities" validate:"required,min=1,dive,modality"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Description = core.CleanString(ne.Description)
	ne.Date = core.CleanString(ne.Date)
	for i, mod := range ne.Modalities {
		if norm := NormalizeModality(mod); norm != "" {
			ne.Modalities[i] = norm
		}
	}
	return validate.Struct(ne)
}

// Entry converts a validated NewEntry.
func (ne NewEntry) Entry() (Entry, error) {
	date, _, err := score.ParseDate(ne.Date)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		UserID:      ne.UserID,
		Date:        date,
		Hours:       ne.Hours,
		Description: ne.Description,
		Modalities:  ne.Modalities,
	}, nil
}

type QueryFilter struct {
	UserID   string    `query:"user_id"`
	UserIDs  []string  `query:"-"`
	From     time.Time `query:"-"` // inclusive
	To       time.Time `query:"-"` // inclusive
	Modality string    `query:"modality"`
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	if m := NormalizeModality(qf.Modality); m != "" {
		qf.Modality = m
	}
}

// Match reports whether e satisfies every set field of qf.
func (qf *QueryFilter) Match(e Entry) bool {
	if qf.UserID != "" && e.UserID != qf.UserID {
		return false
	}
	if len(qf.UserIDs) > 0 && !core.StringInSlice(e.UserID, qf.UserIDs) {
		return false
	}
	if !qf.From.IsZero() && e.Date.Before(qf.From) {
		return false
	}
	if !qf.To.IsZero() && e.Date.After(qf.To) {
		return false
	}
	if qf.Modality != "" && !core.StringInSlice(qf.Modality, e.Modalities) {
		return false
	}
	return true
}

// MonthBounds returns the first and last day of t's month.
func MonthBounds(t time.Time) (first, last time.Time) {
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}
