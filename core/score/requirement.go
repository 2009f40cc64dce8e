package score

// Pair is the listening/reading result of a test, plus any dialect listening scores.
type Pair struct {
	Listening Score   `json:"listening"`
	Reading   Score   `json:"reading"`
	Dialects  []Score `json:"dialects,omitempty"`
}

// EffectiveListening is the highest of the primary listening score and the dialect scores.
func (p Pair) EffectiveListening() Score {
	max, _ := Max(append([]Score{p.Listening}, p.Dialects...)...)
	return max
}

// Rules is one version of the score to monthly-hours table.
type Rules struct {
	Version string
	// BadHours applies when any score is below 2.
	BadHours int
	// GoodHours applies when both scores are 3 or higher.
	GoodHours int
	// Table maps the sum of both scores, counted in half steps, to monthly hours.
	Table map[int]int
	// Sums missing from Table: >= CeilHalves gets GoodHours, anything else BadHours.
	CeilHalves int
}

var (
	// Rules2024 is the current table.
	Rules2024 = Rules{
		Version:   "2024.1",
		BadHours:  12,
		GoodHours: 0,
		Table: map[int]int{
			11: 2, // 5.5
			10: 4, // 5.0
			9:  6, // 4.5
			8:  8, // 4.0
		},
		CeilHalves: 12, // 6.0
	}

	CurrentRules = Rules2024
)

// HoursRequired returns the monthly hours required for the given scores.
// A nil pair means there is no score on record and nothing is required.
func (r Rules) HoursRequired(p *Pair) int {
	if p == nil {
		return 0
	}

	listening := p.EffectiveListening()
	if listening.IsBad() || p.Reading.IsBad() {
		return r.BadHours
	}
	if listening.IsGood() && p.Reading.IsGood() {
		return r.GoodHours
	}

	sum := listening.Halves() + p.Reading.Halves()
	if hours, ok := r.Table[sum]; ok {
		return hours
	}
	if sum >= r.CeilHalves {
		return r.GoodHours
	}
	return r.BadHours
}

// HoursRequired applies CurrentRules.
func HoursRequired(p *Pair) int {
	return CurrentRules.HoursRequired(p)
}
