// Package score holds the proficiency score value type and the pure calculators built on it:
// the monthly hour requirement and the DLPT/SLTE due dates.
package score

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
)

const (
	MinBase = 0
	MaxBase = 5
)

var ErrMalformedScore = errors.New("malformed score code")

// Score is an ILR-style proficiency level: an integer base plus an optional half step ("2+").
type Score struct {
	Base int
	Plus bool
}

// Parse parses codes like "0", "1+", "3". Surrounding whitespace is ignored.
func Parse(code string) (Score, error) {
	code = strings.TrimSpace(code)
	raw := code
	plus := strings.HasSuffix(code, "+")
	if plus {
		code = strings.TrimSuffix(code, "+")
	}
	base, err := strconv.Atoi(code)
	if err != nil || len(code) != 1 || base < MinBase || base > MaxBase {
		return Score{}, core.NewMalformedError(raw, ErrMalformedScore)
	}
	return Score{Base: base, Plus: plus}, nil
}

// MustParse is like Parse but panics on malformed codes. Meant for tables and tests.
func MustParse(code string) Score {
	s, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return s
}

// IsValidCode reports whether code parses as a Score.
func IsValidCode(code string) bool {
	_, err := Parse(code)
	return err == nil
}

func (s Score) String() string {
	code := strconv.Itoa(s.Base)
	if s.Plus {
		code += "+"
	}
	return code
}

// Halves is the score value counted in half steps: "2+" -> 5.
func (s Score) Halves() int {
	h := s.Base * 2
	if s.Plus {
		h++
	}
	return h
}

// Float is the numeric score value: "2+" -> 2.5.
func (s Score) Float() float64 {
	return float64(s.Halves()) / 2
}

// IsBad reports a level below 2 (0, 0+, 1, 1+).
func (s Score) IsBad() bool { return s.Base < 2 }

// IsGood reports a level of 3 or higher.
func (s Score) IsGood() bool { return s.Base >= 3 }

func (s Score) Less(other Score) bool { return s.Halves() < other.Halves() }

// Max returns the highest of the given scores. ok is false when none is given.
func Max(scores ...Score) (max Score, ok bool) {
	for i, s := range scores {
		if i == 0 || max.Less(s) {
			max = s
		}
	}
	return max, len(scores) > 0
}

func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return core.NewMalformedError(string(data), ErrMalformedScore)
	}
	parsed, err := Parse(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s Score) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner; scores are stored as their code.
func (s *Score) Scan(src interface{}) error {
	var code string
	switch v := src.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	default:
		return errors.Errorf("score: cannot scan %T", src)
	}
	parsed, err := Parse(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
