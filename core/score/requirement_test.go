package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pair(listening, reading string, dialects ...string) *Pair {
	p := &Pair{Listening: MustParse(listening), Reading: MustParse(reading)}
	for _, d := range dialects {
		p.Dialects = append(p.Dialects, MustParse(d))
	}
	return p
}

func TestHoursRequired_badScores(t *testing.T) {
	bad := []string{"0", "0+", "1", "1+"}
	all := []string{"0", "0+", "1", "1+", "2", "2+", "3", "3+", "4"}
	for _, b := range bad {
		for _, other := range all {
			assert.Equal(t, 12, HoursRequired(pair(b, other)), "listening=%s reading=%s", b, other)
			assert.Equal(t, 12, HoursRequired(pair(other, b)), "listening=%s reading=%s", other, b)
		}
	}
}

func TestHoursRequired_goodScores(t *testing.T) {
	good := []string{"3", "3+", "4"}
	for _, l := range good {
		for _, r := range good {
			assert.Equal(t, 0, HoursRequired(pair(l, r)), "listening=%s reading=%s", l, r)
		}
	}
}

func TestHoursRequired(t *testing.T) {
	tests := []struct {
		name string
		pair *Pair
		want int
	}{
		{name: "no scores", pair: nil, want: 0},
		{name: "2/2 (4.0)", pair: pair("2", "2"), want: 8},
		{name: "2/2+ (4.5)", pair: pair("2", "2+"), want: 6},
		{name: "2+/2 (4.5)", pair: pair("2+", "2"), want: 6},
		{name: "2+/2+ (5.0)", pair: pair("2+", "2+"), want: 4},
		{name: "2/3 (5.0)", pair: pair("2", "3"), want: 4},
		{name: "2+/3 (5.5)", pair: pair("2+", "3"), want: 2},
		{name: "3/2+ (5.5)", pair: pair("3", "2+"), want: 2},
		{name: "2/3+ (5.5)", pair: pair("2", "3+"), want: 2},
		{name: "2/4 (6.0 off table)", pair: pair("2", "4"), want: 0},
		{name: "2+/3+ (6.0 off table)", pair: pair("2+", "3+"), want: 0},
		{name: "dialect raises listening", pair: pair("2", "2+", "3"), want: 2},
		{name: "dialect lifts bad listening", pair: pair("1+", "3", "2+"), want: 2},
		{name: "dialect lower than primary", pair: pair("3", "3", "2"), want: 0},
		{name: "dialects make both good", pair: pair("2", "3", "1", "3+"), want: 0},
		{name: "bad reading wins over dialects", pair: pair("2", "1+", "4"), want: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HoursRequired(tt.pair))
		})
	}
}

func TestRules_offTableBelowFloor(t *testing.T) {
	// a table that no longer covers 4.0 falls back to the bad hours
	rules := Rules2024
	rules.Table = map[int]int{11: 2, 10: 4, 9: 6}
	assert.Equal(t, 12, rules.HoursRequired(pair("2", "2")))
	assert.Equal(t, 6, rules.HoursRequired(pair("2", "2+")))
	assert.Equal(t, "2024.1", CurrentRules.Version)
}
