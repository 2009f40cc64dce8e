package score

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langhour/tracker/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		code    string
		want    Score
		wantErr bool
	}{
		{code: "0", want: Score{Base: 0}},
		{code: "0+", want: Score{Base: 0, Plus: true}},
		{code: "2", want: Score{Base: 2}},
		{code: " 2+ ", want: Score{Base: 2, Plus: true}},
		{code: "4", want: Score{Base: 4}},
		{code: "5+", want: Score{Base: 5, Plus: true}},
		{code: "", wantErr: true},
		{code: "+", wantErr: true},
		{code: "6", wantErr: true},
		{code: "-1", wantErr: true},
		{code: "+1", wantErr: true},
		{code: "2++", wantErr: true},
		{code: "12", wantErr: true},
		{code: "two", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := Parse(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsMalformed(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore_values(t *testing.T) {
	s := MustParse("2+")
	assert.Equal(t, "2+", s.String())
	assert.Equal(t, 5, s.Halves())
	assert.Equal(t, 2.5, s.Float())
	assert.False(t, s.IsBad())
	assert.False(t, s.IsGood())

	for _, code := range []string{"0", "0+", "1", "1+"} {
		assert.True(t, MustParse(code).IsBad(), code)
	}
	for _, code := range []string{"3", "3+", "4", "4+", "5"} {
		assert.True(t, MustParse(code).IsGood(), code)
	}
}

func TestMax(t *testing.T) {
	_, ok := Max()
	assert.False(t, ok)

	max, ok := Max(MustParse("2"), MustParse("3"), MustParse("2+"))
	assert.True(t, ok)
	assert.Equal(t, MustParse("3"), max)
}

func TestScore_JSON(t *testing.T) {
	data, err := json.Marshal(Pair{Listening: MustParse("2+"), Reading: MustParse("3")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"listening":"2+","reading":"3"}`, string(data))

	var p Pair
	require.NoError(t, json.Unmarshal([]byte(`{"listening":"1+","reading":"4","dialects":["3"]}`), &p))
	assert.Equal(t, MustParse("1+"), p.Listening)
	assert.Equal(t, []Score{MustParse("3")}, p.Dialects)

	err = json.Unmarshal([]byte(`{"listening":"7","reading":"4"}`), &p)
	assert.True(t, core.IsMalformed(err))
}

func TestScore_Scan(t *testing.T) {
	var s Score
	require.NoError(t, s.Scan([]byte("3+")))
	assert.Equal(t, MustParse("3+"), s)

	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "3+", v)

	assert.Error(t, s.Scan(42))
}
