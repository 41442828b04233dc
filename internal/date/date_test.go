package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"standard", "07-Apr-2015", New(2015, time.April, 7), false},
		{"leap day", "29-Feb-2016", New(2016, time.February, 29), false},
		{"single digit day", "7-Apr-2015", New(2015, time.April, 7), false},
		{"upper case month", "07-APR-2015", New(2015, time.April, 7), false},
		{"invalid day", "31-Feb-2016", Date{}, true},
		{"iso rejected", "2015-04-07", Date{}, true},
		{"numeric month rejected", "07-04-2015", Date{}, true},
		{"empty", "", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeed(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddAndSub(t *testing.T) {
	start := MustParse("2015-12-30")

	assert.Equal(t, MustParse("2016-01-02"), start.Add(3))
	assert.Equal(t, MustParse("2015-12-01"), start.Add(-29))
	assert.Equal(t, 366, MustParse("2017-01-01").Sub(MustParse("2016-01-01")))
	assert.Equal(t, -3, start.Sub(start.Add(3)))
	assert.Equal(t, 0, start.Sub(start))
}

func TestCompare(t *testing.T) {
	a := MustParse("2020-02-28")
	b := MustParse("2020-02-29")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, Date{}.IsZero())
	assert.False(t, a.IsZero())
}

func TestJSONRoundTrip(t *testing.T) {
	d := MustParse("2021-3-9")

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2021-03-09"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}

func TestRange(t *testing.T) {
	r := Range{From: MustParse("2024-02-27"), To: MustParse("2024-03-01")}

	assert.Equal(t, 4, r.Days())
	assert.True(t, r.Contains(MustParse("2024-02-29")))
	assert.False(t, r.Contains(MustParse("2024-03-02")))

	var got []string
	for d := range r.Each() {
		got = append(got, d.String())
	}
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, got)

	empty := Range{From: r.To, To: r.From}
	assert.Equal(t, 0, empty.Days())
}
