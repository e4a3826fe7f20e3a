package timeutil

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecsToMinsAndSecs(t *testing.T) {
	cases := []struct {
		in         float64
		mins, secs int
	}{
		{0, 0, 0},
		{59, 0, 59},
		{60, 1, 0},
		{1200, 20, 0},
		{299.6, 5, 0},
		{-5, 0, 0},
	}

	for _, tc := range cases {
		m, s := SecsToMinsAndSecs(tc.in)
		assert.Equal(t, tc.mins, m, "minutes for %v", tc.in)
		assert.Equal(t, tc.secs, s, "seconds for %v", tc.in)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "20:00", FormatClock(1200))
	assert.Equal(t, "04:05", FormatClock(245))
	assert.Equal(t, "00:00", FormatClock(0))
}

func TestToKeyOrdersChronologically(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC)

	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(120 * time.Millisecond),
		base.Add(time.Second),
	}

	for i := 1; i < len(times); i++ {
		prev, next := ToKey(times[i-1]), ToKey(times[i])
		if bytes.Compare(prev, next) >= 0 {
			t.Errorf("expected %s to sort before %s", prev, next)
		}
	}
}

func TestToKeyNormalisesZone(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	local := time.Date(2024, 3, 1, 11, 0, 0, 0, loc)
	utc := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, ToKey(utc), ToKey(local))
}

func TestRoundToStart(t *testing.T) {
	in := time.Date(2024, 3, 1, 17, 45, 12, 9, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), RoundToStart(in))
}

func TestFromStrEmpty(t *testing.T) {
	_, err := FromStr("  ", time.Now())
	assert.Error(t, err)
}
