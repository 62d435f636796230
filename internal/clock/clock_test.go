package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "12:30", "23:59"} {
		assert.True(t, Valid(s), s)
	}
	for _, s := range []string{"", "24:00", "12:60", "9:05", "12:5", "ab:cd", "12:30:00"} {
		assert.False(t, Valid(s), s)
	}
}

func TestParseAndFormat(t *testing.T) {
	m, err := Parse("23:50")
	require.NoError(t, err)
	assert.Equal(t, 1430, m)

	_, err = Parse("25:00")
	assert.Error(t, err)

	assert.Equal(t, "00:20", Format(1460))
	assert.Equal(t, "23:59", Format(-1))
}

func TestLocalToCanonical(t *testing.T) {
	// UTC+2: 01:00 local is 23:00 GMT the previous day.
	assert.Equal(t, "23:00", LocalToCanonical("01:00", 120))
	// UTC-5: 22:00 local is 03:00 GMT the next day.
	assert.Equal(t, "03:00", LocalToCanonical("22:00", -300))
	assert.Equal(t, "06:00", LocalToCanonical("06:00", 0))
}

func TestRoundTripAllOffsets(t *testing.T) {
	for offset := -720; offset <= 840; offset += 15 {
		for minute := 0; minute < MinutesPerDay; minute += 7 {
			s := Format(minute)
			got := CanonicalToLocal(LocalToCanonical(s, offset), offset)
			if got != s {
				t.Fatalf("round trip %s at offset %d: got %s", s, offset, got)
			}
		}
	}
}

func TestValidOffset(t *testing.T) {
	assert.True(t, ValidOffset(MinOffset))
	assert.True(t, ValidOffset(MaxOffset))
	assert.True(t, ValidOffset(330))
	assert.False(t, ValidOffset(-721))
	assert.False(t, ValidOffset(841))
}

func TestLocalZoneReadsOffsetAtCallTime(t *testing.T) {
	loc := time.FixedZone("test", 90*60)
	z := Local{Now: func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, loc) }}
	assert.Equal(t, 90, z.Offset())

	c := NewConverter(Fixed(-60))
	assert.Equal(t, "07:00", c.ToCanonical("06:00"))
	assert.Equal(t, "05:00", c.ToLocal("06:00"))
	assert.Equal(t, 1439, c.LocalMinute(59))
}
