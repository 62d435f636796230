package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

func TestFindRelayConflicts(t *testing.T) {
	a := model.Schedule{Name: "a", RelayMask: 0b00000001}
	b := model.Schedule{Name: "b", RelayMask: 0b00000001}
	c := model.Schedule{Name: "c", RelayMask: 0b00000110}

	got := FindRelayConflicts([]model.Schedule{a, b})
	assert.Equal(t, []model.Conflict{{Relay: 1, Schedules: []string{"a", "b"}}}, got)

	assert.Empty(t, FindRelayConflicts([]model.Schedule{a, c}))
	assert.Empty(t, FindRelayConflicts(nil))

	d := model.Schedule{Name: "d", RelayMask: 0b00000101}
	got = FindRelayConflicts([]model.Schedule{a, c, d})
	assert.Equal(t, []model.Conflict{
		{Relay: 1, Schedules: []string{"a", "d"}},
		{Relay: 3, Schedules: []string{"c", "d"}},
	}, got)
}

func coverage(t *testing.T, segs []Segment) int {
	t.Helper()
	total := 0
	cursor := 0
	for _, s := range segs {
		require.Equal(t, cursor, s.Start, "gap or overlap at %d", cursor)
		require.Greater(t, s.End, s.Start)
		total += s.End - s.Start
		cursor = s.End
	}
	return total
}

func TestSegmentsWrapAroundCoverWholeDay(t *testing.T) {
	segs := Segments(clock.MustParse("20:00"), clock.MustParse("06:00"))
	assert.Equal(t, clock.MinutesPerDay, coverage(t, segs))
	assert.Equal(t, []bool{true, false, true}, litPattern(segs))
	assert.Equal(t, 360, segs[0].End)
	assert.Equal(t, 1200, segs[2].Start)
}

func TestSegmentsSameDay(t *testing.T) {
	segs := Segments(360, 1080)
	assert.Equal(t, clock.MinutesPerDay, coverage(t, segs))
	assert.Equal(t, []bool{false, true, false}, litPattern(segs))
	assert.InDelta(t, 25.0, segs[1].LeftPercent, 1e-9)
	assert.InDelta(t, 50.0, segs[1].WidthPercent, 1e-9)
}

func TestSegmentsEdgeWindows(t *testing.T) {
	for _, tc := range []struct {
		name    string
		on, off int
		lit     []bool
	}{
		{"equal means always on", 600, 600, []bool{true}},
		{"midnight to midnight", 0, 0, []bool{true}},
		{"on at midnight", 0, 720, []bool{true, false}},
		{"off at midnight", 720, 0, []bool{false, true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			segs := Segments(tc.on, tc.off)
			assert.Equal(t, clock.MinutesPerDay, coverage(t, segs))
			assert.Equal(t, tc.lit, litPattern(segs))
		})
	}
}

func litPattern(segs []Segment) []bool {
	out := make([]bool, len(segs))
	for i, s := range segs {
		out[i] = s.LightsOn
	}
	return out
}

func TestLightsOnMatchesSegments(t *testing.T) {
	for _, w := range [][2]int{{360, 1080}, {1200, 360}, {600, 600}, {0, 720}} {
		segs := Segments(w[0], w[1])
		for _, s := range segs {
			for m := s.Start; m < s.End; m += 7 {
				assert.Equal(t, s.LightsOn, LightsOn(w[0], w[1], m), "window %v minute %d", w, m)
			}
		}
	}
}

func TestBlockWidthClamp(t *testing.T) {
	assert.Equal(t, MinBlockPercent, BlockWidth(10))
	assert.Equal(t, MaxBlockPercent, BlockWidth(86400))
	assert.InDelta(t, 1.0, BlockWidth(864), 1e-9)
}

func TestProjectShiftsIntoViewerZoneAndSorts(t *testing.T) {
	s := model.Schedule{
		Name:          "veg",
		LightsOnTime:  "04:00",
		LightsOffTime: "16:00",
		Events: []model.Event{
			{ID: "late", Time: "22:30", Duration: 10},
			{ID: "early", Time: "05:00", Duration: 600},
		},
	}
	p, err := Project(s, clock.NewConverter(clock.Fixed(120)))
	require.NoError(t, err)

	assert.Equal(t, "06:00", p.LightsOn)
	assert.Equal(t, "18:00", p.LightsOff)
	assert.Equal(t, clock.MinutesPerDay, coverage(t, p.Background))

	require.Len(t, p.Events, 2)
	assert.Equal(t, "late", p.Events[0].ID)
	assert.Equal(t, "00:30", p.Events[0].Time)
	assert.Equal(t, 0, p.Events[0].Index)
	assert.Equal(t, "early", p.Events[1].ID)
	assert.Equal(t, 1, p.Events[1].Index)
	assert.InDelta(t, 420.0/1440*100, p.Events[1].LeftPercent, 1e-9)
	assert.Equal(t, 600, p.Events[1].Duration)
	assert.Len(t, p.Ticks, 12)
	assert.Equal(t, "02:00", p.Ticks[1].Label)
}

func TestProjectRejectsMalformedTimes(t *testing.T) {
	_, err := Project(model.Schedule{LightsOnTime: "6am", LightsOffTime: "18:00"}, clock.NewConverter(clock.Fixed(0)))
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = Project(model.Schedule{LightsOnTime: "06:00", LightsOffTime: "18:00", Events: []model.Event{{Time: "x"}}}, clock.NewConverter(clock.Fixed(0)))
	assert.ErrorIs(t, err, ErrInvalidTime)
}
