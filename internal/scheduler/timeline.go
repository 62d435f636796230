package scheduler

import (
	"fmt"
	"sort"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	MinBlockPercent = 0.5
	MaxBlockPercent = 5.0
	TickEveryHours  = 2

	secondsPerDay = 86400
)

// Segment is a stretch of the 24h axis with the lights either on or off.
// Start is inclusive, End exclusive, both in minutes.
type Segment struct {
	Start        int     `json:"start"`
	End          int     `json:"end"`
	LightsOn     bool    `json:"lightsOn"`
	LeftPercent  float64 `json:"leftPercent"`
	WidthPercent float64 `json:"widthPercent"`
}

// Block is one event placed on the axis. Index points back into Schedule.Events.
type Block struct {
	Index        int     `json:"index"`
	ID           string  `json:"id"`
	Time         string  `json:"time"`
	Minute       int     `json:"minute"`
	Duration     int     `json:"duration"`
	LeftPercent  float64 `json:"leftPercent"`
	WidthPercent float64 `json:"widthPercent"`
}

type Tick struct {
	Minute      int     `json:"minute"`
	Label       string  `json:"label"`
	LeftPercent float64 `json:"leftPercent"`
}

// Projection is the renderable form of one schedule, in the viewer's wall clock.
type Projection struct {
	Schedule   string    `json:"schedule"`
	LightsOn   string    `json:"lightsOnTime"`
	LightsOff  string    `json:"lightsOffTime"`
	Background []Segment `json:"background"`
	Events     []Block   `json:"events"`
	Ticks      []Tick    `json:"ticks"`
}

// Project lays a schedule out on a 24h axis. Canonical times are shifted into
// conv's zone first; durations are never altered by the width clamp.
func Project(s model.Schedule, conv clock.Converter) (Projection, error) {
	on, err := clock.Parse(s.LightsOnTime)
	if err != nil {
		return Projection{}, fmt.Errorf("lights on: %w", ErrInvalidTime)
	}
	off, err := clock.Parse(s.LightsOffTime)
	if err != nil {
		return Projection{}, fmt.Errorf("lights off: %w", ErrInvalidTime)
	}
	on, off = conv.LocalMinute(on), conv.LocalMinute(off)

	p := Projection{
		Schedule:   s.Name,
		LightsOn:   clock.Format(on),
		LightsOff:  clock.Format(off),
		Background: Segments(on, off),
		Events:     make([]Block, 0, len(s.Events)),
		Ticks:      Ticks(),
	}
	for i, e := range s.Events {
		m, err := clock.Parse(e.Time)
		if err != nil {
			return Projection{}, fmt.Errorf("event %d: %w", i, ErrInvalidTime)
		}
		m = conv.LocalMinute(m)
		p.Events = append(p.Events, Block{
			Index:        i,
			ID:           e.ID,
			Time:         clock.Format(m),
			Minute:       m,
			Duration:     e.Duration,
			LeftPercent:  percentOfDay(m),
			WidthPercent: BlockWidth(e.Duration),
		})
	}
	sort.SliceStable(p.Events, func(i, j int) bool { return p.Events[i].Minute < p.Events[j].Minute })
	return p, nil
}

// Segments splits [0, 1440) by a lights window. When on < off the day reads
// off/on/off, otherwise the lit window wraps midnight and it reads on/off/on.
// Empty segments are dropped and equal neighbours merged, so on == off yields a
// single lit segment covering the whole day.
func Segments(on, off int) []Segment {
	var raw []Segment
	if on < off {
		raw = []Segment{{Start: 0, End: on}, {Start: on, End: off, LightsOn: true}, {Start: off, End: clock.MinutesPerDay}}
	} else {
		raw = []Segment{{Start: 0, End: off, LightsOn: true}, {Start: off, End: on}, {Start: on, End: clock.MinutesPerDay, LightsOn: true}}
	}

	out := make([]Segment, 0, len(raw))
	for _, seg := range raw {
		if seg.End <= seg.Start {
			continue
		}
		if n := len(out); n > 0 && out[n-1].LightsOn == seg.LightsOn {
			out[n-1].End = seg.End
			continue
		}
		out = append(out, seg)
	}
	for i := range out {
		out[i].LeftPercent = percentOfDay(out[i].Start)
		out[i].WidthPercent = percentOfDay(out[i].End - out[i].Start)
	}
	return out
}

// LightsOn reports whether minute falls inside the lit window, using the same
// boundaries as Segments.
func LightsOn(on, off, minute int) bool {
	if on < off {
		return minute >= on && minute < off
	}
	return minute >= on || minute < off
}

// BlockWidth converts a duration in seconds to a clamped percentage of the day.
func BlockWidth(duration int) float64 {
	w := float64(duration) / secondsPerDay * 100
	if w < MinBlockPercent {
		return MinBlockPercent
	}
	if w > MaxBlockPercent {
		return MaxBlockPercent
	}
	return w
}

// Ticks returns the hour labels drawn under the axis.
func Ticks() []Tick {
	ticks := make([]Tick, 0, 24/TickEveryHours)
	for h := 0; h < 24; h += TickEveryHours {
		m := h * 60
		ticks = append(ticks, Tick{Minute: m, Label: clock.Format(m), LeftPercent: percentOfDay(m)})
	}
	return ticks
}

func percentOfDay(minute int) float64 {
	return float64(minute) / clock.MinutesPerDay * 100
}
