// Package scheduler holds the irrigation schedule model operations, the relay
// conflict detector, the 24h timeline projector and the edit-session state machine.
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	MaxSchedules = 8
	MaxEvents    = 50
	RelayCount   = 8

	DefaultLightsOn  = "06:00"
	DefaultLightsOff = "18:00"
)

// NewSchedule builds an empty schedule. It does not touch any SchedulerState;
// the caller decides whether to append it or stage it as a draft.
func NewSchedule(name string, now time.Time) model.Schedule {
	if name == "" {
		name = "New Schedule " + now.Format("2006-01-02 15:04:05")
	}
	return model.Schedule{
		Name:          name,
		Metadata:      now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		RelayMask:     0,
		LightsOnTime:  DefaultLightsOn,
		LightsOffTime: DefaultLightsOff,
		Events:        []model.Event{},
	}
}

// AddEvent expands one event into repeatCount+1 occurrences spaced repeatInterval
// minutes apart, starting at the canonical time start. Occurrences that would start
// at or after midnight are dropped. The whole call is rejected when repeatCount+1
// more events would exceed MaxEvents. It returns the number of events added.
func AddEvent(s *model.Schedule, start string, duration, repeatCount, repeatInterval int, now time.Time) (int, error) {
	base, err := clock.Parse(start)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, start)
	}
	if duration <= 0 {
		return 0, ErrInvalidDuration
	}
	if repeatCount < 0 || repeatInterval <= 0 {
		return 0, ErrInvalidRepeat
	}
	if len(s.Events)+repeatCount+1 > MaxEvents {
		return 0, fmt.Errorf("%w: cannot add %d events to %d (max %d)",
			ErrTooManyEvents, repeatCount+1, len(s.Events), MaxEvents)
	}

	// Ids are "<unix ms>_<seq>"; seq continues past the events already present
	// and skips any id already taken.
	taken := make(map[string]bool, len(s.Events))
	for _, e := range s.Events {
		taken[e.ID] = true
	}
	token := now.UnixMilli()
	seq := len(s.Events)
	nextID := func() string {
		for {
			id := fmt.Sprintf("%d_%d", token, seq)
			seq++
			if !taken[id] {
				taken[id] = true
				return id
			}
		}
	}

	added := 0
	for i := 0; i <= repeatCount; i++ {
		minute := base + i*repeatInterval
		if minute >= clock.MinutesPerDay {
			continue
		}
		executed := uint32(0)
		s.Events = append(s.Events, model.Event{
			ID:           nextID(),
			Time:         clock.Format(minute),
			Duration:     duration,
			ExecutedMask: &executed,
		})
		added++
	}
	return added, nil
}

// DeleteEvent removes the event at index.
func DeleteEvent(s *model.Schedule, index int) error {
	if index < 0 || index >= len(s.Events) {
		return fmt.Errorf("event %d: %w", index, ErrIndexOutOfRange)
	}
	s.Events = append(s.Events[:index], s.Events[index+1:]...)
	return nil
}

// UpdateEvent rewrites the start time and duration of one event in place.
func UpdateEvent(s *model.Schedule, index int, start string, duration int) error {
	if index < 0 || index >= len(s.Events) {
		return fmt.Errorf("event %d: %w", index, ErrIndexOutOfRange)
	}
	if !clock.Valid(start) {
		return fmt.Errorf("%w: %q", ErrInvalidTime, start)
	}
	if duration <= 0 {
		return ErrInvalidDuration
	}
	s.Events[index].Time = start
	s.Events[index].Duration = duration
	return nil
}

// RelaysFromMask lists the 1-based relay numbers set in mask.
func RelaysFromMask(mask uint8) []int {
	relays := make([]int, 0, RelayCount)
	for r := 0; r < RelayCount; r++ {
		if mask&(1<<r) != 0 {
			relays = append(relays, r+1)
		}
	}
	return relays
}

// MaskFromRelays is the inverse of RelaysFromMask.
func MaskFromRelays(relays []int) (uint8, error) {
	var mask uint8
	for _, r := range relays {
		if r < 1 || r > RelayCount {
			return 0, fmt.Errorf("%w: %d", ErrInvalidRelay, r)
		}
		mask |= 1 << (r - 1)
	}
	return mask, nil
}

// FormatDuration renders seconds the way the event list shows them ("90s" -> "1m 30s").
func FormatDuration(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

// ActiveSchedule is a schedule that currently controls at least one relay.
type ActiveSchedule struct {
	Index     int           `json:"index"`
	Name      string        `json:"name"`
	Relays    []int         `json:"relays"`
	LightsOn  string        `json:"lightsOn"`
	LightsOff string        `json:"lightsOff"`
	Events    []ActiveEvent `json:"events"`
}

type ActiveEvent struct {
	Time     string `json:"time"`
	Duration string `json:"duration"`
}

// Active lists schedules with a non-zero relay mask, times shown in conv's zone.
func Active(schedules []model.Schedule, conv clock.Converter) []ActiveSchedule {
	out := make([]ActiveSchedule, 0, len(schedules))
	for i, s := range schedules {
		if s.RelayMask == 0 {
			continue
		}
		a := ActiveSchedule{
			Index:     i,
			Name:      s.Name,
			Relays:    RelaysFromMask(s.RelayMask),
			LightsOn:  DisplayTime(conv, s.LightsOnTime),
			LightsOff: DisplayTime(conv, s.LightsOffTime),
			Events:    make([]ActiveEvent, 0, len(s.Events)),
		}
		for _, e := range s.Events {
			a.Events = append(a.Events, ActiveEvent{Time: DisplayTime(conv, e.Time), Duration: FormatDuration(e.Duration)})
		}
		out = append(out, a)
	}
	return out
}

// DisplayTime converts canonical to conv's wall clock. A malformed time, as an
// older firmware may store, is returned unchanged.
func DisplayTime(conv clock.Converter, canonical string) string {
	if !clock.Valid(canonical) {
		return canonical
	}
	return conv.ToLocal(canonical)
}

// NextEvent finds the first event at or after now among schedules that control
// relays, wrapping to tomorrow's earliest event when none is left today.
func NextEvent(schedules []model.Schedule, now time.Time) *model.NextEvent {
	type candidate struct {
		minute int
		sched  int
		event  int
	}
	var all []candidate
	for si, s := range schedules {
		if s.RelayMask == 0 {
			continue
		}
		for ei, e := range s.Events {
			m, err := clock.Parse(e.Time)
			if err != nil {
				continue
			}
			all = append(all, candidate{minute: m, sched: si, event: ei})
		}
	}
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].minute < all[j].minute })

	current := clock.MinuteOfDay(now.UTC())
	pick := all[0]
	for _, c := range all {
		if c.minute >= current {
			pick = c
			break
		}
	}
	s := schedules[pick.sched]
	e := s.Events[pick.event]
	return &model.NextEvent{
		Schedule: s.Name,
		Time:     e.Time,
		Duration: e.Duration,
		Relays:   RelaysFromMask(s.RelayMask),
	}
}
