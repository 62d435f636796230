package model

import "encoding/json"

// Mode is the edit-session state of a scheduler session.
type Mode string

const (
	ModeViewOnly Mode = "view-only"
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeViewOnly, ModeCreating, ModeEditing:
		return true
	}
	return false
}

// Event is one timed relay activation. Time is canonical GMT HH:MM, Duration is in seconds.
type Event struct {
	ID       string `json:"id"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
	// ExecutedMask belongs to the device; it is only round-tripped.
	ExecutedMask *uint32 `json:"executedMask,omitempty"`
}

// Schedule is a named relay-scoped container of events plus a light window.
type Schedule struct {
	Name          string  `json:"name"`
	Metadata      string  `json:"metadata"`
	RelayMask     uint8   `json:"relayMask"`
	LightsOnTime  string  `json:"lightsOnTime"`
	LightsOffTime string  `json:"lightsOffTime"`
	Events        []Event `json:"events"`
}

// EventCount is derived from Events and never stored.
func (s Schedule) EventCount() int {
	return len(s.Events)
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	type plain Schedule
	out := struct {
		plain
		EventCount int `json:"eventCount"`
	}{plain: plain(s), EventCount: len(s.Events)}
	if out.Events == nil {
		out.Events = []Event{}
	}
	return json.Marshal(out)
}

// Clone returns a deep copy that shares no memory with s.
func (s Schedule) Clone() Schedule {
	c := s
	if s.Events != nil {
		c.Events = make([]Event, len(s.Events))
		for i, e := range s.Events {
			c.Events[i] = e.Clone()
		}
	}
	return c
}

func (e Event) Clone() Event {
	c := e
	if e.ExecutedMask != nil {
		v := *e.ExecutedMask
		c.ExecutedMask = &v
	}
	return c
}

// SchedulerState is the document exchanged with the device on load and save.
type SchedulerState struct {
	CurrentScheduleIndex int        `json:"currentScheduleIndex"`
	Schedules            []Schedule `json:"schedules"`
}

func (s SchedulerState) MarshalJSON() ([]byte, error) {
	type plain SchedulerState
	out := struct {
		ScheduleCount int `json:"scheduleCount"`
		plain
	}{ScheduleCount: len(s.Schedules), plain: plain(s)}
	if out.Schedules == nil {
		out.Schedules = []Schedule{}
	}
	return json.Marshal(out)
}

// Clone deep-copies every schedule.
func (s SchedulerState) Clone() SchedulerState {
	c := SchedulerState{CurrentScheduleIndex: s.CurrentScheduleIndex}
	if s.Schedules != nil {
		c.Schedules = make([]Schedule, len(s.Schedules))
		for i, sc := range s.Schedules {
			c.Schedules[i] = sc.Clone()
		}
	}
	return c
}
