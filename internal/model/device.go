package model

import "time"

// Status mirrors GET /api/scheduler/status. Fields other than IsActive are optional
// on the device side.
type Status struct {
	IsActive       bool       `json:"isActive"`
	ScheduleCount  *int       `json:"scheduleCount,omitempty"`
	LightCondition string     `json:"lightCondition,omitempty"`
	NextEvent      *NextEvent `json:"nextEvent,omitempty"`
}

type NextEvent struct {
	Schedule string `json:"schedule"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
	Relays   []int  `json:"relays,omitempty"`
}

// SaveResult is the device reply to save/activate/deactivate/manual.
type SaveResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ManualRelay is the body of POST /api/relay/manual. Relay is 0-based.
type ManualRelay struct {
	Relay    int `json:"relay"`
	Duration int `json:"duration"`
}

// Conflict names two schedules claiming the same relay. Relay is 1-based.
type Conflict struct {
	Relay     int      `json:"relay"`
	Schedules []string `json:"schedules"`
}

// SaveRecord is one row of the save log.
type SaveRecord struct {
	ID            int64     `json:"id" db:"id"`
	SavedAt       time.Time `json:"savedAt" db:"saved_at"`
	ScheduleCount int       `json:"scheduleCount" db:"schedule_count"`
	EventCount    int       `json:"eventCount" db:"event_count"`
	Status        string    `json:"status" db:"status"`
	Message       string    `json:"message" db:"message"`
	ArchiveKey    string    `json:"archiveKey,omitempty" db:"archive_key"`
}
