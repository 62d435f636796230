package model

import "time"

// Draft is the durable copy of an in-progress create/edit session.
type Draft struct {
	ClientID string    `json:"clientId" db:"client_id"`
	Session  string    `json:"session,omitempty" db:"session_id"`
	Mode     Mode      `json:"mode" db:"mode"`
	Index    int       `json:"index" db:"schedule_index"`
	Original string    `json:"original,omitempty" db:"original_name"`
	Schedule Schedule  `json:"schedule" db:"-"`
	SavedAt  time.Time `json:"savedAt" db:"saved_at"`
}

// Notice actions published to live channels.
const (
	ActionStartCreating = "startCreating"
	ActionStartEditing  = "startEditing"
	ActionUpdatePending = "updatePending"
	ActionCancelEditing = "cancelEditing"
	ActionScheduleSaved = "scheduleUpdate"

	// ActionPendingSchedule is what the device relays to other clients when
	// someone pushes a draft.
	ActionPendingSchedule = "pendingSchedule"
)

// Notice tells other observers what a session is doing with its draft.
type Notice struct {
	Action     string    `json:"action"`
	ScheduleID string    `json:"scheduleId,omitempty"`
	Data       *Schedule `json:"data,omitempty"`
	Session    string    `json:"session,omitempty"`
	ClientID   string    `json:"clientId,omitempty"`
	Origin     string    `json:"origin,omitempty"`
}

// Marker is the current-time position on the 24h axis.
type Marker struct {
	Minute      int       `json:"minute"`
	UTCMinute   int       `json:"utcMinute"`
	LeftPercent float64   `json:"leftPercent"`
	At          time.Time `json:"at"`
}
