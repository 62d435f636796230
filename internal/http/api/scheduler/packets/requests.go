package packets

// REQUESTS FOR /api/sessions/* AND /api/device/*

// CreateSessionRequest opens a session. UTCOffset is minutes east of GMT, as
// reported by the browser; the server's zone is used when it is absent.
type CreateSessionRequest struct {
	ClientID  string `json:"clientId"`
	UTCOffset *int   `json:"utcOffset"`
}

type IndexRequest struct {
	Index *int `json:"index" binding:"required"`
}

type CreateScheduleRequest struct {
	Name string `json:"name"`
}

// PendingRequest edits draft fields. Times are the client's wall clock.
// Relays (1-based) wins over RelayMask when both are sent.
type PendingRequest struct {
	Name      *string `json:"name"`
	LightsOn  *string `json:"lightsOn"`
	LightsOff *string `json:"lightsOff"`
	RelayMask *uint8  `json:"relayMask"`
	Relays    []int   `json:"relays"`
}

// AddEventRequest adds one event plus RepeatCount copies spaced RepeatInterval
// minutes apart. RepeatInterval defaults to 60.
type AddEventRequest struct {
	Time           string `json:"time" binding:"required"`
	Duration       int    `json:"duration"`
	RepeatCount    int    `json:"repeatCount"`
	RepeatInterval *int   `json:"repeatInterval"`
}

type UpdateEventRequest struct {
	Time     string `json:"time" binding:"required"`
	Duration int    `json:"duration"`
}

// ManualRequest waters one relay. Relay is 0-based as on the device.
type ManualRequest struct {
	Relay    *int `json:"relay" binding:"required"`
	Duration int  `json:"duration"`
}
