package packets

import (
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

// SessionResponse is the session view plus the durable draft left by an
// earlier session of the same client, if any. LoadError is set when the
// session was created but the device could not be read.
type SessionResponse struct {
	scheduler.View
	Draft     *model.Draft `json:"draft,omitempty"`
	LoadError string       `json:"loadError,omitempty"`
}

type AddEventResponse struct {
	Added   int            `json:"added"`
	Session scheduler.View `json:"session"`
}

type CommitResponse struct {
	scheduler.CommitResult
	Session scheduler.View `json:"session"`
}

type DraftResponse struct {
	Draft *model.Draft `json:"draft"`
}

type ConflictsResponse struct {
	Conflicts []model.Conflict `json:"conflicts"`
}

type ActiveResponse struct {
	Schedules []scheduler.ActiveSchedule `json:"schedules"`
}
