package scheduler

import (
	"context"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

// Gateway loads and stores the whole scheduler document on the device.
type Gateway interface {
	Load(ctx context.Context) (model.SchedulerState, error)
	Save(ctx context.Context, state model.SchedulerState) (model.SaveResult, error)
}

// DraftRepository is the durable outbox for in-progress sessions. Load returns
// nil and no error when the client has no draft.
type DraftRepository interface {
	Save(ctx context.Context, draft model.Draft) error
	Load(ctx context.Context, clientID string) (*model.Draft, error)
	Clear(ctx context.Context, clientID string) error
}

// Notifier publishes session activity to live observers. Delivery is best-effort.
type Notifier interface {
	Publish(ctx context.Context, notice model.Notice) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, model.Notice) error { return nil }
