package device

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

// Store is the load/save half of the device API.
type Store interface {
	Load(ctx context.Context) (model.SchedulerState, error)
	Save(ctx context.Context, state model.SchedulerState) (model.SaveResult, error)
}

// Archiver keeps a copy of every document the device accepted.
type Archiver interface {
	Archive(ctx context.Context, state model.SchedulerState, at time.Time) (string, error)
}

// SaveLog records the outcome of every save attempt.
type SaveLog interface {
	RecordSave(ctx context.Context, rec model.SaveRecord) error
}

// Recorder wraps a Store and reports each save to an Archiver and a SaveLog.
// Both are optional and neither can fail a save.
type Recorder struct {
	Store   Store
	Archive Archiver
	Log     SaveLog
	Now     func() time.Time
}

func (r *Recorder) Load(ctx context.Context) (model.SchedulerState, error) {
	return r.Store.Load(ctx)
}

func (r *Recorder) Save(ctx context.Context, state model.SchedulerState) (model.SaveResult, error) {
	res, err := r.Store.Save(ctx, state)

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	rec := model.SaveRecord{
		SavedAt:       now().UTC(),
		ScheduleCount: len(state.Schedules),
		Status:        res.Status,
		Message:       res.Message,
	}
	for _, s := range state.Schedules {
		rec.EventCount += s.EventCount()
	}
	if err != nil {
		rec.Status = "error"
		rec.Message = err.Error()
	} else if r.Archive != nil {
		key, aerr := r.Archive.Archive(ctx, state, rec.SavedAt)
		if aerr != nil {
			log.Error().Err(aerr).Msg("failed to archive scheduler state")
		}
		rec.ArchiveKey = key
	}
	if r.Log != nil {
		if lerr := r.Log.RecordSave(ctx, rec); lerr != nil {
			log.Error().Err(lerr).Msg("failed to record save")
		}
	}
	return res, err
}
