package db

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

func (s *pgStore) RecordSave(ctx context.Context, rec model.SaveRecord) error {
	const q = `
	INSERT INTO scheduler_saves (saved_at, schedule_count, event_count, status, message, archive_key)
	VALUES ($1, $2, $3, $4, $5, $6);`
	_, err := s.db.ExecContext(ctx, q, rec.SavedAt, rec.ScheduleCount, rec.EventCount, rec.Status, rec.Message, rec.ArchiveKey)
	if err != nil {
		log.Error().Err(err).Msg("RecordSave failed")
	}
	return err
}

// ListSaves returns the newest limit entries, newest first.
func (s *pgStore) ListSaves(ctx context.Context, limit int) ([]model.SaveRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []model.SaveRecord{}
	const q = `
	SELECT id, saved_at, schedule_count, event_count, status, message, archive_key
	  FROM scheduler_saves
	 ORDER BY saved_at DESC, id DESC
	 LIMIT $1;`
	if err := s.db.SelectContext(ctx, &out, q, limit); err != nil {
		log.Error().Err(err).Msg("ListSaves failed")
		return nil, err
	}
	return out, nil
}
