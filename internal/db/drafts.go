package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

type draftRow struct {
	model.Draft
	Payload []byte `db:"schedule"`
}

func (s *pgStore) SaveDraft(ctx context.Context, d model.Draft) error {
	payload, err := json.Marshal(d.Schedule)
	if err != nil {
		return fmt.Errorf("encode draft schedule: %w", err)
	}
	const q = `
	INSERT INTO scheduler_drafts (client_id, session_id, mode, schedule_index, original_name, schedule, saved_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (client_id) DO UPDATE
	   SET session_id = EXCLUDED.session_id,
	       mode = EXCLUDED.mode,
	       schedule_index = EXCLUDED.schedule_index,
	       original_name = EXCLUDED.original_name,
	       schedule = EXCLUDED.schedule,
	       saved_at = EXCLUDED.saved_at;`
	if _, err := s.db.ExecContext(ctx, q, d.ClientID, d.Session, d.Mode, d.Index, d.Original, payload, d.SavedAt); err != nil {
		log.Error().Err(err).Str("client_id", d.ClientID).Msg("SaveDraft failed")
		return err
	}
	return nil
}

func (s *pgStore) LoadDraft(ctx context.Context, clientID string) (*model.Draft, error) {
	var row draftRow
	const q = `
	SELECT client_id, session_id, mode, schedule_index, original_name, schedule, saved_at
	  FROM scheduler_drafts
	 WHERE client_id = $1;`
	err := s.db.GetContext(ctx, &row, q, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("LoadDraft failed")
		return nil, err
	}
	if err := json.Unmarshal(row.Payload, &row.Draft.Schedule); err != nil {
		return nil, fmt.Errorf("decode draft schedule: %w", err)
	}
	d := row.Draft
	return &d, nil
}

func (s *pgStore) ClearDraft(ctx context.Context, clientID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduler_drafts WHERE client_id = $1;`, clientID)
	if err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("ClearDraft failed")
	}
	return err
}
