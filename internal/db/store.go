// exposes the console's Postgres tables: pending drafts and the save log.
package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

type Store interface {
	// draft functions
	SaveDraft(ctx context.Context, draft model.Draft) error
	LoadDraft(ctx context.Context, clientID string) (*model.Draft, error)
	ClearDraft(ctx context.Context, clientID string) error

	// save log functions
	RecordSave(ctx context.Context, rec model.SaveRecord) error
	ListSaves(ctx context.Context, limit int) ([]model.SaveRecord, error)
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

// NewStore wraps db, or the package DB when db is nil.
func NewStore(db *sqlx.DB) Store {
	if db == nil {
		db = DB
	}
	return &pgStore{db: db}
}

// DraftRepository adapts a Store to the session's draft repository.
type DraftRepository struct {
	Store Store
}

func (r DraftRepository) Save(ctx context.Context, d model.Draft) error {
	return r.Store.SaveDraft(ctx, d)
}

func (r DraftRepository) Load(ctx context.Context, clientID string) (*model.Draft, error) {
	return r.Store.LoadDraft(ctx, clientID)
}

func (r DraftRepository) Clear(ctx context.Context, clientID string) error {
	return r.Store.ClearDraft(ctx, clientID)
}
