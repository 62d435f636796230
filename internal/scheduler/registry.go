package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	// DefaultReloadTimeout bounds one background reload after a remote save.
	DefaultReloadTimeout = 15 * time.Second

	// reloadWorkers caps concurrent reloads so a save does not fan out into
	// one device request per open session at once.
	reloadWorkers = 4
)

// Dependencies are shared by every session a Registry creates.
type Dependencies struct {
	Gateway       Gateway
	Drafts        DraftRepository
	Notifier      Notifier
	Now           func() time.Time
	ReloadTimeout time.Duration
}

type entry struct {
	session *Session
	seen    time.Time
}

// Registry owns the live sessions, keyed by a random id.
type Registry struct {
	deps Dependencies

	mu       sync.RWMutex
	sessions map[string]*entry

	reloads sync.WaitGroup
	slots   chan struct{}
}

func NewRegistry(deps Dependencies) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ReloadTimeout <= 0 {
		deps.ReloadTimeout = DefaultReloadTimeout
	}
	return &Registry{
		deps:     deps,
		sessions: make(map[string]*entry),
		slots:    make(chan struct{}, reloadWorkers),
	}
}

// Create registers a session and loads the device document into it. The
// session is kept even when the load fails so the caller can retry with Load.
func (r *Registry) Create(ctx context.Context, clientID string, zone clock.Zone) (*Session, error) {
	id := uuid.NewString()
	s := NewSession(Options{
		ID:       id,
		ClientID: clientID,
		Gateway:  r.deps.Gateway,
		Drafts:   r.deps.Drafts,
		Notifier: r.deps.Notifier,
		Zone:     zone,
		Now:      r.deps.Now,
	})

	r.mu.Lock()
	r.sessions[id] = &entry{session: s, seen: r.deps.Now()}
	r.mu.Unlock()

	return s, s.Load(ctx)
}

// Get looks a session up and marks it as recently used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.seen = r.deps.Now()
	return e.session, true
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Evict drops sessions that have not been looked up for longer than idle and
// returns their ids. A session with a save in flight is kept. An evicted
// session's durable draft stays in the draft repository for a later resume.
func (r *Registry) Evict(idle time.Duration) []string {
	cutoff := r.deps.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []string
	for id, e := range r.sessions {
		if e.seen.After(cutoff) || e.session.Saving() {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, id)
	}
	return evicted
}

// RunEviction calls Evict every interval until ctx is done.
func (r *Registry) RunEviction(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := r.Evict(idle); len(ids) > 0 {
				log.Info().Int("evicted", len(ids)).Int("remaining", r.Len()).Dur("idle", idle).Msg("evicted idle sessions")
			}
		}
	}
}

// Wait blocks until every background reload has finished.
func (r *Registry) Wait() {
	r.reloads.Wait()
}

func (r *Registry) each(fn func(*Session)) {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		list = append(list, e.session)
	}
	r.mu.RUnlock()
	for _, s := range list {
		fn(s)
	}
}

// HandleNotice routes a notice from the device or another console. It does not
// block on the device: saved documents queue a background reload of every
// view-only session, and announced drafts are recorded as remote drafts on
// every session except the one that sent them.
func (r *Registry) HandleNotice(ctx context.Context, n model.Notice) {
	switch n.Action {
	case model.ActionScheduleSaved:
		r.each(func(s *Session) {
			if s.ID() == n.Session || s.Mode() != model.ModeViewOnly {
				return
			}
			r.reload(ctx, s)
		})
	case model.ActionStartCreating, model.ActionStartEditing, model.ActionUpdatePending, model.ActionPendingSchedule:
		r.each(func(s *Session) {
			if s.ID() != n.Session {
				s.ObserveRemoteDraft(n.Data)
			}
		})
	case model.ActionCancelEditing:
		r.each(func(s *Session) {
			if s.ID() != n.Session {
				s.ObserveRemoteDraft(nil)
			}
		})
	}
}

// reload queues one Load of s. A reload already queued for s absorbs the
// request. The reload outlives ctx's cancellation but not ReloadTimeout.
func (r *Registry) reload(ctx context.Context, s *Session) {
	if !s.reloadQueued.CompareAndSwap(false, true) {
		return
	}
	r.reloads.Add(1)
	go func() {
		defer r.reloads.Done()
		r.slots <- struct{}{}
		defer func() { <-r.slots }()

		s.reloadQueued.Store(false)
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.deps.ReloadTimeout)
		defer cancel()
		if err := s.Load(rctx); err != nil {
			log.Warn().Err(err).Str("session", s.ID()).Msg("reload after remote save failed")
		}
	}()
}
