package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

// Options wires a Session to its collaborators. Gateway is required; Drafts and
// Notifier default to no-ops and Zone to the process' local zone.
type Options struct {
	ID       string
	ClientID string
	Gateway  Gateway
	Drafts   DraftRepository
	Notifier Notifier
	Zone     clock.Zone
	Now      func() time.Time
}

// Session is one client's view of the scheduler document plus at most one open
// create or edit draft. All methods are safe for concurrent use. A save releases
// the lock for the duration of the device round trip; mutations attempted in the
// meantime fail with ErrSaveInFlight.
type Session struct {
	id       string
	clientID string
	gateway  Gateway
	drafts   DraftRepository
	notifier Notifier
	conv     clock.Converter
	now      func() time.Time

	mu        sync.Mutex
	state     model.SchedulerState
	mode      model.Mode
	pending   *model.Schedule
	original  string
	editIndex int
	saving    bool
	remote    *model.Schedule

	reloadQueued atomic.Bool
}

func NewSession(opts Options) *Session {
	s := &Session{
		id:        opts.ID,
		clientID:  opts.ClientID,
		gateway:   opts.Gateway,
		drafts:    opts.Drafts,
		notifier:  opts.Notifier,
		conv:      clock.NewConverter(opts.Zone),
		now:       opts.Now,
		mode:      model.ModeViewOnly,
		editIndex: -1,
		state:     model.SchedulerState{Schedules: []model.Schedule{}},
	}
	if s.clientID == "" {
		s.clientID = s.id
	}
	if s.drafts == nil {
		s.drafts = nopDrafts{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Session) ID() string       { return s.id }
func (s *Session) ClientID() string { return s.clientID }

// Converter exposes the session's wall clock conversions.
func (s *Session) Converter() clock.Converter { return s.conv }

// View is a consistent snapshot of a session. Schedule times are canonical.
type View struct {
	ID                   string           `json:"id"`
	ClientID             string           `json:"clientId"`
	Mode                 model.Mode       `json:"mode"`
	CurrentScheduleIndex int              `json:"currentScheduleIndex"`
	Schedules            []model.Schedule `json:"schedules"`
	Pending              *model.Schedule  `json:"pendingSchedule,omitempty"`
	RemoteDraft          *model.Schedule  `json:"remoteDraft,omitempty"`
	Saving               bool             `json:"saving"`
	Conflicts            []model.Conflict `json:"conflicts"`
	UTCOffset            int              `json:"utcOffset"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.Clone()
	v := View{
		ID:                   s.id,
		ClientID:             s.clientID,
		Mode:                 s.mode,
		CurrentScheduleIndex: st.CurrentScheduleIndex,
		Schedules:            st.Schedules,
		Saving:               s.saving,
		Conflicts:            FindRelayConflicts(st.Schedules),
		UTCOffset:            s.conv.Zone.Offset(),
	}
	if s.pending != nil {
		p := s.pending.Clone()
		v.Pending = &p
	}
	if s.remote != nil {
		r := s.remote.Clone()
		v.RemoteDraft = &r
	}
	return v
}

// State returns a copy of the last committed document.
func (s *Session) State() model.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Saving reports whether a device save is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

func (s *Session) Mode() model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Load replaces the committed document with the device's copy. On error the
// previous document is kept. An open draft survives the reload.
func (s *Session) Load(ctx context.Context) error {
	state, err := s.gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Schedules == nil {
		state.Schedules = []model.Schedule{}
	}
	if n := len(state.Schedules); state.CurrentScheduleIndex < 0 || state.CurrentScheduleIndex >= n {
		state.CurrentScheduleIndex = 0
	}
	s.state = state
	if s.mode == model.ModeEditing {
		s.editIndex = indexOf(s.state.Schedules, s.original)
		if s.editIndex >= 0 {
			s.state.CurrentScheduleIndex = s.editIndex
		}
	}
	return nil
}

// Select moves the current schedule. It is refused while a draft is open.
func (s *Session) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != model.ModeViewOnly {
		return ErrAlreadyEditing
	}
	if index < 0 || index >= len(s.state.Schedules) {
		return fmt.Errorf("schedule %d: %w", index, ErrIndexOutOfRange)
	}
	s.state.CurrentScheduleIndex = index
	return nil
}

// StartCreate opens a draft for a new schedule. The committed list is untouched.
// It fails with ErrDraftPending while another session's draft is stored for the
// same client.
func (s *Session) StartCreate(ctx context.Context, name string) error {
	if err := s.checkForeignDraft(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.canStartLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(s.state.Schedules) >= MaxSchedules {
		s.mu.Unlock()
		return fmt.Errorf("%w (max %d)", ErrTooManySchedules, MaxSchedules)
	}
	draft := NewSchedule(name, s.now())
	s.pending = &draft
	s.mode = model.ModeCreating
	s.original = ""
	s.editIndex = -1
	notice := s.openLocked(ctx, model.ActionStartCreating)
	s.mu.Unlock()

	s.publish(ctx, notice)
	return nil
}

// StartEdit opens a draft holding a deep copy of schedules[index].
func (s *Session) StartEdit(ctx context.Context, index int) error {
	if err := s.checkForeignDraft(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.canStartLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(s.state.Schedules) {
		s.mu.Unlock()
		return fmt.Errorf("schedule %d: %w", index, ErrIndexOutOfRange)
	}
	draft := s.state.Schedules[index].Clone()
	s.pending = &draft
	s.mode = model.ModeEditing
	s.original = draft.Name
	s.editIndex = index
	s.state.CurrentScheduleIndex = index
	notice := s.openLocked(ctx, model.ActionStartEditing)
	s.mu.Unlock()

	s.publish(ctx, notice)
	return nil
}

// PendingUpdate changes draft fields. Nil fields are left alone. Light times are
// the caller's wall clock and are stored canonical.
type PendingUpdate struct {
	Name          *string
	LightsOnTime  *string
	LightsOffTime *string
	RelayMask     *uint8
}

func (s *Session) UpdatePending(ctx context.Context, u PendingUpdate) error {
	return s.mutate(ctx, func(p *model.Schedule, self int, others []model.Schedule) error {
		if u.Name != nil {
			if err := validateName(*u.Name, self, others); err != nil {
				return err
			}
		}
		for _, t := range []*string{u.LightsOnTime, u.LightsOffTime} {
			if t != nil && !clock.Valid(*t) {
				return fmt.Errorf("%w: %q", ErrInvalidTime, *t)
			}
		}
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.LightsOnTime != nil {
			p.LightsOnTime = s.conv.ToCanonical(*u.LightsOnTime)
		}
		if u.LightsOffTime != nil {
			p.LightsOffTime = s.conv.ToCanonical(*u.LightsOffTime)
		}
		if u.RelayMask != nil {
			p.RelayMask = *u.RelayMask
		}
		return nil
	})
}

// AddEvent expands an event into the draft. start is the caller's wall clock.
func (s *Session) AddEvent(ctx context.Context, start string, duration, repeatCount, repeatInterval int) (int, error) {
	if !clock.Valid(start) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, start)
	}
	added := 0
	err := s.mutate(ctx, func(p *model.Schedule, _ int, _ []model.Schedule) error {
		n, err := AddEvent(p, s.conv.ToCanonical(start), duration, repeatCount, repeatInterval, s.now())
		added = n
		return err
	})
	return added, err
}

// UpdateEvent changes one draft event. start is the caller's wall clock.
func (s *Session) UpdateEvent(ctx context.Context, index int, start string, duration int) error {
	if !clock.Valid(start) {
		return fmt.Errorf("%w: %q", ErrInvalidTime, start)
	}
	return s.mutate(ctx, func(p *model.Schedule, _ int, _ []model.Schedule) error {
		return UpdateEvent(p, index, s.conv.ToCanonical(start), duration)
	})
}

func (s *Session) DeleteEvent(ctx context.Context, index int) error {
	return s.mutate(ctx, func(p *model.Schedule, _ int, _ []model.Schedule) error {
		return DeleteEvent(p, index)
	})
}

// mutate applies fn to a copy of the draft and swaps it in only on success.
func (s *Session) mutate(ctx context.Context, fn func(p *model.Schedule, self int, others []model.Schedule) error) error {
	s.mu.Lock()
	if s.mode == model.ModeViewOnly || s.pending == nil {
		s.mu.Unlock()
		return ErrReadOnly
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	next := s.pending.Clone()
	if err := fn(&next, s.editIndex, s.state.Schedules); err != nil {
		s.mu.Unlock()
		return err
	}
	s.pending = &next
	notice := s.openLocked(ctx, model.ActionUpdatePending)
	s.mu.Unlock()

	s.publish(ctx, notice)
	return nil
}

// CommitResult carries the advisory conflicts found on the saved document.
type CommitResult struct {
	Index     int              `json:"index"`
	Conflicts []model.Conflict `json:"conflicts"`
	Device    model.SaveResult `json:"device"`
}

// Commit validates the draft, folds it into a copy of the document and saves the
// whole document. The session returns to view-only only when the device accepts
// the save; on failure the draft stays open for a retry.
func (s *Session) Commit(ctx context.Context) (CommitResult, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return CommitResult{}, ErrSaveInFlight
	}
	if s.mode == model.ModeViewOnly || s.pending == nil {
		s.mu.Unlock()
		return CommitResult{}, ErrNotEditing
	}
	if err := validateName(s.pending.Name, s.editIndex, s.state.Schedules); err != nil {
		s.mu.Unlock()
		return CommitResult{}, err
	}

	next := s.state.Clone()
	committed := s.pending.Clone()
	switch s.mode {
	case model.ModeCreating:
		if len(next.Schedules) >= MaxSchedules {
			s.mu.Unlock()
			return CommitResult{}, fmt.Errorf("%w (max %d)", ErrTooManySchedules, MaxSchedules)
		}
		next.Schedules = append(next.Schedules, committed)
		next.CurrentScheduleIndex = len(next.Schedules) - 1
	case model.ModeEditing:
		if s.editIndex < 0 || s.editIndex >= len(next.Schedules) {
			s.mu.Unlock()
			return CommitResult{}, fmt.Errorf("%q: %w", s.original, ErrDraftStale)
		}
		next.Schedules[s.editIndex] = committed
		next.CurrentScheduleIndex = s.editIndex
	}

	result := CommitResult{Index: next.CurrentScheduleIndex, Conflicts: FindRelayConflicts(next.Schedules)}
	for _, c := range result.Conflicts {
		log.Warn().Int("relay", c.Relay).Strs("schedules", c.Schedules).Str("session", s.id).Msg("relay assigned to more than one schedule")
	}
	s.saving = true
	s.mu.Unlock()

	saved, err := s.gateway.Save(ctx, next)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.mu.Unlock()
		return result, fmt.Errorf("save schedules: %w", err)
	}
	result.Device = saved
	s.state = next
	s.closeLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, model.Notice{Action: model.ActionScheduleSaved, ScheduleID: committed.Name, Data: &committed, Session: s.id, ClientID: s.clientID})
	return result, nil
}

// Cancel drops the draft, in memory and in the draft repository.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if s.mode == model.ModeViewOnly {
		s.mu.Unlock()
		return ErrNotEditing
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	id := s.original
	if id == "" && s.pending != nil {
		id = s.pending.Name
	}
	s.closeLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, model.Notice{Action: model.ActionCancelEditing, ScheduleID: id, Session: s.id, ClientID: s.clientID})
	return nil
}

// DeleteSchedule removes a committed schedule and saves immediately. The current
// index is clamped to the shortened list. Nothing changes if the save fails.
func (s *Session) DeleteSchedule(ctx context.Context, index int) error {
	s.mu.Lock()
	if s.mode != model.ModeViewOnly {
		s.mu.Unlock()
		return ErrAlreadyEditing
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	if index < 0 || index >= len(s.state.Schedules) {
		s.mu.Unlock()
		return fmt.Errorf("schedule %d: %w", index, ErrIndexOutOfRange)
	}
	next := s.state.Clone()
	removed := next.Schedules[index].Name
	next.Schedules = append(next.Schedules[:index], next.Schedules[index+1:]...)
	if next.CurrentScheduleIndex >= len(next.Schedules) {
		next.CurrentScheduleIndex = max(0, len(next.Schedules)-1)
	}
	s.saving = true
	s.mu.Unlock()

	_, err := s.gateway.Save(ctx, next)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save schedules: %w", err)
	}
	s.state = next
	s.mu.Unlock()

	s.publish(ctx, model.Notice{Action: model.ActionScheduleSaved, ScheduleID: removed, Session: s.id, ClientID: s.clientID})
	return nil
}

// PendingDraft peeks at the durable draft left by an earlier session of the
// same client. It returns nil when there is none.
func (s *Session) PendingDraft(ctx context.Context) (*model.Draft, error) {
	return s.drafts.Load(ctx, s.clientID)
}

// Resume reopens the durable draft. An edit draft is matched back to its
// schedule by its recorded index when the name there still agrees, otherwise by
// name. Two sessions resuming the same draft both succeed; the last commit wins.
func (s *Session) Resume(ctx context.Context) error {
	draft, err := s.drafts.Load(ctx, s.clientID)
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return ErrNoDraft
	}

	s.mu.Lock()
	if err := s.canStartLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	action := model.ActionStartCreating
	switch draft.Mode {
	case model.ModeCreating:
		if len(s.state.Schedules) >= MaxSchedules {
			s.mu.Unlock()
			return fmt.Errorf("%w (max %d)", ErrTooManySchedules, MaxSchedules)
		}
		s.editIndex = -1
		s.original = ""
	case model.ModeEditing:
		idx := -1
		if draft.Index >= 0 && draft.Index < len(s.state.Schedules) && s.state.Schedules[draft.Index].Name == draft.Original {
			idx = draft.Index
		} else if draft.Original != "" {
			idx = indexOf(s.state.Schedules, draft.Original)
		}
		if idx < 0 {
			s.mu.Unlock()
			return fmt.Errorf("%q: %w", draft.Original, ErrDraftStale)
		}
		s.editIndex = idx
		s.original = s.state.Schedules[idx].Name
		s.state.CurrentScheduleIndex = idx
		action = model.ActionStartEditing
	default:
		s.mu.Unlock()
		return fmt.Errorf("draft mode %q: %w", draft.Mode, ErrNoDraft)
	}
	pending := draft.Schedule.Clone()
	if pending.Events == nil {
		pending.Events = []model.Event{}
	}
	s.pending = &pending
	s.mode = draft.Mode
	notice := s.openLocked(ctx, action)
	s.mu.Unlock()

	s.publish(ctx, notice)
	return nil
}

// Discard deletes the durable draft without opening it.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()
	if mode != model.ModeViewOnly {
		return ErrAlreadyEditing
	}
	if err := s.drafts.Clear(ctx, s.clientID); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

// ObserveRemoteDraft records a draft another client announced. It is shown to
// the user but never replaces the local draft. nil clears it.
func (s *Session) ObserveRemoteDraft(draft *model.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if draft == nil {
		s.remote = nil
		return
	}
	c := draft.Clone()
	s.remote = &c
}

// Timeline projects schedule index, or the open draft (falling back to the
// current schedule) when index is negative.
func (s *Session) Timeline(index int) (Projection, error) {
	s.mu.Lock()
	var target model.Schedule
	switch {
	case index < 0 && s.pending != nil:
		target = s.pending.Clone()
	case index < 0:
		index = s.state.CurrentScheduleIndex
		fallthrough
	default:
		if index < 0 || index >= len(s.state.Schedules) {
			s.mu.Unlock()
			return Projection{}, fmt.Errorf("schedule %d: %w", index, ErrIndexOutOfRange)
		}
		target = s.state.Schedules[index].Clone()
	}
	s.mu.Unlock()
	return Project(target, s.conv)
}

// Marker places a marker position on the session's timeline.
func (s *Session) Marker(pos model.Marker) model.Marker {
	return MarkerIn(pos, s.conv)
}

// Conflicts re-derives relay conflicts from the committed document.
func (s *Session) Conflicts() []model.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FindRelayConflicts(s.state.Schedules)
}

// Active lists committed schedules that drive relays, in the session's zone.
func (s *Session) Active() []ActiveSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Active(s.state.Schedules, s.conv)
}

// EnrichStatus fills the optional status fields the device left out, from the
// committed document and the current time.
func (s *Session) EnrichStatus(st model.Status) model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if st.ScheduleCount == nil {
		n := len(s.state.Schedules)
		st.ScheduleCount = &n
	}
	if st.LightCondition == "" && len(s.state.Schedules) > 0 {
		cur := s.state.Schedules[s.state.CurrentScheduleIndex]
		on, errOn := clock.Parse(cur.LightsOnTime)
		off, errOff := clock.Parse(cur.LightsOffTime)
		if errOn == nil && errOff == nil {
			st.LightCondition = "off"
			if LightsOn(on, off, clock.MinuteOfDay(now.UTC())) {
				st.LightCondition = "on"
			}
		}
	}
	if st.NextEvent == nil {
		st.NextEvent = NextEvent(s.state.Schedules, now)
	}
	return st
}

func (s *Session) canStartLocked() error {
	if s.mode != model.ModeViewOnly {
		return ErrAlreadyEditing
	}
	if s.saving {
		return ErrSaveInFlight
	}
	return nil
}

// checkForeignDraft refuses to open a draft over one written by another session
// of the same client, since opening would overwrite it. A draft store that
// cannot be read does not block editing.
func (s *Session) checkForeignDraft(ctx context.Context) error {
	draft, err := s.drafts.Load(ctx, s.clientID)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Str("client", s.clientID).Msg("could not check for a pending draft")
		return nil
	}
	if draft != nil && draft.Session != s.id {
		return ErrDraftPending
	}
	return nil
}

// openLocked writes the draft through and returns the notice to publish once
// the lock is released. A failing draft store is logged, not fatal: the draft
// is still live in memory.
func (s *Session) openLocked(ctx context.Context, action string) model.Notice {
	draft := model.Draft{
		ClientID: s.clientID,
		Session:  s.id,
		Mode:     s.mode,
		Index:    s.editIndex,
		Original: s.original,
		Schedule: s.pending.Clone(),
		SavedAt:  s.now().UTC(),
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		log.Error().Err(err).Str("session", s.id).Str("client", s.clientID).Msg("failed to persist pending schedule")
	}

	id := s.original
	if id == "" {
		id = s.pending.Name
	}
	data := draft.Schedule
	return model.Notice{Action: action, ScheduleID: id, Data: &data, Session: s.id, ClientID: s.clientID}
}

func (s *Session) closeLocked(ctx context.Context) {
	s.mode = model.ModeViewOnly
	s.pending = nil
	s.original = ""
	s.editIndex = -1
	if err := s.drafts.Clear(ctx, s.clientID); err != nil {
		log.Error().Err(err).Str("session", s.id).Str("client", s.clientID).Msg("failed to clear pending schedule")
	}
}

func (s *Session) publish(ctx context.Context, notice model.Notice) {
	if err := s.notifier.Publish(ctx, notice); err != nil {
		log.Debug().Err(err).Str("action", notice.Action).Str("session", s.id).Msg("live notice dropped")
	}
}

func validateName(name string, self int, schedules []model.Schedule) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	for i, sc := range schedules {
		if i != self && sc.Name == name {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	return nil
}

func indexOf(schedules []model.Schedule, name string) int {
	for i, sc := range schedules {
		if sc.Name == name {
			return i
		}
	}
	return -1
}

type nopDrafts struct{}

func (nopDrafts) Save(context.Context, model.Draft) error            { return nil }
func (nopDrafts) Load(context.Context, string) (*model.Draft, error) { return nil, nil }
func (nopDrafts) Clear(context.Context, string) error                { return nil }
