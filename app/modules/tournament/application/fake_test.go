package tournamentservice

import (
	"cmp"
	"context"
	"database/sql"
	"maps"
	"slices"
	"sync"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Repository
// ------------------------

// FakeRepo is an in-memory tournamentdb.Repository. The XxxFunc hooks
// replace the in-memory behaviour of a single method.
type FakeRepo struct {
	mu    sync.Mutex
	trace []string

	events  map[uuid.UUID]*tournamentdb.Event
	teams   map[uuid.UUID]*tournamentdb.Team
	matches map[uuid.UUID]*tournamentdb.Match
	order   []uuid.UUID
	results map[uuid.UUID]map[uuid.UUID]*tournamentdb.MatchResult

	eventLocks   sync.Map
	sessionLocks map[int64]bool

	GetEventFunc         func(ctx context.Context, db bun.IDB, eventID uuid.UUID) (*tournamentdb.Event, error)
	CreateMatchesFunc    func(ctx context.Context, db bun.IDB, matches []*tournamentdb.Match) error
	CountUnfinishedFunc  func(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (int, error)
	DequeueTeamsFunc     func(ctx context.Context, db bun.IDB, teamIDs []uuid.UUID) (int, error)
	SetLockedAtFunc      func(ctx context.Context, db bun.IDB, eventID uuid.UUID, lockedAt *time.Time) error
	AcquireEventLockFunc func(ctx context.Context, db bun.IDB, k1, k2 int32) error
	TryLockFunc          func(ctx context.Context, key int64) (func(context.Context) error, bool, error)
}

var _ tournamentdb.Repository = (*FakeRepo)(nil)

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		trace:        []string{},
		events:       map[uuid.UUID]*tournamentdb.Event{},
		teams:        map[uuid.UUID]*tournamentdb.Team{},
		matches:      map[uuid.UUID]*tournamentdb.Match{},
		results:      map[uuid.UUID]map[uuid.UUID]*tournamentdb.MatchResult{},
		sessionLocks: map[int64]bool{},
	}
}

func (f *FakeRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the repository calls made so far.
func (f *FakeRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.trace)
}

func (f *FakeRepo) count(step string) int {
	n := 0
	for _, s := range f.Trace() {
		if s == step {
			n++
		}
	}
	return n
}

// snapshot and restore give the fake transaction runner rollback.
type repoState struct {
	events  map[uuid.UUID]tournamentdb.Event
	teams   map[uuid.UUID]tournamentdb.Team
	matches map[uuid.UUID]tournamentdb.Match
	order   []uuid.UUID
	results map[uuid.UUID]map[uuid.UUID]tournamentdb.MatchResult
}

func (f *FakeRepo) snapshot() repoState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := repoState{
		events:  map[uuid.UUID]tournamentdb.Event{},
		teams:   map[uuid.UUID]tournamentdb.Team{},
		matches: map[uuid.UUID]tournamentdb.Match{},
		order:   slices.Clone(f.order),
		results: map[uuid.UUID]map[uuid.UUID]tournamentdb.MatchResult{},
	}
	for id, e := range f.events {
		s.events[id] = *e
	}
	for id, t := range f.teams {
		s.teams[id] = *t
	}
	for id, m := range f.matches {
		s.matches[id] = *m
	}
	for id, rs := range f.results {
		s.results[id] = map[uuid.UUID]tournamentdb.MatchResult{}
		for team, r := range rs {
			s.results[id][team] = *r
		}
	}
	return s
}

func (f *FakeRepo) restore(s repoState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = map[uuid.UUID]*tournamentdb.Event{}
	for id, e := range s.events {
		f.events[id] = &e
	}
	f.teams = map[uuid.UUID]*tournamentdb.Team{}
	for id, t := range s.teams {
		f.teams[id] = &t
	}
	f.matches = map[uuid.UUID]*tournamentdb.Match{}
	for id, m := range s.matches {
		f.matches[id] = &m
	}
	f.order = s.order
	f.results = map[uuid.UUID]map[uuid.UUID]*tournamentdb.MatchResult{}
	for id, rs := range s.results {
		f.results[id] = map[uuid.UUID]*tournamentdb.MatchResult{}
		for team, r := range rs {
			f.results[id][team] = &r
		}
	}
}

// --- Seeding helpers ---

func (f *FakeRepo) AddEvent(e tournamentdb.Event) *tournamentdb.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.events[e.ID] = &e
	return &e
}

func (f *FakeRepo) AddTeam(t tournamentdb.Team) *tournamentdb.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.QueueScore == 0 {
		t.QueueScore = tournamentdomain.DefaultRating
	}
	f.teams[t.ID] = &t
	return &t
}

func (f *FakeRepo) Event(id uuid.UUID) tournamentdb.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.events[id]
}

func (f *FakeRepo) Team(id uuid.UUID) tournamentdb.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.teams[id]
}

func (f *FakeRepo) Matches(eventID uuid.UUID, phase tournamentdomain.Phase, round int) []*tournamentdb.Match {
	ms, _ := f.ListMatches(context.Background(), nil, tournamentdb.MatchFilter{EventID: eventID, Phase: &phase, Round: &round})
	return ms
}

// --- EventRepository ---

func (f *FakeRepo) CreateEvent(ctx context.Context, db bun.IDB, event *tournamentdb.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateEvent")
	e := *event
	f.events[e.ID] = &e
	return nil
}

func (f *FakeRepo) GetEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) (*tournamentdb.Event, error) {
	if f.GetEventFunc != nil {
		return f.GetEventFunc(ctx, db, eventID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetEvent")
	e, ok := f.events[eventID]
	if !ok {
		return nil, tournamentdb.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (f *FakeRepo) listEvents(keep func(*tournamentdb.Event) bool) []*tournamentdb.Event {
	var out []*tournamentdb.Event
	for _, e := range f.events {
		if keep(e) {
			c := *e
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *tournamentdb.Event) int { return a.StartsAt.Compare(b.StartsAt) })
	return out
}

func (f *FakeRepo) ListQueueEvents(ctx context.Context, db bun.IDB) ([]*tournamentdb.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListQueueEvents")
	return f.listEvents(func(e *tournamentdb.Event) bool { return e.ProcessQueue && e.LockedAt == nil }), nil
}

func (f *FakeRepo) ListUnlockedEvents(ctx context.Context, db bun.IDB) ([]*tournamentdb.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListUnlockedEvents")
	return f.listEvents(func(e *tournamentdb.Event) bool { return e.LockedAt == nil }), nil
}

func (f *FakeRepo) ListExpiredEvents(ctx context.Context, db bun.IDB, now time.Time) ([]*tournamentdb.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListExpiredEvents")
	return f.listEvents(func(e *tournamentdb.Event) bool { return e.LockedAt == nil && !e.EndsAt.After(now) }), nil
}

func (f *FakeRepo) SetCurrentRound(ctx context.Context, db bun.IDB, eventID uuid.UUID, round int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetCurrentRound")
	e, ok := f.events[eventID]
	if !ok {
		return tournamentdb.ErrNotFound
	}
	e.CurrentRound = round
	return nil
}

func (f *FakeRepo) SetLockedAt(ctx context.Context, db bun.IDB, eventID uuid.UUID, lockedAt *time.Time) error {
	if f.SetLockedAtFunc != nil {
		return f.SetLockedAtFunc(ctx, db, eventID, lockedAt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetLockedAt")
	e, ok := f.events[eventID]
	if !ok {
		return tournamentdb.ErrNotFound
	}
	e.LockedAt = lockedAt
	return nil
}

func (f *FakeRepo) SetActivePhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase *tournamentdomain.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetActivePhase")
	e, ok := f.events[eventID]
	if !ok {
		return tournamentdb.ErrNotFound
	}
	if phase == nil {
		e.ActivePhase = nil
	} else {
		p := *phase
		e.ActivePhase = &p
	}
	return nil
}

// --- TeamRepository ---

func (f *FakeRepo) CreateTeam(ctx context.Context, db bun.IDB, team *tournamentdb.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTeam")
	t := *team
	f.teams[t.ID] = &t
	return nil
}

func (f *FakeRepo) GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*tournamentdb.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetTeam")
	t, ok := f.teams[teamID]
	if !ok {
		return nil, tournamentdb.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (f *FakeRepo) listTeams(keep func(*tournamentdb.Team) bool) []*tournamentdb.Team {
	var out []*tournamentdb.Team
	for _, t := range f.teams {
		if keep(t) {
			c := *t
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *tournamentdb.Team) int { return cmp.Compare(a.ID.String(), b.ID.String()) })
	return out
}

func (f *FakeRepo) ListTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*tournamentdb.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTeams")
	return f.listTeams(func(t *tournamentdb.Team) bool { return t.EventID == eventID }), nil
}

func (f *FakeRepo) ListQueuedTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*tournamentdb.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListQueuedTeams")
	return f.listTeams(func(t *tournamentdb.Team) bool { return t.EventID == eventID && t.InQueue }), nil
}

func (f *FakeRepo) SetInQueue(ctx context.Context, db bun.IDB, teamID uuid.UUID, inQueue bool, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetInQueue")
	t, ok := f.teams[teamID]
	if !ok {
		return tournamentdb.ErrNotFound
	}
	t.InQueue = inQueue
	t.QueuedAt = at
	return nil
}

func (f *FakeRepo) DequeueTeams(ctx context.Context, db bun.IDB, teamIDs []uuid.UUID) (int, error) {
	if f.DequeueTeamsFunc != nil {
		return f.DequeueTeamsFunc(ctx, db, teamIDs)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DequeueTeams")
	n := 0
	for _, id := range teamIDs {
		if t, ok := f.teams[id]; ok && t.InQueue {
			t.InQueue = false
			t.QueuedAt = nil
			n++
		}
	}
	return n, nil
}

func (f *FakeRepo) LockTeams(ctx context.Context, db bun.IDB, teamIDs []uuid.UUID) ([]*tournamentdb.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LockTeams")
	ids := slices.Clone(teamIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return cmp.Compare(a.String(), b.String()) })
	ids = slices.Compact(ids)
	out := make([]*tournamentdb.Team, 0, len(ids))
	for _, id := range ids {
		t, ok := f.teams[id]
		if !ok {
			return nil, tournamentdb.ErrNotFound
		}
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

func (f *FakeRepo) IncrementScore(ctx context.Context, db bun.IDB, teamID uuid.UUID, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("IncrementScore")
	t, ok := f.teams[teamID]
	if !ok {
		return 0, tournamentdb.ErrNotFound
	}
	t.Score += delta
	return t.Score, nil
}

func (f *FakeRepo) SetQueueScore(ctx context.Context, db bun.IDB, teamID uuid.UUID, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetQueueScore")
	t, ok := f.teams[teamID]
	if !ok {
		return tournamentdb.ErrNotFound
	}
	t.QueueScore = score
	return nil
}

func (f *FakeRepo) MarkBye(ctx context.Context, db bun.IDB, teamID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MarkBye")
	t, ok := f.teams[teamID]
	if !ok {
		return tournamentdb.ErrNotFound
	}
	t.HadBye = true
	return nil
}

func (f *FakeRepo) SetBuchholz(ctx context.Context, db bun.IDB, points map[uuid.UUID]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetBuchholz")
	for id, p := range points {
		if t, ok := f.teams[id]; ok {
			t.BuchholzPoints = p
		}
	}
	return nil
}

func (f *FakeRepo) ResetSwissStandings(ctx context.Context, db bun.IDB, eventID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ResetSwissStandings")
	for _, t := range f.teams {
		if t.EventID == eventID {
			t.Score = 0
			t.HadBye = false
			t.BuchholzPoints = 0
		}
	}
	return nil
}

// --- MatchRepository ---

func (f *FakeRepo) CreateMatches(ctx context.Context, db bun.IDB, matches []*tournamentdb.Match) error {
	if f.CreateMatchesFunc != nil {
		return f.CreateMatchesFunc(ctx, db, matches)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateMatches")
	for _, m := range matches {
		c := *m
		c.Results = nil
		f.matches[c.ID] = &c
		f.order = append(f.order, c.ID)
	}
	return nil
}

func (f *FakeRepo) withResults(m *tournamentdb.Match) *tournamentdb.Match {
	out := *m
	out.Results = nil
	rs := f.results[m.ID]
	for _, team := range slices.SortedFunc(maps.Keys(rs), func(a, b uuid.UUID) int { return cmp.Compare(a.String(), b.String()) }) {
		r := *rs[team]
		out.Results = append(out.Results, &r)
	}
	return &out
}

func (f *FakeRepo) GetMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*tournamentdb.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetMatch")
	m, ok := f.matches[matchID]
	if !ok {
		return nil, tournamentdb.ErrNotFound
	}
	return f.withResults(m), nil
}

func (f *FakeRepo) ListMatches(ctx context.Context, db bun.IDB, filter tournamentdb.MatchFilter) ([]*tournamentdb.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListMatches")
	var out []*tournamentdb.Match
	for _, id := range f.order {
		m := f.matches[id]
		if m.EventID != filter.EventID {
			continue
		}
		if filter.Phase != nil && m.Phase != *filter.Phase {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.State != nil && m.State != *filter.State {
			continue
		}
		out = append(out, f.withResults(m))
	}
	slices.SortStableFunc(out, func(a, b *tournamentdb.Match) int {
		if c := cmp.Compare(a.Round, b.Round); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})
	return out, nil
}

func (f *FakeRepo) countMatches(eventID uuid.UUID, phase tournamentdomain.Phase, round int, keep func(*tournamentdb.Match) bool) int {
	n := 0
	for _, m := range f.matches {
		if m.EventID == eventID && m.Phase == phase && m.Round == round && keep(m) {
			n++
		}
	}
	return n
}

func (f *FakeRepo) CountMatches(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountMatches")
	return f.countMatches(eventID, phase, round, func(*tournamentdb.Match) bool { return true }), nil
}

func (f *FakeRepo) CountUnfinished(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (int, error) {
	if f.CountUnfinishedFunc != nil {
		return f.CountUnfinishedFunc(ctx, db, eventID, phase, round)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountUnfinished")
	return f.countMatches(eventID, phase, round, func(m *tournamentdb.Match) bool {
		return m.State != tournamentdomain.MatchFinished
	}), nil
}

func (f *FakeRepo) ListBusyTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListBusyTeams")
	seen := map[uuid.UUID]bool{}
	var busy []uuid.UUID
	for _, id := range f.order {
		m := f.matches[id]
		if m.EventID != eventID || m.Phase != phase || m.State == tournamentdomain.MatchFinished {
			continue
		}
		for _, team := range []uuid.UUID{m.Team1ID, m.Team2ID} {
			if !seen[team] {
				seen[team] = true
				busy = append(busy, team)
			}
		}
	}
	return busy, nil
}

func (f *FakeRepo) StartMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("StartMatch")
	m, ok := f.matches[matchID]
	if !ok || m.State != tournamentdomain.MatchPlanned {
		return tournamentdb.ErrNoRowsAffected
	}
	m.State = tournamentdomain.MatchInProgress
	m.StartedAt = &at
	return nil
}

func (f *FakeRepo) FinishMatch(ctx context.Context, db bun.IDB, matchID, winnerID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FinishMatch")
	m, ok := f.matches[matchID]
	if !ok || m.State != tournamentdomain.MatchInProgress {
		return tournamentdb.ErrNoRowsAffected
	}
	m.State = tournamentdomain.MatchFinished
	m.WinnerID = &winnerID
	m.FinishedAt = &at
	return nil
}

func (f *FakeRepo) UpsertResult(ctx context.Context, db bun.IDB, result *tournamentdb.MatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpsertResult")
	if f.results[result.MatchID] == nil {
		f.results[result.MatchID] = map[uuid.UUID]*tournamentdb.MatchResult{}
	}
	r := *result
	f.results[result.MatchID][result.TeamID] = &r
	return nil
}

func (f *FakeRepo) RevealMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RevealMatch")
	m, ok := f.matches[matchID]
	if !ok {
		return tournamentdb.ErrNotFound
	}
	m.IsRevealed = true
	return nil
}

func (f *FakeRepo) RevealPhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RevealPhase")
	n := 0
	for _, m := range f.matches {
		if m.EventID == eventID && m.Phase == phase && !m.IsRevealed {
			m.IsRevealed = true
			n++
		}
	}
	return n, nil
}

func (f *FakeRepo) DeletePhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeletePhase")
	n := 0
	kept := f.order[:0]
	for _, id := range f.order {
		m := f.matches[id]
		if m.EventID == eventID && m.Phase == phase {
			delete(f.matches, id)
			delete(f.results, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	f.order = kept
	return n, nil
}

// --- LockRepository ---

func (f *FakeRepo) AcquireEventLock(ctx context.Context, db bun.IDB, k1, k2 int32) error {
	if f.AcquireEventLockFunc != nil {
		return f.AcquireEventLockFunc(ctx, db, k1, k2)
	}
	f.mu.Lock()
	f.record("AcquireEventLock")
	f.mu.Unlock()

	scope, ok := ctx.Value(txScopeKey{}).(*txScope)
	if !ok {
		panic("AcquireEventLock called outside a transaction")
	}
	v, _ := f.eventLocks.LoadOrStore([2]int32{k1, k2}, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	scope.onEnd(mu.Unlock)
	return nil
}

func (f *FakeRepo) TryLock(ctx context.Context, key int64) (func(context.Context) error, bool, error) {
	if f.TryLockFunc != nil {
		return f.TryLockFunc(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("TryLock")
	if f.sessionLocks[key] {
		return nil, false, nil
	}
	f.sessionLocks[key] = true
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.sessionLocks, key)
		return nil
	}, true, nil
}

// ------------------------
// Fake Transaction Runner
// ------------------------

type txScopeKey struct{}

// txScope collects the transaction-scoped locks to release at commit or rollback.
type txScope struct {
	releases []func()
}

func (s *txScope) onEnd(fn func()) {
	s.releases = append(s.releases, fn)
}

// FakeTxRunner runs fn against the in-memory repository and restores the
// previous state when fn fails.
type FakeTxRunner struct {
	repo *FakeRepo

	mu         sync.Mutex
	commits    int
	rollbacks  int
	RunInTxErr error
}

func NewFakeTxRunner(repo *FakeRepo) *FakeTxRunner {
	return &FakeTxRunner{repo: repo}
}

func (r *FakeTxRunner) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	if r.RunInTxErr != nil {
		return r.RunInTxErr
	}
	scope := &txScope{}
	defer func() {
		for i := len(scope.releases) - 1; i >= 0; i-- {
			scope.releases[i]()
		}
	}()

	ctx = context.WithValue(ctx, txScopeKey{}, scope)
	before := r.repo.snapshot()
	if err := fn(ctx, bun.Tx{}); err != nil {
		r.repo.restore(before)
		r.mu.Lock()
		r.rollbacks++
		r.mu.Unlock()
		return err
	}
	r.mu.Lock()
	r.commits++
	r.mu.Unlock()
	return nil
}

func (r *FakeTxRunner) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}

// ------------------------
// Fake Outbound Ports
// ------------------------

type FakeDispatcher struct {
	mu           sync.Mutex
	dispatched   []tournamentevents.MatchDispatchRequestedPayloadV1
	DispatchFunc func(ctx context.Context, payload tournamentevents.MatchDispatchRequestedPayloadV1) error
}

func (f *FakeDispatcher) Dispatch(ctx context.Context, payload tournamentevents.MatchDispatchRequestedPayloadV1) error {
	f.mu.Lock()
	f.dispatched = append(f.dispatched, payload)
	f.mu.Unlock()
	if f.DispatchFunc != nil {
		return f.DispatchFunc(ctx, payload)
	}
	return nil
}

func (f *FakeDispatcher) Dispatched() []tournamentevents.MatchDispatchRequestedPayloadV1 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.dispatched)
}

type FakeNotifier struct {
	mu        sync.Mutex
	advanced  []tournamentevents.RoundAdvancedPayloadV1
	completed []tournamentevents.PhaseCompletedPayloadV1
}

func (f *FakeNotifier) RoundAdvanced(ctx context.Context, payload tournamentevents.RoundAdvancedPayloadV1) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced = append(f.advanced, payload)
	return nil
}

func (f *FakeNotifier) PhaseCompleted(ctx context.Context, payload tournamentevents.PhaseCompletedPayloadV1) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, payload)
	return nil
}

func (f *FakeNotifier) Advanced() []tournamentevents.RoundAdvancedPayloadV1 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.advanced)
}

func (f *FakeNotifier) Completed() []tournamentevents.PhaseCompletedPayloadV1 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.completed)
}

type FakeAccess struct {
	mu         sync.Mutex
	revoked    []uuid.UUID
	granted    []uuid.UUID
	RevokeFunc func(ctx context.Context, payload tournamentevents.RepositoryAccessPayloadV1) error
}

func (f *FakeAccess) Revoke(ctx context.Context, payload tournamentevents.RepositoryAccessPayloadV1) error {
	if f.RevokeFunc != nil {
		if err := f.RevokeFunc(ctx, payload); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, payload.TeamID)
	return nil
}

func (f *FakeAccess) Grant(ctx context.Context, payload tournamentevents.RepositoryAccessPayloadV1) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted = append(f.granted, payload.TeamID)
	return nil
}

var (
	_ TxRunner            = (*FakeTxRunner)(nil)
	_ ExecutionDispatcher = (*FakeDispatcher)(nil)
	_ Notifier            = (*FakeNotifier)(nil)
	_ RepositoryAccess    = (*FakeAccess)(nil)
)
