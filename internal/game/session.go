package game

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/docstore"
	"github.com/scythe504/wavelength-backend/internal/random"
	"github.com/scythe504/wavelength-backend/internal/themes"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	// maxSettleSteps bounds the chain of derived transitions one local call
	// may trigger.
	maxSettleSteps = 8
)

type Options struct {
	RoomId string
	// SelfId is the player this replica acts for. Required for replicated
	// sessions.
	SelfId   string
	Catalog  *themes.Catalog
	Rand     random.Source
	Debounce time.Duration
	Now      func() time.Time
	// OnChange receives a copy of the projection after every change. It is
	// called without the session lock held.
	OnChange func(internal.SessionState)
}

func (o Options) withDefaults() (Options, error) {
	if o.Catalog == nil {
		o.Catalog = themes.Default()
	}
	if o.Rand == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return o, err
		}
		o.Rand = random.New(seed)
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o, nil
}

// Session is one replica's view of a room plus the operations a player can
// perform on it. In local mode it owns the state outright; in replicated
// mode it holds a projection of the shared document and, when it is the
// host, evaluates derived transitions.
type Session struct {
	mu sync.Mutex

	roomId string
	selfId string
	local  bool
	state  internal.SessionState
	sink   StateSink

	orchestrator *Orchestrator
	aggregator   *Aggregator
	scorer       *Scorer
	rng          random.Source
	debounce     time.Duration
	now          func() time.Time
	onChange     func(internal.SessionState)

	ctx         context.Context
	cancel      context.CancelFunc
	pending     map[stepKey]pendingCheck
	committed   map[stepKey]bool
	npcHandled  map[stepKey]bool
	unsubscribe func()
}

func newSession(opts Options) (*Session, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		roomId:       opts.RoomId,
		selfId:       opts.SelfId,
		orchestrator: NewOrchestrator(opts.Catalog, opts.Rand),
		aggregator:   NewAggregator(opts.Rand),
		scorer:       NewScorer(opts.Rand),
		rng:          opts.Rand,
		debounce:     opts.Debounce,
		now:          opts.Now,
		onChange:     opts.OnChange,
		ctx:          ctx,
		cancel:       cancel,
		pending:      make(map[stepKey]pendingCheck),
		committed:    make(map[stepKey]bool),
		npcHandled:   make(map[stepKey]bool),
	}, nil
}

// NewLocalSession starts a single-device room hosted by host. Every
// transition runs synchronously inside the call that caused it.
func NewLocalSession(opts Options, host internal.Player) (*Session, error) {
	if opts.RoomId == "" {
		opts.RoomId = "local"
	}
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	if host.Id == "" {
		host.Id = "p1"
	}
	if host.Title == "" {
		host.Title = internal.DefaultTitle
	}
	host.IsReady = true
	s.local = true
	s.selfId = host.Id
	s.state = internal.NewSessionState(s.roomId, host)
	s.sink = NewLocalSink(&s.state, s.nowMillis)
	return s, nil
}

// JoinReplicated attaches to an existing room document as opts.SelfId.
func JoinReplicated(ctx context.Context, opts Options, store docstore.Store) (*Session, error) {
	if opts.RoomId == "" || opts.SelfId == "" {
		return nil, internal.Invalid("room and player are required")
	}
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	state, err := LoadRoom(ctx, store, opts.RoomId)
	if err != nil {
		return nil, err
	}
	if _, ok := state.Players[opts.SelfId]; !ok {
		return nil, fmt.Errorf("%w: %s", internal.ErrUnknownPlayer, opts.SelfId)
	}
	s.state = state
	s.sink = NewReplicatedSink(store, opts.RoomId, s.isHostLocked, s.nowMillis)

	unsubscribe, err := store.Subscribe(s.ctx, opts.RoomId, s.observeDocument)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("subscribe room %s: %w", opts.RoomId, err)
	}
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	log.Info().Str("room", s.roomId).Str("player", s.selfId).Bool("host", state.IsHost(s.selfId)).
		Msg("[JoinReplicated] attached")
	return s, nil
}

// Close stops pending evaluations and the subscription.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancel()
	for key := range s.pending {
		s.cancelPendingLocked(key)
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *Session) RoomId() string { return s.roomId }
func (s *Session) SelfId() string { return s.selfId }

// Snapshot returns a copy of the current projection.
func (s *Session) Snapshot() internal.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isHostLocked()
}

func (s *Session) isHostLocked() bool {
	return s.local || s.state.IsHost(s.selfId)
}

func (s *Session) requireHostLocked() error {
	if !s.isHostLocked() {
		return internal.ErrNotHost
	}
	return nil
}

// requireOwnerLocked checks that this replica may write playerId's fields.
// A local device speaks for everyone at the table.
func (s *Session) requireOwnerLocked(playerId string) error {
	if _, ok := s.state.Players[playerId]; !ok {
		return fmt.Errorf("%w: %s", internal.ErrUnknownPlayer, playerId)
	}
	if !s.local && playerId != s.selfId {
		return internal.ErrNotOwner
	}
	return nil
}

// unlockAndNotify releases the lock and hands OnChange a snapshot.
func (s *Session) unlockAndNotify() {
	fn := s.onChange
	var snap internal.SessionState
	if fn != nil {
		snap = s.state.Clone()
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// observeDocument replaces the projection with a remote snapshot.
func (s *Session) observeDocument(doc docstore.Document) {
	if doc == nil {
		log.Warn().Str("room", s.roomId).Msg("[observeDocument] room deleted")
		return
	}
	state, err := internal.DecodeState(doc)
	if err != nil {
		log.Error().Err(err).Str("room", s.roomId).Msg("[observeDocument] undecodable document")
		return
	}

	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.ctx.Err() != nil {
		return
	}
	s.state = state
	if s.isHostLocked() {
		s.reactLocked()
	}
}

// reactLocked is the host's response to an observed change: drive NPCs and
// schedule a deferred check if the step looks complete.
func (s *Session) reactLocked() {
	s.driveNPCsLocked(s.ctx)
	if _, ok := PendingTransition(s.state); ok {
		s.scheduleLocked(keyOf(s.state))
	}
}

// settleLocked runs derived transitions to a fixed point in local mode.
func (s *Session) settleLocked(ctx context.Context) error {
	if !s.local {
		return nil
	}
	for i := 0; i < maxSettleSteps; i++ {
		progressed := s.driveNPCsLocked(ctx)
		key := keyOf(s.state)
		if next, ok := PendingTransition(s.state); ok && !s.committed[key] {
			if err := s.commitLocked(ctx, key, next); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			return nil
		}
	}
	return nil
}

// commitLocked performs the derived transition into next for step key.
func (s *Session) commitLocked(ctx context.Context, key stepKey, next internal.Phase) error {
	if err := checkTransition(s.state.Phase, next); err != nil {
		return err
	}
	var err error
	switch next {
	case internal.PhaseGame:
		choice := s.state.ThemeChoice
		if choice == nil {
			return fmt.Errorf("%w: no theme chosen", internal.ErrWrongPhase)
		}
		var theme internal.Theme
		theme, err = resolveTheme(s.state, choice.Theme)
		if err == nil {
			err = s.enterGameLocked(ctx, theme)
		}
	case internal.PhaseDiscussion:
		err = s.enterDiscussionLocked(ctx, s.state.AllGuesses)
	case internal.PhaseResult:
		err = s.publishResultsLocked(ctx, s.state.AllGuesses, s.state.DiscussionVoted)
	default:
		err = fmt.Errorf("%w: %s is not derived", internal.ErrInvalidTransition, next)
	}
	if err != nil {
		log.Error().Err(err).Str("room", s.roomId).Str("step", key.String()).Msg("[commitLocked] commit failed")
		return err
	}
	s.committed[key] = true
	log.Info().Str("room", s.roomId).Str("step", key.String()).Str("next", string(next)).Msg("[commitLocked] committed")
	return nil
}

func (s *Session) enterGameLocked(ctx context.Context, theme internal.Theme) error {
	next := applyTheme(s.state, theme)
	return s.sink.AdvancePhase(ctx, next, fieldPhase, fieldCurrentTheme, fieldThemeChoice, fieldUsedThemeTexts)
}

func (s *Session) enterDiscussionLocked(ctx context.Context, table internal.GuessTable) error {
	next := s.state.Clone()
	next.Phase = internal.PhaseDiscussion
	next.AllGuesses = table.Clone()
	next.DiscussionSnapshot = table.Clone()
	next.DiscussionVoted = internal.MarkSet{}
	return s.sink.AdvancePhase(ctx, next, fieldPhase, fieldAllGuesses, fieldDiscussionSnapshot, fieldDiscussionVoted)
}

func (s *Session) publishResultsLocked(ctx context.Context, table internal.GuessTable, voted internal.MarkSet) error {
	players := s.state.SortedPlayers()
	results, err := ScoreRound(players, table)
	if err != nil {
		return err
	}
	history := append(s.state.Clone().GameHistory, results)
	ranked, err := s.scorer.ApplyRound(players, history)
	if err != nil {
		return err
	}

	next := s.state.Clone().WithPlayers(ranked)
	next.Phase = internal.PhaseResult
	next.AllGuesses = table.Clone()
	next.DiscussionVoted = voted
	next.RoundResults = results
	next.GameHistory = history
	return s.sink.PublishResults(ctx, next)
}

// Standings returns the roster in ranking order.
func Standings(s internal.SessionState) []internal.Player {
	players := s.SortedPlayers()
	slices.SortStableFunc(players, compareStanding)
	return players
}
