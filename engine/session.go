// Package engine runs a battle session: it validates and applies commands,
// keeps the replayable action history, and owns the board, players and
// entities. A session built from the same setup and history always reaches
// the same state.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/nathoo/isotactics/engine/atb"
	"github.com/nathoo/isotactics/engine/catalog"
	"github.com/nathoo/isotactics/engine/events"
	"github.com/nathoo/isotactics/engine/fx"
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/rules"
	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

// DefaultTimelineLength is how many upcoming turns State forecasts.
const DefaultTimelineLength = 8

// fadeDuration is how long a destroyed entity takes to disappear.
const fadeDuration = 400 * time.Millisecond

// Session is one battle. It is not safe for concurrent use; callers
// serialize access, as the server hub does.
type Session struct {
	setup         types.Setup
	authoritative bool
	log           *zap.Logger
	fx            fx.System
	catalog       *catalog.Catalog
	timeline      int

	rng         *RNG
	phase       *fsm.FSM
	gmap        *grid.Map
	deployZones bool
	players     []*Player
	obstacles   []*Obstacle
	entities    []*unit.Entity
	scheduler   atb.Scheduler[*unit.Entity]
	nextID      int
	history     []types.SerializedAction
	bus         events.Bus

	ready       bool
	replaying   bool
	dispatching bool
	fading      []int // destroyed during the current command
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithFX sets the animation collaborator. Defaults to fx.Noop.
func WithFX(f fx.System) Option {
	return func(s *Session) { s.fx = f }
}

// WithCatalog sets the content catalog. Defaults to catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

// WithTimelineLength sets how many upcoming turns State forecasts.
func WithTimelineLength(n int) Option {
	return func(s *Session) { s.timeline = n }
}

// NewServerSession builds an authoritative session that accepts Dispatch.
func NewServerSession(ctx context.Context, setup types.Setup, opts ...Option) (*Session, error) {
	return newSession(ctx, setup, true, opts)
}

// NewClientSession builds a replica that only accepts pre-validated actions
// through Replicate.
func NewClientSession(ctx context.Context, setup types.Setup, opts ...Option) (*Session, error) {
	return newSession(ctx, setup, false, opts)
}

func newSession(ctx context.Context, setup types.Setup, authoritative bool, opts []Option) (*Session, error) {
	s := &Session{
		authoritative: authoritative,
		log:           zap.NewNop(),
		fx:            fx.Noop{},
		timeline:      DefaultTimelineLength,
		rng:           NewRNG(setup.Seed),
		nextID:        1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	s.log = s.log.With(zap.String("session", setup.ID), zap.Bool("authoritative", authoritative))
	s.phase = newPhaseMachine(s.onPhase)

	gm, err := grid.NewMap(setup.Map)
	if err != nil {
		return nil, fmt.Errorf("building map: %w", err)
	}
	s.gmap = gm
	for _, c := range gm.Cells() {
		if c.AvailableForDeploy != nil {
			s.deployZones = true
			break
		}
	}

	seen := map[string]bool{}
	for i, pd := range setup.Players {
		if pd.ID == "" || seen[pd.ID] {
			return nil, fmt.Errorf("player %d: missing or duplicate id %q", i, pd.ID)
		}
		seen[pd.ID] = true
		s.players = append(s.players, newPlayer(pd, i))
	}
	for _, od := range setup.Obstacles {
		if gm.CellAt(od.Position) == nil {
			return nil, fmt.Errorf("obstacle %d on missing cell %s", od.ID, grid.Key(od.Position))
		}
		s.obstacles = append(s.obstacles, &Obstacle{ID: od.ID, SpriteID: od.SpriteID, Position: od.Position})
	}

	s.setup = setup
	s.setup.History = nil

	s.replaying = true
	if len(s.players) > 0 && s.allDeployed() {
		err := s.startBattle(ctx)
		s.fadeDestroyed(ctx)
		if err != nil {
			return nil, fmt.Errorf("starting pre-deployed battle: %w", err)
		}
	}
	for i, a := range setup.History {
		if err := s.execute(ctx, a); err != nil {
			return nil, fmt.Errorf("replaying action %d (%s): %w", i, a.Type, err)
		}
	}
	s.replaying = false

	s.ready = true
	s.bus.Publish(events.Event{Kind: events.GameReady, Phase: s.Phase()})
	s.log.Debug("session ready",
		zap.String("phase", s.Phase()),
		zap.Int("replayed", len(setup.History)),
		zap.Int64("rng_position", s.rng.Position()),
	)
	return s, nil
}

// Dispatch validates and applies an action, then appends it to history.
// Only authoritative sessions accept it.
func (s *Session) Dispatch(ctx context.Context, a types.SerializedAction) error {
	if !s.authoritative {
		return ErrNotAuthoritative
	}
	return s.execute(ctx, a)
}

// Replicate applies an action another authority has already accepted. The
// same checks run, so a diverged replica reports an error instead of
// silently drifting.
func (s *Session) Replicate(ctx context.Context, a types.SerializedAction) error {
	return s.execute(ctx, a)
}

func (s *Session) execute(ctx context.Context, a types.SerializedAction) error {
	if s.dispatching {
		return ErrDispatchInFlight
	}
	s.dispatching = true
	defer func() { s.dispatching = false }()

	log := s.log.With(zap.String("action", a.Type))

	// 1. Decode and validate the payload.
	cmd, err := parseCommand(a)
	if err != nil {
		log.Debug("action rejected", zap.Error(err))
		return err
	}

	// 2. Check game rules against current state.
	if err := cmd.check(s); err != nil {
		log.Debug("illegal command", zap.Error(err))
		return &IllegalCommandError{Action: a.Type, Err: err}
	}

	// 3. Apply.
	err = cmd.apply(ctx, s)
	s.fadeDestroyed(ctx)
	if err != nil {
		log.Error("applying command", zap.Error(err))
		return fmt.Errorf("applying %s: %w", a.Type, err)
	}

	// 4. Record and announce.
	rec := cloneAction(a)
	s.history = append(s.history, rec)
	s.bus.Publish(events.Event{Kind: events.GameAction, Action: &rec})
	log.Debug("action applied", zap.Int("history", len(s.history)))
	return nil
}

// startBattle materializes every committed deployment and runs the first
// turn. Entity ids and ATB seeds are assigned in player then deployment
// order.
func (s *Session) startBattle(ctx context.Context) error {
	for _, p := range s.players {
		for _, d := range p.Deployment {
			bp, ok := s.catalog.Blueprint(d.CharacterID)
			if !ok {
				return fmt.Errorf("player %s: unknown character %q", p.ID, d.CharacterID)
			}
			e := unit.New(s, s.nextID, p.ID, bp, d.Position, s.rng.Float64())
			s.nextID++
			s.addEntity(e)
		}
	}
	if len(s.entities) == 0 {
		return atb.ErrNoEntities
	}
	if err := s.phase.Event(ctx, eventStartBattle); err != nil {
		return fmt.Errorf("phase transition: %w", err)
	}
	return s.nextTurn(ctx)
}

// nextTurn ticks the scheduler and starts the next entity's turn. An entity
// destroyed by its own turn-start effects is skipped.
func (s *Session) nextTurn(ctx context.Context) error {
	for {
		e, err := s.scheduler.TickUntilActive(s.entities)
		if err != nil {
			return fmt.Errorf("next turn: %w", err)
		}
		e.StartTurn()
		if e.Destroyed() {
			continue
		}
		s.bus.Publish(events.Event{Kind: events.GameTurnStarted, EntityID: e.ID})
		s.log.Debug("turn started", zap.Int("entity", e.ID), zap.String("player", e.PlayerID))
		return nil
	}
}

func (s *Session) addEntity(e *unit.Entity) {
	s.entities = append(s.entities, e)
	e.Subscribe(events.Any, func(ev events.Event) {
		if ev.Kind == events.EntityDestroyed {
			s.fading = append(s.fading, ev.EntityID)
		}
		s.bus.Publish(ev)
	})
	s.bus.Publish(events.Event{Kind: events.EntityCreated, EntityID: e.ID, To: e.Position})
}

func (s *Session) onPhase(phase string) {
	s.log.Info("phase changed", zap.String("phase", phase))
	s.bus.Publish(events.Event{Kind: events.GamePhaseChanged, Phase: phase})
}

// cue runs one visual effect. Failures are logged and never affect state.
// Nothing plays while history is being replayed.
func (s *Session) cue(ctx context.Context, name string, play func(context.Context) error) {
	if s.replaying {
		return
	}
	if err := play(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("fx failed", zap.String("fx", name), zap.Error(err))
	}
}

// fadeDestroyed fades out the entities destroyed by the last command.
func (s *Session) fadeDestroyed(ctx context.Context) {
	for _, id := range s.fading {
		s.cue(ctx, "fade", func(ctx context.Context) error {
			return s.fx.FadeOutEntity(ctx, id, fadeDuration)
		})
	}
	s.fading = nil
}

func (s *Session) allDeployed() bool {
	for _, p := range s.players {
		if !p.Deployed() {
			return false
		}
	}
	return true
}

// --- unit.Battlefield ---

// Map returns the board.
func (s *Session) Map() *grid.Map { return s.gmap }

// EntityAt returns the live entity standing on p, or nil.
func (s *Session) EntityAt(p grid.Point) *unit.Entity {
	for _, e := range s.entities {
		if e.Position == p {
			return e
		}
	}
	return nil
}

// EntityByID returns the live entity with the given id, or nil.
func (s *Session) EntityByID(id int) *unit.Entity {
	for _, e := range s.entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// ObstacleAt reports whether an obstacle stands on p.
func (s *Session) ObstacleAt(p grid.Point) bool {
	for _, o := range s.obstacles {
		if o.Position == p {
			return true
		}
	}
	return false
}

// RemoveEntity drops a destroyed entity. Order of the rest is kept.
func (s *Session) RemoveEntity(e *unit.Entity) {
	for i, x := range s.entities {
		if x == e {
			s.entities = append(s.entities[:i:i], s.entities[i+1:]...)
			return
		}
	}
}

// --- queries ---

// ID returns the session id.
func (s *Session) ID() string { return s.setup.ID }

// Seed returns the seed string.
func (s *Session) Seed() string { return s.setup.Seed }

// Authoritative reports whether the session accepts Dispatch.
func (s *Session) Authoritative() bool { return s.authoritative }

// Phase returns PhaseDeploy or PhaseBattle.
func (s *Session) Phase() string { return s.phase.Current() }

// Catalog returns the content catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// RNGPosition returns how many random draws the session has made.
func (s *Session) RNGPosition() int64 { return s.rng.Position() }

// Players returns the players in declaration order.
func (s *Session) Players() []*Player { return s.players }

// Player returns the player with the given id, or nil.
func (s *Session) Player(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Entities returns the live entities in creation order.
func (s *Session) Entities() []*unit.Entity { return s.entities }

// Obstacles returns the obstacles.
func (s *Session) Obstacles() []*Obstacle { return s.obstacles }

// PlayerEntities returns the live entities owned by playerID.
func (s *Session) PlayerEntities(playerID string) []*unit.Entity {
	var out []*unit.Entity
	for _, e := range s.entities {
		if e.PlayerID == playerID {
			out = append(out, e)
		}
	}
	return out
}

// Opponents returns every player other than playerID, in declaration order.
func (s *Session) Opponents(playerID string) []*Player {
	var out []*Player
	for _, p := range s.players {
		if p.ID != playerID {
			out = append(out, p)
		}
	}
	return out
}

// EntitiesNear returns the live entities within radius cells of p on the
// same level, nearest first.
func (s *Session) EntitiesNear(p grid.Point, radius int) []*unit.Entity {
	var out []*unit.Entity
	for _, e := range s.entities {
		if e.Position.Z == p.Z && rules.Distance(e.Position, p) <= radius {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rules.Distance(out[i].Position, p) < rules.Distance(out[j].Position, p)
	})
	return out
}

// Active returns the entity whose turn it is, or nil during deployment.
func (s *Session) Active() *unit.Entity {
	e, ok := s.scheduler.Active()
	if !ok {
		return nil
	}
	return e
}

// Occupied reports whether an entity or an obstacle stands on p.
func (s *Session) Occupied(p grid.Point) bool {
	return s.EntityAt(p) != nil || s.ObstacleAt(p)
}

// PathFor finds the cheapest route for e to dest within its remaining
// movement, or nil.
func (s *Session) PathFor(e *unit.Entity, dest grid.Point) *grid.Path {
	budget := e.RemainingMovement()
	if budget <= 0 {
		return nil
	}
	path := s.gmap.PathTo(e.Position, dest, budget, s.Occupied)
	if path == nil || path.Distance > budget {
		return nil
	}
	return path
}

// Reachable returns the cells e can move to this turn, nearest first.
func (s *Session) Reachable(e *unit.Entity) []grid.Point {
	budget := e.RemainingMovement()
	if budget <= 0 || e.Destroyed() {
		return nil
	}
	return s.gmap.DistanceMap(e.Position, budget, s.Occupied).Within(budget)
}

// Timeline forecasts the upcoming turns. The active entity still holds a
// full accumulator, so it comes first.
func (s *Session) Timeline() []*unit.Entity {
	if s.Phase() != PhaseBattle || len(s.entities) == 0 {
		return nil
	}
	order, err := atb.Timeline(s.entities, s.timeline)
	if err != nil {
		return nil
	}
	return order
}

// Winner returns the last player with live entities once the battle has
// been decided.
func (s *Session) Winner() (string, bool) {
	if s.Phase() != PhaseBattle {
		return "", false
	}
	if len(s.entities) == 0 {
		return "", false
	}
	winner := s.entities[0].PlayerID
	for _, e := range s.entities[1:] {
		if e.PlayerID != winner {
			return "", false
		}
	}
	return winner, true
}

// --- events ---

// Subscribe registers fn for events of kind. Entity events are forwarded.
func (s *Session) Subscribe(kind events.Kind, fn events.Handler) *events.Subscription {
	return s.bus.Subscribe(kind, fn)
}

// Unsubscribe removes a subscription.
func (s *Session) Unsubscribe(sub *events.Subscription) bool {
	return s.bus.Unsubscribe(sub)
}

// OnReady calls fn once the session has finished replaying its history.
func (s *Session) OnReady(fn func()) {
	if s.ready {
		fn()
		return
	}
	var sub *events.Subscription
	sub = s.bus.Subscribe(events.GameReady, func(events.Event) {
		s.bus.Unsubscribe(sub)
		fn()
	})
}

// --- serialization ---

// History returns a copy of the accepted actions in order.
func (s *Session) History() []types.SerializedAction {
	out := make([]types.SerializedAction, len(s.history))
	for i, a := range s.history {
		out[i] = cloneAction(a)
	}
	return out
}

// Setup returns the initial setup with the current history attached. A
// session built from it reaches the same state.
func (s *Session) Setup() types.Setup {
	out := s.setup
	out.Players = append([]types.PlayerDef(nil), s.setup.Players...)
	out.Obstacles = append([]types.ObstacleDef(nil), s.setup.Obstacles...)
	out.History = s.History()
	return out
}

// State returns a detached snapshot.
func (s *Session) State() types.GameState {
	st := types.GameState{
		ID:        s.setup.ID,
		Seed:      s.setup.Seed,
		Phase:     s.Phase(),
		Map:       s.gmap.Def(),
		Entities:  make([]types.EntityState, 0, len(s.entities)),
		Players:   make([]types.PlayerDef, 0, len(s.players)),
		Obstacles: make([]types.ObstacleDef, 0, len(s.obstacles)),
		History:   s.History(),
	}
	for _, e := range s.entities {
		st.Entities = append(st.Entities, e.State())
	}
	for _, p := range s.players {
		st.Players = append(st.Players, p.Def())
	}
	for _, o := range s.obstacles {
		st.Obstacles = append(st.Obstacles, o.def())
	}
	if active := s.Active(); active != nil {
		st.ActiveEntityID = active.ID
	}
	for _, e := range s.Timeline() {
		st.Timeline = append(st.Timeline, e.ID)
	}
	return st
}

func cloneAction(a types.SerializedAction) types.SerializedAction {
	return types.SerializedAction{Type: a.Type, Payload: append(json.RawMessage(nil), a.Payload...)}
}
