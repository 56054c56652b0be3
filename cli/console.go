package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/events"
	"github.com/nathoo/isotactics/engine/fx"
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/parser"
	"github.com/nathoo/isotactics/engine/save"
	"github.com/nathoo/isotactics/types"
)

// LineKind classifies console output for styling.
type LineKind int

const (
	LineNarration LineKind = iota
	LineTurn
	LineSystem
	LineError
	LineBlock // pre-rendered board or table
)

// Line is one unit of console output.
type Line struct {
	Text string
	Kind LineKind
}

// Result is the output of one Step.
type Result struct {
	Lines []Line
	Quit  bool
}

// Console turns command lines into session actions for hot-seat play and
// narrates what happens. The player acting is whoever must deploy next or
// owns the active entity. Console also implements fx.System so cues become
// narration.
type Console struct {
	Session *engine.Session
	// Title overrides the content title in the intro.
	Title string
	// Options are used to rebuild the session when a save is loaded.
	Options []engine.Option
	SaveDir string
	Trace   bool
	Log     *zap.Logger

	out     []Line
	names   map[int]string
	subs    []*events.Subscription
	lastCmd string
}

var _ fx.System = (*Console)(nil)

// NewConsole returns a console with no session attached.
func NewConsole(saveDir string, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{SaveDir: saveDir, Log: log, names: map[int]string{}}
}

// SessionOptions returns Options plus this console as the FX system.
func (c *Console) SessionOptions() []engine.Option {
	return append(append([]engine.Option(nil), c.Options...), engine.WithFX(c))
}

// Attach makes s the session the console drives.
func (c *Console) Attach(s *engine.Session) {
	for _, sub := range c.subs {
		if c.Session != nil {
			c.Session.Unsubscribe(sub)
		}
	}
	c.subs = nil
	c.Session = s
	for _, e := range s.Entities() {
		c.names[e.ID] = EntityName(e)
	}
	c.subs = append(c.subs, s.Subscribe(events.Any, c.onEvent))
}

// CurrentPlayer is the player whose input is expected: during deployment
// the first player still to deploy, in battle the owner of the active
// entity.
func (c *Console) CurrentPlayer() *engine.Player {
	s := c.Session
	if s.Phase() == engine.PhaseDeploy {
		for _, p := range s.Players() {
			if !p.Deployed() {
				return p
			}
		}
		return nil
	}
	if active := s.Active(); active != nil {
		return s.Player(active.PlayerID)
	}
	return nil
}

// Prompt describes who is to act.
func (c *Console) Prompt() string {
	p := c.CurrentPlayer()
	if p == nil {
		return "> "
	}
	if c.Session.Phase() == engine.PhaseDeploy {
		return fmt.Sprintf("%s (deploy)> ", p.Name)
	}
	return fmt.Sprintf("%s %s> ", p.Name, EntityName(c.Session.Active()))
}

// Intro is shown when a session starts or is loaded.
func (c *Console) Intro() []Line {
	s := c.Session
	title := c.Title
	if title == "" {
		title = s.Catalog().Title
	}
	if title == "" {
		title = s.ID()
	}
	lines := []Line{{Text: fmt.Sprintf("%s (%s, seed %s)", title, s.ID(), s.Seed()), Kind: LineSystem}}
	lines = append(lines, c.look()...)
	if s.Phase() == engine.PhaseDeploy {
		lines = append(lines, Line{Text: "Deploy with: deploy <character> <x,y[,z]> ... (type help for more)", Kind: LineSystem})
	} else if active := s.Active(); active != nil {
		lines = append(lines, c.turnLine(active.ID))
	}
	return lines
}

// Step handles one line of input.
func (c *Console) Step(ctx context.Context, input string) Result {
	c.out = nil
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}
	}
	if strings.HasPrefix(input, "/") {
		quit := c.meta(ctx, input)
		return c.flush(quit)
	}

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if c.lastCmd == "" {
			c.system("Nothing to repeat.")
			return c.flush(false)
		}
		input = c.lastCmd
	} else {
		c.lastCmd = input
	}

	in, err := parser.Parse(input)
	if err != nil {
		c.fail(err.Error())
		return c.flush(false)
	}
	switch in.Verb {
	case "quit":
		c.system("Goodbye.")
		return c.flush(true)
	case "help":
		c.help()
	case "glossary":
		c.block(GlossaryTable())
	case "look":
		c.out = append(c.out, c.look()...)
	case "timeline":
		c.timeline()
	case "inspect":
		c.inspect(in.EntityID)
	case "reach":
		c.reach()
	case "move", "attack", "skill", "end", "deploy", "start":
		c.act(ctx, in)
	default:
		c.fail(fmt.Sprintf("I don't understand %q. Type help for commands.", input))
	}
	return c.flush(false)
}

func (c *Console) act(ctx context.Context, in types.Intent) {
	s := c.Session
	if winner, ok := s.Winner(); ok {
		c.fail(fmt.Sprintf("The battle is over; %s won.", c.playerName(winner)))
		return
	}
	p := c.CurrentPlayer()
	if p == nil {
		c.fail("Nobody can act right now.")
		return
	}
	if in.Verb == "move" && in.Direction != "" {
		dest, err := c.step(in.Direction)
		if err != nil {
			c.fail(err.Error())
			return
		}
		in.Points = []types.Point{dest}
	}
	a, err := parser.ToAction(in, p.ID)
	if err != nil {
		c.fail(err.Error())
		return
	}
	if err := s.Dispatch(ctx, a); err != nil {
		c.fail(describe(err))
		return
	}
	if winner, ok := s.Winner(); ok {
		c.out = append(c.out, Line{Text: fmt.Sprintf("%s wins the battle!", c.playerName(winner)), Kind: LineTurn})
	}
}

// step resolves a one-cell move in a compass direction for the active
// entity.
func (c *Console) step(dir string) (types.Point, error) {
	active := c.Session.Active()
	if active == nil {
		return types.Point{}, errors.New("no unit is active")
	}
	d, ok := grid.ParseDirection(dir)
	if !ok {
		return types.Point{}, fmt.Errorf("unknown direction %q", dir)
	}
	dest, ok := c.Session.Map().Destination(active.Position, d)
	if !ok {
		return types.Point{}, fmt.Errorf("%s cannot go %s", EntityName(active), dir)
	}
	return dest, nil
}

// describe turns a dispatch error into a player-facing message.
func describe(err error) string {
	var illegal *engine.IllegalCommandError
	var unknown *engine.UnknownActionError
	switch {
	case errors.As(err, &illegal):
		return fmt.Sprintf("You can't %s: %v.", illegal.Action, illegal.Err)
	case errors.As(err, &unknown):
		return fmt.Sprintf("Unknown action %q.", unknown.Type)
	case errors.Is(err, engine.ErrInvalidPayload):
		return "That command is malformed."
	}
	return fmt.Sprintf("Error: %v", err)
}

func (c *Console) look() []Line {
	s := c.Session
	lines := []Line{{Text: Board(s, nil), Kind: LineBlock}}
	if s.Phase() == engine.PhaseDeploy {
		return append(lines, Line{Text: RosterTable(s), Kind: LineBlock})
	}
	return append(lines, Line{Text: UnitsTable(s), Kind: LineBlock})
}

func (c *Console) timeline() {
	if c.Session.Phase() != engine.PhaseBattle {
		c.fail("The battle has not started.")
		return
	}
	c.block(TimelineTable(c.Session))
}

func (c *Console) inspect(id int) {
	e := c.Session.EntityByID(id)
	if e == nil {
		c.fail(fmt.Sprintf("There is no unit #%d.", id))
		return
	}
	c.block(EntityDetail(e))
}

func (c *Console) reach() {
	active := c.Session.Active()
	if active == nil {
		c.fail("No unit is active.")
		return
	}
	cells := c.Session.Reachable(active)
	c.block(Board(c.Session, cells))
	c.system(fmt.Sprintf("%s can reach %d cells.", EntityName(active), len(cells)))
}

func (c *Console) help() {
	for _, line := range []string{
		"Deployment:",
		"  deploy <character> <x,y[,z]> ...   Place your roster (d, place)",
		"  start                              Start with whoever has deployed",
		"Battle (active unit):",
		"  move <x,y[,z]> | n/s/e/w           Move (m, go, walk)",
		"  attack <id>                        Basic attack (a, hit)",
		"  skill <id> [x,y[,z] ...]           Use a skill (c, cast, use)",
		"  end                                End the turn (pass, z)",
		"Information:",
		"  look | inspect <id> | timeline | reach | glossary",
		"  again (g)                          Repeat the last command",
		"System:",
		"  /save [name]  /load [name]  /state  /history  /trace  /quit",
	} {
		c.system(line)
	}
}

// --- meta commands ---

func (c *Console) meta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}
	switch parts[0] {
	case "/quit", "/exit":
		c.system("Goodbye.")
		return true
	case "/save":
		c.save(arg)
	case "/load":
		c.load(ctx, arg)
	case "/help":
		c.help()
	case "/state":
		data, err := json.MarshalIndent(c.Session.State(), "", "  ")
		if err != nil {
			c.fail(err.Error())
			break
		}
		c.block(string(data))
	case "/history":
		for i, a := range c.Session.History() {
			c.system(fmt.Sprintf("%3d %s %s", i, a.Type, a.Payload))
		}
	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.system("Trace output enabled.")
		} else {
			c.system("Trace output disabled.")
		}
	default:
		c.system(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", parts[0]))
	}
	return false
}

func (c *Console) savePath(name string) string {
	if name == "" {
		name = "quicksave"
	}
	return filepath.Join(c.SaveDir, name+".json")
}

func (c *Console) save(name string) {
	data, err := save.Save(c.Session)
	if err != nil {
		c.fail(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.fail(fmt.Sprintf("Save failed: %v", err))
		return
	}
	path := c.savePath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.fail(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.Log.Info("game saved", zap.String("path", path), zap.Int("actions", len(c.Session.History())))
	c.system(fmt.Sprintf("Game saved to %s.", strings.TrimSuffix(filepath.Base(path), ".json")))
}

func (c *Console) load(ctx context.Context, name string) {
	path := c.savePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		c.fail(fmt.Sprintf("Load failed: %v", err))
		return
	}
	rec, err := save.Load(data)
	if err != nil {
		c.fail(fmt.Sprintf("Load failed: %v", err))
		return
	}
	s, err := save.Restore(ctx, rec, c.SessionOptions()...)
	if err != nil {
		c.fail(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.Attach(s)
	c.Log.Info("game loaded", zap.String("path", path), zap.Int("actions", rec.Actions))
	c.system(fmt.Sprintf("Game loaded from %s (%d actions).", strings.TrimSuffix(filepath.Base(path), ".json"), rec.Actions))
	c.out = append(c.out, c.Intro()...)
}

// --- narration ---

func (c *Console) onEvent(ev events.Event) {
	switch ev.Kind {
	case events.EntityCreated:
		if e := c.Session.EntityByID(ev.EntityID); e != nil {
			c.names[e.ID] = EntityName(e)
		}
	case events.GamePhaseChanged:
		if ev.Phase == engine.PhaseBattle {
			c.out = append(c.out, Line{Text: "The battle begins!", Kind: LineTurn})
		}
	case events.GameTurnStarted:
		c.out = append(c.out, c.turnLine(ev.EntityID))
	case events.ModifierAdded:
		c.narrate(fmt.Sprintf("%s gains %s.", c.name(ev.EntityID), ev.ModifierID))
	case events.ModifierRemoved:
		c.narrate(fmt.Sprintf("%s loses %s.", c.name(ev.EntityID), ev.ModifierID))
	}
	if c.Trace {
		c.system(fmt.Sprintf("[trace] %s %s", ev.Kind, traceFields(ev)))
	}
}

func traceFields(ev events.Event) string {
	var parts []string
	if ev.EntityID != 0 {
		parts = append(parts, fmt.Sprintf("entity=%d", ev.EntityID))
	}
	if ev.OtherID != 0 {
		parts = append(parts, fmt.Sprintf("other=%d", ev.OtherID))
	}
	if ev.Amount != 0 {
		parts = append(parts, fmt.Sprintf("amount=%d", ev.Amount))
	}
	if ev.ModifierID != "" {
		parts = append(parts, "modifier="+ev.ModifierID)
	}
	if ev.Phase != "" {
		parts = append(parts, "phase="+ev.Phase)
	}
	if ev.Action != nil {
		parts = append(parts, "action="+ev.Action.Type)
	}
	return strings.Join(parts, " ")
}

func (c *Console) turnLine(id int) Line {
	text := fmt.Sprintf("Turn: %s", c.name(id))
	if e := c.Session.EntityByID(id); e != nil {
		text = fmt.Sprintf("Turn: %s (%s), HP %d/%d, AP %d, move %d",
			c.name(id), c.playerName(e.PlayerID), e.HP(), e.MaxHP(), e.AP(), e.RemainingMovement())
	}
	return Line{Text: text, Kind: LineTurn}
}

func (c *Console) name(id int) string {
	if n, ok := c.names[id]; ok {
		return n
	}
	return fmt.Sprintf("#%d", id)
}

func (c *Console) playerName(id string) string {
	if p := c.Session.Player(id); p != nil && p.Name != "" {
		return p.Name
	}
	return id
}

// --- fx.System ---

func (c *Console) MoveEntity(_ context.Context, id int, path []types.Point) error {
	if len(path) == 0 {
		return nil
	}
	c.narrate(fmt.Sprintf("%s moves to %s.", c.name(id), pointString(path[len(path)-1])))
	return nil
}

func (c *Console) Attack(_ context.Context, attacker, target int) error {
	c.narrate(fmt.Sprintf("%s attacks %s.", c.name(attacker), c.name(target)))
	return nil
}

func (c *Console) DisplayDamageIndicator(_ context.Context, _, to, amount int) error {
	if amount == 0 {
		c.narrate(fmt.Sprintf("%s takes no damage.", c.name(to)))
		return nil
	}
	c.narrate(fmt.Sprintf("%s takes %d damage.", c.name(to), amount))
	return nil
}

func (c *Console) ShakeEntity(context.Context, int, fx.ShakeOptions) error { return nil }

func (c *Console) DisplayText(_ context.Context, text string, id int, _ fx.TextOptions) error {
	c.narrate(fmt.Sprintf("%s: %s", c.name(id), text))
	return nil
}

func (c *Console) FadeOutEntity(_ context.Context, id int, _ time.Duration) error {
	c.narrate(fmt.Sprintf("%s is destroyed.", c.name(id)))
	return nil
}

// --- output ---

func (c *Console) narrate(text string) {
	c.out = append(c.out, Line{Text: text, Kind: LineNarration})
}

func (c *Console) system(text string) {
	c.out = append(c.out, Line{Text: text, Kind: LineSystem})
}

func (c *Console) fail(text string) {
	c.out = append(c.out, Line{Text: text, Kind: LineError})
}

func (c *Console) block(text string) {
	c.out = append(c.out, Line{Text: text, Kind: LineBlock})
}

func (c *Console) flush(quit bool) Result {
	r := Result{Lines: c.out, Quit: quit}
	c.out = nil
	return r
}
