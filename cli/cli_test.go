package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/catalog"
	"github.com/nathoo/isotactics/types"
)

func testSetup(w, h int) types.Setup {
	def := types.MapDef{Width: w, Height: h, Levels: 1}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			def.Cells = append(def.Cells, types.CellDef{Position: types.Point{X: x, Y: y}, Terrain: "grass"})
		}
	}
	return types.Setup{
		ID:   "test",
		Seed: "seed",
		Map:  def,
		Players: []types.PlayerDef{
			{ID: "p1", Name: "Alice", Roster: []string{"knight"}},
			{ID: "p2", Name: "Bob", Roster: []string{"knight"}},
		},
	}
}

func newTestConsole(t *testing.T, setup types.Setup, opts ...engine.Option) *Console {
	t.Helper()
	c := NewConsole(t.TempDir(), nil)
	c.Options = opts
	s, err := engine.NewServerSession(context.Background(), setup, c.SessionOptions()...)
	if err != nil {
		t.Fatalf("NewServerSession: %v", err)
	}
	c.Attach(s)
	return c
}

func step(t *testing.T, c *Console, input string) Result {
	t.Helper()
	return c.Step(context.Background(), input)
}

func text(r Result) string {
	var b strings.Builder
	for _, l := range r.Lines {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func errorsIn(r Result) []string {
	var out []string
	for _, l := range r.Lines {
		if l.Kind == LineError {
			out = append(out, l.Text)
		}
	}
	return out
}

func mustStep(t *testing.T, c *Console, input string) Result {
	t.Helper()
	r := step(t, c, input)
	if errs := errorsIn(r); len(errs) > 0 {
		t.Fatalf("%q: %v", input, errs)
	}
	return r
}

func TestCLI_IntroAndQuit(t *testing.T) {
	c := newTestConsole(t, testSetup(3, 3))
	var out bytes.Buffer
	cl := &CLI{Console: c, In: strings.NewReader("# comment\n/quit\nlook\n"), Out: &out}
	cl.Run(context.Background())

	output := out.String()
	for _, want := range []string{"Skirmish (test, seed seed)", "Alice (deploy)> ", "[Goodbye.]"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Count(output, "   012\n") != 1 {
		t.Error("input after /quit was processed")
	}
}

func TestCLI_ScriptEcho(t *testing.T) {
	c := newTestConsole(t, testSetup(3, 3))
	var out bytes.Buffer
	cl := &CLI{Console: c, In: strings.NewReader("deploy knight 0,0\nend\n"), Out: &out, EchoInput: true}
	cl.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Alice (deploy)> deploy knight 0,0") {
		t.Errorf("input not echoed:\n%s", output)
	}
	if !strings.Contains(output, "Bob (deploy)> end") || !strings.Contains(output, "! You can't endTurn") {
		t.Errorf("expected a rejected end turn for Bob:\n%s", output)
	}
}

func TestConsole_DeployAndFight(t *testing.T) {
	c := newTestConsole(t, testSetup(4, 4))
	mustStep(t, c, "deploy knight 0,0")
	if got := c.Prompt(); got != "Bob (deploy)> " {
		t.Errorf("prompt = %q", got)
	}
	r := mustStep(t, c, "d knight 1,0")
	out := text(r)
	if !strings.Contains(out, "The battle begins!") || !strings.Contains(out, "Turn: Knight #") {
		t.Fatalf("battle start narration:\n%s", out)
	}

	active := c.Session.Active()
	target := 1
	if active.ID == 1 {
		target = 2
	}
	if p := c.CurrentPlayer(); p == nil || p.ID != active.PlayerID {
		t.Fatalf("current player = %+v, want owner of #%d", p, active.ID)
	}
	r = mustStep(t, c, fmt.Sprintf("attack #%d", target))
	out = text(r)
	want := fmt.Sprintf("Knight #%d attacks Knight #%d.\nKnight #%d takes 3 damage.\n", active.ID, target, target)
	if out != want {
		t.Errorf("attack narration = %q, want %q", out, want)
	}

	r = step(t, c, fmt.Sprintf("attack %d", target))
	if errs := errorsIn(r); len(errs) != 1 || !strings.Contains(errs[0], "action already taken") {
		t.Errorf("second attack errors = %v", errs)
	}

	r = mustStep(t, c, "end")
	if !strings.Contains(text(r), "Turn: Knight #") {
		t.Errorf("end turn narration:\n%s", text(r))
	}
}

func TestConsole_DirectionMove(t *testing.T) {
	c := newTestConsole(t, testSetup(4, 4))
	mustStep(t, c, "deploy knight 0,0")
	mustStep(t, c, "deploy knight 3,0")
	active := c.Session.Active()

	if errs := errorsIn(step(t, c, "n")); len(errs) != 1 || !strings.Contains(errs[0], "cannot go north") {
		t.Errorf("north from row 0 errors = %v", errs)
	}
	r := mustStep(t, c, "s")
	want := fmt.Sprintf("Knight #%d moves to %d,1,0.\n", active.ID, active.Position.X)
	if text(r) != want {
		t.Errorf("move narration = %q, want %q", text(r), want)
	}
}

func TestConsole_Errors(t *testing.T) {
	c := newTestConsole(t, testSetup(3, 3))
	tests := []struct {
		input string
		want  string
	}{
		{"attack bob", "bad entity id"},
		{"dance", `I don't understand "dance"`},
		{"timeline", "has not started"},
		{"inspect 9", "no unit #9"},
		{"reach", "No unit is active"},
		{"move 1,1", "You can't move: wrong phase"},
	}
	for _, tt := range tests {
		r := step(t, c, tt.input)
		errs := errorsIn(r)
		if len(errs) != 1 || !strings.Contains(errs[0], tt.want) {
			t.Errorf("%q errors = %v, want %q", tt.input, errs, tt.want)
		}
	}
}

func TestConsole_Winner(t *testing.T) {
	cat, err := catalog.Build(types.Content{Title: "Test", Blueprints: []types.BlueprintDef{
		{ID: "brute", Name: "Brute", MaxHP: 10, MaxAP: 1, Attack: 5, Speed: 2, Initiative: 10},
		{ID: "dummy", Name: "Dummy", MaxHP: 1, MaxAP: 1, Attack: 1, Speed: 1, Initiative: 1},
	}})
	if err != nil {
		t.Fatal(err)
	}
	setup := testSetup(3, 3)
	setup.Players[0].Roster = []string{"brute"}
	setup.Players[1].Roster = []string{"dummy"}
	c := newTestConsole(t, setup, engine.WithCatalog(cat))
	mustStep(t, c, "deploy brute 0,0")
	mustStep(t, c, "deploy dummy 1,0")

	out := text(mustStep(t, c, "attack 2"))
	for _, want := range []string{"Brute #1 attacks Dummy #2.", "Dummy #2 is destroyed.", "Alice wins the battle!"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if errs := errorsIn(step(t, c, "end")); len(errs) != 1 || !strings.Contains(errs[0], "battle is over") {
		t.Errorf("post-win errors = %v", errs)
	}
}

func TestConsole_SaveAndLoad(t *testing.T) {
	c := newTestConsole(t, testSetup(4, 4))
	mustStep(t, c, "deploy knight 0,0")
	mustStep(t, c, "deploy knight 3,3")
	if out := text(mustStep(t, c, "/save slot1")); !strings.Contains(out, "Game saved to slot1.") {
		t.Fatalf("save output:\n%s", out)
	}
	saved := c.Session.State()

	fresh := newTestConsole(t, testSetup(4, 4))
	fresh.SaveDir = c.SaveDir
	out := text(mustStep(t, fresh, "/load slot1"))
	if !strings.Contains(out, "Game loaded from slot1 (2 actions).") {
		t.Fatalf("load output:\n%s", out)
	}
	got := fresh.Session.State()
	if got.Phase != engine.PhaseBattle || got.ActiveEntityID != saved.ActiveEntityID || len(got.History) != 2 {
		t.Errorf("loaded state = %+v", got)
	}

	// The loaded session narrates through the same console.
	out = text(mustStep(t, fresh, "end"))
	if !strings.Contains(out, "Turn: Knight #") {
		t.Errorf("narration after load:\n%s", out)
	}

	if errs := errorsIn(step(t, fresh, "/load missing")); len(errs) != 1 {
		t.Errorf("loading a missing save errors = %v", errs)
	}
}

func TestConsole_Trace(t *testing.T) {
	c := newTestConsole(t, testSetup(3, 3))
	mustStep(t, c, "/trace")
	out := text(mustStep(t, c, "deploy knight 0,0"))
	if !strings.Contains(out, "[trace] game:action action=deploy") {
		t.Errorf("trace output:\n%s", out)
	}
	mustStep(t, c, "/trace")
	if c.Trace {
		t.Error("trace still on")
	}
}

func TestConsole_MetaCommands(t *testing.T) {
	c := newTestConsole(t, testSetup(3, 3))
	mustStep(t, c, "deploy knight 0,0")
	if out := text(mustStep(t, c, "/history")); !strings.Contains(out, "0 deploy") {
		t.Errorf("history:\n%s", out)
	}
	if out := text(mustStep(t, c, "/state")); !strings.Contains(out, `"phase": "deploy"`) {
		t.Errorf("state:\n%s", out)
	}
	if out := text(mustStep(t, c, "/bogus")); !strings.Contains(out, "Unknown command: /bogus") {
		t.Errorf("unknown meta:\n%s", out)
	}
	if r := mustStep(t, c, "q"); !r.Quit {
		t.Error("q did not quit")
	}
}

func TestBoard(t *testing.T) {
	setup := testSetup(4, 2)
	setup.Map.Cells[1].Terrain = "water"
	setup.Map.Cells = setup.Map.Cells[:7] // drop (3,1)
	setup.Obstacles = []types.ObstacleDef{{ID: 1, SpriteID: "rock", Position: types.Point{X: 2, Y: 0}}}
	c := newTestConsole(t, setup)
	mustStep(t, c, "deploy knight 0,0")
	mustStep(t, c, "deploy knight 0,1")

	want := "   0123\n" +
		" 0 K~o.\n" +
		" 1 k.. "
	if got := Board(c.Session, nil); got != want {
		t.Errorf("board =\n%s\nwant\n%s", got, want)
	}

	marked := Board(c.Session, []types.Point{{X: 3, Y: 0}, {X: 0, Y: 0}})
	if !strings.Contains(marked, " 0 K~o*") {
		t.Errorf("marked board =\n%s", marked)
	}
}
