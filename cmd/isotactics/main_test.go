package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/isotactics/config"
)

const duel = "../../content/skirmish/duel.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd(config.New())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-file", filepath.Join(t.TempDir(), "isotactics.log")))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestSchemaCommand(t *testing.T) {
	out := mustRun(t, "schema", "move")
	if !strings.Contains(out, `"playerId"`) {
		t.Errorf("move schema:\n%s", out)
	}
	if _, err := run(t, "schema", "fly"); err == nil || !strings.Contains(err.Error(), `unknown action "fly"`) {
		t.Errorf("unknown action err = %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	out := mustRun(t, "validate", duel)
	if !strings.Contains(out, "ok: River Crossing, 2 players, 0 actions, phase deploy") {
		t.Errorf("validate output:\n%s", out)
	}
	if out := mustRun(t, "validate"); !strings.Contains(out, "content ok: 4 characters") {
		t.Errorf("built-in content output:\n%s", out)
	}
	if _, err := run(t, "validate", "missing.yaml"); err == nil {
		t.Error("expected an error for a missing scenario")
	}
}

func TestPlayScriptArchivesAndSaves(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "duel.txt")
	lines := []string{
		"# blue deploys on the top row, red on the bottom",
		"deploy knight 0,0 archer 1,0 cleric 2,0",
		"deploy knight 0,6 mage 1,6 archer 2,6",
		"/save t1",
		"/quit",
	}
	if err := os.WriteFile(script, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(dir, "matches.db")
	saves := filepath.Join(dir, "saves")

	out := mustRun(t, "play", duel, "--script", script, "--db", db, "--save-dir", saves)
	for _, want := range []string{"River Crossing (duel, seed river-1)", "Blue (deploy)> deploy knight", "== The battle begins! ==", "[Game saved to t1.]"} {
		if !strings.Contains(out, want) {
			t.Errorf("play output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "matches", "--db", db)
	if !strings.Contains(out, "River Crossing") || !strings.Contains(out, "battle") {
		t.Errorf("matches output:\n%s", out)
	}

	out = mustRun(t, "replay", filepath.Join(saves, "t1.json"), "--content", "../../content/skirmish")
	if lower := strings.ToLower(out); !strings.Contains(lower, "history") || !strings.Contains(lower, "deploy") {
		t.Errorf("replay output:\n%s", out)
	}
	out = mustRun(t, "replay", filepath.Join(saves, "t1.json"), "--content", "../../content/skirmish", "--upto", "1")
	if !strings.Contains(strings.ToLower(out), "deployed") {
		t.Errorf("partial replay should still be deploying:\n%s", out)
	}
}

func TestPlayNeedsScenario(t *testing.T) {
	if _, err := run(t, "play", "--plain"); err == nil || !strings.Contains(err.Error(), "scenario file is required") {
		t.Errorf("err = %v", err)
	}
}
