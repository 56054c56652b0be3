package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/types"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "matches.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	s.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func testSetup() types.Setup {
	def := types.MapDef{Width: 4, Height: 4, Levels: 1}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			def.Cells = append(def.Cells, types.CellDef{Position: types.Point{X: x, Y: y}, Terrain: "grass"})
		}
	}
	return types.Setup{
		ID:   "arena",
		Seed: "s",
		Map:  def,
		Players: []types.PlayerDef{
			{ID: "p1", Name: "One", Roster: []string{"knight"}},
			{ID: "p2", Name: "Two", Roster: []string{"knight"}},
		},
	}
}

func deploy(player string, x, y int) types.SerializedAction {
	return engine.MustAction(engine.ActionDeploy, engine.DeployPayload{
		PlayerID:   player,
		Characters: []types.DeploymentEntry{{CharacterID: "knight", Position: types.Point{X: x, Y: y}}},
	})
}

func TestTrackArchivesAndRebuilds(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)
	sess, err := engine.NewServerSession(ctx, testSetup())
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Dispatch(ctx, deploy("p1", 0, 0)); err != nil {
		t.Fatal(err)
	}

	stop, err := st.Track(ctx, "m1", "Arena", sess)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if err := sess.Dispatch(ctx, deploy("p2", 3, 3)); err != nil {
		t.Fatal(err)
	}
	active := sess.Active()
	end := engine.MustAction(engine.ActionEndTurn, engine.EndTurnPayload{PlayerID: active.PlayerID})
	if err := sess.Dispatch(ctx, end); err != nil {
		t.Fatal(err)
	}
	stop()

	m, err := st.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Title != "Arena" || m.ScenarioID != "arena" || m.Phase != engine.PhaseBattle || m.Actions != 3 {
		t.Errorf("match = %+v", m)
	}

	setup, err := st.Setup(ctx, "m1")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if len(setup.History) != 3 {
		t.Fatalf("history = %d, want 3", len(setup.History))
	}
	rebuilt, err := engine.NewServerSession(ctx, setup)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	want, _ := json.Marshal(sess.State())
	got, _ := json.Marshal(rebuilt.State())
	if string(want) != string(got) {
		t.Errorf("rebuilt state differs\nwant %s\ngot  %s", want, got)
	}
}

func TestTrackStops(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)
	sess, err := engine.NewServerSession(ctx, testSetup())
	if err != nil {
		t.Fatal(err)
	}
	stop, err := st.Track(ctx, "m1", "", sess)
	if err != nil {
		t.Fatal(err)
	}
	stop()
	if err := sess.Dispatch(ctx, deploy("p1", 0, 0)); err != nil {
		t.Fatal(err)
	}
	m, _ := st.Get(ctx, "m1")
	if m.Actions != 0 || m.Phase != engine.PhaseDeploy {
		t.Errorf("match after stop = %+v", m)
	}
}

func TestTrackFailedAppendKeepsLaterSlots(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)
	sess, err := engine.NewServerSession(ctx, testSetup())
	if err != nil {
		t.Fatal(err)
	}
	stop, err := st.Track(ctx, "m1", "", sess)
	if err != nil {
		t.Fatal(err)
	}
	defer stop()
	// Occupy slot 1 so archiving the second action fails.
	if _, err := st.db.ExecContext(ctx,
		`INSERT INTO actions(match_id,seq,type,payload_json,ts) VALUES ('m1',1,'taken','{}','')`); err != nil {
		t.Fatal(err)
	}

	if err := sess.Dispatch(ctx, deploy("p1", 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := sess.Dispatch(ctx, deploy("p2", 3, 3)); err != nil {
		t.Fatal(err)
	}
	end := engine.MustAction(engine.ActionEndTurn, engine.EndTurnPayload{PlayerID: sess.Active().PlayerID})
	if err := sess.Dispatch(ctx, end); err != nil {
		t.Fatal(err)
	}

	rows, err := st.db.QueryContext(ctx, `SELECT seq,type FROM actions WHERE match_id='m1' ORDER BY seq`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var seq int
		var typ string
		if err := rows.Scan(&seq, &typ); err != nil {
			t.Fatal(err)
		}
		got = append(got, fmt.Sprintf("%d:%s", seq, typ))
	}
	want := []string{"0:deploy", "1:taken", "2:endTurn"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("archived = %v, want %v", got, want)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)
	for _, id := range []string{"a", "b"} {
		if err := st.CreateMatch(ctx, id, id, testSetup()); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.CreateMatch(ctx, "a", "dup", testSetup()); err == nil {
		t.Error("duplicate match id accepted")
	}

	list, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "b" {
		t.Errorf("list = %+v, want b first", list)
	}

	if err := st.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if _, err := st.Setup(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Setup(deleted) err = %v", err)
	}
}

func TestAppendActionUnknownMatch(t *testing.T) {
	st := openTest(t)
	err := st.AppendAction(context.Background(), "nope", 0, deploy("p1", 0, 0), engine.PhaseDeploy, "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "m.db")
	st, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.CreateMatch(ctx, "m", "", testSetup()); err != nil {
		t.Fatal(err)
	}
	st.Close()

	st, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if _, err := st.Get(ctx, "m"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
