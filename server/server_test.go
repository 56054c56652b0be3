package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/store"
	"github.com/nathoo/isotactics/types"
)

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

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	ids := 0
	cfg.NewID = func() string {
		ids++
		return "m" + string(rune('0'+ids))
	}
	s := New(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestHTTPMatchLifecycle(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var created struct {
		ID    string          `json:"id"`
		State types.GameState `json:"state"`
	}
	if code := doJSON(t, "POST", ts.URL+"/matches", createRequest{Title: "Arena", Setup: testSetup()}, &created); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.ID != "m1" || created.State.Phase != engine.PhaseDeploy {
		t.Fatalf("created = %+v", created)
	}
	base := ts.URL + "/matches/m1"

	var st types.GameState
	if code := doJSON(t, "POST", base+"/actions", deploy("p1", 0, 0), &st); code != http.StatusOK {
		t.Fatalf("deploy status = %d", code)
	}
	if code := doJSON(t, "POST", base+"/actions", deploy("p2", 3, 3), &st); code != http.StatusOK {
		t.Fatalf("deploy status = %d", code)
	}
	if st.Phase != engine.PhaseBattle || len(st.Entities) != 2 || st.ActiveEntityID == 0 {
		t.Fatalf("state = %+v", st)
	}

	tests := []struct {
		name   string
		action any
		status int
		code   string
	}{
		{"illegal", deploy("p1", 1, 1), http.StatusConflict, "illegal_command"},
		{"unknown type", types.SerializedAction{Type: "dance", Payload: json.RawMessage(`{}`)}, http.StatusBadRequest, "unknown_action"},
		{"bad payload", types.SerializedAction{Type: engine.ActionMove, Payload: json.RawMessage(`{"playerId":"p1"}`)}, http.StatusBadRequest, "invalid_payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e apiError
			if code := doJSON(t, "POST", base+"/actions", tt.action, &e); code != tt.status || e.Error.Code != tt.code {
				t.Errorf("status %d code %q, want %d %q (%s)", code, e.Error.Code, tt.status, tt.code, e.Error.Message)
			}
		})
	}

	var setup types.Setup
	doJSON(t, "GET", base+"/setup", nil, &setup)
	if len(setup.History) != 2 {
		t.Errorf("setup history = %d, want 2", len(setup.History))
	}

	var list []matchSummary
	doJSON(t, "GET", ts.URL+"/matches", nil, &list)
	if len(list) != 1 || list[0].Title != "Arena" || list[0].Actions != 2 || list[0].Phase != engine.PhaseBattle {
		t.Errorf("list = %+v", list)
	}

	if code := doJSON(t, "DELETE", base, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete status = %d", code)
	}
	var e apiError
	if code := doJSON(t, "GET", base, nil, &e); code != http.StatusNotFound || e.Error.Code != "not_found" {
		t.Errorf("get deleted = %d %+v", code, e)
	}
}

func TestHTTPRejectsBadSetup(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	setup := testSetup()
	setup.Players = append(setup.Players, setup.Players[0])
	var e apiError
	if code := doJSON(t, "POST", ts.URL+"/matches", createRequest{Setup: setup}, &e); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestSchemasEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	var schemas map[string]json.RawMessage
	if code := doJSON(t, "GET", ts.URL+"/schemas", nil, &schemas); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, a := range engine.ActionTypes() {
		if _, ok := schemas[a]; !ok {
			t.Errorf("schema for %s missing", a)
		}
	}
}

func dialWS(t *testing.T, ts *httptest.Server, match, player string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/matches/" + match + "/ws"
	if player != "" {
		url += "?player=" + player
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg serverMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebsocketStreamsActions(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	id, err := s.Create(context.Background(), "", testSetup())
	if err != nil {
		t.Fatal(err)
	}

	p1 := dialWS(t, ts, id, "p1")
	watcher := dialWS(t, ts, id, "")

	first := readMsg(t, p1)
	if first.Type != msgSetup || first.Setup == nil {
		t.Fatalf("first message = %+v", first)
	}
	replica, err := engine.NewClientSession(context.Background(), *first.Setup)
	if err != nil {
		t.Fatal(err)
	}
	if m := readMsg(t, watcher); m.Type != msgSetup {
		t.Fatalf("watcher first message = %+v", m)
	}

	a := deploy("p1", 0, 0)
	if err := p1.WriteJSON(clientMessage{Type: msgAction, Seq: 1, Action: &actionEnvelope{a}}); err != nil {
		t.Fatal(err)
	}
	got := readMsg(t, p1)
	if got.Type != msgAction || got.Action == nil || got.Action.Type != engine.ActionDeploy {
		t.Fatalf("broadcast = %+v", got)
	}
	if err := replica.Replicate(context.Background(), *got.Action); err != nil {
		t.Fatalf("Replicate: %v", err)
	}
	if ack := readMsg(t, p1); ack.Type != msgAck || ack.Seq != 1 {
		t.Errorf("ack = %+v", ack)
	}
	if m := readMsg(t, watcher); m.Type != msgAction {
		t.Errorf("watcher got %+v", m)
	}

	// p1 may not act for p2; spectators may not act at all.
	if err := p1.WriteJSON(clientMessage{Type: msgAction, Seq: 2, Action: &actionEnvelope{deploy("p2", 3, 3)}}); err != nil {
		t.Fatal(err)
	}
	if rej := readMsg(t, p1); rej.Type != msgReject || rej.Seq != 2 || rej.Code != "forbidden" {
		t.Errorf("reject = %+v", rej)
	}
	if err := watcher.WriteJSON(clientMessage{Type: msgAction, Seq: 7, Action: &actionEnvelope{deploy("p2", 3, 3)}}); err != nil {
		t.Fatal(err)
	}
	if rej := readMsg(t, watcher); rej.Type != msgReject || rej.Seq != 7 {
		t.Errorf("spectator reject = %+v", rej)
	}

	// An illegal command is rejected with its reason.
	if err := p1.WriteJSON(clientMessage{Type: msgAction, Seq: 3, Action: &actionEnvelope{deploy("p1", 1, 1)}}); err != nil {
		t.Fatal(err)
	}
	if rej := readMsg(t, p1); rej.Type != msgReject || rej.Code != "illegal_command" {
		t.Errorf("illegal reject = %+v", rej)
	}

	var st types.GameState
	doJSON(t, "GET", ts.URL+"/matches/"+id, nil, &st)
	want, _ := json.Marshal(st)
	have, _ := json.Marshal(replica.State())
	if string(want) != string(have) {
		t.Errorf("replica diverged\nserver  %s\nreplica %s", want, have)
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	id, err := s.Create(context.Background(), "", testSetup())
	if err != nil {
		t.Fatal(err)
	}
	conn := dialWS(t, ts, id, "p1")
	readMsg(t, conn)

	s.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after Close")
	}
	if _, err := s.Create(context.Background(), "", testSetup()); err != ErrClosed {
		t.Errorf("Create after Close err = %v", err)
	}
}

func TestMatchesAreArchived(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "m.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	_, ts := newTestServer(t, Config{Store: st})

	var created struct {
		ID string `json:"id"`
	}
	doJSON(t, "POST", ts.URL+"/matches", createRequest{Title: "Kept", Setup: testSetup()}, &created)
	doJSON(t, "POST", ts.URL+"/matches/"+created.ID+"/actions", deploy("p1", 0, 0), nil)

	m, err := st.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("archived match: %v", err)
	}
	if m.Title != "Kept" || m.Actions != 1 {
		t.Errorf("archived = %+v", m)
	}
}
