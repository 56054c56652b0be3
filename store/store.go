// Package store archives matches in SQLite: the setup a match started from
// and every accepted action, so any match can be rebuilt by replay.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/events"
	"github.com/nathoo/isotactics/types"
)

// ErrNotFound is returned for unknown match ids.
var ErrNotFound = errors.New("match not found")

// Match is one archived match row.
type Match struct {
	ID         string
	Title      string
	ScenarioID string
	Seed       string
	Phase      string
	Winner     string
	Actions    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the match archive.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	Now func() time.Time
}

// Open opens or creates the archive at path and applies migrations.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating archive: %w", err)
	}
	return &Store{db: db, log: log.With(zap.String("archive", path)), Now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) stamp() string {
	return s.Now().UTC().Format(time.RFC3339Nano)
}

// CreateMatch records a new match. The setup's history is not stored here;
// actions are appended one by one.
func (s *Store) CreateMatch(ctx context.Context, id, title string, setup types.Setup) error {
	setup.History = nil
	data, err := json.Marshal(setup)
	if err != nil {
		return fmt.Errorf("marshal setup: %w", err)
	}
	ts := s.stamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches(id,title,scenario_id,seed,setup_json,phase,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		id, title, setup.ID, setup.Seed, string(data), engine.PhaseDeploy, ts, ts)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", id, err)
	}
	s.log.Debug("match created", zap.String("match", id), zap.String("scenario", setup.ID))
	return nil
}

// AppendAction stores the action at position seq (0-based) and updates
// the match phase and winner.
func (s *Store) AppendAction(ctx context.Context, matchID string, seq int, a types.SerializedAction, phase, winner string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := s.stamp()
	res, err := tx.ExecContext(ctx,
		`UPDATE matches SET phase=?, winner=?, updated_at=? WHERE id=?`,
		phase, nullable(winner), ts, matchID)
	if err != nil {
		return fmt.Errorf("update match %s: %w", matchID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO actions(match_id,seq,type,payload_json,ts) VALUES (?,?,?,?,?)`,
		matchID, seq, a.Type, string(a.Payload), ts)
	if err != nil {
		return fmt.Errorf("insert action %d: %w", seq, err)
	}
	return tx.Commit()
}

// Setup returns the match setup with its archived actions as history.
func (s *Store) Setup(ctx context.Context, matchID string) (types.Setup, error) {
	var setup types.Setup
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT setup_json FROM matches WHERE id=?`, matchID).Scan(&data)
	if err == sql.ErrNoRows {
		return setup, ErrNotFound
	}
	if err != nil {
		return setup, err
	}
	if err := json.Unmarshal([]byte(data), &setup); err != nil {
		return setup, fmt.Errorf("decode setup of %s: %w", matchID, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type,payload_json FROM actions WHERE match_id=? ORDER BY seq`, matchID)
	if err != nil {
		return setup, err
	}
	defer rows.Close()
	for rows.Next() {
		var a types.SerializedAction
		var payload string
		if err := rows.Scan(&a.Type, &payload); err != nil {
			return setup, err
		}
		a.Payload = json.RawMessage(payload)
		setup.History = append(setup.History, a)
	}
	return setup, rows.Err()
}

// Get returns one match row.
func (s *Store) Get(ctx context.Context, id string) (Match, error) {
	rows, err := s.query(ctx, `WHERE m.id=?`, id)
	if err != nil {
		return Match{}, err
	}
	if len(rows) == 0 {
		return Match{}, ErrNotFound
	}
	return rows[0], nil
}

// List returns every match, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Match, error) {
	return s.query(ctx, ``)
}

func (s *Store) query(ctx context.Context, where string, args ...any) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.id,m.title,m.scenario_id,m.seed,m.phase,COALESCE(m.winner,''),
		(SELECT COUNT(*) FROM actions a WHERE a.match_id=m.id),m.created_at,m.updated_at
		FROM matches m `+where+` ORDER BY m.updated_at DESC, m.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var m Match
		var created, updated string
		if err := rows.Scan(&m.ID, &m.Title, &m.ScenarioID, &m.Seed, &m.Phase, &m.Winner, &m.Actions, &created, &updated); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a match and its actions.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Track records a live session under matchID: the match row now, and each
// accepted action as it is published. The returned func stops tracking.
// Actions already in the session's history are archived first.
func (s *Store) Track(ctx context.Context, matchID, title string, sess *engine.Session) (func(), error) {
	setup := sess.Setup()
	history := setup.History
	if err := s.CreateMatch(ctx, matchID, title, setup); err != nil {
		return nil, err
	}
	winner := func() string {
		w, _ := sess.Winner()
		return w
	}
	for i, a := range history {
		if err := s.AppendAction(ctx, matchID, i, a, sess.Phase(), winner()); err != nil {
			return nil, err
		}
	}
	sub := sess.Subscribe(events.GameAction, func(ev events.Event) {
		// The action is already in history; its slot there is its seq.
		seq := len(sess.History()) - 1
		if err := s.AppendAction(ctx, matchID, seq, *ev.Action, sess.Phase(), winner()); err != nil {
			s.log.Error("archiving action", zap.String("match", matchID), zap.Int("seq", seq), zap.Error(err))
		}
	})
	return func() { sess.Unsubscribe(sub) }, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
