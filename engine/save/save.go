// Package save implements JSON serialization of match records. A record is
// the initial setup plus the accepted history; restoring replays it.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/types"
)

// Version is the record format version written by Save.
const Version = "1"

// ErrVersion is returned when a record was written by another format.
var ErrVersion = errors.New("unsupported save version")

// ErrDiverged is returned when a replayed record does not reach the saved
// RNG position.
var ErrDiverged = errors.New("replay diverged from saved record")

// Record is the JSON-serializable save format.
type Record struct {
	Version     string      `json:"version"`
	Title       string      `json:"title,omitempty"`
	SavedAt     time.Time   `json:"saved_at"`
	Phase       string      `json:"phase"`
	Actions     int         `json:"actions"`
	RNGPosition int64       `json:"rng_position"`
	Setup       types.Setup `json:"setup"`
}

// Snapshot builds a record of the session as it stands.
func Snapshot(s *engine.Session, now time.Time) Record {
	setup := s.Setup()
	return Record{
		Version:     Version,
		Title:       s.Catalog().Title,
		SavedAt:     now.UTC(),
		Phase:       s.Phase(),
		Actions:     len(setup.History),
		RNGPosition: s.RNGPosition(),
		Setup:       setup,
	}
}

// Save serializes the session to indented JSON.
func Save(s *engine.Session) ([]byte, error) {
	return json.MarshalIndent(Snapshot(s, time.Now()), "", "  ")
}

// Load deserializes a record.
func Load(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding save: %w", err)
	}
	if rec.Version != Version {
		return nil, fmt.Errorf("%w: %q", ErrVersion, rec.Version)
	}
	// Ensure slices are never nil after load.
	if rec.Setup.History == nil {
		rec.Setup.History = []types.SerializedAction{}
	}
	return &rec, nil
}

// Restore replays the record into a new authoritative session and checks
// that it lands where the saved one was.
func Restore(ctx context.Context, rec *Record, opts ...engine.Option) (*engine.Session, error) {
	s, err := engine.NewServerSession(ctx, rec.Setup, opts...)
	if err != nil {
		return nil, fmt.Errorf("replaying save: %w", err)
	}
	if s.RNGPosition() != rec.RNGPosition || s.Phase() != rec.Phase {
		return nil, fmt.Errorf("%w: rng position %d, phase %s; saved %d, %s",
			ErrDiverged, s.RNGPosition(), s.Phase(), rec.RNGPosition, rec.Phase)
	}
	return s, nil
}
