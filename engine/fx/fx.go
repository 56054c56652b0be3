// Package fx defines the animation collaborator the session calls into.
// Implementations may block until an animation finishes; the session never
// lets game state depend on the outcome.
package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/nathoo/isotactics/types"
)

// ShakeOptions tunes ShakeEntity.
type ShakeOptions struct {
	Amount   float64
	Axis     string // "x", "y" or "both"
	Count    int
	Duration time.Duration
}

// TextOptions tunes DisplayText.
type TextOptions struct {
	Color    string
	Path     []types.Point
	Duration time.Duration
}

// System receives visual cues.
type System interface {
	MoveEntity(ctx context.Context, entityID int, path []types.Point) error
	Attack(ctx context.Context, attackerID, targetID int) error
	DisplayDamageIndicator(ctx context.Context, fromID, toID, amount int) error
	ShakeEntity(ctx context.Context, entityID int, opts ShakeOptions) error
	DisplayText(ctx context.Context, text string, entityID int, opts TextOptions) error
	FadeOutEntity(ctx context.Context, entityID int, duration time.Duration) error
}

// Noop discards every cue. Used by authoritative servers.
type Noop struct{}

func (Noop) MoveEntity(context.Context, int, []types.Point) error        { return nil }
func (Noop) Attack(context.Context, int, int) error                      { return nil }
func (Noop) DisplayDamageIndicator(context.Context, int, int, int) error { return nil }
func (Noop) ShakeEntity(context.Context, int, ShakeOptions) error        { return nil }
func (Noop) DisplayText(context.Context, string, int, TextOptions) error { return nil }
func (Noop) FadeOutEntity(context.Context, int, time.Duration) error     { return nil }

// Call is one recorded cue.
type Call struct {
	Name     string
	EntityID int
	OtherID  int
	Amount   int
	Text     string
	Path     []types.Point
}

func (c Call) String() string {
	switch c.Name {
	case "move":
		return fmt.Sprintf("move #%d %d steps", c.EntityID, len(c.Path))
	case "attack":
		return fmt.Sprintf("attack #%d -> #%d", c.EntityID, c.OtherID)
	case "damage":
		return fmt.Sprintf("damage #%d -> #%d (%d)", c.EntityID, c.OtherID, c.Amount)
	case "text":
		return fmt.Sprintf("text #%d %q", c.EntityID, c.Text)
	}
	return fmt.Sprintf("%s #%d", c.Name, c.EntityID)
}

// Recorder keeps every cue in order. Err, when set, is returned from
// every call after recording it.
type Recorder struct {
	Calls []Call
	Err   error
}

func (r *Recorder) record(c Call) error {
	r.Calls = append(r.Calls, c)
	return r.Err
}

// Names returns the recorded call names in order.
func (r *Recorder) Names() []string {
	out := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		out[i] = c.Name
	}
	return out
}

func (r *Recorder) MoveEntity(_ context.Context, id int, path []types.Point) error {
	return r.record(Call{Name: "move", EntityID: id, Path: append([]types.Point(nil), path...)})
}

func (r *Recorder) Attack(_ context.Context, attacker, target int) error {
	return r.record(Call{Name: "attack", EntityID: attacker, OtherID: target})
}

func (r *Recorder) DisplayDamageIndicator(_ context.Context, from, to, amount int) error {
	return r.record(Call{Name: "damage", EntityID: from, OtherID: to, Amount: amount})
}

func (r *Recorder) ShakeEntity(_ context.Context, id int, _ ShakeOptions) error {
	return r.record(Call{Name: "shake", EntityID: id})
}

func (r *Recorder) DisplayText(_ context.Context, text string, id int, _ TextOptions) error {
	return r.record(Call{Name: "text", EntityID: id, Text: text})
}

func (r *Recorder) FadeOutEntity(_ context.Context, id int, _ time.Duration) error {
	return r.record(Call{Name: "fade", EntityID: id})
}
