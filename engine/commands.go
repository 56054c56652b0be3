package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nathoo/isotactics/engine/effects"
	"github.com/nathoo/isotactics/engine/fx"
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

// command is a decoded action. check must not mutate; apply assumes check
// passed and only fails on structural errors.
type command interface {
	check(s *Session) error
	apply(ctx context.Context, s *Session) error
}

type deployCommand DeployPayload

func (c *deployCommand) check(s *Session) error {
	if s.Phase() != PhaseDeploy {
		return ErrWrongPhase
	}
	p := s.Player(c.PlayerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Deployed() {
		return ErrAlreadyDeployed
	}
	if len(c.Characters) == 0 {
		return fmt.Errorf("%w: no characters", ErrInvalidDeployment)
	}

	taken := map[grid.Point]bool{}
	for _, other := range s.players {
		for _, d := range other.Deployment {
			taken[d.Position] = true
		}
	}
	remaining := p.rosterCounts()
	for _, d := range c.Characters {
		if remaining[d.CharacterID] == 0 {
			return fmt.Errorf("%w: %q is not in the roster", ErrInvalidDeployment, d.CharacterID)
		}
		remaining[d.CharacterID]--
		if _, ok := s.catalog.Blueprint(d.CharacterID); !ok {
			return fmt.Errorf("%w: unknown character %q", ErrInvalidDeployment, d.CharacterID)
		}
		cell := s.gmap.CellAt(d.Position)
		if cell == nil || !cell.Walkable() {
			return fmt.Errorf("%w: cell %s is not walkable", ErrInvalidDeployment, grid.Key(d.Position))
		}
		if s.deployZones && !cell.DeployableBy(p.Slot) {
			return fmt.Errorf("%w: cell %s is outside the deploy zone", ErrInvalidDeployment, grid.Key(d.Position))
		}
		if taken[d.Position] || s.ObstacleAt(d.Position) {
			return fmt.Errorf("%w: cell %s is occupied", ErrInvalidDeployment, grid.Key(d.Position))
		}
		taken[d.Position] = true
	}
	return nil
}

func (c *deployCommand) apply(ctx context.Context, s *Session) error {
	p := s.Player(c.PlayerID)
	p.Deployment = append([]types.DeploymentEntry(nil), c.Characters...)
	for _, other := range s.players {
		if !other.Deployed() {
			return nil
		}
	}
	return s.startBattle(ctx)
}

type addObstacleCommand AddObstaclePayload

func (c *addObstacleCommand) check(s *Session) error {
	if s.Phase() != PhaseDeploy {
		return ErrWrongPhase
	}
	if s.Player(c.PlayerID) == nil {
		return ErrUnknownPlayer
	}
	p := types.Point{X: c.X, Y: c.Y, Z: c.Z}
	if cell := s.gmap.CellAt(p); cell == nil || !cell.Walkable() {
		return fmt.Errorf("%w: cell %s is not walkable", ErrInvalidPlacement, grid.Key(p))
	}
	if s.ObstacleAt(p) {
		return fmt.Errorf("%w: cell %s already has an obstacle", ErrInvalidPlacement, grid.Key(p))
	}
	for _, pl := range s.players {
		for _, d := range pl.Deployment {
			if d.Position == p {
				return fmt.Errorf("%w: cell %s is deployed on", ErrInvalidPlacement, grid.Key(p))
			}
		}
	}
	return nil
}

func (c *addObstacleCommand) apply(_ context.Context, s *Session) error {
	id := 1
	for _, o := range s.obstacles {
		if o.ID >= id {
			id = o.ID + 1
		}
	}
	s.obstacles = append(s.obstacles, &Obstacle{
		ID:       id,
		SpriteID: c.SpriteID,
		Position: types.Point{X: c.X, Y: c.Y, Z: c.Z},
	})
	return nil
}

type startBattleCommand StartBattlePayload

func (c *startBattleCommand) check(s *Session) error {
	if s.Phase() != PhaseDeploy {
		return ErrWrongPhase
	}
	if s.Player(c.PlayerID) == nil {
		return ErrUnknownPlayer
	}
	for _, p := range s.players {
		if p.Deployed() {
			return nil
		}
	}
	return ErrNothingDeployed
}

func (c *startBattleCommand) apply(ctx context.Context, s *Session) error {
	return s.startBattle(ctx)
}

// activeFor returns the active entity if playerID owns it.
func (s *Session) activeFor(playerID string) (*unit.Entity, error) {
	if s.Phase() != PhaseBattle {
		return nil, ErrWrongPhase
	}
	if s.Player(playerID) == nil {
		return nil, ErrUnknownPlayer
	}
	active := s.Active()
	if active == nil || active.PlayerID != playerID {
		return nil, ErrNotOwner
	}
	return active, nil
}

type moveCommand struct {
	MovePayload
	path *grid.Path
}

func (c *moveCommand) check(s *Session) error {
	active, err := s.activeFor(c.PlayerID)
	if err != nil {
		return err
	}
	path := s.PathFor(active, types.Point{X: c.X, Y: c.Y, Z: c.Z})
	if path == nil || path.Distance == 0 {
		return ErrNoPath
	}
	if !active.CanMove(path.Distance) {
		return ErrCannotMove
	}
	c.path = path
	return nil
}

func (c *moveCommand) apply(ctx context.Context, s *Session) error {
	active := s.Active()
	s.cue(ctx, "move", func(ctx context.Context) error {
		return s.fx.MoveEntity(ctx, active.ID, c.path.Points)
	})
	active.Move(c.path.Points)
	return nil
}

type attackCommand AttackPayload

func (c *attackCommand) check(s *Session) error {
	active, err := s.activeFor(c.PlayerID)
	if err != nil {
		return err
	}
	target := s.EntityByID(c.TargetID)
	if target == nil {
		return ErrUnknownEntity
	}
	if err := active.CheckAttack(target); err != nil {
		return fmt.Errorf("%w: %w", ErrCannotAttack, err)
	}
	return nil
}

func (c *attackCommand) apply(ctx context.Context, s *Session) error {
	active := s.Active()
	target := s.EntityByID(c.TargetID)
	s.cue(ctx, "attack", func(ctx context.Context) error {
		return s.fx.Attack(ctx, active.ID, target.ID)
	})
	dealt := active.PerformAttack(target)
	s.cue(ctx, "damage", func(ctx context.Context) error {
		return s.fx.DisplayDamageIndicator(ctx, active.ID, target.ID, dealt)
	})
	if dealt > 0 {
		s.cue(ctx, "shake", func(ctx context.Context) error {
			return s.fx.ShakeEntity(ctx, target.ID, fx.ShakeOptions{Amount: 3, Axis: "x", Count: 3, Duration: 150 * time.Millisecond})
		})
	}
	return nil
}

type useSkillCommand struct {
	UseSkillPayload
	skill *unit.Skill
}

func (c *useSkillCommand) check(s *Session) error {
	active, err := s.activeFor(c.PlayerID)
	if err != nil {
		return err
	}
	skill := active.Blueprint.Skill(c.SkillID)
	if skill == nil {
		return ErrUnknownSkill
	}
	if err := active.CheckSkill(skill, c.Targets); err != nil {
		return fmt.Errorf("%w: %w", ErrCannotUseSkill, err)
	}
	c.skill = skill
	return nil
}

func (c *useSkillCommand) apply(ctx context.Context, s *Session) error {
	active := s.Active()
	s.cue(ctx, "text", func(ctx context.Context) error {
		return s.fx.DisplayText(ctx, c.skill.Name, active.ID, fx.TextOptions{Color: "white"})
	})
	cells, effs := active.UseSkill(c.skill, c.Targets)
	outcomes := effects.Apply(effects.Context{
		Field:     s,
		Source:    active,
		Targets:   c.Targets,
		Cells:     cells,
		Modifiers: s.catalog.NewModifier,
	}, effs)
	s.present(ctx, outcomes)
	return nil
}

type endTurnCommand EndTurnPayload

func (c *endTurnCommand) check(s *Session) error {
	_, err := s.activeFor(c.PlayerID)
	return err
}

func (c *endTurnCommand) apply(ctx context.Context, s *Session) error {
	s.Active().EndTurn()
	return s.nextTurn(ctx)
}

// present turns effect outcomes into visual cues.
func (s *Session) present(ctx context.Context, outcomes []effects.Outcome) {
	for _, o := range outcomes {
		switch o.Type {
		case "damage":
			s.cue(ctx, "damage", func(ctx context.Context) error {
				return s.fx.DisplayDamageIndicator(ctx, o.SourceID, o.EntityID, o.Amount)
			})
		case "heal":
			s.cue(ctx, "text", func(ctx context.Context) error {
				return s.fx.DisplayText(ctx, fmt.Sprintf("+%d", o.Amount), o.EntityID, fx.TextOptions{Color: "green"})
			})
		case "teleport":
			s.cue(ctx, "move", func(ctx context.Context) error {
				return s.fx.MoveEntity(ctx, o.EntityID, []types.Point{o.To})
			})
		case "text":
			s.cue(ctx, "text", func(ctx context.Context) error {
				return s.fx.DisplayText(ctx, o.Text, o.EntityID, fx.TextOptions{})
			})
		}
	}
}
