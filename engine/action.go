package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/nathoo/isotactics/types"
)

// Action types accepted by Dispatch.
const (
	ActionDeploy      = "deploy"
	ActionAddObstacle = "addObstacle"
	ActionStartBattle = "startBattle"
	ActionMove        = "move"
	ActionAttack      = "attack"
	ActionUseSkill    = "useSkill"
	ActionEndTurn     = "endTurn"
)

// DeployPayload commits a player's starting positions.
type DeployPayload struct {
	PlayerID   string                  `json:"playerId" jsonschema:"deploying player"`
	Characters []types.DeploymentEntry `json:"characters" jsonschema:"roster characters and their cells"`
}

// AddObstaclePayload places an obstacle during deployment. Ids continue
// after the highest existing obstacle id.
type AddObstaclePayload struct {
	PlayerID string `json:"playerId" jsonschema:"player placing the obstacle"`
	SpriteID string `json:"spriteId" jsonschema:"sprite shown for the obstacle"`
	X        int    `json:"x" jsonschema:"column"`
	Y        int    `json:"y" jsonschema:"row"`
	Z        int    `json:"z" jsonschema:"level"`
}

// StartBattlePayload forces the battle to begin with current deployments.
type StartBattlePayload struct {
	PlayerID string `json:"playerId"`
}

// MovePayload moves the active entity to a cell.
type MovePayload struct {
	PlayerID string `json:"playerId" jsonschema:"player owning the active entity"`
	X        int    `json:"x" jsonschema:"destination column"`
	Y        int    `json:"y" jsonschema:"destination row"`
	Z        int    `json:"z" jsonschema:"destination level"`
}

// AttackPayload makes the active entity attack another entity.
type AttackPayload struct {
	PlayerID string `json:"playerId" jsonschema:"player owning the active entity"`
	TargetID int    `json:"targetId" jsonschema:"entity to attack"`
}

// UseSkillPayload makes the active entity use one of its skills.
type UseSkillPayload struct {
	PlayerID string        `json:"playerId" jsonschema:"player owning the active entity"`
	SkillID  string        `json:"skillId" jsonschema:"skill of the active entity"`
	Targets  []types.Point `json:"targets" jsonschema:"chosen target cells in order"`
}

// EndTurnPayload ends the active entity's turn.
type EndTurnPayload struct {
	PlayerID string `json:"playerId"`
}

// NewAction marshals a payload into its wire form.
func NewAction(actionType string, payload any) (types.SerializedAction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return types.SerializedAction{}, fmt.Errorf("encoding %s payload: %w", actionType, err)
	}
	return types.SerializedAction{Type: actionType, Payload: raw}, nil
}

// MustAction is NewAction for payloads that cannot fail to marshal.
func MustAction(actionType string, payload any) types.SerializedAction {
	a, err := NewAction(actionType, payload)
	if err != nil {
		panic(err)
	}
	return a
}

type payloadSchema struct {
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

var payloadSchemas = sync.OnceValues(func() (map[string]payloadSchema, error) {
	out := map[string]payloadSchema{}
	add := func(name string, s *jsonschema.Schema, err error) error {
		if err != nil {
			return fmt.Errorf("schema for %s: %w", name, err)
		}
		closeObject(s)
		r, err := s.Resolve(nil)
		if err != nil {
			return fmt.Errorf("resolving %s schema: %w", name, err)
		}
		out[name] = payloadSchema{schema: s, resolved: r}
		return nil
	}
	if err := add(schemaFor[DeployPayload](ActionDeploy)); err != nil {
		return nil, err
	}
	if err := add(schemaFor[AddObstaclePayload](ActionAddObstacle)); err != nil {
		return nil, err
	}
	if err := add(schemaFor[StartBattlePayload](ActionStartBattle)); err != nil {
		return nil, err
	}
	if err := add(schemaFor[MovePayload](ActionMove)); err != nil {
		return nil, err
	}
	if err := add(schemaFor[AttackPayload](ActionAttack)); err != nil {
		return nil, err
	}
	if err := add(schemaFor[UseSkillPayload](ActionUseSkill)); err != nil {
		return nil, err
	}
	if err := add(schemaFor[EndTurnPayload](ActionEndTurn)); err != nil {
		return nil, err
	}
	return out, nil
})

func schemaFor[T any](name string) (string, *jsonschema.Schema, error) {
	s, err := jsonschema.For[T](nil)
	return name, s, err
}

// closeObject rejects unknown properties on s and every nested object.
func closeObject(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	if s.Properties != nil {
		s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
		for _, p := range s.Properties {
			closeObject(p)
		}
	}
	closeObject(s.Items)
}

// PayloadSchemas returns the JSON Schema of every action payload, keyed by
// action type.
func PayloadSchemas() (map[string]*jsonschema.Schema, error) {
	schemas, err := payloadSchemas()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*jsonschema.Schema, len(schemas))
	for name, ps := range schemas {
		out[name] = ps.schema
	}
	return out, nil
}

// ActionTypes lists the registered action types in sorted order.
func ActionTypes() []string {
	schemas, _ := payloadSchemas()
	out := make([]string, 0, len(schemas))
	for name := range schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateAction checks an action's type and payload without a session.
func ValidateAction(a types.SerializedAction) error {
	_, err := parseCommand(a)
	return err
}

// parseCommand validates the payload against its schema and decodes it into
// the matching command.
func parseCommand(a types.SerializedAction) (command, error) {
	schemas, err := payloadSchemas()
	if err != nil {
		return nil, err
	}
	ps, ok := schemas[a.Type]
	if !ok {
		return nil, &UnknownActionError{Type: a.Type}
	}

	raw := bytes.TrimSpace(a.Payload)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s: empty payload", ErrInvalidPayload, a.Type)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, a.Type, err)
	}
	if err := ps.resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, a.Type, err)
	}

	var cmd command
	switch a.Type {
	case ActionDeploy:
		cmd = &deployCommand{}
	case ActionAddObstacle:
		cmd = &addObstacleCommand{}
	case ActionStartBattle:
		cmd = &startBattleCommand{}
	case ActionMove:
		cmd = &moveCommand{}
	case ActionAttack:
		cmd = &attackCommand{}
	case ActionUseSkill:
		cmd = &useSkillCommand{}
	case ActionEndTurn:
		cmd = &endTurnCommand{}
	}
	if err := json.Unmarshal(raw, cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, a.Type, err)
	}
	return cmd, nil
}
