// Package parser converts hot-seat command lines into Intents and Intents
// into wire actions. Intentionally dumb: no grammar, just word patterns.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/types"
)

var directionExpansions = map[string]string{
	"n":     "north",
	"s":     "south",
	"w":     "west",
	"e":     "east",
	"north": "north",
	"south": "south",
	"west":  "west",
	"east":  "east",
}

var verbAliases = map[string]string{
	// Movement
	"m":    "move",
	"go":   "move",
	"walk": "move",
	"step": "move",

	// Combat
	"a":      "attack",
	"hit":    "attack",
	"strike": "attack",

	// Skills
	"c":     "skill",
	"cast":  "skill",
	"use":   "skill",
	"skill": "skill",

	// Turn flow
	"end":   "end",
	"pass":  "end",
	"done":  "end",
	"z":     "end",
	"place": "deploy",
	"d":     "deploy",
	"start": "start",
	"begin": "start",
	"fight": "start",

	// Information
	"l":        "look",
	"map":      "look",
	"x":        "inspect",
	"examine":  "inspect",
	"t":        "timeline",
	"order":    "timeline",
	"r":        "reach",
	"range":    "reach",
	"?":        "help",
	"h":        "help",
	"q":        "quit",
	"exit":     "quit",
	"keywords": "glossary",
}

var articles = map[string]bool{
	"the": true, "at": true, "to": true, "on": true,
}

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty command")

// Parse converts a raw command line into an Intent.
func Parse(input string) (types.Intent, error) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(words) == 0 {
		return types.Intent{}, ErrEmpty
	}

	// Direction shortcut: bare "n", "east", etc. -> move one step.
	if len(words) == 1 {
		if dir, ok := directionExpansions[words[0]]; ok {
			return types.Intent{Verb: "move", Direction: dir}, nil
		}
	}

	verb := words[0]
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	rest := stripArticles(words[1:])
	in := types.Intent{Verb: verb}

	switch verb {
	case "move":
		if len(rest) == 1 {
			if dir, ok := directionExpansions[rest[0]]; ok {
				in.Direction = dir
				return in, nil
			}
		}
		p, err := parsePoint(rest)
		if err != nil {
			return in, fmt.Errorf("move: %w", err)
		}
		in.Points = []types.Point{p}

	case "attack", "inspect":
		if len(rest) != 1 {
			return in, fmt.Errorf("%s: expected an entity id", verb)
		}
		id, err := strconv.Atoi(strings.TrimPrefix(rest[0], "#"))
		if err != nil {
			return in, fmt.Errorf("%s: bad entity id %q", verb, rest[0])
		}
		in.EntityID = id

	case "skill":
		if len(rest) == 0 {
			return in, errors.New("skill: expected a skill id")
		}
		in.Object = rest[0]
		for _, tok := range rest[1:] {
			p, err := parsePoint([]string{tok})
			if err != nil {
				return in, fmt.Errorf("skill target: %w", err)
			}
			in.Points = append(in.Points, p)
		}

	case "deploy":
		if len(rest) == 0 || len(rest)%2 != 0 {
			return in, errors.New("deploy: expected <character> <x,y,z> pairs")
		}
		for i := 0; i < len(rest); i += 2 {
			p, err := parsePoint([]string{rest[i+1]})
			if err != nil {
				return in, fmt.Errorf("deploy %s: %w", rest[i], err)
			}
			in.Names = append(in.Names, rest[i])
			in.Points = append(in.Points, p)
		}

	default:
		in.Object = strings.Join(rest, " ")
	}
	return in, nil
}

// parsePoint accepts "x,y[,z]" as one token or "x y [z]" as separate ones.
// A missing z is level 0.
func parsePoint(tokens []string) (types.Point, error) {
	if len(tokens) == 1 {
		tokens = strings.Split(tokens[0], ",")
	}
	if len(tokens) < 2 || len(tokens) > 3 {
		return types.Point{}, fmt.Errorf("expected coordinates x,y[,z], got %q", strings.Join(tokens, " "))
	}
	var xyz [3]int
	for i, tok := range tokens {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return types.Point{}, fmt.Errorf("bad coordinate %q", tok)
		}
		xyz[i] = n
	}
	return types.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// stripArticles removes filler words ("the", "at", "to", "on").
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}

// ToAction builds the wire action for a game intent on behalf of playerID.
// Information verbs and direction moves need session state and are not
// actions; they return an error.
func ToAction(in types.Intent, playerID string) (types.SerializedAction, error) {
	switch in.Verb {
	case "move":
		if len(in.Points) != 1 {
			return types.SerializedAction{}, errors.New("move: destination required")
		}
		p := in.Points[0]
		return engine.NewAction(engine.ActionMove, engine.MovePayload{PlayerID: playerID, X: p.X, Y: p.Y, Z: p.Z})
	case "attack":
		return engine.NewAction(engine.ActionAttack, engine.AttackPayload{PlayerID: playerID, TargetID: in.EntityID})
	case "skill":
		targets := in.Points
		if targets == nil {
			targets = []types.Point{}
		}
		return engine.NewAction(engine.ActionUseSkill, engine.UseSkillPayload{PlayerID: playerID, SkillID: in.Object, Targets: targets})
	case "end":
		return engine.NewAction(engine.ActionEndTurn, engine.EndTurnPayload{PlayerID: playerID})
	case "start":
		return engine.NewAction(engine.ActionStartBattle, engine.StartBattlePayload{PlayerID: playerID})
	case "deploy":
		entries := make([]types.DeploymentEntry, len(in.Names))
		for i, name := range in.Names {
			entries[i] = types.DeploymentEntry{CharacterID: name, Position: in.Points[i]}
		}
		return engine.NewAction(engine.ActionDeploy, engine.DeployPayload{PlayerID: playerID, Characters: entries})
	}
	return types.SerializedAction{}, fmt.Errorf("%q is not a game action", in.Verb)
}
