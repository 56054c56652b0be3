package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/isotactics/types"
	"gopkg.in/yaml.v3"
)

// Scenario is a battle setup read from YAML.
type Scenario struct {
	Title string
	// ContentDir is the Lua content directory the scenario was written for,
	// resolved against the scenario file. Empty means built-in content.
	ContentDir string
	Setup      types.Setup
}

type scenarioFile struct {
	ID        string           `yaml:"id"`
	Title     string           `yaml:"title"`
	Seed      string           `yaml:"seed"`
	Content   string           `yaml:"content"`
	Map       mapFile          `yaml:"map"`
	Players   []playerFile     `yaml:"players"`
	Obstacles []obstacleFile   `yaml:"obstacles"`
	History   []map[string]any `yaml:"history"`
}

type mapFile struct {
	Levels []string   `yaml:"levels"`
	Cells  []cellFile `yaml:"cells"`
}

type cellFile struct {
	At      []int  `yaml:"at"`
	Terrain string `yaml:"terrain"`
	Deploy  *int   `yaml:"deploy"`
}

type playerFile struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	Roster     []string     `yaml:"roster"`
	Deployment []deployFile `yaml:"deployment"`
}

type deployFile struct {
	Character string `yaml:"character"`
	At        []int  `yaml:"at"`
}

type obstacleFile struct {
	ID     int    `yaml:"id"`
	Sprite string `yaml:"sprite"`
	At     []int  `yaml:"at"`
}

// Layout characters. Digits mark grass deployable by slot digit-1.
var layoutTerrain = map[rune]string{
	'.': "grass",
	':': "sand",
	'^': "stone",
	'~': "water",
	'#': "wall",
	'x': "void",
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.ContentDir != "" && !filepath.IsAbs(sc.ContentDir) {
		sc.ContentDir = filepath.Join(filepath.Dir(path), sc.ContentDir)
	}
	return sc, nil
}

// ParseScenario converts scenario YAML into a session setup.
func ParseScenario(data []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if f.ID == "" {
		return nil, fmt.Errorf("scenario id is required")
	}
	if len(f.Players) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one player is required", f.ID)
	}

	m, err := parseLayout(f.Map)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", f.ID, err)
	}
	setup := types.Setup{ID: f.ID, Seed: f.Seed, Map: m}
	if setup.Seed == "" {
		setup.Seed = f.ID
	}

	for _, pf := range f.Players {
		pd := types.PlayerDef{ID: pf.ID, Name: pf.Name, Roster: pf.Roster}
		if pd.Name == "" {
			pd.Name = pf.ID
		}
		for _, d := range pf.Deployment {
			p, err := point(d.At)
			if err != nil {
				return nil, fmt.Errorf("player %s deployment %s: %w", pf.ID, d.Character, err)
			}
			pd.Deployment = append(pd.Deployment, types.DeploymentEntry{CharacterID: d.Character, Position: p})
		}
		setup.Players = append(setup.Players, pd)
	}

	for i, of := range f.Obstacles {
		p, err := point(of.At)
		if err != nil {
			return nil, fmt.Errorf("obstacle %d: %w", i, err)
		}
		id := of.ID
		if id == 0 {
			id = i + 1
		}
		setup.Obstacles = append(setup.Obstacles, types.ObstacleDef{ID: id, SpriteID: of.Sprite, Position: p})
	}

	for i, h := range f.History {
		a, err := historyAction(h)
		if err != nil {
			return nil, fmt.Errorf("history %d: %w", i, err)
		}
		setup.History = append(setup.History, a)
	}

	return &Scenario{Title: f.Title, ContentDir: f.Content, Setup: setup}, nil
}

// parseLayout builds the map from one ASCII grid per level, then applies
// explicit cell overrides.
func parseLayout(mf mapFile) (types.MapDef, error) {
	if len(mf.Levels) == 0 {
		return types.MapDef{}, fmt.Errorf("map needs at least one level")
	}
	def := types.MapDef{Levels: len(mf.Levels)}
	index := map[types.Point]int{}

	for z, level := range mf.Levels {
		rows := strings.Split(strings.TrimRight(level, "\n"), "\n")
		if len(rows) > def.Height {
			def.Height = len(rows)
		}
		for y, row := range rows {
			runes := []rune(row)
			if len(runes) > def.Width {
				def.Width = len(runes)
			}
			for x, r := range runes {
				if r == ' ' || r == '_' {
					continue
				}
				cd := types.CellDef{Position: types.Point{X: x, Y: y, Z: z}}
				switch {
				case r >= '1' && r <= '9':
					slot := int(r - '1')
					cd.Terrain = "grass"
					cd.AvailableForDeploy = &slot
				case layoutTerrain[r] != "":
					cd.Terrain = layoutTerrain[r]
				default:
					return types.MapDef{}, fmt.Errorf("level %d row %d: unknown layout character %q", z, y, r)
				}
				index[cd.Position] = len(def.Cells)
				def.Cells = append(def.Cells, cd)
			}
		}
	}

	for _, cf := range mf.Cells {
		p, err := point(cf.At)
		if err != nil {
			return types.MapDef{}, fmt.Errorf("cell override: %w", err)
		}
		cd := types.CellDef{Position: p, Terrain: cf.Terrain, AvailableForDeploy: cf.Deploy}
		if cd.Terrain == "" {
			cd.Terrain = "grass"
		}
		if i, ok := index[p]; ok {
			def.Cells[i] = cd
			continue
		}
		index[p] = len(def.Cells)
		def.Cells = append(def.Cells, cd)
	}
	return def, nil
}

// point converts [x, y] or [x, y, z] into a Point.
func point(xyz []int) (types.Point, error) {
	switch len(xyz) {
	case 2:
		return types.Point{X: xyz[0], Y: xyz[1]}, nil
	case 3:
		return types.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
	}
	return types.Point{}, fmt.Errorf("position %v must be [x, y] or [x, y, z]", xyz)
}

// historyAction converts a {type, payload} YAML entry into a wire action.
func historyAction(h map[string]any) (types.SerializedAction, error) {
	t, _ := h["type"].(string)
	if t == "" {
		return types.SerializedAction{}, fmt.Errorf("action type is required")
	}
	payload, err := json.Marshal(h["payload"])
	if err != nil {
		return types.SerializedAction{}, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	return types.SerializedAction{Type: t, Payload: payload}, nil
}
