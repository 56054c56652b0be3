package unit

// Keyword is a named rule term shown on modifiers and skills.
type Keyword struct {
	ID          string
	Name        string
	Description string
}

// Keywords is the glossary of built-in terms.
var Keywords = map[string]Keyword{
	"tough":        {ID: "tough", Name: "Tough", Description: "Takes 1 less damage from all sources."},
	"vulnerable":   {ID: "vulnerable", Name: "Vulnerable", Description: "Takes 1 more damage from all sources."},
	"elusive":      {ID: "elusive", Name: "Elusive", Description: "Cannot be targeted by basic attacks."},
	"rooted":       {ID: "rooted", Name: "Rooted", Description: "Cannot move."},
	"disarmed":     {ID: "disarmed", Name: "Disarmed", Description: "Cannot attack."},
	"silenced":     {ID: "silenced", Name: "Silenced", Description: "Cannot use skills."},
	"burn":         {ID: "burn", Name: "Burn", Description: "Takes damage at the start of each turn."},
	"regeneration": {ID: "regeneration", Name: "Regeneration", Description: "Recovers HP at the start of each turn."},
	"haste":        {ID: "haste", Name: "Haste", Description: "Gains initiative."},
	"slow":         {ID: "slow", Name: "Slow", Description: "Loses movement."},
	"area":         {ID: "area", Name: "Area", Description: "Affects every cell in an area."},
	"ranged":       {ID: "ranged", Name: "Ranged", Description: "Targets cells beyond melee reach."},
}
