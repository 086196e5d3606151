package game

import (
	"strings"

	"medievalrpg/internal/game/worldmap"
)

// Vital and attribute bounds. Deltas arriving from the narrative layer are
// clamped into these ranges on every mutation.
const (
	MaxHealth  = 100
	MaxStamina = 100
	MaxVital   = 100

	AttributeMin = 1
	AttributeMax = 20

	StartHealth     = 35
	StartStamina    = 30
	StartSatiety    = 20
	StartEnergy     = 55
	StartReputation = 25
	StartMorality   = 50

	SkillFirstThreshold = 100
)

// Skill tracks one leveled skill. NextLevel grows geometrically on level-up.
type Skill struct {
	Level     int `json:"level"`
	XP        int `json:"xp"`
	MaxLevel  int `json:"maxLevel"`
	NextLevel int `json:"nextLevel"`
}

type Attributes struct {
	Strength     int `json:"strength"`
	Agility      int `json:"agility"`
	Intelligence int `json:"intelligence"`
	Charisma     int `json:"charisma"`
}

type EquipmentSlot struct {
	Name      string `json:"name"`
	Condition int    `json:"condition"`
}

type Equipment struct {
	Weapon EquipmentSlot `json:"weapon"`
	Armor  EquipmentSlot `json:"armor"`
}

type Item struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
}

type PlayerPos struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	LocationID string `json:"locationId"`
}

type MapWaypoint struct {
	LocationID string `json:"locationId"`
	Name       string `json:"name"`
}

// NPCSighting records where and when an NPC was last narrated.
type NPCSighting struct {
	DayOfGame    int    `json:"dayOfGame"`
	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName"`
}

type NPC struct {
	Name        string       `json:"name"`
	Role        string       `json:"role,omitempty"`
	Status      string       `json:"status,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Faction     string       `json:"faction,omitempty"`
	Disposition int          `json:"disposition"`
	Memory      []string     `json:"memory,omitempty"`
	LastSeen    *NPCSighting `json:"lastSeen,omitempty"`
}

type Faction struct {
	Name        string `json:"name"`
	Disposition int    `json:"disposition"`
	Notes       string `json:"notes"`
}

type Debt struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     int    `json:"amount"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	DueDay     int    `json:"dueDay,omitempty"`
	CreatedDay int    `json:"createdDay"`
}

type Quest struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

type Milestone struct {
	Date      Date   `json:"date"`
	Event     string `json:"event"`
	DayOfGame int    `json:"dayOfGame"`
}

// HistoryEntry is one committed turn. The slice length doubles as the turn
// index for the deterministic check seed.
type HistoryEntry struct {
	Choice      string   `json:"choice"`
	Scene       string   `json:"scene"`
	Choices     []string `json:"choices"`
	Location    string   `json:"location"`
	Date        Date     `json:"date"`
	GameOver    bool     `json:"gameOver,omitempty"`
	DeathReason string   `json:"deathReason,omitempty"`
}

type Character struct {
	Background       string            `json:"background"`
	Traits           []string          `json:"traits"`
	RecentEvents     []string          `json:"recentEvents"`
	ImportantChoices []string          `json:"importantChoices"`
	NPCLocations     map[string]string `json:"npcLocations"`
	Memories         []string          `json:"memories,omitempty"`
	Milestones       []Milestone       `json:"milestones"`
}

// WorldState is the canonical per-session game state. It is created once at
// session start, mutated exactly once per committed turn by the engine, and
// discarded on session end or character death.
type WorldState struct {
	Name       string            `json:"name"`
	Gender     string            `json:"gender"`
	Location   string            `json:"location"`
	Date       Date              `json:"date"`
	Health     int               `json:"health"`
	MaxHealth  int               `json:"maxHealth"`
	Stamina    int               `json:"stamina"`
	MaxStamina int               `json:"maxStamina"`
	Coins      int               `json:"coins"`
	Satiety    int               `json:"satiety"`
	Energy     int               `json:"energy"`
	Reputation int               `json:"reputation"`
	Morality   int               `json:"morality"`
	Equipment  Equipment         `json:"equipment"`
	WorldMap   []worldmap.Node   `json:"worldMap"`
	WorldEdges []worldmap.Edge   `json:"worldEdges"`
	PlayerPos  PlayerPos         `json:"playerPos"`
	Waypoint   MapWaypoint       `json:"mapWaypoint"`
	Inventory  []Item            `json:"inventory"`
	Skills     map[string]*Skill `json:"skills"`
	Attributes Attributes        `json:"attributes"`
	Character  Character         `json:"character"`
	Quests     []Quest           `json:"quests"`
	History    []HistoryEntry    `json:"history"`
	NPCs       map[string]*NPC   `json:"npcs"`
	Factions   map[string]*Faction `json:"factions"`
	Debts      []Debt            `json:"debts"`

	// Guardrail cooldown trackers. Underscore keys keep save files compatible
	// with the original format.
	LastRepIncreaseDay    *int           `json:"_lastRepIncreaseDay"`
	LastMoralityChangeDay *int           `json:"_lastMoralityChangeDay"`
	NPCDispositionTurn    map[string]int `json:"_npcDispositionLastChangeTurn"`
}

// TurnIndex is the count of committed history entries.
func (s *WorldState) TurnIndex() int {
	return len(s.History)
}

// SkillValue resolves the actor value for a check key on a 0..100 scale.
// Leveled skills map directly; 1..10 attributes rescale by ten.
func (s *WorldState) SkillValue(key string) int {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return 0
	}
	if sk, ok := s.Skills[k]; ok && sk != nil {
		return clamp(sk.Level, 0, 100)
	}
	if v, ok := s.attributeValue(k); ok {
		return clamp(v, 1, 10) * 10
	}
	return 0
}

func (s *WorldState) attributeValue(key string) (int, bool) {
	switch key {
	case "strength":
		return s.Attributes.Strength, true
	case "agility":
		return s.Attributes.Agility, true
	case "intelligence":
		return s.Attributes.Intelligence, true
	case "charisma":
		return s.Attributes.Charisma, true
	}
	return 0, false
}

// FindItem returns the index of an inventory item by case-insensitive name,
// or -1 when absent.
func (s *WorldState) FindItem(name string) int {
	for i, it := range s.Inventory {
		if strings.EqualFold(it.Name, name) {
			return i
		}
	}
	return -1
}

func clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
