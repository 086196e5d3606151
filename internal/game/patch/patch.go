// Package patch turns untrusted generator output into a validated, bounded
// narrative patch. Nothing downstream ever sees a raw dynamic record.
package patch

// Bounds applied to proposed deltas during normalization. Guardrails tighten
// some of these further before mutation.
const (
	MaxCoinDelta     = 100
	MaxHealthDelta   = 50
	MaxStaminaDelta  = 50
	MaxRepDelta      = 10
	MaxMoralDelta    = 10
	MaxSurvivalDelta = 50
	MaxAttrDelta     = 5
	MaxTimeChange    = 72

	MinItemNameLen = 2

	// Baseline difficulty for checks the generator declares without one.
	DefaultCheckDifficulty = 50
)

// DefaultDescription stands in when the generator sent no scene text.
const DefaultDescription = "Вы продолжаете свой путь..."

// Item is a proposed inventory addition.
type Item struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
}

// Effect is a narrated stat consequence shown to the player; reasons also
// feed the coin-justification guardrail.
type Effect struct {
	Stat   string `json:"stat"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// Slot proposes an equipment slot change.
type Slot struct {
	Name      string `json:"name"`
	Condition int    `json:"condition"`
}

type EquipmentUpdate struct {
	Weapon *Slot `json:"weapon,omitempty"`
	Armor  *Slot `json:"armor,omitempty"`
}

// Relationship upserts NPC registry fields. Disposition is a pointer so the
// guardrails can strip it while keeping the rest of the update.
type Relationship struct {
	Role        string   `json:"role,omitempty"`
	Status      string   `json:"status,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Faction     string   `json:"faction,omitempty"`
	Disposition *int     `json:"disposition,omitempty"`
	Memory      []string `json:"memory,omitempty"`
	MemoryAdd   []string `json:"memoryAdd,omitempty"`
}

type CharacterUpdate struct {
	RecentEvents     []string                 `json:"recentEvents,omitempty"`
	ImportantChoices []string                 `json:"importantChoices,omitempty"`
	Relationships    map[string]*Relationship `json:"relationships,omitempty"`
	Milestone        string                   `json:"milestone,omitempty"`
}

type QuestUpdate struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

type NewLocation struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type NPCLocation struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type FactionUpdate struct {
	Name             string `json:"name"`
	Disposition      *int   `json:"disposition,omitempty"`
	DispositionDelta int    `json:"dispositionDelta,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

type DebtUpdate struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	Status string `json:"status"`
	DueDay int    `json:"dueDay,omitempty"`
}

// Overlay optionally replaces narrative fields depending on a check outcome.
// It never alters the numeric result of the check itself.
type Overlay struct {
	Description string   `json:"description,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Effects     []Effect `json:"effects,omitempty"`
}

// SkillCheck is a declared check the server resolves deterministically.
type SkillCheck struct {
	Kind       string   `json:"kind"`
	Key        string   `json:"key"`
	Difficulty int      `json:"difficulty"`
	OnSuccess  *Overlay `json:"onSuccess,omitempty"`
	OnFail     *Overlay `json:"onFail,omitempty"`
}

// Patch is the allowlisted, defaulted, clamped record of proposed deltas for
// one turn. It is ephemeral: built from generator text, consumed once by the
// guardrails and mutation engine, then discarded.
type Patch struct {
	Description string   `json:"description"`
	Choices     []string `json:"choices"`
	IsDialogue  bool     `json:"isDialogue"`
	SpeakerName string   `json:"speakerName"`
	GameOver    bool     `json:"gameOver"`
	DeathReason string   `json:"deathReason"`

	Health     int `json:"health"`
	Stamina    int `json:"stamina"`
	Coins      int `json:"coins"`
	Reputation int `json:"reputation"`
	Morality   int `json:"morality"`
	TimeChange int `json:"timeChange"`
	Satiety    int `json:"satiety"`
	Energy     int `json:"energy"`

	Strength     int `json:"strength"`
	Agility      int `json:"agility"`
	Intelligence int `json:"intelligence"`
	Charisma     int `json:"charisma"`

	LocationChange string       `json:"locationChange"`
	NewLocation    *NewLocation `json:"newLocation,omitempty"`
	NPCLocation    *NPCLocation `json:"npcLocation,omitempty"`

	SkillXP map[string]int `json:"skillXP,omitempty"`

	UsedItems    []string         `json:"usedItems"`
	NewItems     []Item           `json:"newItems"`
	Equipment    *EquipmentUpdate `json:"equipment,omitempty"`
	NewEquipment *EquipmentUpdate `json:"newEquipment,omitempty"`

	CharacterUpdate *CharacterUpdate `json:"characterUpdate,omitempty"`
	QuestsUpdate    []QuestUpdate    `json:"questsUpdate,omitempty"`

	Effects []Effect `json:"effects"`

	SkillCheck *SkillCheck `json:"skillCheck,omitempty"`

	FactionUpdates []FactionUpdate `json:"factionUpdates,omitempty"`
	DebtsUpdate    []DebtUpdate    `json:"debtsUpdate,omitempty"`
}

// Fallback returns the neutral patch substituted after retries are exhausted.
// It still advances the turn with basic continuation choices.
func Fallback() *Patch {
	return &Patch{
		Description: "Мир замер на мгновение... Попробуйте повторить действие.",
		Choices:     []string{"Попробовать снова", "Осмотреться", "Подождать"},
		UsedItems:   []string{},
		NewItems:    []Item{},
		Effects:     []Effect{},
	}
}

// ParseError reports that no structured block could be extracted or decoded
// from the generator text.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse narrative patch: " + e.Reason
}
