package patch

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Parse extracts and normalizes the structured record from raw generator
// text. Unknown fields are dropped, numeric fields coerced with a zero
// default, known deltas clamped to sane bounds, and mandatory narrative
// fields defaulted. The only error it returns is *ParseError.
func Parse(raw string) (*Patch, error) {
	block, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return nil, &ParseError{Reason: "malformed structured block: " + err.Error()}
	}

	p := &Patch{}

	// Narrative flow.
	p.Description = decodeString(fields["description"])
	p.Choices = decodeStringSlice(fields["choices"])
	p.IsDialogue = decodeBool(fields["isDialogue"])
	p.SpeakerName = decodeString(fields["speakerName"])
	p.GameOver = decodeBool(fields["gameOver"])
	p.DeathReason = decodeString(fields["deathReason"])

	// Numeric deltas, coerced then clamped.
	p.Health = clampInt(decodeNumber(fields["health"]), -MaxHealthDelta, MaxHealthDelta)
	p.Stamina = clampInt(decodeNumber(fields["stamina"]), -MaxStaminaDelta, MaxStaminaDelta)
	p.Coins = clampInt(decodeNumber(fields["coins"]), -MaxCoinDelta, MaxCoinDelta)
	p.Reputation = clampInt(decodeNumber(fields["reputation"]), -MaxRepDelta, MaxRepDelta)
	p.Morality = clampInt(decodeNumber(fields["morality"]), -MaxMoralDelta, MaxMoralDelta)
	p.TimeChange = clampInt(decodeNumber(fields["timeChange"]), 0, MaxTimeChange)
	p.Satiety = clampInt(decodeNumber(fields["satiety"]), -MaxSurvivalDelta, MaxSurvivalDelta)
	p.Energy = clampInt(decodeNumber(fields["energy"]), -MaxSurvivalDelta, MaxSurvivalDelta)
	p.Strength = clampInt(decodeNumber(fields["strength"]), -MaxAttrDelta, MaxAttrDelta)
	p.Agility = clampInt(decodeNumber(fields["agility"]), -MaxAttrDelta, MaxAttrDelta)
	p.Intelligence = clampInt(decodeNumber(fields["intelligence"]), -MaxAttrDelta, MaxAttrDelta)
	p.Charisma = clampInt(decodeNumber(fields["charisma"]), -MaxAttrDelta, MaxAttrDelta)

	// World.
	p.LocationChange = decodeString(fields["locationChange"])
	p.NewLocation = decodeInto[NewLocation](fields["newLocation"])
	p.NPCLocation = decodeInto[NPCLocation](fields["npcLocation"])

	// Progression.
	p.SkillXP = decodeNumberMap(fields["skillXP"])

	// Inventory and equipment.
	p.UsedItems = decodeUsedItems(fields["usedItems"])
	p.NewItems = decodeNewItems(fields["newItems"])
	p.Equipment = decodeInto[EquipmentUpdate](fields["equipment"])
	p.NewEquipment = decodeInto[EquipmentUpdate](fields["newEquipment"])

	// Character, quests, npc systems.
	p.CharacterUpdate = decodeInto[CharacterUpdate](fields["characterUpdate"])
	p.QuestsUpdate = decodeSlice[QuestUpdate](fields["questsUpdate"])
	p.FactionUpdates = decodeSlice[FactionUpdate](fields["factionUpdates"])
	p.DebtsUpdate = decodeSlice[DebtUpdate](fields["debtsUpdate"])

	// Intention -> outcome, deterministic checks.
	p.Effects = decodeSlice[Effect](fields["effects"])
	p.SkillCheck = decodeSkillCheck(fields["skillCheck"])

	p.applyDefaults()
	return p, nil
}

func (p *Patch) applyDefaults() {
	if strings.TrimSpace(p.Description) == "" {
		p.Description = DefaultDescription
	}
	if len(p.Choices) == 0 {
		p.Choices = []string{"Продолжить", "Осмотреться", "Отдохнуть"}
	}
	if p.UsedItems == nil {
		p.UsedItems = []string{}
	}
	if p.NewItems == nil {
		p.NewItems = []Item{}
	}
	p.normalizeEffects()
	if p.SkillCheck != nil && strings.TrimSpace(p.SkillCheck.Key) == "" {
		p.SkillCheck = nil
	}
	if p.SkillCheck != nil {
		if p.SkillCheck.Kind == "" {
			p.SkillCheck.Kind = "skill"
		}
		p.SkillCheck.Difficulty = clampInt(p.SkillCheck.Difficulty, 0, 100)
	}
}

var effectStats = map[string]bool{
	"health": true, "stamina": true, "coins": true, "reputation": true,
	"morality": true, "satiety": true, "energy": true, "timeChange": true,
	"strength": true, "agility": true, "intelligence": true, "charisma": true,
}

const maxEffects = 20

// normalizeEffects drops effects naming unknown stats or zero deltas, caps
// the list, and synthesizes entries from the top-level deltas when the
// generator sent none. The scene always shows why numbers moved.
func (p *Patch) normalizeEffects() {
	kept := make([]Effect, 0, len(p.Effects))
	for _, e := range p.Effects {
		if effectStats[e.Stat] && e.Delta != 0 {
			kept = append(kept, e)
		}
		if len(kept) == maxEffects {
			break
		}
	}
	p.Effects = kept

	if len(p.Effects) > 0 {
		return
	}

	add := func(stat string, delta int, reason string) {
		if delta != 0 {
			p.Effects = append(p.Effects, Effect{Stat: stat, Delta: delta, Reason: reason})
		}
	}
	add("health", p.Health, pick(p.Health < 0, "Получен урон", "Восстановление"))
	add("stamina", p.Stamina, pick(p.Stamina < 0, "Усталость/усилие", "Отдых/восстановление"))
	add("coins", p.Coins, pick(p.Coins < 0, "Расход", "Доход"))
	add("reputation", p.Reputation, "Репутация изменилась")
	add("morality", p.Morality, "Мораль изменилась")
	add("satiety", p.Satiety, pick(p.Satiety < 0, "Голодание", "Еда/напиток"))
	add("energy", p.Energy, pick(p.Energy < 0, "Усталость", "Сон/отдых"))
	add("timeChange", p.TimeChange, "Прошло времени")
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// decodeString tolerates numbers and booleans where a string was expected.
func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func decodeBool(raw json.RawMessage) bool {
	var b bool
	if len(raw) == 0 || json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}

// decodeNumber coerces a field to an integer, defaulting to 0 on any
// failure. Quoted numbers are accepted.
func decodeNumber(raw json.RawMessage) int {
	n, _ := decodeNumberOpt(raw)
	return n
}

// decodeNumberOpt reports whether the field held a usable number. A JSON
// null unmarshals into a plain float64 without error, so it needs its own
// check.
func decodeNumberOpt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(math.Round(f)), true
		}
	}
	return 0, false
}

func decodeStringSlice(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(decodeString(it)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeNumberMap(raw json.RawMessage) map[string]int {
	var m map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = decodeNumber(v)
	}
	return out
}

// decodeInto decodes a nested structure, dropping it entirely on a type
// mismatch instead of failing the whole patch.
func decodeInto[T any](raw json.RawMessage) *T {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func decodeSlice[T any](raw json.RawMessage) []T {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		var v T
		if err := json.Unmarshal(it, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// decodeSkillCheck decodes a declared check, probing the difficulty field so
// a missing or non-numeric value takes the baseline instead of 0.
func decodeSkillCheck(raw json.RawMessage) *SkillCheck {
	if len(raw) == 0 {
		return nil
	}
	var wire struct {
		Kind       string          `json:"kind"`
		Key        string          `json:"key"`
		Difficulty json.RawMessage `json:"difficulty"`
		OnSuccess  *Overlay        `json:"onSuccess"`
		OnFail     *Overlay        `json:"onFail"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}
	sc := &SkillCheck{
		Kind:       wire.Kind,
		Key:        wire.Key,
		Difficulty: DefaultCheckDifficulty,
		OnSuccess:  wire.OnSuccess,
		OnFail:     wire.OnFail,
	}
	if n, ok := decodeNumberOpt(wire.Difficulty); ok {
		sc.Difficulty = n
	}
	return sc
}

func decodeUsedItems(raw json.RawMessage) []string {
	return decodeStringSlice(raw)
}

func decodeNewItems(raw json.RawMessage) []Item {
	items := decodeSlice[Item](raw)
	out := items[:0]
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if len([]rune(it.Name)) < MinItemNameLen {
			continue
		}
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		if it.Type == "" {
			it.Type = "item"
		}
		out = append(out, it)
	}
	return out
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
