// Package engine holds the ordered state-transition function that applies a
// validated narrative patch to a world state. The step order is load-bearing:
// time advances before survival decay, equipment swaps precede phantom-item
// checks, and guarded survival gains land last.
package engine

import (
	"fmt"
	"strings"

	"medievalrpg/internal/game"
	"medievalrpg/internal/game/patch"
	"medievalrpg/internal/game/worldmap"
)

const (
	recentEventsCap     = 30
	importantChoicesCap = 15
	npcMemoryCap        = 5
	debtLedgerCap       = 50

	starvationDamage     = 5
	exhaustionThreshold  = 35
	exhaustionStaminaCap = 50
	phantomGainLimit     = 5

	satietyDecayPerHour = 4
	energyDecayPerHour  = 3

	skillThresholdGrowth = 1.5

	DeathByWounds     = "Смерть от ран"
	DeathByStarvation = "Смерть от голода"
)

// Placeholder slot names that never return to inventory on a swap.
var (
	weaponPlaceholders = []string{"нет", "кулаки"}
	armorPlaceholders  = []string{"нет", "голое тело"}
)

// Event is a diagnostic trace of one mutation step. Observability only,
// never part of the state.
type Event struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// Result reports the outcome of one application: whether the turn killed the
// character and the trace of what happened.
type Result struct {
	GameOver    bool
	DeathReason string
	Events      []Event
}

func (r *Result) trace(step, format string, args ...any) {
	r.Events = append(r.Events, Event{Step: step, Message: fmt.Sprintf(format, args...)})
}

// Apply runs the full ordered transition. It never fails on a malformed
// patch; invalid values were neutralized upstream by the normalizer and
// guardrails.
func Apply(s *game.WorldState, p *patch.Patch) Result {
	s.EnsureIntegrity()
	var res Result

	// 1. Clock.
	if p.TimeChange > 0 {
		oldDay := s.Date.DayOfGame
		s.Date.Advance(p.TimeChange)
		if s.Date.DayOfGame != oldDay {
			res.trace("clock", "new day: %s (day %d)", s.Date.Format(), s.Date.DayOfGame)
		}
	}

	// 2. Location.
	if name := strings.TrimSpace(p.LocationChange); name != "" {
		applyLocationChange(s, name, &res)
	}

	// 3. Vitals. A fatal health delta forces game over even when the
	// generator forgot to declare it.
	if p.Health != 0 {
		old := s.Health
		s.Health = clamp(s.Health+p.Health, 0, s.MaxHealth)
		res.trace("vitals", "health %d -> %d (delta %d)", old, s.Health, p.Health)
		if s.Health <= 0 {
			res.GameOver = true
			res.DeathReason = p.DeathReason
			if res.DeathReason == "" {
				res.DeathReason = DeathByWounds
			}
		}
	}
	if p.Stamina != 0 {
		s.Stamina = clamp(s.Stamina+p.Stamina, 0, s.MaxStamina)
	}

	// 4. Attributes.
	applyAttributeDeltas(s, p)

	// 5. Coins.
	if p.Coins != 0 {
		old := s.Coins
		s.Coins = max(0, s.Coins+p.Coins)
		res.trace("coins", "%d %+d = %d", old, p.Coins, s.Coins)
	}

	// 6. Reputation.
	applyReputation(s, p, &res)

	// 7. Morality.
	if p.Morality != 0 {
		s.Morality = clamp(s.Morality+p.Morality, 0, 100)
	}

	// 8. Skill XP.
	applySkillXP(s, p, &res)

	// 9. Slot equip via the equipment channel.
	if p.Equipment != nil {
		swapSlot(s, &s.Equipment.Weapon, p.Equipment.Weapon, "weapon", weaponPlaceholders, &res)
		swapSlot(s, &s.Equipment.Armor, p.Equipment.Armor, "armor", armorPlaceholders, &res)
	}

	// 10. Narrative merge.
	applyCharacterUpdate(s, p, &res)

	// 11. Quests.
	applyQuests(s, p, &res)

	// 12. Map growth.
	applyNewLocation(s, p, &res)

	// 13. NPC last-seen.
	applyNPCLocation(s, p)

	// 14. Inventory.
	applyInventory(s, p, &res)

	// 15. Explicit re-equip channel.
	if p.NewEquipment != nil {
		swapSlot(s, &s.Equipment.Weapon, p.NewEquipment.Weapon, "weapon", weaponPlaceholders, &res)
		swapSlot(s, &s.Equipment.Armor, p.NewEquipment.Armor, "armor", armorPlaceholders, &res)
	}

	// 16. Survival decay.
	if p.TimeChange > 0 {
		s.Satiety = max(0, s.Satiety-satietyDecayPerHour*p.TimeChange)
		s.Energy = max(0, s.Energy-energyDecayPerHour*p.TimeChange)
	}

	// 17. Survival penalties.
	if s.Satiety <= 0 {
		s.Health = max(0, s.Health-starvationDamage)
		res.trace("survival", "starvation damage: health -%d", starvationDamage)
		if s.Health <= 0 {
			res.GameOver = true
			if res.DeathReason == "" {
				res.DeathReason = p.DeathReason
			}
			if res.DeathReason == "" {
				res.DeathReason = DeathByStarvation
			}
		}
	}
	if s.Energy < exhaustionThreshold && s.Stamina > exhaustionStaminaCap {
		s.Stamina = exhaustionStaminaCap
		res.trace("survival", "exhaustion: stamina capped at %d", exhaustionStaminaCap)
	}

	// 18. Phantom-gain guard.
	if p.Satiety > phantomGainLimit && len(p.UsedItems) == 0 {
		res.trace("guard", "phantom satiety gain +%d zeroed: no items used", p.Satiety)
		p.Satiety = 0
	}
	if p.Energy > phantomGainLimit && p.TimeChange < 1 {
		res.trace("guard", "phantom energy gain +%d zeroed: no time passed", p.Energy)
		p.Energy = 0
	}

	// 19. Guarded survival gains.
	if p.Satiety != 0 {
		s.Satiety = clamp(s.Satiety+p.Satiety, 0, game.MaxVital)
	}
	if p.Energy != 0 {
		s.Energy = clamp(s.Energy+p.Energy, 0, game.MaxVital)
	}

	// 20. Factions.
	applyFactions(s, p)

	// 21. Debts.
	applyDebts(s, p)

	if p.GameOver {
		res.GameOver = true
		if res.DeathReason == "" {
			res.DeathReason = p.DeathReason
		}
		if res.DeathReason == "" {
			res.DeathReason = DeathByWounds
		}
	}
	return res
}

func applyLocationChange(s *game.WorldState, name string, res *Result) {
	old := s.Location
	s.Location = name
	res.trace("location", "%s -> %s", old, name)

	if loc := worldmap.FindByName(s.WorldMap, name); loc != nil {
		s.PlayerPos = game.PlayerPos{X: loc.X, Y: loc.Y, LocationID: loc.ID}
		loc.VisitedCount++
		return
	}
	// Unknown name: synthesize a node at the player's current coordinates
	// instead of teleporting by fuzzy guess.
	id := worldmap.StableID(name)
	if id == "" {
		return
	}
	if worldmap.FindByID(s.WorldMap, id) == nil {
		s.WorldMap = append(s.WorldMap, worldmap.Node{
			ID:              id,
			Name:            name,
			X:               s.PlayerPos.X,
			Y:               s.PlayerPos.Y,
			Description:     "Место отмечено по названию (без координат)",
			Type:            "area",
			Discovered:      true,
			DiscoveredAtDay: s.Date.DayOfGame,
			VisitedCount:    1,
		})
	}
	s.PlayerPos.LocationID = id
}

func applyAttributeDeltas(s *game.WorldState, p *patch.Patch) {
	if p.Strength != 0 {
		s.Attributes.Strength = clamp(s.Attributes.Strength+p.Strength, game.AttributeMin, game.AttributeMax)
	}
	if p.Agility != 0 {
		s.Attributes.Agility = clamp(s.Attributes.Agility+p.Agility, game.AttributeMin, game.AttributeMax)
	}
	if p.Intelligence != 0 {
		s.Attributes.Intelligence = clamp(s.Attributes.Intelligence+p.Intelligence, game.AttributeMin, game.AttributeMax)
	}
	if p.Charisma != 0 {
		s.Attributes.Charisma = clamp(s.Attributes.Charisma+p.Charisma, game.AttributeMin, game.AttributeMax)
	}
}

func applyReputation(s *game.WorldState, p *patch.Patch, res *Result) {
	if p.Reputation == 0 {
		return
	}
	currentDay := s.Date.DayOfGame
	delta := p.Reputation

	if delta > 0 {
		if s.LastRepIncreaseDay != nil && *s.LastRepIncreaseDay == currentDay {
			res.trace("reputation", "increase suppressed: already rose on day %d", currentDay)
			delta = 0
		} else {
			if s.Reputation >= 60 && delta > 1 {
				res.trace("reputation", "reputation >= 60: increase capped at +1 (was +%d)", delta)
				delta = 1
			}
			if delta > 0 {
				day := currentDay
				s.LastRepIncreaseDay = &day
			}
		}
	} else {
		// A hit to reputation re-enables a future same-day increase.
		s.LastRepIncreaseDay = nil
	}

	if delta != 0 {
		old := s.Reputation
		s.Reputation = clamp(s.Reputation+delta, 0, 100)
		res.trace("reputation", "%d %+d = %d", old, delta, s.Reputation)
	}
}

func applySkillXP(s *game.WorldState, p *patch.Patch, res *Result) {
	for key, xp := range p.SkillXP {
		sk, ok := s.Skills[key]
		if !ok || sk == nil || xp <= 0 {
			continue
		}
		sk.XP += xp
		for sk.XP >= sk.NextLevel {
			sk.Level++
			sk.XP -= sk.NextLevel
			sk.NextLevel = int(float64(sk.NextLevel) * skillThresholdGrowth)
			res.trace("skills", "%s leveled up to %d", key, sk.Level)
		}
	}
}

func isPlaceholder(name string, placeholders []string) bool {
	for _, ph := range placeholders {
		if strings.EqualFold(name, ph) {
			return true
		}
	}
	return name == ""
}

// swapSlot equips a proposed item into a slot: one unit of the new item is
// pulled from inventory when present, and the previous item returns to
// inventory as a single unit unless it was a bare placeholder.
func swapSlot(s *game.WorldState, slot *game.EquipmentSlot, proposed *patch.Slot, itemType string, placeholders []string, res *Result) {
	if proposed == nil || strings.TrimSpace(proposed.Name) == "" {
		return
	}
	newName := strings.TrimSpace(proposed.Name)
	oldName := slot.Name
	if newName == oldName {
		return
	}
	res.trace("equipment", "%s swap: %q -> %q", itemType, oldName, newName)

	if idx := s.FindItem(newName); idx >= 0 {
		s.Inventory[idx].Quantity--
		if s.Inventory[idx].Quantity <= 0 {
			s.Inventory = append(s.Inventory[:idx], s.Inventory[idx+1:]...)
		}
	}

	if !isPlaceholder(oldName, placeholders) {
		if idx := s.FindItem(oldName); idx >= 0 {
			s.Inventory[idx].Quantity++
		} else {
			s.Inventory = append(s.Inventory, game.Item{Name: oldName, Type: itemType, Quantity: 1})
		}
	}

	cond := proposed.Condition
	if cond <= 0 {
		cond = 100
	}
	*slot = game.EquipmentSlot{Name: newName, Condition: cond}
}

func applyCharacterUpdate(s *game.WorldState, p *patch.Patch, res *Result) {
	cu := p.CharacterUpdate
	if cu == nil {
		return
	}
	if len(cu.RecentEvents) > 0 {
		s.Character.RecentEvents = appendCapped(s.Character.RecentEvents, cu.RecentEvents, recentEventsCap)
	}
	if len(cu.ImportantChoices) > 0 {
		s.Character.ImportantChoices = appendCapped(s.Character.ImportantChoices, cu.ImportantChoices, importantChoicesCap)
	}

	for name, rel := range cu.Relationships {
		name = strings.TrimSpace(name)
		if name == "" || rel == nil {
			continue
		}
		npc := s.NPCs[name]
		if npc == nil {
			npc = &game.NPC{Name: name}
			s.NPCs[name] = npc
		}
		if rel.Role != "" {
			npc.Role = rel.Role
		}
		if rel.Status != "" {
			npc.Status = rel.Status
		}
		if rel.Notes != "" {
			npc.Notes = rel.Notes
		}
		if rel.Faction != "" {
			npc.Faction = rel.Faction
		}
		if rel.Disposition != nil {
			npc.Disposition = clamp(*rel.Disposition, -100, 100)
		}
		if len(rel.Memory) > 0 {
			npc.Memory = tailStrings(cleanStrings(rel.Memory), npcMemoryCap)
		} else if len(rel.MemoryAdd) > 0 {
			npc.Memory = tailStrings(append(npc.Memory, cleanStrings(rel.MemoryAdd)...), npcMemoryCap)
		}
		if locName := s.Character.NPCLocations[name]; locName != "" {
			sightNPC(s, npc, locName)
		}
	}

	if m := strings.TrimSpace(cu.Milestone); m != "" {
		s.Character.Milestones = append(s.Character.Milestones, game.Milestone{
			Date:      s.Date,
			Event:     m,
			DayOfGame: s.Date.DayOfGame,
		})
		res.trace("milestone", "%s", m)
	}
}

func applyQuests(s *game.WorldState, p *patch.Patch, res *Result) {
	for _, q := range p.QuestsUpdate {
		if strings.TrimSpace(q.Name) == "" {
			continue
		}
		found := false
		for i := range s.Quests {
			if s.Quests[i].Name == q.Name {
				s.Quests[i].Status = q.Status
				s.Quests[i].Description = q.Description
				found = true
				res.trace("quests", "updated %q (%s)", q.Name, q.Status)
				break
			}
		}
		if !found {
			s.Quests = append(s.Quests, game.Quest{Name: q.Name, Status: q.Status, Description: q.Description})
			res.trace("quests", "new quest %q", q.Name)
		}
	}
}

func applyNewLocation(s *game.WorldState, p *patch.Patch, res *Result) {
	nl := p.NewLocation
	if nl == nil || strings.TrimSpace(nl.Name) == "" {
		return
	}
	id := nl.ID
	if id == "" {
		id = worldmap.StableID(nl.Name)
	}
	if id == "" || worldmap.FindByID(s.WorldMap, id) != nil {
		return
	}
	if worldmap.FindByName(s.WorldMap, nl.Name) != nil {
		return
	}

	fromID := s.PlayerPos.LocationID
	if fromID == "" {
		if loc := worldmap.FindByName(s.WorldMap, s.Location); loc != nil {
			fromID = loc.ID
		}
	}

	typ := nl.Type
	if typ == "" {
		typ = "place"
	}
	s.WorldMap = append(s.WorldMap, worldmap.Node{
		ID:              id,
		Name:            nl.Name,
		X:               nl.X,
		Y:               nl.Y,
		Description:     nl.Description,
		Type:            typ,
		Discovered:      true,
		DiscoveredAtDay: s.Date.DayOfGame,
	})
	res.trace("map", "discovered %q", nl.Name)

	// A brand-new node always connects back to where the player stands,
	// unless an edge already exists.
	if fromID != "" && fromID != id {
		for _, e := range s.WorldEdges {
			if (e.FromID == fromID && e.ToID == id) || (e.FromID == id && e.ToID == fromID) {
				return
			}
		}
		s.WorldEdges = append(s.WorldEdges, worldmap.Edge{
			FromID:          fromID,
			ToID:            id,
			Kind:            "path",
			DiscoveredAtDay: s.Date.DayOfGame,
		})
	}
}

func applyNPCLocation(s *game.WorldState, p *patch.Patch) {
	nl := p.NPCLocation
	if nl == nil {
		return
	}
	name := strings.TrimSpace(nl.Name)
	if name == "" || strings.TrimSpace(nl.Location) == "" {
		return
	}
	s.Character.NPCLocations[name] = nl.Location
	npc := s.NPCs[name]
	if npc == nil {
		npc = &game.NPC{Name: name}
		s.NPCs[name] = npc
	}
	sightNPC(s, npc, nl.Location)
}

func sightNPC(s *game.WorldState, npc *game.NPC, locationName string) {
	sighting := &game.NPCSighting{DayOfGame: s.Date.DayOfGame, LocationName: locationName}
	if loc := worldmap.FindByName(s.WorldMap, locationName); loc != nil {
		sighting.LocationID = loc.ID
	}
	npc.LastSeen = sighting
}

func applyInventory(s *game.WorldState, p *patch.Patch, res *Result) {
	for _, name := range p.UsedItems {
		for i := range s.Inventory {
			if s.Inventory[i].Name == name {
				s.Inventory[i].Quantity--
				if s.Inventory[i].Quantity <= 0 {
					s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
				}
				res.trace("inventory", "used %q", name)
				break
			}
		}
	}

	for _, item := range p.NewItems {
		name := strings.TrimSpace(item.Name)
		// Combined multi-item names are rejected outright; the generator is
		// expected to add items one by one.
		if strings.Contains(name, " и ") || strings.Contains(name, " & ") {
			res.trace("inventory", "rejected combined item %q", name)
			continue
		}
		if len([]rune(name)) < 2 {
			res.trace("inventory", "rejected short item name %q", name)
			continue
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		if idx := s.FindItem(name); idx >= 0 {
			s.Inventory[idx].Quantity += qty
			res.trace("inventory", "added %q x%d (total %d)", name, qty, s.Inventory[idx].Quantity)
		} else {
			s.Inventory = append(s.Inventory, game.Item{
				Name:        name,
				Type:        item.Type,
				Description: item.Description,
				Quantity:    qty,
			})
			res.trace("inventory", "new item %q x%d", name, qty)
		}
	}
}

func applyFactions(s *game.WorldState, p *patch.Patch) {
	for _, f := range p.FactionUpdates {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		existing := s.Factions[name]
		if existing == nil {
			existing = &game.Faction{Name: name}
			s.Factions[name] = existing
		}
		if f.Disposition != nil {
			existing.Disposition = clamp(*f.Disposition, -100, 100)
		} else if f.DispositionDelta != 0 {
			delta := clamp(f.DispositionDelta, -5, 5)
			existing.Disposition = clamp(existing.Disposition+delta, -100, 100)
		}
		if notes := strings.TrimSpace(f.Notes); notes != "" {
			existing.Notes = notes
		}
	}
}

func applyDebts(s *game.WorldState, p *patch.Patch) {
	for _, d := range p.DebtsUpdate {
		from := strings.TrimSpace(d.From)
		to := strings.TrimSpace(d.To)
		if from == "" || to == "" {
			continue
		}
		status := strings.TrimSpace(d.Status)
		if status == "" {
			status = "active"
		}
		entry := game.Debt{
			From:       from,
			To:         to,
			Amount:     clamp(d.Amount, 0, 5000),
			Reason:     strings.TrimSpace(d.Reason),
			Status:     status,
			DueDay:     max(0, d.DueDay),
			CreatedDay: s.Date.DayOfGame,
		}
		idx := -1
		for i, x := range s.Debts {
			if x.From == from && x.To == to && x.Reason == entry.Reason && x.Status != "closed" {
				idx = i
				break
			}
		}
		if idx >= 0 {
			entry.CreatedDay = s.Debts[idx].CreatedDay
			s.Debts[idx] = entry
		} else {
			s.Debts = append(s.Debts, entry)
		}
	}
	if len(s.Debts) > debtLedgerCap {
		s.Debts = s.Debts[len(s.Debts)-debtLedgerCap:]
	}
}

func appendCapped(dst, src []string, cap int) []string {
	dst = append(dst, src...)
	if len(dst) > cap {
		dst = dst[len(dst)-cap:]
	}
	return dst
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func tailStrings(in []string, n int) []string {
	if len(in) > n {
		return in[len(in)-n:]
	}
	return in
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

