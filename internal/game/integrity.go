package game

import "medievalrpg/internal/game/worldmap"

// EnsureIntegrity repairs a state loaded from an old save or mutated by a
// buggy collaborator: missing registries become empty, the world graph is
// renormalized, and the player marker is re-anchored. Safe to call any number
// of times.
func (s *WorldState) EnsureIntegrity() {
	if s == nil {
		return
	}
	if s.Date == (Date{}) {
		s.Date = StartDate()
	}
	if s.MaxHealth == 0 {
		s.MaxHealth = MaxHealth
	}
	if s.MaxStamina == 0 {
		s.MaxStamina = MaxStamina
	}

	s.WorldMap, s.WorldEdges = worldmap.Normalize(s.WorldMap, s.WorldEdges, s.Location, s.Date.DayOfGame)

	if s.PlayerPos.LocationID == "" {
		loc := worldmap.FindByName(s.WorldMap, s.Location)
		if loc == nil && len(s.WorldMap) > 0 {
			loc = &s.WorldMap[0]
		}
		if loc != nil {
			s.PlayerPos = PlayerPos{X: loc.X, Y: loc.Y, LocationID: loc.ID}
		}
	}

	if s.NPCs == nil {
		s.NPCs = map[string]*NPC{}
	}
	if s.Factions == nil {
		s.Factions = map[string]*Faction{}
	}
	if s.Debts == nil {
		s.Debts = []Debt{}
	}
	if s.Character.NPCLocations == nil {
		s.Character.NPCLocations = map[string]string{}
	}
	if s.Character.RecentEvents == nil {
		s.Character.RecentEvents = []string{}
	}
	if s.Character.ImportantChoices == nil {
		s.Character.ImportantChoices = []string{}
	}
	if s.Skills == nil {
		s.Skills = map[string]*Skill{}
	}
	for _, sk := range s.Skills {
		if sk == nil {
			continue
		}
		if sk.NextLevel == 0 {
			sk.NextLevel = SkillFirstThreshold
		}
		if sk.MaxLevel == 0 {
			sk.MaxLevel = 100
		}
	}
	if s.NPCDispositionTurn == nil {
		s.NPCDispositionTurn = map[string]int{}
	}
}

// RepairLegacySave fills fields that older save files predate. The caller
// reports which survival fields were actually present in the decoded JSON;
// absent ones get their original introduction-time defaults.
func (s *WorldState) RepairLegacySave(hasSatiety, hasEnergy bool) {
	if !hasSatiety {
		s.Satiety = StartSatiety
	}
	if !hasEnergy {
		s.Energy = StartEnergy
	}
	s.EnsureIntegrity()
}
