package game

import "fmt"

const StartLocation = "Ратай, улица у рынка"

// NewWorldState builds the canonical starting state for a fresh character.
func NewWorldState(name, gender string) *WorldState {
	if name == "" {
		name = "Странник"
	}
	if gender != "female" {
		gender = "male"
	}

	s := &WorldState{
		Name:       name,
		Gender:     gender,
		Location:   StartLocation,
		Date:       StartDate(),
		Health:     StartHealth,
		MaxHealth:  MaxHealth,
		Stamina:    StartStamina,
		MaxStamina: MaxStamina,
		Coins:      0,
		Satiety:    StartSatiety,
		Energy:     StartEnergy,
		Reputation: StartReputation,
		Morality:   StartMorality,
		Equipment: Equipment{
			Weapon: EquipmentSlot{Name: "нет", Condition: 0},
			Armor:  EquipmentSlot{Name: "нет", Condition: 0},
		},
		Inventory: []Item{},
		Skills: map[string]*Skill{
			"combat":   {Level: 0, XP: 0, MaxLevel: 100, NextLevel: SkillFirstThreshold},
			"stealth":  {Level: 0, XP: 0, MaxLevel: 100, NextLevel: SkillFirstThreshold},
			"speech":   {Level: 0, XP: 0, MaxLevel: 100, NextLevel: SkillFirstThreshold},
			"survival": {Level: 0, XP: 0, MaxLevel: 100, NextLevel: SkillFirstThreshold},
		},
		Attributes: Attributes{Strength: 3, Agility: 3, Intelligence: 3, Charisma: 3},
		Character: Character{
			Background:       startBackground(name, gender),
			Traits:           []string{"растерянный", "стойкий", "адаптивный", "наблюдательный"},
			RecentEvents:     []string{},
			ImportantChoices: []string{},
			NPCLocations:     map[string]string{},
			Memories: []string{
				"Обрывок чего-то: огромные железные коробки на колесах, несущиеся быстрее лошадей... Сон? Видение?",
				"Неясные образы: толпы людей в странной гладкой одежде, яркие огни повсюду, шум и суета",
				"Смутное ощущение: гладкие поверхности, светящиеся символы, звуки, которых здесь нет",
				"Странная уверенность: я не отсюда. Но откуда? Другое место? Другое время? Или это всё в моей голове?",
			},
			Milestones: []Milestone{{
				Date:      Date{Day: StartDay, Month: StartMonth, Year: StartYear},
				Event:     "Пробуждение на улице Ратая после столкновения с всадником",
				DayOfGame: 1,
			}},
		},
		Quests:  []Quest{},
		History: []HistoryEntry{},
		NPCs:    map[string]*NPC{},
	}
	s.EnsureIntegrity()
	return s
}

func startBackground(name, gender string) string {
	if gender == "female" {
		return fmt.Sprintf("%s - женщина, очнувшаяся в грязи на улице Ратая. Её сбил всадник на коне - она валяется избитой, без одежды и вещей. Она ничего не помнит о себе. Есть только смутные обрывки чего-то странного - но что это? Местные жители не знают, кто это. Нужно выживать в этом средневековом мире.", name)
	}
	return fmt.Sprintf("%s - мужчина, очнувшийся в грязи на улице Ратая. Его сбил всадник на коне - он валяется избитым, без одежды и вещей. Он ничего не помнит о себе. Есть только смутные обрывки чего-то странного - но что это? Местные жители не знают, кто это. Нужно выживать в этом средневековом мире.", name)
}
