// Package prompt builds the game-master prompts and post-processes scene
// text coming back from the model.
package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"medievalrpg/internal/game"
)

// SystemPrompt frames every generation. It is sent verbatim as the system
// message; the per-turn state travels in the user message.
const SystemPrompt = `Ты — мастер средневековой RPG (Kingdom Come: Deliverance). 

⚠️ ПРАВИЛО ОТВЕТА: СТРОГО JSON. НИКАКОГО ТЕКСТА ВНЕ СТРУКТУРЫ. 

🔴 СТРУКТУРА ПРАВИЛ (JSON-центричность):
1. "description": Атмосферный текст (вы/вас), деление на абзацы через \n\n. Очищай от технических артефактов.
2. "newEquipment": Если игрок надевает что-то (рубаху, штаны, броню) или берет оружие — ОБЯЗАТЕЛЬНО обнови это поле. { "weapon": { "name": "...", "condition": 100 }, "armor": { "name": "...", "condition": 100 } }. Если не менялось — не включай.
3. "newItems" / "usedItems": Если предмет получен/потерян. Каждый предмет — отдельный объект в массиве. 
4. "stats": health/stamina/coins/reputation/morality/satiety/energy — это ДЕЛЬТЫ (+/-). satiety/energy убывают сами по времени, НЕ уменьшай их вручную за "ход", если не было прямого действия (удар, голод).

📦 ЭКИПИРОВКА: Если игрок надевает одежду (даже лохмотья), это "armor". Если берет меч — это "weapon".

🛡️ РЕАЛИЗМ: Грязная одежда дает штраф к харизме, но прикрывает наготу. Босой человек на камнях теряет выносливость.`

// RetrySuffix is appended to the user prompt on the second attempt after a
// malformed response.
const RetrySuffix = " \n\n⚠️ ТЫ ПРИСЛАЛ НЕВЕРНЫЙ ФОРМАТ! ПОВТОРИ ТОТ ЖЕ ОТВЕТ СТРОГО В ВАЛИДНОМ JSON БЕЗ ТЕКСТА ВНЕ { }."

type statsContext struct {
	Health     string `json:"health"`
	Stamina    string `json:"stamina"`
	Coins      int    `json:"coins"`
	Reputation int    `json:"reputation"`
	Morality   int    `json:"morality"`
	Satiety    int    `json:"satiety"`
	Energy     int    `json:"energy"`
}

type characterContext struct {
	Name       string       `json:"name"`
	Gender     string       `json:"gender"`
	Background string       `json:"background"`
	Traits     []string     `json:"traits"`
	Stats      statsContext `json:"stats"`
}

type knownPlace struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type locationContext struct {
	Current     string          `json:"current"`
	Position    game.PlayerPos  `json:"position"`
	KnownPlaces []knownPlace    `json:"knownPlaces"`
}

type equipmentContext struct {
	Weapon game.EquipmentSlot `json:"weapon"`
	Armor  game.EquipmentSlot `json:"armor"`
}

type itemContext struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Type     string `json:"type"`
}

type situationContext struct {
	PreviousScene string `json:"previousScene"`
	PlayerAction  string `json:"playerAction"`
	Day           int    `json:"day"`
	Time          string `json:"time"`
}

type sceneContext struct {
	Character        characterContext `json:"character"`
	Location         locationContext  `json:"location"`
	Equipment        equipmentContext `json:"equipment"`
	Inventory        []itemContext    `json:"inventory"`
	Skills           []string         `json:"skills"`
	ActiveQuests     []string         `json:"activeQuests"`
	CurrentSituation situationContext `json:"currentSituation"`
}

// BuildScenePrompt assembles the user message for one turn: a compact JSON
// snapshot of the world followed by the game-master rules and recent
// history.
func BuildScenePrompt(s *game.WorldState, choice, previousScene string) string {
	s.EnsureIntegrity()

	if previousScene == "" {
		previousScene = "Начало игры"
	}

	ctx := sceneContext{
		Character: characterContext{
			Name:       s.Name,
			Gender:     s.Gender,
			Background: s.Character.Background,
			Traits:     s.Character.Traits,
			Stats: statsContext{
				Health:     fmt.Sprintf("%d/%d", s.Health, s.MaxHealth),
				Stamina:    fmt.Sprintf("%d/%d", s.Stamina, s.MaxStamina),
				Coins:      s.Coins,
				Reputation: s.Reputation,
				Morality:   s.Morality,
				Satiety:    s.Satiety,
				Energy:     s.Energy,
			},
		},
		Location: locationContext{
			Current:     s.Location,
			Position:    s.PlayerPos,
			KnownPlaces: make([]knownPlace, 0, len(s.WorldMap)),
		},
		Equipment: equipmentContext{
			Weapon: s.Equipment.Weapon,
			Armor:  s.Equipment.Armor,
		},
		Inventory:    make([]itemContext, 0, len(s.Inventory)),
		Skills:       make([]string, 0, len(s.Skills)),
		ActiveQuests: []string{},
		CurrentSituation: situationContext{
			PreviousScene: previousScene,
			PlayerAction:  choice,
			Day:           s.Date.DayOfGame,
			Time:          fmt.Sprintf("%d:00 (%s)", s.Date.Hour, s.Date.TimeOfDay),
		},
	}

	for _, loc := range s.WorldMap {
		ctx.Location.KnownPlaces = append(ctx.Location.KnownPlaces, knownPlace{Name: loc.Name, Type: loc.Type})
	}
	for _, it := range s.Inventory {
		ctx.Inventory = append(ctx.Inventory, itemContext{Name: it.Name, Quantity: it.Quantity, Type: it.Type})
	}
	for _, key := range []string{"combat", "stealth", "speech", "survival"} {
		if sk, ok := s.Skills[key]; ok && sk != nil {
			ctx.Skills = append(ctx.Skills, fmt.Sprintf("%s: lv.%d", key, sk.Level))
		}
	}
	for _, q := range s.Quests {
		if q.Status == "active" {
			ctx.ActiveQuests = append(ctx.ActiveQuests, q.Name)
		}
	}

	snapshot, _ := json.MarshalIndent(ctx, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Данные текущего состояния игры (JSON):\n%s\n\n", snapshot)

	b.WriteString(`═══ ПРАВИЛА ИГРЫ (ОБЯЗАТЕЛЬНО) ═══
1. ОТВЕТ: Только JSON. Русский язык.
2. ОПИСАНИЕ: Строго 3 небольших абзаца. МАКСИМАЛЬНАЯ детальность (вы/вас). ЛИМИТ: 500 символов.
3. ПРЯМАЯ РЕЧЬ: Всегда выделяй кавычками «» или "". ПЕРЕД всей конструкцией прямой речи (включая имя говорящего и кавычки) ОБЯЗАТЕЛЬНО ставь маркер "dialogue-speech">.
4. ЗАПРЕТ HTML: Не используй теги <p>, <span>. Используй только маркер "dialogue-speech"> для речи.
5. ЭКИПИРОВКА: Если игрок надевает предмет (даже "Лохмотья" или "Тряпье"), ОБЯЗАТЕЛЬНО обнови поле "newEquipment.armor". Если берет меч — "newEquipment.weapon".
6. ПРЕДМЕТЫ: Если персонаж получил предмет, добавь его в "newItems". Если использовал/потерял — в "usedItems".
7. СТАТЫ И АТРИБУТЫ: Возвращай только дельты (изменения). 0 — если нет причины менять.
   - СТАТЫ: health, stamina, satiety, energy, coins, reputation, morality.
   - АТРИБУТЫ: strength, agility, intelligence, charisma.
8. СМЕРТЬ: Если (здоровье + дельта health) <= 0 -> gameOver: true, deathReason: "причина".

`)

	fmt.Fprintf(&b, `═══ ВАЖНЫЕ УТОЧНЕНИЯ ВРЕМЕНИ ═══
- Текущее время: %s. ТВОЕ ОПИСАНИЕ ОБЯЗАНО СООТВЕТСТВОВАТЬ ЭТОМУ ВРЕМЕНИ. Если это "ночь" — должно быть темно. Если "утро" — рассвет.

═══ СТИЛЬ ПОВЕСТВОВАНИЯ ═══
- ЖАНР: Dark Medieval RPG (Kingdom Come: Deliverance style).
- ТОН: Суровый, реалистичный, приземленный. Никакой магии. Только люди и суровая реальность.
- РОЛЬ (GM): Ты — безжалостный мастер подземелий. Ты не спасаешь игрока.

`, ctx.CurrentSituation.Time)

	if h := HistoryContext(s.History); h != "" {
		fmt.Fprintf(&b, "═══ ИСТОРИЯ ПОСЛЕДНИХ ДЕЙСТВИЙ ═══\n%s\n", h)
	}

	return b.String()
}

// HistoryContext summarizes the last three turns for prompt context.
func HistoryContext(history []game.HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	var b strings.Builder
	for i, entry := range recent {
		scene := entry.Scene
		if len([]rune(scene)) > 150 {
			scene = string([]rune(scene)[:150])
		}
		fmt.Fprintf(&b, "[Ход -%d]:\nВыбор: %s\nСцена: %s...\n\n", len(recent)-i, entry.Choice, scene)
	}
	return b.String()
}

// IntroScene returns the opening scene for a fresh character. The text is
// fixed, not generated, so a new game never burns a model call.
func IntroScene(gender string) (string, []string) {
	var opening string
	if gender == "female" {
		opening = "Резкая боль пронзает всё тело. Вы медленно открываете глаза - перед вами грязная мостовая, лужи, конский навоз. Голова раскалывается. Вы лежите прямо на улице средневекового города, полностью голая и избитая. Тело покрыто ссадинами и грязью."
	} else {
		opening = "Резкая боль пронзает всё тело. Вы медленно открываете глаза - перед вами грязная мостовая, лужи, конский навоз. Голова раскалывается. Вы лежите прямо на улице средневекового города, полностью голый и избитый. Тело покрыто ссадинами и грязью."
	}

	description := opening + ` Пытаясь сфокусировать взгляд, вы видите деревянные дома с соломенными крышами, повозки, толпу людей в грубой средневековой одежде. Они останавливаются, показывают на вас пальцем. <span class="dialogue-speech"><i>«Смотрите, еще один бродяга!»</i></span>`

	choices := []string{
		"Попытаться прикрыться руками и попросить помощи у прохожих",
		"Быстро подняться и забежать в ближайший переулок",
		"Осмотреться - может, рядом есть тряпки или выброшенная одежда",
	}
	return description, choices
}

var (
	entityReplacer = strings.NewReplacer(
		"&quot;", `"`,
		"&laquo;", "«",
		"&raquo;", "»",
		"&gt;", ">",
		"&lt;", "<",
		"&nbsp;", " ",
	)
	dialogueMarkerRe = regexp.MustCompile(`(?i)["']?dialogue-speech["']?>\s*`)
	speechRe         = regexp.MustCompile(`(?is)\[SPEECH\]\s*([«"“][\s\S]+?[»"”])`)
	leftoverSpeechRe = regexp.MustCompile(`(?i)\[SPEECH\]`)
)

// FormatDescription normalizes scene text for the client: decodes HTML
// entities the model sometimes emits and turns dialogue-speech markers into
// styled spans.
func FormatDescription(text string) string {
	if text == "" {
		return ""
	}

	processed := entityReplacer.Replace(text)
	processed = dialogueMarkerRe.ReplaceAllString(processed, "[SPEECH]")
	processed = speechRe.ReplaceAllString(processed, `<span class="dialogue-speech"><i>$1</i></span>`)
	processed = leftoverSpeechRe.ReplaceAllString(processed, "")

	return processed
}
