package prompt

import (
	"strings"
	"testing"

	"medievalrpg/internal/game"
)

func TestFormatDescriptionDecodesEntities(t *testing.T) {
	in := "Он сказал &laquo;привет&raquo; и &quot;ушел&quot;&nbsp;прочь"
	want := `Он сказал «привет» и "ушел" прочь`
	if got := FormatDescription(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatDescriptionWrapsSpeech(t *testing.T) {
	in := `Трактирщица оборачивается. dialogue-speech> «Чего тебе, бродяга?»`
	got := FormatDescription(in)
	if !strings.Contains(got, `<span class="dialogue-speech"><i>«Чего тебе, бродяга?»</i></span>`) {
		t.Fatalf("speech not wrapped: %q", got)
	}
	if strings.Contains(got, "[SPEECH]") || strings.Contains(got, "dialogue-speech>") {
		t.Fatalf("markers leaked: %q", got)
	}
}

func TestFormatDescriptionStripsOrphanMarkers(t *testing.T) {
	in := `Тишина. "dialogue-speech"> и больше ничего`
	got := FormatDescription(in)
	if strings.Contains(got, "[SPEECH]") {
		t.Fatalf("orphan marker survived: %q", got)
	}
}

func TestFormatDescriptionEmpty(t *testing.T) {
	if got := FormatDescription(""); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestHistoryContextTakesLastThree(t *testing.T) {
	var history []game.HistoryEntry
	for _, c := range []string{"один", "два", "три", "четыре", "пять"} {
		history = append(history, game.HistoryEntry{Choice: c, Scene: "Сцена " + c})
	}
	got := HistoryContext(history)

	if strings.Contains(got, "Выбор: один") || strings.Contains(got, "Выбор: два") {
		t.Fatalf("old turns leaked: %q", got)
	}
	for _, c := range []string{"три", "четыре", "пять"} {
		if !strings.Contains(got, "Выбор: "+c) {
			t.Fatalf("turn %q missing: %q", c, got)
		}
	}
	if !strings.Contains(got, "[Ход -1]") || !strings.Contains(got, "[Ход -3]") {
		t.Fatalf("turn markers missing: %q", got)
	}
}

func TestHistoryContextTruncatesLongScenes(t *testing.T) {
	long := strings.Repeat("а", 400)
	got := HistoryContext([]game.HistoryEntry{{Choice: "идти", Scene: long}})
	if strings.Contains(got, strings.Repeat("а", 151)) {
		t.Fatalf("scene not truncated")
	}
}

func TestHistoryContextEmpty(t *testing.T) {
	if got := HistoryContext(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestIntroSceneByGender(t *testing.T) {
	male, choicesM := IntroScene("male")
	female, choicesF := IntroScene("female")
	if male == female {
		t.Fatal("gendered openings identical")
	}
	if !strings.Contains(male, "голый") || !strings.Contains(female, "голая") {
		t.Fatalf("gender agreement broken")
	}
	if len(choicesM) != 3 || len(choicesF) != 3 {
		t.Fatalf("choices = %d/%d, want 3", len(choicesM), len(choicesF))
	}
}

func TestBuildScenePromptIncludesStateAndAction(t *testing.T) {
	s := game.NewWorldState("Радомир", "male")
	s.Coins = 7
	s.History = append(s.History, game.HistoryEntry{Choice: "Осмотреться", Scene: "Рынок шумит."})

	got := BuildScenePrompt(s, "Подойти к лавке", "Вы на площади.")

	for _, want := range []string{
		"Радомир",
		"Подойти к лавке",
		"Вы на площади.",
		"Выбор: Осмотреться",
		"combat: lv.0",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildScenePromptDefaultsPreviousScene(t *testing.T) {
	s := game.NewWorldState("Тест", "male")
	got := BuildScenePrompt(s, "Осмотреться", "")
	if !strings.Contains(got, "Начало игры") {
		t.Fatalf("default previous scene missing")
	}
}
