package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"medievalrpg/internal/debug"
	"medievalrpg/internal/game"
	"medievalrpg/internal/prompt"
)

// fakeGenerator replays canned responses and records the prompts it saw.
type fakeGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	block     chan struct{}
}

func (f *fakeGenerator) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.prompts = append(f.prompts, userPrompt)
	i := f.calls
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", context.Canceled
}

func newTestRunner(gen Generator) *Runner {
	return NewRunner(gen, nil, debug.NewLogger(false, ""))
}

func newTestSession() *Session {
	return &Session{ID: "test-session", State: game.NewWorldState("Тест", "male")}
}

const simpleScene = `{"description": "Вы выходите на рыночную площадь.", "choices": ["Подойти к лавке", "Уйти"], "timeChange": 1}`

func TestTurnCommitsHistory(t *testing.T) {
	gen := &fakeGenerator{responses: []string{simpleScene}}
	r := newTestRunner(gen)
	sess := newTestSession()

	res, err := r.Turn(context.Background(), sess, "Осмотреться", "")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if !strings.Contains(res.Description, "рыночную площадь") {
		t.Fatalf("description = %q", res.Description)
	}
	if len(res.Choices) != 2 {
		t.Fatalf("choices = %v", res.Choices)
	}
	if got := sess.State.TurnIndex(); got != 1 {
		t.Fatalf("turn index = %d, want 1", got)
	}
	h := sess.State.History[0]
	if h.Choice != "Осмотреться" || h.GameOver {
		t.Fatalf("history entry = %+v", h)
	}
}

func TestTurnRetriesWithFormatWarning(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"не json вовсе", simpleScene}}
	r := newTestRunner(gen)
	sess := newTestSession()

	res, err := r.Turn(context.Background(), sess, "Идти", "")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("calls = %d, want 2", gen.calls)
	}
	if strings.Contains(gen.prompts[0], prompt.RetrySuffix) {
		t.Fatalf("first attempt already carried the retry warning")
	}
	if !strings.HasSuffix(gen.prompts[1], prompt.RetrySuffix) {
		t.Fatalf("second attempt missing the retry warning")
	}
	if !strings.Contains(res.Description, "рыночную площадь") {
		t.Fatalf("description = %q", res.Description)
	}
}

func TestTurnFallsBackAfterAllAttempts(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"мусор", "снова мусор"}}
	r := newTestRunner(gen)
	sess := newTestSession()

	res, err := r.Turn(context.Background(), sess, "Идти", "")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if !strings.Contains(res.Description, "Мир замер на мгновение") {
		t.Fatalf("fallback not used: %q", res.Description)
	}
	if len(res.Choices) != 3 || res.Choices[0] != "Попробовать снова" {
		t.Fatalf("fallback choices = %v", res.Choices)
	}
	// Even a fallback turn commits.
	if sess.State.TurnIndex() != 1 {
		t.Fatalf("turn index = %d, want 1", sess.State.TurnIndex())
	}
}

func TestTurnRejectsConcurrentChoice(t *testing.T) {
	gen := &fakeGenerator{responses: []string{simpleScene}, block: make(chan struct{})}
	r := newTestRunner(gen)
	sess := newTestSession()

	done := make(chan error, 1)
	go func() {
		_, err := r.Turn(context.Background(), sess, "Идти", "")
		done <- err
	}()

	// Wait until the first turn is inside generation.
	deadline := time.After(2 * time.Second)
	for {
		sess.mu.Lock()
		busy := sess.busy
		sess.mu.Unlock()
		if busy {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first turn never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := r.Turn(context.Background(), sess, "Бежать", ""); err != ErrTurnInFlight {
		t.Fatalf("concurrent turn error = %v, want ErrTurnInFlight", err)
	}

	close(gen.block)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}
}

func TestTurnDeathProducesFinalStats(t *testing.T) {
	fatal := `{"description": "Клинок находит цель.", "choices": [], "health": -100, "gameOver": true, "deathReason": "Убит в драке"}`
	gen := &fakeGenerator{responses: []string{fatal}}
	r := newTestRunner(gen)
	sess := newTestSession()
	sess.State.Coins = 17

	res, err := r.Turn(context.Background(), sess, "Драться", "")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if !res.GameOver || res.DeathReason != "Убит в драке" {
		t.Fatalf("result = %+v", res)
	}
	if res.FinalStats == nil {
		t.Fatal("missing final stats")
	}
	if res.FinalStats.Coins != 17 || res.FinalStats.Actions != 1 {
		t.Fatalf("final stats = %+v", res.FinalStats)
	}
	last := sess.State.History[len(sess.State.History)-1]
	if !last.GameOver || last.DeathReason != "Убит в драке" {
		t.Fatalf("history entry = %+v", last)
	}
}

func TestSilentDeathGetsDeathDescription(t *testing.T) {
	// No description in the response; the character starves this turn.
	gen := &fakeGenerator{responses: []string{`{"choices": ["Продолжить"]}`}}
	r := newTestRunner(gen)
	sess := newTestSession()
	sess.State.Satiety = 0
	sess.State.Health = 5

	res, err := r.Turn(context.Background(), sess, "Идти дальше", "")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if !res.GameOver {
		t.Fatalf("starving character survived: %+v", res)
	}
	if !strings.Contains(res.Description, "Мир темнеет перед глазами") {
		t.Fatalf("death screen shows %q", res.Description)
	}
	last := sess.State.History[len(sess.State.History)-1]
	if !strings.Contains(last.Scene, "Мир темнеет перед глазами") {
		t.Fatalf("history kept the filler text: %q", last.Scene)
	}
}

func TestExplicitDeathDescriptionKept(t *testing.T) {
	fatal := `{"description": "Клинок входит под ребра.", "choices": [], "health": -100, "gameOver": true}`
	gen := &fakeGenerator{responses: []string{fatal}}
	r := newTestRunner(gen)
	sess := newTestSession()

	res, err := r.Turn(context.Background(), sess, "Драться", "")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if !res.GameOver {
		t.Fatalf("declared death ignored: %+v", res)
	}
	if !strings.Contains(res.Description, "под ребра") {
		t.Fatalf("generator's death scene replaced: %q", res.Description)
	}
}

func TestTurnResolvesDeclaredCheck(t *testing.T) {
	withCheck := `{
		"description": "Вы пытаетесь проскользнуть мимо стражи.",
		"choices": ["Дальше"],
		"skillCheck": {
			"kind": "skill",
			"key": "stealth",
			"difficulty": 40,
			"onSuccess": {"description": "Стража вас не заметила.", "choices": ["Идти дальше"]},
			"onFail": {"description": "Стражник хватает вас за плечо.", "choices": ["Вырываться", "Сдаться"]}
		}
	}`
	gen := &fakeGenerator{responses: []string{withCheck}}
	r := newTestRunner(gen)
	sess := newTestSession()

	res, err := r.Turn(context.Background(), sess, "Проскользнуть", "")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if res.CheckResult == nil {
		t.Fatal("check result missing")
	}
	if res.CheckResult.Key != "stealth" || res.CheckResult.Difficulty != 40 {
		t.Fatalf("check result = %+v", res.CheckResult)
	}

	// The winning branch's narrative replaces the base scene.
	if res.CheckResult.Success {
		if !strings.Contains(res.Description, "не заметила") {
			t.Fatalf("success overlay not applied: %q", res.Description)
		}
	} else {
		if !strings.Contains(res.Description, "хватает вас") {
			t.Fatalf("failure overlay not applied: %q", res.Description)
		}
	}

	// A transparency line always leads the effects.
	if len(res.Effects) == 0 {
		t.Fatal("effects missing transparency line")
	}
	first := res.Effects[0]
	if first.Stat != "timeChange" || first.Delta != 0 {
		t.Fatalf("transparency line = %+v", first)
	}
	if !strings.Contains(first.Reason, "проверки stealth") || !strings.Contains(first.Reason, "сложн.40") {
		t.Fatalf("transparency reason = %q", first.Reason)
	}
}

func TestTurnCheckIsStableAcrossRetries(t *testing.T) {
	withCheck := `{"description": "Бросок.", "choices": ["Дальше"], "skillCheck": {"key": "combat", "difficulty": 50}}`

	run := func() bool {
		gen := &fakeGenerator{responses: []string{withCheck}}
		sess := newTestSession()
		res, err := newTestRunner(gen).Turn(context.Background(), sess, "Атаковать", "")
		if err != nil {
			t.Fatalf("Turn: %v", err)
		}
		if res.CheckResult == nil {
			t.Fatal("check result missing")
		}
		return res.CheckResult.Success
	}

	first := run()
	for i := 0; i < 5; i++ {
		if run() != first {
			t.Fatal("identical session and turn rerolled the check")
		}
	}
}

func TestStorePutReplacesSession(t *testing.T) {
	st := NewStore()
	a := st.Put("id", game.NewWorldState("Первый", "male"))
	b := st.Put("id", game.NewWorldState("Вторая", "female"))
	if a == b {
		t.Fatal("Put did not replace the session")
	}
	got, ok := st.Get("id")
	if !ok || got.State.Name != "Вторая" {
		t.Fatalf("got %+v", got)
	}
	if st.Len() != 1 {
		t.Fatalf("len = %d", st.Len())
	}
	st.Delete("id")
	if _, ok := st.Get("id"); ok {
		t.Fatal("session survived delete")
	}
}
