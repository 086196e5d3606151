package rules

import (
	"testing"

	"medievalrpg/internal/debug"
	"medievalrpg/internal/game"
	"medievalrpg/internal/game/patch"
)

func testState() *game.WorldState {
	return game.NewWorldState("Тест", "male")
}

func quietLogger() *debug.Logger {
	return debug.NewLogger(false, "")
}

func intPtr(n int) *int { return &n }

func TestMoralityOncePerDayForSmallChanges(t *testing.T) {
	s := testState()
	dbg := quietLogger()

	p := &patch.Patch{Morality: 2}
	Apply(s, p, dbg)
	if p.Morality != 2 {
		t.Fatalf("first small change: morality = %d, want 2", p.Morality)
	}
	if s.LastMoralityChangeDay == nil || *s.LastMoralityChangeDay != s.Date.DayOfGame {
		t.Fatalf("change day not recorded")
	}

	p2 := &patch.Patch{Morality: -1}
	Apply(s, p2, dbg)
	if p2.Morality != 0 {
		t.Fatalf("second small change same day: morality = %d, want 0", p2.Morality)
	}
}

func TestMoralityBigChangeBypassesDayLimit(t *testing.T) {
	s := testState()
	day := s.Date.DayOfGame
	s.LastMoralityChangeDay = &day

	p := &patch.Patch{Morality: -8}
	Apply(s, p, quietLogger())
	if p.Morality != -5 {
		t.Fatalf("big change: morality = %d, want -5 (clamped)", p.Morality)
	}
}

func TestReputationClamped(t *testing.T) {
	cases := []struct{ in, want int }{
		{12, 5},
		{-9, -5},
		{3, 3},
		{0, 0},
	}
	for _, tc := range cases {
		s := testState()
		p := &patch.Patch{Reputation: tc.in}
		Apply(s, p, quietLogger())
		if p.Reputation != tc.want {
			t.Errorf("reputation %d: got %d, want %d", tc.in, p.Reputation, tc.want)
		}
	}
}

func TestBigCoinDeltaNeedsJustification(t *testing.T) {
	s := testState()
	p := &patch.Patch{Coins: 50}
	Apply(s, p, quietLogger())
	if p.Coins != 30 {
		t.Fatalf("unjustified +50: coins = %d, want 30", p.Coins)
	}

	s = testState()
	p = &patch.Patch{Coins: -45}
	Apply(s, p, quietLogger())
	if p.Coins != -30 {
		t.Fatalf("unjustified -45: coins = %d, want -30", p.Coins)
	}
}

func TestBigCoinDeltaWithJustificationKept(t *testing.T) {
	s := testState()
	p := &patch.Patch{
		Coins: 50,
		Effects: []patch.Effect{
			{Stat: "coins", Delta: 50, Reason: "Награда за выполненный контракт"},
		},
	}
	Apply(s, p, quietLogger())
	if p.Coins != 50 {
		t.Fatalf("justified +50: coins = %d, want 50", p.Coins)
	}
}

func TestSmallCoinDeltaUntouched(t *testing.T) {
	s := testState()
	p := &patch.Patch{Coins: 10}
	Apply(s, p, quietLogger())
	if p.Coins != 10 {
		t.Fatalf("small delta: coins = %d, want 10", p.Coins)
	}
}

func TestDispositionMoveClampedTowardTarget(t *testing.T) {
	s := testState()
	s.NPCs["Бьёрн"] = &game.NPC{Disposition: 10}

	p := &patch.Patch{CharacterUpdate: &patch.CharacterUpdate{
		Relationships: map[string]*patch.Relationship{
			"Бьёрн": {Disposition: intPtr(100)},
		},
	}}
	Apply(s, p, quietLogger())

	rel := p.CharacterUpdate.Relationships["Бьёрн"]
	if rel.Disposition == nil || *rel.Disposition != 15 {
		t.Fatalf("disposition = %v, want 15", rel.Disposition)
	}
	if got, ok := s.NPCDispositionTurn["Бьёрн"]; !ok || got != s.TurnIndex() {
		t.Fatalf("cooldown turn not recorded, got %d ok=%v", got, ok)
	}
}

func TestDispositionTargetClampedToRange(t *testing.T) {
	s := testState()
	s.NPCs["Вильгельм"] = &game.NPC{Disposition: 98}

	p := &patch.Patch{CharacterUpdate: &patch.CharacterUpdate{
		Relationships: map[string]*patch.Relationship{
			"Вильгельм": {Disposition: intPtr(500)},
		},
	}}
	Apply(s, p, quietLogger())

	rel := p.CharacterUpdate.Relationships["Вильгельм"]
	if rel.Disposition == nil || *rel.Disposition != 100 {
		t.Fatalf("disposition = %v, want 100 (target clamped before move)", rel.Disposition)
	}
}

func TestDispositionCooldownStripsMoveKeepsRest(t *testing.T) {
	s := testState()
	s.History = append(s.History, game.HistoryEntry{}, game.HistoryEntry{}, game.HistoryEntry{})
	s.NPCDispositionTurn["Марта"] = s.TurnIndex() - 1

	p := &patch.Patch{CharacterUpdate: &patch.CharacterUpdate{
		Relationships: map[string]*patch.Relationship{
			"Марта": {Disposition: intPtr(50), Role: "трактирщица", Notes: "подозревает неладное"},
		},
	}}
	Apply(s, p, quietLogger())

	rel := p.CharacterUpdate.Relationships["Марта"]
	if rel.Disposition != nil {
		t.Fatalf("disposition not stripped during cooldown: %v", *rel.Disposition)
	}
	if rel.Role != "трактирщица" || rel.Notes != "подозревает неладное" {
		t.Fatalf("non-disposition fields lost: %+v", rel)
	}
}

func TestDispositionAfterCooldownAccepted(t *testing.T) {
	s := testState()
	s.History = append(s.History, game.HistoryEntry{}, game.HistoryEntry{}, game.HistoryEntry{}, game.HistoryEntry{})
	s.NPCDispositionTurn["Марта"] = s.TurnIndex() - dispositionCooldownTurns

	p := &patch.Patch{CharacterUpdate: &patch.CharacterUpdate{
		Relationships: map[string]*patch.Relationship{
			"Марта": {Disposition: intPtr(3)},
		},
	}}
	Apply(s, p, quietLogger())

	rel := p.CharacterUpdate.Relationships["Марта"]
	if rel.Disposition == nil || *rel.Disposition != 3 {
		t.Fatalf("disposition = %v, want 3", rel.Disposition)
	}
}
