// Package rules applies game-balance guardrails to a normalized patch before
// the mutation engine runs. Well-typed but abusive deltas are clamped or
// dropped here; nothing is ever surfaced to the player.
package rules

import (
	"regexp"
	"strings"

	"medievalrpg/internal/debug"
	"medievalrpg/internal/game"
	"medievalrpg/internal/game/patch"
)

const (
	// Morality changes below this magnitude count as routine and are limited
	// to one per in-game day.
	moralityBigChange = 3
	moralityMaxDelta  = 5

	reputationMaxDelta = 5

	// Coin swings above this need a justification keyword in effect reasons.
	coinJustifyThreshold = 30

	// Accepted NPC disposition changes per NPC are spaced this many turns.
	dispositionCooldownTurns = 3
	dispositionMaxMove       = 5
)

// Payment/trade/reward/fine/bribe/purchase stems. Effect reasons arrive in
// Russian from the generator.
var coinJustificationRe = regexp.MustCompile(`оплат|плат|торг|награ|контракт|штраф|взятк|продал|купил`)

// Apply adjusts the patch in place against the current state: morality and
// reputation cooldowns, coin justification, and per-NPC disposition pacing.
func Apply(s *game.WorldState, p *patch.Patch, dbg *debug.Logger) {
	s.EnsureIntegrity()

	currentDay := s.Date.DayOfGame
	turn := s.TurnIndex()

	if p.Morality != 0 {
		big := abs(p.Morality) >= moralityBigChange
		if !big && s.LastMoralityChangeDay != nil && *s.LastMoralityChangeDay == currentDay {
			dbg.Printf("morality unchanged: already changed on day %d", currentDay)
			p.Morality = 0
		} else if p.Morality != 0 {
			day := currentDay
			s.LastMoralityChangeDay = &day
		}
		p.Morality = clamp(p.Morality, -moralityMaxDelta, moralityMaxDelta)
	}

	p.Reputation = clamp(p.Reputation, -reputationMaxDelta, reputationMaxDelta)

	if p.Coins != 0 && abs(p.Coins) > coinJustifyThreshold {
		var reasons strings.Builder
		for _, e := range p.Effects {
			reasons.WriteString(strings.ToLower(e.Reason))
			reasons.WriteByte(' ')
		}
		if !coinJustificationRe.MatchString(reasons.String()) {
			dbg.Printf("big coin delta without justification (%d), clamping to ±%d", p.Coins, coinJustifyThreshold)
			if p.Coins > 0 {
				p.Coins = coinJustifyThreshold
			} else {
				p.Coins = -coinJustifyThreshold
			}
		}
	}

	if p.CharacterUpdate != nil {
		for name, rel := range p.CharacterUpdate.Relationships {
			if rel == nil || rel.Disposition == nil {
				continue
			}
			if last, ok := s.NPCDispositionTurn[name]; ok && turn-last < dispositionCooldownTurns {
				// Strip the disposition move, keep role/status/notes.
				dbg.Printf("disposition for %q dropped: cooldown (%d turns)", name, dispositionCooldownTurns)
				rel.Disposition = nil
				continue
			}
			current := 0
			if npc, ok := s.NPCs[name]; ok && npc != nil {
				current = npc.Disposition
			}
			// The generator proposes an absolute target; the applied move is
			// still clamped relative to the NPC's current value.
			target := clamp(*rel.Disposition, -100, 100)
			delta := clamp(target-current, -dispositionMaxMove, dispositionMaxMove)
			applied := current + delta
			rel.Disposition = &applied
			s.NPCDispositionTurn[name] = turn
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
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
