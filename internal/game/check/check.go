// Package check resolves declared skill and attribute checks
// deterministically. The generator proposes a check; the server decides.
// Identical inputs always reproduce the identical roll, so retrying a turn
// cannot reroll an outcome.
package check

import (
	"fmt"
	"math"
)

const (
	minChance  = 5
	maxChance  = 95
	baseChance = 50
	// Each point of actor-vs-difficulty gap moves the chance by this much.
	chanceSlope = 0.7
)

// Request is a declared check: kind ("skill" or "attribute"), the stat key,
// and a difficulty on a 0-100 scale.
type Request struct {
	Kind       string `json:"kind"`
	Key        string `json:"key"`
	Difficulty int    `json:"difficulty"`
}

// Result carries the resolved outcome alongside the inputs for UI
// transparency.
type Result struct {
	Kind       string `json:"kind"`
	Key        string `json:"key"`
	Difficulty int    `json:"difficulty"`
	Actor      int    `json:"actor"`
	Chance     int    `json:"chance"`
	Roll       int    `json:"roll"`
	Success    bool   `json:"success"`
}

// Resolve arbitrates a check. The actor value is the player's resolved stat
// on a 0-100 scale; sessionID and turn pin the pseudo-random seed to one
// committed turn of one session.
func Resolve(req Request, actor int, sessionID string, turn int) Result {
	kind := req.Kind
	if kind == "" {
		kind = "skill"
	}
	difficulty := clamp(req.Difficulty, 0, 100)

	chance := clamp(int(math.Round(baseChance+float64(actor-difficulty)*chanceSlope)), minChance, maxChance)

	seed := hashString(fmt.Sprintf("%s|%d|%s|%s|%d", sessionID, turn, kind, req.Key, difficulty))
	rng := mulberry32(seed)
	roll := int(rng()*100) + 1

	return Result{
		Kind:       kind,
		Key:        req.Key,
		Difficulty: difficulty,
		Actor:      actor,
		Chance:     chance,
		Roll:       roll,
		Success:    roll <= chance,
	}
}

// hashString is 32-bit FNV-1a over the string's code points. Not
// cryptographic; only stability matters.
func hashString(s string) uint32 {
	h := uint32(2166136261)
	for _, r := range s {
		h ^= uint32(r)
		h *= 16777619
	}
	return h
}

// mulberry32 is a tiny seeded PRNG with a 32-bit state, returning floats in
// [0,1). Chosen for its trivially portable arithmetic.
func mulberry32(seed uint32) func() float64 {
	a := seed
	return func() float64 {
		a += 0x6D2B79F5
		t := (a ^ (a >> 15)) * (a | 1)
		t = (t + (t^(t>>7))*(t|61)) ^ t
		return float64(t^(t>>14)) / 4294967296.0
	}
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
