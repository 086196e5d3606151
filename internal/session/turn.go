package session

import (
	"context"
	"strconv"
	"time"

	"medievalrpg/internal/debug"
	"medievalrpg/internal/game"
	"medievalrpg/internal/game/check"
	"medievalrpg/internal/game/engine"
	"medievalrpg/internal/game/patch"
	"medievalrpg/internal/game/rules"
	"medievalrpg/internal/logging"
	"medievalrpg/internal/observability"
	"medievalrpg/internal/prompt"
)

const maxGenerationAttempts = 2

// deathDescription replaces a defaulted scene text when the turn kills the
// character, typically a silent starvation or wound death.
const deathDescription = "Ваши силы иссякли. Мир темнеет перед глазами..."

// Generator produces one raw model response for a system/user prompt pair.
type Generator interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// FinalStats summarizes a finished run for the death screen.
type FinalStats struct {
	DaysPlayed int `json:"daysPlayed"`
	Actions    int `json:"actions"`
	Coins      int `json:"coins"`
	Reputation int `json:"reputation"`
}

// SceneResult is the outcome of one committed turn.
type SceneResult struct {
	Description string         `json:"description"`
	Choices     []string       `json:"choices"`
	IsDialogue  bool           `json:"isDialogue"`
	SpeakerName string         `json:"speakerName"`
	Effects     []patch.Effect `json:"effects"`
	CheckResult *check.Result  `json:"checkResult,omitempty"`
	GameOver    bool           `json:"gameOver"`
	DeathReason string         `json:"deathReason,omitempty"`
	FinalStats  *FinalStats    `json:"finalStats,omitempty"`
}

// Runner drives the turn pipeline against a generator.
type Runner struct {
	gen   Generator
	audit *logging.AuditLogger
	dbg   *debug.Logger
}

func NewRunner(gen Generator, audit *logging.AuditLogger, dbg *debug.Logger) *Runner {
	return &Runner{gen: gen, audit: audit, dbg: dbg}
}

// Turn runs one full turn: generate a patch (with one retry on malformed
// output, then the neutral fallback), pass it through the guardrails and
// mutation engine, resolve any declared check, and commit the scene to
// history. A second call while one is in flight returns ErrTurnInFlight.
func (r *Runner) Turn(ctx context.Context, sess *Session, choice, previousScene string) (*SceneResult, error) {
	if err := sess.begin(); err != nil {
		return nil, err
	}
	defer sess.end()

	ctx = observability.WithSessionID(ctx, sess.ID)
	state := sess.State
	state.EnsureIntegrity()

	p := r.generatePatch(ctx, sess, choice, previousScene)

	rules.Apply(state, p, r.dbg)

	engineRes := engine.Apply(state, p)
	for _, ev := range engineRes.Events {
		r.dbg.Printf("[%s] %s", ev.Step, ev.Message)
	}

	var resolved *check.Result
	if p.SkillCheck != nil && p.SkillCheck.Key != "" {
		req := check.Request{Kind: p.SkillCheck.Kind, Key: p.SkillCheck.Key, Difficulty: p.SkillCheck.Difficulty}
		actor := state.SkillValue(p.SkillCheck.Key)
		res := check.Resolve(req, actor, sess.ID, state.TurnIndex())
		resolved = &res

		branch := p.SkillCheck.OnFail
		if res.Success {
			branch = p.SkillCheck.OnSuccess
		}
		applyOverlay(p, branch)

		verdict := "Провал"
		if res.Success {
			verdict = "Успех"
		}
		line := patch.Effect{
			Stat:   "timeChange",
			Delta:  0,
			Reason: verdict + " проверки " + res.Key + " (сложн." + strconv.Itoa(res.Difficulty) + ")",
		}
		p.Effects = append([]patch.Effect{line}, p.Effects...)
	}

	if engineRes.GameOver {
		// A defaulted description reads wrong on a death screen.
		if p.Description == patch.DefaultDescription {
			p.Description = deathDescription
		}
		state.History = append(state.History, historyEntry(state, choice, p.Description, nil, true, engineRes.DeathReason))
		return &SceneResult{
			Description: prompt.FormatDescription(p.Description),
			Choices:     []string{},
			Effects:     p.Effects,
			CheckResult: resolved,
			GameOver:    true,
			DeathReason: engineRes.DeathReason,
			FinalStats: &FinalStats{
				DaysPlayed: state.Date.DayOfGame,
				Actions:    len(state.History),
				Coins:      state.Coins,
				Reputation: state.Reputation,
			},
		}, nil
	}

	state.History = append(state.History, historyEntry(state, choice, p.Description, p.Choices, false, ""))

	return &SceneResult{
		Description: prompt.FormatDescription(p.Description),
		Choices:     p.Choices,
		IsDialogue:  p.IsDialogue,
		SpeakerName: p.SpeakerName,
		Effects:     p.Effects,
		CheckResult: resolved,
	}, nil
}

// generatePatch asks the generator for a structured response, retrying once
// with a format warning, and substitutes the neutral fallback when both
// attempts fail. Every attempt is audited.
func (r *Runner) generatePatch(ctx context.Context, sess *Session, choice, previousScene string) *patch.Patch {
	base := prompt.BuildScenePrompt(sess.State, choice, previousScene)

	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		userPrompt := base
		if attempt > 0 {
			userPrompt = base + prompt.RetrySuffix
		}

		started := time.Now()
		raw, err := r.gen.CompleteJSON(ctx, prompt.SystemPrompt, userPrompt)
		meta := logging.GenerationMetadata{
			ResponseTime: time.Since(started),
			Attempt:      attempt + 1,
		}
		if err != nil {
			msg := err.Error()
			meta.Error = &msg
			_ = r.audit.LogGeneration(sess.ID, choice, prompt.SystemPrompt, userPrompt, "", meta)
			r.dbg.Printf("generation attempt %d failed: %v", attempt+1, err)
			continue
		}
		_ = r.audit.LogGeneration(sess.ID, choice, prompt.SystemPrompt, userPrompt, raw, meta)

		p, perr := patch.Parse(raw)
		if perr != nil {
			_ = r.audit.LogParseFailure(sess.ID, choice, attempt+1, raw, perr.Error())
			r.dbg.Printf("parse attempt %d failed: %v", attempt+1, perr)
			continue
		}
		return p
	}

	r.dbg.Printf("all generation attempts failed, falling back")
	return patch.Fallback()
}

// applyOverlay replaces narrative fields from the winning branch. Numeric
// outcomes are never touched here; the engine already applied them.
func applyOverlay(p *patch.Patch, branch *patch.Overlay) {
	if branch == nil {
		return
	}
	if branch.Description != "" {
		p.Description = branch.Description
	}
	if len(branch.Choices) > 0 {
		p.Choices = branch.Choices
	}
	if len(branch.Effects) > 0 {
		p.Effects = branch.Effects
	}
}

func historyEntry(state *game.WorldState, choice, scene string, choices []string, gameOver bool, deathReason string) game.HistoryEntry {
	if choices == nil {
		choices = []string{}
	}
	return game.HistoryEntry{
		Choice:      choice,
		Scene:       scene,
		Choices:     choices,
		Location:    state.Location,
		Date:        state.Date,
		GameOver:    gameOver,
		DeathReason: deathReason,
	}
}
