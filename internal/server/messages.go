package server

import (
	"encoding/json"

	"medievalrpg/internal/game"
	"medievalrpg/internal/game/check"
	"medievalrpg/internal/game/patch"
	"medievalrpg/internal/session"
	"medievalrpg/internal/storage"
)

// clientMessage is the envelope for everything a client sends. Payload
// fields are populated depending on Type.
type clientMessage struct {
	Type string `json:"type"`

	// start
	Name   string `json:"name,omitempty"`
	Gender string `json:"gender,omitempty"`

	// choice
	Choice        string `json:"choice,omitempty"`
	PreviousScene string `json:"previousScene,omitempty"`

	// clientUpdate
	Patch *clientPatch `json:"patch,omitempty"`

	// load: either a stored session id or a full exported state
	SessionID      string          `json:"sessionId,omitempty"`
	GameState      json.RawMessage `json:"gameState,omitempty"`
	CurrentScene   string          `json:"currentScene,omitempty"`
	CurrentChoices []string        `json:"currentChoices,omitempty"`
}

// clientPatch carries the allowlisted client-owned fields. Anything else in
// the payload is ignored.
type clientPatch struct {
	MapWaypoint *game.MapWaypoint `json:"mapWaypoint,omitempty"`
}

type connectedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type generatingMessage struct {
	Type string `json:"type"`
}

type sceneMessage struct {
	Type        string           `json:"type"`
	SessionID   string           `json:"sessionId"`
	GameState   *game.WorldState `json:"gameState"`
	Description string           `json:"description"`
	Choices     []string         `json:"choices"`
	IsDialogue  bool             `json:"isDialogue"`
	SpeakerName string           `json:"speakerName"`
	Effects     []patch.Effect   `json:"effects"`
	CheckResult *check.Result    `json:"checkResult,omitempty"`
}

type loadedMessage struct {
	Type        string           `json:"type"`
	SessionID   string           `json:"sessionId"`
	GameState   *game.WorldState `json:"gameState"`
	Description string           `json:"description"`
	Choices     []string         `json:"choices"`
}

type gameOverMessage struct {
	Type        string              `json:"type"`
	SessionID   string              `json:"sessionId"`
	DeathReason string              `json:"deathReason"`
	Description string              `json:"description"`
	FinalStats  *session.FinalStats `json:"finalStats"`
}

type clientUpdateAckMessage struct {
	Type      string           `json:"type"`
	GameState *game.WorldState `json:"gameState"`
}

type savedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type savesListMessage struct {
	Type  string                `json:"type"`
	Saves []storage.SaveSummary `json:"saves"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
