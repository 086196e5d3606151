package server

import (
	"context"
	"errors"

	"medievalrpg/internal/game"
	"medievalrpg/internal/prompt"
	"medievalrpg/internal/session"
	"medievalrpg/internal/storage"
)

func (s *Server) handleStart(c *conn, sessionID string, msg clientMessage) {
	name := msg.Name
	if name == "" {
		name = "Странник"
	}
	gender := msg.Gender
	if gender == "" {
		gender = "male"
	}

	state := game.NewWorldState(name, gender)
	sess := s.sessions.Put(sessionID, state)
	s.dbg.Printf("new game for %s (%s), session %s", state.Name, state.Gender, sessionID)

	description, choices := prompt.IntroScene(gender)
	c.send(sceneMessage{
		Type:        "scene",
		SessionID:   sessionID,
		GameState:   sess.State,
		Description: description,
		Choices:     choices,
	})
}

func (s *Server) handleChoice(ctx context.Context, c *conn, sessionID string, msg clientMessage) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		c.send(errorMessage{Type: "error", Message: "Session not found. SessionID: " + sessionID})
		return
	}

	c.send(generatingMessage{Type: "generating"})

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.runner.Turn(ctx, sess, msg.Choice, msg.PreviousScene)
	if err != nil {
		if errors.Is(err, session.ErrTurnInFlight) {
			c.send(errorMessage{Type: "error", Message: "Предыдущий ход еще обрабатывается"})
			return
		}
		c.send(errorMessage{Type: "error", Message: err.Error()})
		return
	}

	if result.GameOver {
		s.dbg.Printf("game over for %s: %s", sess.State.Name, result.DeathReason)
		c.send(gameOverMessage{
			Type:        "gameOver",
			SessionID:   sessionID,
			DeathReason: result.DeathReason,
			Description: result.Description,
			FinalStats:  result.FinalStats,
		})
		s.sessions.Delete(sessionID)
		return
	}

	c.send(sceneMessage{
		Type:        "scene",
		SessionID:   sessionID,
		GameState:   sess.State,
		Description: result.Description,
		Choices:     result.Choices,
		IsDialogue:  result.IsDialogue,
		SpeakerName: result.SpeakerName,
		Effects:     result.Effects,
		CheckResult: result.CheckResult,
	})
}

func (s *Server) handleClientUpdate(c *conn, sessionID string, msg clientMessage) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		c.send(errorMessage{Type: "error", Message: "Session not found"})
		return
	}
	sess.State.EnsureIntegrity()

	if msg.Patch != nil && msg.Patch.MapWaypoint != nil {
		sess.State.Waypoint = game.MapWaypoint{
			LocationID: msg.Patch.MapWaypoint.LocationID,
			Name:       msg.Patch.MapWaypoint.Name,
		}
	}

	c.send(clientUpdateAckMessage{Type: "clientUpdateAck", GameState: sess.State})
}

func (s *Server) handleSave(c *conn, sessionID string) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		c.send(errorMessage{Type: "error", Message: "Session not found"})
		return
	}

	if err := s.saves.Save(sessionID, sess.State); err != nil {
		s.dbg.Printf("save failed for session %s: %v", sessionID, err)
		c.send(errorMessage{Type: "error", Message: "Ошибка сохранения"})
		return
	}
	c.send(savedMessage{Type: "saved", Message: "Игра сохранена!"})
}

// handleLoad restores a session either from the save store by id or from a
// full state payload the client kept on its side.
func (s *Server) handleLoad(c *conn, sessionID string, msg clientMessage) {
	var state *game.WorldState

	switch {
	case len(msg.GameState) > 0:
		decoded, err := storage.DecodeState(msg.GameState)
		if err != nil {
			c.send(errorMessage{Type: "error", Message: "Файл сохранения пустой или поврежден!"})
			return
		}
		state = decoded
	default:
		id := msg.SessionID
		if id == "" {
			id = sessionID
		}
		loaded, err := s.saves.Load(id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.send(errorMessage{Type: "error", Message: "Сохранение не найдено"})
			} else {
				c.send(errorMessage{Type: "error", Message: "Ошибка загрузки"})
			}
			return
		}
		state = loaded
	}

	if state.Name == "" {
		c.send(errorMessage{Type: "error", Message: "В сохранении отсутствует имя персонажа!"})
		return
	}

	sess := s.sessions.Put(sessionID, state)
	s.dbg.Printf("loaded save for %s, session %s", state.Name, sessionID)

	description := msg.CurrentScene
	if description == "" {
		description = "Вы продолжаете свое путешествие..."
	}
	choices := msg.CurrentChoices
	if len(choices) == 0 {
		choices = []string{"Продолжить", "Осмотреться", "Отдохнуть"}
	}

	c.send(loadedMessage{
		Type:        "loaded",
		SessionID:   sessionID,
		GameState:   sess.State,
		Description: description,
		Choices:     choices,
	})
}

func (s *Server) handleListSaves(c *conn) {
	saves, err := s.saves.List()
	if err != nil {
		c.send(errorMessage{Type: "error", Message: "Ошибка чтения сохранений"})
		return
	}
	if saves == nil {
		saves = []storage.SaveSummary{}
	}
	c.send(savesListMessage{Type: "savesList", Saves: saves})
}
