package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"medievalrpg/internal/debug"
	"medievalrpg/internal/session"
	"medievalrpg/internal/storage"
)

const cannedScene = `{"description": "Вы на рыночной площади.", "choices": ["Подойти к лавке", "Уйти"], "timeChange": 1}`

type cannedGenerator struct {
	response string
}

func (g *cannedGenerator) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return g.response, nil
}

// serverMessage is a loose envelope covering every outbound message type.
type serverMessage struct {
	Type        string                `json:"type"`
	SessionID   string                `json:"sessionId"`
	Message     string                `json:"message"`
	Description string                `json:"description"`
	Choices     []string              `json:"choices"`
	DeathReason string                `json:"deathReason"`
	GameState   json.RawMessage       `json:"gameState"`
	Saves       []storage.SaveSummary `json:"saves"`
}

func newTestServer(t *testing.T, gen session.Generator) (*httptest.Server, *storage.Store) {
	t.Helper()
	saves, err := storage.NewStore(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { saves.Close() })

	dbg := debug.NewLogger(false, "")
	runner := session.NewRunner(gen, nil, dbg)
	srv := httptest.NewServer(New(session.NewStore(), runner, saves, dbg, 10*time.Second).Handler())
	t.Cleanup(srv.Close)
	return srv, saves
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) serverMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode %q: %v", payload, err)
	}
	return msg
}

func sendMessage(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	if err := ws.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConnectAssignsSession(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)

	msg := readMessage(t, ws)
	if msg.Type != "connected" || msg.SessionID == "" {
		t.Fatalf("got %+v", msg)
	}
}

func TestStartReturnsIntroScene(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws) // connected

	sendMessage(t, ws, map[string]string{"type": "start", "name": "Радомир", "gender": "male"})
	msg := readMessage(t, ws)
	if msg.Type != "scene" {
		t.Fatalf("got %+v", msg)
	}
	if len(msg.Choices) != 3 {
		t.Fatalf("intro choices = %v", msg.Choices)
	}
	if !strings.Contains(string(msg.GameState), "Радомир") {
		t.Fatalf("game state missing character name")
	}
}

func TestChoiceRunsTurn(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws) // connected

	sendMessage(t, ws, map[string]string{"type": "start"})
	readMessage(t, ws) // intro scene

	sendMessage(t, ws, map[string]string{"type": "choice", "choice": "Осмотреться"})
	if msg := readMessage(t, ws); msg.Type != "generating" {
		t.Fatalf("got %+v, want generating", msg)
	}
	msg := readMessage(t, ws)
	if msg.Type != "scene" {
		t.Fatalf("got %+v", msg)
	}
	if !strings.Contains(msg.Description, "рыночной площади") {
		t.Fatalf("description = %q", msg.Description)
	}
	if len(msg.Choices) != 2 {
		t.Fatalf("choices = %v", msg.Choices)
	}
}

func TestChoiceWithoutStart(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	connected := readMessage(t, ws)

	sendMessage(t, ws, map[string]string{"type": "choice", "choice": "Идти"})
	msg := readMessage(t, ws)
	if msg.Type != "error" {
		t.Fatalf("got %+v", msg)
	}
	if !strings.Contains(msg.Message, "Session not found. SessionID: "+connected.SessionID) {
		t.Fatalf("message = %q", msg.Message)
	}
}

func TestFatalTurnEndsSession(t *testing.T) {
	fatal := `{"description": "Темнота.", "choices": [], "health": -100, "gameOver": true, "deathReason": "Убит в драке"}`
	srv, _ := newTestServer(t, &cannedGenerator{response: fatal})
	ws := dial(t, srv)
	readMessage(t, ws) // connected

	sendMessage(t, ws, map[string]string{"type": "start"})
	readMessage(t, ws) // intro scene

	sendMessage(t, ws, map[string]string{"type": "choice", "choice": "Драться"})
	readMessage(t, ws) // generating
	msg := readMessage(t, ws)
	if msg.Type != "gameOver" || msg.DeathReason != "Убит в драке" {
		t.Fatalf("got %+v", msg)
	}

	// The session died with the character.
	sendMessage(t, ws, map[string]string{"type": "choice", "choice": "Встать"})
	if msg := readMessage(t, ws); msg.Type != "error" {
		t.Fatalf("got %+v, want session-not-found error", msg)
	}
}

func TestSaveAndListSaves(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws) // connected

	sendMessage(t, ws, map[string]string{"type": "start", "name": "Радомир"})
	readMessage(t, ws) // intro scene

	sendMessage(t, ws, map[string]string{"type": "save"})
	msg := readMessage(t, ws)
	if msg.Type != "saved" || msg.Message != "Игра сохранена!" {
		t.Fatalf("got %+v", msg)
	}

	sendMessage(t, ws, map[string]string{"type": "listSaves"})
	msg = readMessage(t, ws)
	if msg.Type != "savesList" || len(msg.Saves) != 1 {
		t.Fatalf("got %+v", msg)
	}
	if msg.Saves[0].Name != "Радомир" {
		t.Fatalf("save summary = %+v", msg.Saves[0])
	}
}

func TestLoadBySavedSessionID(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	connected := readMessage(t, ws)

	sendMessage(t, ws, map[string]string{"type": "start", "name": "Радомир"})
	readMessage(t, ws)
	sendMessage(t, ws, map[string]string{"type": "save"})
	readMessage(t, ws)

	// A fresh connection restores the old session's save by its id.
	ws2 := dial(t, srv)
	readMessage(t, ws2)
	sendMessage(t, ws2, map[string]string{"type": "load", "sessionId": connected.SessionID})
	msg := readMessage(t, ws2)
	if msg.Type != "loaded" {
		t.Fatalf("got %+v", msg)
	}
	if !strings.Contains(string(msg.GameState), "Радомир") {
		t.Fatalf("restored state missing character")
	}
	if len(msg.Choices) == 0 {
		t.Fatalf("no resume choices")
	}
}

func TestLoadUnknownSave(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws)

	sendMessage(t, ws, map[string]string{"type": "load", "sessionId": "no-such-save"})
	msg := readMessage(t, ws)
	if msg.Type != "error" || msg.Message != "Сохранение не найдено" {
		t.Fatalf("got %+v", msg)
	}
}

func TestLoadFromClientPayload(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws)

	payload := map[string]any{
		"type": "load",
		"gameState": map[string]any{
			"name":     "Вильгельмина",
			"gender":   "female",
			"location": "Ратай",
			"health":   40,
			"coins":    3,
		},
	}
	sendMessage(t, ws, payload)
	msg := readMessage(t, ws)
	if msg.Type != "loaded" {
		t.Fatalf("got %+v", msg)
	}
	if !strings.Contains(string(msg.GameState), "Вильгельмина") {
		t.Fatalf("state not restored from payload")
	}
}

func TestLoadPayloadWithoutName(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws)

	sendMessage(t, ws, map[string]any{
		"type":      "load",
		"gameState": map[string]any{"location": "Ратай"},
	})
	msg := readMessage(t, ws)
	if msg.Type != "error" || msg.Message != "В сохранении отсутствует имя персонажа!" {
		t.Fatalf("got %+v", msg)
	}
}

func TestClientUpdateAllowsOnlyWaypoint(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws)

	sendMessage(t, ws, map[string]string{"type": "start", "name": "Радомир"})
	readMessage(t, ws)

	sendMessage(t, ws, map[string]any{
		"type": "clientUpdate",
		"patch": map[string]any{
			"mapWaypoint": map[string]any{"locationId": "loc_лес", "name": "Лес"},
			"coins":       99999,
			"health":      100,
		},
	})
	msg := readMessage(t, ws)
	if msg.Type != "clientUpdateAck" {
		t.Fatalf("got %+v", msg)
	}
	if !strings.Contains(string(msg.GameState), "loc_лес") {
		t.Fatalf("waypoint not applied")
	}
	if strings.Contains(string(msg.GameState), "99999") {
		t.Fatalf("client-side coin edit leaked into state")
	}
}

func TestUnknownMessageType(t *testing.T) {
	srv, _ := newTestServer(t, &cannedGenerator{response: cannedScene})
	ws := dial(t, srv)
	readMessage(t, ws)

	sendMessage(t, ws, map[string]string{"type": "dance"})
	msg := readMessage(t, ws)
	if msg.Type != "error" || !strings.Contains(msg.Message, "dance") {
		t.Fatalf("got %+v", msg)
	}
}
