package main

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// serverMessage mirrors the server's outbound envelope; only the fields the
// terminal renders are decoded.
type serverMessage struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"sessionId"`
	Description string          `json:"description"`
	Choices     []string        `json:"choices"`
	Message     string          `json:"message"`
	DeathReason string          `json:"deathReason"`
	FinalStats  *finalStats     `json:"finalStats"`
	Effects     []effect        `json:"effects"`
	GameState   json.RawMessage `json:"gameState"`
}

type finalStats struct {
	DaysPlayed int `json:"daysPlayed"`
	Actions    int `json:"actions"`
	Coins      int `json:"coins"`
	Reputation int `json:"reputation"`
}

type effect struct {
	Stat   string `json:"stat"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type serverMsg struct {
	msg serverMessage
	err error
}

type animationTickMsg struct{}

type model struct {
	conn   *websocket.Conn
	inbox  chan serverMsg
	name   string
	gender string

	messages       []string
	input          string
	width          int
	height         int
	loading        bool
	animationFrame int
	gameOver       bool

	choices       []string
	previousScene string
}

func newModel(conn *websocket.Conn, name, gender string) model {
	m := model{
		conn:   conn,
		inbox:  make(chan serverMsg, 8),
		name:   name,
		gender: gender,
	}
	go m.readLoop()
	return m
}

func (m model) readLoop() {
	for {
		_, payload, err := m.conn.ReadMessage()
		if err != nil {
			m.inbox <- serverMsg{err: err}
			return
		}
		var msg serverMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		m.inbox <- serverMsg{msg: msg}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForServer(), animationTimer())
}

func (m model) waitForServer() tea.Cmd {
	return func() tea.Msg {
		return <-m.inbox
	}
}

func animationTimer() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func (m model) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.conn.WriteMessage(websocket.TextMessage, data)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case animationTickMsg:
		if m.loading {
			m.animationFrame++
		}
		return m, animationTimer()

	case serverMsg:
		return m.handleServer(msg)

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

func plainText(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}

func (m model) handleServer(sm serverMsg) (tea.Model, tea.Cmd) {
	if sm.err != nil {
		m.loading = false
		m.messages = append(m.messages, "[ОШИБКА] соединение потеряно: "+sm.err.Error())
		return m, nil
	}

	msg := sm.msg
	switch msg.Type {
	case "connected":
		m.send(map[string]string{"type": "start", "name": m.name, "gender": m.gender})
		m.loading = true

	case "generating":
		m.loading = true

	case "scene", "loaded":
		m.loading = false
		m.messages = append(m.messages, "")
		for _, e := range msg.Effects {
			if e.Reason != "" {
				m.messages = append(m.messages, "["+e.Reason+"]")
			}
		}
		for _, p := range strings.Split(plainText(msg.Description), "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				m.messages = append(m.messages, p, "")
			}
		}
		for i, c := range msg.Choices {
			m.messages = append(m.messages, strconv.Itoa(i+1)+". "+c)
		}
		m.choices = msg.Choices
		m.previousScene = plainText(msg.Description)

	case "gameOver":
		m.loading = false
		m.gameOver = true
		m.messages = append(m.messages, "", plainText(msg.Description), "")
		m.messages = append(m.messages, "☠ "+msg.DeathReason)
		if fs := msg.FinalStats; fs != nil {
			m.messages = append(m.messages,
				"Дней прожито: "+strconv.Itoa(fs.DaysPlayed)+
					", действий: "+strconv.Itoa(fs.Actions)+
					", грошей: "+strconv.Itoa(fs.Coins)+
					", репутация: "+strconv.Itoa(fs.Reputation))
		}
		m.messages = append(m.messages, "", "Нажмите q для выхода.")

	case "saved":
		m.messages = append(m.messages, "["+msg.Message+"]")

	case "error":
		m.loading = false
		m.messages = append(m.messages, "[ОШИБКА] "+msg.Message)
	}

	return m, m.waitForServer()
}

func (m model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter":
		input := strings.TrimSpace(m.input)
		if input == "" || m.loading || m.gameOver {
			return m, nil
		}
		m.input = ""

		if input == "/save" {
			m.send(map[string]string{"type": "save"})
			return m, nil
		}

		choice := input
		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(m.choices) {
			choice = m.choices[n-1]
		}

		m.messages = append(m.messages, "", "> "+choice)
		m.loading = true
		m.animationFrame = 0
		m.send(map[string]string{
			"type":          "choice",
			"choice":        choice,
			"previousScene": m.previousScene,
		})
		return m, nil

	case "backspace":
		if len(m.input) > 0 && !m.loading {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	default:
		if !m.loading && len([]rune(msg.String())) == 1 {
			m.input += msg.String()
		}
		return m, nil
	}
}
