package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	inputHeight := 3
	chatHeight := m.height - inputHeight
	if chatHeight < 3 {
		chatHeight = 3
	}

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	userStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	effectStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("6"))

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(m.width - 4)

	chatPanel := lipgloss.NewStyle().
		Width(m.width).
		Height(chatHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1)

	contentWidth := m.width - 4
	maxMessages := chatHeight - 2
	if maxMessages < 1 {
		maxMessages = 1
	}

	visible := m.messages
	if m.loading {
		visible = append(append([]string{}, visible...), "LOADING_ANIMATION")
	}
	if len(visible) > maxMessages {
		visible = visible[len(visible)-maxMessages:]
	}

	var chat strings.Builder
	for i := len(visible); i < maxMessages; i++ {
		chat.WriteString("\n")
	}
	for _, message := range visible {
		switch {
		case message == "":
			chat.WriteString("\n")
		case strings.HasPrefix(message, "> "):
			chat.WriteString(userStyle.Render(wrap(message, contentWidth)) + "\n")
		case strings.HasPrefix(message, "["):
			chat.WriteString(effectStyle.Render(wrap(message, contentWidth)) + "\n")
		case message == "LOADING_ANIMATION":
			chat.WriteString(loadingStyle.Render(loadingFrame(m.animationFrame)) + "\n")
		default:
			chat.WriteString(messageStyle.Render(wrap(message, contentWidth)) + "\n")
		}
	}

	return chatPanel.Render(chat.String()) + "\n" + inputStyle.Render(m.input+"│")
}

func wrap(text string, width int) string {
	if width < 10 || len([]rune(text)) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	line := words[0]
	for _, word := range words[1:] {
		if len([]rune(line))+1+len([]rune(word)) <= width {
			line += " " + word
		} else {
			result.WriteString(line + "\n")
			line = word
		}
	}
	result.WriteString(line)
	return result.String()
}

func loadingFrame(frame int) string {
	arc := []string{"◜", "◠", "◝", "◞", "◡", "◟"}
	return arc[frame%len(arc)]
}
