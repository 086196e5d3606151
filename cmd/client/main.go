// Terminal client for the medieval RPG server. Connects over websocket,
// renders scenes with numbered choices, and sends either a picked number or
// free-form action text back as the turn choice.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "ws://localhost:3000/ws", "server websocket URL")
	name := flag.String("name", "Странник", "character name")
	gender := flag.String("gender", "male", "character gender (male|female)")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	p := tea.NewProgram(newModel(conn, *name, *gender), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
