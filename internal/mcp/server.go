// Package mcp exposes read-only debug tools over the Model Context
// Protocol. An operator points an MCP-capable client at the running binary
// (started with -mcp) to inspect saves and dry-run route planning without
// touching live sessions.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"medievalrpg/internal/game/worldmap"
	"medievalrpg/internal/storage"
)

const (
	serverName    = "medievalrpg-debug"
	serverVersion = "1.0.0"
)

type DebugServer struct {
	server *mcp.Server
	saves  *storage.Store
}

func NewDebugServer(saves *storage.Store) *DebugServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	ds := &DebugServer{server: server, saves: saves}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_world_state",
		Description: "Return the saved world state for a session id",
	}, ds.getWorldState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "plan_route",
		Description: "Compute the cheapest route between two known locations of a saved game",
	}, ds.planRoute)

	return ds
}

// Run serves MCP over stdio until the context is canceled.
func (ds *DebugServer) Run(ctx context.Context) error {
	return ds.server.Run(ctx, mcp.NewStdioTransport())
}

type worldStateInput struct {
	SessionID string `json:"sessionId" jsonschema:"the session id of the save to inspect"`
}

type worldStateOutput struct {
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Day        int      `json:"day"`
	Health     int      `json:"health"`
	Stamina    int      `json:"stamina"`
	Coins      int      `json:"coins"`
	Reputation int      `json:"reputation"`
	Morality   int      `json:"morality"`
	Satiety    int      `json:"satiety"`
	Energy     int      `json:"energy"`
	Turns      int      `json:"turns"`
	Locations  []string `json:"locations"`
	Quests     []string `json:"quests"`
}

func (ds *DebugServer) getWorldState(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[worldStateInput]) (*mcp.CallToolResultFor[worldStateOutput], error) {
	state, err := ds.saves.Load(params.Arguments.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load save %q: %w", params.Arguments.SessionID, err)
	}

	out := worldStateOutput{
		Name:       state.Name,
		Location:   state.Location,
		Day:        state.Date.DayOfGame,
		Health:     state.Health,
		Stamina:    state.Stamina,
		Coins:      state.Coins,
		Reputation: state.Reputation,
		Morality:   state.Morality,
		Satiety:    state.Satiety,
		Energy:     state.Energy,
		Turns:      state.TurnIndex(),
	}
	for _, loc := range state.WorldMap {
		out.Locations = append(out.Locations, loc.Name)
	}
	for _, q := range state.Quests {
		out.Quests = append(out.Quests, fmt.Sprintf("%s (%s)", q.Name, q.Status))
	}

	summary := fmt.Sprintf("%s at %s, day %d: health %d, stamina %d, coins %d",
		out.Name, out.Location, out.Day, out.Health, out.Stamina, out.Coins)

	return &mcp.CallToolResultFor[worldStateOutput]{
		Content:           []mcp.Content{&mcp.TextContent{Text: summary}},
		StructuredContent: out,
	}, nil
}

type planRouteInput struct {
	SessionID string `json:"sessionId" jsonschema:"the session id of the save to plan in"`
	From      string `json:"from" jsonschema:"start location name; defaults to the player's location"`
	To        string `json:"to" jsonschema:"destination location name"`
}

type planRouteOutput struct {
	Legs    []worldmap.Leg `json:"legs"`
	Cost    float64        `json:"cost"`
	Hours   int            `json:"hours"`
	Stamina int            `json:"stamina"`
}

func (ds *DebugServer) planRoute(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[planRouteInput]) (*mcp.CallToolResultFor[planRouteOutput], error) {
	state, err := ds.saves.Load(params.Arguments.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load save %q: %w", params.Arguments.SessionID, err)
	}

	fromName := params.Arguments.From
	if fromName == "" {
		fromName = state.Location
	}
	from := worldmap.FindByName(state.WorldMap, fromName)
	if from == nil {
		return nil, fmt.Errorf("unknown start location %q", fromName)
	}
	to := worldmap.FindByName(state.WorldMap, params.Arguments.To)
	if to == nil {
		return nil, fmt.Errorf("unknown destination %q", params.Arguments.To)
	}

	route := worldmap.ComputeRoute(state.WorldMap, state.WorldEdges, from.ID, to.ID)
	if route == nil {
		return nil, fmt.Errorf("no route from %q to %q", from.Name, to.Name)
	}

	out := planRouteOutput{
		Legs:    route.Legs,
		Cost:    route.TotalCost,
		Hours:   worldmap.EstimateHours(route.TotalCost),
		Stamina: worldmap.EstimateStamina(route.TotalCost),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s: cost %.1f, ~%dh, ~%d stamina", from.Name, to.Name, out.Cost, out.Hours, out.Stamina)

	return &mcp.CallToolResultFor[planRouteOutput]{
		Content:           []mcp.Content{&mcp.TextContent{Text: b.String()}},
		StructuredContent: out,
	}, nil
}
