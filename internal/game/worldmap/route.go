package worldmap

import (
	"math"
	"strings"
)

// EdgeCost maps an edge kind to a travel cost. Matching is case-insensitive
// keyword search so both English and Russian kinds resolve.
func EdgeCost(kind string) float64 {
	k := strings.ToLower(kind)
	if k == "" {
		k = "path"
	}
	switch {
	case strings.Contains(k, "road") || strings.Contains(k, "дорог"):
		return 1.0
	case strings.Contains(k, "path") || strings.Contains(k, "троп"):
		return 1.2
	case strings.Contains(k, "forest") || strings.Contains(k, "лес"):
		return 1.6
	case strings.Contains(k, "river") || strings.Contains(k, "река"):
		return 2.0
	case strings.Contains(k, "mount") || strings.Contains(k, "перев"):
		return 2.2
	}
	return 1.2
}

// Leg is one traversed edge of a computed route.
type Leg struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Kind string  `json:"kind"`
	Cost float64 `json:"cost"`
}

// Route is an ordered shortest path between two nodes.
type Route struct {
	FromID    string   `json:"fromId"`
	ToID      string   `json:"toId"`
	PathIDs   []string `json:"pathIds"`
	Legs      []Leg    `json:"legs"`
	TotalCost float64  `json:"totalCost"`
}

type halfEdge struct {
	to   string
	kind string
	cost float64
}

// ComputeRoute runs single-source Dijkstra from fromId to toId. Maps stay
// small, so no priority queue; ties break on node id to keep results
// deterministic. Returns nil when either endpoint is unknown, the endpoints
// coincide, or no path exists.
func ComputeRoute(nodes []Node, edges []Edge, fromID, toID string) *Route {
	if fromID == "" || toID == "" || fromID == toID {
		return nil
	}
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ID != "" {
			known[n.ID] = true
		}
	}
	if !known[fromID] || !known[toID] {
		return nil
	}

	adj := make(map[string][]halfEdge)
	for _, e := range edges {
		if e.FromID == "" || e.ToID == "" {
			continue
		}
		cost := EdgeCost(e.Kind)
		adj[e.FromID] = append(adj[e.FromID], halfEdge{to: e.ToID, kind: e.Kind, cost: cost})
		adj[e.ToID] = append(adj[e.ToID], halfEdge{to: e.FromID, kind: e.Kind, cost: cost})
	}

	type cameFrom struct {
		from string
		kind string
		cost float64
	}
	dist := make(map[string]float64, len(known))
	prev := make(map[string]cameFrom)
	visited := make(map[string]bool)
	for id := range known {
		dist[id] = math.Inf(1)
	}
	dist[fromID] = 0

	for {
		u := ""
		best := math.Inf(1)
		for id, d := range dist {
			if visited[id] {
				continue
			}
			if d < best || (d == best && u != "" && id < u) {
				best = d
				u = id
			}
		}
		if u == "" || math.IsInf(best, 1) {
			break
		}
		if u == toID {
			break
		}
		visited[u] = true
		for _, he := range adj[u] {
			if alt := best + he.cost; alt < dist[he.to] {
				dist[he.to] = alt
				prev[he.to] = cameFrom{from: u, kind: he.kind, cost: he.cost}
			}
		}
	}

	if _, ok := prev[toID]; !ok {
		return nil
	}

	pathIDs := []string{toID}
	var legs []Leg
	cur := toID
	for cur != fromID {
		p, ok := prev[cur]
		if !ok {
			break
		}
		legs = append(legs, Leg{From: p.from, To: cur, Kind: p.kind, Cost: p.cost})
		cur = p.from
		pathIDs = append(pathIDs, cur)
	}
	reverse(pathIDs)
	reverseLegs(legs)
	return &Route{FromID: fromID, ToID: toID, PathIDs: pathIDs, Legs: legs, TotalCost: dist[toID]}
}

// EstimateHours converts a route cost to whole travel hours for display.
func EstimateHours(totalCost float64) int {
	h := int(math.Ceil(totalCost))
	if h < 1 {
		h = 1
	}
	return h
}

// EstimateStamina converts a route cost to an expected stamina spend.
func EstimateStamina(totalCost float64) int {
	return int(math.Ceil(totalCost * 6))
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseLegs(s []Leg) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
