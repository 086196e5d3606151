// Package worldmap maintains the discovered location graph and answers
// shortest-route queries over it.
package worldmap

import (
	"strings"
)

// Node is one discovered location. IDs are stable name-derived identifiers,
// independent of creation order.
type Node struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Description     string `json:"description"`
	Type            string `json:"type"`
	Discovered      bool   `json:"discovered"`
	DiscoveredAtDay int    `json:"discoveredAtDay"`
	VisitedCount    int    `json:"visitedCount"`
}

// Edge is an undirected connection between two nodes.
type Edge struct {
	FromID          string `json:"fromId"`
	ToID            string `json:"toId"`
	Kind            string `json:"kind"`
	DiscoveredAtDay int    `json:"discoveredAtDay"`
}

// StableID derives a deterministic identifier from a location name. It is
// idempotent: repeated normalization of the same name yields the same id.
// An empty or whitespace name yields an empty id; callers drop such nodes.
func StableID(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == 'ё':
			b.WriteRune('е')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r >= 'а' && r <= 'я':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune(' ')
		case r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())
	id := strings.Join(fields, "_")
	if runes := []rune(id); len(runes) > 40 {
		id = string(runes[:40])
	}
	if id == "" {
		return ""
	}
	return "loc_" + id
}

// Normalize cleans a node/edge list loaded from a save or narrated by the
// generator: nameless nodes are dropped, missing ids are derived from names,
// duplicates collapse to the first occurrence, and edges referencing unknown
// nodes are removed. If the map comes out empty, one anchor node named after
// the player's current location is seeded at the origin.
func Normalize(nodes []Node, edges []Edge, anchorName string, day int) ([]Node, []Edge) {
	out := make([]Node, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		n.Name = strings.TrimSpace(n.Name)
		if n.Name == "" {
			continue
		}
		if n.ID == "" {
			n.ID = StableID(n.Name)
		}
		if n.ID == "" || seen[n.ID] {
			continue
		}
		if n.Type == "" {
			n.Type = "place"
		}
		if n.DiscoveredAtDay == 0 {
			n.DiscoveredAtDay = day
		}
		seen[n.ID] = true
		out = append(out, n)
	}

	if len(out) == 0 && strings.TrimSpace(anchorName) != "" {
		out = append(out, Node{
			ID:              StableID(anchorName),
			Name:            anchorName,
			Description:     "Текущее место",
			Type:            "area",
			Discovered:      true,
			DiscoveredAtDay: day,
			VisitedCount:    1,
		})
		seen[out[0].ID] = true
	}

	outEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.FromID == "" || e.ToID == "" {
			continue
		}
		if !seen[e.FromID] || !seen[e.ToID] {
			continue
		}
		if e.Kind == "" {
			e.Kind = "road"
		}
		if e.DiscoveredAtDay == 0 {
			e.DiscoveredAtDay = day
		}
		outEdges = append(outEdges, e)
	}
	return out, outEdges
}

// FindByName looks a node up by name: exact case-insensitive match first,
// then a substring match either way. Substring matching exists only for
// free-text legacy names; stable-id lookups are preferred.
func FindByName(nodes []Node, name string) *Node {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return nil
	}
	for i := range nodes {
		if strings.ToLower(nodes[i].Name) == n {
			return &nodes[i]
		}
	}
	for i := range nodes {
		ln := strings.ToLower(nodes[i].Name)
		if ln == "" {
			continue
		}
		if strings.Contains(n, ln) || strings.Contains(ln, n) {
			return &nodes[i]
		}
	}
	return nil
}

// FindByID returns the node with the given id, or nil.
func FindByID(nodes []Node, id string) *Node {
	if id == "" {
		return nil
	}
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
	}
	return nil
}
