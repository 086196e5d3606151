package worldmap

import "testing"

func testGraph() ([]Node, []Edge) {
	nodes := []Node{
		{ID: "loc_a", Name: "А"},
		{ID: "loc_b", Name: "Б"},
		{ID: "loc_c", Name: "В"},
		{ID: "loc_d", Name: "Г"},
	}
	edges := []Edge{
		{FromID: "loc_a", ToID: "loc_b", Kind: "road"},
		{FromID: "loc_b", ToID: "loc_c", Kind: "road"},
		{FromID: "loc_a", ToID: "loc_c", Kind: "river"},
		{FromID: "loc_c", ToID: "loc_d", Kind: "path"},
	}
	return nodes, edges
}

func TestComputeRoutePrefersCheaperPath(t *testing.T) {
	nodes, edges := testGraph()
	r := ComputeRoute(nodes, edges, "loc_a", "loc_c")
	if r == nil {
		t.Fatal("no route found")
	}
	// Two roads (1.0 each) beat the direct river crossing (2.0).
	if r.TotalCost != 2.0 {
		t.Errorf("total cost = %v, want 2.0", r.TotalCost)
	}
	want := []string{"loc_a", "loc_b", "loc_c"}
	if len(r.PathIDs) != len(want) {
		t.Fatalf("path = %v, want %v", r.PathIDs, want)
	}
	for i := range want {
		if r.PathIDs[i] != want[i] {
			t.Fatalf("path = %v, want %v", r.PathIDs, want)
		}
	}
	if len(r.Legs) != 2 || r.Legs[0].From != "loc_a" || r.Legs[1].To != "loc_c" {
		t.Fatalf("legs = %+v", r.Legs)
	}
}

func TestComputeRouteNoPath(t *testing.T) {
	nodes, _ := testGraph()
	nodes = append(nodes, Node{ID: "loc_island", Name: "Остров"})
	_, edges := testGraph()
	if r := ComputeRoute(nodes, edges, "loc_a", "loc_island"); r != nil {
		t.Fatalf("route to disconnected node: %+v", r)
	}
}

func TestComputeRouteUnknownEndpoints(t *testing.T) {
	nodes, edges := testGraph()
	if r := ComputeRoute(nodes, edges, "loc_a", "loc_nowhere"); r != nil {
		t.Fatalf("route to unknown node: %+v", r)
	}
	if r := ComputeRoute(nodes, edges, "loc_a", "loc_a"); r != nil {
		t.Fatalf("route to self: %+v", r)
	}
}

func TestComputeRouteDeterministicTieBreak(t *testing.T) {
	nodes := []Node{
		{ID: "loc_a", Name: "А"},
		{ID: "loc_m1", Name: "М1"},
		{ID: "loc_m2", Name: "М2"},
		{ID: "loc_z", Name: "Я"},
	}
	edges := []Edge{
		{FromID: "loc_a", ToID: "loc_m1", Kind: "road"},
		{FromID: "loc_m1", ToID: "loc_z", Kind: "road"},
		{FromID: "loc_a", ToID: "loc_m2", Kind: "road"},
		{FromID: "loc_m2", ToID: "loc_z", Kind: "road"},
	}
	first := ComputeRoute(nodes, edges, "loc_a", "loc_z")
	if first == nil {
		t.Fatal("no route found")
	}
	for i := 0; i < 20; i++ {
		r := ComputeRoute(nodes, edges, "loc_a", "loc_z")
		if r == nil || len(r.PathIDs) != len(first.PathIDs) {
			t.Fatalf("run %d: inconsistent route %+v", i, r)
		}
		for j := range first.PathIDs {
			if r.PathIDs[j] != first.PathIDs[j] {
				t.Fatalf("run %d: path %v differs from %v", i, r.PathIDs, first.PathIDs)
			}
		}
	}
}

func TestEdgeCostKeywords(t *testing.T) {
	cases := []struct {
		kind string
		want float64
	}{
		{"road", 1.0},
		{"дорога", 1.0},
		{"path", 1.2},
		{"тропа", 1.2},
		{"лес", 1.6},
		{"река", 2.0},
		{"горный перевал", 2.2},
		{"", 1.2},
		{"что-то странное", 1.2},
	}
	for _, tc := range cases {
		if got := EdgeCost(tc.kind); got != tc.want {
			t.Errorf("EdgeCost(%q) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestEstimates(t *testing.T) {
	if got := EstimateHours(2.2); got != 3 {
		t.Errorf("EstimateHours(2.2) = %d, want 3", got)
	}
	if got := EstimateHours(0); got != 1 {
		t.Errorf("EstimateHours(0) = %d, want 1", got)
	}
	if got := EstimateStamina(2.0); got != 12 {
		t.Errorf("EstimateStamina(2.0) = %d, want 12", got)
	}
}
