package scene

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fformation/dmonkit/pkg/geometry"
)

// createTestScene builds six people: a triad (0,1,2), a pair (3,4) and a singleton (5)
func createTestScene() *Graph {
	s := New()
	labels := []int{0, 0, 0, 1, 1, 2}
	for i, l := range labels {
		s.AddPerson(Person{
			ID:         int64(i),
			PersonNo:   i + 1,
			Membership: l,
			Color:      "#000000",
			Feature:    geometry.Feature{X: float64(i), Y: float64(i % 2)},
			Timestamp:  12.5,
		})
	}
	s.ConnectWeighted(0, 3, 0.2)
	s.ConnectWeighted(1, 2, 0.9)
	s.Connect(4, 5)
	return s
}

func edgeSet(edges []Edge) map[[2]int64]bool {
	out := make(map[[2]int64]bool, len(edges))
	for _, e := range edges {
		out[[2]int64{e.From, e.To}] = true
	}
	return out
}

func TestConnectValidation(t *testing.T) {
	s := createTestScene()
	if err := s.Connect(0, 99); !errors.Is(err, ErrUnknownPerson) {
		t.Errorf("Expected ErrUnknownPerson, got %v", err)
	}
	if err := s.Connect(1, 1); err == nil {
		t.Error("Expected self edge to be rejected")
	}
}

func TestEdgesCarryWeights(t *testing.T) {
	s := createTestScene()
	edges := s.Edges()
	if len(edges) != 3 {
		t.Fatalf("Expected 3 edges, got %d", len(edges))
	}

	if e := edges[0]; e.From != 0 || e.To != 3 || !e.HasWeight || e.Weight != 0.2 {
		t.Errorf("Unexpected first edge %+v", e)
	}
	if e := edges[2]; e.From != 4 || e.To != 5 || e.HasWeight {
		t.Errorf("Unexpected unweighted edge %+v", e)
	}
}

func TestGroundTruth(t *testing.T) {
	s := createTestScene()
	gt := s.GroundTruth()

	edges := edgeSet(gt.Edges())
	want := [][2]int64{{0, 1}, {0, 2}, {1, 2}, {3, 4}}
	if len(edges) != len(want) {
		t.Fatalf("Expected %d ground truth edges, got %d: %v", len(want), len(edges), gt.Edges())
	}
	for _, w := range want {
		if !edges[w] {
			t.Errorf("Missing ground truth edge %v", w)
		}
	}

	for _, e := range gt.Edges() {
		a, _ := gt.Person(e.From)
		b, _ := gt.Person(e.To)
		if a.Membership != b.Membership {
			t.Errorf("Edge %d-%d crosses memberships", e.From, e.To)
		}
		if e.HasWeight {
			t.Errorf("Ground truth edge %d-%d should be unweighted", e.From, e.To)
		}
	}

	if len(s.Edges()) != 3 {
		t.Error("GroundTruth must not modify the source graph")
	}
}

func TestGroundTruthIdempotent(t *testing.T) {
	once := createTestScene().GroundTruth()
	twice := once.GroundTruth()

	a, b := edgeSet(once.Edges()), edgeSet(twice.Edges())
	if len(a) != len(b) {
		t.Fatalf("Edge sets differ in size: %d vs %d", len(a), len(b))
	}
	for e := range a {
		if !b[e] {
			t.Errorf("Edge %v missing after second derivation", e)
		}
	}
}

func TestToyFrustumsGroundTruth(t *testing.T) {
	toy := ToyFrustums()
	if toy.Len() != 10 {
		t.Fatalf("Expected 10 people, got %d", toy.Len())
	}
	if len(toy.Edges()) != 0 {
		t.Errorf("Expected the toy scene to start unconnected")
	}

	gt := toy.GroundTruth()
	edges := gt.Edges()
	if len(edges) != 5 {
		t.Fatalf("Expected exactly 5 pairs, got %d", len(edges))
	}
	for _, e := range edges {
		if e.To != e.From+1 || e.From%2 != 0 {
			t.Errorf("Unexpected pair %d-%d", e.From, e.To)
		}
	}
}

func TestGroups(t *testing.T) {
	groups := createTestScene().Groups()
	if len(groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(groups))
	}
	sizes := []int{3, 2, 1}
	for i, g := range groups {
		if len(g.People) != sizes[i] {
			t.Errorf("Group %d: expected %d people, got %d", g.Membership, sizes[i], len(g.People))
		}
		if len(g.Positions()) != sizes[i] {
			t.Errorf("Group %d: positions do not match members", g.Membership)
		}
	}
}

func TestWithPredictions(t *testing.T) {
	s := createTestScene()
	palette := []string{"#aaaaaa", "#bbbbbb"}

	pred, err := s.WithPredictions([]int{1, 1, 0, 0, 2, 2}, palette)
	if err != nil {
		t.Fatalf("WithPredictions failed: %v", err)
	}

	p0, _ := pred.Person(0)
	if p0.Membership != 1 || p0.Color != "#bbbbbb" {
		t.Errorf("Unexpected prediction for person 0: %+v", p0)
	}
	p4, _ := pred.Person(4)
	if p4.Color != "#aaaaaa" {
		t.Errorf("Expected palette to wrap, got %s", p4.Color)
	}
	if len(pred.Edges()) != 3 {
		t.Errorf("Predictions should keep the learned edges")
	}

	orig, _ := s.Person(0)
	if orig.Membership != 0 {
		t.Error("WithPredictions must not modify the source graph")
	}

	if _, err := s.WithPredictions([]int{0}, palette); !errors.Is(err, ErrMismatchedPredictions) {
		t.Errorf("Expected ErrMismatchedPredictions, got %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := createTestScene()
	path := filepath.Join(t.TempDir(), "scenes", "frame_0.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != s.Len() {
		t.Errorf("Expected %d people, got %d", s.Len(), loaded.Len())
	}
	if len(loaded.Edges()) != 3 {
		t.Errorf("Expected 3 edges, got %d", len(loaded.Edges()))
	}
	if loaded.Timestamp() != 12.5 {
		t.Errorf("Expected timestamp 12.5, got %v", loaded.Timestamp())
	}
	p2, _ := loaded.Person(2)
	if p2.PersonNo != 3 || p2.Feature.X != 2 {
		t.Errorf("Unexpected person after round trip: %+v", p2)
	}
}

func TestDecodeNetworkxDocument(t *testing.T) {
	doc := `{"directed": false, "multigraph": false, "graph": {},
	  "nodes": [
	    {"membership": 0, "color": "#38761d", "feats": [1.0, 2.0, 0.5, 0.1], "ts": 3.0, "id": 1},
	    {"membership": 0, "color": "#38761d", "feats": [1.5, 2.0, 3.1, 0.0], "person_no": 7, "ts": 3.0, "id": 2}
	  ],
	  "links": [{"weight": 0.4, "source": 1, "target": 2}]}`

	s, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	p1, _ := s.Person(1)
	if p1.PersonNo != 1 || p1.Feature.Offset != 0.1 {
		t.Errorf("Unexpected person 1: %+v", p1)
	}
	p2, _ := s.Person(2)
	if p2.PersonNo != 7 {
		t.Errorf("Expected person_no 7, got %d", p2.PersonNo)
	}
	if e := s.Edges(); len(e) != 1 || e[0].Weight != 0.4 {
		t.Errorf("Unexpected edges %+v", e)
	}

	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"weight"`) || !strings.Contains(buf.String(), "0.4") {
		t.Errorf("Expected encoded weight, got %s", buf.String())
	}

	if _, err := Decode(strings.NewReader(`{"nodes": [], "links": [{"source": 1, "target": 2}]}`)); err == nil {
		t.Error("Expected dangling link to fail")
	}
}
