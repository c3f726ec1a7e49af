// Package scene models one frame of a social-interaction dataset as a graph of people.
//
// Every node is a person with a position and orientation feature, a group
// membership and a display colour. Edges are person-to-person affinities and may
// carry a learned weight.
package scene

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/fformation/dmonkit/pkg/geometry"
)

var (
	// ErrUnknownPerson is returned when an edge references a missing node
	ErrUnknownPerson = errors.New("unknown person")
	// ErrMismatchedPredictions is returned when predicted labels do not cover every person
	ErrMismatchedPredictions = errors.New("prediction count does not match people")
)

// Person is a node of the scene graph
type Person struct {
	ID         int64
	PersonNo   int
	Membership int
	Color      string
	Feature    geometry.Feature
	Timestamp  float64
}

// Edge is an undirected person pair. Weight is meaningful only when HasWeight is set.
type Edge struct {
	From      int64
	To        int64
	Weight    float64
	HasWeight bool
}

// Graph is a scene graph
type Graph struct {
	g       *simple.UndirectedGraph
	people  map[int64]Person
	weights map[[2]int64]float64
}

// New returns an empty scene graph
func New() *Graph {
	return &Graph{
		g:       simple.NewUndirectedGraph(),
		people:  make(map[int64]Person),
		weights: make(map[[2]int64]float64),
	}
}

// AddPerson adds or replaces a person
func (s *Graph) AddPerson(p Person) {
	if s.g.Node(p.ID) == nil {
		s.g.AddNode(simple.Node(p.ID))
	}
	s.people[p.ID] = p
}

// Person returns the person with id
func (s *Graph) Person(id int64) (Person, bool) {
	p, ok := s.people[id]
	return p, ok
}

// Len returns the number of people
func (s *Graph) Len() int {
	return len(s.people)
}

// Connect adds an unweighted edge between a and b
func (s *Graph) Connect(a, b int64) error {
	if err := s.setEdge(a, b); err != nil {
		return err
	}
	delete(s.weights, edgeKey(a, b))
	return nil
}

// ConnectWeighted adds an edge carrying an affinity weight
func (s *Graph) ConnectWeighted(a, b int64, w float64) error {
	if err := s.setEdge(a, b); err != nil {
		return err
	}
	s.weights[edgeKey(a, b)] = w
	return nil
}

func (s *Graph) setEdge(a, b int64) error {
	if a == b {
		return fmt.Errorf("self edge on person %d", a)
	}
	for _, id := range [2]int64{a, b} {
		if _, ok := s.people[id]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownPerson, id)
		}
	}
	s.g.SetEdge(s.g.NewEdge(simple.Node(a), simple.Node(b)))
	return nil
}

// HasEdge reports whether a and b are connected
func (s *Graph) HasEdge(a, b int64) bool {
	return s.g.HasEdgeBetween(a, b)
}

// People returns every person sorted by id
func (s *Graph) People() []Person {
	out := make([]Person, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns every edge with From < To, sorted
func (s *Graph) Edges() []Edge {
	var out []Edge
	it := s.g.Edges()
	for it.Next() {
		e := it.Edge()
		from, to := e.From().ID(), e.To().ID()
		if from > to {
			from, to = to, from
		}
		w, ok := s.weights[[2]int64{from, to}]
		out = append(out, Edge{From: from, To: to, Weight: w, HasWeight: ok})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Group is the set of people sharing a membership label
type Group struct {
	Membership int
	People     []Person
}

// Positions returns the member positions
func (g Group) Positions() []geometry.Point {
	pts := make([]geometry.Point, len(g.People))
	for i, p := range g.People {
		pts[i] = p.Feature.Position()
	}
	return pts
}

// Groups partitions the people by membership, ordered by label then id
func (s *Graph) Groups() []Group {
	byLabel := make(map[int][]Person)
	for _, p := range s.People() {
		byLabel[p.Membership] = append(byLabel[p.Membership], p)
	}

	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	groups := make([]Group, len(labels))
	for i, l := range labels {
		groups[i] = Group{Membership: l, People: byLabel[l]}
	}
	return groups
}

// Timestamp returns the timestamp of the lowest-id person, the frame this scene shows
func (s *Graph) Timestamp() float64 {
	people := s.People()
	if len(people) == 0 {
		return 0
	}
	return people[0].Timestamp
}

// Clone returns a deep copy
func (s *Graph) Clone() *Graph {
	c := s.withoutEdges()
	for _, e := range s.Edges() {
		if e.HasWeight {
			c.ConnectWeighted(e.From, e.To, e.Weight)
		} else {
			c.Connect(e.From, e.To)
		}
	}
	return c
}

func (s *Graph) withoutEdges() *Graph {
	c := New()
	for _, p := range s.people {
		c.AddPerson(p)
	}
	return c
}

// GroundTruth returns a copy with every edge removed and one unweighted edge added for
// each unordered pair of people sharing a membership label
func (s *Graph) GroundTruth() *Graph {
	gt := s.withoutEdges()
	for _, group := range s.Groups() {
		members := group.People
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				gt.Connect(members[i].ID, members[j].ID)
			}
		}
	}
	return gt
}

// WithPredictions returns a copy where the i-th person in id order takes membership
// labels[i] and the palette colour of that label
func (s *Graph) WithPredictions(labels []int, palette []string) (*Graph, error) {
	if len(labels) != len(s.people) {
		return nil, fmt.Errorf("%w: %d labels for %d people", ErrMismatchedPredictions, len(labels), len(s.people))
	}
	if len(palette) == 0 {
		return nil, errors.New("empty palette")
	}

	c := s.Clone()
	for i, p := range s.People() {
		label := labels[i]
		p.Membership = label
		p.Color = palette[((label%len(palette))+len(palette))%len(palette)]
		c.people[p.ID] = p
	}
	return c, nil
}

func edgeKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}
