package scene

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/fformation/dmonkit/pkg/geometry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// nodeLink is the node-link document layout used by networkx
type nodeLink struct {
	Directed   bool       `json:"directed"`
	Multigraph bool       `json:"multigraph"`
	Nodes      []jsonNode `json:"nodes"`
	Links      []jsonLink `json:"links"`
}

type jsonNode struct {
	ID         int64     `json:"id"`
	Membership int       `json:"membership"`
	Color      string    `json:"color"`
	Feats      []float64 `json:"feats"`
	PersonNo   *int      `json:"person_no,omitempty"`
	Timestamp  float64   `json:"ts"`
}

type jsonLink struct {
	Source int64    `json:"source"`
	Target int64    `json:"target"`
	Weight *float64 `json:"weight,omitempty"`
}

// Decode reads a node-link scene document. A node without person_no uses its id.
func Decode(r io.Reader) (*Graph, error) {
	var doc nodeLink
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode scene: %w", err)
	}

	s := New()
	for _, n := range doc.Nodes {
		p := Person{
			ID:         n.ID,
			PersonNo:   int(n.ID),
			Membership: n.Membership,
			Color:      n.Color,
			Feature:    geometry.FeatureFromSlice(n.Feats),
			Timestamp:  n.Timestamp,
		}
		if n.PersonNo != nil {
			p.PersonNo = *n.PersonNo
		}
		s.AddPerson(p)
	}

	for _, l := range doc.Links {
		var err error
		if l.Weight != nil {
			err = s.ConnectWeighted(l.Source, l.Target, *l.Weight)
		} else {
			err = s.Connect(l.Source, l.Target)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid link %d-%d: %w", l.Source, l.Target, err)
		}
	}
	return s, nil
}

// Encode writes the scene as a node-link document
func (s *Graph) Encode(w io.Writer) error {
	doc := nodeLink{Nodes: []jsonNode{}, Links: []jsonLink{}}
	for _, p := range s.People() {
		no := p.PersonNo
		doc.Nodes = append(doc.Nodes, jsonNode{
			ID:         p.ID,
			Membership: p.Membership,
			Color:      p.Color,
			Feats:      p.Feature.Slice(),
			PersonNo:   &no,
			Timestamp:  p.Timestamp,
		})
	}
	for _, e := range s.Edges() {
		link := jsonLink{Source: e.From, Target: e.To}
		if e.HasWeight {
			w := e.Weight
			link.Weight = &w
		}
		doc.Links = append(doc.Links, link)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Load reads a scene file
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes the scene to path, creating parent directories
func (s *Graph) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create scene directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scene file: %w", err)
	}
	defer f.Close()
	return s.Encode(f)
}
