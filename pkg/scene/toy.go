package scene

import (
	"math"

	"github.com/fformation/dmonkit/pkg/geometry"
)

// ToyFrustums returns ten people in five pairs. Each pair stands one unit apart on a
// diagonal and faces each other at a different angle, and no edges are present.
func ToyFrustums() *Graph {
	pairs := []struct {
		color   string
		x, y    float64
		heading float64
		partner float64
	}{
		{"#27c7bd", 0, 0, 0, math.Pi},
		{"#01579b", 3, 3, math.Pi / 4, math.Pi + math.Pi/4},
		{"#fb8c00", 6, 6, math.Pi / 2, math.Pi + math.Pi/2},
		{"#e77865", 9, 9, -math.Pi / 3, -(math.Pi + math.Pi/3)},
		{"#cbeaad", 12, 12, -3 * math.Pi / 4, -(math.Pi + 3*math.Pi/4)},
	}

	s := New()
	for i, pair := range pairs {
		a, b := int64(2*i), int64(2*i+1)
		s.AddPerson(Person{
			ID: a, PersonNo: int(a), Membership: i, Color: pair.color,
			Feature: geometry.Feature{X: pair.x, Y: pair.y, Heading: pair.heading},
		})
		s.AddPerson(Person{
			ID: b, PersonNo: int(b), Membership: i, Color: pair.color,
			Feature: geometry.Feature{X: pair.x + 1, Y: pair.y, Heading: pair.partner},
		})
	}
	return s
}
