package core

import "github.com/AnastasyaSeveryukhina/interval-and-networks/model"

// DefaultRadius is the proximity radius used when none is configured. It is
// expressed in the same normalized units as model.Position.
const DefaultRadius = 0.4

// InRange reports whether two positions are strictly closer than radius.
// Points exactly on the boundary are out of range.
func InRange(a, b model.Position, radius float64) bool {
	if radius <= 0 {
		return false
	}
	return a.DistanceSquaredTo(b) < radius*radius
}

// PathLength returns the summed Euclidean length of a path through the given
// positions, skipping ids with no known position. Renderers use it to scale
// the progress overlay along the route.
func PathLength(path []int, positions map[int]model.Position) float64 {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		a, okA := positions[path[i]]
		b, okB := positions[path[i+1]]
		if !okA || !okB {
			continue
		}
		total += a.DistanceTo(b)
	}
	return total
}
