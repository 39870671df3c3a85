package model

import "math"

// Position is a point in the normalized simulation plane. Both axes span
// [-1, 1]; renderers map it onto pixels.
type Position struct {
	X float64
	Y float64
}

// DistanceTo returns the straight-line distance between two positions.
func (p Position) DistanceTo(other Position) float64 {
	return math.Sqrt(p.DistanceSquaredTo(other))
}

// DistanceSquaredTo avoids the square root for proximity checks.
func (p Position) DistanceSquaredTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Role tags a router for display. Endpoints take precedence over Failed,
// since they never fail.
type Role string

const (
	RoleRouter      Role = "router"
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
	RoleFailed      Role = "failed"
)

// Router is a node of the simulated network. It is created once with a
// position and never destroyed; only its Failed flag changes over time.
type Router struct {
	ID       int
	Position Position

	// Failed routers take no part in the link set.
	Failed bool
}

// Live reports whether the router can carry links this tick.
func (r Router) Live() bool { return !r.Failed }
