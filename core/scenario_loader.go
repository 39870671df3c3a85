package core

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
)

// layoutJSON is the on-disk shape of an explicit router layout.
type layoutJSON struct {
	Routers []routerJSON `json:"routers"`
}

type routerJSON struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// LoadLayout reads an explicit router layout, replacing the random initial
// placement. Routers are returned ordered by id; ids must be exactly
// 0..n-1 and positions must lie in [-1, 1]².
func LoadLayout(r io.Reader) ([]model.Router, error) {
	var payload layoutJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadLayout: decode failed: %w", err)
	}
	if len(payload.Routers) == 0 {
		return nil, fmt.Errorf("LoadLayout: no routers")
	}

	routers := make([]model.Router, 0, len(payload.Routers))
	for _, rj := range payload.Routers {
		if rj.X < -1 || rj.X > 1 || rj.Y < -1 || rj.Y > 1 {
			return nil, fmt.Errorf("LoadLayout: router %d at (%g, %g) outside [-1, 1]", rj.ID, rj.X, rj.Y)
		}
		routers = append(routers, model.Router{
			ID:       rj.ID,
			Position: model.Position{X: rj.X, Y: rj.Y},
		})
	}
	sort.Slice(routers, func(i, j int) bool { return routers[i].ID < routers[j].ID })
	for i, r := range routers {
		if r.ID != i {
			return nil, fmt.Errorf("LoadLayout: router ids must be 0..%d, found %d at position %d", len(routers)-1, r.ID, i)
		}
	}
	return routers, nil
}
