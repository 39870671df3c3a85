package sim

import (
	"github.com/AnastasyaSeveryukhina/interval-and-networks/core"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
)

// Status summarises a tick for renderers.
type Status string

const (
	StatusNoPath       Status = "no_path"
	StatusStarted      Status = "started"
	StatusTransferring Status = "transferring"
	StatusComplete     Status = "complete"
)

// RouterView is the read-only router snapshot handed to renderers.
type RouterView struct {
	ID     int        `json:"id"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Failed bool       `json:"failed"`
	Role   model.Role `json:"role"`
}

// Frame is the per-tick output of the controller. It owns its slices;
// renderers may keep it across ticks.
type Frame struct {
	Tick       uint64       `json:"tick"`
	Routers    []RouterView `json:"routers"`
	Links      []core.Link  `json:"links"`
	Path       []int        `json:"path"`
	PathLength float64      `json:"path_length"`
	Progress   float64      `json:"progress"`
	Status     Status       `json:"status"`
	TransferID string       `json:"transfer_id,omitempty"`
}

// Hops returns the number of links on the path, or -1 without a path.
func (f Frame) Hops() int {
	return len(f.Path) - 1
}

func routerViews(routers []model.Router, source, destination int) []RouterView {
	views := make([]RouterView, len(routers))
	for i, r := range routers {
		role := model.RoleRouter
		switch {
		case r.ID == source:
			role = model.RoleSource
		case r.ID == destination:
			role = model.RoleDestination
		case r.Failed:
			role = model.RoleFailed
		}
		views[i] = RouterView{ID: r.ID, X: r.Position.X, Y: r.Position.Y, Failed: r.Failed, Role: role}
	}
	return views
}
