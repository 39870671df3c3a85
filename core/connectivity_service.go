package core

import "github.com/AnastasyaSeveryukhina/interval-and-networks/model"

// ConnectivityService derives the link set for one tick from router
// positions and failed flags. Links are never persisted: every call starts
// from scratch.
type ConnectivityService struct {
	// Radius is the proximity radius; two live routers strictly closer than
	// this are linked.
	Radius float64
}

func NewConnectivityService(radius float64) *ConnectivityService {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &ConnectivityService{Radius: radius}
}

// Links returns every link between live routers within Radius. The order is
// deterministic: for each router i (in slice order) its links to earlier
// routers j < i, which is also the adjacency order Topology uses for
// tie-breaking.
func (cs *ConnectivityService) Links(routers []model.Router) []Link {
	var links []Link
	for i := range routers {
		if routers[i].Failed {
			continue
		}
		for j := 0; j < i; j++ {
			if routers[j].Failed {
				continue
			}
			if InRange(routers[i].Position, routers[j].Position, cs.Radius) {
				links = append(links, NewLink(routers[i].ID, routers[j].ID))
			}
		}
	}
	return links
}

// Snapshot builds the node and link sets Topology.Rebuild expects. Failed
// routers stay in the node set; they simply have no links.
func (cs *ConnectivityService) Snapshot(routers []model.Router) ([]int, []Link) {
	nodes := make([]int, 0, len(routers))
	for _, r := range routers {
		nodes = append(nodes, r.ID)
	}
	return nodes, cs.Links(routers)
}
