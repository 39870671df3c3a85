package sim

import "github.com/AnastasyaSeveryukhina/interval-and-networks/model"

// RandomLayout places n routers with ids 0..n-1 uniformly in [-1, 1]².
func RandomLayout(n int, rng Rand) []model.Router {
	routers := make([]model.Router, n)
	for i := range routers {
		routers[i] = model.Router{
			ID: i,
			Position: model.Position{
				X: rng.Float64()*2 - 1,
				Y: rng.Float64()*2 - 1,
			},
		}
	}
	return routers
}
