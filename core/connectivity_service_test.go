package core

import (
	"testing"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
)

func TestLinksRespectRadiusAndFailures(t *testing.T) {
	routers := []model.Router{
		{ID: 0, Position: model.Position{X: 0, Y: 0}},
		{ID: 1, Position: model.Position{X: 0.3, Y: 0}},
		{ID: 2, Position: model.Position{X: 0.6, Y: 0}},
		{ID: 3, Position: model.Position{X: 0.1, Y: 0.1}, Failed: true},
	}
	cs := NewConnectivityService(0.4)

	links := cs.Links(routers)
	want := []Link{{A: 0, B: 1}, {A: 1, B: 2}}
	if len(links) != len(want) {
		t.Fatalf("Links = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("Links[%d] = %v, want %v", i, links[i], want[i])
		}
	}
}

func TestLinksSymmetric(t *testing.T) {
	routers := []model.Router{
		{ID: 5, Position: model.Position{X: 0.2, Y: 0.2}},
		{ID: 2, Position: model.Position{X: 0.1, Y: 0.1}},
	}
	links := NewConnectivityService(0.4).Links(routers)
	if len(links) != 1 || links[0] != NewLink(2, 5) {
		t.Fatalf("Links = %v, want [2-5]", links)
	}
	if other, ok := links[0].Other(5); !ok || other != 2 {
		t.Fatalf("Other(5) = %d, %v", other, ok)
	}
	if _, ok := links[0].Other(9); ok {
		t.Fatalf("Other(9) should report false")
	}
}

func TestSnapshotKeepsFailedNodes(t *testing.T) {
	routers := []model.Router{
		{ID: 0},
		{ID: 1, Failed: true},
	}
	nodes, links := NewConnectivityService(1).Snapshot(routers)
	if len(nodes) != 2 {
		t.Fatalf("nodes = %v, want both routers", nodes)
	}
	if len(links) != 0 {
		t.Fatalf("links = %v, want none", links)
	}
}

func TestNewConnectivityServiceDefaultsRadius(t *testing.T) {
	if cs := NewConnectivityService(0); cs.Radius != DefaultRadius {
		t.Fatalf("Radius = %v, want %v", cs.Radius, DefaultRadius)
	}
}
