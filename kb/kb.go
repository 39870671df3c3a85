package kb

import (
	"errors"
	"fmt"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
)

var (
	ErrRouterExists   = errors.New("router already exists")
	ErrRouterNotFound = errors.New("router not found")
	ErrProtected      = errors.New("router is protected from failure")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventRouterFailed EventType = iota
	EventRouterRecovered
)

func (t EventType) String() string {
	switch t {
	case EventRouterFailed:
		return "failed"
	case EventRouterRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when a router changes state.
type Event struct {
	Type   EventType
	Router model.Router
}

// KnowledgeBase is the in-memory router store owned by the simulation
// controller. Routers keep their insertion order, which fixes the order in
// which links are derived each tick.
//
// KnowledgeBase is not safe for concurrent use; the controller mutates it
// only from its own tick.
type KnowledgeBase struct {
	routers   []model.Router
	index     map[int]int
	protected map[int]bool

	subs map[int]func(Event)
	next int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		index:     make(map[int]int),
		protected: make(map[int]bool),
		subs:      make(map[int]func(Event)),
	}
}

// AddRouter stores a router. It returns an error if the ID already exists.
func (kb *KnowledgeBase) AddRouter(r model.Router) error {
	if _, exists := kb.index[r.ID]; exists {
		return fmt.Errorf("%w: %d", ErrRouterExists, r.ID)
	}
	kb.index[r.ID] = len(kb.routers)
	kb.routers = append(kb.routers, r)
	return nil
}

// Protect marks routers that may never be failed, such as the transfer
// endpoints.
func (kb *KnowledgeBase) Protect(ids ...int) {
	for _, id := range ids {
		kb.protected[id] = true
	}
}

// IsProtected reports whether id was passed to Protect.
func (kb *KnowledgeBase) IsProtected(id int) bool { return kb.protected[id] }

// Router returns a copy of the router with the given ID.
func (kb *KnowledgeBase) Router(id int) (model.Router, bool) {
	i, ok := kb.index[id]
	if !ok {
		return model.Router{}, false
	}
	return kb.routers[i], true
}

// Routers returns a snapshot copy of all routers in insertion order.
func (kb *KnowledgeBase) Routers() []model.Router {
	out := make([]model.Router, len(kb.routers))
	copy(out, kb.routers)
	return out
}

// Len returns the number of routers.
func (kb *KnowledgeBase) Len() int { return len(kb.routers) }

// Candidates returns, in insertion order, the IDs of unprotected routers
// whose failed flag equals failed.
func (kb *KnowledgeBase) Candidates(failed bool) []int {
	var ids []int
	for _, r := range kb.routers {
		if kb.protected[r.ID] || r.Failed != failed {
			continue
		}
		ids = append(ids, r.ID)
	}
	return ids
}

// FailedCount returns the number of routers currently failed.
func (kb *KnowledgeBase) FailedCount() int {
	n := 0
	for _, r := range kb.routers {
		if r.Failed {
			n++
		}
	}
	return n
}

// SetFailed updates a router's failed flag and notifies subscribers when the
// flag actually changes.
func (kb *KnowledgeBase) SetFailed(id int, failed bool) error {
	i, ok := kb.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrRouterNotFound, id)
	}
	if failed && kb.protected[id] {
		return fmt.Errorf("%w: %d", ErrProtected, id)
	}
	if kb.routers[i].Failed == failed {
		return nil
	}
	kb.routers[i].Failed = failed

	event := Event{Type: EventRouterRecovered, Router: kb.routers[i]}
	if failed {
		event.Type = EventRouterFailed
	}
	for _, key := range kb.subscriberKeys() {
		kb.subs[key](event)
	}
	return nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	key := kb.next
	kb.next++
	kb.subs[key] = fn
	return func() { delete(kb.subs, key) }
}

// subscriberKeys returns keys in registration order so notification order is
// stable.
func (kb *KnowledgeBase) subscriberKeys() []int {
	keys := make([]int, 0, len(kb.subs))
	for k := 0; k < kb.next; k++ {
		if _, ok := kb.subs[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}
