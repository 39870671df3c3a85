package kb

import (
	"errors"
	"testing"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
)

func newStore(t *testing.T, n int) *KnowledgeBase {
	t.Helper()
	store := NewKnowledgeBase()
	for i := 0; i < n; i++ {
		if err := store.AddRouter(model.Router{ID: i}); err != nil {
			t.Fatalf("AddRouter(%d) error: %v", i, err)
		}
	}
	return store
}

func TestAddRouterDuplicate(t *testing.T) {
	store := newStore(t, 1)
	if err := store.AddRouter(model.Router{ID: 0}); !errors.Is(err, ErrRouterExists) {
		t.Fatalf("duplicate AddRouter err = %v, want ErrRouterExists", err)
	}
}

func TestRoutersSnapshotIsCopy(t *testing.T) {
	store := newStore(t, 2)
	snap := store.Routers()
	snap[0].Failed = true

	if r, _ := store.Router(0); r.Failed {
		t.Fatalf("mutating snapshot leaked into the store")
	}
}

func TestSetFailedEmitsEventsOnChange(t *testing.T) {
	store := newStore(t, 3)
	var events []Event
	unsubscribe := store.Subscribe(func(e Event) { events = append(events, e) })

	if err := store.SetFailed(2, true); err != nil {
		t.Fatalf("SetFailed error: %v", err)
	}
	// No change, no event.
	if err := store.SetFailed(2, true); err != nil {
		t.Fatalf("SetFailed error: %v", err)
	}
	if err := store.SetFailed(2, false); err != nil {
		t.Fatalf("SetFailed error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventRouterFailed || !events[0].Router.Failed || events[0].Router.ID != 2 {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Type != EventRouterRecovered || events[1].Type.String() != "recovered" {
		t.Fatalf("second event = %+v", events[1])
	}

	unsubscribe()
	_ = store.SetFailed(1, true)
	if len(events) != 2 {
		t.Fatalf("event delivered after unsubscribe")
	}
}

func TestProtectedRoutersCannotFail(t *testing.T) {
	store := newStore(t, 4)
	store.Protect(0, 1)

	if err := store.SetFailed(0, true); !errors.Is(err, ErrProtected) {
		t.Fatalf("SetFailed(protected) err = %v, want ErrProtected", err)
	}
	if err := store.SetFailed(9, true); !errors.Is(err, ErrRouterNotFound) {
		t.Fatalf("SetFailed(missing) err = %v, want ErrRouterNotFound", err)
	}

	live := store.Candidates(false)
	if len(live) != 2 || live[0] != 2 || live[1] != 3 {
		t.Fatalf("live candidates = %v, want [2 3]", live)
	}
	_ = store.SetFailed(3, true)
	if failed := store.Candidates(true); len(failed) != 1 || failed[0] != 3 {
		t.Fatalf("failed candidates = %v, want [3]", failed)
	}
	if store.FailedCount() != 1 {
		t.Fatalf("FailedCount = %d, want 1", store.FailedCount())
	}
}
