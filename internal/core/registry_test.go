package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestRegistryCreateUniqueCodes(t *testing.T) {
	reg := NewRegistry(6)

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		room, err := reg.Create("host", "")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if _, dup := seen[room.ID]; dup {
			t.Fatalf("duplicate room code %q", room.ID)
		}
		seen[room.ID] = struct{}{}
	}

	if reg.Len() != 500 {
		t.Fatalf("expected 500 live rooms, got %d", reg.Len())
	}
}

func TestRegistryGetUnknownRoom(t *testing.T) {
	reg := NewRegistry(6)

	if _, err := reg.Get("000000"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := reg.Snapshot("000000"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound from snapshot, got %v", err)
	}
}

func TestRegistryGetTrimsCode(t *testing.T) {
	reg := NewRegistry(6)
	room, err := reg.Create("", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := reg.Get("  " + room.ID + " ")
	if err != nil {
		t.Fatalf("get with padded code: %v", err)
	}
	if got.ID != room.ID {
		t.Fatalf("expected room %q, got %q", room.ID, got.ID)
	}
}

func TestRegistryAppendPreservesJoinOrder(t *testing.T) {
	reg := NewRegistry(6)
	room, err := reg.Create("host", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	names := []string{"Aigerim", "Bekzat", "Dana"}
	for i, name := range names {
		if _, err := reg.AppendPlayer(room.ID, Player{ID: fmt.Sprintf("p%d", i), Name: name}, nil); err != nil {
			t.Fatalf("append %s: %v", name, err)
		}
	}

	state, err := reg.Snapshot(room.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(state.Players) != len(names) {
		t.Fatalf("expected %d players, got %d", len(names), len(state.Players))
	}
	for i, name := range names {
		if state.Players[i].Name != name {
			t.Fatalf("player %d: expected %q, got %q", i, name, state.Players[i].Name)
		}
	}
}

func TestRegistryConcurrentJoinsAllRetained(t *testing.T) {
	reg := NewRegistry(6)
	room, err := reg.Create("host", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const joiners = 64
	var wg sync.WaitGroup
	wg.Add(joiners)
	for i := 0; i < joiners; i++ {
		go func(i int) {
			defer wg.Done()
			p := Player{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("player-%d", i)}
			if _, err := reg.AppendPlayer(room.ID, p, nil); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	state, err := reg.Snapshot(room.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(state.Players) != joiners {
		t.Fatalf("expected %d players, got %d", joiners, len(state.Players))
	}

	ids := make(map[string]struct{}, joiners)
	for _, p := range state.Players {
		if _, dup := ids[p.ID]; dup {
			t.Fatalf("player %q appended twice", p.ID)
		}
		ids[p.ID] = struct{}{}
	}
}

func TestRegistryAppendNotifyOrderMatchesSequence(t *testing.T) {
	reg := NewRegistry(6)
	room, err := reg.Create("host", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// notify runs under the room lock, so the recorded order must match the
	// accepted append order even under contention.
	var mu sync.Mutex
	var notified []string

	const joiners = 32
	var wg sync.WaitGroup
	wg.Add(joiners)
	for i := 0; i < joiners; i++ {
		go func(i int) {
			defer wg.Done()
			p := Player{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("player-%d", i)}
			_, err := reg.AppendPlayer(room.ID, p, func(st RoomState) {
				mu.Lock()
				notified = append(notified, st.Players[len(st.Players)-1].ID)
				mu.Unlock()
			})
			if err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	state, err := reg.Snapshot(room.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(notified) != joiners {
		t.Fatalf("expected %d notifications, got %d", joiners, len(notified))
	}
	for i, p := range state.Players {
		if notified[i] != p.ID {
			t.Fatalf("notification %d: expected %q, got %q", i, p.ID, notified[i])
		}
	}
}

func TestRegistryStartTransition(t *testing.T) {
	reg := NewRegistry(6)
	room, err := reg.Create("host", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	state, err := reg.Start(room.ID, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.Status != StatusStarted {
		t.Fatalf("expected started status, got %q", state.Status)
	}

	if _, err := reg.Start(room.ID, nil); !errors.Is(err, ErrRoomStarted) {
		t.Fatalf("expected ErrRoomStarted on repeat start, got %v", err)
	}

	// Late joiners are refused once the quiz is running.
	if _, err := reg.AppendPlayer(room.ID, Player{ID: "late", Name: "late"}, nil); !errors.Is(err, ErrRoomStarted) {
		t.Fatalf("expected ErrRoomStarted on late join, got %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry(6)
	room, err := reg.Create("host", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reg.Remove(room.ID)
	if _, err := reg.Get(room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound after remove, got %v", err)
	}
	reg.Remove(room.ID) // removing twice is a no-op
}
