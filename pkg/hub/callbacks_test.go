package hub_test

import (
	"sync"
	"testing"

	"github.com/LLIEPJIOK/service-mesh/hubclient/pkg/hub"
)

func TestCallbackMap_Order(t *testing.T) {
	m := hub.NewCallbackMap()

	var got []int
	for i := 0; i < 3; i++ {
		i := i
		m.Add("target", func(args hub.Arguments) { got = append(got, i) })
	}

	handlers, ok := m.Get("target")
	if !ok {
		t.Fatal("expected handlers for target")
	}

	for _, h := range handlers {
		h(nil)
	}

	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestCallbackMap_CaseSensitive(t *testing.T) {
	m := hub.NewCallbackMap()
	m.Add("Target", func(args hub.Arguments) {})

	if _, ok := m.Get("target"); ok {
		t.Error("targets must be case-sensitive")
	}
}

func handlerCount(m *hub.CallbackMap, target string) int {
	handlers, _ := m.Get(target)
	return len(handlers)
}

func TestCallbackMap_RemoveAndUnsubscribe(t *testing.T) {
	m := hub.NewCallbackMap()

	first := m.Add("a", func(args hub.Arguments) {})
	m.Add("a", func(args hub.Arguments) {})

	first.Unsubscribe()

	if n := handlerCount(m, "a"); n != 1 {
		t.Fatalf("expected 1 handler after unsubscribe, got %d", n)
	}

	m.Remove("a")

	if _, ok := m.Get("a"); ok {
		t.Error("expected no handlers after remove")
	}

	// Повторная отписка после Remove ничего не делает.
	first.Unsubscribe()

	late := m.Add("a", func(args hub.Arguments) {})
	first.Unsubscribe()

	if n := handlerCount(m, "a"); n != 1 {
		t.Errorf("stale subscription removed a new registration, %d left", n)
	}

	late.Unsubscribe()

	if _, ok := m.Get("a"); ok {
		t.Error("expected target to be empty")
	}
}

func TestCallbackMap_SnapshotIsStable(t *testing.T) {
	m := hub.NewCallbackMap()

	sub := m.Add("a", func(args hub.Arguments) {})
	m.Add("a", func(args hub.Arguments) {})

	snapshot, _ := m.Get("a")
	sub.Unsubscribe()
	m.Add("a", func(args hub.Arguments) {})

	if len(snapshot) != 2 {
		t.Errorf("snapshot changed after mutation: %d handlers", len(snapshot))
	}
}

func TestCallbackMap_Concurrent(t *testing.T) {
	m := hub.NewCallbackMap()

	var wg sync.WaitGroup

	for j := 0; j < 50; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := m.Add("a", func(args hub.Arguments) {})
			if handlers, ok := m.Get("a"); ok {
				for _, h := range handlers {
					h(nil)
				}
			}
			sub.Unsubscribe()
		}()
	}

	wg.Wait()

	if n := handlerCount(m, "a"); n != 0 {
		t.Errorf("expected all registrations removed, %d left", n)
	}
}
