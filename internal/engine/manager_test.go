package engine

import (
	"sync"
	"testing"

	"github.com/satground/tourflow/internal/store"
)

func TestManagerIsolatesLearners(t *testing.T) {
	kv := store.NewInMemoryStore()
	mgr := NewManager(testCatalog(), kv, false)

	mgr.With("alice", func(e *Engine) {
		e.StartFlow("S1")
		e.NextStep()
	})
	mgr.With("bob", func(e *Engine) {
		e.StartFlow("G")
	})

	alice := mgr.State("alice")
	if alice.ActiveFlowID != "S1" || alice.ActiveStepIndex != 1 {
		t.Errorf("alice: expected S1 step 1, got %q index %d", alice.ActiveFlowID, alice.ActiveStepIndex)
	}
	bob := mgr.State("bob")
	if bob.ActiveFlowID != "G" || bob.ActiveStepIndex != 0 {
		t.Errorf("bob: expected G step 0, got %q index %d", bob.ActiveFlowID, bob.ActiveStepIndex)
	}
}

func TestManagerReusesEngineInstance(t *testing.T) {
	mgr := NewManager(testCatalog(), store.NewInMemoryStore(), false)

	var first, second *Engine
	mgr.With("alice", func(e *Engine) { first = e })
	mgr.With("alice", func(e *Engine) { second = e })
	if first != second {
		t.Error("expected the same engine instance across calls")
	}
}

func TestManagerEvictRehydratesFromStore(t *testing.T) {
	kv := store.NewInMemoryStore()
	mgr := NewManager(testCatalog(), kv, false)

	mgr.With("alice", func(e *Engine) {
		e.StartFlow("S1")
		e.NextStep()
	})
	mgr.Evict("alice")

	st := mgr.State("alice")
	if st.ActiveFlowID != "S1" || st.ActiveStepIndex != 1 {
		t.Errorf("expected rehydrated S1 step 1, got %q index %d", st.ActiveFlowID, st.ActiveStepIndex)
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	mgr := NewManager(testCatalog(), store.NewInMemoryStore(), false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				mgr.With("shared", func(e *Engine) {
					e.StartFlow("S1")
					e.NextStep()
					e.PrevStep()
				})
			}
		}()
	}
	wg.Wait()

	st := mgr.State("shared")
	if st.ActiveFlowID != "S1" || st.ActiveStepIndex != 0 {
		t.Errorf("expected S1 step 0 after concurrent churn, got %q index %d", st.ActiveFlowID, st.ActiveStepIndex)
	}
}
