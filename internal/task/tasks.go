package task

import (
	"sync"

	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// Tasks is the orchestrator's per-process registry of in-flight queries: a
// QueryId maps to the inbox of the single goroutine currently running that
// query's Task. Only the dispatch loop writes to it; Run deletes its own
// entry when it exits.
type Tasks struct {
	mu   sync.Mutex
	byID map[types.QueryId]*Task
}

// NewTasks returns an empty registry.
func NewTasks() *Tasks {
	return &Tasks{byID: make(map[types.QueryId]*Task)}
}

// Register adds t under its query id so inbound NodeResponses can be
// routed to it.
func (ts *Tasks) Register(t *Task) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.byID[t.ID()] = t
}

// Deregister removes a task once it has finished running.
func (ts *Tasks) Deregister(id types.QueryId) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.byID, id)
}

// Deliver routes a NodeResponse to the task owning id, returning false if
// no such task is currently registered (the worker replied after the task
// already gave up, or to an id that was never dispatched).
func (ts *Tasks) Deliver(id types.QueryId, resp NodeResponse) bool {
	ts.mu.Lock()
	t, ok := ts.byID[id]
	ts.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case t.Inbox() <- resp:
		return true
	default:
		return false
	}
}

// Len reports how many tasks are currently registered.
func (ts *Tasks) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.byID)
}

// GC drops any entry whose Task has finished running (the task exited but,
// for some reason, was never explicitly deregistered). It is invoked on the
// orchestrator's 60-second sweep as a backstop; the normal path is the
// explicit Deregister a finished Run performs.
func (ts *Tasks) GC() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	dropped := 0
	for id, t := range ts.byID {
		if t.Done() {
			delete(ts.byID, id)
			dropped++
		}
	}
	return dropped
}
