package dag

import "sync"

// Graph is a collection of build steps and their ordering constraints.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects nodes and order during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order records node IDs in insertion order. Every traversal walks it so
	// results do not depend on map iteration.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	id string
	// seq is the node's position in Graph.order.
	seq int
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}

// State is the outcome of one step after an Executor run.
type State int

const (
	Pending State = iota
	Done
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "pending"
	}
}
