package scheduler

import (
	"sync/atomic"

	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/job"
)

// node is a single vertex of the execution graph: one job plus its
// scheduling state.
type node struct {
	job *job.Job

	// deps holds the predecessor nodes (must complete first).
	deps map[string]*node
	// dependents holds the successor nodes.
	dependents map[string]*node

	// depCount is the number of unmet predecessors.
	depCount atomic.Int32
	// state transitions Pending → Running → terminal, via CAS so a node
	// is claimed by exactly one of a worker and a cancellation sweep.
	state atomic.Int32
	// err is the terminal error. Written before the node's WaitGroup slot
	// is released, read only after Wait returns.
	err error
}

func (n *node) setState(s State) {
	n.state.Store(int32(s))
}

func (n *node) claim(from, to State) bool {
	return n.state.CompareAndSwap(int32(from), int32(to))
}

func (n *node) getState() State {
	return State(n.state.Load())
}

// buildGraph computes the closure of jobs reachable from target through
// `after` edges and links predecessor/dependent maps. A predecessor URI
// with no registered job is a ConfigurationError.
func buildGraph(reg *job.Registry, target job.URI) (map[string]*node, *node, error) {
	targetJob, ok := reg.Get(target)
	if !ok {
		return nil, nil, &component.ConfigurationError{
			Subject: "job " + target.String(),
			Reason:  "not registered",
		}
	}

	nodes := make(map[string]*node)
	add := func(j *job.Job) *node {
		key := j.URI().String()
		if n, exists := nodes[key]; exists {
			return n
		}
		n := &node{
			job:        j,
			deps:       make(map[string]*node),
			dependents: make(map[string]*node),
		}
		nodes[key] = n
		return n
	}

	root := add(targetJob)
	stack := []*node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, predURI := range n.job.After {
			predJob, ok := reg.Get(predURI)
			if !ok {
				return nil, nil, &component.ConfigurationError{
					Subject: "job " + n.job.URI().String(),
					Reason:  "unknown predecessor " + predURI.String(),
				}
			}
			key := predURI.String()
			pred, seen := nodes[key]
			if !seen {
				pred = add(predJob)
				stack = append(stack, pred)
			}
			if _, linked := n.deps[key]; !linked {
				n.deps[key] = pred
				pred.dependents[n.job.URI().String()] = n
			}
		}
	}

	for _, n := range nodes {
		n.depCount.Store(int32(len(n.deps)))
	}
	return nodes, root, nil
}

// detectCycles runs a depth-first search over predecessor edges with the
// classic temporary/permanent marking. The first node seen twice on the
// recursion stack names the cycle.
func detectCycles(nodes map[string]*node) error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(key string, n *node) error
	visit = func(key string, n *node) error {
		if permanent[key] {
			return nil
		}
		if temporary[key] {
			return &CyclicDependencyError{URI: n.job.URI()}
		}
		temporary[key] = true
		for depKey, dep := range n.deps {
			if err := visit(depKey, dep); err != nil {
				return err
			}
		}
		delete(temporary, key)
		permanent[key] = true
		return nil
	}

	for key, n := range nodes {
		if !permanent[key] {
			if err := visit(key, n); err != nil {
				return err
			}
		}
	}
	return nil
}
