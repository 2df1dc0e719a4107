package geometry

import "sync"

// Node is a placed geometry volume that owns a phase-space source. Its
// placement may be re-pointed between simulation runs (PrepareNextRun on
// the engine re-reads it) but is never mutated concurrently with event
// generation, so reads during a run are uncontended.
type Node struct {
	name string

	mu        sync.RWMutex
	transform Transform
}

// NewNode creates a node with the identity placement.
func NewNode(name string) *Node {
	return &Node{
		name:      name,
		transform: IdentityTransform(),
	}
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// CurrentTransform returns the node's current placement.
func (n *Node) CurrentTransform() Transform {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform
}

// SetTransform re-points the node's placement. Only call between runs.
func (n *Node) SetTransform(t Transform) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transform = t
}
