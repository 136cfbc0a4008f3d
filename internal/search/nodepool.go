package search

import (
	"sync"

	"k8s.io/klog/v2"

	"github.com/sente-go/sente/internal/ai"
)

// NodePool recycles Node storage for one Player. It grows on demand and never
// shrinks; freed subtrees go back to the free list. Nodes are only released
// inside a paused section with no workers running, so no released node can
// still be referenced by a descent.
type NodePool struct {
	service ai.InferenceService

	mu        sync.Mutex
	free      []*Node
	inUse     map[*Node]struct{}
	allocated int
}

// NewNodePool returns an empty pool whose nodes evaluate through service.
func NewNodePool(service ai.InferenceService) *NodePool {
	return &NodePool{
		service: service,
		inUse:   make(map[*Node]struct{}),
	}
}

// get hands out a reset node, allocating when the free list is empty.
func (p *NodePool) get() *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n *Node
	if len(p.free) > 0 {
		n = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
	} else {
		n = &Node{pool: p, evaluator: ai.NewEvaluator(p.service)}
		p.allocated++
		if klog.V(2).Enabled() && p.allocated%4096 == 0 {
			klog.Infof("node pool grew to %d nodes", p.allocated)
		}
	}
	p.inUse[n] = struct{}{}
	return n
}

// Release returns root and its whole subtree to the free list. The walk uses
// an explicit stack so the depth of the freed tree never hits the goroutine
// stack.
func (p *NodePool) Release(root *Node) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range n.children {
			stack = append(stack, c)
		}
		n.reset()
		delete(p.inUse, n)
		p.free = append(p.free, n)
	}
}

// InUse returns the number of nodes currently handed out.
func (p *NodePool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

// Allocated returns the total number of nodes ever created.
func (p *NodePool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}
