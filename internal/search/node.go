// Package search implements the parallel best-first tree search: pooled nodes
// with PUCB/UCB1 selection and policy-ordered expansion, and the Player that
// orchestrates the worker pool around game events.
package search

import (
	"sync"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sente-go/sente/internal/ai"
	"github.com/sente-go/sente/internal/board"
)

const (
	// pucbBase and pucbInit parameterize the exploration coefficient
	// c_puct = log((1+N+base)/base) + init.
	pucbBase = 19652
	pucbInit = 1.25

	// unevaluatedPriority is returned for children never backpropagated into,
	// so they are only chosen when nothing else has been evaluated.
	unevaluatedPriority = -99

	// noiseCutoff disables Gumbel noise for nodes with few candidates.
	noiseCutoff = 4
)

// Policy is one expansion candidate of a node: the move, its prior, and the
// number of times the parent's scheduler has picked it (distinct from the
// child node's own visit count).
type Policy struct {
	Pos              board.Pos
	Prior            float32
	VisitsFromParent int
}

// Settings are the root-only search knobs. At deeper levels every descent
// reverts to PUCB with no width cap, temperature 1 and no noise.
type Settings struct {
	Equally      bool
	UseUcb1      bool
	Width        int
	Temperature  float32
	Noise        float32
	EvalLeafOnly bool
}

// NodeResult is the outcome of one descent step. Next is nil when the step
// terminated at a leaf; Playouts is 1 for a leaf evaluation, 0 to keep
// descending, and -1 when the caller must cancel the parent's first-visit
// value from every ancestor (eval-leaf-only branching).
type NodeResult struct {
	Next     *Node
	Value    float32
	Playouts int
}

// Node is one search-tree position. The structural state (children, policies,
// expansion queue) is guarded by evalMu; the statistics by valueMu, so
// backpropagation runs concurrently with selection elsewhere on the tree.
// Nodes are pooled: see NodePool.
type Node struct {
	pool *NodePool

	evalMu      sync.RWMutex
	board       *board.Board
	evaluator   *ai.Evaluator
	pos         board.Pos
	color       board.Color
	captured    int
	prior       float32
	children    map[int]*Node
	policies    []Policy
	expandQueue []int // indices into policies, FIFO
	expandSet   map[int]struct{}

	valueMu  sync.RWMutex
	visits   int
	playouts int
	valueSum float64
	count    int
}

// initRoot makes the node the root of a fresh tree: an unplayed position with
// color White, so the first candidate move is Black's.
func (n *Node) initRoot(b *board.Board) {
	n.board = b
	n.pos = board.PassPos
	n.color = board.White
	n.captured = 0
	n.prior = 0
}

// initChild makes the node the child of parent reached by playing pos.
func (n *Node) initChild(parent *Node, pos board.Pos, prior float32) {
	n.board = parent.board.Copy()
	n.color = parent.color.Opposite()
	n.pos = pos
	n.prior = prior
	n.captured = n.board.Play(pos.X(), pos.Y(), n.color)
}

// Pos returns the move that created this node.
func (n *Node) Pos() board.Pos { return n.pos }

// Color returns the color of this node's own move.
func (n *Node) Color() board.Color { return n.color }

// Captured returns the stones captured by this node's move.
func (n *Node) Captured() int { return n.captured }

// Prior returns the policy prior this node was expanded with.
func (n *Node) Prior() float32 { return n.prior }

// Board returns the node's position. The caller must not mutate it while
// search is running.
func (n *Node) Board() *board.Board { return n.board }

// Visits returns the number of Evaluate calls that returned a result here.
func (n *Node) Visits() int {
	n.valueMu.RLock()
	defer n.valueMu.RUnlock()
	return n.visits
}

// Playouts returns the number of leaf evaluations at or below this node.
func (n *Node) Playouts() int {
	n.valueMu.RLock()
	defer n.valueMu.RUnlock()
	return n.playouts
}

// Count returns the number of backpropagations that reached this node.
func (n *Node) Count() int {
	n.valueMu.RLock()
	defer n.valueMu.RUnlock()
	return n.count
}

// MeanValue returns the mean backpropagated value, positive when Black is
// ahead; 0 before the first backpropagation.
func (n *Node) MeanValue() float32 {
	n.valueMu.RLock()
	defer n.valueMu.RUnlock()
	return n.meanValueLocked()
}

func (n *Node) meanValueLocked() float32 {
	if n.count == 0 {
		return 0
	}
	return float32(n.valueSum / float64(n.count))
}

// ValueLCB returns the lower confidence bound used for principal-variation
// and robust-move selection: Q discounted by the visit margin, expressed like
// every side-relative quantity by flipping sign with the node's color.
func (n *Node) ValueLCB() float32 {
	n.valueMu.RLock()
	defer n.valueMu.RUnlock()
	margin := 1.96 * 0.5 / math32.Sqrt(float32(n.visits)+1)
	lcb := float32(n.color) * (n.meanValueLocked() - margin)
	return math32.Max(-1, math32.Min(1, lcb))
}

// UpdateValue adds one backpropagated value.
func (n *Node) UpdateValue(v float32) {
	n.valueMu.Lock()
	n.valueSum += float64(v)
	n.count++
	n.valueMu.Unlock()
}

// CancelValue removes a previously added value (eval-leaf-only branching).
func (n *Node) CancelValue(v float32) {
	n.valueMu.Lock()
	n.valueSum -= float64(v)
	n.count--
	n.valueMu.Unlock()
}

// AddPlayouts credits leaf evaluations below this node.
func (n *Node) AddPlayouts(k int) {
	n.valueMu.Lock()
	n.playouts += k
	n.valueMu.Unlock()
}

func (n *Node) addVisit() int {
	n.valueMu.Lock()
	n.visits++
	v := n.visits
	n.valueMu.Unlock()
	return v
}

// EvaluatorValue returns the raw network value last produced for this node.
func (n *Node) EvaluatorValue() float32 {
	return n.evaluator.Value()
}

// Policies returns the node's expansion candidates.
func (n *Node) Policies() []Policy {
	n.evalMu.RLock()
	defer n.evalMu.RUnlock()
	return append([]Policy(nil), n.policies...)
}

// GetChild returns the child reached by playing pos, or nil.
func (n *Node) GetChild(pos board.Pos) *Node {
	n.evalMu.RLock()
	defer n.evalMu.RUnlock()
	return n.children[n.childKey(pos)]
}

// Children returns a snapshot of the expanded children.
func (n *Node) Children() []*Node {
	n.evalMu.RLock()
	defer n.evalMu.RUnlock()
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	return out
}

func (n *Node) childKey(pos board.Pos) int {
	return pos.Y()*n.board.Width() + pos.X()
}

// ensureEvaluated runs the network for this node if it never has been,
// without counting a visit. Used when reporting on a root nobody searched.
func (n *Node) ensureEvaluated() {
	n.evalMu.Lock()
	defer n.evalMu.Unlock()
	n.evaluateLocked()
}

func (n *Node) evaluateLocked() {
	if n.evaluator.Evaluated() {
		return
	}
	n.evaluator.Evaluate(n.board, n.color.Opposite())
	entries := n.evaluator.Policies()
	n.policies = n.policies[:0]
	for _, e := range entries {
		n.policies = append(n.policies, Policy{Pos: e.Pos, Prior: e.Prob})
	}
}

// Evaluate performs one descent step at this node. The first visit evaluates
// the network and reports the leaf value; later visits either materialize a
// new child from the expansion queue or pick the best existing child by the
// configured selection rule.
func (n *Node) Evaluate(s Settings, root bool) NodeResult {
	if !root {
		s = Settings{Temperature: 1, EvalLeafOnly: s.EvalLeafOnly}
	}

	n.evalMu.Lock()
	defer n.evalMu.Unlock()
	n.evaluateLocked()

	visits := n.addVisit()
	if visits == 1 || len(n.policies) == 0 {
		// First visit, or terminal: report the network value as the leaf.
		return NodeResult{Value: n.evaluator.Value(), Playouts: 1}
	}

	// Expansion: schedule the best-priority policy entry while the sibling
	// budget is open.
	registered := len(n.children) + len(n.expandQueue)
	if registered < len(n.policies) && (s.Width <= 0 || registered < s.Width) {
		pick := n.pickExpansion(s)
		if pick >= 0 {
			n.policies[pick].VisitsFromParent++
			key := n.childKey(n.policies[pick].Pos)
			if _, inFlight := n.expandSet[key]; !inFlight && n.children[key] == nil {
				if n.expandSet == nil {
					n.expandSet = make(map[int]struct{})
				}
				n.expandSet[key] = struct{}{}
				n.expandQueue = append(n.expandQueue, pick)
			}
		}
	}

	// Materialize the oldest queued candidate, if any.
	if len(n.expandQueue) > 0 {
		pick := n.expandQueue[0]
		n.expandQueue = n.expandQueue[1:]
		entry := n.policies[pick]
		delete(n.expandSet, n.childKey(entry.Pos))

		child := n.pool.get()
		child.initChild(n, entry.Pos, entry.Prior)
		first := len(n.children) == 0
		if n.children == nil {
			n.children = make(map[int]*Node)
		}
		n.children[n.childKey(entry.Pos)] = child
		playouts := 0
		if s.EvalLeafOnly && first {
			// The parent stops being a leaf: the caller cancels the parent's
			// first-visit value from every ancestor so only leaves feed Q.
			playouts = -1
		}
		return NodeResult{Next: child, Playouts: playouts}
	}

	// Expansion width reached: descend into the best existing child.
	best := n.selectChild(s)
	if best == nil {
		return NodeResult{Value: n.evaluator.Value(), Playouts: 1}
	}
	for i := range n.policies {
		if n.policies[i].Pos == best.pos {
			n.policies[i].VisitsFromParent++
			break
		}
	}
	return NodeResult{Next: best}
}

// pickExpansion returns the index of the policy entry to schedule next:
// unregistered candidates first (expanded or queued siblings rank below every
// unregistered one, in every mode), ordered by the temperature- and
// noise-adjusted prior.
func (n *Node) pickExpansion(s Settings) int {
	winChance := n.MeanValue()*float32(n.color.Opposite())/2 + 0.5
	temperature := s.Temperature
	if temperature < 0.1 {
		temperature = 0.1
	}
	power := winChance + (1/temperature)*(1-winChance)

	noise := s.Noise
	if len(n.policies) <= noiseCutoff {
		noise = 0
	}
	gumbel := distuv.GumbelRight{Mu: 0, Beta: float64(noise)}

	best, bestType := -1, -1
	bestPriority := math32.Inf(-1)
	for i := range n.policies {
		entry := &n.policies[i]
		key := n.childKey(entry.Pos)
		entryType := 1
		if n.children[key] != nil {
			entryType = 0
		} else if _, inFlight := n.expandSet[key]; inFlight {
			entryType = 0
		}
		priority := math32.Pow(entry.Prior, power)
		if noise > 0 {
			priority *= math32.Exp(float32(gumbel.Rand()))
		}
		if entryType > bestType || (entryType == bestType && priority > bestPriority) {
			best, bestType, bestPriority = i, entryType, priority
		}
	}
	return best
}

// selectChild applies the configured selection rule over the expanded
// children. N is this node's descended count.
func (n *Node) selectChild(s Settings) *Node {
	if len(n.children) == 0 {
		return nil
	}
	bigN := float32(n.Visits())
	var best *Node
	bestPriority := math32.Inf(-1)
	for _, c := range n.children {
		priority := n.childPriority(c, bigN, s)
		if priority > bestPriority {
			best, bestPriority = c, priority
		}
	}
	return best
}

func (n *Node) childPriority(c *Node, bigN float32, s Settings) float32 {
	c.valueMu.RLock()
	visits, count := c.visits, c.count
	mean := c.meanValueLocked()
	c.valueMu.RUnlock()
	if count == 0 {
		return unevaluatedPriority
	}
	q := mean * float32(c.color)
	switch {
	case s.Equally:
		return 1 / (float32(visits) + 1 - 0.5*q)
	case s.UseUcb1:
		return q + 0.5*math32.Sqrt(math32.Log(bigN)/(float32(visits)+1))
	default:
		cPuct := math32.Log((1+bigN+pucbBase)/pucbBase) + pucbInit
		return q + 2*cPuct*c.prior*math32.Sqrt(bigN)/(1+float32(visits))
	}
}

// GetVariations returns the principal variation: this node's own move followed
// by the most-visited child's, recursively.
func (n *Node) GetVariations() []board.Pos {
	out := []board.Pos{n.pos}
	node := n
	for {
		children := node.Children()
		var best *Node
		bestVisits := -1
		for _, c := range children {
			if v := c.Visits(); v > bestVisits {
				best, bestVisits = c, v
			}
		}
		if best == nil {
			return out
		}
		out = append(out, best.pos)
		node = best
	}
}

// reset returns the node to its pooled state.
func (n *Node) reset() {
	n.board = nil
	n.pos = board.PassPos
	n.color = board.Empty
	n.captured = 0
	n.prior = 0
	n.children = nil
	n.policies = n.policies[:0]
	n.expandQueue = n.expandQueue[:0]
	n.expandSet = nil
	n.evaluator.Reset()
	n.visits = 0
	n.playouts = 0
	n.valueSum = 0
	n.count = 0
}
