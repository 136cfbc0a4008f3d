package search

import (
	"sort"
	"sync"
	"time"

	"github.com/chewxy/math32"
	xrand "golang.org/x/exp/rand"
	"k8s.io/klog/v2"

	"github.com/sente-go/sente/internal/ai"
	"github.com/sente-go/sente/internal/board"
	"github.com/sente-go/sente/internal/parameters"
)

// Candidate is one move with its search statistics, as reported to the
// controller. Variations is the principal variation starting at the move.
type Candidate struct {
	Pos        board.Pos
	Color      board.Color
	Visits     int
	Playouts   int
	Policy     float32
	Value      float32
	LCB        float32
	Variations []board.Pos
}

// Player orchestrates the search around one game: it owns the tree root, the
// worker pool and the dispatcher, and exposes the operations the game
// controller drives. Every mutating operation follows the same discipline:
// pause the dispatcher, drain the running workers, mutate, resume.
type Player struct {
	config  *parameters.Config
	service ai.InferenceService
	pool    *NodePool
	workers *ThreadPool

	mu   sync.Mutex
	cond *sync.Cond

	root *Node
	turn int

	settings Settings
	paused   bool
	stopped  bool

	terminated     bool
	dispatcherDone chan struct{}
	runnings       int
	searchVisits   int
	searchPlayouts int
}

// NewPlayer builds a player over the given inference service and starts its
// dispatcher and worker pool.
func NewPlayer(config *parameters.Config, service ai.InferenceService) *Player {
	p := &Player{
		config:         config,
		service:        service,
		pool:           NewNodePool(service),
		workers:        NewThreadPool(config.Threads),
		stopped:        true,
		dispatcherDone: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.settings = Settings{
		UseUcb1:      config.UseUcb1,
		Temperature:  config.Temperature,
		Noise:        config.Randomness,
		EvalLeafOnly: config.EvalLeafOnly,
	}
	p.root = p.pool.get()
	p.root.initRoot(board.New(config.BoardSize, config.BoardSize, config.Rule, config.Komi, config.Superko))
	p.turn = config.InitialTurn
	go p.dispatch()
	return p
}

// Config returns the player's configuration.
func (p *Player) Config() *parameters.Config { return p.config }

// Root returns the current tree root.
func (p *Player) Root() *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root
}

// Turn returns the number of real moves played so far.
func (p *Player) Turn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.turn
}

// dispatch is the long-lived controller loop: while search is live and the
// pool has capacity it accounts one visit and submits one descent task.
func (p *Player) dispatch() {
	defer close(p.dispatcherDone)
	p.mu.Lock()
	for {
		for !p.terminated && (p.stopped || p.paused || p.runnings >= p.config.Threads) {
			p.cond.Wait()
		}
		if p.terminated {
			p.mu.Unlock()
			return
		}
		p.searchVisits++
		p.runnings++
		root, settings := p.root, p.settings
		p.mu.Unlock()
		p.workers.Submit(func() {
			playouts := p.descend(root, settings)
			p.mu.Lock()
			p.runnings--
			p.searchPlayouts += playouts
			p.cond.Broadcast()
			p.mu.Unlock()
		})
		p.mu.Lock()
	}
}

// descend runs one search step from root to a leaf and backpropagates the
// leaf value along the visited path.
func (p *Player) descend(root *Node, s Settings) int {
	path := make([]*Node, 0, 32)
	node := root
	for {
		result := node.Evaluate(s, node == root)
		path = append(path, node)
		if result.Playouts < 0 {
			// The node just branched under eval-leaf-only: take its
			// first-visit value back out of the whole path.
			v := node.EvaluatorValue()
			for _, a := range path {
				a.CancelValue(v)
			}
		}
		if result.Next == nil {
			for _, a := range path {
				a.UpdateValue(result.Value)
				a.AddPlayouts(result.Playouts)
			}
			return result.Playouts
		}
		node = result.Next
	}
}

// pauseAndRun executes fn under the player mutex after draining all running
// workers, then resumes. This is the cooperative-cancellation point every
// externally observable mutation goes through.
func (p *Player) pauseAndRun(fn func()) {
	p.mu.Lock()
	p.paused = true
	for p.runnings > 0 {
		p.cond.Wait()
	}
	fn()
	p.paused = false
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Initialize drops the current subtree and allocates a fresh root at the
// empty board. The configuration is preserved.
func (p *Player) Initialize() {
	p.pauseAndRun(func() {
		p.stopped = true
		p.pool.Release(p.root)
		p.root = p.pool.get()
		p.root.initRoot(board.New(p.config.BoardSize, p.config.BoardSize, p.config.Rule, p.config.Komi, p.config.Superko))
		p.turn = p.config.InitialTurn
		p.searchVisits = 0
		p.searchPlayouts = 0
	})
}

// Play descends to (or creates) the child for the move and makes it the new
// root, releasing the rest of the tree. It returns the number of captured
// stones, or -1 when the move is rejected as illegal.
func (p *Player) Play(x, y int) int {
	captured := -1
	p.pauseAndRun(func() {
		pos := board.Pos{int8(x), int8(y)}
		color := p.root.color.Opposite()
		child := p.root.children[p.rootChildKey(pos)]
		if child == nil {
			child = p.pool.get()
			child.initChild(p.root, pos, 0)
			if child.captured < 0 {
				p.pool.Release(child)
				return
			}
		} else {
			delete(p.root.children, p.rootChildKey(pos))
		}
		captured = child.captured
		p.pool.Release(p.root)
		p.root = child
		p.turn++
		if klog.V(1).Enabled() {
			klog.Infof("turn %d: %s plays %s capturing %d", p.turn, color, pos, captured)
		}
	})
	return captured
}

func (p *Player) rootChildKey(pos board.Pos) int {
	if pos.IsPass() {
		return -1
	}
	return pos.Y()*p.config.BoardSize + pos.X()
}

// GetPass returns a synthetic pass candidate carrying the current root value.
func (p *Player) GetPass() []Candidate {
	var out []Candidate
	p.pauseAndRun(func() {
		out = []Candidate{{
			Pos:        board.PassPos,
			Color:      p.root.color.Opposite(),
			Value:      p.root.MeanValue(),
			Variations: []board.Pos{board.PassPos},
		}}
	})
	return out
}

// GetRandom samples one legal move from the root's raw policy distribution
// raised to 1/max(temperature, 0.1). It never runs search.
func (p *Player) GetRandom(temperature float32) []Candidate {
	var out []Candidate
	p.pauseAndRun(func() {
		p.root.ensureEvaluated()
		policies := p.root.policies
		if len(policies) == 0 {
			out = []Candidate{{
				Pos:        board.PassPos,
				Color:      p.root.color.Opposite(),
				Value:      p.root.MeanValue(),
				Variations: []board.Pos{board.PassPos},
			}}
			return
		}
		power := 1 / math32.Max(temperature, 0.1)
		weights := make([]float32, len(policies))
		var total float32
		for i, entry := range policies {
			weights[i] = math32.Pow(entry.Prior, power)
			total += weights[i]
		}
		pick := len(policies) - 1
		r := float32(xrand.Float64()) * total
		for i, w := range weights {
			if r -= w; r <= 0 {
				pick = i
				break
			}
		}
		entry := policies[pick]
		out = []Candidate{{
			Pos:        entry.Pos,
			Color:      p.root.color.Opposite(),
			Policy:     entry.Prior,
			Value:      p.root.EvaluatorValue(),
			Variations: []board.Pos{entry.Pos},
		}}
	})
	return out
}

// StartEvaluation switches the search mode and unpauses. The episode counters
// seed from the current root so pondered work carries over.
func (p *Player) StartEvaluation(equally, useUcb1 bool, width int, temperature, noise float32) {
	p.pauseAndRun(func() {
		p.settings = Settings{
			Equally:      equally,
			UseUcb1:      useUcb1,
			Width:        width,
			Temperature:  temperature,
			Noise:        noise,
			EvalLeafOnly: p.config.EvalLeafOnly,
		}
		p.searchVisits = p.root.Visits()
		p.searchPlayouts = p.root.Playouts()
		p.stopped = false
	})
}

// WaitEvaluation blocks until searchVisits >= targetVisits AND searchPlayouts
// >= targetPlayouts, or until timelimit elapses. With stop the search
// transitions to stopped before returning. It reports the episode counters.
func (p *Player) WaitEvaluation(targetVisits, targetPlayouts int, timelimit time.Duration, stop bool) (visits, playouts int) {
	deadline := time.Now().Add(timelimit)
	timer := time.AfterFunc(timelimit, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	p.mu.Lock()
	for (p.searchVisits < targetVisits || p.searchPlayouts < targetPlayouts) &&
		!p.terminated && !p.stopped && time.Now().Before(deadline) {
		p.cond.Wait()
	}
	if stop {
		p.stopped = true
		p.cond.Broadcast()
	}
	visits, playouts = p.searchVisits, p.searchPlayouts
	p.mu.Unlock()
	return visits, playouts
}

// GetCandidates returns the root's children with their statistics, most
// visited first. Before any search it returns the single policy-network best
// move.
func (p *Player) GetCandidates() []Candidate {
	var out []Candidate
	p.pauseAndRun(func() {
		color := p.root.color.Opposite()
		if len(p.root.children) == 0 {
			p.root.ensureEvaluated()
			best, bestProb := board.PassPos, float32(-1)
			for _, entry := range p.root.policies {
				if entry.Prior > bestProb {
					best, bestProb = entry.Pos, entry.Prior
				}
			}
			if bestProb < 0 {
				bestProb = 0
			}
			value := p.root.EvaluatorValue()
			out = []Candidate{{
				Pos:        best,
				Color:      color,
				Policy:     bestProb,
				Value:      value,
				LCB:        value * float32(color),
				Variations: []board.Pos{best},
			}}
			return
		}
		for _, child := range p.root.children {
			out = append(out, Candidate{
				Pos:        child.pos,
				Color:      child.color,
				Visits:     child.Visits(),
				Playouts:   child.Playouts(),
				Policy:     child.prior,
				Value:      child.MeanValue(),
				LCB:        child.ValueLCB(),
				Variations: child.GetVariations(),
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Visits > out[j].Visits })
	})
	return out
}

// ShouldResign reports whether the configured resignation policy triggers on
// the current root value.
func (p *Player) ShouldResign() bool {
	if !p.config.Resign {
		return false
	}
	resign := false
	p.pauseAndRun(func() {
		if p.turn < p.config.MinTurn {
			return
		}
		next := p.root.color.Opposite()
		resign = p.root.MeanValue()*float32(next) < -p.config.MinScore
	})
	return resign
}

// Ponder restarts background search in the configured mode, if pondering is
// enabled.
func (p *Player) Ponder() {
	if !p.config.Ponder {
		return
	}
	p.StartEvaluation(false, p.config.UseUcb1, 0, p.config.Temperature, p.config.Randomness)
}

// Terminate shuts the player down: stops the dispatcher, drains the workers
// and releases the tree. The player must not be used afterwards.
func (p *Player) Terminate() {
	p.mu.Lock()
	p.paused = true
	for p.runnings > 0 {
		p.cond.Wait()
	}
	p.terminated = true
	p.cond.Broadcast()
	p.mu.Unlock()
	<-p.dispatcherDone
	p.workers.Close()
	p.pool.Release(p.root)
}
