package nn

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// job is one execute request waiting in an Executor queue.
type job struct {
	inputs  []float32
	outputs []float32
	size    int
	done    chan struct{}
}

// Executor owns one model instance on one device and the single worker that
// feeds it. Requests queue up and the worker drains them in batches of up to
// batchSize rows per forward pass.
type Executor struct {
	model     Model
	batchSize int

	mu         sync.Mutex
	cond       *sync.Cond
	queue      []*job
	waiting    int // sum of sizes of queued jobs
	reserved   int // rows promised by the dispatcher but not yet enqueued
	terminated bool
}

// NewExecutor wraps a model. The worker is started by the owning Processor.
func NewExecutor(model Model, batchSize int) *Executor {
	e := &Executor{model: model, batchSize: batchSize}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// load is the dispatch metric: queued plus promised rows.
func (e *Executor) load() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waiting + e.reserved
}

// reserve promises n rows to this executor ahead of the enqueue, so parallel
// dispatches don't all pile onto the same momentarily idle executor.
func (e *Executor) reserve(n int) {
	e.mu.Lock()
	e.reserved += n
	e.mu.Unlock()
}

// execute queues one request of n rows and blocks until the worker filled
// outputs. After termination it returns immediately with zeroed outputs.
func (e *Executor) execute(inputs, outputs []float32, n int) {
	j := &job{inputs: inputs, outputs: outputs, size: n, done: make(chan struct{})}
	e.mu.Lock()
	e.reserved -= n
	if e.terminated {
		e.mu.Unlock()
		zero(outputs[:n*ModelOutputSize])
		return
	}
	e.queue = append(e.queue, j)
	e.waiting += n
	e.cond.Signal()
	e.mu.Unlock()
	<-j.done
}

// run is the device worker loop. Forward errors are logged and the batch is
// answered with zeroed (neutral) outputs; the engine keeps running.
func (e *Executor) run() error {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.terminated {
			e.cond.Wait()
		}
		if e.terminated {
			// Answer whatever is still queued so no caller stays blocked.
			for _, j := range e.queue {
				zero(j.outputs[:j.size*ModelOutputSize])
				close(j.done)
			}
			e.queue = nil
			e.waiting = 0
			e.mu.Unlock()
			return nil
		}
		var batch []*job
		total := 0
		for len(e.queue) > 0 && total < e.batchSize {
			j := e.queue[0]
			e.queue = e.queue[1:]
			batch = append(batch, j)
			total += j.size
		}
		e.waiting -= total
		e.mu.Unlock()

		inputs := make([]float32, 0, total*ModelInputSize)
		for _, j := range batch {
			inputs = append(inputs, j.inputs[:j.size*ModelInputSize]...)
		}
		outputs, err := e.model.Forward(inputs, total)
		if err != nil || len(outputs) < total*ModelOutputSize {
			if err != nil {
				klog.Errorf("model forward failed for batch of %d: %v", total, err)
			} else {
				klog.Errorf("model forward returned %d floats, want %d", len(outputs), total*ModelOutputSize)
			}
			outputs = make([]float32, total*ModelOutputSize)
		}
		if klog.V(2).Enabled() {
			klog.Infof("forward batch of %d rows over %d jobs", total, len(batch))
		}
		offset := 0
		for _, j := range batch {
			rows := j.size * ModelOutputSize
			copy(j.outputs[:rows], outputs[offset:offset+rows])
			offset += rows
			close(j.done)
		}
	}
}

// terminate wakes the worker into its shutdown path.
func (e *Executor) terminate() {
	e.mu.Lock()
	e.terminated = true
	e.cond.Broadcast()
	e.mu.Unlock()
}

// Processor is the inference service: one Executor per (device, thread) pair
// with load-balanced dispatch across them.
type Processor struct {
	executors []*Executor
	mu        sync.Mutex
	workers   errgroup.Group
}

// NewProcessor builds one model per (gpu, thread) pair and starts the device
// workers. gpus lists the device ordinals; an empty list means the CPU alone
// (threadsPerDevice executors on it). Model construction failures abort the
// whole service.
func NewProcessor(builder ModelBuilder, gpus []int, threadsPerDevice, batchSize int, halfPrecision bool) (*Processor, error) {
	if len(gpus) == 0 {
		gpus = []int{-1}
	}
	if threadsPerDevice < 1 {
		threadsPerDevice = 1
	}
	p := &Processor{}
	for _, gpu := range gpus {
		for t := 0; t < threadsPerDevice; t++ {
			model, err := builder(gpu, halfPrecision)
			if err != nil {
				p.shutdown()
				return nil, err
			}
			p.executors = append(p.executors, NewExecutor(model, batchSize))
		}
	}
	for _, e := range p.executors {
		p.workers.Go(e.run)
	}
	klog.V(1).Infof("inference service started with %d executor(s), batch size %d", len(p.executors), batchSize)
	return p, nil
}

// Execute runs one synchronous inference of n rows: inputs holds n rows of
// ModelInputSize floats, outputs receives n rows of ModelOutputSize floats.
// Safe for concurrent use from any number of threads.
func (p *Processor) Execute(inputs, outputs []float32, n int) {
	p.mu.Lock()
	best := p.executors[0]
	bestLoad := best.load()
	for _, e := range p.executors[1:] {
		if load := e.load(); load < bestLoad {
			best, bestLoad = e, load
		}
	}
	best.reserve(n)
	p.mu.Unlock()
	best.execute(inputs, outputs, n)
}

// Close terminates every executor, waits for the workers to drain their
// queues, and releases the models.
func (p *Processor) Close() error {
	return p.shutdown()
}

func (p *Processor) shutdown() error {
	for _, e := range p.executors {
		e.terminate()
	}
	var errs *multierror.Error
	errs = multierror.Append(errs, p.workers.Wait())
	for _, e := range p.executors {
		errs = multierror.Append(errs, e.model.Close())
	}
	return errs.ErrorOrNil()
}

func zero(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
