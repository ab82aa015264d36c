package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docsplit/internal/family"
)

// ErrStopped is returned when submitting to a stopped orchestrator.
var ErrStopped = errors.New("pipeline is stopped")

// Options configures an Orchestrator.
type Options struct {
	WorkerCount     int
	MaxQueueSize    int
	JobTTL          time.Duration
	CleanupInterval time.Duration
	Worker          WorkerConfig
}

// Orchestrator manages the document split pipeline: a bounded queue
// drained by a fixed set of workers.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	families  *family.Registry
	extractor OutlineExtractor
	metrics   *Metrics
	log       *slog.Logger
	opts      Options

	mu      sync.RWMutex
	stopped bool

	// inflight counts queued and running jobs; idle is closed while it is 0.
	inflightMu sync.Mutex
	inflight   int
	idle       chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(opts Options, families *family.Registry, extractor OutlineExtractor, metrics *Metrics, log *slog.Logger) *Orchestrator {
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.MaxQueueSize < 1 {
		opts.MaxQueueSize = 1
	}
	if opts.JobTTL <= 0 {
		opts.JobTTL = time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	idle := make(chan struct{})
	close(idle)
	return &Orchestrator{
		idle:      idle,
		jobs:      NewJobStore(opts.JobTTL),
		queue:     make(chan *Job, opts.MaxQueueSize),
		families:  families,
		extractor: extractor,
		metrics:   metrics,
		log:       log,
		opts:      opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.families, o.extractor, o.metrics, o.log, o.opts.Worker)
			for job := range o.queue {
				o.observeQueue()
				if workerCtx.Err() != nil {
					job.AddError("pipeline stopped before the job ran")
					w.done(job, StatusFailed, "queued", nil)
				} else {
					w.Process(workerCtx, job)
				}
				o.end()
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.opts.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels running jobs, fails queued ones and waits for the workers
// to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Drain blocks until no job is queued or running, or ctx is done. Jobs
// submitted before the pipeline goes idle extend the wait.
func (o *Orchestrator) Drain(ctx context.Context) error {
	o.inflightMu.Lock()
	idle := o.idle
	o.inflightMu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) begin() {
	o.inflightMu.Lock()
	defer o.inflightMu.Unlock()
	if o.inflight == 0 {
		o.idle = make(chan struct{})
	}
	o.inflight++
}

func (o *Orchestrator) end() {
	o.inflightMu.Lock()
	defer o.inflightMu.Unlock()
	o.inflight--
	if o.inflight == 0 {
		close(o.idle)
	}
}

// Submit queues a new job without blocking. A full queue fails the job.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	o.begin()
	select {
	case o.queue <- job:
		o.observeQueue()
		return nil
	default:
		o.end()
		job.AddError("job queue is full")
		job.finish(StatusFailed, "queue_full", nil)
		return fmt.Errorf("job queue is full (%d)", o.opts.MaxQueueSize)
	}
}

// Enqueue queues a job, waiting for queue space. Batch runs use it to
// feed more documents than the queue holds.
func (o *Orchestrator) Enqueue(ctx context.Context, job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	o.begin()
	select {
	case o.queue <- job:
		o.observeQueue()
		return nil
	case <-ctx.Done():
		o.end()
		job.AddError("not queued: " + ctx.Err().Error())
		job.finish(StatusFailed, "queued", nil)
		return ctx.Err()
	}
}

func (o *Orchestrator) observeQueue() {
	if o.metrics != nil {
		o.metrics.QueueDepth.Set(float64(len(o.queue)))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Families returns the family registry jobs are resolved against.
func (o *Orchestrator) Families() *family.Registry {
	return o.families
}
