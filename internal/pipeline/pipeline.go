package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sectra/slidetap-core/internal/codec"
	"github.com/sectra/slidetap-core/internal/config"
	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
	"github.com/sectra/slidetap-core/internal/storage"
)

// Queue names one of the two logical queues §5 mandates.
type Queue string

const (
	QueueDefault Queue = "default"
	QueueHigh    Queue = "high"
)

// Graph is the subset of the Item Store the Image Pipeline depends on,
// declared locally so this package stays decoupled from the storage
// driver (mirrors internal/lifecycle.Graph's narrow-interface style).
type Graph interface {
	GetImage(ctx context.Context, uid model.UID) (*model.Image, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	GetBatch(ctx context.Context, uid model.UID) (*model.Batch, error)
	GetProject(ctx context.Context, uid model.UID) (*model.Project, error)
}

// Notifier is the Lifecycle Coordinator's view from the pipeline: every
// committed terminal image status is reported so aggregation can run
// (§4.F "Aggregation rule"). internal/lifecycle.Coordinator implements
// this.
type Notifier interface {
	NotifyImageStatus(ctx context.Context, image *model.Image) error
}

type job struct {
	imageUID model.UID
	batchUID model.UID
	phase    phaseSpec
}

// Pipeline is the Image Pipeline (§4.G): a per-image task runner
// scheduled on two bounded queues, with cancellation, retry, and batch
// aggregation notification wired to the Lifecycle Coordinator.
type Pipeline struct {
	graph    Graph
	notifier Notifier
	registry *schema.Registry
	storage  *storage.Storage
	config   config.PipelineConfig

	preSteps  []Step
	postSteps []Step

	// sync runs every enqueue inline instead of scheduling it on a
	// queue, for tests that want deterministic, synchronous pipelines
	// (§5 "Optional synchronous mode").
	sync bool

	limiter *rate.Limiter

	queues map[Queue]chan job
	sems   map[Queue]*semaphore.Weighted

	cancelMu sync.Mutex
	canceled map[model.UID]struct{}

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// Options configures a Pipeline beyond config.PipelineConfig.
type Options struct {
	Dicomizer        codec.Dicomizer
	ThumbnailEncoder codec.ThumbnailEncoder
	// Sync, when true, runs every enqueued task inline on the calling
	// goroutine instead of dispatching to a worker queue (§5 "Optional
	// synchronous mode (each enqueue runs inline) for tests").
	Sync bool
}

// New constructs a Pipeline and, unless opts.Sync is set, starts its
// worker pool (config.DefaultQueueWorkers on the default queue,
// config.HighQueueWorkers on the high queue).
func New(graph Graph, notifier Notifier, registry *schema.Registry, store *storage.Storage, cfg config.PipelineConfig, opts Options) *Pipeline {
	p := &Pipeline{
		graph:    graph,
		notifier: notifier,
		registry: registry,
		storage:  store,
		config:   cfg,
		sync:     opts.Sync,
		limiter:  rate.NewLimiter(rate.Limit(admissionRate(cfg)), admissionBurst(cfg)),
		queues:   make(map[Queue]chan job),
		sems:     make(map[Queue]*semaphore.Weighted),
		canceled: make(map[model.UID]struct{}),
		stopCh:   make(chan struct{}),
	}

	p.preSteps = []Step{
		&DicomizeStep{
			Codec: opts.Dicomizer,
			Config: DicomizeConfig{
				TileSize: cfg.DicomizerTileSize,
			},
		},
	}
	p.postSteps = []Step{
		&ThumbnailStep{Codec: opts.ThumbnailEncoder, Size: cfg.ThumbnailSize},
		&StoreStep{},
		&FinishStep{DeleteSource: true},
	}

	if p.sync {
		return p
	}

	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 256
	}
	p.queues[QueueDefault] = make(chan job, capacity)
	p.queues[QueueHigh] = make(chan job, capacity)

	p.startDispatcher(QueueDefault, workerCount(cfg.DefaultQueueWorkers))
	p.startDispatcher(QueueHigh, workerCount(cfg.HighQueueWorkers))

	return p
}

func workerCount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// admissionRate/admissionBurst size the pacing limiter applied before
// each dequeued task runs, smoothing bursts of completions (e.g. many
// images finishing search at once) rather than gating enqueue itself;
// Enqueue's own backpressure is the channel capacity (§5 "queues are
// bounded; producers ... block or fail").
func admissionRate(cfg config.PipelineConfig) float64 {
	total := cfg.DefaultQueueWorkers + cfg.HighQueueWorkers
	if total <= 0 {
		total = 2
	}
	return float64(total) * 4
}

func admissionBurst(cfg config.PipelineConfig) int {
	total := cfg.DefaultQueueWorkers + cfg.HighQueueWorkers
	if total <= 0 {
		total = 2
	}
	return total * 2
}

// startDispatcher runs one loop per queue that pulls jobs off the
// channel and fans them out to at most n concurrently-running tasks,
// bounded by a weighted semaphore (§5 "two bounded worker queues").
// Using a semaphore rather than a fixed goroutine pool lets a single
// slow image hold only its own concurrency unit instead of an entire
// pool worker, and keeps the channel purely a backlog/capacity bound
// (the thing Enqueue's ErrQueueFull check tests against).
func (p *Pipeline) startDispatcher(q Queue, n int) {
	sem := semaphore.NewWeighted(int64(n))
	p.sems[q] = sem
	p.wg.Add(1)
	go p.dispatch(q, p.queues[q], sem)
}

func (p *Pipeline) dispatch(q Queue, ch chan job, sem *semaphore.Weighted) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			if sem.Acquire(context.Background(), 1) != nil {
				return
			}
			p.wg.Add(1)
			go func(j job) {
				defer p.wg.Done()
				defer sem.Release(1)
				if p.isCanceled(j.batchUID) {
					return
				}
				ctx := context.Background()
				_ = p.limiter.Wait(ctx)
				p.runTask(ctx, j.imageUID, j.phase)
			}(j)
		}
	}
}

// Stop drains and halts the worker pool. Already-dequeued tasks run to
// completion; queued-but-undequeued jobs are dropped.
func (p *Pipeline) Stop() {
	if p.sync {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
}

var preProcessingPhase = phaseSpec{
	label:         "pre-processing",
	alreadyDone:   model.ImagePreProcessed,
	runningStatus: model.ImagePreProcessing,
	successStatus: model.ImagePreProcessed,
	failedStatus:  model.ImagePreProcessingFailed,
}

var postProcessingPhase = phaseSpec{
	label:         "post-processing",
	alreadyDone:   model.ImagePostProcessed,
	runningStatus: model.ImagePostProcessing,
	successStatus: model.ImagePostProcessed,
	failedStatus:  model.ImagePostProcessingFailed,
}

// EnqueuePreProcessing schedules image for the Dicomize step on the
// default queue (§4.G, §5).
func (p *Pipeline) EnqueuePreProcessing(ctx context.Context, image *model.Image) error {
	ph := preProcessingPhase
	ph.steps = p.preSteps
	return p.enqueue(ctx, QueueDefault, image, ph)
}

// EnqueuePostProcessing schedules image for Thumbnail/Store/Finish on
// the default queue.
func (p *Pipeline) EnqueuePostProcessing(ctx context.Context, image *model.Image) error {
	ph := postProcessingPhase
	ph.steps = p.postSteps
	return p.enqueue(ctx, QueueDefault, image, ph)
}

// Retry re-enqueues image on the high queue, matching §4.F "user-
// initiated retry" priority: a single operator-triggered retry should
// not wait behind a backlog of ordinary batch submissions.
func (p *Pipeline) Retry(ctx context.Context, image *model.Image) error {
	var ph phaseSpec
	switch image.Status {
	case model.ImageNotStarted, model.ImageDownloaded:
		ph = preProcessingPhase
		ph.steps = p.preSteps
	case model.ImagePreProcessed:
		ph = postProcessingPhase
		ph.steps = p.postSteps
	default:
		return fmt.Errorf("%w: image %s is not in a retryable pre-state (%s)", model.ErrNotAllowedAction, image.UID, image.Status)
	}
	return p.enqueue(ctx, QueueHigh, image, ph)
}

func (p *Pipeline) enqueue(ctx context.Context, q Queue, image *model.Image, ph phaseSpec) error {
	j := job{imageUID: image.UID, batchUID: image.BatchUID, phase: ph}
	if p.sync {
		p.runTask(ctx, j.imageUID, j.phase)
		return nil
	}
	select {
	case p.queues[q] <- j:
		return nil
	default:
		return fmt.Errorf("%w: queue %s", model.ErrQueueFull, q)
	}
}

// CancelBatch marks batchUID's in-flight and not-yet-dequeued tasks to
// be skipped at their next step boundary (§4.F "DeleteBatch ... cancels
// in-flight image tasks", §5 "Cancellation/timeout").
func (p *Pipeline) CancelBatch(batchUID model.UID) {
	p.cancelMu.Lock()
	p.canceled[batchUID] = struct{}{}
	p.cancelMu.Unlock()
}

func (p *Pipeline) isCanceled(batchUID model.UID) bool {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()
	_, ok := p.canceled[batchUID]
	return ok
}
