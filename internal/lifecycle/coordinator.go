package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sectra/slidetap-core/internal/attribute"
	"github.com/sectra/slidetap-core/internal/mapper"
	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
	"github.com/sectra/slidetap-core/internal/validate"
)

// Graph is the subset of the Item Store (internal/store.Graph) the
// Coordinator depends on. Declared here rather than imported directly
// so lifecycle stays decoupled from the storage driver.
type Graph interface {
	GetProject(ctx context.Context, uid model.UID) (*model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	UpdateProjectStatus(ctx context.Context, uid model.UID, status model.ProjectStatus) error
	CreateProject(ctx context.Context, p *model.Project) error
	CreateDataset(ctx context.Context, d *model.Dataset) error
	GetDataset(ctx context.Context, uid model.UID) (*model.Dataset, error)
	UpdateDataset(ctx context.Context, d *model.Dataset) error

	CreateBatch(ctx context.Context, b *model.Batch) error
	GetBatch(ctx context.Context, uid model.UID) (*model.Batch, error)
	UpdateBatchStatus(ctx context.Context, uid model.UID, status model.BatchStatus) error
	ListBatches(ctx context.Context, projectUID model.UID) ([]*model.Batch, error)

	GetItem(ctx context.Context, uid model.UID) (*model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	AllItemsForDataset(ctx context.Context, datasetUID model.UID) ([]*model.Item, error)
	AllItemsForBatch(ctx context.Context, batchUID model.UID) ([]*model.Item, error)
	DeleteItems(ctx context.Context, batchUID, schemaUID model.UID, onlyNonSelected bool) error

	ImagesForBatch(ctx context.Context, batchUID, imageSchemaUID model.UID, onlySelected bool) ([]*model.Image, error)
	GetImage(ctx context.Context, uid model.UID) (*model.Image, error)
	TryCompleteBatchPhase(ctx context.Context, batchUID model.UID, expectedStatus, targetStatus model.BatchStatus, nonTerminalStatuses []model.ImageStatus) (bool, error)
	CountSelectedImagesInStatus(ctx context.Context, batchUID model.UID, status model.ImageStatus) (int, error)

	AttributesForRootSchema(ctx context.Context, rootAttributeSchemaUID model.UID) ([]*model.Attribute, error)
}

// Pipeline is the Image Pipeline's view from the Coordinator: the
// ability to enqueue an image for pre/post-processing and to request
// a retry or a batch-wide cancellation (§4.F, §4.G). internal/pipeline
// implements this.
type Pipeline interface {
	EnqueuePreProcessing(ctx context.Context, image *model.Image) error
	EnqueuePostProcessing(ctx context.Context, image *model.Image) error
	Retry(ctx context.Context, image *model.Image) error
	CancelBatch(batchUID model.UID)
}

// Coordinator is the Lifecycle Coordinator (§4.F): the sole authorized
// mutator of Batch.Status and Project.Status.
type Coordinator struct {
	graph     Graph
	registry  *schema.Registry
	mappers   *mapper.Engine
	attrs     *attribute.Engine
	validator *validate.Validator
	pipeline  Pipeline

	// locks serializes non-aggregation transitions per batch uid; the
	// aggregation path (NotifyImageStatus) instead relies on the
	// store's conditional UPDATE and takes no lock, matching §5's
	// "per-row locks on the image and batch rows" vs. "readers may run
	// lock-free" split.
	mu    sync.Mutex
	locks map[model.UID]*sync.Mutex
}

// New constructs a Coordinator. pipeline may be nil for tests that only
// exercise metadata-phase transitions.
func New(graph Graph, registry *schema.Registry, mappers *mapper.Engine, attrs *attribute.Engine, validator *validate.Validator, pipeline Pipeline) *Coordinator {
	return &Coordinator{
		graph:     graph,
		registry:  registry,
		mappers:   mappers,
		attrs:     attrs,
		validator: validator,
		pipeline:  pipeline,
		locks:     make(map[model.UID]*sync.Mutex),
	}
}

// SetPipeline wires the Image Pipeline after construction, used when
// the two are built in separate steps to avoid an import cycle (cmd
// wiring constructs both, then calls SetPipeline).
func (c *Coordinator) SetPipeline(p Pipeline) {
	c.pipeline = p
}

func (c *Coordinator) lockFor(uid model.UID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[uid]
	if !ok {
		l = &sync.Mutex{}
		c.locks[uid] = l
	}
	return l
}

// CreateProject creates a new Project with its own Dataset and a
// default, undeletable Batch (§3 "One batch per project is marked
// default; undeletable").
func (c *Coordinator) CreateProject(ctx context.Context, name string) (*model.Project, error) {
	root := c.registry.Root()
	now := time.Now()

	dataset := &model.Dataset{
		UID:        model.NewUID(),
		Name:       name,
		SchemaUID:  root.Dataset.UID,
		Attributes: make(map[string]*model.Attribute),
	}
	if err := c.graph.CreateDataset(ctx, dataset); err != nil {
		return nil, err
	}

	project := &model.Project{
		UID:             model.NewUID(),
		Name:            name,
		Status:          model.ProjectInProgress,
		RootSchemaUID:   root.UID,
		SchemaUID:       root.Project.UID,
		DatasetUID:      dataset.UID,
		Attributes:      make(map[string]*model.Attribute),
		MapperGroupUIDs: make(map[model.UID]struct{}),
		Created:         now,
	}

	defaultBatch := &model.Batch{
		UID:        model.NewUID(),
		Name:       "default",
		ProjectUID: project.UID,
		Status:     model.BatchInitialized,
		Created:    now,
		IsDefault:  true,
	}
	if err := c.graph.CreateBatch(ctx, defaultBatch); err != nil {
		return nil, err
	}
	project.DefaultBatchUID = defaultBatch.UID

	if err := c.graph.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// CreateBatch adds a non-default batch to an existing project.
func (c *Coordinator) CreateBatch(ctx context.Context, projectUID model.UID, name string) (*model.Batch, error) {
	if _, err := c.graph.GetProject(ctx, projectUID); err != nil {
		return nil, err
	}
	batch := &model.Batch{
		UID:        model.NewUID(),
		Name:       name,
		ProjectUID: projectUID,
		Status:     model.BatchInitialized,
		Created:    time.Now(),
		IsDefault:  false,
	}
	if err := c.graph.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// transition loads the batch, checks the guard, persists the new
// status, and logs the move - the shared body of every explicit batch
// transition method below.
func (c *Coordinator) transition(ctx context.Context, batchUID model.UID, event Event) (*model.Batch, error) {
	lock := c.lockFor(batchUID)
	lock.Lock()
	defer lock.Unlock()

	batch, err := c.graph.GetBatch(ctx, batchUID)
	if err != nil {
		return nil, err
	}
	to, ok := AllowedBatchTransition(batch.Status, event)
	if !ok {
		return nil, fmt.Errorf("%w: batch %s cannot %s from %s", model.ErrNotAllowedAction, batchUID, event, batch.Status)
	}
	if event == EventDelete && batch.IsDefault {
		return nil, fmt.Errorf("%w: default batch %s cannot be deleted", model.ErrNotAllowedAction, batchUID)
	}
	if err := c.graph.UpdateBatchStatus(ctx, batchUID, to); err != nil {
		return nil, err
	}
	log.Printf("[lifecycle] batch %s: %s -(%s)-> %s", batchUID, batch.Status, event, to)
	batch.Status = to
	return batch, nil
}
