package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sectra/slidetap-core/internal/codec"
	"github.com/sectra/slidetap-core/internal/config"
	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/storage"
)

// fakeGraph is an in-memory stand-in for the Item Store, scoped to the
// four methods pipeline.Graph needs.
type fakeGraph struct {
	mu       sync.Mutex
	images   map[model.UID]*model.Image
	batches  map[model.UID]*model.Batch
	projects map[model.UID]*model.Project
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		images:   make(map[model.UID]*model.Image),
		batches:  make(map[model.UID]*model.Batch),
		projects: make(map[model.UID]*model.Project),
	}
}

func (g *fakeGraph) GetImage(ctx context.Context, uid model.UID) (*model.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	img, ok := g.images[uid]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (g *fakeGraph) UpdateItem(ctx context.Context, item *model.Item) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if item.Image == nil {
		return nil
	}
	cp := *item.Image
	g.images[item.Image.UID] = &cp
	return nil
}

func (g *fakeGraph) GetBatch(ctx context.Context, uid model.UID) (*model.Batch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.batches[uid]
	if !ok {
		return nil, model.ErrNotFound
	}
	return b, nil
}

func (g *fakeGraph) GetProject(ctx context.Context, uid model.UID) (*model.Project, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.projects[uid]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p, nil
}

// fakeNotifier records every status notification the pipeline emits.
type fakeNotifier struct {
	mu     sync.Mutex
	images []model.ImageStatus
}

func (n *fakeNotifier) NotifyImageStatus(ctx context.Context, image *model.Image) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.images = append(n.images, image.Status)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.images)
}

func newTestFixture(t *testing.T) (*fakeGraph, *fakeNotifier, model.UID, model.UID) {
	t.Helper()
	graph := newFakeGraph()
	notifier := &fakeNotifier{}

	projectUID := model.NewUID()
	batchUID := model.NewUID()
	graph.projects[projectUID] = &model.Project{UID: projectUID, Name: "proj"}
	graph.batches[batchUID] = &model.Batch{UID: batchUID, ProjectUID: projectUID, Name: "batch"}

	return graph, notifier, projectUID, batchUID
}

func newTestImage(t *testing.T, batchUID model.UID, sourceDir string) *model.Image {
	t.Helper()
	img := model.NewImage(model.ItemBase{
		UID:        model.NewUID(),
		Identifier: "slide-1",
		BatchUID:   batchUID,
		Attributes: map[string]*model.Attribute{},
	})
	img.FolderPath = &sourceDir
	return img
}

func writeSourceFile(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "slide.svs"), []byte("fake-wsi-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newSyncPipeline(graph Graph, notifier Notifier, root string) *Pipeline {
	store, err := storage.New(root)
	if err != nil {
		panic(err)
	}
	return New(graph, notifier, nil, store, config.PipelineConfig{
		DicomizerTileSize: 256,
		ThumbnailSize:     64,
	}, Options{
		Dicomizer:        codec.NewFakeCodec(),
		ThumbnailEncoder: codec.NewFakeCodec(),
		Sync:             true,
	})
}

func TestEnqueuePreProcessing_Success(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	writeSourceFile(t, source)

	graph, notifier, _, batchUID := newTestFixture(t)
	img := newTestImage(t, batchUID, source)
	graph.images[img.UID] = img

	p := newSyncPipeline(graph, notifier, filepath.Join(dir, "store"))

	if err := p.EnqueuePreProcessing(context.Background(), img); err != nil {
		t.Fatalf("EnqueuePreProcessing: %v", err)
	}

	got, err := graph.GetImage(context.Background(), img.UID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.ImagePreProcessed {
		t.Fatalf("status = %s, want %s (message: %s)", got.Status, model.ImagePreProcessed, got.StatusMessage)
	}
	if got.FolderPath == nil {
		t.Fatal("expected a scratch folder_path after dicomize")
	}
	if notifier.count() != 1 {
		t.Fatalf("notify count = %d, want 1", notifier.count())
	}
}

func TestEnqueuePreProcessing_NoSourceFails(t *testing.T) {
	dir := t.TempDir()
	graph, notifier, _, batchUID := newTestFixture(t)
	img := model.NewImage(model.ItemBase{UID: model.NewUID(), Identifier: "slide-2", BatchUID: batchUID})
	img.FolderPath = nil
	graph.images[img.UID] = img

	p := newSyncPipeline(graph, notifier, filepath.Join(dir, "store"))
	if err := p.EnqueuePreProcessing(context.Background(), img); err != nil {
		t.Fatalf("EnqueuePreProcessing: %v", err)
	}

	got, _ := graph.GetImage(context.Background(), img.UID)
	if got.Status != model.ImagePreProcessingFailed {
		t.Fatalf("status = %s, want %s", got.Status, model.ImagePreProcessingFailed)
	}
	if got.Selected {
		t.Fatal("expected failed image to be de-selected")
	}
}

func TestEnqueuePreProcessing_EmptySourceFails(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatal(err)
	}

	graph, notifier, _, batchUID := newTestFixture(t)
	img := newTestImage(t, batchUID, source)
	img.Selected = true
	graph.images[img.UID] = img

	p := newSyncPipeline(graph, notifier, filepath.Join(dir, "store"))
	if err := p.EnqueuePreProcessing(context.Background(), img); err != nil {
		t.Fatalf("EnqueuePreProcessing: %v", err)
	}

	got, _ := graph.GetImage(context.Background(), img.UID)
	if got.Status != model.ImagePreProcessingFailed {
		t.Fatalf("status = %s, want %s", got.Status, model.ImagePreProcessingFailed)
	}
	if got.Selected {
		t.Fatal("expected de-selection on dicomize failure")
	}
}

func TestFullPipeline_PreThenPost(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	writeSourceFile(t, source)

	graph, notifier, _, batchUID := newTestFixture(t)
	img := newTestImage(t, batchUID, source)
	graph.images[img.UID] = img

	p := newSyncPipeline(graph, notifier, filepath.Join(dir, "store"))

	if err := p.EnqueuePreProcessing(context.Background(), img); err != nil {
		t.Fatalf("pre-processing: %v", err)
	}
	preProcessed, _ := graph.GetImage(context.Background(), img.UID)

	if err := p.EnqueuePostProcessing(context.Background(), preProcessed); err != nil {
		t.Fatalf("post-processing: %v", err)
	}

	done, err := graph.GetImage(context.Background(), img.UID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != model.ImagePostProcessed {
		t.Fatalf("status = %s, want %s (%s)", done.Status, model.ImagePostProcessed, done.StatusMessage)
	}
	if done.ThumbnailPath == nil {
		t.Fatal("expected a thumbnail path")
	}
	if done.FolderPath != nil {
		t.Fatal("expected Finish to clear folder_path once files are in permanent storage")
	}
	if notifier.count() != 2 {
		t.Fatalf("notify count = %d, want 2", notifier.count())
	}
}

func TestRetry_RejectsNonRetryableStatus(t *testing.T) {
	dir := t.TempDir()
	graph, notifier, _, batchUID := newTestFixture(t)
	img := newTestImage(t, batchUID, dir)
	img.Status = model.ImagePostProcessed
	graph.images[img.UID] = img

	p := newSyncPipeline(graph, notifier, filepath.Join(dir, "store"))
	err := p.Retry(context.Background(), img)
	if err == nil {
		t.Fatal("expected Retry to reject an already-terminal image")
	}
}

func TestCancelBatch_MarksBatchCanceled(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	writeSourceFile(t, source)

	graph, notifier, _, batchUID := newTestFixture(t)
	img := newTestImage(t, batchUID, source)
	graph.images[img.UID] = img

	store, err := storage.New(filepath.Join(dir, "store"))
	if err != nil {
		t.Fatal(err)
	}
	p := New(graph, notifier, nil, store, config.PipelineConfig{
		DefaultQueueWorkers: 1,
		HighQueueWorkers:    1,
		QueueCapacity:       4,
		DicomizerTileSize:   256,
		ThumbnailSize:       64,
	}, Options{
		Dicomizer:        codec.NewFakeCodec(),
		ThumbnailEncoder: codec.NewFakeCodec(),
	})
	defer p.Stop()

	p.CancelBatch(batchUID)
	if !p.isCanceled(batchUID) {
		t.Fatal("expected batch to be marked canceled")
	}
}
