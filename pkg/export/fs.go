// Package export renders a completed project's outbox as a read-only
// browsable directory tree via a go-fuse mount (§5 read-side
// rendering): dataset -> item-schema -> identifier/pseudonym -> files
// + thumbnail. The Inode tree is backed by the Item Graph and the
// filesystem Storage collaborator rather than a remote API.
package export

import (
	"context"
	"fmt"
	"log"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
	"github.com/sectra/slidetap-core/internal/storage"
)

// Graph is the narrow slice of the Item Graph pkg/export reads.
// Satisfied by *store.Graph.
type Graph interface {
	GetProject(ctx context.Context, uid model.UID) (*model.Project, error)
	AllItemsForDataset(ctx context.Context, datasetUID model.UID) ([]*model.Item, error)
}

// ProjectFS is the root Inode of one project's exported outbox.
type ProjectFS struct {
	fs.Inode
	graph      Graph
	registry   *schema.Registry
	storage    *storage.Storage
	projectUID model.UID
	debug      bool
}

// NewProjectFS builds the root node for mounting projectUID's outbox.
// The project is not re-read until Readdir/Lookup is first called.
func NewProjectFS(graph Graph, registry *schema.Registry, store *storage.Storage, projectUID model.UID, debug bool) *ProjectFS {
	return &ProjectFS{graph: graph, registry: registry, storage: store, projectUID: projectUID, debug: debug}
}

// Mount mounts the filesystem read-only at mountpoint.
func (p *ProjectFS) Mount(mountpoint string) (*fuse.Server, error) {
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:     "slidetap-export",
			FsName:   "slidetap",
			Debug:    p.debug,
			ReadOnly: true,
		},
	}
	server, err := fs.Mount(mountpoint, p, opts)
	if err != nil {
		return nil, fmt.Errorf("export: mount failed: %w", err)
	}
	return server, nil
}

var _ = (fs.NodeReaddirer)((*ProjectFS)(nil))
var _ = (fs.NodeLookuper)((*ProjectFS)(nil))

// exportableImages returns every selected, fully post-processed image
// item in the project's dataset, grouped by item-schema uid.
func (p *ProjectFS) exportableImages(ctx context.Context) (map[model.UID][]*model.Image, error) {
	project, err := p.graph.GetProject(ctx, p.projectUID)
	if err != nil {
		return nil, err
	}
	items, err := p.graph.AllItemsForDataset(ctx, project.DatasetUID)
	if err != nil {
		return nil, err
	}
	byschema := make(map[model.UID][]*model.Image)
	for _, item := range items {
		if item.Kind != model.ItemImage {
			continue
		}
		img := item.Image
		if !img.Selected || img.Status != model.ImagePostProcessed {
			continue
		}
		byschema[img.SchemaUID] = append(byschema[img.SchemaUID], img)
	}
	return byschema, nil
}

func (p *ProjectFS) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	byschema, err := p.exportableImages(ctx)
	if err != nil {
		log.Printf("[export] readdir root: %v", err)
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, 0, len(byschema))
	for schemaUID := range byschema {
		itemSchema, ok := p.registry.GetItemSchema(schemaUID)
		if !ok {
			continue
		}
		entries = append(entries, fuse.DirEntry{Name: itemSchema.Name, Mode: fuse.S_IFDIR})
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (p *ProjectFS) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	byschema, err := p.exportableImages(ctx)
	if err != nil {
		log.Printf("[export] lookup root %q: %v", name, err)
		return nil, syscall.EIO
	}
	itemSchema, ok := p.registry.GetItemSchemaByName(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	images, ok := byschema[itemSchema.UID]
	if !ok {
		return nil, syscall.ENOENT
	}
	node := &schemaDirNode{images: images, storage: p.storage, debug: p.debug}
	child := p.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFDIR, Ino: stableHash("schema:" + itemSchema.UID.String())})
	return child, fs.OK
}
