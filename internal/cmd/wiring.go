package cmd

import (
	"fmt"

	"github.com/sectra/slidetap-core/internal/attribute"
	"github.com/sectra/slidetap-core/internal/codec"
	"github.com/sectra/slidetap-core/internal/config"
	"github.com/sectra/slidetap-core/internal/importer"
	"github.com/sectra/slidetap-core/internal/lifecycle"
	"github.com/sectra/slidetap-core/internal/mapper"
	"github.com/sectra/slidetap-core/internal/pipeline"
	"github.com/sectra/slidetap-core/internal/schema"
	"github.com/sectra/slidetap-core/internal/storage"
	"github.com/sectra/slidetap-core/internal/store"
	"github.com/sectra/slidetap-core/internal/validate"
)

// app bundles the wired engine collaborators a single CLI invocation
// needs, built once from --schema/--db/--storage and the on-disk
// config.Load() file (§4's module trio + §6's external collaborators).
// The image codec is always the fake placeholder (spec.md §1
// Non-goals exclude real WSI encoding); a deployment wires a real one
// by embedding this package and calling pipeline.New directly.
type app struct {
	store     *store.Store
	graph     *store.Graph
	registry  *schema.Registry
	mappers   *mapper.Engine
	attrs     *attribute.Engine
	validator *validate.Validator
	fsStorage *storage.Storage
	pipeline  *pipeline.Pipeline
	coord     *lifecycle.Coordinator
	importer  *importer.Importer
}

func (a *app) Close() error {
	a.pipeline.Stop()
	return a.store.Close()
}

func wireApp() (*app, error) {
	if schemaPath == "" {
		return nil, fmt.Errorf("--schema is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	root := storageRoot
	if root == "" {
		root = cfg.Storage.Root
	}
	if root == "" {
		root = "./slidetap-storage"
	}

	registry, err := schema.LoadFile(schemaPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	fsStorage, err := storage.New(root)
	if err != nil {
		st.Close()
		return nil, err
	}

	graph := store.NewGraph(st, registry)
	mappers := mapper.New(registry)
	attrs := attribute.New(registry)
	validator := validate.New(registry)

	coord := lifecycle.New(graph, registry, mappers, attrs, validator, nil)
	pl := pipeline.New(graph, coord, registry, fsStorage, cfg.Pipeline, pipeline.Options{
		Dicomizer:        codec.NewFakeCodec(),
		ThumbnailEncoder: codec.NewFakeCodec(),
	})
	coord.SetPipeline(pl)

	return &app{
		store:     st,
		graph:     graph,
		registry:  registry,
		mappers:   mappers,
		attrs:     attrs,
		validator: validator,
		fsStorage: fsStorage,
		pipeline:  pl,
		coord:     coord,
		importer:  importer.New(registry, attrs),
	}, nil
}
