package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sectra/slidetap-core/internal/codec"
	"github.com/sectra/slidetap-core/internal/storage"
)

// StoreStep moves the processed directory to its final storage
// location, named by identifier or pseudonym (§4.G "Store", §6
// "store_image"). Its returned path is the final outbox directory.
type StoreStep struct{}

func (s *StoreStep) Name() string { return "store" }

func (s *StoreStep) Run(ctx context.Context, sc *StepContext) (string, error) {
	files := make([]codec.DicomizedFile, 0, len(sc.Image.Files))
	for _, f := range sc.Image.Files {
		files = append(files, codec.DicomizedFile{Path: filepath.Join(sc.Path, f.Filename), Filename: f.Filename})
	}

	name := storage.ResolveName(sc.Image.Identifier, sc.Image.Pseudonym, sc.UsePseudonyms)
	finalDir, stored, err := sc.Storage.StoreImage(ctx, name, files)
	if err != nil {
		return "", fmt.Errorf("store: %w", err)
	}
	sc.Image.Files = stored
	return finalDir, nil
}

func (s *StoreStep) Cleanup(sc *StepContext) {}
