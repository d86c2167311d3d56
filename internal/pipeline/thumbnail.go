package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/sectra/slidetap-core/internal/codec"
	"github.com/sectra/slidetap-core/internal/storage"
)

// ThumbnailStep reads the processed image's files at a capped
// resolution, re-encodes a JPEG thumbnail, and writes it via the
// Storage collaborator (§4.G "Thumbnail"). It does not change the
// image's working path.
type ThumbnailStep struct {
	Codec codec.ThumbnailEncoder
	Size  int
}

func (s *ThumbnailStep) Name() string { return "thumbnail" }

func (s *ThumbnailStep) Run(ctx context.Context, sc *StepContext) (string, error) {
	files := make([]codec.DicomizedFile, 0, len(sc.Image.Files))
	for _, f := range sc.Image.Files {
		files = append(files, codec.DicomizedFile{Path: filepath.Join(sc.Path, f.Filename), Filename: f.Filename})
	}

	size := s.Size
	if size <= 0 {
		size = 256
	}

	var buf bytes.Buffer
	if err := s.Codec.EncodeThumbnail(ctx, files, size, &buf); err != nil {
		return "", fmt.Errorf("thumbnail: encode: %w", err)
	}

	name := storage.ResolveName(sc.Image.Identifier, sc.Image.Pseudonym, sc.UsePseudonyms)
	path, err := sc.Storage.StoreThumbnail(name, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("thumbnail: store: %w", err)
	}
	sc.Image.ThumbnailPath = &path
	return sc.Path, nil
}

func (s *ThumbnailStep) Cleanup(sc *StepContext) {}
