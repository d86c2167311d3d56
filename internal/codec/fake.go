package codec

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
)

// FakeCodec is a stand-in Dicomizer/ThumbnailEncoder used by tests and
// the CLI's demo mode. Dicomize copies each source file to destDir
// as "tile-NNNN.dcm" (NNNN = source index) instead of performing real
// tiling;
// EncodeThumbnail renders a solid-color placeholder JPEG of the
// requested size. Neither does anything resembling real WSI encoding
// (spec.md §1 Non-goals).
type FakeCodec struct{}

// NewFakeCodec constructs a FakeCodec.
func NewFakeCodec() *FakeCodec { return &FakeCodec{} }

func (FakeCodec) Dicomize(ctx context.Context, sources []SourceFile, destDir string, tileSize int) ([]DicomizedFile, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("codec: mkdir %s: %w", destDir, err)
	}
	out := make([]DicomizedFile, 0, len(sources))
	for i, src := range sources {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("codec: read source %s: %w", src.Path, err)
		}
		filename := fmt.Sprintf("tile-%04d.dcm", i)
		destPath := filepath.Join(destDir, filename)
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("codec: write %s: %w", destPath, err)
		}
		out = append(out, DicomizedFile{Path: destPath, Filename: filename})
	}
	return out, nil
}

func (FakeCodec) EncodeThumbnail(ctx context.Context, files []DicomizedFile, size int, w io.Writer) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if size <= 0 {
		size = 256
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	shade := uint8(len(files)%200 + 32)
	fill := color.RGBA{R: shade, G: shade, B: shade, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, fill)
		}
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 80})
}
