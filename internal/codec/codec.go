// Package codec declares the image-encoding contracts the Image
// Pipeline depends on (§4.G, §6) plus a fake in-process implementation
// used by tests and the CLI demo mode. A real whole-slide-image codec
// is explicitly out of scope (spec.md §1 "does not itself encode
// images"); this package exists so the pipeline has a concrete,
// swappable collaborator to run end to end.
package codec

import (
	"context"
	"io"
)

// SourceFile is one file downloaded/staged for an image awaiting
// pre-processing, identified by its on-disk path.
type SourceFile struct {
	Path     string
	Filename string
}

// DicomizedFile is one output file produced by dicomization.
type DicomizedFile struct {
	Path     string
	Filename string
}

// Dicomizer converts a set of source image files into DICOM WSI files
// during pre-processing (§4.G step "pre-process: dicomize").
type Dicomizer interface {
	Dicomize(ctx context.Context, sources []SourceFile, destDir string, tileSize int) ([]DicomizedFile, error)
}

// ThumbnailEncoder renders a thumbnail JPEG from a set of (dicomized)
// image files during post-processing (§4.G step "post-process:
// thumbnail").
type ThumbnailEncoder interface {
	EncodeThumbnail(ctx context.Context, files []DicomizedFile, size int, w io.Writer) error
}
