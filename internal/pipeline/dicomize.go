package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sectra/slidetap-core/internal/codec"
	"github.com/sectra/slidetap-core/internal/model"
)

// DicomizeConfig configures the Dicomize step (§4.G "Configurable
// {levels to include, include_labels, include_overviews,
// worker_threads}").
type DicomizeConfig struct {
	Levels           []int
	IncludeLabels    bool
	IncludeOverviews bool
	WorkerThreads    int
	TileSize         int
}

// DicomizeStep converts an image's source files into the target binary
// WSI format in a scratch directory (§4.G "Dicomize"). Its scratch
// directory becomes the image's new working path; DicomizeStep itself
// never deletes it (Cleanup is a no-op) because subsequent steps, and
// ultimately Store, still need to read from it - the pipeline-level
// bookkeeping in Task removes superseded scratch directories once a
// later step's output supersedes this one.
type DicomizeStep struct {
	Codec  codec.Dicomizer
	Config DicomizeConfig
}

func (s *DicomizeStep) Name() string { return "dicomize" }

func (s *DicomizeStep) Run(ctx context.Context, sc *StepContext) (string, error) {
	sources, err := listSourceFiles(sc.Path)
	if err != nil {
		return "", fmt.Errorf("dicomize: list sources in %s: %w", sc.Path, err)
	}
	if len(sources) == 0 {
		return "", fmt.Errorf("dicomize: no source files in %s", sc.Path)
	}

	destDir, err := os.MkdirTemp("", "slidetap-dicomize-*")
	if err != nil {
		return "", fmt.Errorf("dicomize: scratch dir: %w", err)
	}

	tileSize := s.Config.TileSize
	if tileSize <= 0 {
		tileSize = 512
	}
	files, err := s.Codec.Dicomize(ctx, sources, destDir, tileSize)
	if err != nil {
		os.RemoveAll(destDir)
		return "", fmt.Errorf("dicomize: %w", err)
	}

	imageFiles := make([]model.ImageFile, 0, len(files))
	for _, f := range files {
		imageFiles = append(imageFiles, model.ImageFile{UID: model.NewUID(), Filename: f.Filename})
	}
	sc.Image.Files = imageFiles
	sc.Image.Format = model.ImageFormatDicomWSI

	if err := writeMetadataBlock(sc, destDir); err != nil {
		os.RemoveAll(destDir)
		return "", fmt.Errorf("dicomize: write metadata: %w", err)
	}

	return destDir, nil
}

func (s *DicomizeStep) Cleanup(sc *StepContext) {}

// listSourceFiles enumerates the regular files directly under dir,
// sorted by name, as Dicomizer source input.
func listSourceFiles(dir string) ([]codec.SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	out := make([]codec.SourceFile, 0, len(names))
	for _, name := range names {
		out = append(out, codec.SourceFile{Path: filepath.Join(dir, name), Filename: name})
	}
	return out, nil
}

// dicomizeMetadata is the metadata block the Dicomize step emits
// alongside the converted files (§4.G "Emits a metadata block derived
// from schema + item attributes"): the image's schema-declared tags
// and their effective display values, plus the attached sample
// identifiers.
type dicomizeMetadata struct {
	ImageSchemaUID string            `json:"image_schema_uid"`
	Identifier     string            `json:"identifier"`
	Attributes     map[string]string `json:"attributes"`
	SampleUIDs     []string          `json:"sample_uids"`
}

func writeMetadataBlock(sc *StepContext, destDir string) error {
	meta := dicomizeMetadata{
		ImageSchemaUID: sc.Image.SchemaUID.String(),
		Identifier:     sc.Image.Identifier,
		Attributes:     make(map[string]string, len(sc.Image.Attributes)),
	}
	for tag, attr := range sc.Image.Attributes {
		if attr == nil || attr.DisplayValue == nil {
			continue
		}
		meta.Attributes[tag] = *attr.DisplayValue
	}
	for uid := range sc.Image.SampleUIDs {
		meta.SampleUIDs = append(meta.SampleUIDs, uid.String())
	}
	sort.Strings(meta.SampleUIDs)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "metadata.json"), data, 0o644)
}
