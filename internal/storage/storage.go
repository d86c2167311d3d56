// Package storage implements the filesystem-backed Storage collaborator
// (§6): outbox layout, image/thumbnail persistence, pseudonym and
// metadata storage, checksum manifests. Path/embedding conventions and
// the interface-over-driver split follow this module's internal/store
// package.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/sectra/slidetap-core/internal/codec"
	"github.com/sectra/slidetap-core/internal/model"
)

// Storage is a filesystem-backed implementation of the core's Storage
// contract (§6). Layout under root, where <name> is the image's
// identifier or pseudonym (see ResolveName):
//
//	<root>/images/<name>/<files...>
//	<root>/images/<name>/checksums.sha256
//	<root>/thumbnails/<name>.jpg
//	<root>/projects/<project-uid>/pseudonyms.json
//	<root>/projects/<project-uid>/metadata.json
type Storage struct {
	root string
}

// New constructs a Storage rooted at dir, creating it if necessary.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", dir, err)
	}
	return &Storage{root: dir}, nil
}

func (s *Storage) imageDir(name string) string {
	return filepath.Join(s.root, "images", name)
}

func (s *Storage) thumbnailPath(name string) string {
	return filepath.Join(s.root, "thumbnails", name+".jpg")
}

func (s *Storage) projectDir(projectUID model.UID) string {
	return filepath.Join(s.root, "projects", projectUID.String())
}

// ResolveName picks the directory/file stem store_image and
// store_thumbnail key an item under (§6: "target name = pseudonym if
// requested and available, else identifier").
func ResolveName(identifier string, pseudonym *string, usePseudonym bool) string {
	if usePseudonym && pseudonym != nil && *pseudonym != "" {
		return *pseudonym
	}
	return identifier
}

// StoreImage persists dicomized files under the image's outbox
// directory, named by identifier or pseudonym (§6 "store_image"), and
// writes a SHA-256 checksum manifest alongside them (checksums.sha256),
// supplementing §6's store_image with the integrity verification
// bigpicture_export's own checksum tooling performs. Returns the
// folder path and the stored file list.
func (s *Storage) StoreImage(ctx context.Context, name string, files []codec.DicomizedFile) (string, []model.ImageFile, error) {
	dir := s.imageDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}

	stored := make([]model.ImageFile, 0, len(files))
	checksums := make([]string, 0, len(files))
	var totalBytes int64

	for _, f := range files {
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		default:
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return "", nil, fmt.Errorf("storage: read %s: %w", f.Path, err)
		}
		destPath := filepath.Join(dir, f.Filename)
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return "", nil, fmt.Errorf("storage: write %s: %w", destPath, err)
		}
		sum := sha256.Sum256(data)
		checksums = append(checksums, fmt.Sprintf("%s  %s", hex.EncodeToString(sum[:]), f.Filename))
		stored = append(stored, model.ImageFile{UID: model.NewUID(), Filename: f.Filename})
		totalBytes += int64(len(data))
	}

	sort.Strings(checksums)
	manifestPath := filepath.Join(dir, "checksums.sha256")
	manifest := ""
	for _, line := range checksums {
		manifest += line + "\n"
	}
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		return "", nil, fmt.Errorf("storage: write checksum manifest: %w", err)
	}

	log.Printf("[storage] stored image %s: %d files, %s", name, len(stored), humanize.Bytes(uint64(totalBytes)))
	return dir, stored, nil
}

// VerifyImageChecksums re-hashes every file recorded in an image's
// checksum manifest and reports any mismatch or missing file.
func (s *Storage) VerifyImageChecksums(name string) error {
	dir := s.imageDir(name)
	manifestPath := filepath.Join(dir, "checksums.sha256")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("storage: read checksum manifest: %w", err)
	}
	lines := splitLines(string(data))
	for _, line := range lines {
		if line == "" {
			continue
		}
		var want, filename string
		if _, err := fmt.Sscanf(line, "%s %s", &want, &filename); err != nil {
			return fmt.Errorf("storage: malformed checksum line %q: %w", line, err)
		}
		contents, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("storage: missing file %s: %w", filename, err)
		}
		got := sha256.Sum256(contents)
		if hex.EncodeToString(got[:]) != want {
			return fmt.Errorf("storage: checksum mismatch for %s", filename)
		}
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// StoreThumbnail writes a rendered thumbnail for an image, named by
// identifier or pseudonym like StoreImage.
func (s *Storage) StoreThumbnail(name string, data []byte) (string, error) {
	path := s.thumbnailPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir thumbnails: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write thumbnail: %w", err)
	}
	return path, nil
}

// GetThumbnail opens a previously stored thumbnail for reading.
func (s *Storage) GetThumbnail(name string) (io.ReadCloser, error) {
	f, err := os.Open(s.thumbnailPath(name))
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail for %s", model.ErrNotFound, name)
	}
	return f, nil
}

// StorePseudonyms persists a project's identifier->pseudonym map.
// Storage never derives pseudonyms itself - the map is supplied by the
// caller.
func (s *Storage) StorePseudonyms(projectUID model.UID, pseudonyms map[string]string) error {
	dir := s.projectDir(projectUID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(pseudonyms, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal pseudonyms: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "pseudonyms.json"), data, 0o644)
}

// StoreMetadata persists a project's exported metadata document
// (typically the External encoding of its item tree, §6).
func (s *Storage) StoreMetadata(projectUID model.UID, metadata any) error {
	dir := s.projectDir(projectUID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644)
}

// Root exposes the storage root, used by pkg/export to mount a
// read-only view of the outbox.
func (s *Storage) Root() string { return s.root }

// ImageFilePath resolves the on-disk path of one file belonging to a
// stored image, used by pkg/export to serve file contents without
// duplicating the outbox layout convention.
func (s *Storage) ImageFilePath(name, filename string) string {
	return filepath.Join(s.imageDir(name), filename)
}

// ThumbnailFilePath resolves the on-disk path of a stored thumbnail.
func (s *Storage) ThumbnailFilePath(name string) string {
	return s.thumbnailPath(name)
}
