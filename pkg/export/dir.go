package export

import (
	"context"
	"log"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/storage"
)

// schemaDirNode lists one identifier/pseudonym subdirectory per
// exported image of a single item-schema.
type schemaDirNode struct {
	fs.Inode
	images  []*model.Image
	storage *storage.Storage
	debug   bool
}

var _ = (fs.NodeReaddirer)((*schemaDirNode)(nil))
var _ = (fs.NodeLookuper)((*schemaDirNode)(nil))

func (n *schemaDirNode) find(name string) *model.Image {
	for _, img := range n.images {
		if storage.ResolveName(img.Identifier, img.Pseudonym, true) == name {
			return img
		}
	}
	return nil
}

func (n *schemaDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(n.images))
	for _, img := range n.images {
		entries = append(entries, fuse.DirEntry{
			Name: storage.ResolveName(img.Identifier, img.Pseudonym, true),
			Mode: fuse.S_IFDIR,
		})
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (n *schemaDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	img := n.find(name)
	if img == nil {
		return nil, syscall.ENOENT
	}
	child := n.NewInode(ctx, &imageDirNode{image: img, storage: n.storage, debug: n.debug},
		fs.StableAttr{Mode: fuse.S_IFDIR, Ino: stableHash("image:" + img.UID.String())})
	return child, fs.OK
}

// imageDirNode lists one exported image's stored files plus its
// thumbnail, if one was rendered.
type imageDirNode struct {
	fs.Inode
	image   *model.Image
	storage *storage.Storage
	debug   bool
}

var _ = (fs.NodeReaddirer)((*imageDirNode)(nil))
var _ = (fs.NodeLookuper)((*imageDirNode)(nil))

func (n *imageDirNode) name() string {
	return storage.ResolveName(n.image.Identifier, n.image.Pseudonym, true)
}

func (n *imageDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(n.image.Files)+1)
	for _, f := range n.image.Files {
		entries = append(entries, fuse.DirEntry{Name: f.Filename, Mode: fuse.S_IFREG})
	}
	if n.image.ThumbnailPath != nil {
		entries = append(entries, fuse.DirEntry{Name: "thumbnail.jpg", Mode: fuse.S_IFREG})
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (n *imageDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if name == "thumbnail.jpg" && n.image.ThumbnailPath != nil {
		path := n.storage.ThumbnailFilePath(n.name())
		child := n.NewInode(ctx, &fileNode{path: path}, fs.StableAttr{Mode: fuse.S_IFREG, Ino: stableHash(path)})
		return child, fs.OK
	}
	for _, f := range n.image.Files {
		if f.Filename != name {
			continue
		}
		path := n.storage.ImageFilePath(n.name(), f.Filename)
		child := n.NewInode(ctx, &fileNode{path: path}, fs.StableAttr{Mode: fuse.S_IFREG, Ino: stableHash(path)})
		return child, fs.OK
	}
	if n.debug {
		log.Printf("[export] lookup miss in image dir %s for %q", n.name(), name)
	}
	return nil, syscall.ENOENT
}
