package export

import (
	"context"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// fileNode is a read-only view onto one real file under the Storage
// root. Content is never buffered in memory wholesale — each Read
// proxies straight to the backing file, since WSI tile/companion files
// can be large.
type fileNode struct {
	fs.Inode
	path string
}

var _ = (fs.NodeOpener)((*fileNode)(nil))
var _ = (fs.NodeReader)((*fileNode)(nil))
var _ = (fs.NodeGetattrer)((*fileNode)(nil))

func (n *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	f, err := os.Open(n.path)
	if err != nil {
		return nil, 0, syscall.ENOENT
	}
	return &fileHandle{f: f}, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (n *fileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info, err := os.Stat(n.path)
	if err != nil {
		return syscall.ENOENT
	}
	out.Mode = 0o444
	out.Size = uint64(info.Size())
	out.Mtime = uint64(info.ModTime().Unix())
	return fs.OK
}

func (n *fileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if fh, ok := f.(*fileHandle); ok {
		return fh.read(dest, off)
	}
	fl, err := os.Open(n.path)
	if err != nil {
		return nil, syscall.ENOENT
	}
	defer fl.Close()
	return (&fileHandle{f: fl}).read(dest, off)
}

type fileHandle struct {
	f *os.File
}

func (h *fileHandle) read(dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := h.f.ReadAt(dest, off)
	if err != nil && n == 0 {
		return fuse.ReadResultData(nil), fs.OK
	}
	return fuse.ReadResultData(dest[:n]), fs.OK
}

var _ = (fs.FileReleaser)((*fileHandle)(nil))

func (h *fileHandle) Release(ctx context.Context) syscall.Errno {
	h.f.Close()
	return fs.OK
}
