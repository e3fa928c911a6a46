// Package fsx is the filesystem collaborator for the file-serving middleware.
// It narrows a vfs.FileSystem down to the three operations the middleware
// needs: stat, directory listing, and opening a readable/seekable file.
// Production code passes osfs.New(); tests pass memoryfs.New().
package fsx

import (
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// FileMeta is a read-only snapshot of a stat result. Staleness between stat
// and stream is an accepted race, not guarded against.
type FileMeta struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// File is a readable byte stream positioned with Seek.
type File interface {
	io.Reader
	io.Seeker
	io.Closer
}

// FileSystem exposes the filesystem operations used during request handling.
type FileSystem interface {
	Stat(path string) (FileMeta, error)
	ReadDir(path string) ([]string, error)
	Open(path string) (File, error)
}

// New returns a FileSystem backed by the given vfs filesystem.
func New(backing vfs.FileSystem) FileSystem {
	return &vfsFS{backing: backing}
}

type vfsFS struct {
	backing vfs.FileSystem
}

func (v *vfsFS) Stat(path string) (FileMeta, error) {
	fi, err := v.backing.Stat(path)
	if err != nil {
		return FileMeta{}, err
	}
	return FileMeta{Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

func (v *vfsFS) ReadDir(path string) ([]string, error) {
	infos, err := vfs.ReadDir(v.backing, path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names, nil
}

func (v *vfsFS) Open(path string) (File, error) {
	return v.backing.Open(path)
}

// IsNotExist reports whether err means the target does not exist.
func IsNotExist(err error) bool {
	return vfs.IsErrNotExist(err) || errors.Is(err, fs.ErrNotExist)
}
