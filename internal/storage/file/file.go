// Package file implements storage.Backend against the local filesystem.
package file

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

const (
	dirMode  = 0o750
	fileMode = 0o640
)

func init() {
	storage.Register("file", func(rawURL string) (storage.Backend, error) {
		return Open(pathFromURL(rawURL))
	})
}

func pathFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return rawURL
}

// Backend roots all operations under Dir.
type Backend struct {
	Dir string
}

// Open returns a Backend rooted at dir, creating it if it does not exist.
func Open(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "creating output directory", err)
	}
	return &Backend{Dir: dir}, nil
}

// RequireEmpty returns a PreconditionError if Dir already contains files,
// enforcing dump's "fresh output directory" precondition.
func (b *Backend) RequireEmpty() error {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "reading output directory", err)
	}
	if len(entries) > 0 {
		return shellerr.New(shellerr.PreconditionError, "output directory is not empty")
	}
	return nil
}

func (b *Backend) resolve(name string) string {
	return filepath.Join(b.Dir, filepath.FromSlash(name))
}

func (b *Backend) OpenRead(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(b.resolve(name))
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "opening "+name, err)
	}
	return f, nil
}

func (b *Backend) OpenWrite(_ context.Context, name string) (io.WriteCloser, error) {
	full := b.resolve(name)
	if err := os.MkdirAll(filepath.Dir(full), dirMode); err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "creating parent directory for "+name, err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "creating "+name, err)
	}
	return &syncOnCloseFile{File: f}, nil
}

// syncOnCloseFile fsyncs before Close so a committed write survives a crash
// before the containing directory's dentry is flushed by the OS.
type syncOnCloseFile struct {
	*os.File
}

func (f *syncOnCloseFile) Close() error {
	if err := f.Sync(); err != nil {
		f.File.Close()
		return err
	}
	return f.File.Close()
}

func (b *Backend) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	root := b.resolve(prefix)
	err := filepath.WalkDir(b.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasPrefix(path, root) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(b.Dir, path)
		if err != nil {
			return err
		}
		out = append(out, storage.ObjectInfo{
			Name:         filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing "+prefix, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *Backend) Stat(_ context.Context, name string) (storage.ObjectInfo, error) {
	info, err := os.Stat(b.resolve(name))
	if err != nil {
		return storage.ObjectInfo{}, shellerr.Wrap(shellerr.PersistentIO, "statting "+name, err)
	}
	return storage.ObjectInfo{Name: name, Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (b *Backend) Remove(_ context.Context, name string) error {
	if err := os.Remove(b.resolve(name)); err != nil && !os.IsNotExist(err) {
		return shellerr.Wrap(shellerr.PersistentIO, "removing "+name, err)
	}
	return nil
}

func (b *Backend) SupportsRandomRead() bool { return true }
