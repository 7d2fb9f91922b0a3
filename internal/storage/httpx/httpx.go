// Package httpx implements storage.Backend over plain HTTP(S): read-only
// GET streaming for load's source URL, and full-overwrite PUT for
// OCI/S3-style pre-authenticated request (PAR) write targets.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

func init() {
	storage.Register("http", func(rawURL string) (storage.Backend, error) { return Open(rawURL), nil })
	storage.Register("https", func(rawURL string) (storage.Backend, error) { return Open(rawURL), nil })
}

// Backend treats BaseURL as the root object and does not support List
// beyond that single object; dump's PAR mode writes a manifest mapping
// every artifact to its own pre-signed BaseURL instead of relying on
// directory listing.
type Backend struct {
	BaseURL string
	Client  *http.Client
}

// Open returns a Backend whose single addressable object is baseURL.
func Open(baseURL string) *Backend {
	return &Backend{BaseURL: baseURL, Client: &http.Client{Timeout: 5 * time.Minute}}
}

func (b *Backend) OpenRead(ctx context.Context, _ string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL, nil)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.ArgumentError, "building GET request", err)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.TransientIO, "GET "+b.BaseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode, "GET "+b.BaseURL)
	}
	return resp.Body, nil
}

// OpenWrite buffers the whole object in memory and PUTs it on Close. PAR
// targets are pre-signed for a single whole-object PUT; there is no
// streaming multipart form for plain HTTP PUT the way there is for S3.
func (b *Backend) OpenWrite(ctx context.Context, _ string) (io.WriteCloser, error) {
	return &parWriter{ctx: ctx, backend: b}, nil
}

type parWriter struct {
	ctx     context.Context
	backend *Backend
	buf     bytes.Buffer
}

func (w *parWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *parWriter) Close() error {
	req, err := http.NewRequestWithContext(w.ctx, http.MethodPut, w.backend.BaseURL, bytes.NewReader(w.buf.Bytes()))
	if err != nil {
		return shellerr.Wrap(shellerr.ArgumentError, "building PUT request", err)
	}
	req.ContentLength = int64(w.buf.Len())
	resp, err := w.backend.Client.Do(req)
	if err != nil {
		return shellerr.Wrap(shellerr.TransientIO, "PUT "+w.backend.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, "PUT "+w.backend.BaseURL)
	}
	return nil
}

func (b *Backend) List(_ context.Context, _ string) ([]storage.ObjectInfo, error) {
	return nil, shellerr.New(shellerr.ArgumentError, "http backend does not support listing; use the PAR manifest")
}

func (b *Backend) Stat(ctx context.Context, _ string) (storage.ObjectInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.BaseURL, nil)
	if err != nil {
		return storage.ObjectInfo{}, shellerr.Wrap(shellerr.ArgumentError, "building HEAD request", err)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return storage.ObjectInfo{}, shellerr.Wrap(shellerr.TransientIO, "HEAD "+b.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return storage.ObjectInfo{}, classifyStatus(resp.StatusCode, "HEAD "+b.BaseURL)
	}
	return storage.ObjectInfo{Name: b.BaseURL, Size: resp.ContentLength}, nil
}

func (b *Backend) Remove(_ context.Context, _ string) error {
	return shellerr.New(shellerr.ArgumentError, "http backend does not support remove")
}

func (b *Backend) SupportsRandomRead() bool { return false }

func classifyStatus(code int, action string) error {
	msg := fmt.Sprintf("%s: unexpected status %d", action, code)
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return shellerr.New(shellerr.TransientIO, msg)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return shellerr.New(shellerr.ServerError, msg)
	default:
		return shellerr.New(shellerr.PersistentIO, msg)
	}
}
