package storage

import (
	"context"
	"io"
)

// Codec mirrors internal/compression.Codec, declared locally so this
// package (used by compression's own callers) never imports compression
// and risks a cycle.
type Codec interface {
	Wrap(w io.Writer) io.WriteCloser
	Unwrap(r io.Reader) (io.ReadCloser, error)
	Extension() string
}

// compressingBackend wraps every write through codec before it reaches the
// underlying Backend, and appends the codec's extension to written names.
type compressingBackend struct {
	Backend
	codec Codec
}

// WithCompression decorates backend so every OpenWrite stream is piped
// through codec, and names gain the codec's extension (".gz", ".zst", or
// nothing for the none codec) — the C10 writer passes already-dialect-only
// names and lets the backend decide the final on-disk extension.
func WithCompression(backend Backend, codec Codec) Backend {
	return &compressingBackend{Backend: backend, codec: codec}
}

func (b *compressingBackend) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	wc, err := b.Backend.OpenWrite(ctx, name+b.codec.Extension())
	if err != nil {
		return nil, err
	}
	return &compressingWriter{inner: b.codec.Wrap(wc), underlying: wc}, nil
}

func (b *compressingBackend) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := b.Backend.OpenRead(ctx, name+b.codec.Extension())
	if err != nil {
		return nil, err
	}
	unwrapped, err := b.codec.Unwrap(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return unwrapped, nil
}

type compressingWriter struct {
	inner      io.WriteCloser
	underlying io.WriteCloser
}

func (w *compressingWriter) Write(p []byte) (int, error) { return w.inner.Write(p) }

func (w *compressingWriter) Close() error {
	if err := w.inner.Close(); err != nil {
		w.underlying.Close()
		return err
	}
	return w.underlying.Close()
}
