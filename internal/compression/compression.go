// Package compression defines the Codec interface dump/load artifacts are
// wrapped and unwrapped through, with none, gzip, and zstd
// implementations.
package compression

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Codec wraps and unwraps a single artifact stream. Wrap never returns an
// error since compressors only fail on write; Unwrap can fail immediately
// (e.g. a corrupt zstd frame header).
type Codec interface {
	Wrap(w io.Writer) io.WriteCloser
	Unwrap(r io.Reader) (io.ReadCloser, error)
	Extension() string
}

// ByName resolves a codec name ("none", "gzip", "zstd") to a Codec.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "none":
		return noneCodec{}, nil
	case "gzip":
		return gzipCodec{}, nil
	case "zstd":
		return zstdCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown compression codec %q", name)
	}
}

type noneCodec struct{}

func (noneCodec) Wrap(w io.Writer) io.WriteCloser   { return nopWriteCloser{w} }
func (noneCodec) Unwrap(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil }
func (noneCodec) Extension() string                 { return "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type gzipCodec struct{}

func (gzipCodec) Wrap(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }

func (gzipCodec) Unwrap(r io.Reader) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return gr, nil
}

func (gzipCodec) Extension() string { return ".gz" }

type zstdCodec struct{}

func (zstdCodec) Wrap(w io.Writer) io.WriteCloser {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		// zstd.NewWriter only fails on invalid options; none are supplied here.
		panic(fmt.Sprintf("compression: building zstd writer: %v", err))
	}
	return zw
}

func (zstdCodec) Unwrap(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}
	return zr.IOReadCloser(), nil
}

func (zstdCodec) Extension() string { return ".zst" }
