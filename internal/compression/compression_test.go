package compression

import (
	"bytes"
	"io"
	"testing"
)

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		wantExt string
		wantErr bool
	}{
		{"", "", false},
		{"none", "", false},
		{"gzip", ".gz", false},
		{"zstd", ".zst", false},
		{"bzip2", "", true},
	}
	for _, tt := range tests {
		c, err := ByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if got := c.Extension(); got != tt.wantExt {
			t.Errorf("ByName(%q).Extension() = %q, want %q", tt.name, got, tt.wantExt)
		}
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	for _, name := range []string{"none", "gzip", "zstd"} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) error = %v", name, err)
		}

		var buf bytes.Buffer
		w := c.Wrap(&buf)
		payload := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility, repeated for compressibility")
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("%s: Write() error = %v", name, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("%s: Close() error = %v", name, err)
		}

		r, err := c.Unwrap(&buf)
		if err != nil {
			t.Fatalf("%s: Unwrap() error = %v", name, err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("%s: ReadAll() error = %v", name, err)
		}
		r.Close()

		if !bytes.Equal(got, payload) {
			t.Errorf("%s: round trip = %q, want %q", name, got, payload)
		}
	}
}

func TestGzipCodec_UnwrapRejectsGarbage(t *testing.T) {
	c, _ := ByName("gzip")
	if _, err := c.Unwrap(bytes.NewReader([]byte("not gzip"))); err == nil {
		t.Fatal("expected error unwrapping non-gzip data")
	}
}

func TestZstdCodec_UnwrapRejectsGarbage(t *testing.T) {
	c, _ := ByName("zstd")
	if _, err := c.Unwrap(bytes.NewReader([]byte("not zstd"))); err == nil {
		t.Fatal("expected error unwrapping non-zstd data")
	}
}
