// Package dumpwriter serializes table rows to the dialect-formatted data
// files a dump emits, handling binary-unsafe column base64 encoding, UTC
// timestamp shifting, max_allowed_packet-aware field-size tracking, and
// row-boundary chunk-file rollover.
package dumpwriter

import (
	"context"
	"encoding/base64"
	"io"
	"strconv"
	"strings"
	"time"

	internalmysql "github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

// packetSafetyFactor is the fraction of max_allowed_packet a single
// base64-encoded field's source size must stay under, per spec.md §4.10.
const packetSafetyFactor = 0.74

var binaryUnsafeTypes = map[string]bool{
	"binary": true, "varbinary": true,
	"tinyblob": true, "blob": true, "mediumblob": true, "longblob": true,
	"bit": true, "geometry": true, "point": true, "linestring": true,
	"polygon": true, "multipoint": true, "multilinestring": true,
	"multipolygon": true, "geometrycollection": true,
}

// IsBinaryUnsafe reports whether dataType (an information_schema DATA_TYPE
// value) must be base64-encoded rather than written as text.
func IsBinaryUnsafe(dataType string) bool {
	return binaryUnsafeTypes[strings.ToLower(dataType)]
}

// MaxFieldBytes returns the largest source byte size a binary-unsafe field
// may have before base64-encoding it risks exceeding max_allowed_packet.
func MaxFieldBytes(maxAllowedPacket int64) int64 {
	return int64(float64(maxAllowedPacket) * packetSafetyFactor)
}

// Writer emits rows for one table chunk in the configured dialect,
// rolling over to a new chunk file at row boundaries once the byte budget
// is reached.
type Writer struct {
	dialect          options.Dialect
	columns          []internalmysql.ColumnInfo
	tzUtc            bool
	sessionTZOffset  time.Duration
	maxAllowedPacket int64
	chunkByteBudget  int64

	backend   storage.Backend
	baseURL   string // e.g. "app/users" without extension; "@<n>" plus extension appended per chunk file
	extension string // data file extension for the dialect, e.g. ".tsv"

	current       io.WriteCloser
	bytesWritten  int64
	chunkIndex    int
	producedFiles []string
}

// ProducedFiles returns every chunk file this Writer has opened so far, in
// order. A single logical dump chunk can still span more than one file if
// the chunk planner's row-range estimate undershot bytesPerChunk and the
// writer rolled over mid-stream.
func (w *Writer) ProducedFiles() []string {
	return w.producedFiles
}

// Config bundles a Writer's fixed inputs.
type Config struct {
	Dialect          options.Dialect
	Columns          []internalmysql.ColumnInfo
	TzUtc            bool
	SessionTZOffset  time.Duration // session's @@time_zone expressed as an offset from UTC
	MaxAllowedPacket int64
	ChunkByteBudget  int64
	Backend          storage.Backend
	BaseURL          string
	Extension        string
}

// New builds a Writer and opens its first chunk file.
func New(ctx context.Context, cfg Config) (*Writer, error) {
	w := &Writer{
		dialect:          cfg.Dialect,
		columns:          cfg.Columns,
		tzUtc:            cfg.TzUtc,
		sessionTZOffset:  cfg.SessionTZOffset,
		maxAllowedPacket: cfg.MaxAllowedPacket,
		chunkByteBudget:  cfg.ChunkByteBudget,
		backend:          cfg.Backend,
		baseURL:          cfg.BaseURL,
		extension:        cfg.Extension,
	}
	if err := w.openChunk(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) chunkURL() string {
	return w.baseURL + "@" + strconv.Itoa(w.chunkIndex) + w.extension
}

func (w *Writer) openChunk(ctx context.Context) error {
	wc, err := w.backend.OpenWrite(ctx, w.chunkURL())
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "opening dump chunk file", err)
	}
	w.current = wc
	w.bytesWritten = 0
	w.producedFiles = append(w.producedFiles, w.chunkURL())
	return nil
}

// WriteRow serializes one row's values (in column order matching Columns)
// and rolls over to the next chunk file first if the predicted line would
// exceed the byte budget — rollover only ever happens at a row boundary.
func (w *Writer) WriteRow(ctx context.Context, values []any) error {
	line, err := w.formatRow(values)
	if err != nil {
		return err
	}

	if w.chunkByteBudget > 0 && w.bytesWritten > 0 && w.bytesWritten+int64(len(line)) > w.chunkByteBudget {
		if err := w.rollover(ctx); err != nil {
			return err
		}
	}

	n, err := w.current.Write([]byte(line))
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "writing dump row", err)
	}
	w.bytesWritten += int64(n)
	return nil
}

func (w *Writer) rollover(ctx context.Context) error {
	if err := w.current.Close(); err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "closing dump chunk file", err)
	}
	w.chunkIndex++
	return w.openChunk(ctx)
}

// Close flushes and closes the current chunk file.
func (w *Writer) Close() error {
	if err := w.current.Close(); err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "closing dump chunk file", err)
	}
	return nil
}

func (w *Writer) formatRow(values []any) (string, error) {
	fields := make([]string, len(values))
	for i, v := range values {
		col := internalmysql.ColumnInfo{}
		if i < len(w.columns) {
			col = w.columns[i]
		}
		f, err := w.formatField(col, v)
		if err != nil {
			return "", err
		}
		fields[i] = f
	}
	return strings.Join(fields, w.dialect.FieldsTerminatedBy) + w.dialect.LinesTerminatedBy, nil
}

func (w *Writer) formatField(col internalmysql.ColumnInfo, v any) (string, error) {
	if v == nil {
		return `\N`, nil
	}

	if IsBinaryUnsafe(col.Type) {
		raw, ok := v.([]byte)
		if !ok {
			return "", shellerr.New(shellerr.IntegrityError, "binary-unsafe column "+col.Name+" did not scan as []byte")
		}
		if max := MaxFieldBytes(w.maxAllowedPacket); max > 0 && int64(len(raw)) > max {
			return "", shellerr.New(shellerr.PreconditionError, "column "+col.Name+" exceeds 0.74*max_allowed_packet once base64-encoded")
		}
		return w.enclose(base64.StdEncoding.EncodeToString(raw)), nil
	}

	s, err := w.stringify(col, v)
	if err != nil {
		return "", err
	}
	return w.enclose(w.escape(s)), nil
}

func (w *Writer) stringify(col internalmysql.ColumnInfo, v any) (string, error) {
	switch val := v.(type) {
	case []byte:
		s := string(val)
		if w.tzUtc && strings.EqualFold(col.Type, "timestamp") {
			return w.shiftToUTC(s)
		}
		return s, nil
	case string:
		return val, nil
	default:
		return toString(val), nil
	}
}

func (w *Writer) shiftToUTC(s string) (string, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return s, nil // not a plain timestamp literal (e.g. already has fractional seconds); leave as-is
	}
	return t.Add(-w.sessionTZOffset).UTC().Format("2006-01-02 15:04:05"), nil
}

func (w *Writer) escape(s string) string {
	esc := w.dialect.FieldsEscapedBy
	if esc == "" {
		return s
	}
	s = strings.ReplaceAll(s, esc, esc+esc)
	if w.dialect.FieldsEnclosedBy != "" {
		s = strings.ReplaceAll(s, w.dialect.FieldsEnclosedBy, esc+w.dialect.FieldsEnclosedBy)
	}
	s = strings.ReplaceAll(s, w.dialect.FieldsTerminatedBy, esc+w.dialect.FieldsTerminatedBy)
	s = strings.ReplaceAll(s, "\n", esc+"n")
	s = strings.ReplaceAll(s, "\r", esc+"r")
	return s
}

func (w *Writer) enclose(s string) string {
	if w.dialect.FieldsEnclosedBy == "" {
		return s
	}
	if w.dialect.FieldsOptEnclosed && !needsEnclosing(s, w.dialect) {
		return s
	}
	return w.dialect.FieldsEnclosedBy + s + w.dialect.FieldsEnclosedBy
}

func needsEnclosing(s string, d options.Dialect) bool {
	return strings.Contains(s, d.FieldsTerminatedBy) || strings.Contains(s, d.FieldsEnclosedBy) ||
		strings.Contains(s, "\n") || strings.Contains(s, "\r")
}

func toString(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}
