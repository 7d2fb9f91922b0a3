package options

import (
	"time"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/sizeunit"
)

// DumpOptions is the fixed schema shared by dump_instance, dump_schemas,
// and dump_tables. Constructed once and validated before any I/O.
type DumpOptions struct {
	OutputURL string

	Threads       int
	BytesPerChunk string // unit-suffixed, e.g. "64M"
	MaxRate       string // unit-suffixed bytes/sec, "0" = unlimited
	Chunking      bool

	Compression string // none, gzip, zstd

	Consistent            bool
	SkipConsistencyChecks bool

	DDLOnly  bool
	DataOnly bool

	IncludeSchemas []string
	ExcludeSchemas []string
	IncludeTables  []string
	ExcludeTables  []string
	IncludeUsers   []string
	ExcludeUsers   []string
	Users          bool

	Where      map[string]string
	Partitions map[string][]string

	Dialect Dialect
	TzUtc   bool

	Ocimds        bool
	Compatibility []CompatibilityFlag

	CharacterSet  string
	SessionInitSQL []string

	ShowProgress bool
	ProgressFile string

	OsBucketName     string
	OciParManifest   bool
	OciParExpireTime time.Duration

	DryRun bool

	// resolved fields, filled in by Validate
	bytesPerChunkN int64
	maxRateN       int64
}

// BytesPerChunkN returns the parsed bytesPerChunk value. Valid only after
// Validate succeeds.
func (o *DumpOptions) BytesPerChunkN() int64 { return o.bytesPerChunkN }

// MaxRateN returns the parsed maxRate value in bytes/sec, 0 meaning
// unlimited. Valid only after Validate succeeds.
func (o *DumpOptions) MaxRateN() int64 { return o.maxRateN }

const minBytesPerChunk = 128 * 1024

func (o *DumpOptions) Validate() error {
	if o.OutputURL == "" {
		return shellerr.New(shellerr.ArgumentError, "outputUrl is required")
	}
	if o.DDLOnly && o.DataOnly {
		return shellerr.New(shellerr.ArgumentError, "ddlOnly and dataOnly are mutually exclusive")
	}
	if o.Threads <= 0 {
		o.Threads = 4
	}
	if o.BytesPerChunk == "" {
		o.BytesPerChunk = "64M"
	}
	n, err := sizeunit.Parse(o.BytesPerChunk)
	if err != nil {
		return shellerr.Wrap(shellerr.ArgumentError, "invalid bytesPerChunk", err)
	}
	if n < minBytesPerChunk {
		return shellerr.New(shellerr.ArgumentError, "bytesPerChunk must be at least 128k")
	}
	o.bytesPerChunkN = n

	if o.MaxRate == "" {
		o.MaxRate = "0"
	}
	rate, err := sizeunit.Parse(o.MaxRate)
	if err != nil {
		return shellerr.Wrap(shellerr.ArgumentError, "invalid maxRate", err)
	}
	o.maxRateN = rate

	switch o.Compression {
	case "", "none":
		o.Compression = "none"
	case "gzip", "zstd":
	default:
		return shellerr.New(shellerr.ArgumentError, "unsupported compression: "+o.Compression)
	}

	if _, err := ResolveDialect(o.Dialect.Name, false); err != nil {
		return err
	}

	if err := ValidateCompatibility(o.Compatibility); err != nil {
		return err
	}

	if o.OciParExpireTime > 0 && !o.OciParManifest {
		return shellerr.New(shellerr.ArgumentError, "ociParExpireTime requires ociParManifest")
	}
	if o.OciParManifest && o.OsBucketName == "" {
		return shellerr.New(shellerr.ArgumentError, "ociParManifest requires osBucketName")
	}

	if o.ProgressFile == "" {
		o.ProgressFile = "load-progress.json"
	}

	return nil
}

// ExportTableOptions is the narrower, single-table variant used by
// export_table. Threads defaults to 8 per the concurrency model.
type ExportTableOptions struct {
	Schema string
	Table  string

	OutputURL string

	Threads       int
	BytesPerChunk string
	MaxRate       string

	Compression string
	Dialect     Dialect
	Where       string
	Partitions  []string
	TzUtc       bool

	bytesPerChunkN int64
	maxRateN       int64
}

func (o *ExportTableOptions) BytesPerChunkN() int64 { return o.bytesPerChunkN }
func (o *ExportTableOptions) MaxRateN() int64       { return o.maxRateN }

func (o *ExportTableOptions) Validate() error {
	if o.Schema == "" || o.Table == "" {
		return shellerr.New(shellerr.ArgumentError, "schema and table are required")
	}
	if o.OutputURL == "" {
		return shellerr.New(shellerr.ArgumentError, "outputUrl is required")
	}
	if o.Threads <= 0 {
		o.Threads = 8
	}
	if o.BytesPerChunk == "" {
		o.BytesPerChunk = "64M"
	}
	n, err := sizeunit.Parse(o.BytesPerChunk)
	if err != nil {
		return shellerr.Wrap(shellerr.ArgumentError, "invalid bytesPerChunk", err)
	}
	if n < minBytesPerChunk {
		return shellerr.New(shellerr.ArgumentError, "bytesPerChunk must be at least 128k")
	}
	o.bytesPerChunkN = n

	if o.MaxRate == "" {
		o.MaxRate = "0"
	}
	rate, err := sizeunit.Parse(o.MaxRate)
	if err != nil {
		return shellerr.Wrap(shellerr.ArgumentError, "invalid maxRate", err)
	}
	o.maxRateN = rate

	switch o.Compression {
	case "", "none":
		o.Compression = "none"
	case "gzip", "zstd":
	default:
		return shellerr.New(shellerr.ArgumentError, "unsupported compression: "+o.Compression)
	}

	if _, err := ResolveDialect(o.Dialect.Name, false); err != nil {
		return err
	}

	return nil
}
