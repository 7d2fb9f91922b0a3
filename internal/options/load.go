package options

import (
	"time"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

// DeferIndexMode names which secondary indexes are deferred: off, fulltext
// or all. LoadOptions.Validate checks it; the load pipeline does not strip
// or replay indexes, so they are created with their tables.
type DeferIndexMode string

const (
	DeferNone     DeferIndexMode = "off"
	DeferFulltext DeferIndexMode = "fulltext"
	DeferAll      DeferIndexMode = "all"
)

// GrantErrorPolicy controls how the Load Scheduler reacts to failed GRANT
// or CREATE USER statements.
type GrantErrorPolicy string

const (
	GrantAbort       GrantErrorPolicy = "abort"
	GrantDropAccount GrantErrorPolicy = "drop_account"
	GrantIgnore      GrantErrorPolicy = "ignore"
)

// LoadOptions is the fixed schema for load_dump.
type LoadOptions struct {
	SourceURL string

	Threads           int
	BackgroundThreads int

	IncludeSchemas []string
	ExcludeSchemas []string
	IncludeTables  []string
	ExcludeTables  []string

	LoadDDL   bool
	LoadData  bool
	LoadUsers bool

	DeferTableIndexes     DeferIndexMode
	MaxBytesPerTransaction string // unit-suffixed; 0/"" = unbounded

	HandleGrantErrors GrantErrorPolicy

	WaitDumpTimeout time.Duration

	ResetProgress bool
	ProgressFile  string

	CharacterSet   string
	SessionInitSQL []string

	Ocimds bool

	maxBytesPerTransactionN int64
}

func (o *LoadOptions) MaxBytesPerTransactionN() int64 { return o.maxBytesPerTransactionN }

func (o *LoadOptions) Validate() error {
	if o.SourceURL == "" {
		return shellerr.New(shellerr.ArgumentError, "the dump source URL is required")
	}
	if o.Threads <= 0 {
		o.Threads = 4
	}
	if o.BackgroundThreads <= 0 {
		o.BackgroundThreads = 4
	}

	if !o.LoadDDL && !o.LoadData && !o.LoadUsers {
		o.LoadDDL, o.LoadData, o.LoadUsers = true, true, true
	}

	switch o.DeferTableIndexes {
	case "":
		o.DeferTableIndexes = DeferNone
	case DeferNone, DeferFulltext, DeferAll:
	default:
		return shellerr.New(shellerr.ArgumentError, "unsupported deferTableIndexes: "+string(o.DeferTableIndexes))
	}

	switch o.HandleGrantErrors {
	case "":
		o.HandleGrantErrors = GrantAbort
	case GrantAbort, GrantDropAccount, GrantIgnore:
	default:
		return shellerr.New(shellerr.ArgumentError, "unsupported handleGrantErrors: "+string(o.HandleGrantErrors))
	}

	if o.MaxBytesPerTransaction != "" {
		n, err := parsePositiveSize(o.MaxBytesPerTransaction)
		if err != nil {
			return shellerr.Wrap(shellerr.ArgumentError, "invalid maxBytesPerTransaction", err)
		}
		o.maxBytesPerTransactionN = n
	}

	if o.ProgressFile == "" {
		o.ProgressFile = "load-progress.json"
	}

	return nil
}

// ImportTableOptions is the narrower, single-table variant used by
// import_table. Threads defaults to 8 per the concurrency model.
type ImportTableOptions struct {
	Schema string
	Table  string

	SourceURL string

	Threads           int
	Dialect           Dialect
	ReplaceDuplicates bool

	MaxBytesPerTransaction string

	CharacterSet string

	maxBytesPerTransactionN int64
}

func (o *ImportTableOptions) MaxBytesPerTransactionN() int64 { return o.maxBytesPerTransactionN }

func (o *ImportTableOptions) Validate() error {
	if o.Schema == "" || o.Table == "" {
		return shellerr.New(shellerr.ArgumentError, "schema and table are required")
	}
	if o.SourceURL == "" {
		return shellerr.New(shellerr.ArgumentError, "the data source URL is required")
	}
	if o.Threads <= 0 {
		o.Threads = 8
	}
	if _, err := ResolveDialect(o.Dialect.Name, true); err != nil {
		return err
	}
	if o.MaxBytesPerTransaction != "" {
		n, err := parsePositiveSize(o.MaxBytesPerTransaction)
		if err != nil {
			return shellerr.Wrap(shellerr.ArgumentError, "invalid maxBytesPerTransaction", err)
		}
		o.maxBytesPerTransactionN = n
	}
	return nil
}
