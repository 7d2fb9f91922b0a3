package output

import (
	"io"
	"time"

	"github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/topology"
)

// Renderer defines the output interface shared by dump, load, and
// diagnostic commands.
type Renderer interface {
	RenderTopology(conn mysql.ConnectionConfig, topo *topology.Info)
	RenderDumpSummary(summary *DumpSummary)
	RenderLoadSummary(summary *LoadSummary)
}

// DumpSummary is the report shown after dump_instance/dump_schemas/
// dump_tables/export_table finish (or fail).
type DumpSummary struct {
	OutputURL             string
	ConsistentSnapshot    bool
	Tables                int
	Chunks                int
	ArtifactBytes         int64
	CompressedBytes       int64
	Duration              time.Duration
	CompatibilityFindings []string
	Warnings              []string
	DumpComplete          bool
}

// LoadSummary is the report shown after load_dump/import_table finish (or
// fail partway, in which case Resumed reflects a prior progress log).
type LoadSummary struct {
	SourceURL       string
	Resumed         bool
	TablesLoaded    int
	ChunksLoaded    int
	ChunksSkipped   int
	RowsLoaded      int64
	DeferredIndexes int
	GrantErrors     int
	Duration        time.Duration
	Warnings        []string
}

// NewRenderer creates a renderer for the given format.
func NewRenderer(format string, w io.Writer) Renderer {
	switch format {
	case "json":
		return &JSONRenderer{w: w}
	case "markdown":
		return &MarkdownRenderer{w: w}
	case "plain":
		return &PlainRenderer{w: w}
	default:
		return &TextRenderer{w: w}
	}
}
