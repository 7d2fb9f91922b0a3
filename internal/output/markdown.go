package output

import (
	"fmt"
	"io"

	"github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/topology"
)

// MarkdownRenderer produces markdown output for documentation/tickets.
type MarkdownRenderer struct {
	w io.Writer
}

func (r *MarkdownRenderer) RenderDumpSummary(s *DumpSummary) {
	fmt.Fprintf(r.w, "# mysqlsh — Dump Summary\n\n")
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Output | `%s` |\n", s.OutputURL)
	fmt.Fprintf(r.w, "| Tables | %d |\n", s.Tables)
	fmt.Fprintf(r.w, "| Chunks | %d |\n", s.Chunks)
	fmt.Fprintf(r.w, "| Bytes written | %s (%s compressed) |\n", humanBytes(s.ArtifactBytes), humanBytes(s.CompressedBytes))
	fmt.Fprintf(r.w, "| Consistent snapshot | %v |\n", s.ConsistentSnapshot)
	fmt.Fprintf(r.w, "| Duration | %s |\n", s.Duration)
	fmt.Fprintf(r.w, "| Complete | %v |\n\n", s.DumpComplete)

	if len(s.CompatibilityFindings) > 0 {
		fmt.Fprintf(r.w, "## Compatibility findings\n\n")
		for _, f := range s.CompatibilityFindings {
			fmt.Fprintf(r.w, "- %s\n", f)
		}
		fmt.Fprintln(r.w)
	}
	if len(s.Warnings) > 0 {
		fmt.Fprintf(r.w, "## ⚠ Warnings\n\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(r.w, "- %s\n", w)
		}
	}
}

func (r *MarkdownRenderer) RenderLoadSummary(s *LoadSummary) {
	fmt.Fprintf(r.w, "# mysqlsh — Load Summary\n\n")
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Source | `%s` |\n", s.SourceURL)
	fmt.Fprintf(r.w, "| Resumed | %v |\n", s.Resumed)
	fmt.Fprintf(r.w, "| Tables loaded | %d |\n", s.TablesLoaded)
	fmt.Fprintf(r.w, "| Chunks loaded | %d (%d skipped) |\n", s.ChunksLoaded, s.ChunksSkipped)
	fmt.Fprintf(r.w, "| Rows loaded | %s |\n", formatNumber(s.RowsLoaded))
	fmt.Fprintf(r.w, "| Deferred indexes | %d |\n", s.DeferredIndexes)
	fmt.Fprintf(r.w, "| Duration | %s |\n\n", s.Duration)

	if s.GrantErrors > 0 {
		fmt.Fprintf(r.w, "## Grant errors\n\n%d account(s) had grant errors.\n\n", s.GrantErrors)
	}
	if len(s.Warnings) > 0 {
		fmt.Fprintf(r.w, "## ⚠ Warnings\n\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(r.w, "- %s\n", w)
		}
	}
}

func (r *MarkdownRenderer) RenderTopology(conn mysql.ConnectionConfig, topo *topology.Info) {
	addr := fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	if conn.Socket != "" {
		addr = conn.Socket
	}

	fmt.Fprintf(r.w, "# mysqlsh — Connection Info\n\n")
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Host | `%s` |\n", addr)
	fmt.Fprintf(r.w, "| Version | %s |\n", topo.Version.String())
	fmt.Fprintf(r.w, "| Topology | %s |\n", formatTopoType(topo))
	fmt.Fprintf(r.w, "| Read only | %v |\n", topo.ReadOnly)
}
