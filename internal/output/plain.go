package output

import (
	"fmt"
	"io"

	"github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/topology"
)

// PlainRenderer produces unformatted text output safe for piping.
type PlainRenderer struct {
	w io.Writer
}

func (r *PlainRenderer) RenderDumpSummary(s *DumpSummary) {
	fmt.Fprintf(r.w, "=== mysqlsh — Dump Summary ===\n\n")
	fmt.Fprintf(r.w, "Output:          %s\n", s.OutputURL)
	fmt.Fprintf(r.w, "Tables:          %d\n", s.Tables)
	fmt.Fprintf(r.w, "Chunks:          %d\n", s.Chunks)
	fmt.Fprintf(r.w, "Bytes written:   %s (%s compressed)\n", humanBytes(s.ArtifactBytes), humanBytes(s.CompressedBytes))
	fmt.Fprintf(r.w, "Snapshot:        %v\n", s.ConsistentSnapshot)
	fmt.Fprintf(r.w, "Duration:        %s\n", s.Duration)
	fmt.Fprintf(r.w, "Complete:        %v\n\n", s.DumpComplete)

	for _, f := range s.CompatibilityFindings {
		fmt.Fprintf(r.w, "COMPATIBILITY: %s\n", f)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(r.w, "WARNING: %s\n", w)
	}
}

func (r *PlainRenderer) RenderLoadSummary(s *LoadSummary) {
	fmt.Fprintf(r.w, "=== mysqlsh — Load Summary ===\n\n")
	fmt.Fprintf(r.w, "Source:          %s\n", s.SourceURL)
	fmt.Fprintf(r.w, "Resumed:         %v\n", s.Resumed)
	fmt.Fprintf(r.w, "Tables loaded:   %d\n", s.TablesLoaded)
	fmt.Fprintf(r.w, "Chunks loaded:   %d (%d skipped)\n", s.ChunksLoaded, s.ChunksSkipped)
	fmt.Fprintf(r.w, "Rows loaded:     %s\n", formatNumber(s.RowsLoaded))
	fmt.Fprintf(r.w, "Deferred idx:    %d\n", s.DeferredIndexes)
	fmt.Fprintf(r.w, "Duration:        %s\n\n", s.Duration)

	if s.GrantErrors > 0 {
		fmt.Fprintf(r.w, "GRANT ERRORS: %d\n", s.GrantErrors)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(r.w, "WARNING: %s\n", w)
	}
}

func (r *PlainRenderer) RenderTopology(conn mysql.ConnectionConfig, topo *topology.Info) {
	addr := fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	if conn.Socket != "" {
		addr = conn.Socket
	}

	fmt.Fprintf(r.w, "=== mysqlsh — Connection Info ===\n\n")
	fmt.Fprintf(r.w, "Connected to:  %s\n", addr)
	fmt.Fprintf(r.w, "Version:       %s\n", topo.Version.String())
	fmt.Fprintf(r.w, "Topology:      %s\n", formatTopoType(topo))
	fmt.Fprintf(r.w, "Read only:     %v\n", topo.ReadOnly)

	switch topo.Type {
	case topology.Galera:
		fmt.Fprintf(r.w, "Cluster size:  %d nodes\n", topo.GaleraClusterSize)
		fmt.Fprintf(r.w, "Node state:    %s\n", topo.GaleraNodeState)
		fmt.Fprintf(r.w, "OSU method:    %s\n", topo.GaleraOSUMethod)
		fmt.Fprintf(r.w, "Flow control:  %s\n", topo.FlowControlPausedPct)
	case topology.GroupRepl:
		fmt.Fprintf(r.w, "Mode:          %s\n", topo.GRMode)
		fmt.Fprintf(r.w, "Members:       %d\n", topo.GRMemberCount)
	}
}
