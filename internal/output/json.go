package output

import (
	"encoding/json"
	"io"

	"github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/topology"
)

// JSONRenderer produces machine-readable JSON output.
type JSONRenderer struct {
	w io.Writer
}

type jsonDumpSummary struct {
	OutputURL             string   `json:"output_url"`
	ConsistentSnapshot    bool     `json:"consistent_snapshot"`
	Tables                int      `json:"tables"`
	Chunks                int      `json:"chunks"`
	ArtifactBytes         int64    `json:"artifact_bytes"`
	CompressedBytes       int64    `json:"compressed_bytes"`
	DurationSeconds       float64  `json:"duration_seconds"`
	CompatibilityFindings []string `json:"compatibility_findings,omitempty"`
	Warnings              []string `json:"warnings,omitempty"`
	DumpComplete          bool     `json:"dump_complete"`
}

type jsonLoadSummary struct {
	SourceURL       string   `json:"source_url"`
	Resumed         bool     `json:"resumed"`
	TablesLoaded    int      `json:"tables_loaded"`
	ChunksLoaded    int      `json:"chunks_loaded"`
	ChunksSkipped   int      `json:"chunks_skipped"`
	RowsLoaded      int64    `json:"rows_loaded"`
	DeferredIndexes int      `json:"deferred_indexes"`
	GrantErrors     int      `json:"grant_errors"`
	DurationSeconds float64  `json:"duration_seconds"`
	Warnings        []string `json:"warnings,omitempty"`
}

func (r *JSONRenderer) RenderDumpSummary(s *DumpSummary) {
	out := jsonDumpSummary{
		OutputURL:             s.OutputURL,
		ConsistentSnapshot:    s.ConsistentSnapshot,
		Tables:                s.Tables,
		Chunks:                s.Chunks,
		ArtifactBytes:         s.ArtifactBytes,
		CompressedBytes:       s.CompressedBytes,
		DurationSeconds:       s.Duration.Seconds(),
		CompatibilityFindings: s.CompatibilityFindings,
		Warnings:              s.Warnings,
		DumpComplete:          s.DumpComplete,
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func (r *JSONRenderer) RenderLoadSummary(s *LoadSummary) {
	out := jsonLoadSummary{
		SourceURL:       s.SourceURL,
		Resumed:         s.Resumed,
		TablesLoaded:    s.TablesLoaded,
		ChunksLoaded:    s.ChunksLoaded,
		ChunksSkipped:   s.ChunksSkipped,
		RowsLoaded:      s.RowsLoaded,
		DeferredIndexes: s.DeferredIndexes,
		GrantErrors:     s.GrantErrors,
		DurationSeconds: s.Duration.Seconds(),
		Warnings:        s.Warnings,
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func (r *JSONRenderer) RenderTopology(conn mysql.ConnectionConfig, topo *topology.Info) {
	out := map[string]any{
		"host":      conn.Host,
		"port":      conn.Port,
		"version":   topo.Version.String(),
		"topology":  string(topo.Type),
		"read_only": topo.ReadOnly,
	}

	if topo.IsCloudManaged {
		out["is_cloud_managed"] = true
		out["cloud_provider"] = topo.CloudProvider
	}

	switch topo.Type {
	case topology.Galera:
		out["cluster_size"] = topo.GaleraClusterSize
		out["node_state"] = topo.GaleraNodeState
		out["osu_method"] = topo.GaleraOSUMethod
		out["wsrep_max_ws_size"] = topo.WsrepMaxWsSize
		out["flow_control_paused"] = topo.FlowControlPausedPct
	case topology.GroupRepl:
		out["gr_mode"] = topo.GRMode
		out["member_count"] = topo.GRMemberCount
		out["member_role"] = topo.GRMemberRole
	case topology.AuroraWriter, topology.AuroraReader:
		if topo.Version.AuroraVersion != "" {
			out["aurora_version"] = topo.Version.AuroraVersion
		}
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
