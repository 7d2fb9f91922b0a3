package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/topology"
)

// TextRenderer produces Lip Gloss styled terminal output.
type TextRenderer struct {
	w io.Writer
}

func (r *TextRenderer) RenderDumpSummary(s *DumpSummary) {
	width := 64
	fmt.Fprintln(r.w)

	header := TitleStyle.Render("mysqlsh — Dump Summary")
	lines := []string{
		r.labelValue("Output:", s.OutputURL),
		r.labelValue("Tables:", fmt.Sprintf("%d", s.Tables)),
		r.labelValue("Chunks:", fmt.Sprintf("%d", s.Chunks)),
		r.labelValue("Bytes written:", fmt.Sprintf("%s (%s compressed)", humanBytes(s.ArtifactBytes), humanBytes(s.CompressedBytes))),
		r.labelValue("Snapshot:", fmt.Sprintf("%v", s.ConsistentSnapshot)),
		r.labelValue("Duration:", s.Duration.String()),
	}
	box := BoxStyle.Width(width).Render(header + "\n" + strings.Join(lines, "\n"))
	fmt.Fprintln(r.w, box)

	if len(s.CompatibilityFindings) > 0 {
		var b strings.Builder
		b.WriteString(WarningText.Render(IconWarning + " Compatibility findings"))
		for _, f := range s.CompatibilityFindings {
			b.WriteString("\n" + f)
		}
		fmt.Fprintln(r.w, WarningBoxStyle.Width(width).Render(b.String()))
	}

	for _, w := range s.Warnings {
		fmt.Fprintln(r.w, WarningBoxStyle.Width(width).Render(WarningText.Render(IconWarning+" Warning")+"\n"+w))
	}

	if s.DumpComplete {
		fmt.Fprintln(r.w, SafeText.Render(IconSafe+" dump complete"))
	} else {
		fmt.Fprintln(r.w, DangerText.Render(IconDanger+" dump did not complete — see progress log"))
	}
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) RenderLoadSummary(s *LoadSummary) {
	width := 64
	fmt.Fprintln(r.w)

	header := TitleStyle.Render("mysqlsh — Load Summary")
	lines := []string{
		r.labelValue("Source:", s.SourceURL),
		r.labelValue("Resumed:", fmt.Sprintf("%v", s.Resumed)),
		r.labelValue("Tables loaded:", fmt.Sprintf("%d", s.TablesLoaded)),
		r.labelValue("Chunks loaded:", fmt.Sprintf("%d (%d skipped)", s.ChunksLoaded, s.ChunksSkipped)),
		r.labelValue("Rows loaded:", formatNumber(s.RowsLoaded)),
		r.labelValue("Deferred indexes:", fmt.Sprintf("%d", s.DeferredIndexes)),
		r.labelValue("Duration:", s.Duration.String()),
	}
	box := BoxStyle.Width(width).Render(header + "\n" + strings.Join(lines, "\n"))
	fmt.Fprintln(r.w, box)

	if s.GrantErrors > 0 {
		fmt.Fprintln(r.w, WarningBoxStyle.Width(width).Render(
			WarningText.Render(IconWarning+" Grant errors")+fmt.Sprintf("\n%d account(s) had grant errors", s.GrantErrors)))
	}

	for _, w := range s.Warnings {
		fmt.Fprintln(r.w, WarningBoxStyle.Width(width).Render(WarningText.Render(IconWarning+" Warning")+"\n"+w))
	}
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) RenderTopology(conn mysql.ConnectionConfig, topo *topology.Info) {
	width := 60
	fmt.Fprintln(r.w)

	var lines []string
	addr := fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	if conn.Socket != "" {
		addr = conn.Socket
	}
	lines = append(lines, r.labelValue("Connected to:", addr))
	lines = append(lines, r.labelValue("Server version:", topo.Version.String()))
	lines = append(lines, r.labelValue("Topology:", formatTopoType(topo)))

	switch topo.Type {
	case topology.Galera:
		lines = append(lines, r.labelValue("Cluster size:", fmt.Sprintf("%d nodes", topo.GaleraClusterSize)))
		lines = append(lines, r.labelValue("Node state:", topo.GaleraNodeState))
		lines = append(lines, r.labelValue("wsrep_OSU_method:", topo.GaleraOSUMethod))
		lines = append(lines, r.labelValue("wsrep_max_ws_size:", fmt.Sprintf("%d (%s)", topo.WsrepMaxWsSize, humanBytes(topo.WsrepMaxWsSize))))
		lines = append(lines, r.labelValue("Flow control:", topo.FlowControlPausedPct))
	case topology.GroupRepl:
		lines = append(lines, r.labelValue("Mode:", topo.GRMode))
		lines = append(lines, r.labelValue("Members:", fmt.Sprintf("%d online", topo.GRMemberCount)))
		lines = append(lines, r.labelValue("Role:", topo.GRMemberRole))
		if topo.GRTransactionLimit > 0 {
			lines = append(lines, r.labelValue("TX size limit:", humanBytes(topo.GRTransactionLimit)))
		}
	case topology.AsyncReplica, topology.SemiSyncReplica:
		if topo.IsReplica {
			lag := "N/A"
			if topo.ReplicaLagSecs != nil {
				lag = fmt.Sprintf("%d seconds", *topo.ReplicaLagSecs)
			}
			lines = append(lines, r.labelValue("Replica lag:", lag))
		}
		if topo.IsPrimary {
			lines = append(lines, r.labelValue("Role:", "Primary (has replicas)"))
		}
	}

	lines = append(lines, r.labelValue("Read only:", fmt.Sprintf("%v", topo.ReadOnly)))

	title := TitleStyle.Render("mysqlsh — Connection Info")
	box := SafeBoxStyle.Width(width).Render(title + "\n" + strings.Join(lines, "\n"))
	fmt.Fprintln(r.w, box)
	fmt.Fprintln(r.w)
}

// helpers

func (r *TextRenderer) labelValue(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func formatTopoType(topo *topology.Info) string {
	switch topo.Type {
	case topology.Galera:
		return fmt.Sprintf("Percona XtraDB Cluster (%d nodes)", topo.GaleraClusterSize)
	case topology.GroupRepl:
		return fmt.Sprintf("Group Replication (%s, %d members)", topo.GRMode, topo.GRMemberCount)
	case topology.AsyncReplica:
		return "Async Replication"
	case topology.SemiSyncReplica:
		return "Semi-sync Replication"
	default:
		return "Standalone"
	}
}

func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

func humanBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
