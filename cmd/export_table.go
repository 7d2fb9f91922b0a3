package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevSingh98/mysql-shell/internal/dumpop"
	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/output"
)

var exportTableCmd = &cobra.Command{
	Use:          "export-table SCHEMA TABLE OUTPUT_URL",
	Short:        "Export one table's data without a manifest or consistency barrier",
	SilenceUsage: true,
	Args:         cobra.ExactArgs(3),
	Long: `Dump a single table's rows to OUTPUT_URL, skipping the manifest,
progress log, and instance-wide consistency snapshot that dump_instance/
dump_schemas/dump_tables use. Intended for ad hoc single-table extracts.`,
	RunE: func(c *cobra.Command, args []string) error {
		f := c.Flags()
		threads, _ := f.GetInt("threads")
		bytesPerChunk, _ := f.GetString("bytes-per-chunk")
		maxRate, _ := f.GetString("max-rate")
		compression, _ := f.GetString("compression")
		dialect, _ := f.GetString("dialect")
		where, _ := f.GetString("where")
		partitions, _ := f.GetStringSlice("partitions")
		tzUtc, _ := f.GetBool("tz-utc")

		opts := &options.ExportTableOptions{
			Schema:        args[0],
			Table:         args[1],
			OutputURL:     args[2],
			Threads:       threads,
			BytesPerChunk: bytesPerChunk,
			MaxRate:       maxRate,
			Compression:   compression,
			Dialect:       options.Dialect{Name: dialect},
			Where:         where,
			Partitions:    partitions,
			TzUtc:         tzUtc,
		}
		connCfg := connectionConfigFromFlags()

		summary, err := dumpop.RunExportTable(context.Background(), connCfg, opts)
		if err != nil {
			return err
		}

		renderer := output.NewRenderer(viper.GetString("format"), os.Stdout)
		renderer.RenderDumpSummary(summary)
		return nil
	},
}

func init() {
	exportTableCmd.Flags().Int("threads", 8, "number of parallel export worker threads")
	exportTableCmd.Flags().String("bytes-per-chunk", "64M", "target size per data chunk file")
	exportTableCmd.Flags().String("max-rate", "0", "maximum aggregate read throughput, 0 = unlimited")
	exportTableCmd.Flags().String("compression", "none", "chunk compression codec: none, gzip, zstd")
	exportTableCmd.Flags().String("dialect", "default", "data file field/line format: default, csv, tsv, csv-unix")
	exportTableCmd.Flags().String("where", "", "row filter predicate applied to every chunk")
	exportTableCmd.Flags().StringSlice("partitions", nil, "restrict the export to these partitions")
	exportTableCmd.Flags().Bool("tz-utc", true, "shift TIMESTAMP values to UTC before writing")
	rootCmd.AddCommand(exportTableCmd)
}
