package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevSingh98/mysql-shell/internal/loadop"
	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/output"
)

var importTableCmd = &cobra.Command{
	Use:          "import-table SCHEMA TABLE SOURCE_URL",
	Short:        "Import data files into a single existing table",
	SilenceUsage: true,
	Args:         cobra.ExactArgs(3),
	Long: `Load every data file found at SOURCE_URL into SCHEMA.TABLE, which must
already exist. No DDL, manifest, or progress log is involved.`,
	RunE: func(c *cobra.Command, args []string) error {
		f := c.Flags()
		threads, _ := f.GetInt("threads")
		dialect, _ := f.GetString("dialect")
		replace, _ := f.GetBool("replace-duplicates")
		maxBytesPerTx, _ := f.GetString("max-bytes-per-transaction")
		charset, _ := f.GetString("character-set")

		opts := &options.ImportTableOptions{
			Schema:                 args[0],
			Table:                  args[1],
			SourceURL:              args[2],
			Threads:                threads,
			Dialect:                options.Dialect{Name: dialect},
			ReplaceDuplicates:      replace,
			MaxBytesPerTransaction: maxBytesPerTx,
			CharacterSet:           charset,
		}
		connCfg := connectionConfigFromFlags()

		summary, err := loadop.RunImportTable(context.Background(), connCfg, opts)
		if err != nil {
			return err
		}

		renderer := output.NewRenderer(viper.GetString("format"), os.Stdout)
		renderer.RenderLoadSummary(summary)
		return nil
	},
}

func init() {
	importTableCmd.Flags().Int("threads", 8, "number of parallel import worker threads")
	importTableCmd.Flags().String("dialect", "default", "data file field/line format: default, csv, tsv, csv-unix, json")
	importTableCmd.Flags().Bool("replace-duplicates", false, "REPLACE rows that collide with an existing unique key")
	importTableCmd.Flags().String("max-bytes-per-transaction", "", "bytes per LOAD DATA transaction (validated only; each chunk is loaded in one statement)")
	importTableCmd.Flags().String("character-set", "", "session character set for the import connection")
	rootCmd.AddCommand(importTableCmd)
}
