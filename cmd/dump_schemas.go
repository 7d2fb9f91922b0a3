package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevSingh98/mysql-shell/internal/dumpop"
	"github.com/DevSingh98/mysql-shell/internal/output"
)

var dumpSchemasCmd = &cobra.Command{
	Use:          "dump-schemas OUTPUT_URL SCHEMA [SCHEMA...]",
	Short:        "Dump one or more schemas",
	SilenceUsage: true,
	Args:         cobra.MinimumNArgs(2),
	Long: `Take a consistent snapshot of the named schemas and write it to
OUTPUT_URL as chunked, optionally compressed artifacts plus a manifest.`,
	RunE: func(c *cobra.Command, args []string) error {
		opts := dumpOptionsFromFlags(c, args[0])
		opts.IncludeSchemas = args[1:]
		connCfg := connectionConfigFromFlags()

		summary, err := dumpop.Run(context.Background(), connCfg, Version, opts)
		if err != nil {
			return err
		}

		renderer := output.NewRenderer(viper.GetString("format"), os.Stdout)
		renderer.RenderDumpSummary(summary)
		return nil
	},
}

func init() {
	addDumpFlags(dumpSchemasCmd)
	rootCmd.AddCommand(dumpSchemasCmd)
}
