package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevSingh98/mysql-shell/internal/dumpop"
	"github.com/DevSingh98/mysql-shell/internal/output"
)

var dumpInstanceCmd = &cobra.Command{
	Use:          "dump-instance OUTPUT_URL",
	Short:        "Dump every schema in the instance",
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
	Long: `Take a consistent snapshot of every schema on the instance (except the
built-in mysql/information_schema/performance_schema/sys schemas) and write
it to OUTPUT_URL as chunked, optionally compressed artifacts plus a
manifest.`,
	RunE: func(c *cobra.Command, args []string) error {
		opts := dumpOptionsFromFlags(c, args[0])
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
	addDumpFlags(dumpInstanceCmd)
	rootCmd.AddCommand(dumpInstanceCmd)
}
