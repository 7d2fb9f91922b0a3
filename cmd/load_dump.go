package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevSingh98/mysql-shell/internal/loadop"
	"github.com/DevSingh98/mysql-shell/internal/output"
)

var loadDumpCmd = &cobra.Command{
	Use:          "load-dump SOURCE_URL",
	Short:        "Load a dump produced by dump_instance/dump_schemas/dump_tables",
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
	Long: `Read the manifest at SOURCE_URL, rebuild its DDL and data dependency
graph, and apply it to the target server. Resumes automatically from a
prior progress log unless --reset-progress is given.`,
	RunE: func(c *cobra.Command, args []string) error {
		opts := loadOptionsFromFlags(c, args[0])
		connCfg := connectionConfigFromFlags()

		summary, err := loadop.Run(context.Background(), connCfg, opts)
		if err != nil {
			return err
		}

		renderer := output.NewRenderer(viper.GetString("format"), os.Stdout)
		renderer.RenderLoadSummary(summary)
		return nil
	},
}

func init() {
	addLoadFlags(loadDumpCmd)
	rootCmd.AddCommand(loadDumpCmd)
}
