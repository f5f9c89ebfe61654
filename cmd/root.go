package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/lintgraph/cmd/merge"
	"github.com/scan-io-git/lintgraph/cmd/orchestrate"
	"github.com/scan-io-git/lintgraph/cmd/receive"
	"github.com/scan-io-git/lintgraph/cmd/upload"
	"github.com/scan-io-git/lintgraph/cmd/version"
	"github.com/scan-io-git/lintgraph/internal/config"
	"github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "lintgraph [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Lintgraph attaches static analysis violations to a code property graph.",
		Long: `Lintgraph runs PMD and Joern in containers, merges the PMD violations into the
FILE vertices of the Joern graph export and ships the merged graph together with
the project sources to a receiver service.
`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $LINTGRAPH_CONFIG or ./"+config.DefaultConfigFile+")")

	rootCmd.AddCommand(merge.MergeCmd)
	rootCmd.AddCommand(orchestrate.OrchestrateCmd)
	rootCmd.AddCommand(receive.ReceiveCmd)
	rootCmd.AddCommand(upload.UploadCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return errors.ExitCode(err)
	}
	return 0
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	merge.Init(AppConfig)
	orchestrate.Init(AppConfig)
	receive.Init(AppConfig)
	upload.Init(AppConfig)
	version.Init(AppConfig)
}
