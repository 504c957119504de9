package main

import (
	"fmt"
	"os"

	"pll.link/configs/configsenv"
	"pll.link/configs/configslog"

	"github.com/spf13/cobra"
)

var Version = "dev"

// cfg PersistentPreRun içinde bir kez doldurulur.
var cfg configsenv.Config

func main() {
	rootCmd := &cobra.Command{
		Use:     "pll",
		Short:   "pll - ödeme kartı / sadakat hesabı link motoru",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configslog.InitLogger()
			cfg = configsenv.Load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			configslog.SyncLogger()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(retryStuckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
