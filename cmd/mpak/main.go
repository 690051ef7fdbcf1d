// Command mpak packs files and directory trees into .mpk containers
// and reconstructs them.
package main

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var version = "dev"

var (
	outputPath string
	compress   bool

	logger  *log.Logger
	slogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mpak",
	Short: "Pack file trees into a single container file",
	Long: `mpak packs files and directory trees into a single .mpk container
and reconstructs them. Directory roots are archived recursively; the
paths inside an archive are recorded relative to the root that
contained them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		// No command given: show usage and exit without error.
		cmd.Help()
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "path to place the output")
	rootCmd.PersistentFlags().BoolVarP(&compress, "compress", "c", false, "enable compression (reserved, currently has no effect)")

	rootCmd.AddCommand(packCmd, unpackCmd, getCmd, scanCmd)
}

func main() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	slogger = slog.New(logger)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
