// Command segindex runs segment index builds described by YAML job files.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/hupe1980/segindex"
	"github.com/hupe1980/segindex/index"
)

var (
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:           "segindex",
	Short:         "Build segment indexes from binlogs or versioned spaces",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		version := "devel"
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.Main.Version != "" {
				version = info.Main.Version
			}
			fmt.Fprintf(out, "segindex %s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
		} else {
			fmt.Fprintf(out, "segindex %s\n", version)
		}
		fmt.Fprintf(out, "Engine versions: %d-%d\n", index.MinimalEngineVersion, index.CurrentEngineVersion)
		fmt.Fprintf(out, "Index types: %v\n", index.Registered())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON")

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(spaceCmd())
	rootCmd.AddCommand(versionCmd)
}

func newLogger() *segindex.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if jsonLogs {
		return segindex.NewJSONLogger(level)
	}
	return segindex.NewTextLogger(level)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
