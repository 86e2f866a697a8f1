package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odysseus0/feedmd/internal/config"
)

// Execute loads configuration and runs the root command against os.Args.
func Execute() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	return NewRootCmd(cfg).Execute()
}

func NewRootCmd(cfg config.Config) *cobra.Command {
	var dbPath string
	var output string
	var outFmt OutputFormat
	var logOpts logOptions
	var app *App

	dbPath = cfg.DBPath
	output = string(OutputTable)

	getApp := func() *App { return app }
	getOutput := func() OutputFormat { return outFmt }

	cmd := &cobra.Command{
		Use:           "feedmd",
		Short:         "Local-first feed reader that stores articles as Markdown",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(logOpts)
			parsedFmt, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			outFmt = parsedFmt
			if !requiresApp(cmd) || app != nil {
				return nil
			}
			a, err := NewApp(cfg, dbPath)
			if err != nil {
				return err
			}
			app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				_ = app.Close()
				app = nil
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&dbPath, "db", dbPath, "SQLite database path")
	flags.StringVarP(&output, "output", "o", output, "Output format: table, json, wide")
	flags.BoolVarP(&logOpts.verbose, "verbose", "v", false, "Log info level messages to stderr")
	flags.BoolVar(&logOpts.debug, "debug", false, "Log debug level messages to stderr")
	flags.Int64SliceVar(&logOpts.feeds, "log-feed", nil, "Always log debug messages for these feed IDs")

	cmd.AddCommand(
		newAddCmd(getApp, getOutput),
		newRemoveCmd(getApp, getOutput),
		newFeedsCmd(getApp, getOutput),
		newFetchCmd(getApp, getOutput),
		newRerenderCmd(getApp, getOutput),
		newEntriesCmd(getApp, getOutput),
		newReadCmd(getApp, getOutput),
		newMarkCmd(getApp, getOutput),
		newSearchCmd(getApp, getOutput),
		newStatsCmd(getApp, getOutput),
		newImportCmd(getApp, getOutput),
		newExportCmd(getApp, getOutput),
		newConvertCmd(getOutput),
		newImageCmd(getOutput),
	)
	return cmd
}

func parseOutputFormat(raw string) (OutputFormat, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch OutputFormat(s) {
	case OutputTable, OutputJSON, OutputWide:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("invalid output format %q (expected table|json|wide)", raw)
	}
}

// Commands that never touch the database are annotated so the root does not
// open one for them.
const annotationNoApp = "feedmd/no-app"

func requiresApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion":
			return false
		}
		if _, ok := c.Annotations[annotationNoApp]; ok {
			return false
		}
	}
	return true
}
