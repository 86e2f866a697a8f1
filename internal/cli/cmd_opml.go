package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odysseus0/feedmd/internal/fetch"
	"github.com/odysseus0/feedmd/internal/opml"
)

func newImportCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.opml|url>",
		Short: "Import subscriptions from an OPML file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src := args[0]

			rc, err := opml.Open(ctx, app.fetcher.HTTPClient(), src)
			if err != nil {
				return fmt.Errorf("open opml: %w", err)
			}
			subs, err := opml.Read(rc)
			rc.Close()
			if err != nil {
				return err
			}

			report := ImportReport{Source: src, Total: len(subs), Results: make([]ImportResult, 0, len(subs))}
			for _, sub := range subs {
				item := ImportResult{InputURL: sub.URL, Title: sub.Title}
				normalized, err := fetch.NormalizeURL(sub.URL)
				if err != nil {
					item.Error = err.Error()
					report.Failed++
					report.Results = append(report.Results, item)
					continue
				}
				item.NormalizedURL = normalized

				feed, added, err := app.store.CreateFeed(ctx, normalized)
				if err != nil {
					item.Error = err.Error()
					report.Failed++
					report.Results = append(report.Results, item)
					continue
				}
				item.Added = added
				item.FeedID = feed.ID
				if added {
					report.Added++
				} else {
					report.Existing++
				}
				report.Results = append(report.Results, item)
			}

			out := cmd.OutOrStdout()
			if getOutput() == OutputJSON {
				return writeJSON(out, report)
			}
			fmt.Fprintf(out, "Imported %d feeds from %s\n", report.Total, report.Source)
			fmt.Fprintf(out, "Added: %d, Existing: %d, Failed: %d\n", report.Added, report.Existing, report.Failed)
			if getOutput() == OutputWide {
				for _, r := range report.Results {
					if r.Error != "" {
						fmt.Fprintf(out, "- %s -> error: %s\n", r.InputURL, r.Error)
					}
				}
			}
			return nil
		},
	}
}

func newExportCmd(getApp func() *App, _ func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write subscriptions as OPML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			feeds, err := app.store.ListFeedURLs(cmd.Context())
			if err != nil {
				return err
			}
			return opml.Write(cmd.OutOrStdout(), feeds)
		},
	}
}
