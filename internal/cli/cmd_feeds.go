package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odysseus0/feedmd/internal/imageproxy"
	"github.com/odysseus0/feedmd/internal/store"
)

func newAddCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Subscribe to a feed, discovering it from a site URL if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			discovered, err := app.fetcher.DiscoverFeedURL(ctx, args[0])
			if err != nil {
				return fmt.Errorf("discover feed url: %w", err)
			}
			if discovered != args[0] {
				fmt.Fprintf(stderr, "Discovered feed URL: %s\n", discovered)
			}

			feed, inserted, err := app.store.CreateFeed(ctx, discovered)
			if err != nil {
				return fmt.Errorf("create feed: %w", err)
			}
			report, err := app.fetcher.Fetch(ctx, &feed.ID)
			if err != nil {
				return fmt.Errorf("initial fetch: %w", err)
			}
			if refreshed, err := app.store.GetFeedByID(ctx, feed.ID); err == nil {
				feed = refreshed
			}

			if getOutput() == OutputJSON {
				return writeJSON(stdout, AddFeedResponse{
					Feed:          withIcon(feed),
					Inserted:      inserted,
					DiscoveredURL: discovered,
					FetchReport:   report,
				})
			}

			if inserted {
				fmt.Fprintf(stdout, "Added feed %d: %s\n", feed.ID, fallback(feed.Title, feed.URL))
			} else {
				fmt.Fprintf(stdout, "Skipped existing feed (%d): %s\n", feed.ID, fallback(feed.Title, feed.URL))
			}
			if len(report.Results) > 0 {
				result := report.Results[0]
				if result.Error != "" {
					fmt.Fprintf(stderr, "Initial fetch failed: %s\n", result.Error)
				} else {
					fmt.Fprintf(stdout, "Fetched: %d new, %d updated\n", result.NewEntries, result.Updated)
				}
			}
			return nil
		},
	}
}

func newRemoveCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Unsubscribe from a feed and delete its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
			}
			if err := app.store.DeleteFeed(cmd.Context(), id); err != nil {
				return fmt.Errorf("remove feed: %w", err)
			}
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), RemoveFeedResponse{RemovedFeedID: id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed feed %d\n", id)
			return nil
		},
	}
}

func newFeedsCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List subscribed feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			feeds, err := app.store.ListFeedsWithCounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("list feeds: %w", err)
			}
			for i := range feeds {
				feeds[i] = withIcon(feeds[i])
			}
			switch getOutput() {
			case OutputJSON:
				return writeJSON(cmd.OutOrStdout(), feeds)
			case OutputWide:
				writeFeedsTable(cmd.OutOrStdout(), feeds, true)
			default:
				writeFeedsTable(cmd.OutOrStdout(), feeds, false)
			}
			return nil
		},
	}
}

// withIcon fills IconURL from the site URL, or the feed URL for feeds that
// never reported a site.
func withIcon(f Feed) Feed {
	f.IconURL, _ = imageproxy.IconURL(fallback(f.SiteURL, f.URL), false)
	return f
}
